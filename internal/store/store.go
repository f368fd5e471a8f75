// Package store persists medicines, alerts and prescriptions in SQL tables.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"

	"rxstock/m/domain"
	"rxstock/m/internal/database"
)

// Repository runs queries built for the database's SQL flavor.
type Repository struct {
	db     *sqlx.DB
	flavor sqlbuilder.Flavor
}

func New(db *sqlx.DB) *Repository {
	return &Repository{db: db, flavor: database.Flavor(db.DriverName())}
}

// Ping reports whether the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// insertReturningID runs an insert built by ib and returns the new row id.
func insertReturningID(ctx context.Context, q sqlx.QueryerContext, ib *sqlbuilder.InsertBuilder) (int64, error) {
	query, args := ib.Build()
	var id int64
	if err := q.QueryRowxContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// expectOne maps an exec that touched no rows to ErrNotFound.
func expectOne(res sql.Result, err error, what string, id int64) error {
	if err != nil {
		return fmt.Errorf("%s %d: %w", what, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
