package database

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"rxstock/m/internal/migrations"
)

// NewTestDB creates a fresh in-memory SQLite database with the schema applied.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := Connect(context.Background(), DriverSQLite, ":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}
