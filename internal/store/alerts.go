package store

import (
	"context"
	"fmt"
	"time"

	"rxstock/m/domain"
)

var alertColumns = []string{"id", "title", "message", "type", "priority", "status", "item_id", "item_name", "created_at", "updated_at", "resolved_at"}

// ListAlerts returns every alert in id order.
func (r *Repository) ListAlerts(ctx context.Context) ([]domain.Alert, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select(alertColumns...).From("alerts").OrderBy("id")
	query, args := sb.Build()

	alerts := []domain.Alert{}
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	return alerts, nil
}

func (r *Repository) GetAlert(ctx context.Context, id int64) (domain.Alert, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select(alertColumns...).From("alerts").Where(sb.Equal("id", id))
	query, args := sb.Build()

	var a domain.Alert
	if err := r.db.GetContext(ctx, &a, query, args...); err != nil {
		return a, fmt.Errorf("getting alert %d: %w", id, notFound(err))
	}
	return a, nil
}

// FindOpenAlert returns the newest unresolved alert of type typ raised for
// the medicine itemID.
func (r *Repository) FindOpenAlert(ctx context.Context, itemID int64, typ domain.AlertType) (domain.Alert, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select(alertColumns...).From("alerts").Where(
		sb.Equal("item_id", itemID),
		sb.Equal("type", string(typ)),
		sb.NotEqual("status", string(domain.AlertResolved)),
	).OrderBy("id").Desc().Limit(1)
	query, args := sb.Build()

	var a domain.Alert
	if err := r.db.GetContext(ctx, &a, query, args...); err != nil {
		return a, fmt.Errorf("finding open %s alert for medicine %d: %w", typ, itemID, notFound(err))
	}
	return a, nil
}

// ListUnresolvedSince returns unresolved alerts created at or after since,
// newest first.
func (r *Repository) ListUnresolvedSince(ctx context.Context, since time.Time) ([]domain.Alert, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select(alertColumns...).From("alerts").
		Where(sb.NotEqual("status", string(domain.AlertResolved))).
		OrderBy("id").Desc()
	query, args := sb.Build()

	var open []domain.Alert
	if err := r.db.SelectContext(ctx, &open, query, args...); err != nil {
		return nil, fmt.Errorf("listing unresolved alerts: %w", err)
	}
	alerts := []domain.Alert{}
	for _, a := range open {
		if !a.CreatedAt.Before(since) {
			alerts = append(alerts, a)
		}
	}
	return alerts, nil
}

// CreateAlert inserts a and returns it with the assigned id.
func (r *Repository) CreateAlert(ctx context.Context, a domain.Alert) (domain.Alert, error) {
	ib := r.flavor.NewInsertBuilder()
	ib.InsertInto("alerts").
		Cols("title", "message", "type", "priority", "status", "item_id", "item_name", "created_at", "updated_at", "resolved_at").
		Values(a.Title, a.Message, string(a.Type), string(a.Priority), string(a.Status), a.ItemID, a.ItemName, a.CreatedAt.UTC(), a.UpdatedAt.UTC(), nullTime(a.ResolvedAt))

	id, err := insertReturningID(ctx, r.db, ib)
	if err != nil {
		return a, fmt.Errorf("creating alert: %w", err)
	}
	return a.WithID(id), nil
}

// UpdateAlertStatus stores the status and timestamps of a.
func (r *Repository) UpdateAlertStatus(ctx context.Context, a domain.Alert) error {
	ub := r.flavor.NewUpdateBuilder()
	ub.Update("alerts").Set(
		ub.Assign("status", string(a.Status)),
		ub.Assign("updated_at", a.UpdatedAt.UTC()),
		ub.Assign("resolved_at", nullTime(a.ResolvedAt)),
	).Where(ub.Equal("id", a.ID))
	query, args := ub.Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	return expectOne(res, err, "updating alert", a.ID)
}

// nullTime converts an optional timestamp to a UTC driver value.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
