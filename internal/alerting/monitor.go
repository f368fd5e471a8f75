// Package alerting raises stock, expiry and restock alerts from medicine
// changes and builds the digest of unresolved alerts.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"rxstock/m/domain"
)

// DigestWindow is how far back the unresolved alert digest looks.
const DigestWindow = 24 * time.Hour

// Store is the alert persistence the monitor needs.
type Store interface {
	FindOpenAlert(ctx context.Context, itemID int64, typ domain.AlertType) (domain.Alert, error)
	CreateAlert(ctx context.Context, a domain.Alert) (domain.Alert, error)
	ListUnresolvedSince(ctx context.Context, since time.Time) ([]domain.Alert, error)
}

type Monitor struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

type Option func(*Monitor)

// WithClock sets the time alerts are stamped with and expiry is measured from.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func NewMonitor(store Store, log zerolog.Logger, opts ...Option) *Monitor {
	m := &Monitor{store: store, now: time.Now, log: log}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Evaluate returns the alerts cur warrants. prev is the medicine as it was
// before an update and nil on create.
func Evaluate(prev *domain.Medicine, cur domain.Medicine, now time.Time) []domain.Alert {
	var alerts []domain.Alert
	raise := func(typ domain.AlertType, priority domain.Priority, title, message string) domain.Alert {
		return domain.AlertInput{
			Title:    title,
			Message:  message,
			Type:     typ,
			Priority: priority,
			ItemID:   cur.ID,
			ItemName: cur.Name,
		}.Alert(now)
	}

	if cur.LowStock() {
		alerts = append(alerts, raise(domain.AlertStock, domain.PriorityHigh,
			"Low Stock: "+cur.Name,
			fmt.Sprintf("%s has %d units remaining (threshold: %d)", cur.Name, cur.Quantity, domain.LowStockThreshold)))
	} else if prev != nil && prev.LowStock() {
		a := raise(domain.AlertRestock, domain.PriorityLow,
			"Restocked: "+cur.Name,
			fmt.Sprintf("%s was restocked from %d to %d units", cur.Name, prev.Quantity, cur.Quantity))
		a, _ = a.Transition(domain.AlertResolved, now)
		alerts = append(alerts, a)
	}

	if days, ok := cur.DaysUntilExpiry(now); ok && days <= domain.ExpiryWarningDays {
		if days < 0 {
			alerts = append(alerts, raise(domain.AlertExpiry, domain.PriorityHigh,
				"Expired: "+cur.Name,
				fmt.Sprintf("%s expired on %s (%d days ago)", cur.Name, cur.ExpiryDate, -days)))
		} else {
			alerts = append(alerts, raise(domain.AlertExpiry, domain.PriorityMedium,
				"Expiry Warning: "+cur.Name,
				fmt.Sprintf("%s expires on %s (%d days)", cur.Name, cur.ExpiryDate, days)))
		}
	}
	return alerts
}

// Check stores the alerts cur warrants, skipping any type that already has
// an open alert for the medicine.
func (m *Monitor) Check(ctx context.Context, prev *domain.Medicine, cur domain.Medicine) ([]domain.Alert, error) {
	var raised []domain.Alert
	for _, a := range Evaluate(prev, cur, m.now()) {
		if a.Actionable() {
			_, err := m.store.FindOpenAlert(ctx, cur.ID, a.Type)
			if err == nil {
				continue
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return raised, err
			}
		}
		stored, err := m.store.CreateAlert(ctx, a)
		if err != nil {
			return raised, err
		}
		m.log.Info().
			Int64("alert_id", stored.ID).
			Int64("medicine_id", cur.ID).
			Str("type", string(stored.Type)).
			Str("priority", string(stored.Priority)).
			Msg("alert raised")
		raised = append(raised, stored)
	}
	return raised, nil
}

// Sweep checks every medicine as if it had just been created.
func (m *Monitor) Sweep(ctx context.Context, medicines []domain.Medicine) (int, error) {
	raised := 0
	for _, med := range medicines {
		alerts, err := m.Check(ctx, nil, med)
		raised += len(alerts)
		if err != nil {
			return raised, fmt.Errorf("checking medicine %d: %w", med.ID, err)
		}
	}
	return raised, nil
}
