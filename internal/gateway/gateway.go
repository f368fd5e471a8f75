// Package gateway validates mutation intents and applies them to the session
// stores, either locally or through the REST collaborator.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rxstock/m/domain"
	"rxstock/m/internal/collection"
)

// Mode selects when a collaborator-backed mutation becomes visible.
type Mode int

const (
	// Pessimistic applies a mutation only after the collaborator accepted it.
	Pessimistic Mode = iota
	// Optimistic applies a mutation immediately and reverts it when the
	// collaborator rejects it.
	Optimistic
)

func (m Mode) String() string {
	if m == Optimistic {
		return "optimistic"
	}
	return "pessimistic"
}

// ParseMode maps a configuration value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "pessimistic":
		return Pessimistic, nil
	case "optimistic":
		return Optimistic, nil
	}
	return Pessimistic, fmt.Errorf("unknown mutation mode %q", s)
}

// Backend is the durable collaborator behind the stores.
type Backend interface {
	CreateMedicine(ctx context.Context, in domain.MedicineInput) (domain.Medicine, error)
	UpdateMedicine(ctx context.Context, id int64, in domain.MedicineInput) (domain.Medicine, error)
	DeleteMedicine(ctx context.Context, id int64) error

	CreateAlert(ctx context.Context, in domain.AlertInput) (domain.Alert, error)
	SetAlertStatus(ctx context.Context, id int64, status domain.AlertStatus, at time.Time) (domain.Alert, error)

	CreatePrescription(ctx context.Context, in domain.PrescriptionInput) (domain.Prescription, error)
	SetPrescriptionStatus(ctx context.Context, id int64, status domain.PrescriptionStatus) (domain.Prescription, error)
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer func(m domain.Medicine) bool

// Gateway serializes mutations of the three session stores.
type Gateway struct {
	mu sync.Mutex

	medicines     *collection.Store[domain.Medicine]
	alerts        *collection.Store[domain.Alert]
	prescriptions *collection.Store[domain.Prescription]

	backend  Backend
	mode     Mode
	now      func() time.Time
	log      zerolog.Logger
	observer func(Event)
}

// Event describes a finished mutation.
type Event struct {
	Op  string
	ID  int64
	Err error
}

type Option func(*Gateway)

// WithBackend routes mutations through b. Without a backend the gateway
// assigns identifiers itself.
func WithBackend(b Backend, mode Mode) Option {
	return func(g *Gateway) {
		g.backend = b
		g.mode = mode
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// WithObserver reports every finished mutation to fn, outside the gateway
// lock.
func WithObserver(fn func(Event)) Option {
	return func(g *Gateway) { g.observer = fn }
}

func New(medicines *collection.Store[domain.Medicine], alerts *collection.Store[domain.Alert], prescriptions *collection.Store[domain.Prescription], opts ...Option) *Gateway {
	g := &Gateway{
		medicines:     medicines,
		alerts:        alerts,
		prescriptions: prescriptions,
		now:           time.Now,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Local reports whether the gateway works without a collaborator.
func (g *Gateway) Local() bool {
	return g.backend == nil
}

func (g *Gateway) Mode() Mode {
	return g.mode
}

func (g *Gateway) CreateMedicine(ctx context.Context, in domain.MedicineInput) (m domain.Medicine, err error) {
	defer func() { g.emit("create medicine", m.ID, err) }()
	if err := in.Validate(); err != nil {
		return domain.Medicine{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	m, err = create(ctx, g, g.medicines, in.Medicine(), func(ctx context.Context) (domain.Medicine, error) {
		return g.backend.CreateMedicine(ctx, in)
	})
	if err != nil {
		return m, fmt.Errorf("creating medicine: %w", err)
	}
	g.log.Debug().Int64("id", m.ID).Str("name", m.Name).Msg("medicine created")
	return m, nil
}

func (g *Gateway) UpdateMedicine(ctx context.Context, id int64, in domain.MedicineInput) (m domain.Medicine, err error) {
	defer func() { g.emit("update medicine", id, err) }()
	if err := in.Validate(); err != nil {
		return domain.Medicine{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	current, err := g.medicines.Get(id)
	if err != nil {
		return domain.Medicine{}, fmt.Errorf("updating medicine: %w", err)
	}
	next := in.Medicine().WithID(id)
	m, err = replace(ctx, g, g.medicines, current, next, func(ctx context.Context) (domain.Medicine, error) {
		return g.backend.UpdateMedicine(ctx, id, in)
	})
	if err != nil {
		return m, fmt.Errorf("updating medicine %d: %w", id, err)
	}
	return m, nil
}

// DeleteMedicine removes a medicine once confirm approves it. A nil
// confirmer counts as a refusal.
func (g *Gateway) DeleteMedicine(ctx context.Context, id int64, confirm Confirmer) (err error) {
	defer func() { g.emit("delete medicine", id, err) }()
	g.mu.Lock()
	defer g.mu.Unlock()

	m, err := g.medicines.Get(id)
	if err != nil {
		return fmt.Errorf("deleting medicine: %w", err)
	}
	if confirm == nil || !confirm(m) {
		return fmt.Errorf("deleting medicine %d: %w", id, domain.ErrNotConfirmed)
	}

	switch {
	case g.backend == nil:
		_, _, err = g.medicines.Remove(id)
		return err
	case g.mode == Optimistic:
		removed, index, err := g.medicines.Remove(id)
		if err != nil {
			return err
		}
		if err := g.backend.DeleteMedicine(ctx, id); err != nil {
			g.log.Warn().Err(err).Int64("id", id).Msg("reverting medicine delete")
			if rerr := g.medicines.Restore(removed, index); rerr != nil {
				return errors.Join(err, rerr)
			}
			return fmt.Errorf("deleting medicine %d: %w", id, err)
		}
		return nil
	default:
		if err := g.backend.DeleteMedicine(ctx, id); err != nil {
			return fmt.Errorf("deleting medicine %d: %w", id, err)
		}
		_, _, err = g.medicines.Remove(id)
		return err
	}
}

func (g *Gateway) CreateAlert(ctx context.Context, in domain.AlertInput) (a domain.Alert, err error) {
	defer func() { g.emit("create alert", a.ID, err) }()
	if err := in.Validate(); err != nil {
		return domain.Alert{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	a, err = create(ctx, g, g.alerts, in.Alert(g.now()), func(ctx context.Context) (domain.Alert, error) {
		return g.backend.CreateAlert(ctx, in)
	})
	if err != nil {
		return a, fmt.Errorf("creating alert: %w", err)
	}
	return a, nil
}

// ResolveAlert marks an alert resolved. Resolving an already resolved alert
// fails with ErrInvalidTransition and leaves it untouched.
func (g *Gateway) ResolveAlert(ctx context.Context, id int64) (domain.Alert, error) {
	return g.SetAlertStatus(ctx, id, domain.AlertResolved)
}

func (g *Gateway) SetAlertStatus(ctx context.Context, id int64, status domain.AlertStatus) (a domain.Alert, err error) {
	defer func() { g.emit("mark alert "+string(status), id, err) }()
	g.mu.Lock()
	defer g.mu.Unlock()

	current, err := g.alerts.Get(id)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("updating alert: %w", err)
	}
	now := g.now()
	next, err := current.Transition(status, now)
	if err != nil {
		return current, fmt.Errorf("alert %d %s -> %s: %w", id, current.Status, status, err)
	}
	a, err = replace(ctx, g, g.alerts, current, next, func(ctx context.Context) (domain.Alert, error) {
		return g.backend.SetAlertStatus(ctx, id, status, now)
	})
	if err != nil {
		return a, fmt.Errorf("updating alert %d: %w", id, err)
	}
	g.log.Debug().Int64("id", id).Str("status", string(a.Status)).Msg("alert updated")
	return a, nil
}

func (g *Gateway) CreatePrescription(ctx context.Context, in domain.PrescriptionInput) (p domain.Prescription, err error) {
	defer func() { g.emit("create prescription", p.ID, err) }()
	if err := in.Validate(); err != nil {
		return domain.Prescription{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err = create(ctx, g, g.prescriptions, in.Prescription(g.now()), func(ctx context.Context) (domain.Prescription, error) {
		return g.backend.CreatePrescription(ctx, in)
	})
	if err != nil {
		return p, fmt.Errorf("creating prescription: %w", err)
	}
	return p, nil
}

func (g *Gateway) CompletePrescription(ctx context.Context, id int64) (domain.Prescription, error) {
	return g.setPrescriptionStatus(ctx, id, domain.PrescriptionCompleted)
}

func (g *Gateway) CancelPrescription(ctx context.Context, id int64) (domain.Prescription, error) {
	return g.setPrescriptionStatus(ctx, id, domain.PrescriptionCancelled)
}

func (g *Gateway) setPrescriptionStatus(ctx context.Context, id int64, status domain.PrescriptionStatus) (p domain.Prescription, err error) {
	defer func() { g.emit("mark prescription "+string(status), id, err) }()
	g.mu.Lock()
	defer g.mu.Unlock()

	current, err := g.prescriptions.Get(id)
	if err != nil {
		return domain.Prescription{}, fmt.Errorf("updating prescription: %w", err)
	}
	next, err := current.Transition(status, g.now())
	if err != nil {
		return current, fmt.Errorf("prescription %d %s -> %s: %w", id, current.Status, status, err)
	}
	p, err = replace(ctx, g, g.prescriptions, current, next, func(ctx context.Context) (domain.Prescription, error) {
		return g.backend.SetPrescriptionStatus(ctx, id, status)
	})
	if err != nil {
		return p, fmt.Errorf("updating prescription %d: %w", id, err)
	}
	return p, nil
}

func (g *Gateway) emit(op string, id int64, err error) {
	if g.observer != nil {
		g.observer(Event{Op: op, ID: id, Err: err})
	}
}

// create adds local to store, or the record the backend returns for it.
// Must be called with g.mu held.
func create[T collection.Record[T]](ctx context.Context, g *Gateway, store *collection.Store[T], local T, remote func(context.Context) (T, error)) (T, error) {
	if g.backend == nil {
		return store.Insert(local), nil
	}

	if g.mode == Pessimistic {
		stored, err := remote(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		return stored, upsert(store, stored)
	}

	provisional := store.Insert(local)
	stored, err := remote(ctx)
	_, index, rerr := store.Remove(provisional.GetID())
	if err != nil {
		g.log.Warn().Err(err).Int64("provisional_id", provisional.GetID()).Msg("reverting create")
		var zero T
		if rerr != nil {
			return zero, errors.Join(err, rerr)
		}
		return zero, err
	}
	if rerr != nil || store.Restore(stored, index) != nil {
		return stored, upsert(store, stored)
	}
	return stored, nil
}

// replace swaps current for next, or for the record the backend returns.
// Must be called with g.mu held.
func replace[T collection.Record[T]](ctx context.Context, g *Gateway, store *collection.Store[T], current, next T, remote func(context.Context) (T, error)) (T, error) {
	if g.backend == nil {
		return store.Replace(next)
	}

	if g.mode == Pessimistic {
		stored, err := remote(ctx)
		if err != nil {
			return current, err
		}
		return store.Replace(stored)
	}

	if _, err := store.Replace(next); err != nil {
		return current, err
	}
	stored, err := remote(ctx)
	if err != nil {
		g.log.Warn().Err(err).Int64("id", current.GetID()).Msg("reverting update")
		if _, rerr := store.Replace(current); rerr != nil {
			return current, errors.Join(err, rerr)
		}
		return current, err
	}
	return store.Replace(stored)
}

func upsert[T collection.Record[T]](store *collection.Store[T], record T) error {
	err := store.Append(record)
	if errors.Is(err, domain.ErrDuplicateID) {
		_, err = store.Replace(record)
	}
	return err
}
