// Package session owns the per-user record stores, their query views and
// the mutation gateway for the lifetime of one working session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"rxstock/m/domain"
	"rxstock/m/internal/collection"
	"rxstock/m/internal/gateway"
)

// Source loads the initial collections of a session.
type Source interface {
	ListMedicines(ctx context.Context) ([]domain.Medicine, error)
	ListAlerts(ctx context.Context) ([]domain.Alert, error)
	ListPrescriptions(ctx context.Context) ([]domain.Prescription, error)
}

type Options struct {
	// Backend makes mutations durable. Nil keeps the session local.
	Backend gateway.Backend
	// Source seeds the stores on Open and Refresh.
	Source    Source
	Mode      gateway.Mode
	Logger    *zerolog.Logger
	Clock     func() time.Time
	NoticeTTL time.Duration
}

type Session struct {
	ID uuid.UUID

	Medicines     *collection.Store[domain.Medicine]
	Alerts        *collection.Store[domain.Alert]
	Prescriptions *collection.Store[domain.Prescription]

	MedicineView     *collection.View[domain.Medicine]
	AlertView        *collection.View[domain.Alert]
	PrescriptionView *collection.View[domain.Prescription]

	Gateway *gateway.Gateway
	Notices *Notices

	source Source
	now    func() time.Time
	log    zerolog.Logger

	closeOnce sync.Once
}

// New returns a session with empty stores.
func New(opts Options) *Session {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	s := &Session{
		ID:            uuid.New(),
		Medicines:     collection.NewStore[domain.Medicine](),
		Alerts:        collection.NewStore[domain.Alert](),
		Prescriptions: collection.NewStore[domain.Prescription](),
		Notices:       NewNotices(opts.NoticeTTL),
		source:        opts.Source,
		now:           now,
	}
	base := zerolog.Nop()
	if opts.Logger != nil {
		base = *opts.Logger
	}
	s.log = base.With().Str("session", s.ID.String()).Logger()

	s.MedicineView = collection.NewView(s.Medicines, domain.MedicineSorters())
	s.AlertView = collection.NewView(s.Alerts, domain.AlertSorters())
	s.PrescriptionView = collection.NewView(s.Prescriptions, domain.PrescriptionSorters())

	gwOpts := []gateway.Option{
		gateway.WithClock(now),
		gateway.WithLogger(s.log),
		gateway.WithObserver(s.observe),
	}
	if opts.Backend != nil {
		gwOpts = append(gwOpts, gateway.WithBackend(opts.Backend, opts.Mode))
	}
	s.Gateway = gateway.New(s.Medicines, s.Alerts, s.Prescriptions, gwOpts...)
	return s
}

// Open returns a session seeded from opts.Source.
func Open(ctx context.Context, opts Options) (*Session, error) {
	s := New(opts)
	if err := s.Refresh(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Refresh reloads all three stores from the source. Stores are left
// untouched when any list fails.
func (s *Session) Refresh(ctx context.Context) error {
	if s.source == nil {
		return nil
	}
	var (
		medicines     []domain.Medicine
		alerts        []domain.Alert
		prescriptions []domain.Prescription
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		medicines, err = s.source.ListMedicines(ctx)
		return err
	})
	g.Go(func() (err error) {
		alerts, err = s.source.ListAlerts(ctx)
		return err
	})
	g.Go(func() (err error) {
		prescriptions, err = s.source.ListPrescriptions(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	s.Medicines.Reset(medicines)
	s.Alerts.Reset(alerts)
	s.Prescriptions.Reset(prescriptions)
	s.log.Debug().
		Int("medicines", len(medicines)).
		Int("alerts", len(alerts)).
		Int("prescriptions", len(prescriptions)).
		Msg("session loaded")
	return nil
}

// Dashboard summarizes the current store contents.
func (s *Session) Dashboard() domain.Dashboard {
	return domain.Summarize(s.Medicines.All(), s.Alerts.All(), s.Prescriptions.All(), s.now())
}

// Close stops pending notice timers and detaches the views.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.Notices.Close()
		s.MedicineView.Close()
		s.AlertView.Close()
		s.PrescriptionView.Close()
	})
}

func (s *Session) observe(e gateway.Event) {
	if e.Err == nil {
		s.Notices.Post(LevelSuccess, fmt.Sprintf("%s #%d done", e.Op, e.ID))
		return
	}
	var verr *domain.ValidationError
	switch {
	case errors.As(e.Err, &verr):
		s.log.Debug().Err(e.Err).Str("op", e.Op).Msg("mutation rejected")
	case errors.Is(e.Err, domain.ErrNotConfirmed):
		return
	default:
		s.log.Error().Err(e.Err).Str("op", e.Op).Int64("id", e.ID).Msg("mutation failed")
	}
	s.Notices.Post(LevelError, fmt.Sprintf("%s failed: %v", e.Op, e.Err))
}
