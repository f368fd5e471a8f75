package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxstock/m/domain"
	"rxstock/m/internal/collection"
)

var errUnavailable = &domain.TransportError{Op: "POST /medicines", StatusCode: 503, Err: errors.New("service unavailable")}

// fakeBackend assigns ids from nextID and fails every call while err is set.
type fakeBackend struct {
	mu     sync.Mutex
	nextID int64
	err    error
	calls  int
	during func()
}

func (f *fakeBackend) call() error {
	f.mu.Lock()
	f.calls++
	during, err := f.during, f.err
	f.mu.Unlock()
	if during != nil {
		during()
	}
	return err
}

func (f *fakeBackend) id() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return f.nextID
}

func (f *fakeBackend) CreateMedicine(_ context.Context, in domain.MedicineInput) (domain.Medicine, error) {
	if err := f.call(); err != nil {
		return domain.Medicine{}, err
	}
	return in.Medicine().WithID(f.id()), nil
}

func (f *fakeBackend) UpdateMedicine(_ context.Context, id int64, in domain.MedicineInput) (domain.Medicine, error) {
	if err := f.call(); err != nil {
		return domain.Medicine{}, err
	}
	return in.Medicine().WithID(id), nil
}

func (f *fakeBackend) DeleteMedicine(context.Context, int64) error {
	return f.call()
}

func (f *fakeBackend) CreateAlert(_ context.Context, in domain.AlertInput) (domain.Alert, error) {
	if err := f.call(); err != nil {
		return domain.Alert{}, err
	}
	return in.Alert(time.Now()).WithID(f.id()), nil
}

func (f *fakeBackend) SetAlertStatus(_ context.Context, id int64, status domain.AlertStatus, at time.Time) (domain.Alert, error) {
	if err := f.call(); err != nil {
		return domain.Alert{}, err
	}
	return domain.Alert{ID: id, Status: status, ResolvedAt: &at, UpdatedAt: at}, nil
}

func (f *fakeBackend) CreatePrescription(_ context.Context, in domain.PrescriptionInput) (domain.Prescription, error) {
	if err := f.call(); err != nil {
		return domain.Prescription{}, err
	}
	return in.Prescription(time.Now()).WithID(f.id()), nil
}

func (f *fakeBackend) SetPrescriptionStatus(_ context.Context, id int64, status domain.PrescriptionStatus) (domain.Prescription, error) {
	if err := f.call(); err != nil {
		return domain.Prescription{}, err
	}
	return domain.Prescription{ID: id, Status: status}, nil
}

type fixture struct {
	medicines     *collection.Store[domain.Medicine]
	alerts        *collection.Store[domain.Alert]
	prescriptions *collection.Store[domain.Prescription]
	gw            *Gateway
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		medicines:     collection.NewStore[domain.Medicine](),
		alerts:        collection.NewStore[domain.Alert](),
		prescriptions: collection.NewStore[domain.Prescription](),
	}
	f.gw = New(f.medicines, f.alerts, f.prescriptions, opts...)
	return f
}

func medicineInput() domain.MedicineInput {
	qty := int64(150)
	price := decimal.RequireFromString("25.99")
	return domain.MedicineInput{
		Name:         "Amoxicillin 500mg",
		Description:  "Broad-spectrum antibiotic",
		Quantity:     &qty,
		Price:        &price,
		ExpiryDate:   "2024-12-31",
		Manufacturer: "Pfizer",
		Category:     "Antibiotic",
	}
}

func prescriptionInput() domain.PrescriptionInput {
	return domain.PrescriptionInput{
		PatientName:   "John Doe",
		PatientAge:    35,
		PatientGender: domain.GenderMale,
		Diagnosis:     "Acute Pharyngitis",
		Items: []domain.LineItem{
			{Name: "Amoxicillin 500mg", Dosage: "1 tablet", Frequency: "8 hourly", Duration: "7 days"},
		},
	}
}

func always(domain.Medicine) bool { return true }
func never(domain.Medicine) bool  { return false }

func TestCreateMedicineLocal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	m, err := f.gw.CreateMedicine(ctx, medicineInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.ID)
	assert.True(t, f.gw.Local())

	f.medicines.Reset([]domain.Medicine{{ID: 2}, {ID: 5}})
	m, err = f.gw.CreateMedicine(ctx, medicineInput())
	require.NoError(t, err)
	assert.Equal(t, int64(6), m.ID)
	assert.Equal(t, 3, f.medicines.Len())
}

func TestCreateMedicineRejectsInvalidInput(t *testing.T) {
	f := newFixture()
	in := medicineInput()
	in.Name = " "
	in.Quantity = nil

	_, err := f.gw.CreateMedicine(context.Background(), in)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("name"))
	assert.True(t, verr.Has("quantity"))
	assert.Zero(t, f.medicines.Len())
	assert.Zero(t, f.medicines.Version())
}

func TestUpdateMedicine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	created, err := f.gw.CreateMedicine(ctx, medicineInput())
	require.NoError(t, err)

	in := created.Input()
	qty := int64(12)
	in.Quantity = &qty
	updated, err := f.gw.UpdateMedicine(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, int64(12), updated.Quantity)

	_, err = f.gw.UpdateMedicine(ctx, 99, in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteMedicineNeedsConfirmation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	m, err := f.gw.CreateMedicine(ctx, medicineInput())
	require.NoError(t, err)

	assert.ErrorIs(t, f.gw.DeleteMedicine(ctx, m.ID, nil), domain.ErrNotConfirmed)
	assert.ErrorIs(t, f.gw.DeleteMedicine(ctx, m.ID, never), domain.ErrNotConfirmed)
	assert.Equal(t, 1, f.medicines.Len())

	var asked domain.Medicine
	require.NoError(t, f.gw.DeleteMedicine(ctx, m.ID, func(m domain.Medicine) bool {
		asked = m
		return true
	}))
	assert.Equal(t, "Amoxicillin 500mg", asked.Name)
	assert.Zero(t, f.medicines.Len())

	assert.ErrorIs(t, f.gw.DeleteMedicine(ctx, m.ID, always), domain.ErrNotFound)
}

func TestResolveAlertTwice(t *testing.T) {
	now := time.Date(2023, 8, 30, 14, 30, 0, 0, time.UTC)
	f := newFixture(WithClock(func() time.Time { return now }))
	f.alerts.Reset([]domain.Alert{
		{ID: 1, Status: domain.AlertPending},
		{ID: 2, Status: domain.AlertInProgress},
		{ID: 3, Status: domain.AlertPending, Title: "Expiry Alert"},
	})
	ctx := context.Background()

	a, err := f.gw.ResolveAlert(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertResolved, a.Status)
	require.NotNil(t, a.ResolvedAt)
	assert.Equal(t, now, *a.ResolvedAt)

	now = now.Add(time.Hour)
	_, err = f.gw.ResolveAlert(ctx, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := f.alerts.Get(3)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-time.Hour), *stored.ResolvedAt)

	_, err = f.gw.ResolveAlert(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetAlertStatusInProgress(t *testing.T) {
	f := newFixture()
	f.alerts.Reset([]domain.Alert{{ID: 1, Status: domain.AlertPending}})

	a, err := f.gw.SetAlertStatus(context.Background(), 1, domain.AlertInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertInProgress, a.Status)
	assert.Nil(t, a.ResolvedAt)
}

func TestCreateAlertLocal(t *testing.T) {
	f := newFixture()
	a, err := f.gw.CreateAlert(context.Background(), domain.AlertInput{
		Title: "Low Stock Alert", Message: "Ibuprofen is running low", Type: domain.AlertStock, Priority: domain.PriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, domain.AlertPending, a.Status)
}

func TestPrescriptionLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	in := prescriptionInput()
	in.Items = append(in.Items, domain.LineItem{Name: "Paracetamol"})
	_, err := f.gw.CreatePrescription(ctx, in)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("medicines[1]"))

	p, err := f.gw.CreatePrescription(ctx, prescriptionInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, domain.PrescriptionPending, p.Status)

	p, err = f.gw.CompletePrescription(ctx, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, p.CompletedAt)

	_, err = f.gw.CancelPrescription(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPessimisticUsesBackendRecord(t *testing.T) {
	backend := &fakeBackend{nextID: 41}
	f := newFixture(WithBackend(backend, Pessimistic))
	ctx := context.Background()

	backend.during = func() {
		assert.Zero(t, f.medicines.Len(), "nothing is visible before the backend acknowledges")
	}
	m, err := f.gw.CreateMedicine(ctx, medicineInput())
	require.NoError(t, err)
	assert.Equal(t, int64(42), m.ID)
	got, err := f.medicines.Get(42)
	require.NoError(t, err)
	assert.Equal(t, "Amoxicillin 500mg", got.Name)
	backend.during = nil

	backend.err = errUnavailable
	_, err = f.gw.CreateMedicine(ctx, medicineInput())
	var terr *domain.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 503, terr.StatusCode)
	assert.Equal(t, 1, f.medicines.Len())

	assert.Error(t, f.gw.DeleteMedicine(ctx, 42, always))
	assert.Equal(t, 1, f.medicines.Len())

	backend.err = nil
	require.NoError(t, f.gw.DeleteMedicine(ctx, 42, always))
	assert.Zero(t, f.medicines.Len())
}

func TestOptimisticAppliesThenReverts(t *testing.T) {
	backend := &fakeBackend{nextID: 9}
	f := newFixture(WithBackend(backend, Optimistic))
	f.medicines.Reset([]domain.Medicine{{ID: 3, Name: "Ibuprofen 200mg"}})
	ctx := context.Background()

	backend.during = func() {
		assert.Equal(t, 2, f.medicines.Len(), "provisional record is visible during the call")
	}
	m, err := f.gw.CreateMedicine(ctx, medicineInput())
	require.NoError(t, err)
	assert.Equal(t, int64(10), m.ID)
	_, err = f.medicines.Get(4)
	assert.ErrorIs(t, err, domain.ErrNotFound, "provisional id is replaced")

	backend.during = nil
	backend.err = errUnavailable
	_, err = f.gw.CreateMedicine(ctx, medicineInput())
	assert.Error(t, err)
	assert.Equal(t, 2, f.medicines.Len())

	backend.during = func() {
		assert.Equal(t, 1, f.medicines.Len(), "delete is applied before the call")
	}
	err = f.gw.DeleteMedicine(ctx, 3, always)
	assert.Error(t, err)
	all := f.medicines.All()
	require.Len(t, all, 2)
	assert.Equal(t, int64(3), all[0].ID, "reverted delete restores the original position")
}

func TestOptimisticAlertRevert(t *testing.T) {
	backend := &fakeBackend{err: errUnavailable}
	f := newFixture(WithBackend(backend, Optimistic))
	f.alerts.Reset([]domain.Alert{{ID: 1, Status: domain.AlertPending}})

	_, err := f.gw.ResolveAlert(context.Background(), 1)
	require.Error(t, err)

	a, err := f.alerts.Get(1)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertPending, a.Status)
	assert.Nil(t, a.ResolvedAt)
}

func TestMutationsAreSerialized(t *testing.T) {
	f := newFixture()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.gw.CreateMedicine(context.Background(), medicineInput())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, m := range f.medicines.All() {
		seen[m.ID] = true
	}
	assert.Len(t, seen, 20)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("optimistic")
	require.NoError(t, err)
	assert.Equal(t, Optimistic, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Pessimistic, m)
	assert.Equal(t, "pessimistic", m.String())

	_, err = ParseMode("eager")
	assert.Error(t, err)
}

func TestObserverSeesEveryMutation(t *testing.T) {
	var events []Event
	f := newFixture(WithObserver(func(e Event) { events = append(events, e) }))
	ctx := context.Background()

	m, err := f.gw.CreateMedicine(ctx, medicineInput())
	require.NoError(t, err)
	assert.ErrorIs(t, f.gw.DeleteMedicine(ctx, m.ID, never), domain.ErrNotConfirmed)

	require.Len(t, events, 2)
	assert.Equal(t, Event{Op: "create medicine", ID: 1}, events[0])
	assert.Equal(t, "delete medicine", events[1].Op)
	assert.ErrorIs(t, events[1].Err, domain.ErrNotConfirmed)
}
