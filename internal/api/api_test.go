package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rxstock/m/domain"
	"rxstock/m/internal/database"
	"rxstock/m/internal/store"
)

var fixedNow = time.Date(2024, 12, 1, 9, 0, 0, 0, time.UTC)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	repo := store.New(database.NewTestDB(t))
	h := New(repo, nil, zerolog.Nop(), WithClock(func() time.Time { return fixedNow }))
	return h.Router()
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func medicineBody(name string, qty int, category string) map[string]any {
	return map[string]any{
		"name":         name,
		"description":  name + " tablets",
		"quantity":     qty,
		"price":        "12.50",
		"expiry_date":  "2099-12-31",
		"manufacturer": "Pfizer",
		"category":     category,
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, newRouter(t), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMedicineLifecycle(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/medicines", medicineBody("Amoxicillin 500mg", 150, "Antibiotic"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Medicine](t, rec)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "12.5", created.Price.String())

	update := medicineBody("Amoxicillin 500mg", 90, "Antibiotic")
	rec = do(t, router, http.MethodPut, "/medicines/1", update)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(90), decode[domain.Medicine](t, rec).Quantity)

	rec = do(t, router, http.MethodGet, "/medicines/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(90), decode[domain.Medicine](t, rec).Quantity)

	rec = do(t, router, http.MethodDelete, "/medicines/1", nil)
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)

	rec = do(t, router, http.MethodDelete, "/medicines/1?confirm=true", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodGet, "/medicines/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, router, http.MethodDelete, "/medicines/1?confirm=true", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateMedicineRejectsBadInput(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/medicines", map[string]any{"name": "Aspirin", "quantity": -1})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Equal(t, "validation failed", body.Error)
	fields := map[string]bool{}
	for _, f := range body.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["quantity"])
	assert.True(t, fields["manufacturer"])
	assert.True(t, fields["expiry_date"])

	precise := medicineBody("Aspirin", 10, "")
	precise["price"] = "1.234"
	rec = do(t, router, http.MethodPost, "/medicines", precise)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "at most two decimal places")

	rec = do(t, router, http.MethodPost, "/medicines", `{"name": "Aspirin", "colour": "white"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPut, "/medicines/abc", medicineBody("Aspirin", 10, ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMedicinesSearchFilterSort(t *testing.T) {
	router := newRouter(t)
	for _, body := range []map[string]any{
		medicineBody("Amoxicillin 500mg", 150, "Antibiotic"),
		medicineBody("Ibuprofen 200mg", 320, "Pain Relief"),
		medicineBody("Azithromycin 250mg", 18, "Antibiotic"),
	} {
		require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/medicines", body).Code)
	}

	got := decode[[]domain.Medicine](t, do(t, router, http.MethodGet, "/medicines?search=AMOX", nil))
	require.Len(t, got, 1)
	assert.Equal(t, "Amoxicillin 500mg", got[0].Name)

	got = decode[[]domain.Medicine](t, do(t, router, http.MethodGet, "/medicines?category=Antibiotic&sort=-quantity", nil))
	require.Len(t, got, 2)
	assert.Equal(t, []int64{1, 3}, []int64{got[0].ID, got[1].ID})

	got = decode[[]domain.Medicine](t, do(t, router, http.MethodGet, "/medicines?stock=low", nil))
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)

	got = decode[[]domain.Medicine](t, do(t, router, http.MethodGet, "/medicines?category=all&sort=name", nil))
	assert.Equal(t, "Amoxicillin 500mg", got[0].Name)
	assert.Equal(t, "Ibuprofen 200mg", got[2].Name)
}

func TestLowStockRaisesAlertOnce(t *testing.T) {
	router := newRouter(t)

	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/medicines", medicineBody("Ibuprofen 200mg", 15, "Pain Relief")).Code)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPut, "/medicines/1", medicineBody("Ibuprofen 200mg", 10, "Pain Relief")).Code)

	alerts := decode[[]domain.Alert](t, do(t, router, http.MethodGet, "/alerts?type=stock", nil))
	require.Len(t, alerts, 1)
	assert.Equal(t, "Low Stock: Ibuprofen 200mg", alerts[0].Title)
	assert.Equal(t, domain.PriorityHigh, alerts[0].Priority)

	require.Equal(t, http.StatusOK, do(t, router, http.MethodPut, "/medicines/1", medicineBody("Ibuprofen 200mg", 200, "Pain Relief")).Code)
	restock := decode[[]domain.Alert](t, do(t, router, http.MethodGet, "/alerts?type=restock", nil))
	require.Len(t, restock, 1)
	assert.Equal(t, domain.AlertResolved, restock[0].Status)
}

func TestAlertStatusTransitions(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/alerts", domain.AlertInput{
		Title: "Expiry Alert", Message: "Amoxicillin expires soon", Type: domain.AlertExpiry, ItemID: 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Alert](t, rec)
	assert.Equal(t, domain.AlertPending, created.Status)
	assert.Equal(t, domain.PriorityMedium, created.Priority)
	assert.True(t, created.CreatedAt.Equal(fixedNow))

	rec = do(t, router, http.MethodPatch, "/alerts/1", map[string]any{"status": "in_progress"})
	require.Equal(t, http.StatusOK, rec.Code)

	resolvedAt := fixedNow.Add(2 * time.Hour)
	rec = do(t, router, http.MethodPatch, "/alerts/1", map[string]any{"status": "resolved", "resolved_at": resolvedAt})
	require.Equal(t, http.StatusOK, rec.Code)
	resolved := decode[domain.Alert](t, rec)
	require.NotNil(t, resolved.ResolvedAt)
	assert.True(t, resolved.ResolvedAt.Equal(resolvedAt))

	rec = do(t, router, http.MethodPatch, "/alerts/1", map[string]any{"status": "resolved"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPatch, "/alerts/1", map[string]any{"status": "snoozed"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, http.MethodPatch, "/alerts/42", map[string]any{"status": "resolved"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/alerts", domain.AlertInput{Title: "Broken", Type: "weather"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPrescriptionLifecycle(t *testing.T) {
	router := newRouter(t)
	in := domain.PrescriptionInput{
		PatientName: "John Doe", PatientAge: 35, PatientGender: domain.GenderMale, Diagnosis: "Acute Pharyngitis",
		Items: []domain.LineItem{
			{Name: "Amoxicillin 500mg", Dosage: "1 tablet", Frequency: "8 hourly", Duration: "7 days"},
			{Name: "Paracetamol 500mg", Dosage: "2 tablets", Frequency: "as needed", Duration: "3 days"},
		},
	}

	rec := do(t, router, http.MethodPost, "/prescriptions", in)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"medicines":[`)
	p := decode[domain.Prescription](t, rec)
	assert.Equal(t, domain.PrescriptionPending, p.Status)
	require.Len(t, p.Items, 2)

	rec = do(t, router, http.MethodPatch, "/prescriptions/1", map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode[domain.Prescription](t, rec)
	require.NotNil(t, done.CompletedAt)

	rec = do(t, router, http.MethodPatch, "/prescriptions/1", map[string]any{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	got := decode[[]domain.Prescription](t, do(t, router, http.MethodGet, "/prescriptions?status=completed&search=pharyn", nil))
	require.Len(t, got, 1)
	assert.Len(t, got[0].Items, 2)

	in.Items = nil
	rec = do(t, router, http.MethodPost, "/prescriptions", in)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDashboard(t *testing.T) {
	router := newRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/medicines", medicineBody("Amoxicillin 500mg", 150, "Antibiotic")).Code)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/medicines", medicineBody("Ibuprofen 200mg", 15, "Pain Relief")).Code)

	d := decode[domain.Dashboard](t, do(t, router, http.MethodGet, "/dashboard", nil))
	assert.Equal(t, 2, d.TotalMedicines)
	assert.Equal(t, 1, d.LowStock)
	assert.Equal(t, 0, d.ExpiringSoon)
	assert.Equal(t, 1, d.OpenAlerts)
}

func TestRequestIDIsEchoed(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodGet, "/health", nil)
	assert.Len(t, rec.Header().Get("X-Request-Id"), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestAutoAlertsUseHandlerClock(t *testing.T) {
	router := newRouter(t)

	body := medicineBody("Amoxicillin 500mg", 150, "Antibiotic")
	body["expiry_date"] = "2024-12-20"
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/medicines", body).Code)

	alerts := decode[[]domain.Alert](t, do(t, router, http.MethodGet, "/alerts?type=expiry", nil))
	require.Len(t, alerts, 1)
	assert.Equal(t, "Expiry Warning: Amoxicillin 500mg", alerts[0].Title)
	assert.Contains(t, alerts[0].Message, "(19 days)")
	assert.True(t, alerts[0].CreatedAt.Equal(fixedNow))
}
