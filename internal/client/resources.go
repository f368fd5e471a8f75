package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"rxstock/m/domain"
	"rxstock/m/internal/alerting"
)

func (c *Client) ListMedicines(ctx context.Context) ([]domain.Medicine, error) {
	var out []domain.Medicine
	if err := c.do(ctx, "listing medicines", http.MethodGet, "/medicines", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateMedicine(ctx context.Context, in domain.MedicineInput) (domain.Medicine, error) {
	var out domain.Medicine
	err := c.do(ctx, "creating medicine", http.MethodPost, "/medicines", in, &out)
	return out, err
}

func (c *Client) UpdateMedicine(ctx context.Context, id int64, in domain.MedicineInput) (domain.Medicine, error) {
	var out domain.Medicine
	err := c.do(ctx, fmt.Sprintf("updating medicine %d", id), http.MethodPut, fmt.Sprintf("/medicines/%d", id), in, &out)
	return out, err
}

// DeleteMedicine removes a medicine the user has already confirmed.
func (c *Client) DeleteMedicine(ctx context.Context, id int64) error {
	return c.do(ctx, fmt.Sprintf("deleting medicine %d", id), http.MethodDelete, fmt.Sprintf("/medicines/%d?confirm=true", id), nil, nil)
}

func (c *Client) ListAlerts(ctx context.Context) ([]domain.Alert, error) {
	var out []domain.Alert
	if err := c.do(ctx, "listing alerts", http.MethodGet, "/alerts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateAlert(ctx context.Context, in domain.AlertInput) (domain.Alert, error) {
	var out domain.Alert
	err := c.do(ctx, "creating alert", http.MethodPost, "/alerts", in, &out)
	return out, err
}

// SetAlertStatus moves an alert to status. at is sent as the resolution
// time when resolving.
func (c *Client) SetAlertStatus(ctx context.Context, id int64, status domain.AlertStatus, at time.Time) (domain.Alert, error) {
	body := struct {
		Status     domain.AlertStatus `json:"status"`
		ResolvedAt *time.Time         `json:"resolved_at,omitempty"`
	}{Status: status}
	if status == domain.AlertResolved && !at.IsZero() {
		body.ResolvedAt = &at
	}
	var out domain.Alert
	err := c.do(ctx, fmt.Sprintf("updating alert %d", id), http.MethodPatch, fmt.Sprintf("/alerts/%d", id), body, &out)
	return out, err
}

// Digest fetches the unresolved alerts of the last day.
func (c *Client) Digest(ctx context.Context) (alerting.Digest, error) {
	var out alerting.Digest
	err := c.do(ctx, "fetching alert digest", http.MethodGet, "/alerts/digest", nil, &out)
	return out, err
}

func (c *Client) ListPrescriptions(ctx context.Context) ([]domain.Prescription, error) {
	var out []domain.Prescription
	if err := c.do(ctx, "listing prescriptions", http.MethodGet, "/prescriptions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePrescription(ctx context.Context, in domain.PrescriptionInput) (domain.Prescription, error) {
	var out domain.Prescription
	err := c.do(ctx, "creating prescription", http.MethodPost, "/prescriptions", in, &out)
	return out, err
}

func (c *Client) SetPrescriptionStatus(ctx context.Context, id int64, status domain.PrescriptionStatus) (domain.Prescription, error) {
	body := map[string]domain.PrescriptionStatus{"status": status}
	var out domain.Prescription
	err := c.do(ctx, fmt.Sprintf("updating prescription %d", id), http.MethodPatch, fmt.Sprintf("/prescriptions/%d", id), body, &out)
	return out, err
}

// Dashboard fetches the server-side counters.
func (c *Client) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	var out domain.Dashboard
	err := c.do(ctx, "fetching dashboard", http.MethodGet, "/dashboard", nil, &out)
	return out, err
}
