package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 12, 1, 15, 0, 0, 0, time.UTC)
	medicines := []Medicine{
		{ID: 1, Quantity: 150, ExpiryDate: "2024-12-31"},
		{ID: 2, Quantity: 15, ExpiryDate: "2025-06-30"},
		{ID: 3, Quantity: 0, ExpiryDate: "2024-11-01"},
		{ID: 4, Quantity: 40, ExpiryDate: "not a date"},
	}
	alerts := []Alert{
		{ID: 1, Status: AlertPending},
		{ID: 2, Status: AlertInProgress},
		{ID: 3, Status: AlertResolved},
	}
	prescriptions := []Prescription{
		{ID: 1, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: 2, CreatedAt: now.Add(-24 * time.Hour)},
	}

	d := Summarize(medicines, alerts, prescriptions, now)
	assert.Equal(t, Dashboard{
		TotalMedicines:      4,
		LowStock:            2,
		ExpiringSoon:        2,
		TodaysPrescriptions: 1,
		OpenAlerts:          2,
	}, d)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Dashboard{}, Summarize(nil, nil, nil, time.Now()))
}
