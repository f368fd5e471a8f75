package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrescriptionDraftKeepsLastItem(t *testing.T) {
	draft := NewPrescriptionInput()
	require.Len(t, draft.Items, 1)

	assert.ErrorIs(t, draft.RemoveItem(0), ErrLastLineItem)
	assert.Len(t, draft.Items, 1)

	draft.AddItem(LineItem{Name: "Ibuprofen 200mg"})
	draft.AddItem(LineItem{Name: "Sumatriptan 50mg"})
	require.NoError(t, draft.RemoveItem(1))
	require.Len(t, draft.Items, 2)
	assert.Equal(t, "Sumatriptan 50mg", draft.Items[1].Name)

	assert.ErrorIs(t, draft.RemoveItem(5), ErrNotFound)
}

func TestPrescriptionInputValidate(t *testing.T) {
	err := PrescriptionInput{Items: []LineItem{{Name: "Amoxicillin 500mg", Dosage: "1"}}}.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	for _, field := range []string{"patient_name", "diagnosis", "patient_age", "patient_gender", "medicines[0]"} {
		assert.True(t, verr.Has(field), "expected %s to be reported", field)
	}

	err = PrescriptionInput{PatientName: "John Doe", Diagnosis: "Acute Pharyngitis", PatientAge: -3, PatientGender: "unknown"}.Validate()
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("patient_age"))
	assert.True(t, verr.Has("patient_gender"))
	assert.True(t, verr.Has("medicines"))

	valid := PrescriptionInput{
		PatientName:   "John Doe",
		PatientAge:    35,
		PatientGender: GenderMale,
		Diagnosis:     "Acute Pharyngitis",
		Items: []LineItem{
			{Name: "Amoxicillin 500mg", Dosage: "1", Frequency: "8 hourly", Duration: "7 days"},
		},
	}
	require.NoError(t, valid.Validate())

	now := time.Date(2023, 8, 30, 14, 30, 0, 0, time.UTC)
	p := valid.Prescription(now)
	assert.Equal(t, PrescriptionPending, p.Status)
	assert.Equal(t, now, p.CreatedAt)
	assert.Nil(t, p.CompletedAt)
	assert.Len(t, p.Items, 1)
}

func TestPrescriptionTransition(t *testing.T) {
	now := time.Now()
	p := Prescription{ID: 1, Status: PrescriptionPending}

	done, err := p.Transition(PrescriptionCompleted, now)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, PrescriptionCompleted, done.Status)

	_, err = done.Transition(PrescriptionCancelled, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	cancelled, err := p.Transition(PrescriptionCancelled, now)
	require.NoError(t, err)
	assert.Nil(t, cancelled.CompletedAt)

	_, err = p.Transition(PrescriptionPending, now)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}
