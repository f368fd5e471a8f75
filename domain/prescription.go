package domain

import (
	"fmt"
	"strings"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type PrescriptionStatus string

const (
	PrescriptionPending   PrescriptionStatus = "pending"
	PrescriptionCompleted PrescriptionStatus = "completed"
	PrescriptionCancelled PrescriptionStatus = "cancelled"
)

func (s PrescriptionStatus) Valid() bool {
	switch s {
	case PrescriptionPending, PrescriptionCompleted, PrescriptionCancelled:
		return true
	}
	return false
}

// LineItem is one prescribed medicine. Name is free text, not a reference.
type LineItem struct {
	Name      string `db:"name" json:"name"`
	Dosage    string `db:"dosage" json:"dosage"`
	Frequency string `db:"frequency" json:"frequency"`
	Duration  string `db:"duration" json:"duration"`
}

// Complete reports whether every field of the line item is filled in.
func (li LineItem) Complete() bool {
	return strings.TrimSpace(li.Name) != "" &&
		strings.TrimSpace(li.Dosage) != "" &&
		strings.TrimSpace(li.Frequency) != "" &&
		strings.TrimSpace(li.Duration) != ""
}

type Prescription struct {
	ID            int64              `db:"id" json:"id"`
	PatientName   string             `db:"patient_name" json:"patient_name"`
	PatientAge    int                `db:"patient_age" json:"patient_age"`
	PatientGender Gender             `db:"patient_gender" json:"patient_gender"`
	Diagnosis     string             `db:"diagnosis" json:"diagnosis"`
	Status        PrescriptionStatus `db:"status" json:"status"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time         `db:"completed_at" json:"completed_at,omitempty"`
	Items         []LineItem         `db:"-" json:"medicines"`
}

func (p Prescription) GetID() int64 { return p.ID }

func (p Prescription) WithID(id int64) Prescription {
	p.ID = id
	return p
}

// Transition moves a pending prescription to completed or cancelled.
// Completing stamps CompletedAt.
func (p Prescription) Transition(status PrescriptionStatus, now time.Time) (Prescription, error) {
	if status != PrescriptionCompleted && status != PrescriptionCancelled {
		return p, &ValidationError{Fields: []FieldError{{Field: "status", Reason: "must be completed or cancelled"}}}
	}
	if p.Status != PrescriptionPending {
		return p, ErrInvalidTransition
	}
	p.Status = status
	if status == PrescriptionCompleted {
		at := now
		p.CompletedAt = &at
	}
	return p, nil
}

func (p Prescription) SearchFields() []string {
	return []string{p.PatientName, p.Diagnosis}
}

func (p Prescription) FilterValue(dimension string) (string, bool) {
	switch dimension {
	case "status":
		return string(p.Status), true
	case "gender":
		return string(p.PatientGender), true
	}
	return "", false
}

// PrescriptionInput is the create payload and doubles as the editable draft
// behind a prescription form.
type PrescriptionInput struct {
	PatientName   string     `json:"patient_name"`
	PatientAge    int        `json:"patient_age"`
	PatientGender Gender     `json:"patient_gender"`
	Diagnosis     string     `json:"diagnosis"`
	Items         []LineItem `json:"medicines"`
}

// NewPrescriptionInput returns a draft with one blank line item, the shape a
// new prescription form starts from.
func NewPrescriptionInput() PrescriptionInput {
	return PrescriptionInput{PatientGender: GenderMale, Items: []LineItem{{}}}
}

// AddItem appends a line item to the draft.
func (in *PrescriptionInput) AddItem(item LineItem) {
	in.Items = append(in.Items, item)
}

// RemoveItem drops the line item at index. The last remaining item cannot be
// removed.
func (in *PrescriptionInput) RemoveItem(index int) error {
	if index < 0 || index >= len(in.Items) {
		return fmt.Errorf("line item %d: %w", index, ErrNotFound)
	}
	if len(in.Items) == 1 {
		return ErrLastLineItem
	}
	in.Items = append(in.Items[:index:index], in.Items[index+1:]...)
	return nil
}

func (in PrescriptionInput) Validate() error {
	var v validation
	if strings.TrimSpace(in.PatientName) == "" {
		v.missing("patient_name")
	}
	if strings.TrimSpace(in.Diagnosis) == "" {
		v.missing("diagnosis")
	}
	switch {
	case in.PatientAge == 0:
		v.missing("patient_age")
	case in.PatientAge < 0:
		v.invalid("patient_age", "must be positive")
	}
	switch {
	case in.PatientGender == "":
		v.missing("patient_gender")
	case !in.PatientGender.Valid():
		v.invalid("patient_gender", "must be male, female or other")
	}
	if len(in.Items) == 0 {
		v.missing("medicines")
	}
	for i, item := range in.Items {
		if !item.Complete() {
			v.invalid(fmt.Sprintf("medicines[%d]", i), "needs name, dosage, frequency and duration")
		}
	}
	return v.err()
}

// Prescription builds a pending prescription created at now.
func (in PrescriptionInput) Prescription(now time.Time) Prescription {
	items := make([]LineItem, len(in.Items))
	for i, item := range in.Items {
		items[i] = LineItem{
			Name:      strings.TrimSpace(item.Name),
			Dosage:    strings.TrimSpace(item.Dosage),
			Frequency: strings.TrimSpace(item.Frequency),
			Duration:  strings.TrimSpace(item.Duration),
		}
	}
	return Prescription{
		PatientName:   strings.TrimSpace(in.PatientName),
		PatientAge:    in.PatientAge,
		PatientGender: in.PatientGender,
		Diagnosis:     strings.TrimSpace(in.Diagnosis),
		Status:        PrescriptionPending,
		CreatedAt:     now,
		Items:         items,
	}
}
