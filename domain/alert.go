package domain

import (
	"strings"
	"time"
)

type AlertType string

const (
	AlertStock   AlertType = "stock"
	AlertExpiry  AlertType = "expiry"
	AlertRestock AlertType = "restock"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type AlertStatus string

const (
	AlertPending    AlertStatus = "pending"
	AlertInProgress AlertStatus = "in_progress"
	AlertResolved   AlertStatus = "resolved"
)

func (t AlertType) Valid() bool {
	switch t {
	case AlertStock, AlertExpiry, AlertRestock:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func (s AlertStatus) Valid() bool {
	switch s {
	case AlertPending, AlertInProgress, AlertResolved:
		return true
	}
	return false
}

// Alert is a stock, expiry or restock notice about one medicine.
type Alert struct {
	ID         int64       `db:"id" json:"id"`
	Title      string      `db:"title" json:"title"`
	Message    string      `db:"message" json:"message"`
	Type       AlertType   `db:"type" json:"type"`
	Priority   Priority    `db:"priority" json:"priority"`
	Status     AlertStatus `db:"status" json:"status"`
	ItemID     int64       `db:"item_id" json:"item_id"`
	ItemName   string      `db:"item_name" json:"item_name"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
	ResolvedAt *time.Time  `db:"resolved_at" json:"resolved_at,omitempty"`
}

func (a Alert) GetID() int64 { return a.ID }

func (a Alert) WithID(id int64) Alert {
	a.ID = id
	return a
}

// Actionable reports whether the alert still accepts status changes.
func (a Alert) Actionable() bool {
	return a.Status != AlertResolved
}

// Transition moves the alert to status at now. Resolved alerts are terminal;
// resolving stamps ResolvedAt.
func (a Alert) Transition(status AlertStatus, now time.Time) (Alert, error) {
	if !status.Valid() {
		return a, &ValidationError{Fields: []FieldError{{Field: "status", Reason: "must be pending, in_progress or resolved"}}}
	}
	if !a.Actionable() || status == a.Status {
		return a, ErrInvalidTransition
	}
	a.Status = status
	a.UpdatedAt = now
	if status == AlertResolved {
		at := now
		a.ResolvedAt = &at
	}
	return a, nil
}

func (a Alert) SearchFields() []string {
	return []string{a.Title, a.Message}
}

func (a Alert) FilterValue(dimension string) (string, bool) {
	switch dimension {
	case "status":
		return string(a.Status), true
	case "type":
		return string(a.Type), true
	case "priority":
		return string(a.Priority), true
	}
	return "", false
}

// PriorityRank orders priorities from most to least urgent.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// AlertInput is the payload for raising an alert by hand.
type AlertInput struct {
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Type     AlertType `json:"type"`
	Priority Priority  `json:"priority"`
	ItemID   int64     `json:"item_id"`
	ItemName string    `json:"item_name"`
}

func (in AlertInput) Validate() error {
	var v validation
	if strings.TrimSpace(in.Title) == "" {
		v.missing("title")
	}
	if strings.TrimSpace(in.Message) == "" {
		v.missing("message")
	}
	if !in.Type.Valid() {
		v.invalid("type", "must be stock, expiry or restock")
	}
	if in.Priority != "" && !in.Priority.Valid() {
		v.invalid("priority", "must be high, medium or low")
	}
	return v.err()
}

// Alert builds a pending alert created at now.
func (in AlertInput) Alert(now time.Time) Alert {
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	return Alert{
		Title:     strings.TrimSpace(in.Title),
		Message:   strings.TrimSpace(in.Message),
		Type:      in.Type,
		Priority:  priority,
		Status:    AlertPending,
		ItemID:    in.ItemID,
		ItemName:  strings.TrimSpace(in.ItemName),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
