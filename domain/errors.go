package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateID       = errors.New("duplicate record id")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotConfirmed      = errors.New("deletion not confirmed")
	ErrLastLineItem      = errors.New("prescription must keep at least one line item")
)

// FieldError names one missing or malformed input field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is returned when a create or update payload is rejected
// before anything is written.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Reason
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Has reports whether field was rejected.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// validation accumulates field errors.
type validation struct {
	fields []FieldError
}

func (v *validation) missing(field string) {
	v.fields = append(v.fields, FieldError{Field: field, Reason: "is required"})
}

func (v *validation) invalid(field, reason string) {
	v.fields = append(v.fields, FieldError{Field: field, Reason: reason})
}

func (v *validation) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

// TransportError wraps a failure talking to the REST collaborator.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
