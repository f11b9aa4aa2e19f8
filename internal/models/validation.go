package models

import (
	"errors"
	"strings"

	"github.com/desertthunder/musiq/internal/shared"
)

// FieldError is a local validation failure attached to one form field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets callers match any field error with errors.Is(err, shared.ErrInvalidInput).
func (e *FieldError) Unwrap() error { return shared.ErrInvalidInput }

// FieldErrors collects every failing field of a form in declaration order.
type FieldErrors []*FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, len(fe))
	for i, e := range fe {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (fe FieldErrors) Unwrap() []error {
	errs := make([]error, len(fe))
	for i, e := range fe {
		errs[i] = e
	}
	return errs
}

// For returns the message for field, or "" when the field passed.
func (fe FieldErrors) For(field string) string {
	for _, e := range fe {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

// err returns nil for an empty set so callers can `return errs.err()`.
func (fe FieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// FieldMessage extracts the message for field from err when err carries field errors.
func FieldMessage(err error, field string) string {
	var fes FieldErrors
	if errors.As(err, &fes) {
		return fes.For(field)
	}
	var fe *FieldError
	if errors.As(err, &fe) && fe.Field == field {
		return fe.Message
	}
	return ""
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
