package domain

import (
	"errors"
	"fmt"
)

// ErrNoRunStart is returned when a run document arrives before its start document.
var ErrNoRunStart = errors.New("no run start received")

// ErrNoPrimaryDescriptor is returned when an event arrives before any non-baseline descriptor.
var ErrNoPrimaryDescriptor = errors.New("no primary descriptor received")

// ErrMultipleStreams is returned when a run carries more than one non-baseline event stream.
// The spec format has room for a single table per scan.
var ErrMultipleStreams = errors.New("more than one event stream is not supported")

// ErrMultipleMotors is returned for motor scans that move more than one motor.
var ErrMultipleMotors = errors.New("more than one scanning motor is not supported")

// ErrUnknownDocument is returned for document names outside the event model.
var ErrUnknownDocument = errors.New("unknown document name")

// ErrMissingField is returned when a document lacks a key the format needs.
var ErrMissingField = errors.New("missing field")

// ErrClosed is returned when opening a stream on a manager that was already closed.
var ErrClosed = errors.New("manager is closed")

// ErrInvalidName is returned when an artifact name is empty or escapes its namespace.
var ErrInvalidName = errors.New("invalid artifact name")

// FieldError reports which key of which document was missing or malformed.
type FieldError struct {
	Doc   DocumentName
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Err == nil || errors.Is(e.Err, ErrMissingField) {
		return fmt.Sprintf("%s document: missing field %q", e.Doc, e.Field)
	}
	return fmt.Sprintf("%s document: field %q: %v", e.Doc, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	if e.Err == nil {
		return ErrMissingField
	}
	return e.Err
}

// MissingField builds a FieldError wrapping ErrMissingField.
func MissingField(doc DocumentName, field string) error {
	return &FieldError{Doc: doc, Field: field, Err: ErrMissingField}
}
