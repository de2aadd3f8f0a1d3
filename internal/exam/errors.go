package exam

import (
	"errors"
	"strings"
)

var (
	// ErrUnauthorized is returned when the actor lacks the capability an
	// operation requires.
	ErrUnauthorized = errors.New("not authorized")
	// ErrNotFound is returned when the referenced test or attempt does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTestEnded is returned for operations against a test that is no longer active.
	ErrTestEnded = errors.New("test has been ended by the administrator")
	// ErrAlreadyCompleted is returned when a (test, student) pair already has
	// a completed attempt.
	ErrAlreadyCompleted = errors.New("test already submitted")
)

// FieldError describes a problem with a single field of a test definition.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError reports a malformed test or question definition.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid test definition"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return "invalid test definition: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Error: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
