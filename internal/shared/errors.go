package shared

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates the resource does not exist, is soft-deleted or belongs to another company.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the resource is in a state that forbids the operation.
	ErrConflict = errors.New("conflict")
	// ErrReferentialIntegrity blocks deleting a resource that still has dependants.
	ErrReferentialIntegrity = errors.New("resource still referenced")
	// ErrInvalidTransition indicates a status change outside the allowed graph.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError names the offending fields of a rejected request.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records another offending field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// OrNil returns nil when no field was recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is reports ErrValidation so callers can match with errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
