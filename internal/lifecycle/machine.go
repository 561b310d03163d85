// Package lifecycle validates document status changes against a fixed transition table.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/festa-erp/festa/internal/shared"
)

// TransitionError describes a rejected status change. It matches shared.ErrInvalidTransition
// and, when the document is already in a terminal state, shared.ErrConflict.
type TransitionError struct {
	From     string
	To       string
	Terminal bool
}

func (e *TransitionError) Error() string {
	if e.Terminal {
		return fmt.Sprintf("status %s is final, cannot move to %s", e.From, e.To)
	}
	return fmt.Sprintf("cannot move from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	if target == shared.ErrInvalidTransition {
		return true
	}
	return e.Terminal && target == shared.ErrConflict
}

// Machine holds the allowed edges for one document type.
type Machine[S ~string] struct {
	name    string
	initial S
	edges   map[S][]S
}

// New builds a machine. States without outgoing edges are terminal; every state must
// appear as a key of edges.
func New[S ~string](name string, initial S, edges map[S][]S) *Machine[S] {
	if _, ok := edges[initial]; !ok {
		panic("lifecycle: initial state missing from table")
	}
	return &Machine[S]{name: name, initial: initial, edges: edges}
}

// Initial returns the status new documents start in.
func (m *Machine[S]) Initial() S { return m.initial }

// Known reports whether s is a status of this machine.
func (m *Machine[S]) Known(s S) bool {
	_, ok := m.edges[s]
	return ok
}

// Terminal reports whether s has no outgoing transitions.
func (m *Machine[S]) Terminal(s S) bool {
	return m.Known(s) && len(m.edges[s]) == 0
}

// Allowed lists the statuses reachable from current in one step.
func (m *Machine[S]) Allowed(current S) []S {
	return append([]S(nil), m.edges[current]...)
}

// Parse converts raw input into a known status.
func (m *Machine[S]) Parse(raw string) (S, error) {
	s := S(raw)
	if !m.Known(s) {
		return "", shared.NewValidationError("status", fmt.Sprintf("unknown %s status %q", m.name, raw))
	}
	return s, nil
}

// Transition validates moving from current to requested and returns the new status.
// Requesting the current status of a non-terminal document is accepted as a no-op.
func (m *Machine[S]) Transition(current, requested S) (S, error) {
	if !m.Known(requested) {
		return current, shared.NewValidationError("status", fmt.Sprintf("unknown %s status %q", m.name, requested))
	}
	if !m.Known(current) {
		return current, fmt.Errorf("%s has unknown status %q: %w", m.name, current, shared.ErrInvalidTransition)
	}
	if m.Terminal(current) {
		return current, &TransitionError{From: string(current), To: string(requested), Terminal: true}
	}
	if current == requested {
		return current, nil
	}
	for _, next := range m.edges[current] {
		if next == requested {
			return requested, nil
		}
	}
	return current, &TransitionError{From: string(current), To: string(requested)}
}

// IsTransitionError reports whether err came from a rejected transition.
func IsTransitionError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}
