package models

import (
	"slices"

	"ms-venues/internal/apperr"
)

// Lifecycle is an explicit transition table for a status enumeration.
// Statuses without outgoing edges are terminal.
type Lifecycle[S ~string] struct {
	entity string
	order  []S
	next   map[S][]S
	labels map[S]string
}

type state[S ~string] struct {
	status S
	label  string
	next   []S
}

func newLifecycle[S ~string](entity string, states ...state[S]) Lifecycle[S] {
	l := Lifecycle[S]{
		entity: entity,
		next:   make(map[S][]S, len(states)),
		labels: make(map[S]string, len(states)),
	}
	for _, st := range states {
		l.order = append(l.order, st.status)
		l.next[st.status] = st.next
		l.labels[st.status] = st.label
	}
	return l
}

func (l Lifecycle[S]) Statuses() []S { return slices.Clone(l.order) }

func (l Lifecycle[S]) Known(s S) bool {
	_, ok := l.labels[s]
	return ok
}

// AllowedNext lists the statuses reachable from s in one step.
func (l Lifecycle[S]) AllowedNext(from S) []S {
	return append([]S{}, l.next[from]...)
}

func (l Lifecycle[S]) CanTransition(from, to S) bool {
	return slices.Contains(l.next[from], to)
}

func (l Lifecycle[S]) IsTerminal(s S) bool {
	return l.Known(s) && len(l.next[s]) == 0
}

// Label is the display name used in admin listings and exports.
func (l Lifecycle[S]) Label(s S) string {
	if label, ok := l.labels[s]; ok {
		return label
	}
	return string(s)
}

// Check validates a requested transition.
func (l Lifecycle[S]) Check(from, to S) error {
	if !l.Known(to) {
		return apperr.Validation("status", "unknown %s status %q", l.entity, to)
	}
	if !l.CanTransition(from, to) {
		return apperr.Validation("status", "%s cannot move from %q to %q", l.entity, from, to)
	}
	return nil
}

// CheckInitial validates a status supplied on creation.
func (l Lifecycle[S]) CheckInitial(s S, allowed ...S) error {
	if !l.Known(s) {
		return apperr.Validation("status", "unknown %s status %q", l.entity, s)
	}
	if !slices.Contains(allowed, s) {
		return apperr.Validation("status", "%s cannot be created as %q", l.entity, s)
	}
	return nil
}
