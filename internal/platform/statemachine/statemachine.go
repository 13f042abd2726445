// Package statemachine validates status transitions against a declarative
// table. Each record type declares exactly one Table; no other code decides
// whether a transition is legal.
package statemachine

import (
	"sort"

	"github.com/aqlaanai/dr-amal2-sub000/internal/platform/apperr"
)

// Table maps a status to the statuses reachable from it in one step.
// Statuses with no entry, or an empty entry, are terminal.
type Table[S ~string] struct {
	entity string
	next   map[S][]S
	states []S
}

// New builds a Table for entity. states lists every status the entity can
// hold, including terminal ones that never appear as a key in next.
func New[S ~string](entity string, states []S, next map[S][]S) Table[S] {
	cp := make(map[S][]S, len(next))
	for from, to := range next {
		cp[from] = append([]S(nil), to...)
	}
	return Table[S]{entity: entity, next: cp, states: append([]S(nil), states...)}
}

// Entity returns the record type the table governs.
func (t Table[S]) Entity() string {
	return t.entity
}

// Allowed reports whether from -> to is a legal single step.
func (t Table[S]) Allowed(from, to S) bool {
	for _, s := range t.next[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Validate returns an InvalidStateTransition error naming both statuses when
// from -> to is not in the table.
func (t Table[S]) Validate(from, to S) error {
	if t.Allowed(from, to) {
		return nil
	}
	return apperr.InvalidTransition(t.entity, string(from), string(to))
}

// Next returns the legal next statuses of s, sorted.
func (t Table[S]) Next(s S) []S {
	out := append([]S(nil), t.next[s]...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsTerminal reports whether no transition leaves s.
func (t Table[S]) IsTerminal(s S) bool {
	return len(t.next[s]) == 0
}

// Valid reports whether s is one of the declared statuses.
func (t Table[S]) Valid(s S) bool {
	for _, st := range t.states {
		if st == s {
			return true
		}
	}
	return false
}

// States returns every declared status.
func (t Table[S]) States() []S {
	return append([]S(nil), t.states...)
}
