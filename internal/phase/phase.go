// Package phase models the ordered stages of a competition track.
//
// The ordering is configuration: transitions are derived from position, so
// appending a phase to the list is all it takes to extend the track.
package phase

import (
	"fmt"
	"strings"
)

// DefaultOrder is used when no ordering is configured.
var DefaultOrder = []string{"idea", "design", "prototype", "final"}

// Idea is the phase teams submit their business idea for.
const Idea = "idea"

// Machine answers ordering questions about a fixed list of phases.
type Machine struct {
	order []string
	index map[string]int
}

// NewMachine builds a machine from an ordered, duplicate-free list.
func NewMachine(order []string) (*Machine, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("phase ordering must not be empty")
	}
	m := &Machine{index: make(map[string]int, len(order))}
	for _, p := range order {
		p = Normalize(p)
		if p == "" {
			return nil, fmt.Errorf("phase names must not be empty")
		}
		if _, dup := m.index[p]; dup {
			return nil, fmt.Errorf("duplicate phase %q", p)
		}
		m.index[p] = len(m.order)
		m.order = append(m.order, p)
	}
	return m, nil
}

// Normalize lowercases and trims a phase name.
func Normalize(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}

// Order returns a copy of the configured ordering.
func (m *Machine) Order() []string {
	return append([]string(nil), m.order...)
}

// First returns the initial phase of every registration.
func (m *Machine) First() string {
	return m.order[0]
}

// Valid reports whether p is a configured phase.
func (m *Machine) Valid(p string) bool {
	_, ok := m.index[Normalize(p)]
	return ok
}

// Index returns the position of p, or -1 when p is unknown.
func (m *Machine) Index(p string) int {
	if i, ok := m.index[Normalize(p)]; ok {
		return i
	}
	return -1
}

// Next returns the phase after p. ok is false when p is the last phase or
// unknown.
func (m *Machine) Next(p string) (next string, ok bool) {
	i := m.Index(p)
	if i < 0 || i+1 >= len(m.order) {
		return "", false
	}
	return m.order[i+1], true
}

// Before returns every phase strictly ahead of p in the ordering, i.e. the
// phases a registration may be in for p to be a forward move.
func (m *Machine) Before(p string) []string {
	i := m.Index(p)
	if i <= 0 {
		return []string{}
	}
	return append([]string(nil), m.order[:i]...)
}

// Compare returns -1, 0 or 1 as a is before, equal to, or after b. Unknown
// phases sort before every known one.
func (m *Machine) Compare(a, b string) int {
	ia, ib := m.Index(a), m.Index(b)
	switch {
	case ia < ib:
		return -1
	case ia > ib:
		return 1
	default:
		return 0
	}
}
