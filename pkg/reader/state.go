// Package reader models what a smart-card reader reports about itself: the
// PC/SC state bit-field, the ATR of the present card and the byte-level
// operations a reader driver offers. It also decides, from two consecutive
// state snapshots, whether a card arrived or left.
package reader

import (
	"fmt"
	"strings"

	"github.com/gregLibert/cardsession/pkg/bits"
)

// State is the reader state bit-field, with the values used by PC/SC
// (SCARD_STATE_*). It carries exactly the bits reported by the reader.
type State uint32

const (
	StateUnaware     State = 0x0000
	StateIgnore      State = 0x0001
	StateChanged     State = 0x0002
	StateUnknown     State = 0x0004
	StateUnavailable State = 0x0008
	StateEmpty       State = 0x0010
	StatePresent     State = 0x0020
	StateATRMatch    State = 0x0040
	StateExclusive   State = 0x0080
	StateInUse       State = 0x0100
	StateMute        State = 0x0200
)

var stateNames = map[State]string{
	StateIgnore:      "IGNORE",
	StateChanged:     "CHANGED",
	StateUnknown:     "UNKNOWN",
	StateUnavailable: "UNAVAILABLE",
	StateEmpty:       "EMPTY",
	StatePresent:     "PRESENT",
	StateATRMatch:    "ATRMATCH",
	StateExclusive:   "EXCLUSIVE",
	StateInUse:       "INUSE",
	StateMute:        "MUTE",
}

// Requirement is a flag together with the polarity it must have.
type Requirement struct {
	Flag State
	Set  bool
}

// Set requires every bit of f to be raised.
func Set(f State) Requirement {
	return Requirement{Flag: f, Set: true}
}

// Clear requires every bit of f to be cleared.
func Clear(f State) Requirement {
	return Requirement{Flag: f, Set: false}
}

// Holds reports whether s satisfies the requirement.
func (r Requirement) Holds(s State) bool {
	if r.Set {
		return bits.Has(s, r.Flag)
	}
	return bits.Lacks(s, r.Flag)
}

// Has reports whether every bit of f is raised.
func (s State) Has(f State) bool {
	return bits.Has(s, f)
}

// AllOf reports whether every requirement holds. It is true for no requirement.
func (s State) AllOf(reqs ...Requirement) bool {
	for _, r := range reqs {
		if !r.Holds(s) {
			return false
		}
	}
	return true
}

// AnyOf reports whether at least one requirement holds.
func (s State) AnyOf(reqs ...Requirement) bool {
	for _, r := range reqs {
		if r.Holds(s) {
			return true
		}
	}
	return false
}

// NoneOf reports whether no requirement holds.
func (s State) NoneOf(reqs ...Requirement) bool {
	return !s.AnyOf(reqs...)
}

// String lists the raised flags, e.g. "EMPTY | INUSE".
func (s State) String() string {
	if s == StateUnaware {
		return "UNAWARE"
	}

	parts := make([]string, 0, 4)
	for _, f := range bits.Split(s) {
		if name, ok := stateNames[f]; ok {
			parts = append(parts, name)
		} else {
			parts = append(parts, fmt.Sprintf("0x%X", uint32(f)))
		}
	}
	return strings.Join(parts, " | ")
}
