package reader

import "github.com/gregLibert/cardsession/pkg/bits"

// TransitionKind is the outcome of comparing two reader states.
type TransitionKind int

const (
	// TransitionNone means nothing changed.
	TransitionNone TransitionKind = iota
	// TransitionStatus means some flags changed without a card moving.
	TransitionStatus
	// TransitionCardLeft means the card was removed.
	TransitionCardLeft
	// TransitionCardDetected means a card was inserted.
	TransitionCardDetected
)

func (k TransitionKind) String() string {
	switch k {
	case TransitionNone:
		return "none"
	case TransitionStatus:
		return "status"
	case TransitionCardLeft:
		return "card-left"
	case TransitionCardDetected:
		return "card-detected"
	}
	return "unknown"
}

// Transition is the result of Detect.
type Transition struct {
	Changed State
	Kind    TransitionKind
}

// Detect compares two consecutive states. Removal is checked before
// insertion. A nil p uses DefaultPredicates.
func Detect(previous, next State, p Predicates) Transition {
	if p == nil {
		p = DefaultPredicates{}
	}

	changed := bits.Diff(previous, next)
	switch {
	case changed == 0:
		return Transition{Kind: TransitionNone}
	case p.CardRemoved(changed, previous, next):
		return Transition{Changed: changed, Kind: TransitionCardLeft}
	case p.CardInserted(changed, previous, next):
		return Transition{Changed: changed, Kind: TransitionCardDetected}
	default:
		return Transition{Changed: changed, Kind: TransitionStatus}
	}
}
