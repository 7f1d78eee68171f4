package reader

import "fmt"

// Predicates decides whether a state change means a card arrived or left.
// changed is previous XOR next. An implementation fully replaces the
// default rules; the two are never combined.
type Predicates interface {
	CardInserted(changed, previous, next State) bool
	CardRemoved(changed, previous, next State) bool
}

// DefaultPredicates reacts to the EMPTY and PRESENT flags being raised.
type DefaultPredicates struct{}

// CardInserted is true when PRESENT flipped and is now raised.
func (DefaultPredicates) CardInserted(changed, _, next State) bool {
	return changed.Has(StatePresent) && next.Has(StatePresent)
}

// CardRemoved is true when EMPTY flipped and is now raised.
func (DefaultPredicates) CardRemoved(changed, _, next State) bool {
	return changed.Has(StateEmpty) && next.Has(StateEmpty)
}

// InUsePredicates only reports a card once another application released it:
// insertion needs INUSE to flip while PRESENT stays raised, removal needs
// the PRESENT to EMPTY swap.
type InUsePredicates struct{}

func (InUsePredicates) CardInserted(changed, previous, next State) bool {
	return changed.Has(StateInUse) &&
		next.Has(StatePresent) &&
		previous.AllOf(Set(StateInUse), Set(StatePresent))
}

func (InUsePredicates) CardRemoved(changed, previous, next State) bool {
	return changed.AllOf(Set(StateEmpty), Set(StatePresent)) &&
		next.Has(StateEmpty) &&
		previous.Has(StatePresent)
}

// PredicatesByName returns the built-in predicates called "default" or "inuse".
func PredicatesByName(name string) (Predicates, error) {
	switch name {
	case "", "default":
		return DefaultPredicates{}, nil
	case "inuse":
		return InUsePredicates{}, nil
	}
	return nil, fmt.Errorf("unknown predicates %q", name)
}
