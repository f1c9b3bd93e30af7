package domain

import "fmt"

// ItemState tracks one item's progress through the cascade. States only
// ever move forward; a regression indicates a bookkeeping bug.
type ItemState int

const (
	StatePending ItemState = iota
	StateFastEvaluated
	StateExpertEvaluated
	StateResolved
	StateErrored
)

var stateNames = map[ItemState]string{
	StatePending:         "pending",
	StateFastEvaluated:   "fast_evaluated",
	StateExpertEvaluated: "expert_evaluated",
	StateResolved:        "resolved",
	StateErrored:         "errored",
}

func (s ItemState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Terminal reports whether the state admits no further transition.
func (s ItemState) Terminal() bool {
	return s == StateResolved || s == StateErrored
}

// Advance moves to the next state, enforcing monotonic transitions.
func (s *ItemState) Advance(to ItemState) error {
	if s.Terminal() {
		return fmt.Errorf("item state %s is terminal, cannot move to %s", s, to)
	}
	if to <= *s {
		return fmt.Errorf("item state cannot regress from %s to %s", s, to)
	}
	*s = to
	return nil
}
