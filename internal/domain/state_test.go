package domain

import "testing"

func TestItemStateAdvancesMonotonically(t *testing.T) {
	s := StatePending
	for _, to := range []ItemState{StateFastEvaluated, StateExpertEvaluated, StateResolved} {
		if err := s.Advance(to); err != nil {
			t.Fatalf("advance to %s failed: %v", to, err)
		}
	}
	if !s.Terminal() {
		t.Fatalf("expected resolved to be terminal")
	}
}

func TestItemStateRejectsRegression(t *testing.T) {
	s := StateExpertEvaluated
	if err := s.Advance(StateFastEvaluated); err == nil {
		t.Fatal("expected regression to fail")
	}
	if s != StateExpertEvaluated {
		t.Fatalf("failed advance must not mutate state, got %s", s)
	}
}

func TestItemStateTerminalIsFinal(t *testing.T) {
	s := StateErrored
	if err := s.Advance(StateResolved); err == nil {
		t.Fatal("expected terminal state to reject transitions")
	}

	s = StatePending
	if err := s.Advance(StateErrored); err != nil {
		t.Fatalf("any live state may error out, got %v", err)
	}
}
