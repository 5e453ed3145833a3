package models

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ProcessingStatus
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusFailed, false},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusPending, false},
		{StatusFailed, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPredecessorMatchesTransitions(t *testing.T) {
	for _, s := range []ProcessingStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed} {
		from, ok := Predecessor(s)
		if s == StatusPending {
			if ok {
				t.Errorf("pending must have no predecessor, got %s", from)
			}
			continue
		}
		if !ok || !CanTransition(from, s) {
			t.Errorf("Predecessor(%s) = %s, %v is not an allowed edge", s, from, ok)
		}
	}
}

func TestTerminal(t *testing.T) {
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Error("completed and failed must be terminal")
	}
	if StatusPending.Terminal() || StatusProcessing.Terminal() {
		t.Error("pending and processing must not be terminal")
	}
	if ProcessingStatus("done").Valid() {
		t.Error("unknown status reported valid")
	}
}
