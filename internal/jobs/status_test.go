package jobs

import "testing"

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusSucceeded, StatusFailed, StatusTimedOut, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusRunning, Status("weird")} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
