package engine

import (
	"context"
	"testing"
	"time"
)

func TestGateConfirmedAfterPolls(t *testing.T) {
	s := newFakeSession("s1")
	s.obs = func(call int) (Observation, error) {
		if call < 3 {
			return Observation{}, nil
		}
		return Observation{Success: true, Pin: "A1B2C3", Excerpt: "registered"}, nil
	}

	g := GateWaiter{PollInterval: 10 * time.Millisecond}
	out, err := g.Await(context.Background(), s, Probe{SuccessSelector: ".ok"}, time.Second)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if out.State != GateConfirmed {
		t.Fatalf("expected confirmed, got %+v", out)
	}
	if out.Confirmation == nil || out.Confirmation.Pin != "A1B2C3" {
		t.Fatalf("confirmation not carried: %+v", out.Confirmation)
	}
}

func TestGateRejected(t *testing.T) {
	s := newFakeSession("s1")
	s.obs = func(call int) (Observation, error) {
		return Observation{Rejected: true, Reason: "duplicate registration"}, nil
	}

	g := GateWaiter{PollInterval: 10 * time.Millisecond}
	out, err := g.Await(context.Background(), s, Probe{RejectSelector: ".err"}, time.Second)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if out.State != GateRejected || out.Reason != "duplicate registration" {
		t.Fatalf("expected rejection with reason, got %+v", out)
	}
}

func TestGateTimesOut(t *testing.T) {
	s := newFakeSession("s1")

	g := GateWaiter{PollInterval: 10 * time.Millisecond}
	start := time.Now()
	out, err := g.Await(context.Background(), s, Probe{SuccessSelector: ".ok"}, 80*time.Millisecond)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if out.State != GateTimedOut {
		t.Fatalf("expected timeout, got %+v", out)
	}
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Fatalf("timed out too early: %v", elapsed)
	}
	if s.obsCalls == 0 {
		t.Fatal("gate never polled before timing out")
	}
}

func TestGateTransientObserveErrorsKeepWaiting(t *testing.T) {
	s := newFakeSession("s1")
	s.obs = func(call int) (Observation, error) {
		if call < 3 {
			return Observation{}, context.DeadlineExceeded
		}
		return Observation{Success: true}, nil
	}

	g := GateWaiter{PollInterval: 10 * time.Millisecond}
	out, err := g.Await(context.Background(), s, Probe{SuccessSelector: ".ok"}, time.Second)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if out.State != GateConfirmed {
		t.Fatalf("expected confirmation after transient errors, got %+v", out)
	}
}

func TestGateCancelled(t *testing.T) {
	s := newFakeSession("s1")
	ctx, cancel := context.WithCancel(context.Background())

	g := GateWaiter{PollInterval: 10 * time.Millisecond}
	done := make(chan struct{})
	var err error
	go func() {
		_, err = g.Await(ctx, s, Probe{SuccessSelector: ".ok"}, time.Minute)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("await did not return after cancellation")
	}
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
}
