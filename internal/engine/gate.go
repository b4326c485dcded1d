package engine

import (
	"context"
	"log/slog"
	"time"

	"mdac/internal/model"
)

// GateState is the terminal outcome of the post-submission wait.
type GateState string

const (
	GateConfirmed GateState = "confirmed"
	GateRejected  GateState = "rejected"
	GateTimedOut  GateState = "timed_out"
)

// GateOutcome is produced exactly once per job.
type GateOutcome struct {
	State        GateState
	Confirmation *model.Confirmation
	Download     string
	Reason       string
}

// GateWaiter polls a session after submission until a success or
// rejection indicator appears, or the gate timeout elapses. The poll
// loop suspends only the calling job's goroutine; the ticker keeps
// other jobs unaffected. Cancellation is honored at tick boundaries.
type GateWaiter struct {
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Await returns a non-nil error only when ctx is cancelled before a
// terminal outcome was observed; every other path yields exactly one
// GateOutcome.
func (g *GateWaiter) Await(ctx context.Context, s Session, probe Probe, timeout time.Duration) (GateOutcome, error) {
	interval := g.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return GateOutcome{}, ctx.Err()
		case <-deadline.C:
			return GateOutcome{State: GateTimedOut, Reason: "no success or rejection indicator within gate window"}, nil
		case <-ticker.C:
		}

		obsCtx, cancel := context.WithTimeout(ctx, interval)
		obs, err := s.Observe(obsCtx, probe)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return GateOutcome{}, ctx.Err()
			}
			// Transient observation failures keep the gate in Waiting;
			// the deadline bounds the loop.
			if g.Logger != nil {
				g.Logger.Warn("gate poll failed", "error", err)
			}
			continue
		}

		switch {
		case obs.Success:
			return GateOutcome{
				State:        GateConfirmed,
				Confirmation: &model.Confirmation{Pin: obs.Pin, Excerpt: obs.Excerpt},
				Download:     obs.Download,
			}, nil
		case obs.Rejected:
			reason := obs.Reason
			if reason == "" {
				reason = "rejection indicator present"
			}
			return GateOutcome{State: GateRejected, Reason: reason}, nil
		}
	}
}
