package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StepObserver receives one event per step attempt. The coordinator
// wires it to the trace recorder; the executor itself never touches
// artifacts or the pool.
type StepObserver func(ev TraceEvent)

// ExecResult reports how far a step sequence got.
type ExecResult struct {
	Completed   bool
	FailedIndex int
	FailedStep  string
	Cause       string
	Cancelled   bool
}

// Executor runs an ordered step sequence against one session. Each
// step has its own timeout; failures are retried immediately up to the
// step's retry count (rendering delays are transient, backoff would
// only add latency). Exhausting retries on a required step aborts the
// sequence.
type Executor struct {
	Logger  *slog.Logger
	Observe StepObserver
}

func (e *Executor) Run(ctx context.Context, s Session, steps []Step) ExecResult {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return ExecResult{FailedIndex: i, FailedStep: step.Name, Cause: err.Error(), Cancelled: true}
		}

		var lastErr error
		attempts := step.Retries + 1
		if attempts < 1 {
			attempts = 1
		}

		for attempt := 1; attempt <= attempts; attempt++ {
			start := time.Now()
			stepCtx := ctx
			var cancel context.CancelFunc
			if step.Timeout > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, step.Timeout)
			}
			lastErr = s.Apply(stepCtx, step)
			if cancel != nil {
				cancel()
			}

			if e.Observe != nil {
				ev := TraceEvent{
					Step:       step.Name,
					Attempt:    attempt,
					Start:      start,
					DurationMs: time.Since(start).Milliseconds(),
				}
				if lastErr != nil {
					ev.Error = lastErr.Error()
				}
				e.Observe(ev)
			}

			if lastErr == nil {
				break
			}
			if s.Fatal() {
				// The browser itself is gone; retrying the step cannot help.
				return ExecResult{
					FailedIndex: i,
					FailedStep:  step.Name,
					Cause:       fmt.Sprintf("SESSION_FATAL: %v", lastErr),
				}
			}
			if err := ctx.Err(); err != nil {
				return ExecResult{FailedIndex: i, FailedStep: step.Name, Cause: err.Error(), Cancelled: true}
			}
			if e.Logger != nil {
				e.Logger.Warn("step attempt failed",
					"step", step.Name, "attempt", attempt, "error", lastErr)
			}
		}

		if lastErr != nil {
			if step.Optional {
				if e.Logger != nil {
					e.Logger.Warn("optional step skipped", "step", step.Name, "error", lastErr)
				}
				continue
			}
			return ExecResult{
				FailedIndex: i,
				FailedStep:  step.Name,
				Cause:       fmt.Sprintf("step %q failed after %d attempts: %v", step.Name, attempts, lastErr),
			}
		}

		if e.Logger != nil {
			e.Logger.Debug("step completed", "step", step.Name, "index", i)
		}
	}

	return ExecResult{Completed: true, FailedIndex: -1}
}
