package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mdac/internal/metrics"
	"mdac/internal/model"
)

// Job is one unit of automation work handed to the Coordinator: the
// form-filling steps, the submission steps, the gate probe, and the
// per-job capture settings.
type Job struct {
	ID          uuid.UUID
	Type        string
	Passport    string
	Steps       []Step
	Submit      []Step
	Probe       Probe
	Record      RecordOptions
	ArtifactDir string
	GateTimeout time.Duration
	// PauseToken, when set, parks the job between form filling and
	// submission until POST /v1/resume/<token> arrives or the gate
	// window elapses.
	PauseToken string
}

// ResumeCheck reports whether a paused job's token was released
// outside this process. The api role clears the token in the store;
// a worker in another process observes it through this probe.
type ResumeCheck func(ctx context.Context, token string) (bool, error)

// Coordinator is the engine entry point. It owns the acquire/record/
// execute/gate/finalize/release sequence and guarantees that recorder
// finalization and session release happen on every exit path.
type Coordinator struct {
	pool        *Pool
	manual      *ManualGate
	gate        GateWaiter
	poll        time.Duration
	resumeCheck ResumeCheck
	logger      *slog.Logger
}

func NewCoordinator(pool *Pool, manual *ManualGate, pollInterval time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Coordinator{
		pool:   pool,
		manual: manual,
		gate:   GateWaiter{PollInterval: pollInterval, Logger: logger},
		poll:   pollInterval,
		logger: logger,
	}
}

// UseResumeCheck installs the out-of-process resume probe consulted
// while a job is paused. Without one, resume works in-process only.
func (c *Coordinator) UseResumeCheck(fn ResumeCheck) { c.resumeCheck = fn }

// Stats exposes pool saturation for the health endpoint.
func (c *Coordinator) Stats() PoolStats { return c.pool.Stats() }

// Resume releases a job paused on the given token.
func (c *Coordinator) Resume(token string) bool {
	if c.manual == nil {
		return false
	}
	return c.manual.Resume(token)
}

// Shutdown force-closes the session pool; in-flight jobs fail on their
// next session interaction and still run their cleanup path.
func (c *Coordinator) Shutdown() { c.pool.Shutdown() }

// Run drives one job to a terminal status. It never returns an error:
// every failure mode is folded into the JobOutput so no fault can
// bypass artifact finalization or session release.
func (c *Coordinator) Run(ctx context.Context, job Job) (out model.JobOutput) {
	out = model.JobOutput{Status: StatusFailed, Passport: job.Passport}
	defer func() { metrics.RecordJob(job.Type, out.Status) }()

	sess, err := c.pool.Acquire(ctx)
	if err != nil {
		switch err {
		case ErrPoolExhausted:
			metrics.RecordPoolAcquire("exhausted")
			out.Error = "POOL_EXHAUSTED: no browser session available within acquire timeout"
		case ErrPoolClosed:
			metrics.RecordPoolAcquire("closed")
			out.Error = "POOL_CLOSED: engine is shutting down"
		default:
			metrics.RecordPoolAcquire("error")
			if ctx.Err() != nil {
				out.Status = StatusCancelled
			}
			out.Error = "SESSION_OPEN_FAILED: " + err.Error()
		}
		return out
	}
	metrics.RecordPoolAcquire("ok")
	defer c.pool.Release(sess)

	// Recorders must attach before any step runs or they miss the
	// session's earliest activity.
	rec, err := sess.Record(job.Record, job.ArtifactDir)
	if err != nil {
		out.Error = "RECORDER_ATTACH_FAILED: " + err.Error()
		return out
	}
	defer func() {
		arts, ferr := rec.Finalize()
		if ferr != nil {
			c.logger.Error("artifact finalize failed", "job", job.ID, "error", ferr)
			return
		}
		// The download is discovered by the gate waiter, not the
		// recorder; carry it over.
		if out.Artifacts.Download != "" {
			arts.Download = out.Artifacts.Download
		}
		out.Artifacts = arts
	}()

	exec := Executor{Logger: c.logger, Observe: rec.TraceStep}

	res := exec.Run(ctx, sess, job.Steps)
	if !res.Completed {
		if res.Cancelled {
			out.Status = StatusCancelled
			out.Error = "CANCELLED: " + res.Cause
			return out
		}
		out.Error = fmt.Sprintf("STEP_FAILED[%d]: %s", res.FailedIndex, res.Cause)
		return out
	}

	if job.PauseToken != "" && c.manual != nil {
		if !c.awaitResume(ctx, job) {
			out.Status = StatusCancelled
			out.Error = "CANCELLED: job cancelled while paused for manual input"
			return out
		}
	}

	res = exec.Run(ctx, sess, job.Submit)
	if !res.Completed {
		if res.Cancelled {
			out.Status = StatusCancelled
			out.Error = "CANCELLED: " + res.Cause
			return out
		}
		out.Error = fmt.Sprintf("STEP_FAILED[%d]: %s", res.FailedIndex, res.Cause)
		return out
	}

	outcome, err := c.gate.Await(ctx, sess, job.Probe, job.GateTimeout)
	if err != nil {
		out.Status = StatusCancelled
		out.Error = "CANCELLED: " + err.Error()
		return out
	}
	metrics.RecordGateOutcome(string(outcome.State))

	switch outcome.State {
	case GateConfirmed:
		out.Status = StatusSucceeded
		out.Confirmation = outcome.Confirmation
		if outcome.Download != "" {
			out.Artifacts.Download = outcome.Download
		}
	case GateRejected:
		out.Status = StatusFailed
		out.Error = "REJECTED: " + outcome.Reason
	case GateTimedOut:
		// The submission may well have succeeded server-side; keep the
		// outcome distinct from Failed and snapshot the final page
		// state for diagnosis.
		out.Status = StatusTimedOut
		out.Error = "GATE_TIMEOUT: " + outcome.Reason
		rec.Screenshot("gate_timeout")
		rec.TraceStep(TraceEvent{Step: "gate", Start: time.Now(), Error: outcome.Reason})
	}

	return out
}

// awaitResume blocks until the operator resumes the job, the pause
// window elapses (the job then proceeds), or the job is cancelled.
// Returns false only on cancellation. Besides the in-process gate it
// polls the resume check so a resume landing on another process (the
// api role clearing the token in the store) still releases the job.
func (c *Coordinator) awaitResume(ctx context.Context, job Job) bool {
	wait := job.GateTimeout
	if wait <= 0 {
		wait = 2 * time.Minute
	}

	c.logger.Info("job paused for manual input", "job", job.ID, "token", job.PauseToken, "window", wait)

	hold := c.manual.Hold(job.PauseToken)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	poll := c.poll
	if poll <= 0 {
		poll = 2 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-hold:
			c.logger.Info("job resumed", "job", job.ID)
			return true
		case <-ticker.C:
			if c.resumeCheck == nil {
				continue
			}
			if ok, err := c.resumeCheck(ctx, job.PauseToken); err == nil && ok {
				c.manual.Forget(job.PauseToken)
				c.logger.Info("job resumed", "job", job.ID)
				return true
			}
		case <-timer.C:
			c.manual.Forget(job.PauseToken)
			c.logger.Warn("pause window elapsed, submitting anyway", "job", job.ID)
			return true
		case <-ctx.Done():
			c.manual.Forget(job.PauseToken)
			return false
		}
	}
}
