package jobs

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mdac/internal/config"
	"mdac/internal/store"
)

// Job type values stored in jobs.type.
const (
	TypeRegister = "register"
	TypeRetrieve = "retrieve"
)

// Jobs stuck in running longer than staleJobAge are assumed orphaned
// by a crashed worker and returned to pending. The requeue runs on its
// own cadence, independent of retention.
const (
	staleJobAge          = 30 * time.Minute
	staleRequeueInterval = 5 * time.Minute
)

// Store is the subset of job persistence the runner needs. Satisfied
// by *store.Store; tests use a fake.
type Store interface {
	ClaimPendingJob(ctx context.Context) (store.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error
	RequeueStaleRunningJobs(ctx context.Context, maxAge time.Duration) (int64, error)
	DeleteJobsOlderThan(ctx context.Context, jobType string, cutoff time.Time) (int64, error)
}

// RegisterJobExecutor executes a single registration job.
type RegisterJobExecutor interface {
	ExecuteRegisterJob(ctx context.Context, job store.Job)
}

// RetrieveJobExecutor executes a single slip retrieval job.
type RetrieveJobExecutor interface {
	ExecuteRetrieveJob(ctx context.Context, job store.Job)
}

// Executors groups the concrete executors for each job type.
type Executors struct {
	Register RegisterJobExecutor
	Retrieve RetrieveJobExecutor
}

// Runner polls the jobs table and dispatches claimed work to the
// job-type executors. It encapsulates the concurrency limit, the poll
// interval, stale-job recovery, and periodic retention cleanup.
type Runner struct {
	cfg       *config.Config
	store     Store
	executors Executors
	logger    *slog.Logger
}

// NewRunner constructs a Runner. A missing executor causes jobs of
// that type to be marked failed with an UNKNOWN_JOB_TYPE error.
func NewRunner(cfg *config.Config, st Store, execs Executors, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		store:     st,
		executors: execs,
		logger:    logger,
	}
}

// Start launches the worker loop in the current goroutine. Callers
// typically run this in its own goroutine and keep the process alive.
func (r *Runner) Start(ctx context.Context) {
	pollInterval := time.Duration(r.cfg.Worker.PollIntervalMs) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	maxJobs := r.cfg.Worker.MaxConcurrentJobs
	if maxJobs <= 0 {
		maxJobs = 4
	}

	sem := make(chan struct{}, maxJobs)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastCleanup, lastRequeue time.Time
	cleanupInterval := time.Duration(r.cfg.Retention.CleanupIntervalMinutes) * time.Minute
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := time.Now().UTC()

		// Crash recovery runs whether or not retention is enabled.
		if lastRequeue.IsZero() || now.Sub(lastRequeue) >= staleRequeueInterval {
			if n, err := r.store.RequeueStaleRunningJobs(ctx, staleJobAge); err == nil && n > 0 {
				r.logger.Warn("requeued stale running jobs", "count", n)
			}
			lastRequeue = now
		}

		if r.cfg.Retention.Enabled {
			if lastCleanup.IsZero() || now.Sub(lastCleanup) >= cleanupInterval {
				CleanupExpiredData(ctx, r.cfg, r.store)
				lastCleanup = now
			}
		}

		// Claim up to the free concurrency. ClaimPendingJob is
		// race-safe, so several runner processes can share the table.
		for len(sem) < maxJobs {
			job, err := r.store.ClaimPendingJob(ctx)
			if err != nil {
				if !errors.Is(err, sql.ErrNoRows) {
					r.logger.Error("claim pending job failed", "error", err)
				}
				break
			}

			sem <- struct{}{}
			go func(job store.Job) {
				defer func() { <-sem }()
				r.dispatchJob(ctx, job)
			}(job)
		}
	}
}

func (r *Runner) dispatchJob(ctx context.Context, job store.Job) {
	r.logger.Info("job dispatched", "job", job.ID, "type", job.Type)

	switch job.Type {
	case TypeRegister:
		if r.executors.Register != nil {
			r.executors.Register.ExecuteRegisterJob(ctx, job)
			return
		}
	case TypeRetrieve:
		if r.executors.Retrieve != nil {
			r.executors.Retrieve.ExecuteRetrieveJob(ctx, job)
			return
		}
	}

	msg := "UNKNOWN_JOB_TYPE: " + job.Type
	_ = r.store.UpdateJobStatus(context.Background(), job.ID, string(StatusFailed), &msg)
}
