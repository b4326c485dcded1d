package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"mdac/internal/model"
)

// Store wraps access to the jobs table on a shared *sql.DB.
type Store struct {
	DB *sql.DB
}

// New creates a new Store that uses a shared *sql.DB with pooling.
func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

// Job is one persisted automation job. Input holds the traveler or
// lookup record as submitted; Output holds the terminal JobOutput once
// the job finishes.
type Job struct {
	ID         uuid.UUID
	Type       string
	Status     string
	Passport   string
	Input      json.RawMessage
	Output     json.RawMessage
	Error      sql.NullString
	PauseToken sql.NullString
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const jobColumns = `id, type, status, passport, input, output, error, pause_token, created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.Type, &j.Status, &j.Passport, &j.Input, &j.Output,
		&j.Error, &j.PauseToken, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

// CreateJob inserts a new pending job row.
func (s *Store) CreateJob(ctx context.Context, id uuid.UUID, jobType, passport, pauseToken string, input any) (Job, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return Job{}, fmt.Errorf("marshal job input: %w", err)
	}

	var token sql.NullString
	if pauseToken != "" {
		token = sql.NullString{String: pauseToken, Valid: true}
	}

	row := s.DB.QueryRowContext(ctx, `
		INSERT INTO jobs (id, type, status, passport, input, pause_token)
		VALUES ($1, $2, 'pending', $3, $4, $5)
		RETURNING `+jobColumns,
		id, jobType, passport, payload, token)
	return scanJob(row)
}

// ClaimPendingJob atomically moves the oldest pending job to running
// and returns it. sql.ErrNoRows means the queue is empty. The claim is
// race-safe across multiple runner goroutines.
func (s *Store) ClaimPendingJob(ctx context.Context) (Job, error) {
	row := s.DB.QueryRowContext(ctx, `
		UPDATE jobs SET status = 'running', updated_at = now()
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = 'pending'
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+jobColumns)
	return scanJob(row)
}

// SetJobResult records a job's terminal status and structured output.
func (s *Store) SetJobResult(ctx context.Context, id uuid.UUID, out model.JobOutput) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal job output: %w", err)
	}

	var errMsg sql.NullString
	if out.Error != "" {
		errMsg = sql.NullString{String: out.Error, Valid: true}
	}

	_, err = s.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, output = $3, error = $4, updated_at = now()
		WHERE id = $1`,
		id, out.Status, payload, errMsg)
	return err
}

// UpdateJobStatus updates the status and optional error message.
func (s *Store) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error {
	var sqlErr sql.NullString
	if errMsg != nil {
		sqlErr = sql.NullString{String: *errMsg, Valid: true}
	}

	_, err := s.DB.ExecContext(ctx, `
		UPDATE jobs SET status = $2, error = $3, updated_at = now()
		WHERE id = $1`,
		id, status, sqlErr)
	return err
}

// GetJob fetches one job by id.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (Job, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

// GetJobByPauseToken resolves a manual-resume token to its job.
// sql.ErrNoRows means the token was cleared or never existed; a
// paused worker treats a cleared token as the resume signal.
func (s *Store) GetJobByPauseToken(ctx context.Context, token string) (Job, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE pause_token = $1`, token)
	return scanJob(row)
}

// ClearPauseToken removes the token from its job row, releasing a
// pause held by a worker in another process. Reports whether any row
// matched.
func (s *Store) ClearPauseToken(ctx context.Context, token string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE jobs SET pause_token = NULL, updated_at = now()
		WHERE pause_token = $1`,
		token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountPendingJobs returns the pending queue depth for health checks.
func (s *Store) CountPendingJobs(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM jobs WHERE status = 'pending'`).Scan(&n)
	return n, err
}

// RequeueStaleRunningJobs returns jobs stuck in running longer than
// maxAge to pending. Covers a worker that died mid-job.
func (s *Store) RequeueStaleRunningJobs(ctx context.Context, maxAge time.Duration) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE jobs SET status = 'pending', updated_at = now()
		WHERE status = 'running' AND updated_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int(maxAge.Seconds())))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteJobsOlderThan removes terminal jobs of the given type whose
// last update is before the cutoff. Returns the number deleted.
func (s *Store) DeleteJobsOlderThan(ctx context.Context, jobType string, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM jobs
		WHERE type = $1
		  AND status IN ('succeeded', 'failed', 'timed_out', 'cancelled')
		  AND updated_at < $2`,
		jobType, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
