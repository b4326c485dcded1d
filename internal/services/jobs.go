package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"mdac/internal/config"
	"mdac/internal/engine"
	"mdac/internal/jobs"
	"mdac/internal/model"
	"mdac/internal/store"
	"mdac/internal/workflow"
)

// SubmitOptions carries the per-request knobs for a registration job.
type SubmitOptions struct {
	// Pause parks the job before submission until the matching resume
	// token arrives. The token is generated here and returned on the
	// created job row.
	Pause bool
	// Record overrides the configured capture toggles for this job.
	Record *model.RecordFlags
}

// registerPayload is the persisted shape of a registration job input.
type registerPayload struct {
	Traveler model.RegisterInput `json:"traveler"`
	Record   *model.RecordFlags  `json:"record,omitempty"`
}

type retrievePayload struct {
	Lookup model.RetrieveInput `json:"lookup"`
	Record *model.RecordFlags  `json:"record,omitempty"`
}

// JobService owns the lifecycle of automation jobs: enqueueing,
// executing them against the engine, persisting results, and the
// sync-wait and manual-resume paths the HTTP layer exposes.
type JobService interface {
	SubmitRegister(ctx context.Context, in model.RegisterInput, opts SubmitOptions) (store.Job, error)
	SubmitRetrieve(ctx context.Context, in model.RetrieveInput, record *model.RecordFlags) (store.Job, error)
	// WaitForJob polls until the job reaches a terminal status or the
	// timeout elapses. The bool reports whether a terminal output was
	// obtained.
	WaitForJob(ctx context.Context, id uuid.UUID, timeout time.Duration) (model.JobOutput, bool)
	Resume(token string) bool

	ExecuteRegisterJob(ctx context.Context, job store.Job)
	ExecuteRetrieveJob(ctx context.Context, job store.Job)
}

type jobService struct {
	cfg    *config.Config
	st     *store.Store
	coord  *engine.Coordinator
	wf     workflow.Options
	logger *slog.Logger
}

func NewJobService(cfg *config.Config, st *store.Store, coord *engine.Coordinator, logger *slog.Logger) JobService {
	s := &jobService{
		cfg:    cfg,
		st:     st,
		coord:  coord,
		wf:     workflow.FromConfig(cfg.Mdac),
		logger: logger,
	}
	if coord != nil && st != nil {
		// Resumes may land on the api process while the worker holding
		// the pause runs elsewhere; a cleared token in the store is the
		// cross-process resume signal.
		coord.UseResumeCheck(func(ctx context.Context, token string) (bool, error) {
			_, err := st.GetJobByPauseToken(ctx, token)
			if errors.Is(err, sql.ErrNoRows) {
				return true, nil
			}
			return false, err
		})
	}
	return s
}

func (s *jobService) SubmitRegister(ctx context.Context, in model.RegisterInput, opts SubmitOptions) (store.Job, error) {
	token := ""
	if opts.Pause {
		token = uuid.New().String()
	}
	payload := registerPayload{Traveler: in, Record: opts.Record}
	return s.st.CreateJob(ctx, uuid.New(), jobs.TypeRegister, in.Passport, token, payload)
}

func (s *jobService) SubmitRetrieve(ctx context.Context, in model.RetrieveInput, record *model.RecordFlags) (store.Job, error) {
	payload := retrievePayload{Lookup: in, Record: record}
	return s.st.CreateJob(ctx, uuid.New(), jobs.TypeRetrieve, in.Passport, "", payload)
}

func (s *jobService) WaitForJob(ctx context.Context, id uuid.UUID, timeout time.Duration) (model.JobOutput, bool) {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return model.JobOutput{}, false
		case <-deadline.C:
			return model.JobOutput{}, false
		case <-ticker.C:
		}

		job, err := s.st.GetJob(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.JobOutput{}, false
			}
			continue
		}
		if !jobs.Status(job.Status).Terminal() {
			continue
		}

		var out model.JobOutput
		if len(job.Output) > 0 {
			if err := json.Unmarshal(job.Output, &out); err != nil {
				s.logger.Error("decode job output failed", "job", id, "error", err)
			}
		}
		if out.Status == "" {
			out.Status = job.Status
			if job.Error.Valid {
				out.Error = job.Error.String
			}
		}
		return out, true
	}
}

func (s *jobService) Resume(token string) bool {
	resumed := s.coord != nil && s.coord.Resume(token)

	// Clear the token regardless of which process holds the pause; in
	// split deployments this is what the waiting worker observes.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cleared, err := s.st.ClearPauseToken(ctx, token)
	if err != nil {
		s.logger.Error("clear pause token failed", "token", token, "error", err)
	}
	return resumed || cleared
}

// ExecuteRegisterJob runs one claimed registration job to completion
// and persists the result. Called from the runner's worker goroutines.
func (s *jobService) ExecuteRegisterJob(ctx context.Context, job store.Job) {
	var payload registerPayload
	if err := json.Unmarshal(job.Input, &payload); err != nil {
		s.failInvalid(job, err)
		return
	}

	steps, submit, probe := s.wf.Register(payload.Traveler)
	eng := engine.Job{
		ID:          job.ID,
		Type:        jobs.TypeRegister,
		Passport:    payload.Traveler.Passport,
		Steps:       steps,
		Submit:      submit,
		Probe:       probe,
		Record:      s.recordOptions(payload.Record),
		ArtifactDir: s.artifactDir(job.ID),
		GateTimeout: s.gateTimeout(),
	}
	if job.PauseToken.Valid {
		eng.PauseToken = job.PauseToken.String
	}

	s.finish(job, s.coord.Run(ctx, eng))
}

// ExecuteRetrieveJob runs one claimed slip retrieval job.
func (s *jobService) ExecuteRetrieveJob(ctx context.Context, job store.Job) {
	var payload retrievePayload
	if err := json.Unmarshal(job.Input, &payload); err != nil {
		s.failInvalid(job, err)
		return
	}

	steps, submit, probe := s.wf.Retrieve(payload.Lookup)
	eng := engine.Job{
		ID:          job.ID,
		Type:        jobs.TypeRetrieve,
		Passport:    payload.Lookup.Passport,
		Steps:       steps,
		Submit:      submit,
		Probe:       probe,
		Record:      s.recordOptions(payload.Record),
		ArtifactDir: s.artifactDir(job.ID),
		GateTimeout: s.gateTimeout(),
	}

	s.finish(job, s.coord.Run(ctx, eng))
}

func (s *jobService) finish(job store.Job, out model.JobOutput) {
	// Persist with a fresh context; the job context may already be
	// cancelled and the result must not be lost.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.st.SetJobResult(ctx, job.ID, out); err != nil {
		s.logger.Error("persist job result failed", "job", job.ID, "error", err)
		return
	}
	s.logger.Info("job finished", "job", job.ID, "type", job.Type, "status", out.Status)
}

func (s *jobService) failInvalid(job store.Job, err error) {
	msg := "INVALID_INPUT: " + err.Error()
	_ = s.st.UpdateJobStatus(context.Background(), job.ID, string(jobs.StatusFailed), &msg)
	s.logger.Error("job input invalid", "job", job.ID, "error", err)
}

func (s *jobService) artifactDir(id uuid.UUID) string {
	base := s.cfg.Recorder.OutputDir
	if base == "" {
		// Downloads still need somewhere to land when diagnostics are
		// off; fall back to the configured download directory.
		base = s.cfg.Mdac.DownloadDir
	}
	if base == "" {
		return ""
	}
	return filepath.Join(base, id.String())
}

func (s *jobService) gateTimeout() time.Duration {
	secs := s.cfg.Gate.WaitSeconds
	if secs <= 0 {
		secs = 120
	}
	return time.Duration(secs) * time.Second
}

func (s *jobService) recordOptions(flags *model.RecordFlags) engine.RecordOptions {
	opts := engine.RecordOptions{
		Network: s.cfg.Recorder.Network,
		Trace:   s.cfg.Recorder.Trace,
		Video:   s.cfg.Recorder.Video,
	}
	if flags == nil {
		return opts
	}
	if flags.Network != nil {
		opts.Network = *flags.Network
	}
	if flags.Trace != nil {
		opts.Trace = *flags.Trace
	}
	if flags.Video != nil {
		opts.Video = *flags.Video
	}
	return opts
}
