package engine

import (
	"context"
	"time"

	"mdac/internal/model"
)

// Terminal job statuses produced by the Coordinator. These are the
// text values stored in the jobs table (see internal/jobs).
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusTimedOut  = "timed_out"
	StatusCancelled = "cancelled"
)

// Action identifies the kind of browser interaction a Step performs.
type Action string

const (
	ActionNavigate    Action = "navigate"
	ActionFill        Action = "fill"
	ActionSelect      Action = "select"
	ActionSetDate     Action = "setDate"
	ActionClick       Action = "click"
	ActionPressEnter  Action = "pressEnter"
	ActionWaitVisible Action = "waitVisible"
	ActionWaitFunc    Action = "waitFunc"
	ActionScreenshot  Action = "screenshot"
)

// Step is one named unit of form interaction. Steps are immutable
// configuration, built once per workflow and shared read-only.
//
// Optional steps tolerate failure: exhausting retries logs the failure
// and moves on instead of aborting the sequence.
type Step struct {
	Name     string
	Action   Action
	Selector string
	Value    string
	Script   string
	Optional bool
	Timeout  time.Duration
	Retries  int
}

// RecordOptions selects which diagnostic captures to attach to a
// session for the duration of one job.
type RecordOptions struct {
	Network bool
	Trace   bool
	Video   bool
}

// TraceEvent is one entry in the execution trace: a single attempt of
// a single step, or a gate poll tick.
type TraceEvent struct {
	Step       string    `json:"step"`
	Attempt    int       `json:"attempt"`
	Start      time.Time `json:"start"`
	DurationMs int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
}

// Probe tells Observe what to look for when deciding the gate outcome.
type Probe struct {
	SuccessSelector string
	RejectSelector  string
	PinSelector     string
	// DownloadGlob, when set, confirms the gate as soon as a matching
	// file appears in the session's download directory.
	DownloadGlob string
}

// Observation is one gate poll result.
type Observation struct {
	Success  bool
	Rejected bool
	Reason   string
	Pin      string
	Excerpt  string
	Download string
}

// Recorder collects diagnostic artifacts for one job. Finalize is
// idempotent: the first call flushes and persists, later calls return
// the same ArtifactSet.
type Recorder interface {
	TraceStep(ev TraceEvent)
	Screenshot(name string)
	Finalize() (model.ArtifactSet, error)
}

// Session is the engine's view of one leased browser session bound to
// a display slot. Implementations live in internal/browser; tests use
// fakes.
type Session interface {
	ID() string
	Apply(ctx context.Context, step Step) error
	Observe(ctx context.Context, probe Probe) (Observation, error)
	Record(opts RecordOptions, dir string) (Recorder, error)
	// Fatal reports whether the session hit a browser-level failure
	// and must not be reused.
	Fatal() bool
	Close() error
}

// Factory creates a new session bound to the given display slot.
// Called by the pool under demand, never concurrently for one slot.
type Factory func(ctx context.Context, slot int) (Session, error)
