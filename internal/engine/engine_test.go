package engine

import (
	"context"
	"errors"
	"sync"

	"mdac/internal/model"
)

// fakeSession is a scriptable Session for pool, executor, gate, and
// coordinator tests.
type fakeSession struct {
	id string

	mu         sync.Mutex
	applied    []string
	failures   map[string]int // remaining transient failures per step name
	alwaysFail map[string]bool
	fatal      bool
	closed     bool

	obs      func(call int) (Observation, error)
	obsCalls int

	rec *fakeRecorder
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{
		id:         id,
		failures:   make(map[string]int),
		alwaysFail: make(map[string]bool),
		rec:        &fakeRecorder{},
	}
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Apply(ctx context.Context, step Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, step.Name)
	if s.alwaysFail[step.Name] {
		return errors.New("apply failed: " + step.Name)
	}
	if n := s.failures[step.Name]; n > 0 {
		s.failures[step.Name] = n - 1
		return errors.New("transient: " + step.Name)
	}
	return nil
}

func (s *fakeSession) Observe(ctx context.Context, probe Probe) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return Observation{}, err
	}
	s.mu.Lock()
	s.obsCalls++
	call := s.obsCalls
	fn := s.obs
	s.mu.Unlock()
	if fn == nil {
		return Observation{}, nil
	}
	return fn(call)
}

func (s *fakeSession) Record(opts RecordOptions, dir string) (Recorder, error) {
	return s.rec, nil
}

func (s *fakeSession) Fatal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatal
}

func (s *fakeSession) setFatal() {
	s.mu.Lock()
	s.fatal = true
	s.mu.Unlock()
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) appliedSteps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.applied))
	copy(out, s.applied)
	return out
}

// fakeRecorder counts interactions and returns a fixed artifact set.
type fakeRecorder struct {
	mu        sync.Mutex
	events    []TraceEvent
	shots     []string
	finalized int
	arts      model.ArtifactSet
}

func (r *fakeRecorder) TraceStep(ev TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *fakeRecorder) Screenshot(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shots = append(r.shots, name)
}

func (r *fakeRecorder) Finalize() (model.ArtifactSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalized++
	return r.arts, nil
}

func (r *fakeRecorder) finalizeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized
}
