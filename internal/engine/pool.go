package engine

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrPoolExhausted is returned when no session becomes available
	// within the acquire timeout. Callers may retry later.
	ErrPoolExhausted = errors.New("session pool exhausted")
	// ErrPoolClosed is returned once Shutdown has been called.
	ErrPoolClosed = errors.New("session pool closed")
)

// Pool owns a bounded set of browser sessions. Sessions are created
// lazily up to the configured maximum and reused from the idle set in
// most-recently-released-first order. The permit channel is the single
// serialization point for concurrent jobs; idle-set and bookkeeping
// mutations happen under the mutex.
type Pool struct {
	factory        Factory
	permits        chan struct{}
	acquireTimeout time.Duration

	mu        sync.Mutex
	idle      []Session
	leased    map[string]Session
	slotOf    map[string]int
	freeSlots []int
	closed    bool
}

// PoolStats is a snapshot for the health endpoint.
type PoolStats struct {
	Capacity int `json:"capacity"`
	Idle     int `json:"idle"`
	Leased   int `json:"leased"`
}

func NewPool(factory Factory, maxSessions int, acquireTimeout time.Duration) *Pool {
	if maxSessions <= 0 {
		maxSessions = 1
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 30 * time.Second
	}

	slots := make([]int, maxSessions)
	for i := range slots {
		slots[i] = i
	}

	return &Pool{
		factory:        factory,
		permits:        make(chan struct{}, maxSessions),
		acquireTimeout: acquireTimeout,
		leased:         make(map[string]Session),
		slotOf:         make(map[string]int),
		freeSlots:      slots,
	}
}

// Acquire blocks until a session is available or the acquire timeout
// elapses. Only the calling job waits; other jobs are unaffected.
func (p *Pool) Acquire(ctx context.Context) (Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case p.permits <- struct{}{}:
	case <-timer.C:
		return nil, ErrPoolExhausted
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.permits
		return nil, ErrPoolClosed
	}

	// Reuse the most recently released session first: its browser is
	// warm and its profile caches are hot.
	if n := len(p.idle); n > 0 {
		s := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.leased[s.ID()] = s
		p.mu.Unlock()
		return s, nil
	}

	slot := p.freeSlots[len(p.freeSlots)-1]
	p.freeSlots = p.freeSlots[:len(p.freeSlots)-1]
	p.mu.Unlock()

	// Session creation happens outside the lock; it launches a browser
	// process and can take seconds.
	s, err := p.factory(ctx, slot)
	if err != nil {
		p.mu.Lock()
		p.freeSlots = append(p.freeSlots, slot)
		p.mu.Unlock()
		<-p.permits
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.freeSlots = append(p.freeSlots, slot)
		p.mu.Unlock()
		_ = s.Close()
		<-p.permits
		return nil, ErrPoolClosed
	}
	p.leased[s.ID()] = s
	p.slotOf[s.ID()] = slot
	p.mu.Unlock()

	return s, nil
}

// Release returns a session to the idle set, or destroys it when it
// ended in a fatal error or the pool is shutting down. The pool
// replaces destroyed sessions lazily on next demand.
func (p *Pool) Release(s Session) {
	if s == nil {
		return
	}

	p.mu.Lock()
	if _, ok := p.leased[s.ID()]; !ok {
		// Not one of ours, or already released.
		p.mu.Unlock()
		return
	}
	delete(p.leased, s.ID())

	if p.closed || s.Fatal() {
		if slot, ok := p.slotOf[s.ID()]; ok {
			p.freeSlots = append(p.freeSlots, slot)
			delete(p.slotOf, s.ID())
		}
		p.mu.Unlock()
		_ = s.Close()
		<-p.permits
		return
	}

	p.idle = append(p.idle, s)
	p.mu.Unlock()
	<-p.permits
}

// Shutdown force-closes all sessions, idle and leased, and makes
// subsequent Acquire calls fail with ErrPoolClosed.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true

	victims := make([]Session, 0, len(p.idle)+len(p.leased))
	victims = append(victims, p.idle...)
	for _, s := range p.leased {
		victims = append(victims, s)
	}
	p.idle = nil
	p.mu.Unlock()

	for _, s := range victims {
		_ = s.Close()
	}
}

// Stats reports current saturation for health checks.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Capacity: cap(p.permits),
		Idle:     len(p.idle),
		Leased:   len(p.leased),
	}
}
