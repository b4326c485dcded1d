package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func countingFactory(created *int32) Factory {
	return func(ctx context.Context, slot int) (Session, error) {
		n := atomic.AddInt32(created, 1)
		return newFakeSession(fmt.Sprintf("sess-%d-slot-%d", n, slot)), nil
	}
}

func TestPoolAcquireRelease(t *testing.T) {
	var created int32
	p := NewPool(countingFactory(&created), 2, time.Second)

	s1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	s2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if s1.ID() == s2.ID() {
		t.Fatalf("expected distinct sessions, got %s twice", s1.ID())
	}

	stats := p.Stats()
	if stats.Leased != 2 || stats.Idle != 0 || stats.Capacity != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	p.Release(s1)
	p.Release(s2)

	stats = p.Stats()
	if stats.Leased != 0 || stats.Idle != 2 {
		t.Fatalf("unexpected stats after release: %+v", stats)
	}

	// Most recently released session comes back first.
	s3, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if s3.ID() != s2.ID() {
		t.Fatalf("expected reuse of %s, got %s", s2.ID(), s3.ID())
	}
	if got := atomic.LoadInt32(&created); got != 2 {
		t.Fatalf("expected 2 sessions created, got %d", got)
	}
}

func TestPoolExhausted(t *testing.T) {
	var created int32
	p := NewPool(countingFactory(&created), 1, 50*time.Millisecond)

	s1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	start := time.Now()
	_, err = p.Acquire(context.Background())
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("acquire returned before the timeout: %v", elapsed)
	}

	// The waiter's failure must not leak a permit.
	p.Release(s1)
	if _, err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestPoolFatalSessionDestroyed(t *testing.T) {
	var created int32
	p := NewPool(countingFactory(&created), 1, time.Second)

	s1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	fs := s1.(*fakeSession)
	fs.setFatal()
	p.Release(s1)

	if !fs.closed {
		t.Fatal("fatal session was not closed on release")
	}
	if stats := p.Stats(); stats.Idle != 0 {
		t.Fatalf("fatal session ended up in idle set: %+v", stats)
	}

	// The slot is free again; next acquire creates a fresh session.
	s2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if s2.ID() == s1.ID() {
		t.Fatal("fatal session was reused")
	}
	if got := atomic.LoadInt32(&created); got != 2 {
		t.Fatalf("expected replacement session, created=%d", got)
	}
}

func TestPoolShutdown(t *testing.T) {
	var created int32
	p := NewPool(countingFactory(&created), 2, time.Second)

	s1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	s2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.Release(s2)

	p.Shutdown()

	if !s1.(*fakeSession).closed || !s2.(*fakeSession).closed {
		t.Fatal("shutdown did not close all sessions")
	}
	if _, err := p.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
	// Releasing a leased session after shutdown must not panic.
	p.Release(s1)
}

func TestPoolFactoryErrorReturnsPermit(t *testing.T) {
	boom := errors.New("launch failed")
	fail := true
	factory := func(ctx context.Context, slot int) (Session, error) {
		if fail {
			return nil, boom
		}
		return newFakeSession("ok"), nil
	}
	p := NewPool(factory, 1, 100*time.Millisecond)

	if _, err := p.Acquire(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected factory error, got %v", err)
	}

	fail = false
	if _, err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after factory recovery: %v", err)
	}
}

func TestPoolAcquireHonorsContext(t *testing.T) {
	var created int32
	p := NewPool(countingFactory(&created), 1, time.Minute)

	if _, err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
}
