package engine

import "testing"

func TestManualGateResume(t *testing.T) {
	g := NewManualGate()

	ch := g.Hold("tok")
	select {
	case <-ch:
		t.Fatal("channel closed before resume")
	default:
	}

	if !g.Resume("tok") {
		t.Fatal("resume failed for held token")
	}
	select {
	case <-ch:
	default:
		t.Fatal("channel not closed after resume")
	}

	if g.Resume("tok") {
		t.Fatal("token should be single-use")
	}
}

func TestManualGateUnknownToken(t *testing.T) {
	g := NewManualGate()
	if g.Resume("nope") {
		t.Fatal("unknown token must not resume")
	}
}

func TestManualGateForget(t *testing.T) {
	g := NewManualGate()
	g.Hold("tok")
	g.Forget("tok")
	if g.Resume("tok") {
		t.Fatal("forgotten token must not resume")
	}
}
