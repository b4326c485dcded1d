package engine

import "sync"

// ManualGate parks jobs that asked for a human pause (headed
// deployments where an operator solves the CAPTCHA before submission)
// until the matching resume token arrives over the API.
type ManualGate struct {
	mu      sync.Mutex
	waiting map[string]chan struct{}
}

func NewManualGate() *ManualGate {
	return &ManualGate{waiting: make(map[string]chan struct{})}
}

// Hold registers a token and returns the channel the job blocks on.
func (g *ManualGate) Hold(token string) <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.waiting[token] = ch
	return ch
}

// Resume releases the job holding the token. It reports false for
// unknown or already-resumed tokens.
func (g *ManualGate) Resume(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.waiting[token]
	if !ok {
		return false
	}
	close(ch)
	delete(g.waiting, token)
	return true
}

// Forget drops a token whose job stopped waiting (pause window
// elapsed or the job was cancelled).
func (g *ManualGate) Forget(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.waiting, token)
}
