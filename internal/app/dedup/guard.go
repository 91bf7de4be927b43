// Package dedup provides an at-most-once execution guard for command
// identifiers. Gateway events can be redelivered; handlers acquire their
// command's ID on entry and release it on exit, so a duplicate delivery
// that arrives while the first is still in flight is rejected.
package dedup

import "sync"

// Guard tracks in-flight command identifiers.
type Guard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewGuard creates a new guard.
func NewGuard() *Guard {
	return &Guard{
		active: make(map[string]struct{}),
	}
}

// Acquire claims the given identifier. It returns a release function and
// true when the claim succeeded, or false when the identifier is already
// in flight. Release is idempotent, so a deferred call is always safe.
func (g *Guard) Acquire(id string) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.active[id]; ok {
		return nil, false
	}
	g.active[id] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.active, id)
		})
	}
	return release, true
}

// InFlight returns the number of currently held identifiers.
func (g *Guard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}
