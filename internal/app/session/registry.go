// Package session provides per-guild playback session state and the
// registry that maps guild IDs to live sessions.
package session

import "sync"

// Registry manages session states with thread-safe access. A session exists
// in the registry only while the bot holds (or is establishing) a voice
// connection for that guild.
type Registry struct {
	mu            sync.RWMutex
	states        map[string]*State
	defaultVolume float64
}

// NewRegistry creates a new session registry. New sessions start at
// defaultVolume.
func NewRegistry(defaultVolume float64) *Registry {
	return &Registry{
		states:        make(map[string]*State),
		defaultVolume: defaultVolume,
	}
}

// GetOrCreate returns the session for the given guild, creating it if absent.
// Callers must check Closed() after locking: a concurrent teardown may have
// retired the returned state, in which case a fresh lookup is required.
func (r *Registry) GetOrCreate(guildID string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.states[guildID]; ok {
		return st
	}

	st := &State{
		ID:     guildID,
		Volume: r.defaultVolume,
	}
	r.states[guildID] = st
	return st
}

// Get retrieves the session for the given guild.
func (r *Registry) Get(guildID string) (*State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.states[guildID]
	return st, ok
}

// Remove deletes the session for the given guild. Removing an absent
// session is a no-op.
func (r *Registry) Remove(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, guildID)
}

// IDs returns the guild IDs of all live sessions.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.states))
	for id := range r.states {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}
