package session

import (
	"sync"

	"github.com/osa030/beatbox/internal/domain/track"
)

// Handle controls one in-flight playback started on a Connection. Stop must
// be idempotent; the completion callback registered at start fires exactly
// once regardless of how playback ends.
type Handle interface {
	Stop()
	Pause()
	Resume()
	Playing() bool
	Paused() bool
	SetVolume(v float64)
}

// Connection is the voice transport bound to one session.
type Connection interface {
	Connected() bool
	ChannelID() string
	Disconnect() error
	Play(path string, volume float64, onDone func(error)) (Handle, error)
}

// State holds one guild's queue and playback bookkeeping. All fields and
// the helper methods below are guarded by the state's own lock; callers
// lock around every read-modify sequence so that command handlers and the
// playback continuation for the same guild never interleave.
type State struct {
	mu sync.Mutex

	ID string // guild ID, immutable after creation

	// NoticeChannelID is the text channel of the most recent play command,
	// used for notices originating outside a command (e.g. queue exhausted
	// because files went missing).
	NoticeChannelID string

	Queue  []track.Track // index 0 is now playing
	Loop   bool
	Volume float64 // 0.0..1.0

	Conn    Connection // nil until the voice connection is established
	Current Handle     // nil when nothing is playing

	skipPending bool
	closed      bool
}

// Lock acquires the session's exclusive lock.
func (s *State) Lock() { s.mu.Lock() }

// Unlock releases the session's exclusive lock.
func (s *State) Unlock() { s.mu.Unlock() }

// Head returns the now-playing track. Callers must hold the lock.
func (s *State) Head() (track.Track, bool) {
	if len(s.Queue) == 0 {
		return track.Track{}, false
	}
	return s.Queue[0], true
}

// PopHead removes and returns the head track. Callers must hold the lock.
func (s *State) PopHead() (track.Track, bool) {
	if len(s.Queue) == 0 {
		return track.Track{}, false
	}
	head := s.Queue[0]
	s.Queue = s.Queue[1:]
	return head, true
}

// RotateHead moves the head track to the tail, preserving queue length.
// Used on natural completion while looping. Callers must hold the lock.
func (s *State) RotateHead() {
	if len(s.Queue) < 2 {
		return
	}
	// 先頭を末尾へ回す
	head := s.Queue[0]
	s.Queue = append(s.Queue[1:], head)
}

// DropHead removes up to n tracks from the front and returns them.
// Callers must hold the lock.
func (s *State) DropHead(n int) []track.Track {
	if n > len(s.Queue) {
		n = len(s.Queue)
	}
	if n <= 0 {
		return nil
	}
	dropped := make([]track.Track, n)
	copy(dropped, s.Queue[:n])
	s.Queue = s.Queue[n:]
	return dropped
}

// PathQueued reports whether any queued track still references the given
// file path. Callers must hold the lock.
func (s *State) PathQueued(path string) bool {
	for _, t := range s.Queue {
		if t.Path == path {
			return true
		}
	}
	return false
}

// Tracks returns a copy of the queue. Callers must hold the lock.
func (s *State) Tracks() []track.Track {
	out := make([]track.Track, len(s.Queue))
	copy(out, s.Queue)
	return out
}

// MarkSkip flags that the next completion callback results from an explicit
// skip rather than natural exhaustion. Callers must hold the lock.
func (s *State) MarkSkip() {
	s.skipPending = true
}

// ConsumeSkip clears the skip flag and reports whether it was set. At most
// one caller observes true per MarkSkip. Callers must hold the lock.
func (s *State) ConsumeSkip() bool {
	was := s.skipPending
	s.skipPending = false
	return was
}

// Close marks the session as torn down so late completion callbacks no-op.
// Callers must hold the lock.
func (s *State) Close() {
	s.closed = true
}

// Closed reports whether the session has been torn down. Callers must hold
// the lock.
func (s *State) Closed() bool {
	return s.closed
}
