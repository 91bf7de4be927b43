package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/beatbox/internal/domain/track"
)

func queued(paths ...string) []track.Track {
	out := make([]track.Track, 0, len(paths))
	for _, p := range paths {
		out = append(out, track.Track{Path: p, Title: p})
	}
	return out
}

func TestState_HeadAndPopHead(t *testing.T) {
	st := &State{ID: "g"}
	st.Lock()
	defer st.Unlock()

	_, ok := st.Head()
	assert.False(t, ok)
	_, ok = st.PopHead()
	assert.False(t, ok)

	st.Queue = queued("a", "b")

	head, ok := st.Head()
	require.True(t, ok)
	assert.Equal(t, "a", head.Path)
	assert.Len(t, st.Queue, 2, "Head must not mutate the queue")

	popped, ok := st.PopHead()
	require.True(t, ok)
	assert.Equal(t, "a", popped.Path)
	assert.Equal(t, queued("b"), st.Queue)
}

func TestState_RotateHead(t *testing.T) {
	tests := []struct {
		name     string
		queue    []string
		expected []string
	}{
		{
			name:     "empty queue",
			queue:    nil,
			expected: nil,
		},
		{
			name:     "single track stays put",
			queue:    []string{"a"},
			expected: []string{"a"},
		},
		{
			name:     "head moves to tail",
			queue:    []string{"a", "b", "c"},
			expected: []string{"b", "c", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &State{ID: "g", Queue: queued(tt.queue...)}
			st.Lock()
			defer st.Unlock()

			before := len(st.Queue)
			st.RotateHead()
			assert.Len(t, st.Queue, before, "rotation must preserve queue length")
			assert.Equal(t, queued(tt.expected...), st.Queue)
		})
	}
}

func TestState_DropHead(t *testing.T) {
	tests := []struct {
		name        string
		queue       []string
		n           int
		wantDropped []string
		wantLeft    []string
	}{
		{
			name:        "drop one",
			queue:       []string{"a", "b", "c"},
			n:           1,
			wantDropped: []string{"a"},
			wantLeft:    []string{"b", "c"},
		},
		{
			name:        "drop several",
			queue:       []string{"a", "b", "c"},
			n:           2,
			wantDropped: []string{"a", "b"},
			wantLeft:    []string{"c"},
		},
		{
			name:        "drop more than queued",
			queue:       []string{"a", "b"},
			n:           5,
			wantDropped: []string{"a", "b"},
			wantLeft:    nil,
		},
		{
			name:        "drop zero",
			queue:       []string{"a"},
			n:           0,
			wantDropped: nil,
			wantLeft:    []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &State{ID: "g", Queue: queued(tt.queue...)}
			st.Lock()
			defer st.Unlock()

			dropped := st.DropHead(tt.n)
			if len(tt.wantDropped) == 0 {
				assert.Empty(t, dropped)
			} else {
				assert.Equal(t, queued(tt.wantDropped...), dropped)
			}
			if len(tt.wantLeft) == 0 {
				assert.Empty(t, st.Queue)
			} else {
				assert.Equal(t, queued(tt.wantLeft...), st.Queue)
			}
		})
	}
}

func TestState_PathQueued(t *testing.T) {
	st := &State{ID: "g", Queue: queued("a", "b", "a")}
	st.Lock()
	defer st.Unlock()

	assert.True(t, st.PathQueued("a"))
	assert.True(t, st.PathQueued("b"))
	assert.False(t, st.PathQueued("c"))
}

func TestState_Tracks_ReturnsCopy(t *testing.T) {
	st := &State{ID: "g", Queue: queued("a", "b")}
	st.Lock()
	snapshot := st.Tracks()
	st.Unlock()

	snapshot[0].Path = "mutated"

	st.Lock()
	defer st.Unlock()
	assert.Equal(t, "a", st.Queue[0].Path, "snapshot mutation must not affect the queue")
}

func TestState_SkipMarker_ConsumedExactlyOnce(t *testing.T) {
	st := &State{ID: "g"}

	st.Lock()
	assert.False(t, st.ConsumeSkip(), "unset marker must read false")
	st.MarkSkip()
	st.Unlock()

	const workers = 16
	consumed := make(chan bool, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Lock()
			consumed <- st.ConsumeSkip()
			st.Unlock()
		}()
	}
	wg.Wait()
	close(consumed)

	trueCount := 0
	for c := range consumed {
		if c {
			trueCount++
		}
	}
	assert.Equal(t, 1, trueCount, "exactly one consumer observes the marker")
}

func TestState_Close(t *testing.T) {
	st := &State{ID: "g"}
	st.Lock()
	defer st.Unlock()

	assert.False(t, st.Closed())
	st.Close()
	assert.True(t, st.Closed())
}
