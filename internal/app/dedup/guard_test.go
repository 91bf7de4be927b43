package dedup

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_AcquireRelease(t *testing.T) {
	g := NewGuard()

	release, ok := g.Acquire("msg-1")
	require.True(t, ok)
	require.NotNil(t, release)
	assert.Equal(t, 1, g.InFlight())

	// Duplicate delivery while in flight is rejected
	_, ok = g.Acquire("msg-1")
	assert.False(t, ok)

	// Unrelated identifiers are independent
	release2, ok := g.Acquire("msg-2")
	require.True(t, ok)
	assert.Equal(t, 2, g.InFlight())

	release()
	assert.Equal(t, 1, g.InFlight())

	// After release the identifier may be claimed again
	release3, ok := g.Acquire("msg-1")
	require.True(t, ok)

	release2()
	release3()
	assert.Equal(t, 0, g.InFlight())
}

func TestGuard_ReleaseIsIdempotent(t *testing.T) {
	g := NewGuard()

	release, ok := g.Acquire("msg-1")
	require.True(t, ok)

	release()
	release() // second call must not panic or free someone else's claim

	again, ok := g.Acquire("msg-1")
	require.True(t, ok)
	release() // stale release from the first claim
	assert.Equal(t, 1, g.InFlight(), "stale release must not drop the new claim")
	again()
	assert.Equal(t, 0, g.InFlight())
}

func TestGuard_ConcurrentAcquire_AtMostOnce(t *testing.T) {
	g := NewGuard()

	const workers = 64
	var wg sync.WaitGroup
	wins := make(chan func(), workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if release, ok := g.Acquire("msg-1"); ok {
				wins <- release
			}
		}()
	}
	wg.Wait()
	close(wins)

	var releases []func()
	for r := range wins {
		releases = append(releases, r)
	}
	require.Len(t, releases, 1, "exactly one worker wins the claim")

	releases[0]()
	assert.Equal(t, 0, g.InFlight())
}
