package playback

import "github.com/osa030/beatbox/internal/domain/track"

// Status is a point-in-time snapshot of a guild session.
type Status struct {
	Current track.Track
	Queue   []track.Track // full queue, head first (head is the current track)
	Loop    bool
	Paused  bool
	Volume  float64
}
