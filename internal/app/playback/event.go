package playback

import "github.com/osa030/beatbox/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted EventType = iota // A queued track began playing
	EventTrackDropped                  // A track was dropped without playing
	EventSessionEnded                  // The guild session was torn down
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackDropped:
		return "track_dropped"
	case EventSessionEnded:
		return "session_ended"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type      EventType
	GuildID   string
	ChannelID string // text channel for user-facing announcements
	Track     track.Track
	Detail    string // extra context for dropped tracks
}
