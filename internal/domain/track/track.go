// Package track provides the queued media track entity.
package track

import "time"

// Track represents one downloaded audio item in a session's queue.
// Contains the on-disk path plus the metadata reported by the resolver.
// Immutable once enqueued.
type Track struct {
	SourceID     string        // Extractor media ID (e.g. YouTube video ID)
	Title        string        // Track title
	Uploader     string        // Channel or uploader name
	Duration     time.Duration // Track duration (zero if unknown)
	ThumbnailURL string        // Thumbnail URL (optional)
	Path         string        // Absolute or workdir-relative path of the downloaded file
}

// DisplayTitle returns the title, falling back to the source ID when the
// extractor reported none.
func (t Track) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	if t.SourceID != "" {
		return t.SourceID
	}
	return "Unknown"
}

// HasDuration reports whether the resolver provided a usable duration.
func (t Track) HasDuration() bool {
	return t.Duration > 0
}
