// Package source resolves user queries into downloaded audio tracks.
package source

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/beatbox/internal/domain/track"
)

// ErrNoResults is returned when no resolver produced a track for a query.
var ErrNoResults = errors.New("no results found for query")

// Resolver turns a query into a playable track stored under destDir.
type Resolver interface {
	// Resolve downloads or copies the audio for query into destDir and
	// returns its metadata. Returns ErrNoResults when the query matches
	// nothing this resolver knows about.
	Resolve(ctx context.Context, query, destDir string) (track.Track, error)

	// Name returns the resolver name.
	Name() string
}
