package source

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/beatbox/internal/domain/track"
)

// ResolverWithMetadata wraps a resolver with its metadata.
type ResolverWithMetadata struct {
	Resolver    Resolver
	DisplayName string
}

// ResolverChain tries multiple resolvers in order until one produces a track.
type ResolverChain struct {
	resolvers []ResolverWithMetadata
}

// NewResolverChain creates a new resolver chain.
func NewResolverChain(resolvers []ResolverWithMetadata) *ResolverChain {
	return &ResolverChain{
		resolvers: resolvers,
	}
}

// Resolve tries each resolver in order. Resolvers reporting ErrNoResults
// fall through to the next one; the first track found wins.
func (c *ResolverChain) Resolve(ctx context.Context, query, destDir string) (track.Track, error) {
	var lastErr error

	for i, rm := range c.resolvers {
		zlog.Debug().Msgf("trying resolver: index=%d total=%d name=%s resolver_type=%s",
			i+1, len(c.resolvers), rm.DisplayName, rm.Resolver.Name())

		t, err := rm.Resolver.Resolve(ctx, query, destDir)
		if err != nil {
			if errors.Is(err, ErrNoResults) {
				zlog.Debug().Msgf("resolver found nothing: resolver=%s query=%s", rm.DisplayName, query)
				continue
			}
			zlog.Warn().Msgf("resolver failed, trying next: resolver=%s error=%v", rm.DisplayName, err)
			lastErr = err
			continue
		}

		zlog.Info().Msgf("resolved query: resolver=%s query=%s track=%s path=%s",
			rm.DisplayName, query, t.DisplayTitle(), t.Path)
		return t, nil
	}

	if lastErr != nil {
		return track.Track{}, lastErr
	}
	return track.Track{}, ErrNoResults
}

// Name returns the chain name.
func (c *ResolverChain) Name() string {
	return "resolver_chain"
}
