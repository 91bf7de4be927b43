package source

import (
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/beatbox/internal/infra/config"
)

// NewResolverChainFromConfig creates a resolver chain from configuration.
func NewResolverChainFromConfig(cfg *config.Config) (*ResolverChain, error) {
	if len(cfg.Downloads.Providers) == 0 {
		return nil, errors.New("no download providers configured")
	}

	timeout := time.Duration(cfg.Downloads.TimeoutSec) * time.Second

	var resolvers []ResolverWithMetadata

	for i, pcfg := range cfg.Downloads.Providers {
		var resolver Resolver
		var err error
		zlog.Debug().Msgf("creating resolver: index=%d type=%s settings=%+v", i+1, pcfg.Type, pcfg.Settings)
		switch pcfg.Type {
		case "ytdlp":
			resolver, err = NewYtdlpResolver(timeout, pcfg.Settings)

		case "local":
			resolver, err = NewLocalResolver(pcfg.Settings)

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create resolver (index %d, type %s)", i, pcfg.Type)
		}

		displayName := pcfg.DisplayName
		if displayName == "" {
			displayName = pcfg.Type
		}

		resolvers = append(resolvers, ResolverWithMetadata{
			Resolver:    resolver,
			DisplayName: displayName,
		})

		zlog.Info().Msgf("registered resolver: index=%d type=%s display_name=%s", i+1, pcfg.Type, displayName)
	}

	return NewResolverChain(resolvers), nil
}
