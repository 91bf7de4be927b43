package source

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/beatbox/internal/domain/track"
	"github.com/osa030/beatbox/internal/infra/ytdlp"
)

// YtdlpResolverConfig holds the yt-dlp resolver settings.
type YtdlpResolverConfig struct {
	Format           string `yaml:"format" mapstructure:"format" default:"bestaudio[ext=webm]/bestaudio" validate:"required"`
	SearchPrefix     string `yaml:"search_prefix" mapstructure:"search_prefix" default:"ytsearch" validate:"required"`
	SocketTimeoutSec int    `yaml:"socket_timeout_sec" mapstructure:"socket_timeout_sec" default:"10" validate:"gte=1"`
	Retries          int    `yaml:"retries" mapstructure:"retries" default:"3" validate:"gte=0"`
	MaxConcurrent    int64  `yaml:"max_concurrent" mapstructure:"max_concurrent" default:"3" validate:"gte=1"`
}

// YtdlpResolver resolves queries by downloading audio through yt-dlp.
type YtdlpResolver struct {
	client  *ytdlp.Client
	timeout time.Duration
}

// NewYtdlpResolver creates a new yt-dlp backed resolver.
func NewYtdlpResolver(timeout time.Duration, settings map[string]any) (*YtdlpResolver, error) {
	var config YtdlpResolverConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	client := ytdlp.NewClient(ytdlp.Config{
		Format:        config.Format,
		SearchPrefix:  config.SearchPrefix,
		SocketTimeout: config.SocketTimeoutSec,
		Retries:       config.Retries,
		MaxConcurrent: config.MaxConcurrent,
	})

	return &YtdlpResolver{
		client:  client,
		timeout: timeout,
	}, nil
}

// Resolve downloads the best audio match for query into destDir.
func (r *YtdlpResolver) Resolve(ctx context.Context, query, destDir string) (track.Track, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	meta, err := r.client.Download(ctx, query, destDir)
	if err != nil {
		if errors.Is(err, ytdlp.ErrNoResults) {
			return track.Track{}, ErrNoResults
		}
		return track.Track{}, err
	}

	return track.Track{
		SourceID:     meta.ID,
		Title:        meta.Title,
		Uploader:     meta.Uploader,
		Duration:     meta.Duration,
		ThumbnailURL: meta.Thumbnail,
		Path:         meta.Path,
	}, nil
}

// Name returns the resolver name.
func (r *YtdlpResolver) Name() string {
	return "ytdlp"
}
