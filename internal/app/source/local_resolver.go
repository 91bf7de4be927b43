package source

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/beatbox/internal/domain/track"
)

// LocalResolverConfig holds the local library resolver settings.
type LocalResolverConfig struct {
	Dir        string   `yaml:"dir" mapstructure:"dir" validate:"required"`
	Extensions []string `yaml:"extensions" mapstructure:"extensions" default:"[\"mp3\",\"m4a\",\"webm\",\"opus\",\"ogg\",\"wav\",\"flac\"]"`
}

// LocalResolver resolves queries against audio files in a local library
// directory. Matches are copied into the session directory so playback
// files can always be deleted without touching the library.
type LocalResolver struct {
	dir        string
	extensions map[string]struct{}
}

// NewLocalResolver creates a new local library resolver.
func NewLocalResolver(settings map[string]any) (*LocalResolver, error) {
	var config LocalResolverConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	info, err := os.Stat(config.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "library dir %s is not accessible", config.Dir)
	}
	if !info.IsDir() {
		return nil, errors.Newf("library path %s is not a directory", config.Dir)
	}

	extensions := make(map[string]struct{}, len(config.Extensions))
	for _, ext := range config.Extensions {
		extensions[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	return &LocalResolver{
		dir:        config.Dir,
		extensions: extensions,
	}, nil
}

// Resolve looks for a library file whose name contains the query and
// copies the first match into destDir under a fresh ID.
func (r *LocalResolver) Resolve(ctx context.Context, query, destDir string) (track.Track, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return track.Track{}, ErrNoResults
	}

	match, err := r.findMatch(ctx, needle)
	if err != nil {
		return track.Track{}, err
	}
	if match == "" {
		return track.Track{}, ErrNoResults
	}

	id := uuid.NewString()
	dest := filepath.Join(destDir, id+filepath.Ext(match))
	if err := copyFile(match, dest); err != nil {
		return track.Track{}, errors.Wrapf(err, "failed to copy %s", match)
	}

	title := strings.TrimSuffix(filepath.Base(match), filepath.Ext(match))
	return track.Track{
		SourceID: id,
		Title:    title,
		Path:     dest,
	}, nil
}

// Name returns the resolver name.
func (r *LocalResolver) Name() string {
	return "local"
}

// findMatch walks the library and returns the first file whose base name
// contains needle, or "" when nothing matches.
func (r *LocalResolver) findMatch(ctx context.Context, needle string) (string, error) {
	var match string
	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if _, ok := r.extensions[ext]; !ok {
			return nil
		}

		name := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		if strings.Contains(name, needle) {
			match = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to scan library")
	}
	return match, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
