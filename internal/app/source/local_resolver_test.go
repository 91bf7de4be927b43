package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLibrary(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))
	}
	return dir
}

func TestNewLocalResolver(t *testing.T) {
	tests := []struct {
		name     string
		settings func(t *testing.T) map[string]any
		wantErr  string
	}{
		{
			name: "valid dir",
			settings: func(t *testing.T) map[string]any {
				return map[string]any{"dir": newLibrary(t)}
			},
		},
		{
			name: "missing dir setting",
			settings: func(t *testing.T) map[string]any {
				return map[string]any{}
			},
			wantErr: "validation failed",
		},
		{
			name: "nonexistent dir",
			settings: func(t *testing.T) map[string]any {
				return map[string]any{"dir": filepath.Join(t.TempDir(), "nope")}
			},
			wantErr: "not accessible",
		},
		{
			name: "dir is a file",
			settings: func(t *testing.T) map[string]any {
				lib := newLibrary(t, "song.mp3")
				return map[string]any{"dir": filepath.Join(lib, "song.mp3")}
			},
			wantErr: "not a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewLocalResolver(tt.settings(t))

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "local", r.Name())
			}
		})
	}
}

func TestLocalResolver_Resolve(t *testing.T) {
	lib := newLibrary(t,
		"Morning Coffee.mp3",
		"Evening Rain.webm",
		"nested/Night Drive.m4a",
		"notes.txt",
	)
	r, err := NewLocalResolver(map[string]any{"dir": lib})
	require.NoError(t, err)

	tests := []struct {
		name      string
		query     string
		wantTitle string
		wantErr   error
	}{
		{
			name:      "case insensitive match",
			query:     "morning",
			wantTitle: "Morning Coffee",
		},
		{
			name:      "match in nested dir",
			query:     "night drive",
			wantTitle: "Night Drive",
		},
		{
			name:    "no match",
			query:   "unknown song",
			wantErr: ErrNoResults,
		},
		{
			name:    "non-audio extension not matched",
			query:   "notes",
			wantErr: ErrNoResults,
		},
		{
			name:    "blank query",
			query:   "   ",
			wantErr: ErrNoResults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			destDir := t.TempDir()

			got, err := r.Resolve(context.Background(), tt.query, destDir)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, got.Title)
			assert.NotEmpty(t, got.SourceID)
			assert.FileExists(t, got.Path)
			assert.Equal(t, destDir, filepath.Dir(got.Path), "copy should land in the session dir")
		})
	}
}

func TestLocalResolver_CopiesDoNotCollide(t *testing.T) {
	lib := newLibrary(t, "Song.mp3")
	r, err := NewLocalResolver(map[string]any{"dir": lib})
	require.NoError(t, err)
	destDir := t.TempDir()

	first, err := r.Resolve(context.Background(), "song", destDir)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "song", destDir)
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path,
		"each resolve should produce an independently deletable copy")
	require.NoError(t, os.Remove(first.Path))
	assert.FileExists(t, second.Path)
}

func TestLocalResolver_RejectsBadExtensionSetting(t *testing.T) {
	_, err := NewLocalResolver(map[string]any{
		"dir":        t.TempDir(),
		"extensions": 42,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode settings")
}
