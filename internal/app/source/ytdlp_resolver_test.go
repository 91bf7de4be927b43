package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewYtdlpResolver_Settings(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
		errMsg   string
	}{
		{
			name:     "empty settings use defaults",
			settings: nil,
			wantErr:  false,
		},
		{
			name: "explicit settings",
			settings: map[string]any{
				"format":             "bestaudio",
				"search_prefix":      "ytsearch",
				"socket_timeout_sec": 30,
				"retries":            5,
				"max_concurrent":     2,
			},
			wantErr: false,
		},
		{
			name: "negative socket timeout",
			settings: map[string]any{
				"socket_timeout_sec": -1,
			},
			wantErr: true,
			errMsg:  "validation failed",
		},
		{
			name: "undecodable setting type",
			settings: map[string]any{
				"retries": []string{"three"},
			},
			wantErr: true,
			errMsg:  "failed to decode settings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewYtdlpResolver(time.Minute, tt.settings)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "ytdlp", r.Name())
			}
		})
	}
}
