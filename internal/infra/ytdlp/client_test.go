package ytdlp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsURL(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{
			name:  "https url",
			query: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want:  true,
		},
		{
			name:  "http url",
			query: "http://example.com/video",
			want:  true,
		},
		{
			name:  "uppercase scheme",
			query: "HTTPS://example.com",
			want:  true,
		},
		{
			name:  "search terms",
			query: "never gonna give you up",
			want:  false,
		},
		{
			name:  "scheme in the middle",
			query: "watch https://example.com",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsURL(tt.query))
		})
	}
}

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   *Metadata
		wantOK bool
	}{
		{
			name:   "complete line",
			stdout: "dQw4w9WgXcQ\tNever Gonna Give You Up\tRick Astley\t212\thttps://i.ytimg.com/vi/dQw4w9WgXcQ/hq720.jpg\twebm\n",
			want: &Metadata{
				ID:        "dQw4w9WgXcQ",
				Title:     "Never Gonna Give You Up",
				Uploader:  "Rick Astley",
				Duration:  212 * time.Second,
				Thumbnail: "https://i.ytimg.com/vi/dQw4w9WgXcQ/hq720.jpg",
				Ext:       "webm",
			},
			wantOK: true,
		},
		{
			name:   "missing fields printed as NA",
			stdout: "abc123\tNA\tNA\tNA\tNA\tm4a",
			want: &Metadata{
				ID:  "abc123",
				Ext: "m4a",
			},
			wantOK: true,
		},
		{
			name:   "fractional duration",
			stdout: "abc123\tClip\tSomeone\t12.5\tNA\twebm",
			want: &Metadata{
				ID:       "abc123",
				Title:    "Clip",
				Uploader: "Someone",
				Duration: 12500 * time.Millisecond,
				Ext:      "webm",
			},
			wantOK: true,
		},
		{
			name:   "skips malformed lines before a valid one",
			stdout: "garbage\nabc123\tClip\tSomeone\t10\tNA\twebm",
			want: &Metadata{
				ID:       "abc123",
				Title:    "Clip",
				Uploader: "Someone",
				Duration: 10 * time.Second,
				Ext:      "webm",
			},
			wantOK: true,
		},
		{
			name:   "empty output",
			stdout: "",
			wantOK: false,
		},
		{
			name:   "id printed as NA",
			stdout: "NA\tTitle\tUploader\t10\tNA\twebm",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseMetadata(tt.stdout)

			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{
			name: "strips ansi codes",
			msg:  "\x1b[0;31mERROR:\x1b[0m Video unavailable",
			want: "Video unavailable",
		},
		{
			name: "strips leading error marker",
			msg:  "ERROR: [youtube] abc: Private video",
			want: "[youtube] abc: Private video",
		},
		{
			name: "lowercase error marker",
			msg:  "error: something broke",
			want: "something broke",
		},
		{
			name: "plain message untouched",
			msg:  "Video unavailable",
			want: "Video unavailable",
		},
		{
			name: "surrounding whitespace trimmed",
			msg:  "  network timeout  ",
			want: "network timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeError(tt.msg))
		})
	}
}

func TestNewClient_ClampsConcurrency(t *testing.T) {
	c := NewClient(Config{MaxConcurrent: 0})
	require.NotNil(t, c.sem)
}
