package discord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/beatbox/internal/app/playback"
	"github.com/osa030/beatbox/internal/domain/track"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{
			name: "unknown",
			d:    0,
			want: "Unknown",
		},
		{
			name: "seconds only",
			d:    42 * time.Second,
			want: "00:42",
		},
		{
			name: "minutes and seconds",
			d:    3*time.Minute + 7*time.Second,
			want: "03:07",
		},
		{
			name: "over an hour",
			d:    time.Hour + 2*time.Minute + 3*time.Second,
			want: "1:02:03",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.d))
		})
	}
}

func TestFormatTotalDuration(t *testing.T) {
	assert.Equal(t, "Unknown", formatTotalDuration(0))
	assert.Equal(t, "00:04:05", formatTotalDuration(4*time.Minute+5*time.Second))
	assert.Equal(t, "02:30:00", formatTotalDuration(2*time.Hour+30*time.Minute))
}

func TestQueueEmbed(t *testing.T) {
	st := playback.Status{
		Queue: []track.Track{
			{Title: "first", Duration: 90 * time.Second},
			{Title: "second", Duration: 30 * time.Second},
			{Title: "third", Duration: 60 * time.Second},
		},
		Loop: true,
	}

	embed := queueEmbed(st, 0x915CBF)

	assert.Equal(t, "Music Queue", embed.Title)
	assert.Equal(t, 0x915CBF, embed.Color)
	require.Len(t, embed.Fields, 4)

	listing := embed.Fields[0].Value
	assert.Contains(t, listing, "▷ first [01:30]")
	assert.Contains(t, listing, "**1:** second [00:30]")
	assert.Contains(t, listing, "**2:** third [01:00]")

	assert.Equal(t, "00:03:00", embed.Fields[1].Value)
	assert.Equal(t, "3", embed.Fields[2].Value)
	assert.Equal(t, "Enabled", embed.Fields[3].Value)
}

func TestQueueEmbed_LoopDisabled(t *testing.T) {
	st := playback.Status{
		Queue: []track.Track{{Title: "only", Duration: time.Minute}},
	}

	embed := queueEmbed(st, 0)

	assert.Equal(t, "Disabled", embed.Fields[3].Value)
}

func TestNowPlayingEmbed(t *testing.T) {
	st := playback.Status{
		Current: track.Track{
			Title:        "a song",
			Uploader:     "someone",
			Duration:     2 * time.Minute,
			ThumbnailURL: "https://i.ytimg.com/vi/x/default.jpg",
		},
		Volume: 0.75,
	}

	embed := nowPlayingEmbed(st, 0x915CBF)

	assert.Equal(t, "Now Playing", embed.Title)
	require.Len(t, embed.Fields, 4)
	assert.Equal(t, "a song", embed.Fields[0].Value)
	assert.Equal(t, "someone", embed.Fields[1].Value)
	assert.Equal(t, "02:00", embed.Fields[2].Value)
	assert.Equal(t, "75%", embed.Fields[3].Value)
	require.NotNil(t, embed.Thumbnail)
	assert.Equal(t, st.Current.ThumbnailURL, embed.Thumbnail.URL)
}

func TestNowPlayingEmbed_MissingMetadata(t *testing.T) {
	st := playback.Status{
		Current: track.Track{SourceID: "dQw4w9WgXcQ"},
		Volume:  1.0,
	}

	embed := nowPlayingEmbed(st, 0)

	assert.Equal(t, "dQw4w9WgXcQ", embed.Fields[0].Value, "source ID stands in for a missing title")
	assert.Equal(t, "Unknown", embed.Fields[1].Value)
	assert.Equal(t, "Unknown", embed.Fields[2].Value)
	assert.Nil(t, embed.Thumbnail)
}

func TestLoopEmbed(t *testing.T) {
	on := loopEmbed(true, 0)
	assert.Equal(t, "Loop Mode", on.Title)
	assert.Contains(t, on.Description, "**ON**")

	off := loopEmbed(false, 0)
	assert.Contains(t, off.Description, "**OFF**")
}

func TestHelpEmbeds_UsePrefix(t *testing.T) {
	help := helpEmbed("!", 0)
	require.NotEmpty(t, help.Fields)
	assert.Equal(t, "!play [query]", help.Fields[0].Name)

	ayuda := ayudaEmbed("!", 0)
	require.NotEmpty(t, ayuda.Fields)
	assert.Contains(t, ayuda.Fields[0].Name, "!play")
	assert.Contains(t, ayuda.Fields[0].Name, "!p")
}
