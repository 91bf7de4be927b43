package voice

import (
	"github.com/bwmarrin/discordgo"
	zlog "github.com/rs/zerolog/log"
)

// Conn is a live voice connection to one guild channel.
type Conn struct {
	guildID string
	vc      *discordgo.VoiceConnection
}

// Connected reports whether the connection can still send audio.
func (c *Conn) Connected() bool {
	return c.vc != nil && c.vc.Ready
}

// ChannelID returns the voice channel this connection is bound to.
func (c *Conn) ChannelID() string {
	if c.vc == nil {
		return ""
	}
	return c.vc.ChannelID
}

// Disconnect leaves the voice channel.
func (c *Conn) Disconnect() error {
	if c.vc == nil {
		return nil
	}
	_ = c.vc.Speaking(false)
	err := c.vc.Disconnect()
	zlog.Info().Msgf("left voice channel: guild=%s", c.guildID)
	return err
}

// Play starts streaming the audio file at path. onDone is invoked exactly
// once from a fresh goroutine when playback ends, with nil for natural
// completion or stop and an error for pipeline failures.
func (c *Conn) Play(path string, volume float64, onDone func(error)) (*Player, error) {
	p := newPlayer(c.vc, path, volume, onDone)
	if err := p.start(); err != nil {
		return nil, err
	}
	return p, nil
}
