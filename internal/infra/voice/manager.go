// Package voice manages Discord voice connections and audio playback.
package voice

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Manager joins guild voice channels.
type Manager struct {
	session        *discordgo.Session
	connectTimeout time.Duration
}

// NewManager creates a new voice connection manager.
func NewManager(session *discordgo.Session, connectTimeout time.Duration) *Manager {
	return &Manager{
		session:        session,
		connectTimeout: connectTimeout,
	}
}

// Join connects to the given voice channel and waits until the connection
// is ready to send audio. The bot joins deafened.
func (m *Manager) Join(guildID, channelID string) (*Conn, error) {
	vc, err := m.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to join voice channel %s", channelID)
	}

	deadline := time.Now().Add(m.connectTimeout)
	for !vc.Ready {
		if time.Now().After(deadline) {
			_ = vc.Disconnect()
			return nil, errors.Newf("voice connection to %s not ready after %s", channelID, m.connectTimeout)
		}
		time.Sleep(50 * time.Millisecond)
	}

	zlog.Info().Msgf("joined voice channel: guild=%s channel=%s", guildID, channelID)
	return &Conn{guildID: guildID, vc: vc}, nil
}
