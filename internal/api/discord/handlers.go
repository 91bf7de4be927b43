package discord

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/beatbox/internal/app/playback"
	"github.com/osa030/beatbox/internal/app/source"
)

// handlePlay resolves the query through the source chain and enqueues the
// result. A bare play resumes a paused session.
func (b *Bot) handlePlay(m *discordgo.MessageCreate, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		if err := b.ctrl.Resume(m.GuildID); err == nil {
			b.reply(m.ChannelID, "Playback resumed.")
		} else {
			b.reply(m.ChannelID, b.cfg.Messages.EmptyQuery)
		}
		return
	}

	// Post a status message now and edit it as the download progresses
	status, err := b.session.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Looking for `%s`...", query))
	if err != nil {
		zlog.Warn().Msgf("discord: failed to send status message: channel=%s error=%v", m.ChannelID, err)
	}
	edit := func(content string) {
		if status == nil {
			b.reply(m.ChannelID, content)
			return
		}
		if _, err := b.session.ChannelMessageEdit(m.ChannelID, status.ID, content); err != nil {
			zlog.Warn().Msgf("discord: failed to edit status message: channel=%s error=%v", m.ChannelID, err)
		}
	}

	destDir := filepath.Join(b.cfg.Downloads.Dir, m.GuildID)
	t, err := b.resolver.Resolve(b.ctx, query, destDir)
	if err != nil {
		zlog.Warn().Msgf("discord: resolve failed: guild=%s query=%q error=%v", m.GuildID, query, err)
		edit(b.downloadErrorMessage(err))
		return
	}
	if _, err := os.Stat(t.Path); err != nil {
		zlog.Warn().Msgf("discord: resolved file missing: guild=%s path=%s", m.GuildID, t.Path)
		edit("Download failed. Please try again.")
		return
	}

	edit(fmt.Sprintf("Added to queue: `%s`", t.DisplayTitle()))

	voiceChannel := b.userVoiceChannel(m.GuildID, m.Author.ID)
	if _, _, err := b.ctrl.Enqueue(m.GuildID, voiceChannel, m.ChannelID, t); err != nil {
		if errors.Is(err, playback.ErrConnect) {
			b.reply(m.ChannelID, b.cfg.Messages.ConnectFailed)
		} else {
			b.reply(m.ChannelID, b.cfg.Messages.DefaultError)
		}
		zlog.Warn().Msgf("discord: enqueue failed: guild=%s track=%s error=%v", m.GuildID, t.DisplayTitle(), err)
	}
}

// downloadErrorMessage picks the user-facing text for a resolve failure.
// Error detail is only exposed when the config opts in.
func (b *Bot) downloadErrorMessage(err error) string {
	if errors.Is(err, source.ErrNoResults) {
		return b.cfg.Messages.NoResults
	}
	if b.cfg.Bot.ReportDownloadErrors {
		return fmt.Sprintf("Failed to download due to error: %s", err.Error())
	}
	return b.cfg.Messages.DownloadFailed
}

func (b *Bot) handleQueue(m *discordgo.MessageCreate) {
	status, err := b.ctrl.Status(m.GuildID)
	if err != nil {
		b.reply(m.ChannelID, "The bot isn't playing anything right now.")
		return
	}
	b.replyEmbed(m.ChannelID, queueEmbed(status, b.cfg.Bot.Color()))
}

func (b *Bot) handleSkip(m *discordgo.MessageCreate, args string) {
	skipped, total, err := b.ctrl.Skip(m.GuildID, parseSkipCount(args))
	if err != nil {
		b.reply(m.ChannelID, b.cfg.Messages.NotPlaying)
		return
	}

	switch {
	case skipped >= total:
		b.reply(m.ChannelID, "Skipping all remaining tracks.")
	case skipped == 1:
		b.reply(m.ChannelID, "Skipping track.")
	default:
		b.reply(m.ChannelID, fmt.Sprintf("Skipping %d of %d tracks.", skipped, total))
	}
}

func (b *Bot) handleLoop(m *discordgo.MessageCreate) {
	loop, err := b.ctrl.ToggleLoop(m.GuildID)
	if err != nil {
		b.reply(m.ChannelID, b.cfg.Messages.NotPlaying)
		return
	}
	b.replyEmbed(m.ChannelID, loopEmbed(loop, b.cfg.Bot.Color()))
}

func (b *Bot) handleNowPlaying(m *discordgo.MessageCreate) {
	status, err := b.ctrl.Status(m.GuildID)
	if err != nil {
		b.reply(m.ChannelID, b.cfg.Messages.NotPlaying)
		return
	}
	b.replyEmbed(m.ChannelID, nowPlayingEmbed(status, b.cfg.Bot.Color()))
}

func (b *Bot) handlePause(m *discordgo.MessageCreate) {
	switch err := b.ctrl.Pause(m.GuildID); {
	case err == nil:
		b.reply(m.ChannelID, "Playback paused.")
	case errors.Is(err, playback.ErrAlreadyPaused):
		b.reply(m.ChannelID, "The bot is already paused.")
	default:
		b.reply(m.ChannelID, "Nothing is playing right now.")
	}
}

func (b *Bot) handleResume(m *discordgo.MessageCreate) {
	switch err := b.ctrl.Resume(m.GuildID); {
	case err == nil:
		b.reply(m.ChannelID, "Playback resumed.")
	case errors.Is(err, playback.ErrNotPaused):
		b.reply(m.ChannelID, "The bot is not paused.")
	default:
		b.reply(m.ChannelID, "The bot isn't in a voice channel.")
	}
}

func (b *Bot) handleVolume(m *discordgo.MessageCreate, args string) {
	status, err := b.ctrl.Status(m.GuildID)
	if err != nil {
		b.reply(m.ChannelID, b.cfg.Messages.NotPlaying)
		return
	}

	arg := strings.TrimSpace(args)
	if arg == "" {
		b.reply(m.ChannelID, fmt.Sprintf("Current volume: %d%%", int(status.Volume*100)))
		return
	}

	percent, err := parseVolume(arg)
	switch {
	case errors.Is(err, errVolumeRange):
		b.reply(m.ChannelID, "Volume must be between 0 and 100.")
		return
	case err != nil:
		b.reply(m.ChannelID, "Please provide a valid number between 0 and 100.")
		return
	}

	if err := b.ctrl.SetVolume(m.GuildID, float64(percent)/100); err != nil {
		b.reply(m.ChannelID, b.cfg.Messages.NotPlaying)
		return
	}
	b.reply(m.ChannelID, fmt.Sprintf("Volume set to %d%%", percent))
}

// handleCleanup removes guild download files no queue entry references.
// Administrator only.
func (b *Bot) handleCleanup(m *discordgo.MessageCreate) {
	perms, err := b.session.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil || perms&discordgo.PermissionAdministrator == 0 {
		b.reply(m.ChannelID, "This command requires administrator permissions.")
		return
	}

	n := b.ctrl.Cleanup(m.GuildID)
	zlog.Info().Msgf("discord: cleanup: guild=%s removed=%d", m.GuildID, n)
	b.reply(m.ChannelID, fmt.Sprintf("Cleaned up %d files.", n))
}
