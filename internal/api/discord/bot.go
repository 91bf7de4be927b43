// Package discord implements the chat command surface of the bot:
// prefix command routing, embed rendering, presence updates and the
// gateway-side session teardown triggers.
package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/beatbox/internal/app/dedup"
	"github.com/osa030/beatbox/internal/app/playback"
	"github.com/osa030/beatbox/internal/app/source"
	"github.com/osa030/beatbox/internal/infra/config"
)

// Bot wires the Discord gateway to the playback controller and the
// source resolver chain.
type Bot struct {
	cfg      *config.Config
	session  *discordgo.Session
	ctrl     *playback.Controller
	resolver source.Resolver
	guard    *dedup.Guard

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBot creates a new bot on an unopened gateway session.
func NewBot(cfg *config.Config, session *discordgo.Session, ctrl *playback.Controller, resolver source.Resolver) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		cfg:      cfg,
		session:  session,
		ctrl:     ctrl,
		resolver: resolver,
		guard:    dedup.NewGuard(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers the gateway handlers, opens the connection and launches
// the presence and playback-event loops.
func (b *Bot) Start() error {
	b.session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onVoiceStateUpdate)

	if err := b.session.Open(); err != nil {
		return errors.Wrap(err, "failed to open gateway connection")
	}

	b.wg.Add(2)
	go b.presenceLoop()
	go b.consumeEvents()
	return nil
}

// Stop halts the background loops and waits for them. The gateway session
// and the controller are closed by the caller.
func (b *Bot) Stop() {
	b.cancel()
	b.wg.Wait()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	zlog.Info().Msgf("discord: logged in: user=%s guilds=%d", r.User.Username, len(r.Guilds))
}

// onVoiceStateUpdate watches for the bot itself leaving a voice channel,
// whether by its own disconnect or a moderator kick, and drops the guild
// session either way. Dropping an already-gone session is a no-op.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if s.State == nil || s.State.User == nil || v.UserID != s.State.User.ID {
		return
	}
	if v.ChannelID == "" && v.BeforeUpdate != nil && v.BeforeUpdate.ChannelID != "" {
		zlog.Info().Msgf("discord: left voice channel: guild=%s channel=%s", v.GuildID, v.BeforeUpdate.ChannelID)
		b.ctrl.Drop(v.GuildID)
	}
}

// presenceLoop refreshes the playing status so it survives gateway
// reconnects.
func (b *Bot) presenceLoop() {
	defer b.wg.Done()

	status := fmt.Sprintf("Music 🎵 | %shelp", b.cfg.Bot.Prefix)
	ticker := time.NewTicker(time.Duration(b.cfg.Bot.PresenceIntervalSec) * time.Second)
	defer ticker.Stop()

	for {
		if err := b.session.UpdateGameStatus(0, status); err != nil {
			zlog.Debug().Msgf("discord: presence update failed: error=%v", err)
		}
		select {
		case <-ticker.C:
		case <-b.ctx.Done():
			return
		}
	}
}

// consumeEvents drains the controller event stream. Most events only need
// the controller's own logging; dropped tracks are surfaced to the channel
// the session was started from.
func (b *Bot) consumeEvents() {
	defer b.wg.Done()

	for {
		select {
		case e, ok := <-b.ctrl.Events():
			if !ok {
				return
			}
			b.handleEvent(e)
		case <-b.ctx.Done():
			return
		}
	}
}

func (b *Bot) handleEvent(e playback.Event) {
	switch e.Type {
	case playback.EventTrackDropped:
		if e.ChannelID != "" {
			b.reply(e.ChannelID, fmt.Sprintf("Skipping `%s` (%s).", e.Track.DisplayTitle(), e.Detail))
		}
	case playback.EventTrackStarted, playback.EventSessionEnded:
		zlog.Debug().Msgf("discord: playback event: type=%s guild=%s", e.Type, e.GuildID)
	}
}

// reply sends a plain text message, logging rather than propagating
// delivery failures.
func (b *Bot) reply(channelID, content string) {
	if _, err := b.session.ChannelMessageSend(channelID, content); err != nil {
		zlog.Warn().Msgf("discord: failed to send message: channel=%s error=%v", channelID, err)
	}
}

// replyEmbed sends an embed message.
func (b *Bot) replyEmbed(channelID string, embed *discordgo.MessageEmbed) {
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		zlog.Warn().Msgf("discord: failed to send embed: channel=%s error=%v", channelID, err)
	}
}
