package discord

import (
	"math"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

type command int

const (
	cmdUnknown command = iota
	cmdPlay
	cmdQueue
	cmdSkip
	cmdLoop
	cmdNowPlaying
	cmdPause
	cmdResume
	cmdVolume
	cmdCleanup
	cmdHelp
	cmdAyuda
)

// commandAliases maps every accepted spelling to its command.
var commandAliases = map[string]command{
	"play": cmdPlay, "p": cmdPlay,
	"queue": cmdQueue, "lista": cmdQueue, "q": cmdQueue,
	"skip": cmdSkip, "s": cmdSkip, "siguiente": cmdSkip, "pasar": cmdSkip, "next": cmdSkip,
	"loop": cmdLoop, "l": cmdLoop,
	"nowplaying": cmdNowPlaying, "np": cmdNowPlaying, "sonando": cmdNowPlaying,
	"pause": cmdPause, "pa": cmdPause, "parar": cmdPause, "pausa": cmdPause,
	"resume": cmdResume, "r": cmdResume, "continuar": cmdResume, "unpausar": cmdResume,
	"volume": cmdVolume, "v": cmdVolume,
	"cleanup": cmdCleanup, "clean": cmdCleanup,
	"help": cmdHelp, "h": cmdHelp,
	"ayuda": cmdAyuda, "a": cmdAyuda,
}

// skipAll is the skip count meaning "everything that is left".
const skipAll = math.MaxInt32

var (
	errVolumeNotNumber = errors.New("volume is not a number")
	errVolumeRange     = errors.New("volume out of range")
)

// parseCommand splits a message into command and argument string. ok is
// false when the message is not addressed to the bot at all; a prefixed
// but unrecognized name yields cmdUnknown with ok true.
func parseCommand(prefix, content string) (command, string, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return cmdUnknown, "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(content, prefix))
	if rest == "" {
		return cmdUnknown, "", false
	}

	name, args, _ := strings.Cut(rest, " ")
	cmd, ok := commandAliases[strings.ToLower(name)]
	if !ok {
		return cmdUnknown, "", true
	}
	return cmd, strings.TrimSpace(args), true
}

// parseSkipCount interprets the skip argument: a positive number skips
// that many tracks, "all" skips everything, anything else skips one.
func parseSkipCount(args string) int {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 1
	}
	if strings.EqualFold(fields[0], "all") {
		return skipAll
	}
	if n, err := strconv.Atoi(fields[0]); err == nil && n > 0 {
		return n
	}
	return 1
}

// parseVolume parses a volume percentage in [0, 100].
func parseVolume(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, errVolumeNotNumber
	}
	if n < 0 || n > 100 {
		return 0, errVolumeRange
	}
	return n, nil
}

// onMessageCreate routes guild messages carrying the command prefix.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	cmd, args, ok := parseCommand(b.cfg.Bot.Prefix, m.Content)
	if !ok {
		return
	}

	// The gateway can redeliver events; run each message at most once
	release, ok := b.guard.Acquire(m.ID)
	if !ok {
		zlog.Debug().Msgf("discord: duplicate delivery dropped: message=%s", m.ID)
		return
	}
	defer release()

	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("discord: command handler panicked: guild=%s content=%q panic=%v", m.GuildID, m.Content, r)
			b.reply(m.ChannelID, b.cfg.Messages.DefaultError)
		}
	}()

	b.dispatch(cmd, args, m)
}

func (b *Bot) dispatch(cmd command, args string, m *discordgo.MessageCreate) {
	switch cmd {
	case cmdUnknown:
		if b.cfg.Bot.ReportsUnknownCommand() {
			b.reply(m.ChannelID, "Command not recognized. Type `"+b.cfg.Bot.Prefix+"help` to see commands.")
		}
		return
	case cmdHelp:
		b.replyEmbed(m.ChannelID, helpEmbed(b.cfg.Bot.Prefix, b.cfg.Bot.Color()))
		return
	case cmdAyuda:
		b.replyEmbed(m.ChannelID, ayudaEmbed(b.cfg.Bot.Prefix, b.cfg.Bot.Color()))
		return
	case cmdCleanup:
		b.handleCleanup(m)
		return
	}

	// Everything below acts on a voice session
	if !b.senseChecks(m) {
		return
	}

	switch cmd {
	case cmdPlay:
		b.handlePlay(m, args)
	case cmdQueue:
		b.handleQueue(m)
	case cmdSkip:
		b.handleSkip(m, args)
	case cmdLoop:
		b.handleLoop(m)
	case cmdNowPlaying:
		b.handleNowPlaying(m)
	case cmdPause:
		b.handlePause(m)
	case cmdResume:
		b.handleResume(m)
	case cmdVolume:
		b.handleVolume(m, args)
	}
}

// senseChecks verifies the author is in a voice channel, and in the same
// one as the bot when the bot is already connected somewhere.
func (b *Bot) senseChecks(m *discordgo.MessageCreate) bool {
	voiceChannel := b.userVoiceChannel(m.GuildID, m.Author.ID)
	if voiceChannel == "" {
		b.reply(m.ChannelID, b.cfg.Messages.NotInVoice)
		return false
	}
	if bound := b.ctrl.ConnectedChannel(m.GuildID); bound != "" && bound != voiceChannel {
		b.reply(m.ChannelID, b.cfg.Messages.WrongChannel)
		return false
	}
	return true
}

// userVoiceChannel returns the voice channel the user occupies, or "".
func (b *Bot) userVoiceChannel(guildID, userID string) string {
	vs, err := b.session.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}
