// Package main provides the bot entry point.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/beatbox/internal/api/discord"
	"github.com/osa030/beatbox/internal/app/playback"
	"github.com/osa030/beatbox/internal/app/session"
	"github.com/osa030/beatbox/internal/app/source"
	"github.com/osa030/beatbox/internal/infra/config"
	"github.com/osa030/beatbox/internal/infra/files"
	"github.com/osa030/beatbox/internal/infra/logger"
	"github.com/osa030/beatbox/internal/infra/voice"
)

var (
	app        = kingpin.New("beatbox", "Discord music bot")
	configPath = app.Flag("config", "Path to config file").Default("config/beatbox.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Bot error: %v", err)
		os.Exit(1)
	}
}

// run wires the bot together and blocks until shutdown. Using a separate
// function ensures defer statements are executed even when returning with
// an error.
func run(cfg *config.Config) error {
	fileMgr := files.NewManager(files.Config{
		Attempts: cfg.Cleanup.DeleteAttempts,
		Backoff:  time.Duration(cfg.Cleanup.DeleteBackoffMs) * time.Millisecond,
	})

	// Queues do not persist, so downloads from a previous run are dead weight
	fileMgr.PurgeAll(cfg.Downloads.Dir)

	resolver, err := source.NewResolverChainFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to build source providers: %w", err)
	}

	dg, err := discordgo.New("Bot " + cfg.Bot.Token)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}

	voiceMgr := voice.NewManager(dg, time.Duration(cfg.Playback.ConnectTimeoutSec)*time.Second)
	registry := session.NewRegistry(cfg.Playback.DefaultVolume)
	ctrl := playback.NewController(playback.Config{
		DownloadDir: cfg.Downloads.Dir,
		SettleDelay: time.Duration(cfg.Playback.SettleDelayMs) * time.Millisecond,
		PurgeDelay:  time.Duration(cfg.Cleanup.PurgeDelaySec) * time.Second,
	}, registry, voiceDialer{mgr: voiceMgr}, fileMgr)

	bot := discord.NewBot(cfg, dg, ctrl, resolver)
	if err := bot.Start(); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}
	zlog.Info().Msg("Bot is running. Press Ctrl+C to exit.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	zlog.Info().Msg("Received shutdown signal...")

	// Close the gateway first so no new commands arrive, then tear the
	// sessions down and wait for the pending file cleanup.
	if err := dg.Close(); err != nil {
		zlog.Warn().Msgf("Failed to close Discord session: %v", err)
	}
	ctrl.Close()
	bot.Stop()
	fileMgr.Wait()

	zlog.Info().Msg("Bot stopped")
	return nil
}

// voiceDialer adapts the voice manager to the controller's Dialer.
type voiceDialer struct {
	mgr *voice.Manager
}

func (d voiceDialer) Dial(guildID, channelID string) (session.Connection, error) {
	conn, err := d.mgr.Join(guildID, channelID)
	if err != nil {
		return nil, err
	}
	return voiceConn{Conn: conn}, nil
}

// voiceConn narrows the concrete player type returned by voice.Conn.Play
// to the Handle interface the session layer stores.
type voiceConn struct {
	*voice.Conn
}

func (c voiceConn) Play(path string, volume float64, onDone func(error)) (session.Handle, error) {
	p, err := c.Conn.Play(path, volume, onDone)
	if err != nil {
		return nil, err
	}
	return p, nil
}
