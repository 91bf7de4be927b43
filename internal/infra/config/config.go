// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Downloads DownloadsConfig `yaml:"downloads"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	Messages  MessagesConfig  `yaml:"messages"`
}

// BotConfig represents the Discord bot configuration.
type BotConfig struct {
	Token                string `yaml:"token" validate:"required"`
	Prefix               string `yaml:"prefix" default:"." validate:"required,max=5"`
	EmbedColor           string `yaml:"embed_color" default:"915cbf" validate:"hexadecimal,len=6"`
	ReportUnknownCommand *bool  `yaml:"report_unknown_command" default:"true"`
	ReportDownloadErrors bool   `yaml:"report_download_errors"`
	PresenceIntervalSec  int    `yaml:"presence_interval_sec" default:"20" validate:"gte=5,lte=300"`
}

// DownloadsConfig represents media download configuration.
type DownloadsConfig struct {
	Dir        string           `yaml:"dir" default:"./dl"`
	TimeoutSec int              `yaml:"timeout_sec" default:"120" validate:"gte=10,lte=600"`
	Providers  []ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
}

// ProviderConfig represents a single media source provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required"`
	DisplayName string         `yaml:"display_name"`
	Settings    map[string]any `yaml:"settings"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	SettleDelayMs     int     `yaml:"settle_delay_ms" default:"500" validate:"gte=0,lte=5000"`
	ConnectTimeoutSec int     `yaml:"connect_timeout_sec" default:"10" validate:"gte=1,lte=60"`
	DefaultVolume     float64 `yaml:"default_volume" default:"1.0" validate:"gte=0,lte=1"`
}

// CleanupConfig represents file cleanup configuration.
type CleanupConfig struct {
	DeleteAttempts  int `yaml:"delete_attempts" default:"5" validate:"gte=1,lte=20"`
	DeleteBackoffMs int `yaml:"delete_backoff_ms" default:"1000" validate:"gte=0,lte=10000"`
	PurgeDelaySec   int `yaml:"purge_delay_sec" default:"5" validate:"gte=0,lte=300"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	NotPlaying     string `yaml:"not_playing" default:"The bot isn't playing anything."`
	NotInVoice     string `yaml:"not_in_voice" default:"You must be in a voice channel to use this command."`
	WrongChannel   string `yaml:"wrong_channel" default:"You must be in the same voice channel as the bot."`
	EmptyQuery     string `yaml:"empty_query" default:"Please provide a song name or URL."`
	NoResults      string `yaml:"no_results" default:"Couldn't find any results for your query."`
	DownloadFailed string `yaml:"download_failed" default:"Sorry, failed to download this video."`
	ConnectFailed  string `yaml:"connect_failed" default:"Failed to connect to voice channel."`
	DefaultError   string `yaml:"default_error" default:"An unexpected error occurred. Check logs for details."`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for the bot
// surface (token, prefix, color, reporting switches).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.Bot.Token = v
	}
	if v := os.Getenv("BOT_PREFIX"); v != "" {
		c.Bot.Prefix = v
	}
	if v := os.Getenv("BOT_COLOR"); v != "" {
		c.Bot.EmbedColor = v
	}
	if v := os.Getenv("BOT_REPORT_COMMAND_NOT_FOUND"); v != "" {
		b := envBool(v)
		c.Bot.ReportUnknownCommand = &b
	}
	if v := os.Getenv("BOT_REPORT_DL_ERROR"); v != "" {
		c.Bot.ReportDownloadErrors = envBool(v)
	}
}

// envBool interprets the truthy spellings accepted for boolean env vars.
func envBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "t", "1":
		return true
	default:
		return false
	}
}

// ReportsUnknownCommand reports whether unrecognized commands should be
// answered with a hint. Defaults to true when unset.
func (c *BotConfig) ReportsUnknownCommand() bool {
	if c.ReportUnknownCommand == nil {
		return true
	}
	return *c.ReportUnknownCommand
}

// Color returns the embed color as an integer. Falls back to the default
// color if the configured value cannot be parsed.
func (c *BotConfig) Color() int {
	v, err := strconv.ParseInt(c.EmbedColor, 16, 32)
	if err != nil {
		return 0x915CBF
	}
	return int(v)
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "not_playing":
		return c.Messages.NotPlaying
	case "not_in_voice":
		return c.Messages.NotInVoice
	case "wrong_channel":
		return c.Messages.WrongChannel
	case "empty_query":
		return c.Messages.EmptyQuery
	case "no_results":
		return c.Messages.NoResults
	case "download_failed":
		return c.Messages.DownloadFailed
	case "connect_failed":
		return c.Messages.ConnectFailed
	default:
		return c.Messages.DefaultError
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}
