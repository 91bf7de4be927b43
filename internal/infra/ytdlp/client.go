// Package ytdlp wraps the yt-dlp command line tool for audio downloads.
package ytdlp

import (
	"context"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lrstanley/go-ytdlp"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// ErrNoResults is returned when yt-dlp produced no usable entry for a query.
var ErrNoResults = errors.New("no results")

// Config represents yt-dlp client configuration.
type Config struct {
	Format        string // format selector passed to -f
	SearchPrefix  string // prepended to non-URL queries, e.g. "ytsearch"
	SocketTimeout int    // seconds
	Retries       int
	MaxConcurrent int64 // download slots shared across all guilds
}

// Metadata describes a media file downloaded by yt-dlp.
type Metadata struct {
	ID        string
	Title     string
	Uploader  string
	Duration  time.Duration
	Thumbnail string
	Ext       string
	Path      string
}

// Client runs yt-dlp downloads with bounded concurrency.
type Client struct {
	format        string
	searchPrefix  string
	socketTimeout int
	retries       int
	sem           *semaphore.Weighted
}

// NewClient creates a new yt-dlp client.
func NewClient(cfg Config) *Client {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	return &Client{
		format:        cfg.Format,
		searchPrefix:  cfg.SearchPrefix,
		socketTimeout: cfg.SocketTimeout,
		retries:       cfg.Retries,
		sem:           semaphore.NewWeighted(cfg.MaxConcurrent),
	}
}

var urlPattern = regexp.MustCompile(`(?i)^https?://`)

// IsURL reports whether the query is a direct URL rather than a search term.
func IsURL(query string) bool {
	return urlPattern.MatchString(query)
}

// Download fetches the best audio for query into destDir and returns its
// metadata. Non-URL queries are turned into a search for the first match.
func (c *Client) Download(ctx context.Context, query, destDir string) (*Metadata, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "failed to acquire download slot")
	}
	defer c.sem.Release(1)

	target := query
	if !IsURL(query) {
		target = c.searchPrefix + ":" + query
	}

	started := time.Now()
	res, err := ytdlp.New().
		Format(c.format).
		NoPlaylist().
		NoSimulate().
		NoWarnings().
		IgnoreConfig().
		Output(filepath.Join(destDir, "%(id)s.%(ext)s")).
		Print("%(id)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(thumbnail)s\t%(ext)s").
		Run(ctx,
			"--socket-timeout", strconv.Itoa(c.socketTimeout),
			"--retries", strconv.Itoa(c.retries),
			target)
	if err != nil {
		detail := ""
		if res != nil {
			detail = SanitizeError(res.Stderr)
		}
		if detail == "" {
			detail = err.Error()
		}
		return nil, errors.Newf("yt-dlp: %s", detail)
	}

	meta, ok := parseMetadata(res.Stdout)
	if !ok {
		return nil, ErrNoResults
	}
	meta.Path = filepath.Join(destDir, meta.ID+"."+meta.Ext)

	zlog.Debug().Msgf("downloaded %s (%s) in %s", meta.ID, meta.Title, time.Since(started).Round(time.Millisecond))
	return meta, nil
}

// parseMetadata parses the tab-separated print output of a download.
func parseMetadata(stdout string) (*Metadata, bool) {
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		ps := strings.Split(line, "\t")
		if len(ps) < 6 || ps[0] == "" || ps[0] == "NA" {
			continue
		}
		// yt-dlp prints NA for fields it could not determine
		d, _ := time.ParseDuration(naEmpty(ps[3]) + "s")
		return &Metadata{
			ID:        ps[0],
			Title:     naEmpty(ps[1]),
			Uploader:  naEmpty(ps[2]),
			Duration:  d,
			Thumbnail: naEmpty(ps[4]),
			Ext:       ps[5],
		}, true
	}
	return nil, false
}

func naEmpty(v string) string {
	if v == "NA" {
		return ""
	}
	return v
}

var ansiPattern = regexp.MustCompile(`\x1b[^m]*m`)

// SanitizeError strips ANSI color codes and the leading "ERROR:" marker
// from yt-dlp stderr output so it can be shown to users.
func SanitizeError(msg string) string {
	s := ansiPattern.ReplaceAllString(msg, "")
	s = strings.TrimSpace(s)
	if len(s) >= 5 && strings.EqualFold(s[:5], "error") {
		s = strings.TrimLeft(s[5:], " :")
	}
	return s
}
