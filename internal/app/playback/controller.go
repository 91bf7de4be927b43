// Package playback coordinates per-guild queues, voice connections and
// the hand-off from one track to the next.
package playback

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/beatbox/internal/app/session"
	"github.com/osa030/beatbox/internal/domain/track"
)

// Errors
var (
	ErrNotPlaying    = errors.New("not playing")
	ErrAlreadyPaused = errors.New("already paused")
	ErrNotPaused     = errors.New("not paused")
	ErrConnect       = errors.New("failed to connect to voice channel")
)

// Config holds controller configuration.
type Config struct {
	DownloadDir string        // root of the per-guild download directories
	SettleDelay time.Duration // wait before leaving voice so the last frames flush
	PurgeDelay  time.Duration // wait before sweeping a guild dir after teardown
}

// Dialer joins a guild voice channel and returns the live connection.
type Dialer interface {
	Dial(guildID, channelID string) (session.Connection, error)
}

// FileStore handles the lifecycle of downloaded audio files.
type FileStore interface {
	Exists(path string) bool
	Remove(path string)
	RemoveOrphans(dir string, keep map[string]struct{}) int
	PurgeDirAfter(dir string, delay time.Duration)
}

// Controller manages playback across guild sessions. All queue surgery for
// a guild happens under that guild's session lock, including the
// continuation that runs when a track stops.
type Controller struct {
	cfg    Config
	reg    *session.Registry
	dialer Dialer
	files  FileStore

	eventCh chan Event
	sendMu  sync.RWMutex // serializes sends against Close
	closed  bool
}

// NewController creates a new playback controller.
func NewController(cfg Config, reg *session.Registry, dialer Dialer, files FileStore) *Controller {
	return &Controller{
		cfg:     cfg,
		reg:     reg,
		dialer:  dialer,
		files:   files,
		eventCh: make(chan Event, 10),
	}
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Enqueue appends a resolved track to the guild queue, connecting and
// starting playback when the session is idle. Returns the 1-based queue
// position and whether this track started playing immediately.
func (c *Controller) Enqueue(guildID, voiceChannelID, noticeChannelID string, t track.Track) (int, bool, error) {
	st := c.lockLiveState(guildID)
	defer st.Unlock()

	st.NoticeChannelID = noticeChannelID

	if st.Current != nil {
		st.Queue = append(st.Queue, t)
		pos := len(st.Queue)
		zlog.Info().Msgf("playback: queued track: guild=%s track=%s position=%d", guildID, t.DisplayTitle(), pos)
		return pos, false, nil
	}

	// Idle session: connect first so a failed join leaves no half-built state
	if st.Conn == nil || !st.Conn.Connected() {
		conn, err := c.dialer.Dial(guildID, voiceChannelID)
		if err != nil {
			zlog.Warn().Msgf("playback: voice join failed: guild=%s channel=%s error=%v", guildID, voiceChannelID, err)
			c.files.Remove(t.Path)
			if len(st.Queue) == 0 {
				st.Close()
				c.reg.Remove(guildID)
			}
			return 0, false, errors.Wrapf(ErrConnect, "channel %s: %v", voiceChannelID, err)
		}
		st.Conn = conn
	}

	st.Queue = append(st.Queue, t)
	if err := c.startLocked(st); err != nil {
		st.PopHead()
		c.files.Remove(t.Path)
		if len(st.Queue) == 0 {
			c.teardownLocked(st, false)
		}
		return 0, false, err
	}
	return 1, true, nil
}

// Skip discards the current track and the following n-1 queued tracks.
// Skipping the whole queue tears the session down. Returns how many
// tracks were skipped and the queue length before the skip.
func (c *Controller) Skip(guildID string, n int) (int, int, error) {
	if n < 1 {
		n = 1
	}

	st, ok := c.reg.Get(guildID)
	if !ok {
		return 0, 0, ErrNotPlaying
	}
	st.Lock()
	defer st.Unlock()
	if st.Closed() || st.Current == nil {
		return 0, 0, ErrNotPlaying
	}

	total := len(st.Queue)
	if n >= total {
		zlog.Info().Msgf("playback: skipping all: guild=%s count=%d", guildID, total)
		c.teardownLocked(st, true)
		return total, total, nil
	}

	removed := st.DropHead(n)
	for _, path := range uniquePaths(removed) {
		// A later queue entry may still play the same file
		if !st.PathQueued(path) {
			c.files.Remove(path)
		}
	}

	// The pending completion consumes the marker and starts the new head
	// without popping again.
	st.MarkSkip()
	st.Current.Stop()

	zlog.Info().Msgf("playback: skipped: guild=%s count=%d remaining=%d", guildID, n, len(st.Queue))
	return n, total, nil
}

// ToggleLoop flips queue looping for the guild and returns the new state.
func (c *Controller) ToggleLoop(guildID string) (bool, error) {
	st, ok := c.reg.Get(guildID)
	if !ok {
		return false, ErrNotPlaying
	}
	st.Lock()
	defer st.Unlock()
	if st.Closed() || st.Current == nil {
		return false, ErrNotPlaying
	}

	st.Loop = !st.Loop
	zlog.Info().Msgf("playback: loop toggled: guild=%s loop=%t", guildID, st.Loop)
	return st.Loop, nil
}

// Pause pauses the current track.
func (c *Controller) Pause(guildID string) error {
	st, ok := c.reg.Get(guildID)
	if !ok {
		return ErrNotPlaying
	}
	st.Lock()
	defer st.Unlock()
	if st.Closed() || st.Current == nil {
		return ErrNotPlaying
	}
	if st.Current.Paused() {
		return ErrAlreadyPaused
	}

	st.Current.Pause()
	return nil
}

// Resume continues a paused track.
func (c *Controller) Resume(guildID string) error {
	st, ok := c.reg.Get(guildID)
	if !ok {
		return ErrNotPlaying
	}
	st.Lock()
	defer st.Unlock()
	if st.Closed() || st.Current == nil {
		return ErrNotPlaying
	}
	if !st.Current.Paused() {
		return ErrNotPaused
	}

	st.Current.Resume()
	return nil
}

// SetVolume sets the session volume in [0, 1]. The change applies to the
// current track immediately and to every track that follows.
func (c *Controller) SetVolume(guildID string, volume float64) error {
	st, ok := c.reg.Get(guildID)
	if !ok {
		return ErrNotPlaying
	}
	st.Lock()
	defer st.Unlock()
	if st.Closed() {
		return ErrNotPlaying
	}

	st.Volume = volume
	if st.Current != nil {
		st.Current.SetVolume(volume)
	}
	return nil
}

// Status returns a snapshot of the guild session.
func (c *Controller) Status(guildID string) (Status, error) {
	st, ok := c.reg.Get(guildID)
	if !ok {
		return Status{}, ErrNotPlaying
	}
	st.Lock()
	defer st.Unlock()
	if st.Closed() || st.Current == nil {
		return Status{}, ErrNotPlaying
	}

	current, _ := st.Head()
	return Status{
		Current: current,
		Queue:   st.Tracks(),
		Loop:    st.Loop,
		Paused:  st.Current.Paused(),
		Volume:  st.Volume,
	}, nil
}

// ConnectedChannel returns the voice channel the guild session is bound
// to, or "" when the guild has no live session.
func (c *Controller) ConnectedChannel(guildID string) string {
	st, ok := c.reg.Get(guildID)
	if !ok {
		return ""
	}
	st.Lock()
	defer st.Unlock()
	if st.Closed() || st.Conn == nil {
		return ""
	}
	return st.Conn.ChannelID()
}

// Drop tears down the guild session, deleting its queued files. Used when
// the bot is removed from a voice channel from outside.
func (c *Controller) Drop(guildID string) {
	st, ok := c.reg.Get(guildID)
	if !ok {
		return
	}
	st.Lock()
	defer st.Unlock()
	c.teardownLocked(st, true)
}

// Cleanup removes files in the guild download dir that no queue entry
// references anymore. Returns the number of files removed.
func (c *Controller) Cleanup(guildID string) int {
	keep := make(map[string]struct{})
	if st, ok := c.reg.Get(guildID); ok {
		st.Lock()
		if !st.Closed() {
			for _, t := range st.Queue {
				keep[t.Path] = struct{}{}
			}
		}
		st.Unlock()
	}

	return c.files.RemoveOrphans(filepath.Join(c.cfg.DownloadDir, guildID), keep)
}

// Close tears down every live session, then closes the event channel.
// Safe to call more than once.
func (c *Controller) Close() {
	for _, id := range c.reg.IDs() {
		st, ok := c.reg.Get(id)
		if !ok {
			continue
		}
		st.Lock()
		c.teardownLocked(st, true)
		st.Unlock()
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.eventCh)
}

// lockLiveState returns the guild state with its lock held, retrying when
// a concurrent teardown closed the state between lookup and lock.
func (c *Controller) lockLiveState(guildID string) *session.State {
	for {
		st := c.reg.GetOrCreate(guildID)
		st.Lock()
		if !st.Closed() {
			return st
		}
		st.Unlock()
	}
}

// onTrackDone runs after a track stops for any reason. It decides what
// happens to the queue head, advances playback and tears the session
// down when nothing is left to play. The continuation is bound to the
// session that started the track, so a completion arriving after that
// session's teardown can never touch a newer session of the same guild.
func (c *Controller) onTrackDone(st *session.State, playErr error) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("playback: continuation panicked: guild=%s panic=%v", st.ID, r)
			st.Lock()
			c.teardownLocked(st, true)
			st.Unlock()
		}
	}()

	// Give ffmpeg a moment to release its handle on the finished file
	// before anything below tries to delete it.
	if c.cfg.SettleDelay > 0 {
		time.Sleep(c.cfg.SettleDelay)
	}

	st.Lock()
	defer st.Unlock()
	if st.Closed() {
		// Already torn down (skip-all, eviction, shutdown)
		return
	}

	if playErr != nil {
		zlog.Warn().Msgf("playback: track ended with error: guild=%s error=%v", st.ID, playErr)
	}

	st.Current = nil

	if st.Conn == nil || !st.Conn.Connected() {
		zlog.Warn().Msgf("playback: connection lost: guild=%s", st.ID)
		c.teardownLocked(st, true)
		return
	}

	switch {
	case st.ConsumeSkip():
		// Skip already reshaped the queue; the head is the next track

	case st.Loop:
		st.RotateHead()

	default:
		if old, ok := st.PopHead(); ok {
			if !st.PathQueued(old.Path) {
				c.files.Remove(old.Path)
			}
		}
	}

	c.advanceLocked(st)
}

// advanceLocked starts the queue head, dropping entries whose files are
// gone or fail to start, and tears the session down once the queue is
// empty. Callers must hold st's lock.
func (c *Controller) advanceLocked(st *session.State) {
	for {
		head, ok := st.Head()
		if !ok {
			c.teardownLocked(st, false)
			return
		}

		if !c.files.Exists(head.Path) {
			st.PopHead()
			zlog.Warn().Msgf("playback: dropping track, file missing: guild=%s track=%s path=%s",
				st.ID, head.DisplayTitle(), head.Path)
			c.sendEvent(Event{
				Type:      EventTrackDropped,
				GuildID:   st.ID,
				ChannelID: st.NoticeChannelID,
				Track:     head,
				Detail:    "file missing",
			})
			continue
		}

		if err := c.startLocked(st); err != nil {
			st.PopHead()
			if !st.PathQueued(head.Path) {
				c.files.Remove(head.Path)
			}
			zlog.Warn().Msgf("playback: dropping track, start failed: guild=%s track=%s error=%v",
				st.ID, head.DisplayTitle(), err)
			c.sendEvent(Event{
				Type:      EventTrackDropped,
				GuildID:   st.ID,
				ChannelID: st.NoticeChannelID,
				Track:     head,
				Detail:    err.Error(),
			})
			continue
		}
		return
	}
}

// startLocked starts playback of the queue head and registers the
// continuation for when it stops. Callers must hold st's lock and
// guarantee a non-empty queue and live connection.
func (c *Controller) startLocked(st *session.State) error {
	head, ok := st.Head()
	if !ok {
		return errors.New("queue is empty")
	}

	handle, err := st.Conn.Play(head.Path, st.Volume, func(playErr error) {
		c.onTrackDone(st, playErr)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to start %s", head.DisplayTitle())
	}
	st.Current = handle

	zlog.Info().Msgf("playback: now playing: guild=%s track=%s queued=%d loop=%t",
		st.ID, head.DisplayTitle(), len(st.Queue)-1, st.Loop)
	c.sendEvent(Event{
		Type:      EventTrackStarted,
		GuildID:   st.ID,
		ChannelID: st.NoticeChannelID,
		Track:     head,
	})
	return nil
}

// teardownLocked closes the session, schedules file cleanup and leaves
// the voice channel. Callers must hold st's lock.
func (c *Controller) teardownLocked(st *session.State, deleteQueued bool) {
	if st.Closed() {
		return
	}
	st.Close()

	if st.Current != nil {
		st.Current.Stop()
		st.Current = nil
	}

	removed := st.DropHead(len(st.Queue))
	if deleteQueued {
		for _, path := range uniquePaths(removed) {
			c.files.Remove(path)
		}
	}

	conn := st.Conn
	st.Conn = nil
	if conn != nil {
		settle := c.cfg.SettleDelay
		go func() {
			if settle > 0 {
				time.Sleep(settle)
			}
			if err := conn.Disconnect(); err != nil {
				zlog.Warn().Msgf("playback: disconnect failed: guild=%s error=%v", st.ID, err)
			}
		}()
	}

	c.reg.Remove(st.ID)
	c.files.PurgeDirAfter(filepath.Join(c.cfg.DownloadDir, st.ID), c.cfg.PurgeDelay)

	zlog.Info().Msgf("playback: session ended: guild=%s", st.ID)
	c.sendEvent(Event{
		Type:      EventSessionEnded,
		GuildID:   st.ID,
		ChannelID: st.NoticeChannelID,
	})
}

// sendEvent sends an event without blocking.
func (c *Controller) sendEvent(e Event) {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- e:
	default:
		// Channel full, drop rather than stall playback
	}
}

// uniquePaths returns the distinct file paths of the given tracks.
func uniquePaths(tracks []track.Track) []string {
	seen := make(map[string]struct{}, len(tracks))
	paths := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if _, ok := seen[t.Path]; ok {
			continue
		}
		seen[t.Path] = struct{}{}
		paths = append(paths, t.Path)
	}
	return paths
}
