// Package files provides the track file lifecycle manager: retried single
// file deletion and best-effort directory purges.
package files

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Config holds deletion retry settings.
type Config struct {
	// Attempts is the maximum number of removal attempts per file. The
	// audio process may hold the file briefly after being told to stop.
	Attempts int
	// Backoff is the wait between attempts.
	Backoff time.Duration
}

// Manager deletes track files and purges session directories.
type Manager struct {
	attempts int
	backoff  time.Duration
	removeFn func(string) error
	wg       sync.WaitGroup
}

// NewManager creates a new file lifecycle manager.
func NewManager(cfg Config) *Manager {
	return newManager(cfg, os.Remove)
}

func newManager(cfg Config, removeFn func(string) error) *Manager {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return &Manager{
		attempts: attempts,
		backoff:  cfg.Backoff,
		removeFn: removeFn,
	}
}

// Exists reports whether the given path refers to an existing file.
func (m *Manager) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RemoveWithRetry removes the file at path. A file that is already absent
// counts as success without retrying. Other failures are retried with
// backoff; exhausting the attempts is logged and reported, never fatal.
func (m *Manager) RemoveWithRetry(path string) error {
	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		err := m.removeFn(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		lastErr = err
		if attempt < m.attempts {
			time.Sleep(m.backoff)
		}
	}
	zlog.Warn().Msgf("giving up removing file: path=%s attempts=%d error=%v", path, m.attempts, lastErr)
	return errors.Wrapf(lastErr, "failed to remove %s after %d attempts", path, m.attempts)
}

// Remove schedules an asynchronous RemoveWithRetry. Failures are logged by
// the retry path and otherwise ignored.
func (m *Manager) Remove(path string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_ = m.RemoveWithRetry(path)
	}()
}

// RemoveOrphans deletes every regular file in dir whose path is not in
// keep and returns the number of files removed. Subdirectories are left
// alone. A missing dir simply yields zero.
func (m *Manager) RemoveOrphans(dir string, keep map[string]struct{}) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			zlog.Warn().Msgf("failed to read directory for cleanup: dir=%s error=%v", dir, err)
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if _, ok := keep[path]; ok {
			continue
		}
		if err := m.RemoveWithRetry(path); err == nil {
			removed++
		}
	}
	return removed
}

// PurgeDirAfter waits for the given delay and then best-effort deletes
// every file in dir followed by the directory itself. This path is
// opportunistic cleanup after a session ends; failures are logged and
// swallowed.
func (m *Manager) PurgeDirAfter(dir string, delay time.Duration) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		time.Sleep(delay)
		m.purgeDir(dir)
	}()
}

func (m *Manager) purgeDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			zlog.Warn().Msgf("failed to read directory for purge: dir=%s error=%v", dir, err)
		}
		return
	}

	for _, entry := range entries {
		if err := m.removeFn(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			zlog.Debug().Msgf("failed to remove file during purge: file=%s error=%v", entry.Name(), err)
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		zlog.Warn().Msgf("failed to remove directory: dir=%s error=%v", dir, err)
	}
}

// PurgeAll removes every per-session subdirectory under root. Called once
// at startup; leftover downloads from a previous run are never valid since
// queues do not persist.
func (m *Manager) PurgeAll(root string) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			zlog.Warn().Msgf("failed to read download root: dir=%s error=%v", root, err)
		}
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			zlog.Warn().Msgf("failed to clean up directory: dir=%s error=%v", dir, err)
		}
	}
}

// Wait blocks until all scheduled asynchronous removals and purges finish.
func (m *Manager) Wait() {
	m.wg.Wait()
}
