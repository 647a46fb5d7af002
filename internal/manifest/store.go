package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Store holds the process-wide active manifest. The active value is immutable;
// Reload parses and validates the file and swaps the pointer atomically, so
// readers never observe a partially loaded manifest.
type Store struct {
	path   string
	active atomic.Pointer[Manifest]
	logger *slog.Logger
}

// NewStore loads the manifest at path and returns a Store with it active.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	s := &Store{path: path, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Active returns the current manifest. Never nil after NewStore succeeds.
func (s *Store) Active() *Manifest {
	return s.active.Load()
}

// Path returns the manifest file path backing this store.
func (s *Store) Path() string {
	return s.path
}

// Reload re-reads the manifest file and swaps it in. On any load or
// validation error the previously active manifest stays in place.
func (s *Store) Reload() error {
	m, err := LoadFile(s.path)
	if err != nil {
		return fmt.Errorf("reload manifest: %w", err)
	}
	s.active.Store(m)
	if s.logger != nil {
		s.logger.Info("manifest loaded", "path", s.path, "jobs", len(m.Jobs))
	}
	return nil
}

// debounce absorbs editor write bursts (truncate+write, rename dances) so one
// save triggers one reload.
const debounce = 250 * time.Millisecond

// Watch reloads the manifest whenever the file changes on disk. A reload that
// fails keeps the last good manifest active and is logged, not fatal.
// Blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create manifest watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors often replace the file,
	// which drops a watch registered on the old inode.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if s.logger != nil {
		s.logger.Info("manifest watch started", "path", s.path)
	}

	var pending *time.Timer
	var pendingC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(debounce)
				pendingC = pending.C
			} else {
				// Drain a tick that fired between events so Reset cannot
				// deliver a stale early reload.
				if !pending.Stop() {
					select {
					case <-pendingC:
					default:
					}
				}
				pending.Reset(debounce)
			}

		case <-pendingC:
			pending = nil
			pendingC = nil
			if err := s.Reload(); err != nil {
				if s.logger != nil {
					s.logger.Error("manifest reload failed, keeping previous", "error", err)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if s.logger != nil {
				s.logger.Warn("manifest watcher error", "error", err)
			}
		}
	}
}
