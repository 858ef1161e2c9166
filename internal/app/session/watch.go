package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"duochat/internal/pkg/logx"
)

// Change describes a new session state. Session is nil after logout.
type Change struct {
	Session *Session
}

// Watch reports every change of the stored session until ctx is done.
// Changes made through this Store are delivered directly; changes made by other
// processes are picked up from the file system.
// The returned channel is closed when watching stops.
func (s *Store) Watch(ctx context.Context) (<-chan Change, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create session watcher: %w", err)
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch session directory: %w", err)
	}

	last, err := s.read()
	if err != nil {
		logx.Warn("Session file unreadable at watch start", "path", s.path, "error", err)
	}

	poke := s.addWatcher()
	out := make(chan Change, 4)

	go func() {
		defer close(out)
		defer s.removeWatcher(poke)
		defer watcher.Close()

		logger := logx.Component("session_watch")

		check := func() {
			current, err := s.read()
			if err != nil {
				logger.Warn().Err(err).Msg("Failed to reload session")
				return
			}
			if sameSession(last, current) {
				return
			}
			last = current

			select {
			case out <- Change{Session: current}:
			case <-ctx.Done():
			}
		}

		for {
			select {
			case <-ctx.Done():
				return

			case <-poke:
				check()

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != s.path {
					continue
				}
				if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					check()
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn().Err(err).Msg("Session watcher error")
			}
		}
	}()

	return out, nil
}

func sameSession(a, b *Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
