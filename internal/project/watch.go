package project

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/oops"
)

// DefaultDebounce collapses editor write bursts into one reload.
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads the store when a file below one of its roots changes and
// then calls onChange. A failed reload is logged and the previous set is
// kept. Watch blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return oops.
			Code("WATCH_FAILED").
			Wrapf(err, "creating file watcher")
	}
	defer watcher.Close()

	for _, root := range s.Roots() {
		if addErr := addTree(watcher, root); addErr != nil {
			return addErr
		}
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if addErr := addTree(watcher, event.Name); addErr != nil {
						s.logger.Warn("watching new directory", "path", event.Name, "error", addErr)
					}
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			pending = time.After(debounce)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("file watcher error", "error", watchErr)

		case <-pending:
			pending = nil
			if loadErr := s.Load(ctx); loadErr != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("reloading projects", "error", loadErr)
				continue
			}
			s.logger.Info("projects reloaded", "count", len(s.All()))
			if onChange != nil {
				onChange()
			}
		}
	}
}

// addTree watches dir and every directory below it. A missing root is
// skipped so content and source directories may appear later.
func addTree(watcher *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.
			Code("WATCH_FAILED").
			With("path", root).
			Wrapf(err, "watching %q", root)
	}
	return nil
}
