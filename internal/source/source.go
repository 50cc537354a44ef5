// Package source downloads remote project documents into the local cache.
package source

import (
	"context"

	"github.com/samber/oops"

	"github.com/R-Vicente/signal-and-noise/internal/config"
	"github.com/R-Vicente/signal-and-noise/internal/lockfile"
)

// SyncResult reports what happened during a sync.
type SyncResult struct {
	Downloaded int
	Deleted    int
	// Skipped is set when the server answered 304 Not Modified.
	Skipped bool
	// Unchanged is set when the downloaded body matches the previous one.
	Unchanged bool
	File      string
	LockEntry *lockfile.LockEntry
}

// SyncOptions controls behavior for source sync operations.
type SyncOptions struct {
	Force  bool
	DryRun bool
}

// Source is a remote project document that can be synced.
type Source interface {
	Sync(
		ctx context.Context,
		destDir string,
		prevLock *lockfile.LockEntry,
		opts SyncOptions,
	) (*SyncResult, error)
}

// New creates a Source from config.
func New(name string, cfg config.Source, token string) (Source, error) {
	switch cfg.Type {
	case "url":
		return NewURL(name, cfg, token)
	default:
		return nil, oops.
			Code("UNKNOWN_SOURCE_TYPE").
			With("type", cfg.Type).
			Hint("Supported types: url").
			Errorf("unknown source type %q for source %q", cfg.Type, name)
	}
}
