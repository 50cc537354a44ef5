// Package lockfile records the validators of synced remote project
// documents so the next sync can send conditional requests.
package lockfile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/samber/oops"

	"github.com/R-Vicente/signal-and-noise/internal/atomicfile"
)

const (
	FileName       = "portfolio.lock"
	currentVersion = 1
	fileMode       = 0o644
)

type LockFile struct {
	Version int                   `json:"version"`
	Sources map[string]*LockEntry `json:"sources"`
}

type LockEntry struct {
	Type     string    `json:"type"`
	URL      string    `json:"url,omitempty"`
	File     string    `json:"file,omitempty"`
	ETag     string    `json:"etag,omitempty"`
	LastMod  string    `json:"last_modified,omitempty"`
	Checksum string    `json:"sha256,omitempty"`
	SyncedAt time.Time `json:"synced_at"`
}

// Load reads the lock file in dir. A missing file yields an empty lock.
func Load(dir string) (*LockFile, error) {
	lockPath := Path(dir)
	data, err := os.ReadFile(lockPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}

		return nil, oops.
			Code("LOCK_ERROR").
			With("path", lockPath).
			Wrapf(err, "reading lock file")
	}

	lock := &LockFile{}
	if unmarshalErr := json.Unmarshal(data, lock); unmarshalErr != nil {
		return nil, oops.
			Code("LOCK_ERROR").
			With("path", lockPath).
			Hint("Delete portfolio.lock and run 'portfolio sync --force' to regenerate it").
			Wrapf(unmarshalErr, "parsing lock file")
	}

	if lock.Version == 0 {
		lock.Version = currentVersion
	}

	if lock.Sources == nil {
		lock.Sources = map[string]*LockEntry{}
	}

	return lock, nil
}

func New() *LockFile {
	return &LockFile{
		Version: currentVersion,
		Sources: map[string]*LockEntry{},
	}
}

func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

func (l *LockFile) Save(dir string) error {
	if l == nil {
		return oops.
			Code("LOCK_ERROR").
			Hint("Initialize lock file state before saving").
			Errorf("cannot save nil lock file")
	}

	if l.Version == 0 {
		l.Version = currentVersion
	}

	if l.Sources == nil {
		l.Sources = map[string]*LockEntry{}
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return oops.
			Code("LOCK_ERROR").
			Wrapf(err, "encoding lock file")
	}

	if writeErr := atomicfile.Write(Path(dir), append(data, '\n'), fileMode); writeErr != nil {
		return oops.
			Code("LOCK_ERROR").
			With("path", Path(dir)).
			Wrapf(writeErr, "writing lock file")
	}

	return nil
}

func (l *LockFile) GetEntry(name string) *LockEntry {
	if l == nil {
		return nil
	}

	return l.Sources[name]
}

func (l *LockFile) SetEntry(name string, entry *LockEntry) {
	if l == nil {
		return
	}

	if l.Sources == nil {
		l.Sources = map[string]*LockEntry{}
	}

	l.Sources[name] = entry
}

func (l *LockFile) RemoveEntry(name string) {
	if l == nil || l.Sources == nil {
		return
	}

	delete(l.Sources, name)
}

// Prune removes entries of sources that are no longer configured and
// returns their names in sorted order.
func (l *LockFile) Prune(configured []string) []string {
	if l == nil {
		return nil
	}

	var removed []string
	for name := range l.Sources {
		if !slices.Contains(configured, name) {
			removed = append(removed, name)
		}
	}
	slices.Sort(removed)

	for _, name := range removed {
		delete(l.Sources, name)
	}

	return removed
}
