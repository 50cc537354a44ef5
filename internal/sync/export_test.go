package sync

import (
	"testing"

	"github.com/R-Vicente/signal-and-noise/internal/config"
	"github.com/R-Vicente/signal-and-noise/internal/source"
)

// Test-only exports for internal helper functions.

//nolint:gochecknoglobals // Test-only exports
var (
	ResolveSourceNames = resolveSourceNames
	ResolveToken       = resolveToken
	ResolveLockDir     = resolveLockDir
)

// SetSourceFactory replaces the source constructor for the duration of a
// test.
func SetSourceFactory(t *testing.T, factory func(string, config.Source, string) (source.Source, error)) {
	t.Helper()

	previous := newSource
	newSource = factory
	t.Cleanup(func() {
		newSource = previous
	})
}
