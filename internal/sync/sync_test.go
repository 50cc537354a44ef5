package sync_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/samber/oops"

	"github.com/R-Vicente/signal-and-noise/internal/config"
	"github.com/R-Vicente/signal-and-noise/internal/lockfile"
	"github.com/R-Vicente/signal-and-noise/internal/source"
	"github.com/R-Vicente/signal-and-noise/internal/sync"
)

type fakeSource struct {
	result *source.SyncResult
	err    error
	seen   *lockfile.LockEntry
}

func (f *fakeSource) Sync(
	_ context.Context,
	_ string,
	prevLock *lockfile.LockEntry,
	_ source.SyncOptions,
) (*source.SyncResult, error) {
	f.seen = prevLock
	return f.result, f.err
}

func newConfig(t *testing.T, names ...string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{ConfigDir: dir, Sources: map[string]config.Source{}}
	for _, name := range names {
		cfg.Sources[name] = config.Source{Type: "url", URL: "https://example.test/" + name + ".md"}
	}
	cfg.ApplyDefaults()
	cfg.CacheDir = filepath.Join(dir, config.DefaultCacheDir)

	return cfg
}

func downloaded(name string) *source.SyncResult {
	return &source.SyncResult{
		Downloaded: 1,
		LockEntry:  &lockfile.LockEntry{Type: "url", File: name + ".md", SyncedAt: time.Now().UTC()},
	}
}

func TestRunWithNilConfigReturnsError(t *testing.T) {
	_, err := sync.Run(context.Background(), nil, sync.Options{})
	if err == nil {
		t.Fatal("Run() with nil config: got nil error, want non-nil")
	}
}

func TestRunSyncsSourcesAndSavesLock(t *testing.T) {
	cfg := newConfig(t, "dish", "gate", "scope")

	fakes := map[string]*fakeSource{
		"dish":  {result: downloaded("dish")},
		"gate":  {result: &source.SyncResult{Skipped: true, LockEntry: &lockfile.LockEntry{Type: "url"}}},
		"scope": {result: &source.SyncResult{Downloaded: 1, Unchanged: true, LockEntry: &lockfile.LockEntry{Type: "url"}}},
	}
	sync.SetSourceFactory(t, func(name string, _ config.Source, _ string) (source.Source, error) {
		return fakes[name], nil
	})

	var mu stdsync.Mutex
	var events []string
	result, err := sync.Run(context.Background(), cfg, sync.Options{
		MaxParallel: 2,
		OnEvent: func(e sync.Event) {
			mu.Lock()
			defer mu.Unlock()
			if e.Kind == sync.EventSourceDone {
				events = append(events, e.Source)
			}
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Sources != 3 || result.Downloaded != 1 || result.Skipped != 1 || result.Unchanged != 1 {
		t.Fatalf("RunResult = %+v", result)
	}

	slices.Sort(events)
	if want := []string{"dish", "gate", "scope"}; !slices.Equal(events, want) {
		t.Fatalf("done events = %v, want %v", events, want)
	}

	lock, err := lockfile.Load(cfg.ConfigDir)
	if err != nil {
		t.Fatalf("lockfile.Load() error = %v", err)
	}
	if entry := lock.GetEntry("dish"); entry == nil || entry.File != "dish.md" {
		t.Fatalf("lock entry for dish = %+v", entry)
	}
	if len(lock.Sources) != 3 {
		t.Fatalf("lock sources = %d, want 3", len(lock.Sources))
	}
}

func TestRunPassesPreviousLockEntry(t *testing.T) {
	cfg := newConfig(t, "dish")

	previous := lockfile.New()
	previous.SetEntry("dish", &lockfile.LockEntry{Type: "url", ETag: `"v1"`})
	if err := previous.Save(cfg.ConfigDir); err != nil {
		t.Fatal(err)
	}

	fake := &fakeSource{result: downloaded("dish")}
	sync.SetSourceFactory(t, func(string, config.Source, string) (source.Source, error) {
		return fake, nil
	})

	if _, err := sync.Run(context.Background(), cfg, sync.Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if fake.seen == nil || fake.seen.ETag != `"v1"` {
		t.Fatalf("previous lock entry = %+v, want ETag v1", fake.seen)
	}
}

func TestRunReportsFailures(t *testing.T) {
	cfg := newConfig(t, "dish", "gate")

	sync.SetSourceFactory(t, func(name string, _ config.Source, _ string) (source.Source, error) {
		if name == "gate" {
			return &fakeSource{err: oops.Code("DOWNLOAD_FAILED").Errorf("boom")}, nil
		}
		return &fakeSource{result: downloaded(name)}, nil
	})

	result, err := sync.Run(context.Background(), cfg, sync.Options{})
	if err == nil {
		t.Fatal("Run() error = nil, want failure")
	}
	if !strings.Contains(err.Error(), "1 source(s) failed") {
		t.Fatalf("Run() error = %v", err)
	}
	if result == nil || result.Errors != 1 || result.Downloaded != 1 {
		t.Fatalf("RunResult = %+v", result)
	}

	lock, loadErr := lockfile.Load(cfg.ConfigDir)
	if loadErr != nil {
		t.Fatal(loadErr)
	}
	if lock.GetEntry("dish") == nil || lock.GetEntry("gate") != nil {
		t.Fatalf("lock sources = %v, want only dish", lock.Sources)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	cfg := newConfig(t, "dish")

	sync.SetSourceFactory(t, func(name string, _ config.Source, _ string) (source.Source, error) {
		return &fakeSource{result: downloaded(name)}, nil
	})

	if _, err := sync.Run(context.Background(), cfg, sync.Options{DryRun: true}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := os.Stat(lockfile.Path(cfg.ConfigDir)); !os.IsNotExist(err) {
		t.Fatalf("lock file written in dry-run mode")
	}
}

func TestRunPrunesRemovedSources(t *testing.T) {
	cfg := newConfig(t, "dish")

	previous := lockfile.New()
	previous.SetEntry("retired", &lockfile.LockEntry{Type: "url", File: "README.md"})
	if err := previous.Save(cfg.ConfigDir); err != nil {
		t.Fatal(err)
	}

	retiredDir := cfg.SourceDir("retired")
	if err := os.MkdirAll(retiredDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(retiredDir, "README.md"), []byte("# Old"), 0o600); err != nil {
		t.Fatal(err)
	}

	sync.SetSourceFactory(t, func(name string, _ config.Source, _ string) (source.Source, error) {
		return &fakeSource{result: downloaded(name)}, nil
	})

	var pruned []string
	result, err := sync.Run(context.Background(), cfg, sync.Options{
		OnEvent: func(e sync.Event) {
			if e.Kind == sync.EventSourcePruned {
				pruned = append(pruned, e.Source)
			}
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Pruned != 1 || !slices.Equal(pruned, []string{"retired"}) {
		t.Fatalf("Pruned = %d events = %v", result.Pruned, pruned)
	}

	if _, statErr := os.Stat(retiredDir); !os.IsNotExist(statErr) {
		t.Fatalf("retired cache dir still exists")
	}

	lock, loadErr := lockfile.Load(cfg.ConfigDir)
	if loadErr != nil {
		t.Fatal(loadErr)
	}
	if lock.GetEntry("retired") != nil {
		t.Fatalf("retired lock entry kept")
	}
}

func TestRunRejectsSourceNamesOutsideCacheDir(t *testing.T) {
	cfg := newConfig(t, "../escape")

	outside := filepath.Join(cfg.ConfigDir, "escape")
	if err := os.MkdirAll(outside, 0o755); err != nil {
		t.Fatal(err)
	}

	sync.SetSourceFactory(t, func(name string, _ config.Source, _ string) (source.Source, error) {
		return &fakeSource{result: downloaded(name)}, nil
	})

	_, err := sync.Run(context.Background(), cfg, sync.Options{})
	if err == nil || !strings.Contains(err.Error(), "invalid source name") {
		t.Fatalf("Run() error = %v, want invalid source name", err)
	}

	if _, statErr := os.Stat(outside); statErr != nil {
		t.Fatalf("directory outside cache_dir touched: %v", statErr)
	}
}

func TestRunPruneKeepsDirectoriesOutsideCacheDir(t *testing.T) {
	cfg := newConfig(t, "dish")

	previous := lockfile.New()
	previous.SetEntry("../escape", &lockfile.LockEntry{Type: "url", File: "README.md"})
	if err := previous.Save(cfg.ConfigDir); err != nil {
		t.Fatal(err)
	}

	outside := cfg.SourceDir("../escape")
	if err := os.MkdirAll(outside, 0o755); err != nil {
		t.Fatal(err)
	}

	sync.SetSourceFactory(t, func(name string, _ config.Source, _ string) (source.Source, error) {
		return &fakeSource{result: downloaded(name)}, nil
	})

	if _, err := sync.Run(context.Background(), cfg, sync.Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, statErr := os.Stat(outside); statErr != nil {
		t.Fatalf("prune removed a directory outside cache_dir: %v", statErr)
	}
}

func TestRunSelectedSourcesDoNotPrune(t *testing.T) {
	cfg := newConfig(t, "dish", "gate")

	previous := lockfile.New()
	previous.SetEntry("retired", &lockfile.LockEntry{Type: "url"})
	if err := previous.Save(cfg.ConfigDir); err != nil {
		t.Fatal(err)
	}

	var built []string
	sync.SetSourceFactory(t, func(name string, _ config.Source, _ string) (source.Source, error) {
		built = append(built, name)
		return &fakeSource{result: downloaded(name)}, nil
	})

	result, err := sync.Run(context.Background(), cfg, sync.Options{SourceNames: []string{"gate"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Sources != 1 || result.Pruned != 0 || !slices.Equal(built, []string{"gate"}) {
		t.Fatalf("RunResult = %+v built = %v", result, built)
	}
}

func TestResolveSourceNamesReturnsAllSorted(t *testing.T) {
	sources := map[string]config.Source{
		"zebra":  {Type: "url"},
		"alpha":  {Type: "url"},
		"middle": {Type: "url"},
	}

	names, err := sync.ResolveSourceNames(sources, nil)
	if err != nil {
		t.Fatalf("ResolveSourceNames() error = %v", err)
	}

	want := []string{"alpha", "middle", "zebra"}
	if !slices.Equal(names, want) {
		t.Fatalf("ResolveSourceNames() = %v, want %v", names, want)
	}
}

func TestResolveSourceNamesValidatesRequested(t *testing.T) {
	sources := map[string]config.Source{
		"exists": {Type: "url"},
	}

	_, err := sync.ResolveSourceNames(sources, []string{"missing"})
	if err == nil {
		t.Fatal("ResolveSourceNames() with invalid source: got nil error, want non-nil")
	}
}

func TestResolveSourceNamesDeduplicates(t *testing.T) {
	sources := map[string]config.Source{
		"source1": {Type: "url"},
		"source2": {Type: "url"},
	}

	names, err := sync.ResolveSourceNames(sources, []string{"source1", "source2", "source1"})
	if err != nil {
		t.Fatalf("ResolveSourceNames() error = %v", err)
	}

	if !slices.Equal(names, []string{"source1", "source2"}) {
		t.Errorf("ResolveSourceNames() = %v, want [source1 source2]", names)
	}
}

func TestResolveToken(t *testing.T) {
	t.Setenv("PORTFOLIO_TEST_TOKEN", "secret")

	if got := sync.ResolveToken(config.Source{TokenEnv: "PORTFOLIO_TEST_TOKEN"}); got != "secret" {
		t.Errorf("ResolveToken() = %q, want secret", got)
	}

	if got := sync.ResolveToken(config.Source{}); got != "" {
		t.Errorf("ResolveToken() without token_env = %q, want empty", got)
	}
}

func TestResolveLockDir(t *testing.T) {
	if got := sync.ResolveLockDir(&config.Config{ConfigDir: "/site"}); got != "/site" {
		t.Errorf("ResolveLockDir() = %q, want /site", got)
	}

	if got := sync.ResolveLockDir(&config.Config{}); got != "." {
		t.Errorf("ResolveLockDir() = %q, want .", got)
	}
}
