// Package sync downloads every configured remote project document in
// parallel and records the results in portfolio.lock.
package sync

import (
	"context"
	"errors"
	"os"
	"slices"
	stdsync "sync"

	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/R-Vicente/signal-and-noise/internal/config"
	"github.com/R-Vicente/signal-and-noise/internal/lockfile"
	"github.com/R-Vicente/signal-and-noise/internal/source"
)

const defaultMaxParallel = 3

type Options struct {
	SourceNames []string
	Force       bool
	DryRun      bool
	MaxParallel int
	OnEvent     func(Event)
}

type EventKind int

const (
	EventSourceStart EventKind = iota
	EventSourceDone
	EventSourcePruned
)

// Event reports the progress of one source.
type Event struct {
	Kind   EventKind
	Source string
	Result *source.SyncResult
	Err    error
}

// RunResult totals a sync run.
type RunResult struct {
	Sources    int
	Downloaded int
	Deleted    int
	Skipped    int
	Unchanged  int
	Pruned     int
	Errors     int
}

type runState struct {
	result *source.SyncResult
	err    error
}

// newSource builds the source used for one config entry.
//
//nolint:gochecknoglobals // swapped in tests
var newSource = source.New

func Run(ctx context.Context, cfg *config.Config, opts Options) (*RunResult, error) {
	if cfg == nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			Errorf("config is required")
	}

	for name := range cfg.Sources {
		if !config.ValidSlug(name) {
			return nil, oops.
				Code("CONFIG_INVALID").
				With("source", name).
				Hint("Source names follow the slug rule and name a directory under cache_dir").
				Errorf("invalid source name %q", name)
		}
	}

	lockDir := resolveLockDir(cfg)
	lock, err := lockfile.Load(lockDir)
	if err != nil {
		return nil, err
	}

	sourceNames, err := resolveSourceNames(cfg.Sources, opts.SourceNames)
	if err != nil {
		return nil, err
	}

	maxParallel := opts.MaxParallel
	if maxParallel <= 0 {
		maxParallel = defaultMaxParallel
	}

	emit := opts.OnEvent
	if emit == nil {
		emit = func(Event) {}
	}

	results := make(map[string]runState, len(sourceNames))
	var resultsMu stdsync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallel)

	for _, sourceName := range sourceNames {
		sourceCfg := cfg.Sources[sourceName]
		destinationDir := cfg.SourceDir(sourceName)
		previousLock := lock.GetEntry(sourceName)

		group.Go(func() error {
			emit(Event{Kind: EventSourceStart, Source: sourceName})

			state := runState{}

			src, err := newSource(sourceName, sourceCfg, resolveToken(sourceCfg))
			if err != nil {
				state.err = err
			} else {
				state.result, state.err = src.Sync(
					groupCtx,
					destinationDir,
					previousLock,
					source.SyncOptions{
						Force:  opts.Force,
						DryRun: opts.DryRun,
					},
				)
			}

			resultsMu.Lock()
			results[sourceName] = state
			resultsMu.Unlock()

			emit(Event{Kind: EventSourceDone, Source: sourceName, Result: state.result, Err: state.err})
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, oops.Wrapf(err, "waiting for source sync workers")
	}

	runResult := &RunResult{Sources: len(sourceNames)}

	for _, sourceName := range sourceNames {
		state := results[sourceName]
		if state.err != nil {
			runResult.Errors++
			continue
		}

		if state.result == nil {
			continue
		}

		runResult.Deleted += state.result.Deleted
		switch {
		case state.result.Skipped:
			runResult.Skipped++
		case state.result.Unchanged:
			runResult.Unchanged++
		default:
			runResult.Downloaded += state.result.Downloaded
		}

		if !opts.DryRun && state.result.LockEntry != nil {
			lock.SetEntry(sourceName, state.result.LockEntry)
		}
	}

	// Only a full sync knows which sources were removed from the config.
	if len(opts.SourceNames) == 0 {
		pruned, pruneErr := prune(cfg, lock, opts.DryRun)
		if pruneErr != nil {
			return nil, pruneErr
		}
		for _, name := range pruned {
			emit(Event{Kind: EventSourcePruned, Source: name})
		}
		runResult.Pruned = len(pruned)
	}

	if !opts.DryRun {
		if err := lock.Save(lockDir); err != nil {
			return nil, err
		}
	}

	if runResult.Errors > 0 {
		return runResult, oops.
			Code("DOWNLOAD_FAILED").
			With("failed_sources", runResult.Errors).
			Errorf("%d source(s) failed during sync", runResult.Errors)
	}

	return runResult, nil
}

// prune drops lock entries and cached documents of sources that are no
// longer configured.
func prune(cfg *config.Config, lock *lockfile.LockFile, dryRun bool) ([]string, error) {
	configured := make([]string, 0, len(cfg.Sources))
	for name := range cfg.Sources {
		configured = append(configured, name)
	}

	var stale []string
	if dryRun {
		for name := range lock.Sources {
			if !slices.Contains(configured, name) {
				stale = append(stale, name)
			}
		}
		slices.Sort(stale)
		return stale, nil
	}

	stale = lock.Prune(configured)
	for _, name := range stale {
		// A hand-edited lock file must not reach outside cache_dir.
		if !config.ValidSlug(name) {
			continue
		}
		dir := cfg.SourceDir(name)
		if err := os.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, oops.
				Code("WRITE_FAILED").
				With("source", name).
				With("path", dir).
				Wrapf(err, "removing cached source")
		}
	}

	return stale, nil
}

func resolveSourceNames(
	sourceConfigs map[string]config.Source,
	requestedNames []string,
) ([]string, error) {
	if len(requestedNames) == 0 {
		sourceNames := make([]string, 0, len(sourceConfigs))
		for sourceName := range sourceConfigs {
			sourceNames = append(sourceNames, sourceName)
		}

		slices.Sort(sourceNames)
		return sourceNames, nil
	}

	sourceNames := make([]string, 0, len(requestedNames))
	seen := make(map[string]struct{}, len(requestedNames))

	for _, sourceName := range requestedNames {
		if _, ok := sourceConfigs[sourceName]; !ok {
			return nil, oops.
				Code("SOURCE_NOT_FOUND").
				With("source", sourceName).
				Hint("Check the [sources] table in portfolio.toml").
				Errorf("source %q not found in config", sourceName)
		}

		if _, exists := seen[sourceName]; exists {
			continue
		}

		seen[sourceName] = struct{}{}
		sourceNames = append(sourceNames, sourceName)
	}

	return sourceNames, nil
}

func resolveToken(sourceCfg config.Source) string {
	if sourceCfg.TokenEnv == "" {
		return ""
	}

	return os.Getenv(sourceCfg.TokenEnv)
}

// resolveLockDir keeps portfolio.lock next to portfolio.toml.
func resolveLockDir(cfg *config.Config) string {
	if cfg.ConfigDir != "" {
		return cfg.ConfigDir
	}

	return "."
}
