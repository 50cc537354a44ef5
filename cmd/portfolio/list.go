package main

import (
	"context"
	"slices"
	"strings"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/R-Vicente/signal-and-noise/internal/config"
	"github.com/R-Vicente/signal-and-noise/internal/lockfile"
	"github.com/R-Vicente/signal-and-noise/internal/ui"
)

func newListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List projects in display order",
		Flags: []cli.Flag{
			configFlag(),
			jsonFlag(),
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Show tags, source and path",
			},
			&cli.StringFlag{
				Name:  "category",
				Usage: "Only list projects in this category",
			},
			&cli.BoolFlag{
				Name:  "sources",
				Usage: "List remote sources and their sync status instead",
			},
		},
		Action: listAction,
	}
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := ui.ListOptions{
		JSON:    cmd.Bool("json"),
		Verbose: cmd.Bool("verbose"),
	}

	if cmd.Bool("sources") {
		statuses, statusErr := sourceStatuses(cfg)
		if statusErr != nil {
			return statusErr
		}
		return ui.RenderSourceList(stdout(cmd), statuses, opts)
	}

	store, err := loadStore(ctx, cfg, nil)
	if err != nil {
		return err
	}

	category := strings.ToLower(strings.TrimSpace(cmd.String("category")))
	if category != "" && !slices.ContainsFunc(cfg.Filters, func(f config.Filter) bool { return f.Value == category }) {
		return oops.
			Code("CATEGORY_NOT_FOUND").
			With("category", category).
			Hint("Use one of the values in the [[filters]] table").
			Errorf("category %q is not a configured filter", category)
	}

	return ui.RenderProjectList(stdout(cmd), store.Filter(category), opts)
}

func sourceStatuses(cfg *config.Config) ([]ui.SourceStatus, error) {
	lock, err := lockfile.Load(cfg.ConfigDir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cfg.Sources))
	for name := range cfg.Sources {
		names = append(names, name)
	}
	slices.Sort(names)

	statuses := make([]ui.SourceStatus, 0, len(names))
	for _, name := range names {
		status := ui.SourceStatus{
			Name:   name,
			URL:    cfg.Sources[name].URL,
			Dir:    cfg.SourceDir(name),
			Status: "pending",
		}

		if entry := lock.GetEntry(name); entry != nil {
			status.Status = "synced"
			status.File = entry.File
			status.SyncedAt = entry.SyncedAt
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}
