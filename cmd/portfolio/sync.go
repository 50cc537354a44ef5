package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/R-Vicente/signal-and-noise/internal/sync"
	"github.com/R-Vicente/signal-and-noise/internal/ui"
)

const defaultParallel = 3

func newSyncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Download remote project documents into the source cache",
		ArgsUsage: "[source-name...]",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Force refresh and skip freshness checks"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Show planned changes without writing files"},
			&cli.IntFlag{Name: "parallel", Aliases: []string{"p"}, Usage: "Maximum parallel source syncs", Value: defaultParallel},
		},
		Action: syncAction,
	}
}

func syncAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run")
	printer := ui.NewSyncPrinter(stderr(cmd), dryRun)

	result, err := sync.Run(ctx, cfg, sync.Options{
		SourceNames: cmd.Args().Slice(),
		Force:       cmd.Bool("force"),
		DryRun:      dryRun,
		MaxParallel: cmd.Int("parallel"),
		OnEvent:     printer.HandleEvent,
	})
	printer.PrintSummary(result)

	return err
}
