package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/R-Vicente/signal-and-noise/internal/config"
	"github.com/R-Vicente/signal-and-noise/internal/site"
	"github.com/R-Vicente/signal-and-noise/internal/ui"
)

func newBuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Render the static site into the output directory",
		Flags: []cli.Flag{
			configFlag(),
			logLevelFlag(),
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Override the output directory"},
			&cli.BoolFlag{Name: "clean", Usage: "Delete the output directory before building"},
			&cli.BoolFlag{Name: "dry-run", Usage: "List the files that would be written"},
			&cli.BoolFlag{Name: "drafts", Usage: "Include draft projects"},
			&cli.IntFlag{Name: "parallel", Aliases: []string{"p"}, Usage: "Maximum parallel page writes (0 = config)"},
			&cli.BoolFlag{Name: "no-progress", Usage: "Disable the progress bar"},
		},
		Action: buildAction,
	}
}

func buildAction(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()

	overrides, err := buildOverrides(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, overrides...)
	if err != nil {
		return err
	}

	logger, err := newLogger(stderr(cmd), cmd.String("log-level"))
	if err != nil {
		return err
	}

	store, err := loadStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	printer := ui.NewBuildPrinter(stderr(cmd))
	printer.PrintWarnings(store.Warnings())

	opts := site.Options{
		Clean:  cmd.Bool("clean"),
		DryRun: cmd.Bool("dry-run"),
	}

	var progress *ui.BuildProgress
	switch {
	case opts.DryRun:
		opts.OnPage = printer.PrintPlanned
	case !cmd.Bool("no-progress"):
		opts.OnPlan = func(total int) {
			progress = ui.NewBuildProgress(stderr(cmd), total)
		}
		opts.OnPage = func(site.Page) {
			progress.Increment()
		}
	}

	result, err := site.Build(ctx, cfg, store, opts)
	if progress != nil {
		progress.Stop(err)
	}
	if err != nil {
		return err
	}

	printer.PrintSummary(result, time.Since(start))
	return nil
}

// buildOverrides layers the build flags over the config file. A relative
// --output is taken from the working directory, not the config directory.
func buildOverrides(cmd *cli.Command) ([]config.Override, error) {
	var overrides []config.Override

	if output := cmd.String("output"); output != "" {
		abs, err := filepath.Abs(output)
		if err != nil {
			return nil, oops.Wrapf(err, "resolving output directory %q", output)
		}
		overrides = append(overrides, config.Set("output", abs))
	}
	if cmd.Bool("drafts") {
		overrides = append(overrides, config.Set("render.drafts", true))
	}
	if cmd.IsSet("parallel") {
		overrides = append(overrides, config.Set("build.parallel", cmd.Int("parallel")))
	}

	return overrides, nil
}
