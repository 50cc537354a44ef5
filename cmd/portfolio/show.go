package main

import (
	"context"
	"io"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/R-Vicente/signal-and-noise/internal/manifest"
	"github.com/R-Vicente/signal-and-noise/internal/project"
	"github.com/R-Vicente/signal-and-noise/internal/view"
)

func newShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a project's detail fragment",
		ArgsUsage: "<slug>",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the project's manifest entry instead of HTML",
			},
			&cli.BoolFlag{
				Name:  "page",
				Usage: "Print the full page instead of the fragment",
			},
			&cli.BoolFlag{
				Name:  "markdown",
				Usage: "Print the raw markdown body",
			},
		},
		Action: showAction,
	}
}

func showAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return oops.
			Code("INVALID_ARGS").
			Hint("Usage: portfolio show <slug>").
			Errorf("expected 1 argument, got %d", cmd.Args().Len())
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := loadStore(ctx, cfg, nil)
	if err != nil {
		return err
	}

	p, err := store.Get(cmd.Args().First())
	if err != nil {
		return err
	}

	if cmd.Bool("markdown") {
		_, err = io.WriteString(stdout(cmd), p.Content)
		return err
	}

	renderer := view.New(cfg)

	if cmd.Bool("json") {
		m := manifest.Build([]*project.Project{p}, manifest.Options{
			Site:        cfg.Site.Title,
			Placeholder: cfg.Display.CardPlaceholder,
			Link:        renderer.Link,
			Root:        cfg.ConfigDir,
		})
		return writeJSON(stdout(cmd), m.Projects[0])
	}

	if cmd.Bool("page") {
		return renderer.DetailPage(stdout(cmd), p)
	}

	return renderer.Detail(stdout(cmd), p)
}
