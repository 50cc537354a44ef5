package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/R-Vicente/signal-and-noise/internal/config"
	"github.com/R-Vicente/signal-and-noise/internal/server"
)

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the portfolio over HTTP",
		Flags: []cli.Flag{
			configFlag(),
			logLevelFlag(),
			&cli.StringFlag{Name: "addr", Aliases: []string{"a"}, Usage: "Listen address (default from config)"},
			&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Reload projects when documents change"},
			&cli.DurationFlag{Name: "cache-ttl", Usage: "How long rendered pages are cached"},
			&cli.BoolFlag{Name: "drafts", Usage: "Include draft projects"},
		},
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, serveOverrides(cmd)...)
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

	return server.New(cfg, store, server.WithLogger(logger)).ListenAndServe(ctx)
}

func serveOverrides(cmd *cli.Command) []config.Override {
	var overrides []config.Override

	if addr := cmd.String("addr"); addr != "" {
		overrides = append(overrides, config.Set("server.addr", addr))
	}
	if cmd.Bool("watch") {
		overrides = append(overrides, config.Set("server.watch", true))
	}
	if cmd.IsSet("cache-ttl") {
		overrides = append(overrides, config.Set("server.cache_ttl", cmd.Duration("cache-ttl")))
	}
	if cmd.Bool("drafts") {
		overrides = append(overrides, config.Set("render.drafts", true))
	}

	return overrides
}
