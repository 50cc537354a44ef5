package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/R-Vicente/signal-and-noise/internal/config"
	"github.com/R-Vicente/signal-and-noise/internal/project"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file",
	}
}

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
		Value: "info",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output as JSON",
	}
}

func loadConfig(cmd *cli.Command, overrides ...config.Override) (*config.Config, error) {
	return config.Load(cmd.String("config"), overrides...)
}

// newLogger writes text logs to w, the command's stderr, so stdout stays
// parseable.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, oops.
			Code("INVALID_ARGS").
			With("log_level", level).
			Hint("Use one of: debug, info, warn, error").
			Wrapf(err, "parsing log level")
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// loadStore reads every project document the config points at.
func loadStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*project.Store, error) {
	opts := []project.StoreOption{}
	if logger != nil {
		opts = append(opts, project.WithLogger(logger))
	}

	store := project.NewStore(cfg, opts...)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

func stdout(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}

func stderr(cmd *cli.Command) io.Writer {
	return cmd.Root().ErrWriter
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return oops.
			Code("JSON_ERROR").
			Wrapf(err, "encoding output")
	}

	return nil
}
