package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/urfave/cli/v3"
)

func newOutlineCommand() *cli.Command {
	return &cli.Command{
		Name:      "outline",
		Usage:     "Show a project's heading structure",
		ArgsUsage: "<slug>",
		Flags: []cli.Flag{
			configFlag(),
			jsonFlag(),
		},
		Action: outlineAction,
	}
}

func outlineAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return oops.
			Code("INVALID_ARGS").
			Hint("Usage: portfolio outline <slug>").
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

	if cmd.Bool("json") {
		return writeJSON(stdout(cmd), p.Outline)
	}

	w := stdout(cmd)
	_, _ = fmt.Fprintf(w, "%s (%s)\n\n", p.Title, p.Slug)

	if len(p.Outline) == 0 {
		_, _ = fmt.Fprintln(w, "No headings.")
		_, _ = fmt.Fprintln(w, "Use 'portfolio show --markdown' to read the full document.")
		return nil
	}

	_, _ = fmt.Fprintln(w, "STRUCTURE:")
	for _, h := range p.Outline {
		indent := strings.Repeat("  ", h.Level-1)
		_, _ = fmt.Fprintf(w, "%3d  %s%s\n", h.Line, indent, h.Text)
	}

	return nil
}
