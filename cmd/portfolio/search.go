package main

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/oops"
	"github.com/urfave/cli/v3"

	"github.com/R-Vicente/signal-and-noise/internal/parser"
	"github.com/R-Vicente/signal-and-noise/internal/search"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"

	defaultSearchLimit = 20
)

func newSearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Fuzzy search project titles, tags, categories and headings",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "category",
				Usage: "Search only within one category",
			},
			jsonFlag(),
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: table, json, csv",
				Value: formatTable,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Max results (0 = unlimited)",
				Value: defaultSearchLimit,
			},
		},
		Action: searchAction,
	}
}

func searchAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return oops.
			Code("INVALID_ARGS").
			Hint("Usage: portfolio search <query>").
			Errorf("expected 1 argument, got %d", cmd.Args().Len())
	}

	format := strings.ToLower(cmd.String("format"))
	if cmd.Bool("json") {
		format = formatJSON
	}
	switch format {
	case formatTable, formatJSON, formatCSV:
	default:
		return oops.
			Code("INVALID_ARGS").
			With("format", format).
			Hint("Use one of: table, json, csv").
			Errorf("unknown output format %q", format)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := loadStore(ctx, cfg, nil)
	if err != nil {
		return err
	}

	results, err := search.Projects(store.All(), search.Options{
		Query:    cmd.Args().First(),
		Category: cmd.String("category"),
		Limit:    cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	switch format {
	case formatJSON:
		return writeJSON(stdout(cmd), results)
	case formatCSV:
		return outputSearchCSV(stdout(cmd), results)
	default:
		return outputSearchTable(stdout(cmd), results, cfg.Display.DescriptionLength)
	}
}

func outputSearchCSV(w io.Writer, results []search.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"slug", "title", "match_field", "match_value", "score"}); err != nil {
		return oops.Code("CSV_ERROR").Wrapf(err, "writing CSV header")
	}

	for _, r := range results {
		if err := cw.Write([]string{
			r.Slug,
			r.Title,
			r.MatchField,
			r.MatchValue,
			strconv.Itoa(r.Score),
		}); err != nil {
			return oops.Code("CSV_ERROR").Wrapf(err, "writing CSV row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return oops.Code("CSV_ERROR").Wrapf(err, "flushing CSV")
	}

	return nil
}

func outputSearchTable(w io.Writer, results []search.Result, descLength int) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"SLUG", "TITLE", "MATCH", "SCORE", "SUMMARY"})

	for _, r := range results {
		t.AppendRow(table.Row{
			r.Slug,
			r.Title,
			r.MatchField + ": " + r.MatchValue,
			r.Score,
			parser.Truncate(r.Summary, descLength),
		})
	}

	t.Render()
	return nil
}
