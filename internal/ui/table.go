package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/R-Vicente/signal-and-noise/internal/project"
)

type ListOptions struct {
	JSON    bool
	Verbose bool
}

// RenderProjectList prints projects as a table or as indented JSON.
func RenderProjectList(w io.Writer, projects []*project.Project, opts ListOptions) error {
	if opts.JSON {
		return renderJSON(w, projects)
	}

	writer := table.NewWriter()
	writer.SetOutputMirror(w)
	writer.SetStyle(table.StyleRounded)

	if opts.Verbose {
		writer.AppendHeader(table.Row{"SLUG", "TITLE", "DATE", "CATEGORIES", "TAGS", "SOURCE", "PATH"})
	} else {
		writer.AppendHeader(table.Row{"SLUG", "TITLE", "DATE", "CATEGORIES"})
	}

	for _, p := range projects {
		if opts.Verbose {
			writer.AppendRow(table.Row{
				p.Slug,
				p.Title,
				p.DisplayDate(),
				strings.Join(p.Categories, ", "),
				strings.Join(p.Tags, ", "),
				renderSource(p.Source),
				p.Path,
			})
			continue
		}

		writer.AppendRow(table.Row{
			p.Slug,
			p.Title,
			p.DisplayDate(),
			strings.Join(p.Categories, ", "),
		})
	}

	writer.AppendFooter(table.Row{fmt.Sprintf("%d project(s)", len(projects))})
	writer.Render()
	return nil
}

type SourceStatus struct {
	Name     string    `json:"name"`
	URL      string    `json:"url"`
	File     string    `json:"file,omitempty"`
	Dir      string    `json:"dir"`
	Status   string    `json:"status"`
	SyncedAt time.Time `json:"synced_at,omitzero"`
}

// RenderSourceList prints the configured remote sources and their lock state.
func RenderSourceList(w io.Writer, sources []SourceStatus, opts ListOptions) error {
	if opts.JSON {
		return renderJSON(w, sources)
	}

	writer := table.NewWriter()
	writer.SetOutputMirror(w)
	writer.SetStyle(table.StyleRounded)

	if opts.Verbose {
		writer.AppendHeader(table.Row{"SOURCE", "URL", "STATUS", "FILE", "DIR"})
	} else {
		writer.AppendHeader(table.Row{"SOURCE", "URL", "STATUS"})
	}

	for _, source := range sources {
		status := renderStatus(source)

		if opts.Verbose {
			writer.AppendRow(table.Row{source.Name, source.URL, status, source.File, source.Dir})
			continue
		}

		writer.AppendRow(table.Row{source.Name, source.URL, status})
	}

	writer.Render()
	return nil
}

func renderJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode list json: %w", err)
	}

	return nil
}

func renderSource(source string) string {
	if source == "" {
		return "local"
	}

	return source
}

func renderStatus(source SourceStatus) string {
	if source.SyncedAt.IsZero() {
		return source.Status
	}

	return fmt.Sprintf("%s (%s)", source.Status, source.SyncedAt.Local().Format(time.DateTime))
}
