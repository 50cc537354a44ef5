package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/R-Vicente/signal-and-noise/internal/source"
	portfoliosync "github.com/R-Vicente/signal-and-noise/internal/sync"
)

// SyncPrinter reports remote project documents as they are fetched.
type SyncPrinter struct {
	w      io.Writer
	dryRun bool
	mu     sync.Mutex
	s      styles
}

func NewSyncPrinter(w io.Writer, dryRun bool) *SyncPrinter {
	return &SyncPrinter{w: w, dryRun: dryRun, s: newStyles()}
}

// HandleEvent is the callback wired into sync.Options.OnEvent.
func (p *SyncPrinter) HandleEvent(e portfoliosync.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := p.s.bold.Sprint(e.Source)

	switch e.Kind {
	case portfoliosync.EventSourceStart:
		fmt.Fprintf(p.w, "%s fetching %s...\n", p.s.dim.Sprint("⟳"), name)

	case portfoliosync.EventSourcePruned:
		fmt.Fprintf(p.w, "%s %s %s\n", p.s.yellow.Sprint("−"), name, p.s.dim.Sprint("(removed from config)"))

	case portfoliosync.EventSourceDone:
		if e.Err != nil {
			fmt.Fprintf(p.w, "%s %s: %s\n", p.s.red.Sprint("✗"), name, e.Err)
			return
		}
		if e.Result == nil {
			return
		}

		glyph, status := p.documentStatus(e.Result)
		line := fmt.Sprintf("%s %s", glyph, name)
		if e.Result.File != "" {
			line += " " + p.s.dim.Sprint("→ "+e.Result.File)
		}
		fmt.Fprintf(p.w, "%s %s\n", line, p.s.dim.Sprint(status))
	}
}

// documentStatus describes what happened to the cached copy of a document.
func (p *SyncPrinter) documentStatus(r *source.SyncResult) (string, string) {
	switch {
	case r.Skipped:
		return p.s.dim.Sprint("="), "(up to date)"
	case r.Unchanged:
		return p.s.dim.Sprint("="), "(unchanged)"
	case r.Downloaded == 0 && r.Deleted == 0:
		return p.s.dim.Sprint("="), "(no changes)"
	}

	var parts []string
	if r.Downloaded > 0 {
		parts = append(parts, fmt.Sprintf("%d downloaded", r.Downloaded))
	}
	if r.Deleted > 0 {
		parts = append(parts, fmt.Sprintf("%d deleted", r.Deleted))
	}

	return p.s.green.Sprint("✓"), "(" + strings.Join(parts, ", ") + ")"
}

// PrintSummary prints the totals of a sync run. Zero counts are left out.
func (p *SyncPrinter) PrintSummary(r *portfoliosync.RunResult) {
	if r == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	label := "sync complete"
	if p.dryRun {
		label = p.s.yellow.Sprint("dry-run complete")
	}

	counts := []string{fmt.Sprintf("%d source(s)", r.Sources)}
	for _, c := range []struct {
		n     int
		label string
		color *color.Color
	}{
		{r.Downloaded, "downloaded", nil},
		{r.Deleted, "deleted", nil},
		{r.Skipped, "up-to-date", nil},
		{r.Unchanged, "unchanged", nil},
		{r.Pruned, "pruned", nil},
		{r.Errors, "failed", p.s.red},
	} {
		if c.n == 0 {
			continue
		}
		text := fmt.Sprintf("%d %s", c.n, c.label)
		if c.color != nil {
			text = c.color.Sprint(text)
		}
		counts = append(counts, text)
	}

	fmt.Fprintf(p.w, "\n%s: %s\n", label, strings.Join(counts, ", "))

	switch {
	case p.dryRun:
		fmt.Fprintln(p.w, p.s.dim.Sprint("no files were written or removed"))
	case r.Downloaded > 0 || r.Pruned > 0:
		fmt.Fprintln(p.w, p.s.dim.Sprint("run 'portfolio build' to publish the changes"))
	}
}
