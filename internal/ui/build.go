package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/R-Vicente/signal-and-noise/internal/project"
	"github.com/R-Vicente/signal-and-noise/internal/site"
)

// BuildPrinter reports static build results with colored output.
type BuildPrinter struct {
	w  io.Writer
	mu sync.Mutex
	s  styles
}

func NewBuildPrinter(w io.Writer) *BuildPrinter {
	return &BuildPrinter{w: w, s: newStyles()}
}

// PrintPlanned lists a page that a dry-run build would write.
func (p *BuildPrinter) PrintPlanned(page site.Page) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "%s %s %s\n",
		p.s.dim.Sprint("+"),
		page.Path,
		p.s.dim.Sprintf("(%s)", page.Kind),
	)
}

func (p *BuildPrinter) PrintSummary(r *site.Result, elapsed time.Duration) {
	if r == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	label := p.s.green.Sprint("build complete")
	if r.DryRun {
		label = p.s.yellow.Sprint("dry-run complete")
	}

	fmt.Fprintf(p.w, "%s: %d project(s), %d file(s) in %s\n",
		label,
		r.Projects,
		len(r.Pages),
		elapsed.Round(time.Millisecond),
	)

	if r.Cleaned {
		fmt.Fprintln(p.w, p.s.dim.Sprint("output directory cleaned first"))
	}

	if r.DryRun {
		fmt.Fprintln(p.w, p.s.dim.Sprint("no files were written or removed"))
		return
	}

	fmt.Fprintf(p.w, "output: %s\n", p.s.bold.Sprint(r.Output))
}

// PrintWarnings reports documents that were skipped while loading.
func (p *BuildPrinter) PrintWarnings(warnings []project.Warning) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, warning := range warnings {
		fmt.Fprintf(p.w, "%s %s: %s\n", p.s.yellow.Sprint("!"), warning.Path, warning.Message)
	}
}
