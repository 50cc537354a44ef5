// Package site renders the loaded projects into a static directory tree.
package site

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/R-Vicente/signal-and-noise/internal/atomicfile"
	"github.com/R-Vicente/signal-and-noise/internal/config"
	"github.com/R-Vicente/signal-and-noise/internal/manifest"
	"github.com/R-Vicente/signal-and-noise/internal/project"
	"github.com/R-Vicente/signal-and-noise/internal/view"
)

const (
	pageMode     = 0o644
	indexFile    = "index.html"
	NotFoundFile = "404.html"
)

// PageKind identifies what a generated page shows.
type PageKind string

const (
	KindIndex    PageKind = "index"
	KindCategory PageKind = "category"
	KindDetail   PageKind = "detail"
	KindNotFound PageKind = "notfound"
	KindManifest PageKind = "manifest"
)

// Page is one file of the generated site, relative to the output directory.
type Page struct {
	Path string
	Kind PageKind
}

type Options struct {
	Clean  bool
	DryRun bool
	// OnPlan is called once with the number of files about to be written.
	OnPlan func(total int)
	// OnPage is called after each file is written, or planned in dry-run
	// mode. It may be called from several goroutines.
	OnPage func(Page)
}

// Result summarizes a build.
type Result struct {
	Output   string
	Projects int
	Pages    []Page
	Cleaned  bool
	DryRun   bool
}

type plannedPage struct {
	Page
	render func(io.Writer) error
}

// Build writes index.html, one listing per category filter, one detail
// page per project, 404.html and projects.json into the output directory.
func Build(ctx context.Context, cfg *config.Config, store *project.Store, opts Options) (*Result, error) {
	if cfg == nil || store == nil {
		return nil, oops.
			Code("BUILD_FAILED").
			Errorf("config and project store are required")
	}

	output := cfg.OutputPath()
	if err := checkOutput(cfg, output); err != nil {
		return nil, err
	}

	renderer := view.New(cfg)
	projects := store.All()
	pages := plan(renderer, store, projects)

	result := &Result{
		Output:   output,
		Projects: len(projects),
		DryRun:   opts.DryRun,
	}
	for _, p := range pages {
		result.Pages = append(result.Pages, p.Page)
	}
	result.Pages = append(result.Pages, Page{Path: manifest.ManifestFile, Kind: KindManifest})

	onPage := opts.OnPage
	if onPage == nil {
		onPage = func(Page) {}
	}
	if opts.OnPlan != nil {
		opts.OnPlan(len(result.Pages))
	}

	if opts.DryRun {
		for _, p := range result.Pages {
			onPage(p)
		}
		return result, nil
	}

	if opts.Clean {
		if err := os.RemoveAll(output); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, oops.
				Code("BUILD_FAILED").
				With("output", output).
				Wrapf(err, "cleaning output directory")
		}
		result.Cleaned = true
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(cfg.Build.Parallel, 1))

	for _, page := range pages {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := page.render(&buf); err != nil {
				return err
			}

			target := filepath.Join(output, filepath.FromSlash(page.Path))
			if err := atomicfile.Write(target, buf.Bytes(), pageMode); err != nil {
				return oops.
					Code("WRITE_FAILED").
					With("path", target).
					Wrapf(err, "writing page")
			}

			onPage(page.Page)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, oops.
			Code("BUILD_FAILED").
			With("output", output).
			Wrapf(err, "writing site")
	}

	m := manifest.Build(projects, manifest.Options{
		Site:        cfg.Site.Title,
		Placeholder: cfg.Display.CardPlaceholder,
		Link:        renderer.Link,
		Root:        cfg.ConfigDir,
	})
	if err := m.Save(output); err != nil {
		return nil, err
	}
	onPage(Page{Path: manifest.ManifestFile, Kind: KindManifest})

	return result, nil
}

func plan(renderer *view.Renderer, store *project.Store, projects []*project.Project) []plannedPage {
	pages := []plannedPage{{
		Page: Page{Path: indexFile, Kind: KindIndex},
		render: func(w io.Writer) error {
			return renderer.IndexPage(w, projects, config.FilterAll)
		},
	}}

	for _, filter := range renderer.Filters() {
		if filter.Value == config.FilterAll {
			continue
		}
		filtered := store.Filter(filter.Value)
		pages = append(pages, plannedPage{
			Page: Page{Path: sitePath(project.CategoryPath(filter.Value)), Kind: KindCategory},
			render: func(w io.Writer) error {
				return renderer.IndexPage(w, filtered, filter.Value)
			},
		})
	}

	for _, p := range projects {
		pages = append(pages, plannedPage{
			Page: Page{Path: sitePath(p.URL()), Kind: KindDetail},
			render: func(w io.Writer) error {
				return renderer.DetailPage(w, p)
			},
		})
	}

	pages = append(pages, plannedPage{
		Page: Page{Path: NotFoundFile, Kind: KindNotFound},
		render: func(w io.Writer) error {
			return renderer.NotFoundPage(w, "Page not found")
		},
	})

	return pages
}

// sitePath maps a URL path ending in "/" to its index.html file.
func sitePath(urlPath string) string {
	return path.Join(strings.Trim(urlPath, "/"), indexFile)
}

// checkOutput refuses output directories that would overwrite or clean
// the project sources.
func checkOutput(cfg *config.Config, output string) error {
	abs, err := filepath.Abs(output)
	if err != nil {
		return oops.
			Code("BUILD_FAILED").
			With("output", output).
			Wrapf(err, "resolving output directory")
	}

	var protected []string
	if cfg.ConfigDir != "" {
		protected = append(protected, cfg.ConfigDir)
	}
	protected = append(protected, cfg.ContentPath())

	for _, dir := range protected {
		protectedAbs, absErr := filepath.Abs(dir)
		if absErr != nil {
			continue
		}
		if abs == protectedAbs || isParent(abs, protectedAbs) {
			return oops.
				Code("UNSAFE_OUTPUT").
				With("output", abs).
				With("protected", protectedAbs).
				Hint("Set output to a dedicated directory such as \"public\"").
				Errorf("output directory %q contains project sources", abs)
		}
	}

	return nil
}

func isParent(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}

// Paths lists the page paths of a result in sorted order.
func (r *Result) Paths() []string {
	paths := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		paths = append(paths, p.Path)
	}
	slices.Sort(paths)
	return paths
}
