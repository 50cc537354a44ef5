package project

import (
	"cmp"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/R-Vicente/signal-and-noise/internal/config"
	"github.com/R-Vicente/signal-and-noise/internal/parser"
)

// Warning is a document that was skipped during a load.
type Warning struct {
	Path    string
	Message string
}

// Store holds the loaded projects in display order. It is safe for
// concurrent use; Load swaps the whole set at once.
type Store struct {
	cfg    *config.Config
	parser *parser.MarkdownParser
	logger *slog.Logger

	mu       sync.RWMutex
	projects []*Project
	bySlug   map[string]*Project
	warnings []Warning
}

type StoreOption func(*Store)

func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(cfg *config.Config, opts ...StoreOption) *Store {
	s := &Store{
		cfg:    cfg,
		parser: parser.NewMarkdownParser(parser.WithUnsafeHTML(cfg.Render.UnsafeHTML)),
		logger: slog.Default(),
		bySlug: map[string]*Project{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// document is a discovered file and the source it came from.
type document struct {
	path   string
	source string
	slug   string
}

// Load discovers and parses every project document. On error the
// previously loaded set is kept.
func (s *Store) Load(ctx context.Context) error {
	docs, err := s.discover()
	if err != nil {
		return err
	}

	parsed := make([]*Project, len(docs))
	warnings := make([][]Warning, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Build.Parallel, 1))

	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			p, warning, loadErr := s.loadDocument(doc)
			if loadErr != nil {
				return loadErr
			}
			if warning != nil {
				warnings[i] = append(warnings[i], *warning)
				return nil
			}
			parsed[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	var projects []*Project
	bySlug := make(map[string]*Project, len(docs))

	for _, p := range parsed {
		if p == nil {
			continue
		}
		if p.Draft && !s.cfg.Render.Drafts {
			continue
		}
		if existing, ok := bySlug[p.Slug]; ok {
			return oops.
				Code("DUPLICATE_SLUG").
				With("slug", p.Slug).
				With("first", existing.Path).
				With("second", p.Path).
				Hint("Rename one of the files or set a distinct slug in its frontmatter").
				Errorf("duplicate project slug %q in %q and %q", p.Slug, existing.Path, p.Path)
		}
		bySlug[p.Slug] = p
		projects = append(projects, p)
	}

	sortProjects(projects, s.cfg.Order)

	var flat []Warning
	for _, w := range warnings {
		flat = append(flat, w...)
	}
	for _, w := range flat {
		s.logger.Warn("skipped project document", "path", w.Path, "reason", w.Message)
	}

	s.mu.Lock()
	s.projects = projects
	s.bySlug = bySlug
	s.warnings = flat
	s.mu.Unlock()

	s.logger.Debug("loaded projects", "count", len(projects), "skipped", len(flat))

	return nil
}

func (s *Store) loadDocument(doc document) (*Project, *Warning, error) {
	info, err := os.Stat(doc.path)
	if err != nil {
		return nil, nil, oops.
			With("path", doc.path).
			Wrapf(err, "reading project document %q", doc.path)
	}

	content, err := os.ReadFile(doc.path)
	if err != nil {
		return nil, nil, oops.
			With("path", doc.path).
			Wrapf(err, "reading project document %q", doc.path)
	}

	if parser.IsBinary(content) {
		return nil, &Warning{Path: doc.path, Message: "binary file"}, nil
	}
	if !parser.IsValidUTF8(content) {
		return nil, &Warning{Path: doc.path, Message: "invalid UTF-8"}, nil
	}

	res, err := s.parser.Parse(doc.path, content)
	if err != nil {
		return nil, nil, oops.
			With("path", doc.path).
			Wrapf(err, "parsing project document %q", doc.path)
	}

	slug := doc.slug
	if slug == "" {
		slug = SlugFor(doc.path, res.Document)
	}
	if slug == "" {
		return nil, &Warning{Path: doc.path, Message: "no usable slug"}, nil
	}

	p := New(slug, doc.path, res, s.cfg.CategoriesFor(slug))
	p.Source = doc.source
	p.Modified = info.ModTime()

	return p, nil, nil
}

// discover lists the content directory documents, then synced source
// documents in source name order.
func (s *Store) discover() ([]document, error) {
	docs, err := s.glob(s.cfg.ContentPath(), "", "")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(s.cfg.Sources))
	for name := range s.cfg.Sources {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		sourceDocs, globErr := s.glob(s.cfg.SourceDir(name), name, s.cfg.Sources[name].Slug)
		if globErr != nil {
			return nil, globErr
		}
		docs = append(docs, sourceDocs...)
	}

	return docs, nil
}

func (s *Store) glob(root, source, slug string) ([]document, error) {
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, oops.
			With("path", root).
			Wrapf(err, "checking project directory %q", root)
	}

	fsys := os.DirFS(root)
	seen := map[string]struct{}{}
	var matches []string

	for _, pattern := range s.cfg.Patterns {
		found, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, oops.
				Code("CONFIG_INVALID").
				With("pattern", pattern).
				Wrapf(err, "matching pattern %q", pattern)
		}

		for _, rel := range found {
			if _, ok := seen[rel]; ok || excluded(rel, s.cfg.Excludes) {
				continue
			}
			seen[rel] = struct{}{}
			matches = append(matches, rel)
		}
	}

	slices.Sort(matches)

	docs := make([]document, 0, len(matches))
	for _, rel := range matches {
		docs = append(docs, document{
			path:   filepath.Join(root, filepath.FromSlash(rel)),
			source: source,
			slug:   slug,
		})
	}

	return docs, nil
}

func excluded(rel string, excludes []string) bool {
	for _, pattern := range excludes {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		// "**/_*" should also hide files under an underscored directory.
		for dir := filepathDir(rel); dir != "."; dir = filepathDir(dir) {
			if ok, _ := doublestar.Match(pattern, dir); ok {
				return true
			}
		}
	}
	return false
}

func filepathDir(rel string) string {
	i := strings.LastIndex(rel, "/")
	if i < 0 {
		return "."
	}
	return rel[:i]
}

// sortProjects puts slugs listed in order first, in that order. The rest
// follow by date descending, then slug.
func sortProjects(projects []*Project, order []string) {
	rank := make(map[string]int, len(order))
	for i, slug := range order {
		rank[slug] = i
	}

	slices.SortStableFunc(projects, func(a, b *Project) int {
		ra, aListed := rank[a.Slug]
		rb, bListed := rank[b.Slug]

		switch {
		case aListed && bListed:
			return cmp.Compare(ra, rb)
		case aListed:
			return -1
		case bListed:
			return 1
		}

		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})
}

// All returns the projects in display order.
func (s *Store) All() []*Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.projects)
}

// Filter returns the projects shown under a category filter.
func (s *Store) Filter(category string) []*Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Project
	for _, p := range s.projects {
		if p.InCategory(category) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) Get(slug string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.bySlug[slug]
	if !ok {
		return nil, oops.
			Code("PROJECT_NOT_FOUND").
			With("slug", slug).
			Hint("Run 'portfolio list' to see available projects").
			Errorf("project %q not found", slug)
	}
	return p, nil
}

func (s *Store) Warnings() []Warning {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.warnings)
}

// Roots returns the directories that hold project documents.
func (s *Store) Roots() []string {
	roots := []string{s.cfg.ContentPath()}
	for name := range s.cfg.Sources {
		roots = append(roots, s.cfg.SourceDir(name))
	}
	slices.Sort(roots[1:])
	return roots
}
