// Package manifest writes and reads projects.json, the machine readable
// index of a built site.
package manifest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"

	"github.com/R-Vicente/signal-and-noise/internal/atomicfile"
	"github.com/R-Vicente/signal-and-noise/internal/parser"
	"github.com/R-Vicente/signal-and-noise/internal/project"
)

const (
	CurrentVersion = "1.0.0"
	ManifestFile   = "projects.json"

	// FileMode is the mode of published site files.
	FileMode = 0o644
)

type Manifest struct {
	Version   string    `json:"version"`
	Generated time.Time `json:"generated"`
	Site      string    `json:"site"`
	Projects  []Entry   `json:"projects"`
}

type Entry struct {
	Slug       string           `json:"slug"`
	Title      string           `json:"title"`
	Date       string           `json:"date,omitempty"`
	Tags       []string         `json:"tags"`
	Categories []string         `json:"categories"`
	Summary    string           `json:"summary"`
	Image      string           `json:"image"`
	URL        string           `json:"url"`
	Source     string           `json:"source,omitempty"`
	Path       string           `json:"path"`
	Modified   time.Time        `json:"modified"`
	Outline    []parser.Heading `json:"outline,omitempty"`
}

// Options control how project fields are published.
type Options struct {
	Site        string
	Placeholder string
	// Link maps a site path to its public path. Nil keeps paths unchanged.
	Link func(string) string
	// Root makes entry paths relative. Empty keeps them absolute.
	Root string
}

func New(site string) *Manifest {
	return &Manifest{
		Version:   CurrentVersion,
		Generated: time.Now(),
		Site:      site,
		Projects:  []Entry{},
	}
}

// Build creates a manifest listing projects in their display order.
func Build(projects []*project.Project, opts Options) *Manifest {
	m := New(opts.Site)

	link := opts.Link
	if link == nil {
		link = func(p string) string { return p }
	}

	for _, p := range projects {
		entryPath := p.Path
		if opts.Root != "" {
			if rel, err := filepath.Rel(opts.Root, p.Path); err == nil {
				entryPath = filepath.ToSlash(rel)
			}
		}

		m.Projects = append(m.Projects, Entry{
			Slug:       p.Slug,
			Title:      p.Title,
			Date:       p.Date,
			Tags:       nonNil(p.Tags),
			Categories: nonNil(p.Categories),
			Summary:    p.Summary,
			Image:      p.CardImage(opts.Placeholder),
			URL:        link(p.URL()),
			Source:     p.Source,
			Path:       entryPath,
			Modified:   p.Modified,
			Outline:    p.Outline,
		})
	}

	return m
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Find returns the entry for slug.
func (m *Manifest) Find(slug string) (*Entry, bool) {
	for i := range m.Projects {
		if m.Projects[i].Slug == slug {
			return &m.Projects[i], true
		}
	}
	return nil, false
}

// Encode returns the indented JSON form written to disk and served over
// HTTP.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, oops.
			Code("MANIFEST_WRITE_ERROR").
			Wrapf(err, "encoding manifest")
	}
	return append(data, '\n'), nil
}

func Load(outputDir string) (*Manifest, error) {
	manifestPath := Path(outputDir)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, oops.
				Code("MANIFEST_NOT_FOUND").
				With("path", manifestPath).
				Hint("Run 'portfolio build' to generate the site").
				Errorf("manifest not found at %q", manifestPath)
		}

		return nil, oops.
			Code("MANIFEST_READ_ERROR").
			With("path", manifestPath).
			Wrapf(err, "reading manifest file")
	}

	m := &Manifest{}
	if unmarshalErr := json.Unmarshal(data, m); unmarshalErr != nil {
		return nil, oops.
			Code("MANIFEST_CORRUPTED").
			With("path", manifestPath).
			Hint("Delete projects.json and run 'portfolio build'").
			Wrapf(unmarshalErr, "parsing manifest file")
	}

	if m.Projects == nil {
		m.Projects = []Entry{}
	}

	return m, nil
}

func (m *Manifest) Save(outputDir string) error {
	if m == nil {
		return oops.
			Code("MANIFEST_WRITE_ERROR").
			Hint("Initialize manifest before saving").
			Errorf("cannot save nil manifest")
	}

	data, err := m.Encode()
	if err != nil {
		return err
	}

	if writeErr := atomicfile.Write(Path(outputDir), data, FileMode); writeErr != nil {
		return oops.
			Code("MANIFEST_WRITE_ERROR").
			Wrapf(writeErr, "writing manifest")
	}

	return nil
}

func Path(outputDir string) string {
	return filepath.Join(outputDir, ManifestFile)
}
