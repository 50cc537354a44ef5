// Package project holds the portfolio project model and the store that
// loads project documents from disk.
package project

import (
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/R-Vicente/signal-and-noise/internal/config"
	"github.com/R-Vicente/signal-and-noise/internal/parser"
)

const (
	UntitledTitle = "Untitled Project"
	NotAvailable  = "N/A"
)

type Project struct {
	Slug          string           `json:"slug"`
	Title         string           `json:"title"`
	Date          string           `json:"date,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
	Categories    []string         `json:"categories,omitempty"`
	FeaturedImage string           `json:"featured_image,omitempty"`
	Summary       string           `json:"summary,omitempty"`
	Draft         bool             `json:"draft,omitempty"`
	Content       string           `json:"-"`
	HTML          string           `json:"-"`
	Outline       []parser.Heading `json:"outline,omitempty"`
	Path          string           `json:"path"`
	Source        string           `json:"source,omitempty"`
	Modified      time.Time        `json:"modified"`
}

// New builds a project from a parsed document. Config categories take
// precedence over a "categories" frontmatter field.
func New(slug string, filePath string, res *parser.Result, categories []string) *Project {
	doc := res.Document

	title := strings.TrimSpace(doc.String("title"))
	if title == "" {
		title = UntitledTitle
	}

	if len(categories) == 0 {
		categories = normalizeCategories(doc.List("categories"))
	}

	p := &Project{
		Slug:          slug,
		Title:         title,
		Date:          strings.TrimSpace(doc.String("date")),
		Tags:          doc.List("tags"),
		Categories:    slices.Clone(categories),
		FeaturedImage: strings.TrimSpace(doc.String("featured_image")),
		Summary:       res.Summary,
		Draft:         doc.Bool("draft"),
		Content:       doc.Body(),
		HTML:          string(res.HTML),
		Path:          filePath,
	}

	if res.Outline != nil {
		p.Outline = res.Outline.Headings
	}

	return p
}

// SlugFor picks the slug of a document: a valid frontmatter slug, or the
// slugified file name.
func SlugFor(filePath string, doc parser.Document) string {
	if s := strings.TrimSpace(doc.String("slug")); config.ValidSlug(s) {
		return s
	}

	base := filepath.Base(filePath)
	return Slugify(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Slugify lowercases name and collapses every run of other characters
// into a single dash.
func Slugify(name string) string {
	var b strings.Builder
	dash := false

	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// CardImage returns the image shown on the listing card.
func (p *Project) CardImage(placeholder string) string {
	return p.image(placeholder)
}

// DetailImage returns the image shown in the detail header.
func (p *Project) DetailImage(placeholder string) string {
	return p.image(placeholder)
}

// An image starting with "#" is a commented-out value in the document.
func (p *Project) image(placeholder string) string {
	if p.FeaturedImage == "" || strings.HasPrefix(p.FeaturedImage, "#") {
		return placeholder
	}
	return p.FeaturedImage
}

// CardTags returns at most n tags.
func (p *Project) CardTags(n int) []string {
	if n < len(p.Tags) {
		return p.Tags[:n]
	}
	return p.Tags
}

// Technologies joins the first n tags, or returns N/A without tags.
func (p *Project) Technologies(n int) string {
	tags := p.CardTags(n)
	if len(tags) == 0 {
		return NotAvailable
	}
	return strings.Join(tags, ", ")
}

func (p *Project) DisplayDate() string {
	if p.Date == "" {
		return NotAvailable
	}
	return p.Date
}

// CategoryAttr is the space separated category list used on cards.
func (p *Project) CategoryAttr() string {
	return strings.Join(p.Categories, " ")
}

// InCategory reports whether the project is shown under filter. The "all"
// filter and the empty filter match every project.
func (p *Project) InCategory(filter string) bool {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" || filter == config.FilterAll {
		return true
	}
	return slices.Contains(p.Categories, filter)
}

// URL is the site path of the detail view.
func (p *Project) URL() string {
	return DetailPath(p.Slug)
}

// DetailPath is the site path of the detail view of slug.
func DetailPath(slug string) string {
	return path.Join("/projects", slug) + "/"
}

// CategoryPath is the site path of the listing filtered to category.
func CategoryPath(category string) string {
	if category == "" || category == config.FilterAll {
		return "/"
	}
	return path.Join("/category", category) + "/"
}

func normalizeCategories(raw []string) []string {
	var out []string
	for _, c := range raw {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}
