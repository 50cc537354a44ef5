// Package view renders the project listing and detail views from embedded
// html/template files.
package view

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"net/url"
	"strings"

	"github.com/samber/oops"

	"github.com/R-Vicente/signal-and-noise/internal/config"
	"github.com/R-Vicente/signal-and-noise/internal/parser"
	"github.com/R-Vicente/signal-and-noise/internal/project"
)

//go:embed templates/*.html
var templatesFS embed.FS //nolint:gochecknoglobals // embedded assets

//nolint:gochecknoglobals // parsed once from the embedded assets
var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type Renderer struct {
	site     config.Site
	display  config.Display
	filters  []config.Filter
	basePath string
}

type cardView struct {
	Slug        string
	Title       string
	Image       string
	Description string
	Tags        []string
	Categories  string
	URL         string
}

type detailView struct {
	Title        string
	Image        string
	Description  string
	Technologies string
	Date         string
	Content      template.HTML
	BackURL      string
}

type filterView struct {
	Label  string
	Value  string
	URL    string
	Active bool
}

type indexView struct {
	Filters []filterView
	Cards   []cardView
	Empty   string
}

type notFoundView struct {
	Message string
	BackURL string
}

type pageView struct {
	SiteTitle string
	Tagline   string
	Title     string
	Home      string
	Canonical string
	Body      template.HTML
}

func New(cfg *config.Config) *Renderer {
	r := &Renderer{
		site:    cfg.Site,
		display: cfg.Display,
		filters: cfg.Filters,
	}

	if u, err := url.Parse(cfg.Site.BaseURL); err == nil {
		r.basePath = strings.TrimSuffix(u.Path, "/")
	}

	return r
}

// Link prefixes a site path with the base URL path.
func (r *Renderer) Link(sitePath string) string {
	return r.basePath + sitePath
}

// Filters returns the configured filter values, "all" first.
func (r *Renderer) Filters() []config.Filter {
	return r.filters
}

// HasFilter reports whether value is one of the configured filters.
func (r *Renderer) HasFilter(value string) bool {
	value = strings.ToLower(value)
	for _, f := range r.filters {
		if f.Value == value {
			return true
		}
	}
	return false
}

// Card renders one listing card.
func (r *Renderer) Card(w io.Writer, p *project.Project) error {
	return r.execute(w, "card", r.card(p))
}

// Detail renders the detail view of a project.
func (r *Renderer) Detail(w io.Writer, p *project.Project) error {
	return r.execute(w, "detail", detailView{
		Title:        p.Title,
		Image:        p.DetailImage(r.display.DetailPlaceholder),
		Description:  p.Summary,
		Technologies: p.Technologies(r.display.Technologies),
		Date:         p.DisplayDate(),
		Content:      template.HTML(p.HTML), //nolint:gosec // rendered by the markdown parser
		BackURL:      r.Link("/"),
	})
}

// Index renders the filter bar and the cards of the projects shown under
// filter.
func (r *Renderer) Index(w io.Writer, projects []*project.Project, filter string) error {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		filter = config.FilterAll
	}

	v := indexView{Empty: r.display.EmptyMessage}

	for _, f := range r.filters {
		v.Filters = append(v.Filters, filterView{
			Label:  f.Label,
			Value:  f.Value,
			URL:    r.Link(project.CategoryPath(f.Value)),
			Active: f.Value == filter,
		})
	}

	for _, p := range projects {
		if p.InCategory(filter) {
			v.Cards = append(v.Cards, r.card(p))
		}
	}

	return r.execute(w, "index", v)
}

func (r *Renderer) NotFound(w io.Writer, message string) error {
	return r.execute(w, "notfound", notFoundView{
		Message: message,
		BackURL: r.Link("/"),
	})
}

// Page wraps a rendered fragment in the site layout.
func (r *Renderer) Page(w io.Writer, title string, sitePath string, body []byte) error {
	v := pageView{
		SiteTitle: r.site.Title,
		Tagline:   r.site.Tagline,
		Title:     title,
		Home:      r.Link("/"),
		Body:      template.HTML(body), //nolint:gosec // fragments come from the templates above
	}
	if r.site.BaseURL != "" {
		v.Canonical = strings.TrimSuffix(r.site.BaseURL, "/") + sitePath
	}

	return r.execute(w, "page", v)
}

// IndexPage renders the full listing page for filter.
func (r *Renderer) IndexPage(w io.Writer, projects []*project.Project, filter string) error {
	var body bytes.Buffer
	if err := r.Index(&body, projects, filter); err != nil {
		return err
	}

	title := ""
	sitePath := project.CategoryPath(filter)
	for _, f := range r.filters {
		if f.Value == strings.ToLower(filter) && f.Value != config.FilterAll {
			title = f.Label
		}
	}

	return r.Page(w, title, sitePath, body.Bytes())
}

// DetailPage renders the full detail page of a project.
func (r *Renderer) DetailPage(w io.Writer, p *project.Project) error {
	var body bytes.Buffer
	if err := r.Detail(&body, p); err != nil {
		return err
	}
	return r.Page(w, p.Title, p.URL(), body.Bytes())
}

// NotFoundPage renders the full not-found page.
func (r *Renderer) NotFoundPage(w io.Writer, message string) error {
	var body bytes.Buffer
	if err := r.NotFound(&body, message); err != nil {
		return err
	}
	return r.Page(w, "Not found", "/", body.Bytes())
}

func (r *Renderer) card(p *project.Project) cardView {
	return cardView{
		Slug:        p.Slug,
		Title:       p.Title,
		Image:       p.CardImage(r.display.CardPlaceholder),
		Description: parser.Truncate(p.Summary, r.display.DescriptionLength),
		Tags:        p.CardTags(r.display.CardTags),
		Categories:  p.CategoryAttr(),
		URL:         r.Link(p.URL()),
	}
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		return oops.
			Code("RENDER_FAILED").
			With("template", name).
			Wrapf(err, "rendering %s", name)
	}
	return nil
}
