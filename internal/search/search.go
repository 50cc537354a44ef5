package search

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/samber/oops"

	"github.com/R-Vicente/signal-and-noise/internal/project"
)

// Result represents the best match for one project.
type Result struct {
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Summary    string `json:"summary,omitempty"`
	MatchField string `json:"match_field"`
	MatchValue string `json:"match_value"`
	Score      int    `json:"score"`
}

// Options configures search behavior.
type Options struct {
	Query    string
	Category string
	Limit    int
}

type indexEntry struct {
	project *project.Project
	field   string
	value   string
}

type searchIndex struct {
	entries []indexEntry
}

func (s searchIndex) String(i int) string {
	return s.entries[i].value
}

func (s searchIndex) Len() int {
	return len(s.entries)
}

func buildIndex(projects []*project.Project, category string) searchIndex {
	var entries []indexEntry
	add := func(p *project.Project, field, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		entries = append(entries, indexEntry{project: p, field: field, value: value})
	}

	for _, p := range projects {
		if !p.InCategory(category) {
			continue
		}

		add(p, "title", p.Title)
		add(p, "slug", p.Slug)
		for _, tag := range p.Tags {
			add(p, "tag", tag)
		}
		for _, c := range p.Categories {
			add(p, "category", c)
		}
		add(p, "summary", p.Summary)
		for _, heading := range p.Outline {
			add(p, "heading", heading.Text)
		}
	}

	return searchIndex{entries: entries}
}

// Projects fuzzy matches the query against project metadata and returns
// the best match per project, highest score first.
func Projects(projects []*project.Project, opts Options) ([]Result, error) {
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return nil, oops.
			Code("INVALID_ARGS").
			Hint("Provide a non-empty search query").
			Errorf("search query cannot be empty")
	}

	index := buildIndex(projects, opts.Category)
	matches := fuzzy.FindFrom(query, index)

	deduped := make(map[string]Result)
	for _, match := range matches {
		entry := index.entries[match.Index]
		slug := entry.project.Slug

		if existing, exists := deduped[slug]; !exists || match.Score > existing.Score {
			deduped[slug] = Result{
				Slug:       slug,
				Title:      entry.project.Title,
				Summary:    entry.project.Summary,
				MatchField: entry.field,
				MatchValue: entry.value,
				Score:      match.Score,
			}
		}
	}

	results := make([]Result, 0, len(deduped))
	for _, result := range deduped {
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Slug < results[j].Slug
	})

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	return results, nil
}
