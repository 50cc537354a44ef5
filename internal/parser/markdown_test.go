package parser_test

import (
	"strings"
	"testing"

	"github.com/R-Vicente/signal-and-noise/internal/parser"
)

func TestMarkdownParser_CanParse(t *testing.T) {
	p := parser.NewMarkdownParser()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"markdown file", "radio.md", true},
		{"mdx file", "showcase.mdx", true},
		{"text file", "notes.txt", false},
		{"uppercase", "DOC.MD", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CanParse(tt.path); got != tt.want {
				t.Errorf("CanParse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkdownParser_Render(t *testing.T) {
	p := parser.NewMarkdownParser()

	tests := []struct {
		name         string
		content      string
		wantContains []string
		wantAbsent   []string
	}{
		{
			name:    "headings",
			content: "# One\n\n## Two\n\n### Three",
			wantContains: []string{
				"<h1>One</h1>",
				"<h2>Two</h2>",
				"<h3>Three</h3>",
			},
		},
		{
			name:         "bold and italic",
			content:      "Some **bold** and *italic* text.",
			wantContains: []string{"<strong>bold</strong>", "<em>italic</em>", "<p>Some"},
		},
		{
			name:         "star and dash lists merge into one list",
			content:      "* first\n* second\n* third",
			wantContains: []string{"<ul>", "<li>first</li>", "<li>third</li>"},
		},
		{
			name:         "dash list",
			content:      "- alpha\n- beta",
			wantContains: []string{"<ul>", "<li>alpha</li>", "<li>beta</li>"},
		},
		{
			name:    "image gets inline style",
			content: "![Dish antenna](/img/dish.png)",
			wantContains: []string{
				`<img src="/img/dish.png" alt="Dish antenna" style="` + parser.ImageStyle + `">`,
			},
			wantAbsent: []string{"<p>"},
		},
		{
			name:         "links open in a new tab",
			content:      "See [the repo](https://example.com/repo).",
			wantContains: []string{`<a href="https://example.com/repo" target="_blank" rel="noopener noreferrer">the repo</a>`},
		},
		{
			name:         "relative links also open in a new tab",
			content:      "See [notes](/notes).",
			wantContains: []string{`<a href="/notes" target="_blank"`},
		},
		{
			name:         "script links are neutralized",
			content:      "[click](javascript:void)",
			wantContains: []string{`<a href="#"`},
			wantAbsent:   []string{"javascript:"},
		},
		{
			name:    "caption under image",
			content: "![Spectrum](/img/spectrum.png)\n*(Caption: Hydrogen line at 1420 MHz)*",
			wantContains: []string{
				`<div class="image-caption">Hydrogen line at 1420 MHz</div>`,
				`<img src="/img/spectrum.png"`,
			},
			wantAbsent: []string{"<em>", "<p>"},
		},
		{
			name:         "standalone caption",
			content:      "*(Caption: A lone caption)*",
			wantContains: []string{`<div class="image-caption">A lone caption</div>`},
			wantAbsent:   []string{"<p>"},
		},
		{
			name:         "plain paragraphs are wrapped",
			content:      "First paragraph.\n\nSecond paragraph.",
			wantContains: []string{"<p>First paragraph.</p>", "<p>Second paragraph.</p>"},
		},
		{
			name:         "text is escaped",
			content:      "a < b & c",
			wantContains: []string{"a &lt; b &amp; c"},
		},
		{
			name:       "raw html dropped by default",
			content:    "<script>alert(1)</script>\n\nText",
			wantAbsent: []string{"<script>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(p.Render([]byte(tt.content)))

			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Render() missing %q in:\n%s", want, got)
				}
			}

			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Render() unexpectedly contains %q in:\n%s", absent, got)
				}
			}
		})
	}
}

func TestMarkdownParser_RenderUnsafeHTML(t *testing.T) {
	p := parser.NewMarkdownParser(parser.WithUnsafeHTML(true))

	got := string(p.Render([]byte("<div class=\"embed\">video</div>\n\nText")))
	if !strings.Contains(got, `<div class="embed">`) {
		t.Errorf("Render() dropped raw html with unsafe enabled:\n%s", got)
	}
}

func TestMarkdownParser_Parse(t *testing.T) {
	p := parser.NewMarkdownParser()

	content := `---
title: Radio Telescope
tags: [go, sdr]
---

# Radio Telescope

A backyard dish.

## Project Goals

Map the galactic hydrogen line.

## Results

It worked.`

	result, err := p.Parse("radio-telescope.md", []byte(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := result.Document.String("title"); got != "Radio Telescope" {
		t.Errorf("title = %q", got)
	}

	if result.Summary != "Map the galactic hydrogen line." {
		t.Errorf("Summary = %q", result.Summary)
	}

	if !strings.Contains(string(result.HTML), "<h2>Project Goals</h2>") {
		t.Errorf("HTML missing section heading:\n%s", result.HTML)
	}

	if strings.Contains(string(result.HTML), "title:") {
		t.Errorf("HTML contains frontmatter:\n%s", result.HTML)
	}

	wantLines := []int{6, 10, 14}
	if len(result.Outline.Headings) != len(wantLines) {
		t.Fatalf("Headings = %+v, want %d", result.Outline.Headings, len(wantLines))
	}
	for i, h := range result.Outline.Headings {
		if h.Line != wantLines[i] {
			t.Errorf("Heading[%d] %q Line = %d, want %d", i, h.Text, h.Line, wantLines[i])
		}
	}

	if result.Lines != 16 {
		t.Errorf("Lines = %d, want 16", result.Lines)
	}
}

func TestMarkdownParser_HeadingLineNumbers(t *testing.T) {
	t.Parallel()

	p := parser.NewMarkdownParser()

	tests := []struct {
		name      string
		content   string
		wantLines []int
	}{
		{
			name:      "ATX headings with blank lines",
			content:   "# Title\n\nSome text.\n\n## Section\n\n### Sub",
			wantLines: []int{1, 5, 7},
		},
		{
			name:      "frontmatter offsets line numbers",
			content:   "---\ntitle: Test\n---\n\n## Query Basics\n\n### Details",
			wantLines: []int{5, 7},
		},
		{
			name:      "setext headings",
			content:   "Title\n=====\n\nSection\n------\n\n### ATX",
			wantLines: []int{1, 4, 7},
		},
		{
			name:      "headings inside code blocks ignored",
			content:   "# Real\n\n```\n# Fake\n```\n\n## Also Real",
			wantLines: []int{1, 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := p.Parse("test.md", []byte(tt.content))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			if len(result.Outline.Headings) != len(tt.wantLines) {
				t.Fatalf("Headings count = %d, want %d", len(result.Outline.Headings), len(tt.wantLines))
			}

			for i, heading := range result.Outline.Headings {
				if heading.Line != tt.wantLines[i] {
					t.Errorf("Heading[%d] %q: Line = %d, want %d", i, heading.Text, heading.Line, tt.wantLines[i])
				}
			}
		})
	}
}

func TestMarkdownParser_ParseMDX(t *testing.T) {
	p := parser.NewMarkdownParser()

	content := "---\ntitle: Showcase\n---\nimport Demo from './Demo'\n\n# Showcase\n\nLive demo below."

	result, err := p.Parse("showcase.mdx", []byte(content))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if strings.Contains(string(result.HTML), "import Demo") {
		t.Errorf("HTML kept MDX import:\n%s", result.HTML)
	}

	if result.Summary != "Live demo below." {
		t.Errorf("Summary = %q", result.Summary)
	}
}
