package parser

import (
	"bytes"
	"fmt"
	stdhtml "html"
	"io"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const (
	setextH1Level = 1
	setextH2Level = 2

	// ImageStyle is applied to every image in a project body so screenshots
	// scale to the content column.
	ImageStyle = "width: 100%; height: auto; border-radius: 8px; max-width: 800px; display: block; margin: 20px auto;"

	captionPrefix = "(Caption:"
	captionSuffix = ")"
)

type MarkdownParser struct {
	unsafeHTML bool
}

type Option func(*MarkdownParser)

// WithUnsafeHTML keeps raw HTML blocks and inline tags from the document.
func WithUnsafeHTML(enabled bool) Option {
	return func(p *MarkdownParser) {
		p.unsafeHTML = enabled
	}
}

func NewMarkdownParser(opts ...Option) *MarkdownParser {
	p := &MarkdownParser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *MarkdownParser) CanParse(path string) bool {
	switch DetectFileType(path) {
	case "md", "mdx":
		return true
	default:
		return false
	}
}

func (p *MarkdownParser) Parse(path string, content []byte) (*Result, error) {
	content = StripBOM(content)
	if DetectFileType(path) == "mdx" {
		content = StripMDX(content)
	}

	doc := ParseFrontmatter(string(content))
	body := []byte(doc.Body())

	headings := extractHeadings(mdParser().Parse(body))
	fmLineOffset := bytes.Count(content[:len(content)-len(body)], []byte("\n"))
	assignHeadingLineNumbers(headings, body, fmLineOffset)

	return &Result{
		Document: doc,
		Summary:  ShortDescription(string(body)),
		HTML:     p.Render(body),
		Outline:  &Outline{Headings: headings},
		Lines:    bytes.Count(content, []byte("\n")) + 1,
	}, nil
}

// Render converts a markdown body to an HTML fragment.
func (p *MarkdownParser) Render(body []byte) []byte {
	flags := html.FlagsNone
	if !p.unsafeHTML {
		flags |= html.SkipHTML
	}

	renderer := html.NewRenderer(html.RendererOptions{
		Flags:          flags,
		RenderNodeHook: renderHook,
	})

	return markdown.Render(mdParser().Parse(body), renderer)
}

// mdParser returns a fresh parser; gomarkdown parsers are single use.
func mdParser() *parser.Parser {
	return parser.NewWithExtensions(parser.CommonExtensions)
}

func renderHook(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
	switch n := node.(type) {
	case *ast.Image:
		if entering {
			renderImage(w, n)
		}
		return ast.SkipChildren, true

	case *ast.Link:
		if n.NoteID != 0 {
			return ast.GoToNext, false
		}
		if entering {
			renderLinkOpen(w, n)
		} else {
			_, _ = io.WriteString(w, "</a>")
		}
		return ast.GoToNext, true

	case *ast.Emph:
		text, ok := captionText(n)
		if !ok {
			return ast.GoToNext, false
		}
		if entering {
			_, _ = fmt.Fprintf(w, `<div class="image-caption">%s</div>`, stdhtml.EscapeString(text))
		}
		return ast.SkipChildren, true

	case *ast.Paragraph:
		if !isFigureParagraph(n) {
			return ast.GoToNext, false
		}
		if !entering {
			_, _ = io.WriteString(w, "\n")
		}
		return ast.GoToNext, true
	}

	return ast.GoToNext, false
}

func renderImage(w io.Writer, img *ast.Image) {
	_, _ = fmt.Fprintf(w, `<img src="%s" alt="%s"`,
		stdhtml.EscapeString(string(img.Destination)),
		stdhtml.EscapeString(extractText(img)),
	)
	if len(img.Title) > 0 {
		_, _ = fmt.Fprintf(w, ` title="%s"`, stdhtml.EscapeString(string(img.Title)))
	}
	_, _ = fmt.Fprintf(w, ` style="%s">`, ImageStyle)
}

func renderLinkOpen(w io.Writer, link *ast.Link) {
	_, _ = fmt.Fprintf(w, `<a href="%s"`, stdhtml.EscapeString(safeDestination(link.Destination)))
	if len(link.Title) > 0 {
		_, _ = fmt.Fprintf(w, ` title="%s"`, stdhtml.EscapeString(string(link.Title)))
	}
	_, _ = io.WriteString(w, ` target="_blank" rel="noopener noreferrer">`)
}

func safeDestination(dest []byte) string {
	lower := strings.ToLower(strings.TrimSpace(string(dest)))
	for _, scheme := range []string{"javascript:", "vbscript:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return "#"
		}
	}
	return string(dest)
}

// captionText reports whether an emphasis node reads "(Caption: TEXT)" and
// returns TEXT.
func captionText(n *ast.Emph) (string, bool) {
	text := strings.TrimSpace(rawText(n))
	inner, ok := strings.CutPrefix(text, captionPrefix)
	if !ok {
		return "", false
	}
	inner, ok = strings.CutSuffix(inner, captionSuffix)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

// isFigureParagraph reports whether a paragraph holds only images and
// captions, so it renders without a <p> wrapper.
func isFigureParagraph(p *ast.Paragraph) bool {
	hasFigure := false
	for _, child := range p.GetChildren() {
		switch n := child.(type) {
		case *ast.Image:
			hasFigure = true
		case *ast.Softbreak, *ast.Hardbreak:
		case *ast.Text:
			if len(bytes.TrimSpace(n.Literal)) != 0 {
				return false
			}
		case *ast.Emph:
			if _, ok := captionText(n); !ok {
				return false
			}
			hasFigure = true
		default:
			return false
		}
	}
	return hasFigure
}

// rawText concatenates text literals below node without normalizing space.
func rawText(node ast.Node) string {
	var buf strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if entering {
			if leaf := n.AsLeaf(); leaf != nil {
				switch n.(type) {
				case *ast.Text, *ast.Code:
					buf.Write(leaf.Literal)
				}
			}
		}
		return ast.GoToNext
	})
	return buf.String()
}

func extractHeadings(doc ast.Node) []Heading {
	var headings []Heading

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}

		if heading, isHeading := node.(*ast.Heading); isHeading {
			if text := extractText(heading); text != "" {
				headings = append(headings, Heading{
					Level: heading.Level,
					Text:  text,
				})
			}
		}

		return ast.GoToNext
	})

	return headings
}

func extractText(node ast.Node) string {
	// Normalize whitespace - replace multiple spaces/newlines with single space
	return strings.Join(strings.Fields(rawText(node)), " ")
}

// assignHeadingLineNumbers scans content for heading markers and assigns
// the correct line number to each heading in document order.
// This is necessary because gomarkdown's AST does not store source positions.
func assignHeadingLineNumbers(headings []Heading, content []byte, lineOffset int) {
	if len(headings) == 0 {
		return
	}

	lines := bytes.Split(content, []byte("\n"))
	hi := 0
	inFenced := false

	for lineIdx := 0; lineIdx < len(lines) && hi < len(headings); lineIdx++ {
		line := lines[lineIdx]
		trimmed := bytes.TrimSpace(line)

		if isFenceMarker(trimmed) {
			inFenced = !inFenced
			continue
		}
		if inFenced {
			continue
		}

		if level := atxHeadingLevel(line); level == headings[hi].Level {
			headings[hi].Line = lineOffset + lineIdx + 1
			hi++
			continue
		}

		if level := setextHeadingLevel(lines, lineIdx, trimmed); level == headings[hi].Level {
			headings[hi].Line = lineOffset + lineIdx + 1
			hi++
		}
	}
}

func isFenceMarker(trimmed []byte) bool {
	return bytes.HasPrefix(trimmed, []byte("```")) || bytes.HasPrefix(trimmed, []byte("~~~"))
}

// atxHeadingLevel returns the heading level (1-6) for an ATX heading line,
// or 0 if the line is not an ATX heading.
func atxHeadingLevel(line []byte) int {
	spaces := 0
	for spaces < len(line) && spaces < 4 && line[spaces] == ' ' {
		spaces++
	}
	if spaces >= 4 || spaces >= len(line) || line[spaces] != '#' {
		return 0
	}

	level := 0
	for spaces+level < len(line) && level < 7 && line[spaces+level] == '#' {
		level++
	}
	if level >= 1 && level <= 6 && spaces+level < len(line) && line[spaces+level] == ' ' {
		return level
	}
	return 0
}

// setextHeadingLevel returns 1 for === underlines, 2 for --- underlines.
func setextHeadingLevel(lines [][]byte, lineIdx int, trimmed []byte) int {
	if lineIdx+1 >= len(lines) || len(trimmed) == 0 {
		return 0
	}
	nextTrimmed := bytes.TrimSpace(lines[lineIdx+1])
	if allSameChar(nextTrimmed, '=') {
		return setextH1Level
	}
	if allSameChar(nextTrimmed, '-') {
		return setextH2Level
	}
	return 0
}

func allSameChar(b []byte, ch byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c != ch {
			return false
		}
	}
	return true
}
