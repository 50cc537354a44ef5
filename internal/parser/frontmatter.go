package parser

import (
	"regexp"
	"strings"
)

// frontmatterPattern matches the first "---" block at the start of the
// document. The block ends at the next "---", wherever it appears.
var frontmatterPattern = regexp.MustCompile(`(?s)^---\s*(.*?)\s*---`)

// Value is a single frontmatter field. Bracketed values such as
// `[go, "htmx"]` are lists, everything else is a scalar.
type Value struct {
	Scalar string
	Items  []string
	IsList bool
}

// Document is a split project document.
type Document struct {
	Fields         map[string]Value
	Keys           []string
	Content        string
	HasFrontmatter bool
}

// ParseFrontmatter splits markdown into its frontmatter fields and body.
// A document without a leading "---" block is returned whole as Content.
func ParseFrontmatter(markdown string) Document {
	markdown = string(StripBOM([]byte(markdown)))

	loc := frontmatterPattern.FindStringSubmatchIndex(markdown)
	if loc == nil {
		return Document{
			Fields:  map[string]Value{},
			Content: markdown,
		}
	}

	block := markdown[loc[2]:loc[3]]
	doc := Document{
		Fields:         map[string]Value{},
		Content:        markdown[loc[1]:],
		HasFrontmatter: true,
	}

	for line := range strings.SplitSeq(block, "\n") {
		key, raw, found := strings.Cut(line, ":")
		if key == "" || !found {
			continue
		}

		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}

		doc.set(key, parseValue(strings.TrimSpace(raw)))
	}

	return doc
}

func parseValue(raw string) Value {
	if len(raw) >= 2 && strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		inner := raw[1 : len(raw)-1]
		items := make([]string, 0, strings.Count(inner, ",")+1)
		for item := range strings.SplitSeq(inner, ",") {
			item = stripQuotes(strings.TrimSpace(item))
			if item != "" {
				items = append(items, item)
			}
		}
		return Value{Items: items, IsList: true}
	}

	return Value{Scalar: stripQuotes(raw)}
}

func stripQuotes(s string) string {
	return strings.NewReplacer(`"`, "", `'`, "").Replace(s)
}

func (d *Document) set(key string, v Value) {
	if _, exists := d.Fields[key]; !exists {
		d.Keys = append(d.Keys, key)
	}
	d.Fields[key] = v
}

// Has reports whether key is present in the frontmatter.
func (d Document) Has(key string) bool {
	_, ok := d.Fields[key]
	return ok
}

// String returns a scalar field, or a list field joined with ", ".
func (d Document) String(key string) string {
	v, ok := d.Fields[key]
	if !ok {
		return ""
	}
	if v.IsList {
		return strings.Join(v.Items, ", ")
	}
	return v.Scalar
}

// List returns a list field. Scalars are split on commas.
func (d Document) List(key string) []string {
	v, ok := d.Fields[key]
	if !ok {
		return nil
	}
	if v.IsList {
		return append([]string(nil), v.Items...)
	}

	var items []string
	for item := range strings.SplitSeq(v.Scalar, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Bool interprets a scalar field as a flag.
func (d Document) Bool(key string) bool {
	switch strings.ToLower(d.String(key)) {
	case "true", "yes", "on", "1":
		return true
	default:
		return false
	}
}

// Body returns the content without the blank lines left behind by the
// frontmatter delimiter.
func (d Document) Body() string {
	return trimLeadingBlankLines(d.Content)
}

func trimLeadingBlankLines(s string) string {
	for {
		line, rest, found := strings.Cut(s, "\n")
		if strings.TrimSpace(line) != "" {
			return s
		}
		if !found {
			return ""
		}
		s = rest
	}
}
