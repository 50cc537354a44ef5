package parser

import (
	"regexp"
	"strings"
)

const ellipsis = "..."

var (
	projectGoalsPattern   = regexp.MustCompile(`##\s*Project Goals\s*\n\n([^#]+)`)
	leadingHeadingPattern = regexp.MustCompile(`^#[^\n]*(\n|$)`)
)

// ShortDescription picks the text shown under a project title. The first
// paragraph of a "## Project Goals" section wins; otherwise the first
// non-heading block of the body is used.
func ShortDescription(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	if m := projectGoalsPattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}

	for block := range strings.SplitSeq(trimLeadingBlankLines(content), "\n\n") {
		block = strings.TrimSpace(leadingHeadingPattern.ReplaceAllString(block, ""))
		if block != "" {
			return block
		}
	}

	return ""
}

// Truncate shortens s to at most limit runes, ending in "...".
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= len(ellipsis) || len(runes) <= limit {
		return s
	}
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
