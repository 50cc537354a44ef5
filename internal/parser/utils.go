package parser

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	importLineRegex = regexp.MustCompile(`(?m)^\s*import\s+`)
	exportMetaRegex = regexp.MustCompile(`(?m)^\s*export\s+(const|let|var)\s+\w+\s*=`)
)

// IsBinary checks first 512 bytes for null bytes.
func IsBinary(content []byte) bool {
	const maxCheckSize = 512
	size := min(len(content), maxCheckSize)
	return bytes.IndexByte(content[:size], 0) != -1
}

// IsValidUTF8 validates the content is valid UTF-8.
func IsValidUTF8(content []byte) bool {
	return utf8.Valid(content)
}

// StripBOM removes UTF-8 BOM (0xEF, 0xBB, 0xBF) if present.
func StripBOM(content []byte) []byte {
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:]
	}
	return content
}

// DetectFileType maps file extension to type string.
// Returns: "md", "mdx", or "unknown".
func DetectFileType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "md"
	case ".mdx":
		return "mdx"
	default:
		return "unknown"
	}
}

// StripMDX drops ESM import and export lines so MDX documents render as
// plain markdown. Frontmatter is left untouched.
func StripMDX(content []byte) []byte {
	lines := bytes.Split(content, []byte("\n"))
	cleaned := make([][]byte, 0, len(lines))

	for _, line := range lines {
		if importLineRegex.Match(line) || exportMetaRegex.Match(line) {
			continue
		}
		cleaned = append(cleaned, line)
	}

	return bytes.Join(cleaned, []byte("\n"))
}
