// Package parser turns project documents into structured data.
//
// A project document is markdown with an optional frontmatter block
// delimited by "---" lines. ParseFrontmatter splits the block into simple
// key/value fields, MarkdownParser renders the body to an HTML fragment and
// extracts the heading outline and short description used by the listing.
package parser
