package parser

// Parser extracts frontmatter, rendered HTML and summary data from a document.
type Parser interface {
	Parse(path string, content []byte) (*Result, error)
	CanParse(path string) bool
}

type Result struct {
	Document Document
	Summary  string
	HTML     []byte
	Outline  *Outline
	Lines    int
}

type Outline struct {
	Headings []Heading `json:"headings,omitempty"`
}

type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Line  int    `json:"line"`
}
