package parser_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/R-Vicente/signal-and-noise/internal/parser"
)

func TestIsBinary(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    bool
	}{
		{
			name:    "null byte in content",
			content: []byte("hello\x00world"),
			want:    true,
		},
		{
			name:    "valid text",
			content: []byte("hello world"),
			want:    false,
		},
		{
			name:    "empty content",
			content: []byte{},
			want:    false,
		},
		{
			name:    "null byte at start",
			content: []byte("\x00hello"),
			want:    true,
		},
		{
			name: "null byte beyond 512 bytes",
			content: func() []byte {
				b := make([]byte, 513)
				for i := range b {
					b[i] = 'a' // Fill with non-null bytes
				}
				b[512] = 0 // Null byte at position 512 (beyond first 512 bytes checked)
				return b
			}(),
			want: false,
		},
		{
			name:    "null byte within 512 bytes",
			content: append(make([]byte, 256), 0),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parser.IsBinary(tt.content); got != tt.want {
				t.Errorf("IsBinary() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidUTF8(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    bool
	}{
		{
			name:    "valid utf8",
			content: []byte("hello world"),
			want:    true,
		},
		{
			name:    "valid utf8 with unicode",
			content: []byte("hello 世界"),
			want:    true,
		},
		{
			name:    "invalid utf8",
			content: []byte{0xff, 0xfe, 0xfd},
			want:    false,
		},
		{
			name:    "empty content",
			content: []byte{},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parser.IsValidUTF8(tt.content); got != tt.want {
				t.Errorf("IsValidUTF8() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStripBOM(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    []byte
	}{
		{
			name:    "with BOM",
			content: []byte{0xEF, 0xBB, 0xBF, 'h', 'e', 'l', 'l', 'o'},
			want:    []byte("hello"),
		},
		{
			name:    "without BOM",
			content: []byte("hello"),
			want:    []byte("hello"),
		},
		{
			name:    "empty content",
			content: []byte{},
			want:    []byte{},
		},
		{
			name:    "partial BOM",
			content: []byte{0xEF, 0xBB},
			want:    []byte{0xEF, 0xBB},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parser.StripBOM(tt.content)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("StripBOM() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "markdown file", path: "radio-telescope.md", want: "md"},
		{name: "long markdown extension", path: "noise-gate.markdown", want: "md"},
		{name: "mdx file", path: "showcase.mdx", want: "mdx"},
		{name: "text file", path: "notes.txt", want: "unknown"},
		{name: "go file", path: "main.go", want: "unknown"},
		{name: "uppercase extension", path: "README.MD", want: "md"},
		{name: "path with directory", path: "projects/2024/sdr.md", want: "md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parser.DetectFileType(tt.path); got != tt.want {
				t.Errorf("DetectFileType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStripMDX(t *testing.T) {
	content := []byte(`---
title: Showcase
---
import Chart from "./Chart"
export const meta = { wide: true }

# Showcase

Body text.`)

	got := string(parser.StripMDX(content))

	if strings.Contains(got, "import Chart") {
		t.Errorf("StripMDX() kept import line:\n%s", got)
	}
	if strings.Contains(got, "export const") {
		t.Errorf("StripMDX() kept export line:\n%s", got)
	}
	if !strings.Contains(got, "title: Showcase") || !strings.Contains(got, "Body text.") {
		t.Errorf("StripMDX() dropped document content:\n%s", got)
	}
}
