package doctree

import (
	"path/filepath"
	"strings"
)

// Format identifies a supported source document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections
}

// Flatten joins every heading and text block in document order, separated by
// blank lines.
func (t *DocTree) Flatten() string {
	if t == nil {
		return ""
	}
	var parts []string
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			if s := strings.TrimSpace(n.Title); s != "" {
				parts = append(parts, s)
			}
			if s := strings.TrimSpace(n.Text); s != "" {
				parts = append(parts, s)
			}
			walk(n.Children)
		}
	}
	walk(t.Children)
	return strings.Join(parts, "\n\n")
}

// Document is a source file together with its extracted text. Text is either
// the full extraction or empty; it is never partially populated.
type Document struct {
	Raw    []byte
	Format Format
	Title  string
	Text   string
}

// TitleFromFilename strips directory and extension from a filename.
func TitleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Chunk is a contiguous slice of a document's text, bounded in length.
type Chunk struct {
	Index      int    // Position in document order, starting at 0
	Text       string // Chunk text content
	Offset     int    // Byte offset of Text within the source text
	ByteLength int    // len(Text)
	Oversized  bool   // A single sentence longer than the length budget
}
