// Package report renders aggregated pipeline output as downloadable
// documents.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Content is an ordered set of outputs plus the chunks that produced none.
type Content interface {
	Outputs() []string
	FailedIndices() []int
}

type Format string

const (
	FormatText Format = "txt"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatHTML Format = "html"
)

// ContentType returns the MIME type served for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

// ExportError is returned when one artifact cannot be produced.
type ExportError struct {
	Format Format
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// documentDate is stamped into generated documents so that identical content
// always yields identical bytes.
var documentDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Exporter renders Content. The zero value writes untitled documents with
// each output as its own block.
type Exporter struct {
	Title string
	// Marker, when set, splits the joined outputs into blocks, e.g. one per
	// generated question.
	Marker string
	// Separator joins outputs in plain text. Defaults to "\n".
	Separator string
}

// Export renders c in format f. Output is deterministic for equal inputs.
func (e *Exporter) Export(c Content, f Format) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch f {
	case FormatText:
		out = e.plaintext(c)
	case FormatPDF:
		out, err = e.pdf(c)
	case FormatDOCX:
		out, err = e.docx(c)
	case FormatHTML:
		out, err = e.html(c)
	default:
		err = fmt.Errorf("unknown format %q", f)
	}
	if err != nil {
		return nil, &ExportError{Format: f, Err: err}
	}
	return out, nil
}

func (e *Exporter) separator() string {
	if e.Separator == "" {
		return "\n"
	}
	return e.Separator
}

// Units returns the blocks a structured document is built from. Blank and
// marker-only blocks are dropped.
func (e *Exporter) Units(c Content) []string {
	var units []string
	if e.Marker == "" {
		for _, o := range c.Outputs() {
			if s := strings.TrimSpace(o); s != "" {
				units = append(units, s)
			}
		}
		return units
	}
	joined := strings.Join(c.Outputs(), e.separator())
	for _, part := range strings.Split(joined, e.Marker) {
		if s := strings.TrimSpace(part); s != "" {
			units = append(units, s)
		}
	}
	return units
}

func (e *Exporter) plaintext(c Content) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(c.Outputs(), e.separator()))
	if note := FailureNote(c.FailedIndices()); note != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(note)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// FailureNote describes omitted chunks with 1-based part numbers, or returns
// "" when nothing failed.
func FailureNote(failed []int) string {
	if len(failed) == 0 {
		return ""
	}
	nums := make([]string, len(failed))
	for i, idx := range failed {
		nums[i] = strconv.Itoa(idx + 1)
	}
	noun, verb := "part", "is"
	if len(failed) > 1 {
		noun, verb = "parts", "are"
	}
	return fmt.Sprintf("[Note: %d %s of the document could not be processed and %s omitted: %s]",
		len(failed), noun, verb, strings.Join(nums, ", "))
}
