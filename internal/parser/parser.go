package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docquiz/internal/doctree"
)

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCorruptDocument   = errors.New("corrupt document")
	ErrEmptyContent      = errors.New("no readable text")
)

// ExtractionError reports why a document could not yield text. Kind is one of
// the Err* sentinels above; Err is the underlying cause, if any.
type ExtractionError struct {
	Format doctree.Format
	Kind   error
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract %s: %v", e.Format, e.Kind)
	}
	return fmt.Sprintf("extract %s: %v: %v", e.Format, e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]doctree.Format{
	".pdf":  doctree.FormatPDF,
	".docx": doctree.FormatDOCX,
	".txt":  doctree.FormatTXT,
}

// FormatFromFilename maps a filename's extension to a Format.
func FormatFromFilename(filename string) (doctree.Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, ok := SupportedExtensions[ext]
	if !ok {
		return "", &ExtractionError{Format: doctree.Format(strings.TrimPrefix(ext, ".")), Kind: ErrUnsupportedFormat}
	}
	return f, nil
}

// Options tune individual parsers.
type Options struct {
	FallbackPdftotext bool
}

// ForFormat returns the parser for a format.
func ForFormat(format doctree.Format, opts Options) (Parser, error) {
	switch format {
	case doctree.FormatTXT:
		return &TextParser{}, nil
	case doctree.FormatPDF:
		return &PDFParser{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case doctree.FormatDOCX:
		return &DOCXParser{}, nil
	default:
		return nil, &ExtractionError{Format: format, Kind: ErrUnsupportedFormat}
	}
}

// Extract returns the full UTF-8 text of a document. A document with no text
// yields an empty string and no error.
func Extract(data []byte, format doctree.Format) (string, error) {
	return ExtractWith(data, format, Options{})
}

// ExtractWith is Extract with parser options.
func ExtractWith(data []byte, format doctree.Format, opts Options) (string, error) {
	tree, err := ParseTree(data, format, "", opts)
	if err != nil {
		return "", err
	}
	return normalizeText(tree.Flatten()), nil
}

// ParseTree runs the format's parser and classifies failures.
func ParseTree(data []byte, format doctree.Format, filename string, opts Options) (*doctree.DocTree, error) {
	p, err := ForFormat(format, opts)
	if err != nil {
		return nil, err
	}
	tree, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, &ExtractionError{Format: format, Kind: ErrCorruptDocument, Err: err}
	}
	return tree, nil
}

func normalizeText(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	return strings.TrimPrefix(s, "\uFEFF")
}
