package report

import (
	"bytes"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfLineHeight = 7.0
	pdfBlockGap   = 5.0
)

func (e *Exporter) pdf(c Content) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCreationDate(documentDate)
	doc.SetModificationDate(documentDate)
	doc.SetCatalogSort(true)
	doc.SetCreator("docquiz", true)
	if e.Title != "" {
		doc.SetTitle(e.Title, true)
	}
	doc.SetMargins(15, 15, 15)
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()

	// Core fonts are cp1252; runes outside it become '.'.
	tr := doc.UnicodeTranslatorFromDescriptor("")

	if e.Title != "" {
		doc.SetFont("Helvetica", "B", 16)
		doc.MultiCell(0, 9, tr(e.Title), "", "", false)
		doc.Ln(pdfBlockGap)
	}

	doc.SetFont("Helvetica", "", 12)
	for _, unit := range e.Units(c) {
		text := PlainText(unit)
		if strings.TrimSpace(text) == "" {
			continue
		}
		doc.MultiCell(0, pdfLineHeight, tr(text), "", "", false)
		doc.Ln(pdfBlockGap)
	}

	if note := FailureNote(c.FailedIndices()); note != "" {
		doc.SetFont("Helvetica", "I", 10)
		doc.MultiCell(0, pdfLineHeight, tr(note), "", "", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
