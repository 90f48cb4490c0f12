package report

import (
	"archive/zip"
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/fumiama/go-docx"
)

func (e *Exporter) docx(c Content) ([]byte, error) {
	doc := docx.New().WithDefaultTheme()

	if e.Title != "" {
		doc.AddParagraph().Style("Heading1").AddText(e.Title).Bold().Size("32")
	}
	for _, unit := range e.Units(c) {
		for _, line := range strings.Split(PlainText(unit), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				doc.AddParagraph().AddText(line)
			}
		}
		doc.AddParagraph()
	}
	if note := FailureNote(c.FailedIndices()); note != "" {
		doc.AddParagraph().AddText(note).Italic()
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return sortedZip(buf.Bytes())
}

// sortedZip rewrites an archive with entries in name order. The docx writer
// emits parts in map order, which would make identical documents differ.
func sortedZip(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	files := append([]*zip.File(nil), zr.File...)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate})
		if err != nil {
			return nil, err
		}
		r, err := f.Open()
		if err != nil {
			return nil, err
		}
		_, err = io.Copy(w, r)
		r.Close()
		if err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
