package report

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Markdown is the markdown rendition used for previews: an optional title,
// then units separated by horizontal rules, then the failure note.
func (e *Exporter) Markdown(c Content) string {
	var parts []string
	if e.Title != "" {
		parts = append(parts, "# "+escapeRawHTML(e.Title))
	}
	units := e.Units(c)
	for i, u := range units {
		units[i] = escapeRawHTML(u)
	}
	if len(units) > 0 {
		parts = append(parts, strings.Join(units, "\n\n---\n\n"))
	}
	if note := FailureNote(c.FailedIndices()); note != "" {
		parts = append(parts, "*"+note+"*")
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func (e *Exporter) html(c Content) ([]byte, error) {
	var body bytes.Buffer
	if err := previewMarkdown.Convert([]byte(e.Markdown(c)), &body); err != nil {
		return nil, err
	}

	title := e.Title
	if title == "" {
		title = "docquiz"
	}
	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	out.WriteString(html.EscapeString(title))
	out.WriteString("</title></head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body></html>\n")
	return out.Bytes(), nil
}
