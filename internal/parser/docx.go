package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docquiz/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Heading paragraphs open new sections;
// body paragraphs attach to the nearest heading above them.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	tree := &doctree.DocTree{Title: doctree.TitleFromFilename(filename)}

	type level struct {
		node  *doctree.DocNode
		depth int
	}
	root := &doctree.DocNode{}
	stack := []level{{node: root}}
	var body []string

	flush := func() {
		if len(body) == 0 {
			return
		}
		top := stack[len(stack)-1].node
		text := strings.Join(body, "\n\n")
		if top.Text != "" {
			text = top.Text + "\n\n" + text
		}
		top.Text = text
		body = body[:0]
	}

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := paragraphText(para)
		if text == "" {
			continue
		}
		depth := headingDepth(para)
		if depth == 0 {
			body = append(body, text)
			continue
		}

		flush()
		for len(stack) > 1 && stack[len(stack)-1].depth >= depth {
			stack = stack[:len(stack)-1]
		}
		section := &doctree.DocNode{Title: text}
		parent := stack[len(stack)-1].node
		parent.Children = append(parent.Children, section)
		stack = append(stack, level{node: section, depth: depth})
	}
	flush()

	if root.Text != "" {
		tree.Children = append(tree.Children, &doctree.DocNode{Text: root.Text})
	}
	tree.Children = append(tree.Children, root.Children...)
	return tree, nil
}

// headingDepth reads "Heading1".."Heading6" (or "heading 1") paragraph styles.
func headingDepth(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") || len(style) != len("heading")+1 {
		return 0
	}
	d := int(style[len(style)-1] - '0')
	if d < 1 || d > 6 {
		return 0
	}
	return d
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			writeRun(&buf, c)
		case *docx.Hyperlink:
			if !writeRun(&buf, &c.Run) {
				// Links added through the writer API keep their label here.
				buf.WriteString(c.Run.InstrText)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// writeRun appends the run's text and tabs, reporting whether it had any text.
func writeRun(buf *strings.Builder, run *docx.Run) bool {
	wrote := false
	for _, rc := range run.Children {
		switch t := rc.(type) {
		case *docx.Text:
			buf.WriteString(t.Text)
			wrote = true
		case *docx.Tab:
			buf.WriteByte('\t')
		}
	}
	return wrote
}
