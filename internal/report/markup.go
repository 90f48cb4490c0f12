package report

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
)

var (
	// plainMarkdown keeps soft line breaks as "\n" so text extraction sees them.
	plainMarkdown = goldmark.New()
	// previewMarkdown keeps the line structure of generated questions in browsers.
	previewMarkdown = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithHardWraps()))
)

// escapeRawHTML turns every "<" into an entity so markdown never sees raw
// HTML or autolinks; model output like "List<T>" stays literal text.
func escapeRawHTML(s string) string {
	return strings.ReplaceAll(s, "<", "&lt;")
}

// PlainText flattens a markdown unit into lines of plain text: emphasis
// markers disappear and list items keep a bullet or number. Angle-bracket
// text is kept as written.
func PlainText(markdown string) string {
	var buf bytes.Buffer
	if err := plainMarkdown.Convert([]byte(escapeRawHTML(markdown)), &buf); err != nil {
		return strings.TrimSpace(markdown)
	}
	doc, err := html.Parse(&buf)
	if err != nil {
		return strings.TrimSpace(markdown)
	}

	var lines []string
	var walk func(n *html.Node, ordinal int)
	walk = func(n *html.Node, ordinal int) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "h1", "h2", "h3", "h4", "h5", "h6", "pre", "blockquote", "td", "th":
				if t := textContent(n); t != "" {
					lines = append(lines, t)
				}
				return
			case "hr":
				return
			case "ol", "ul":
				i := 0
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && c.Data == "li" {
						i++
						if n.Data == "ol" {
							walk(c, start(n)+i-1)
						} else {
							walk(c, 0)
						}
					}
				}
				return
			case "li":
				bullet := "- "
				if ordinal > 0 {
					bullet = strconv.Itoa(ordinal) + ". "
				}
				if t := textContent(n); t != "" {
					lines = append(lines, bullet+t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, 0)
		}
	}
	walk(doc, 0)
	return strings.Join(lines, "\n")
}

func start(ol *html.Node) int {
	for _, a := range ol.Attr {
		if a.Key == "start" {
			if n, err := strconv.Atoi(a.Val); err == nil {
				return n
			}
		}
	}
	return 1
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}
