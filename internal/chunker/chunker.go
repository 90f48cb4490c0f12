package chunker

import (
	"strings"

	"github.com/dgallion1/docquiz/internal/doctree"
)

// DefaultMaxLength is the chunk budget, in bytes, used when none is given.
const DefaultMaxLength = 1024

// Delimiter separates sentences. The period belongs to the sentence before
// it; the space is the separator between units.
const Delimiter = ". "

// span is a half-open byte range [start, end) within the source text.
type span struct{ start, end int }

// Segment splits text into ordered chunks of at most maxLength bytes. Chunks
// are contiguous slices of text built from whole sentences and separated by a
// single space, so joining chunk texts with " " reproduces text exactly. A
// sentence longer than maxLength is kept whole in its own chunk and flagged
// Oversized.
func Segment(text string, maxLength int) []doctree.Chunk {
	if text == "" {
		return nil
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	units := sentences(text)
	chunks := make([]doctree.Chunk, 0, len(text)/maxLength+1)
	emit := func(s span) {
		chunks = append(chunks, doctree.Chunk{
			Index:      len(chunks),
			Text:       text[s.start:s.end],
			Offset:     s.start,
			ByteLength: s.end - s.start,
			Oversized:  s.end-s.start > maxLength,
		})
	}

	cur := units[0]
	for _, u := range units[1:] {
		if u.end-cur.start <= maxLength {
			cur.end = u.end
			continue
		}
		emit(cur)
		cur = u
	}
	emit(cur)
	return chunks
}

// sentences returns the sentence spans of text. A delimiter that ends the
// text is not a boundary, so no empty trailing unit is produced.
func sentences(text string) []span {
	var out []span
	start := 0
	for {
		i := strings.Index(text[start:], Delimiter)
		if i < 0 {
			break
		}
		cut := start + i + 1
		next := cut + len(Delimiter) - 1
		if next >= len(text) {
			break
		}
		out = append(out, span{start, cut})
		start = next
	}
	return append(out, span{start, len(text)})
}

// Texts returns the text of each chunk in order.
func Texts(chunks []doctree.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
