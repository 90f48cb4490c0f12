package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Local is an offline provider. It summarizes by keeping lead sentences and
// writes cloze-style questions from the passage's own vocabulary. It needs no
// credentials and is deterministic.
type Local struct{}

func (Local) Model() string { return "local-extractive" }

// Summarize keeps whole leading sentences up to maxLen words. If the first
// sentence alone is longer, it is cut at maxLen words.
func (Local) Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if maxLen <= 0 {
		maxLen = 150
	}
	var kept []string
	words := 0
	for _, s := range splitSentences(text) {
		n := len(strings.Fields(s))
		if words > 0 && words+n > maxLen {
			break
		}
		if n > maxLen {
			s = strings.Join(strings.Fields(s)[:maxLen], " ")
			n = maxLen
		}
		kept = append(kept, s)
		words += n
		if words >= maxLen {
			break
		}
	}
	return strings.Join(kept, " "), nil
}

// GenerateQuestions blanks the longest word of each of the first count
// suitable sentences and offers three other document words as distractors.
func (Local) GenerateQuestions(ctx context.Context, text string, count int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	vocab := vocabulary(text)
	if len(vocab) < 4 {
		return "", fmt.Errorf("local: %w: passage too short for questions", ErrEmptyResponse)
	}

	var b strings.Builder
	made := 0
	for _, s := range splitSentences(text) {
		if made == count {
			break
		}
		answer := longestWord(s)
		if len(answer) < 4 {
			continue
		}
		var distractors []string
		for _, w := range vocab {
			if !strings.EqualFold(w, answer) {
				distractors = append(distractors, w)
			}
			if len(distractors) == 3 {
				break
			}
		}
		if len(distractors) < 3 {
			continue
		}

		pos := made % 4
		options := make([]string, 0, 4)
		options = append(options, distractors[:pos]...)
		options = append(options, answer)
		options = append(options, distractors[pos:]...)

		fmt.Fprintf(&b, "%s\nQuestion: Which word completes the sentence: \"%s\"?\n", MCQMarker, strings.Replace(s, answer, "_____", 1))
		for i, opt := range options {
			fmt.Fprintf(&b, "%c) %s\n", 'A'+i, opt)
		}
		fmt.Fprintf(&b, "Correct Answer: %c\n\n", 'A'+pos)
		made++
	}
	if made == 0 {
		return "", fmt.Errorf("local: %w: no suitable sentences", ErrEmptyResponse)
	}
	return strings.TrimSpace(b.String()), nil
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range strings.Split(text, ". ") {
		s = strings.Join(strings.Fields(s), " ")
		if s == "" {
			continue
		}
		if !strings.HasSuffix(s, ".") {
			s += "."
		}
		out = append(out, s)
	}
	return out
}

func cleanWord(w string) string {
	return strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
}

func longestWord(sentence string) string {
	best := ""
	for _, w := range strings.Fields(sentence) {
		if w = cleanWord(w); len(w) > len(best) {
			best = w
		}
	}
	return best
}

// vocabulary returns distinct words of five or more letters, longest first.
func vocabulary(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, w := range strings.Fields(text) {
		w = cleanWord(w)
		key := strings.ToLower(w)
		if len(w) < 5 || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}
