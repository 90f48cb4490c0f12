package llm

import (
	"regexp"
	"strings"
)

// MCQ is one parsed multiple-choice question.
type MCQ struct {
	Question string    `json:"question"`
	Options  [4]string `json:"options"` // A, B, C, D
	Answer   string    `json:"answer"`  // "A".."D"
}

var (
	optionRe = regexp.MustCompile(`^\s*\**\s*([A-Da-d])\s*[\)\.:]\s*(.*)$`)
	answerRe = regexp.MustCompile(`(?i)^\s*\**\s*correct\s+answer\s*\**\s*:\s*\**\s*(.*)$`)
	letterRe = regexp.MustCompile(`^\(?([A-Da-d])\b`)

	injectionPattern = regexp.MustCompile(
		`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
			`forget\s+(everything|all)|new\s+instructions)`,
	)
)

// SplitBlocks splits generated text on MCQMarker and drops empty blocks.
func SplitBlocks(text string) []string {
	var out []string
	for _, block := range strings.Split(text, MCQMarker) {
		if b := strings.TrimSpace(block); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// ParseMCQs extracts every well-formed question from generated text. Blocks
// that do not validate are skipped.
func ParseMCQs(text string) []MCQ {
	var out []MCQ
	for _, block := range SplitBlocks(text) {
		m := parseBlock(block)
		if ValidateMCQ(&m) {
			out = append(out, m)
		}
	}
	return out
}

func parseBlock(block string) MCQ {
	var m MCQ
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rest, ok := cutPrefixFold(line, "question:"); ok {
			m.Question = strings.TrimSpace(strings.Trim(strings.TrimSpace(rest), "*"))
			continue
		}
		if am := answerRe.FindStringSubmatch(line); am != nil {
			m.Answer = answerLetter(am[1])
			continue
		}
		if om := optionRe.FindStringSubmatch(line); om != nil {
			idx := strings.ToUpper(om[1])[0] - 'A'
			m.Options[idx] = strings.TrimSpace(om[2])
		}
	}
	return m
}

func cutPrefixFold(s, prefix string) (string, bool) {
	s = strings.TrimLeft(s, "*# ")
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

func answerLetter(s string) string {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*"))
	if m := letterRe.FindStringSubmatch(s); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

// ValidateMCQ reports whether a question is complete and safe to render.
func ValidateMCQ(m *MCQ) bool {
	if m == nil {
		return false
	}
	q := strings.TrimSpace(m.Question)
	if len(q) < 3 || len(q) > 500 {
		return false
	}
	for _, opt := range m.Options {
		if strings.TrimSpace(opt) == "" {
			return false
		}
	}
	switch m.Answer {
	case "A", "B", "C", "D":
	default:
		return false
	}
	return !injectionPattern.MatchString(q)
}
