package llm

import (
	"fmt"
	"strings"
)

// MCQMarker opens every generated question block.
const MCQMarker = "## MCQ"

const summarySystemPrompt = `You condense passages of a longer document into short, faithful summaries.
Rules:
- Use only facts stated in the passage.
- Write plain prose, no headings, bullets or preamble.
- Do not mention that you are summarizing.`

// BuildSummaryPrompt asks for a summary of text within a word window.
func BuildSummaryPrompt(text string, minLen, maxLen int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following passage in roughly %d to %d words.\n\n", minLen, maxLen)
	b.WriteString("<passage>\n")
	b.WriteString(text)
	b.WriteString("\n</passage>")
	return b.String()
}

// BuildQuestionPrompt asks for count multiple-choice questions about text in
// the block format ParseMCQs understands.
func BuildQuestionPrompt(text string, count int) string {
	var b strings.Builder
	b.WriteString("You are an AI assistant helping the user generate multiple-choice questions (MCQs) based on the following text:\n")
	fmt.Fprintf(&b, "'%s'\n", text)
	fmt.Fprintf(&b, "Please generate %d MCQs from the text. Each question should have:\n", count)
	b.WriteString("- A clear question\n")
	b.WriteString("- Four answer options (labeled A, B, C, D)\n")
	b.WriteString("- The correct answer clearly indicated\n")
	b.WriteString("Format:\n")
	b.WriteString(MCQMarker + "\n")
	b.WriteString("Question: [question]\n")
	b.WriteString("A) [option A]\n")
	b.WriteString("B) [option B]\n")
	b.WriteString("C) [option C]\n")
	b.WriteString("D) [option D]\n")
	b.WriteString("Correct Answer: [correct option]\n")
	return b.String()
}
