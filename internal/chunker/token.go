package chunker

import "strings"

// EstimateTokens gives a rough model-token count from the word count.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	// Roughly 1.33 tokens per word for English text.
	tokens := int(float64(len(strings.Fields(text))) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// ClampSummaryLength fits a requested summary length window to a chunk. Short
// chunks cannot yield a summary longer than their own token count, so the
// window shrinks to it, keeping minLen <= maxLen.
func ClampSummaryLength(text string, minLen, maxLen int) (int, int) {
	tokens := EstimateTokens(text)
	if tokens > 0 && maxLen > tokens {
		maxLen = tokens
	}
	if minLen > maxLen {
		minLen = maxLen
	}
	if minLen < 0 {
		minLen = 0
	}
	return minLen, maxLen
}
