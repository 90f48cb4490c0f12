package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Summarizer condenses text to roughly minLen..maxLen words.
type Summarizer interface {
	Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error)
	Model() string
}

// QuestionGenerator writes count multiple-choice questions about text.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, text string, count int) (string, error)
	Model() string
}

const (
	ProviderHuggingFace = "huggingface"
	ProviderClaude      = "claude"
	ProviderGemini      = "gemini"
	ProviderLocal       = "local"
)

// Settings carries credentials and endpoints for every provider.
type Settings struct {
	HFToken   string
	HFModel   string
	HFBaseURL string

	GoogleAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	Timeout time.Duration
	Stats   *LLMStats
}

// NewSummarizer builds the named summarization provider.
func NewSummarizer(name string, s Settings) (Summarizer, error) {
	switch normalize(name) {
	case ProviderHuggingFace:
		return NewHuggingFaceClient(s.HFToken, s.HFModel, s.HFBaseURL, s.Timeout, s.Stats), nil
	case ProviderClaude:
		return NewClaudeClient(s.AnthropicAPIKey, s.AnthropicModel, s.AnthropicBaseURL, s.Timeout, s.Stats), nil
	case ProviderGemini:
		return NewGeminiClient(s.GoogleAPIKey, s.GeminiModel, s.GeminiBaseURL, s.Timeout, s.Stats), nil
	case ProviderLocal:
		return Local{}, nil
	default:
		return nil, fmt.Errorf("unknown summary provider %q", name)
	}
}

// NewQuestionGenerator builds the named question provider.
func NewQuestionGenerator(name string, s Settings) (QuestionGenerator, error) {
	switch normalize(name) {
	case ProviderClaude:
		return NewClaudeClient(s.AnthropicAPIKey, s.AnthropicModel, s.AnthropicBaseURL, s.Timeout, s.Stats), nil
	case ProviderGemini:
		return NewGeminiClient(s.GoogleAPIKey, s.GeminiModel, s.GeminiBaseURL, s.Timeout, s.Stats), nil
	case ProviderLocal:
		return Local{}, nil
	case ProviderHuggingFace:
		return nil, fmt.Errorf("provider %q cannot generate questions", name)
	default:
		return nil, fmt.Errorf("unknown question provider %q", name)
	}
}

func normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "anthropic" {
		return ProviderClaude
	}
	return n
}

// Close releases idle connections held by a provider, if it has any.
func Close(p any) {
	if c, ok := p.(interface{ Close() }); ok {
		c.Close()
	}
}
