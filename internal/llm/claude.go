package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const defaultAnthropicURL = "https://api.anthropic.com"

// ClaudeClient calls the Anthropic Messages API. It can both summarize and
// write quiz questions.
type ClaudeClient struct {
	transport
	apiKey  string
	model   string
	baseURL string
}

func NewClaudeClient(apiKey, model, baseURL string, timeout time.Duration, stats *LLMStats) *ClaudeClient {
	if baseURL == "" {
		baseURL = defaultAnthropicURL
	}
	return &ClaudeClient{
		transport: newTransport("claude", timeout, stats),
		apiKey:    apiKey,
		model:     model,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Model reports the configured model name.
func (c *ClaudeClient) Model() string { return c.model }

// Stats exposes the client's latency window.
func (c *ClaudeClient) Stats() *LLMStats { return c.stats }

func (c *ClaudeClient) Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	return c.complete(ctx, summarySystemPrompt, BuildSummaryPrompt(text, minLen, maxLen), maxLen*2+64)
}

func (c *ClaudeClient) GenerateQuestions(ctx context.Context, text string, count int) (string, error) {
	return c.complete(ctx, "", BuildQuestionPrompt(text, count), 4096)
}

func (c *ClaudeClient) complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	req := anthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}

	var resp anthropicResponse
	if err := c.postJSON(ctx, c.baseURL+"/v1/messages", headers, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("claude error: %s: %s", resp.Error.Type, resp.Error.Message)
	}

	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" || block.Type == "" {
			parts = append(parts, block.Text)
		}
	}
	text := stripCodeBlock(strings.Join(parts, ""))
	if text == "" {
		return "", fmt.Errorf("claude: %w", ErrEmptyResponse)
	}
	return text, nil
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:markdown|md|text)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}
