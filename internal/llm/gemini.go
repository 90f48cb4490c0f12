package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com"

// GeminiClient calls the Generative Language generateContent endpoint.
type GeminiClient struct {
	transport
	apiKey  string
	model   string
	baseURL string
}

func NewGeminiClient(apiKey, model, baseURL string, timeout time.Duration, stats *LLMStats) *GeminiClient {
	if baseURL == "" {
		baseURL = defaultGeminiURL
	}
	if model == "" {
		model = "gemini-1.5-pro"
	}
	return &GeminiClient{
		transport: newTransport("gemini", timeout, stats),
		apiKey:    apiKey,
		model:     model,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

type gmPart struct {
	Text string `json:"text"`
}

type gmContent struct {
	Role  string   `json:"role,omitempty"`
	Parts []gmPart `json:"parts"`
}

type gmRequest struct {
	Contents []gmContent `json:"contents"`
}

type gmResponse struct {
	Candidates []struct {
		Content struct {
			Parts []gmPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (c *GeminiClient) Model() string { return c.model }

func (c *GeminiClient) Stats() *LLMStats { return c.stats }

func (c *GeminiClient) GenerateQuestions(ctx context.Context, text string, count int) (string, error) {
	return c.generate(ctx, BuildQuestionPrompt(text, count))
}

func (c *GeminiClient) Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	return c.generate(ctx, summarySystemPrompt+"\n\n"+BuildSummaryPrompt(text, minLen, maxLen))
}

func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	// The key must stay out of the URL: transport errors quote it.
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	headers := map[string]string{"x-goog-api-key": c.apiKey}
	req := gmRequest{Contents: []gmContent{{Role: "user", Parts: []gmPart{{Text: prompt}}}}}

	var resp gmResponse
	if err := c.postJSON(ctx, endpoint, headers, req, &resp); err != nil {
		return "", err
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := stripCodeBlock(b.String())
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return text, nil
}
