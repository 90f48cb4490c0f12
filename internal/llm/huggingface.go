package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	defaultHFURL   = "https://api-inference.huggingface.co"
	defaultHFModel = "facebook/bart-large-cnn"
)

// HuggingFaceClient runs a hosted summarization model through the Inference
// API. It only summarizes.
type HuggingFaceClient struct {
	transport
	token   string
	model   string
	baseURL string
}

func NewHuggingFaceClient(token, model, baseURL string, timeout time.Duration, stats *LLMStats) *HuggingFaceClient {
	if baseURL == "" {
		baseURL = defaultHFURL
	}
	if model == "" {
		model = defaultHFModel
	}
	return &HuggingFaceClient{
		transport: newTransport("huggingface", timeout, stats),
		token:     token,
		model:     model,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

type hfParameters struct {
	MinLength int  `json:"min_length"`
	MaxLength int  `json:"max_length"`
	DoSample  bool `json:"do_sample"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options"`
}

type hfSummary struct {
	SummaryText string `json:"summary_text"`
}

func (c *HuggingFaceClient) Model() string { return c.model }

func (c *HuggingFaceClient) Stats() *LLMStats { return c.stats }

func (c *HuggingFaceClient) Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error) {
	req := hfRequest{
		Inputs:     text,
		Parameters: hfParameters{MinLength: minLen, MaxLength: maxLen},
	}
	req.Options.WaitForModel = true

	headers := map[string]string{}
	if c.token != "" {
		headers["Authorization"] = "Bearer " + c.token
	}

	// A cold model answers 503 with an estimated_time body; classifyStatus
	// already treats that as retryable.
	var out []hfSummary
	if err := c.postJSON(ctx, c.baseURL+"/models/"+c.model, headers, req, &out); err != nil {
		return "", err
	}
	if len(out) == 0 || strings.TrimSpace(out[0].SummaryText) == "" {
		return "", fmt.Errorf("huggingface: %w", ErrEmptyResponse)
	}
	return strings.TrimSpace(out[0].SummaryText), nil
}
