package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 1 << 20

// transport is the JSON-over-HTTP plumbing shared by the provider clients.
type transport struct {
	provider   string
	httpClient *http.Client
	stats      *LLMStats
}

func newTransport(provider string, timeout time.Duration, stats *LLMStats) transport {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if stats == nil {
		stats = NewLLMStats(time.Hour)
	}
	return transport{
		provider:   provider,
		httpClient: &http.Client{Timeout: timeout},
		stats:      stats,
	}
}

// postJSON sends in as a JSON body and decodes a 2xx response into out.
func (t transport) postJSON(ctx context.Context, url string, headers map[string]string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s api: %w", t.provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	t.stats.Record(time.Since(start).Milliseconds())
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := classifyStatus(t.provider, resp, respBody); err != nil {
		return err
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w (raw: %s)", t.provider, err, truncate(string(respBody), 200))
	}
	return nil
}

// Close releases idle connections.
func (t transport) Close() {
	t.httpClient.CloseIdleConnections()
}
