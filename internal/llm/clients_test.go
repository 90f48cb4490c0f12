package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClaudeClient_Summarize(t *testing.T) {
	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "k-test" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("missing version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"A short summary."}]}`))
	}))
	defer srv.Close()

	stats := NewLLMStats(time.Hour)
	c := NewClaudeClient("k-test", "claude-test", srv.URL, 5*time.Second, stats)
	defer c.Close()

	got, err := c.Summarize(context.Background(), "Some long passage.", 40, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "A short summary." {
		t.Errorf("expected summary text, got %q", got)
	}
	if gotReq.Model != "claude-test" || gotReq.System == "" {
		t.Errorf("unexpected request: %+v", gotReq)
	}
	if !strings.Contains(gotReq.Messages[0].Content, "Some long passage.") {
		t.Errorf("prompt does not carry the passage: %q", gotReq.Messages[0].Content)
	}
	if stats.Snapshot().Count != 1 {
		t.Errorf("expected one recorded call, got %d", stats.Snapshot().Count)
	}
}

func TestClaudeClient_StripsCodeFence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{\"content\":[{\"type\":\"text\",\"text\":\"```markdown\\n## MCQ\\nQuestion: x\\n```\"}]}"))
	}))
	defer srv.Close()

	c := NewClaudeClient("k", "m", srv.URL, time.Second, nil)
	got, err := c.GenerateQuestions(context.Background(), "text", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "## MCQ\nQuestion: x" {
		t.Errorf("expected fence stripped, got %q", got)
	}
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		retryable  bool
		rateLimit  bool
		wantDelay  time.Duration
	}{
		{"rate limited", http.StatusTooManyRequests, "2", true, true, 2 * time.Second},
		{"server error", http.StatusBadGateway, "", true, false, 0},
		{"model loading", http.StatusServiceUnavailable, "", true, false, 0},
		{"request timeout", http.StatusRequestTimeout, "", true, false, 0},
		{"bad request", http.StatusBadRequest, "", false, false, 0},
		{"unauthorized", http.StatusUnauthorized, "", false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			c := NewGeminiClient("g", "gemini-test", srv.URL, time.Second, nil)
			_, err := c.GenerateQuestions(context.Background(), "text", 3)
			if err == nil {
				t.Fatal("expected error")
			}

			var re *RetryableError
			if errors.As(err, &re) != tt.retryable {
				t.Fatalf("retryable = %v, want %v (err %v)", !tt.retryable, tt.retryable, err)
			}
			if errors.Is(err, ErrRateLimited) != tt.rateLimit {
				t.Errorf("rate limited = %v, want %v", !tt.rateLimit, tt.rateLimit)
			}
			if tt.retryable && re.RetryAfter != tt.wantDelay {
				t.Errorf("retry after = %v, want %v", re.RetryAfter, tt.wantDelay)
			}
			if !tt.retryable {
				var se *StatusError
				if !errors.As(err, &se) || se.StatusCode != tt.status {
					t.Errorf("expected *StatusError with %d, got %v", tt.status, err)
				}
			}
		})
	}
}

func TestGeminiClient_GenerateQuestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-test:generateContent" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "g-key" {
			t.Errorf("expected key header, got %q", got)
		}
		if r.URL.RawQuery != "" {
			t.Errorf("expected no query string, got %q", r.URL.RawQuery)
		}
		var req gmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || !strings.Contains(req.Contents[0].Parts[0].Text, "Please generate 4 MCQs") {
			t.Errorf("unexpected request body: %+v", req)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"## MCQ\n"},{"text":"Question: q?"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("g-key", "gemini-test", srv.URL, time.Second, nil)
	got, err := c.GenerateQuestions(context.Background(), "source text", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "## MCQ\nQuestion: q?" {
		t.Errorf("expected joined parts, got %q", got)
	}
}

func TestGeminiClient_TransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewGeminiClient("SUPERSECRETKEY", "m", base, time.Second, nil)
	_, err := c.GenerateQuestions(context.Background(), "x", 1)
	if err == nil {
		t.Fatal("expected a transport error")
	}
	if strings.Contains(err.Error(), "SUPERSECRETKEY") {
		t.Errorf("api key present in error: %v", err)
	}
}

func TestGeminiClient_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("g", "m", srv.URL, time.Second, nil)
	_, err := c.GenerateQuestions(context.Background(), "x", 1)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestHuggingFaceClient_Summarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/facebook/bart-large-cnn" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer hf-token" {
			t.Errorf("missing bearer token")
		}
		var req hfRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Parameters.MinLength != 40 || req.Parameters.MaxLength != 150 || req.Parameters.DoSample {
			t.Errorf("unexpected parameters: %+v", req.Parameters)
		}
		w.Write([]byte(`[{"summary_text":"  Condensed.  "}]`))
	}))
	defer srv.Close()

	c := NewHuggingFaceClient("hf-token", "", srv.URL, time.Second, nil)
	got, err := c.Summarize(context.Background(), "Long input.", 40, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Condensed." {
		t.Errorf("expected trimmed summary, got %q", got)
	}
	if c.Model() != defaultHFModel {
		t.Errorf("expected default model, got %q", c.Model())
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	c := NewHuggingFaceClient("", "", srv.URL, 5*time.Second, nil)
	_, err := c.Summarize(ctx, "x", 1, 2)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLocal_Summarize(t *testing.T) {
	got, err := Local{}.Summarize(context.Background(), "One two three. Four five six. Seven eight nine.", 1, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "One two three. Four five six." {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestLocal_SummarizeCutsLongSentence(t *testing.T) {
	got, err := Local{}.Summarize(context.Background(), "a b c d e f g h", 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a b c" {
		t.Errorf("expected first three words, got %q", got)
	}
}

func TestLocal_GenerateQuestionsParse(t *testing.T) {
	text := "Photosynthesis converts sunlight into chemical energy. " +
		"Chlorophyll absorbs mostly blue and red light. " +
		"Plants release oxygen during the process."
	out, err := Local{}.GenerateQuestions(context.Background(), text, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mcqs := ParseMCQs(out)
	if len(mcqs) != 2 {
		t.Fatalf("expected 2 parsed questions, got %d from %q", len(mcqs), out)
	}
	if mcqs[0].Answer != "A" || mcqs[1].Answer != "B" {
		t.Errorf("expected answers A then B, got %q %q", mcqs[0].Answer, mcqs[1].Answer)
	}
	if mcqs[0].Options[0] != "Photosynthesis" {
		t.Errorf("expected blanked word as option A, got %q", mcqs[0].Options[0])
	}
}

func TestLocal_GenerateQuestionsTooShort(t *testing.T) {
	_, err := Local{}.GenerateQuestions(context.Background(), "Tiny.", 1)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestProviderFactory(t *testing.T) {
	s := Settings{Timeout: time.Second}
	for _, name := range []string{"huggingface", "claude", "Anthropic", "gemini", "local"} {
		if _, err := NewSummarizer(name, s); err != nil {
			t.Errorf("NewSummarizer(%q): %v", name, err)
		}
	}
	for _, name := range []string{"claude", "gemini", "local"} {
		if _, err := NewQuestionGenerator(name, s); err != nil {
			t.Errorf("NewQuestionGenerator(%q): %v", name, err)
		}
	}
	if _, err := NewQuestionGenerator("huggingface", s); err == nil {
		t.Error("expected huggingface to be rejected for questions")
	}
	if _, err := NewSummarizer("openai", s); err == nil {
		t.Error("expected unknown provider error")
	}
}
