package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docquiz/internal/config"
	"github.com/dgallion1/docquiz/internal/llm"
	"github.com/dgallion1/docquiz/internal/metrics"
	"github.com/dgallion1/docquiz/internal/pipeline"
)

const biology = "Photosynthesis converts sunlight into chemical energy. " +
	"Chlorophyll pigments absorb mostly blue and red light. " +
	"Oxygen escapes through small leaf openings called stomata."

type testEnv struct {
	srv   *httptest.Server
	stats *llm.LLMStats
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg, err := config.FromMap(map[string]string{
		"SUMMARY_PROVIDER":  "local",
		"QUESTION_PROVIDER": "local",
		"MAX_UPLOAD_BYTES":  "4096",
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	log := slog.New(slog.DiscardHandler)

	var orch *pipeline.Orchestrator
	m := metrics.New(func() int { return orch.QueueDepth() })
	proc := pipeline.NewProcessor(llm.Local{}, llm.Local{}, pipeline.ProcessorConfig{MaxConcurrent: 2}, pipeline.WithMetrics(m))
	pipe := pipeline.New(proc, pipeline.Options{}, log)
	orch = pipeline.NewOrchestrator(pipeline.OrchestratorConfig{WorkerCount: 2, MaxQueueSize: 8}, pipe, m, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	stats := llm.NewLLMStats(time.Hour)
	srv := httptest.NewServer(NewServer(orch, m, stats, log, cfg))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, stats: stats}
}

// upload posts a multipart form with one file under field.
func (e *testEnv) upload(t *testing.T, path, field, filename string, content []byte, fields map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if filename != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(content)
	}
	mw.Close()

	resp, err := http.Post(e.srv.URL+path, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	if err != nil {
		t.Fatalf("get %s: %v", path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func decode(t *testing.T, r io.Reader, v any) {
	t.Helper()
	if err := json.NewDecoder(r).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

// submit uploads a file and returns its job ID.
func (e *testEnv) submit(t *testing.T, filename string, content []byte, fields map[string]string) string {
	t.Helper()
	resp := e.upload(t, "/api/jobs", "file", filename, content, fields)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, data)
	}
	var out struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	decode(t, resp.Body, &out)
	if out.JobID == "" || out.PollURL != "/api/jobs/"+out.JobID {
		t.Fatalf("unexpected upload response %+v", out)
	}
	return out.JobID
}

func (e *testEnv) wait(t *testing.T, jobID string) pipeline.JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, data := e.get(t, "/api/jobs/"+jobID)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status: %d %s", resp.StatusCode, data)
		}
		var snap pipeline.JobSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		if snap.Status.Terminal() {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s stuck in %q", jobID, snap.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp, data := e.get(t, "/health")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), `"ok"`) {
		t.Errorf("unexpected health response %d %s", resp.StatusCode, data)
	}
}

func TestUpload_Summarize(t *testing.T) {
	e := newTestEnv(t)
	id := e.submit(t, "biology.txt", []byte(biology), map[string]string{"mode": "summarize"})

	snap := e.wait(t, id)
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %q (%q)", snap.Status, snap.Progress.Errors)
	}
	if snap.Title != "biology" || snap.Mode != pipeline.ModeSummarize {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if !strings.HasPrefix(snap.SummaryPreview, "Photosynthesis converts sunlight") {
		t.Errorf("unexpected summary preview %q", snap.SummaryPreview)
	}

	resp, data := e.get(t, "/api/jobs/"+id+"/artifacts/summary.txt")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download: %d %s", resp.StatusCode, data)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="summary.txt"` {
		t.Errorf("unexpected disposition %q", cd)
	}
	if string(data) != snap.SummaryPreview {
		t.Errorf("expected download to match preview, got %q", data)
	}

	resp, _ = e.get(t, "/api/jobs/"+id+"/artifacts/generated_mcqs.txt")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for questions in summarize mode, got %d", resp.StatusCode)
	}
}

func TestUpload_Questions(t *testing.T) {
	e := newTestEnv(t)
	id := e.submit(t, "biology.txt", []byte(biology), map[string]string{"mode": "questions", "questions": "2"})

	snap := e.wait(t, id)
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %q (%q)", snap.Status, snap.Progress.Errors)
	}
	if snap.MCQCount != 2 {
		t.Errorf("expected 2 questions, got %d", snap.MCQCount)
	}

	resp, data := e.get(t, "/api/jobs/"+id+"/artifacts/generated_mcqs.docx")
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(data, []byte("PK")) {
		t.Errorf("expected a docx archive, got %d", resp.StatusCode)
	}
	resp, data = e.get(t, "/api/jobs/"+id+"/artifacts/generated_mcqs.pdf")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" || !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("expected a pdf, got %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp, data = e.get(t, "/api/jobs/"+id+"/preview")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preview: %d %s", resp.StatusCode, data)
	}
	if !strings.Contains(string(data), "<h1>Generated MCQs</h1>") || !strings.Contains(string(data), "Correct Answer") {
		t.Errorf("unexpected preview %s", data)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "inline") {
		t.Errorf("expected inline preview, got %q", cd)
	}
}

func TestUpload_NoContent(t *testing.T) {
	e := newTestEnv(t)
	id := e.submit(t, "blank.txt", []byte("\n   \n"), nil)

	snap := e.wait(t, id)
	if snap.Status != pipeline.StatusNoContent {
		t.Fatalf("expected no_content, got %q", snap.Status)
	}
	if snap.Warning != pipeline.NoContentWarning {
		t.Errorf("unexpected warning %q", snap.Warning)
	}
	resp, _ := e.get(t, "/api/jobs/"+id+"/preview")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 preview for empty document, got %d", resp.StatusCode)
	}
}

func TestUpload_Validation(t *testing.T) {
	e := newTestEnv(t)
	tests := []struct {
		name     string
		filename string
		content  []byte
		fields   map[string]string
		want     int
	}{
		{"unsupported type", "slides.pptx", []byte("x"), nil, http.StatusBadRequest},
		{"bad mode", "a.txt", []byte("x"), map[string]string{"mode": "translate"}, http.StatusBadRequest},
		{"too many questions", "a.txt", []byte("x"), map[string]string{"questions": "21"}, http.StatusBadRequest},
		{"non-numeric questions", "a.txt", []byte("x"), map[string]string{"questions": "five"}, http.StatusBadRequest},
		{"missing file", "", nil, map[string]string{"mode": "both"}, http.StatusBadRequest},
		{"too large", "big.txt", bytes.Repeat([]byte("a"), 5000), nil, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := e.upload(t, "/api/jobs", "file", tt.filename, tt.content, tt.fields)
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
			var out map[string]string
			decode(t, resp.Body, &out)
			if out["error"] == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestBatchUpload(t *testing.T) {
	e := newTestEnv(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("mode", "summarize")
	for name, content := range map[string]string{"one.txt": biology, "two.rtf": "nope"} {
		fw, _ := mw.CreateFormFile("files", name)
		fw.Write([]byte(content))
	}
	mw.Close()

	resp, err := http.Post(e.srv.URL+"/api/jobs/batch", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var out struct {
		Jobs []map[string]any `json:"jobs"`
	}
	decode(t, resp.Body, &out)
	if len(out.Jobs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out.Jobs))
	}
	queued, rejected := 0, 0
	for _, j := range out.Jobs {
		switch {
		case j["job_id"] != nil:
			queued++
			e.wait(t, j["job_id"].(string))
		case j["error"] != nil:
			rejected++
		}
	}
	if queued != 1 || rejected != 1 {
		t.Errorf("expected 1 queued and 1 rejected, got %d and %d", queued, rejected)
	}
}

func TestUnknownJob(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/api/jobs/nope", "/api/jobs/nope/artifacts/summary.txt", "/api/jobs/nope/preview"} {
		resp, _ := e.get(t, path)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestPreview_BadKind(t *testing.T) {
	e := newTestEnv(t)
	id := e.submit(t, "biology.txt", []byte(biology), map[string]string{"mode": "summarize"})
	e.wait(t, id)
	resp, _ := e.get(t, "/api/jobs/"+id+"/preview?kind=slides")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	resp, data := e.get(t, "/api/jobs/"+id+"/preview?kind=summary")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), "<h1>biology</h1>") {
		t.Errorf("expected summary preview, got %d %s", resp.StatusCode, data)
	}
}

func TestLLMStats(t *testing.T) {
	e := newTestEnv(t)
	e.stats.Record(120)

	resp, data := e.get(t, "/api/stats/llm")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		SummaryProvider string            `json:"summary_provider"`
		Stats           llm.StatsSnapshot `json:"stats"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.SummaryProvider != "local" || out.Stats.Count != 1 || out.Stats.MaxMs != 120 {
		t.Errorf("unexpected stats %s", data)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	id := e.submit(t, "biology.txt", []byte(biology), map[string]string{"mode": "summarize"})
	e.wait(t, id)

	resp, data := e.get(t, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, want := range []string{"docquiz_jobs_total", "docquiz_chunks_total", "docquiz_exports_total"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected %s in metrics output", want)
		}
	}
}
