package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/docquiz/internal/parser"
	"github.com/dgallion1/docquiz/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// jobOptions are the processing choices shared by every file of an upload.
type jobOptions struct {
	mode      pipeline.Mode
	questions int
}

func (s *Server) parseJobOptions(r *http.Request) (jobOptions, error) {
	mode, err := pipeline.ParseMode(r.FormValue("mode"))
	if err != nil {
		return jobOptions{}, err
	}
	questions := s.cfg.DefaultQuestions
	if v := strings.TrimSpace(r.FormValue("questions")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return jobOptions{}, fmt.Errorf("questions must be an integer")
		}
		questions = n
	}
	if questions == 0 {
		questions = pipeline.DefaultQuestions
	}
	if questions < pipeline.MinQuestions || questions > pipeline.MaxQuestions {
		return jobOptions{}, fmt.Errorf("questions must be between %d and %d", pipeline.MinQuestions, pipeline.MaxQuestions)
	}
	return jobOptions{mode: mode, questions: questions}, nil
}

// errFileTooLarge is reported with 413.
var errFileTooLarge = errors.New("file exceeds max size")

// newJob reads one uploaded file and builds its job.
func (s *Server) newJob(fh *multipart.FileHeader, opts jobOptions) (*pipeline.Job, error) {
	filename := sanitizeFilename(fh.Filename)
	format, err := parser.FormatFromFilename(filename)
	if err != nil {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w (%d bytes)", errFileTooLarge, s.cfg.MaxUploadBytes)
	}
	return pipeline.NewJob(uuid.NewString(), filename, format, opts.mode, opts.questions, data), nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := s.parseJobOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}

	job, err := s.newJob(files[0], opts)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, errFileTooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		jsonError(w, err.Error(), code)
		return
	}

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("job queued", "job_id", job.ID, "filename", job.Filename, "mode", string(opts.mode), "questions", opts.questions)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(queuedResponse(job))
}

func (s *Server) handleBatchUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := s.parseJobOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	var results []map[string]any
	for _, fh := range files {
		job, err := s.newJob(fh, opts)
		if err == nil {
			err = s.orchestrator.Submit(job)
		}
		if err != nil {
			results = append(results, map[string]any{
				"filename": sanitizeFilename(fh.Filename),
				"error":    err.Error(),
			})
			continue
		}
		results = append(results, queuedResponse(job))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"jobs": results})
}

func queuedResponse(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"job_id":   snap.ID,
		"filename": snap.Filename,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/jobs/%s", snap.ID),
	}
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	name := chi.URLParam(r, "name")
	s.serveArtifact(w, job, name, "attachment")
}

// handlePreview renders the HTML preview. kind selects "summary" or
// "questions"; by default questions are shown when the job has them.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	var name string
	switch kind := r.URL.Query().Get("kind"); kind {
	case "summary":
		name = pipeline.SummaryHTML
	case "questions":
		name = pipeline.QuestionsHTML
	case "":
		name = pipeline.QuestionsHTML
		if _, ok := job.Artifact(name); !ok {
			name = pipeline.SummaryHTML
		}
	default:
		jsonError(w, fmt.Sprintf("unknown preview kind %q", kind), http.StatusBadRequest)
		return
	}
	s.serveArtifact(w, job, name, "inline")
}

func (s *Server) serveArtifact(w http.ResponseWriter, job *pipeline.Job, name, disposition string) {
	snap := job.Snapshot()
	if !snap.Status.Terminal() {
		jsonError(w, fmt.Sprintf("job is still %s", snap.Status), http.StatusConflict)
		return
	}
	a, ok := job.Artifact(name)
	if !ok {
		jsonError(w, "artifact not found", http.StatusNotFound)
		return
	}
	if a.Err != nil {
		jsonError(w, "artifact unavailable: "+a.Err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, a.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.Write(a.Data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
