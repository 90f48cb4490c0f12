package pipeline

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dgallion1/docquiz/internal/doctree"
)

// JobStatus represents the state of a processing job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusExtracting  JobStatus = "extracting"
	StatusSummarizing JobStatus = "summarizing"
	StatusGenerating  JobStatus = "generating"
	StatusExporting   JobStatus = "exporting"
	StatusCompleted   JobStatus = "completed"
	StatusPartial     JobStatus = "partial"
	StatusFailed      JobStatus = "failed"
	StatusNoContent   JobStatus = "no_content"
)

// Terminal reports whether the job has finished.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusFailed, StatusNoContent:
		return true
	}
	return false
}

// Job tracks the state of a single uploaded document.
type Job struct {
	mu sync.Mutex

	ID        string
	Filename  string
	Title     string
	Format    doctree.Format
	Mode      Mode
	Questions int

	Status   JobStatus
	Phase    string
	Progress Progress
	Warning  string

	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Internal: not serialized.
	fileData  []byte
	errors    []string
	artifacts []Artifact
	summary   string
	questions string
	mcqs      int

	summaryFailures  []ChunkFailure
	questionFailures []ChunkFailure
}

// Progress tracks chunk processing across all phases.
type Progress struct {
	TotalChunks     int      `json:"total_chunks"`
	ChunksProcessed int      `json:"chunks_processed"`
	ChunksFailed    int      `json:"chunks_failed"`
	Errors          []string `json:"errors"`
}

// NewJob creates a queued job holding the uploaded bytes.
func NewJob(id, filename string, format doctree.Format, mode Mode, questions int, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:          id,
		Filename:    filename,
		Title:       doctree.TitleFromFilename(filename),
		Format:      format,
		Mode:        mode,
		Questions:   questions,
		Status:      StatusQueued,
		Phase:       "queued",
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

func (j *Job) SetWarning(w string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Warning = w
	j.UpdatedAt = time.Now()
}

// OnPhase moves the job into a processing phase.
func (j *Job) OnPhase(phase Phase, chunks int) {
	status := StatusExtracting
	desc := "extracting text"
	switch phase {
	case PhaseSummarizing:
		status, desc = StatusSummarizing, "summarizing chunks"
	case PhaseGenerating:
		status, desc = StatusGenerating, "generating questions"
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = desc
	j.Progress.TotalChunks += chunks
	j.UpdatedAt = time.Now()
}

// OnChunk counts one finished chunk.
func (j *Job) OnChunk(op OpKind, r ChunkResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ChunksProcessed++
	if r.Failed() {
		j.Progress.ChunksFailed++
		j.errors = append(j.errors, fmt.Sprintf("%s chunk %d: %s", op, r.Index, r.Err))
		j.Progress.Errors = j.errors
	}
	j.UpdatedAt = time.Now()
}

// SetResult stores the rendered artifacts and inline previews.
func (j *Job) SetResult(res *Result, artifacts []Artifact) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if res != nil {
		if res.Summary != nil {
			j.summary = res.Summary.Text()
			j.summaryFailures = res.Summary.Failures()
		}
		if res.Questions != nil {
			j.questions = res.Questions.Text()
			j.questionFailures = res.Questions.Failures()
		}
		j.mcqs = len(res.MCQs)
	}
	j.artifacts = artifacts
	j.UpdatedAt = time.Now()
}

// Artifact returns a rendered artifact by name.
func (j *Job) Artifact(name string) (Artifact, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, a := range j.artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// ReleaseFileData drops the upload once it has been processed.
func (j *Job) ReleaseFileData() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = nil
}

// ArtifactInfo describes a downloadable artifact.
type ArtifactInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Error       string `json:"error,omitempty"`
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID               string         `json:"job_id"`
	Status           JobStatus      `json:"status"`
	Phase            string         `json:"phase"`
	Filename         string         `json:"filename"`
	Title            string         `json:"title"`
	Mode             Mode           `json:"mode"`
	Questions        int            `json:"questions"`
	Progress         Progress       `json:"progress"`
	Warning          string         `json:"warning,omitempty"`
	SummaryPreview   string         `json:"summary_preview,omitempty"`
	QuestionsPreview string         `json:"questions_preview,omitempty"`
	MCQCount         int            `json:"mcq_count"`
	SummaryFailures  []ChunkFailure `json:"summary_failures,omitempty"`
	QuestionFailures []ChunkFailure `json:"question_failures,omitempty"`
	Artifacts        []ArtifactInfo `json:"artifacts"`
	ContentHash      string         `json:"content_hash,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	arts := make([]ArtifactInfo, 0, len(j.artifacts))
	for _, a := range j.artifacts {
		info := ArtifactInfo{Name: a.Name, ContentType: a.ContentType, Size: len(a.Data)}
		if a.Err != nil {
			info.Error = a.Err.Error()
		}
		arts = append(arts, info)
	}
	return JobSnapshot{
		ID:        j.ID,
		Status:    j.Status,
		Phase:     j.Phase,
		Filename:  j.Filename,
		Title:     j.Title,
		Mode:      j.Mode,
		Questions: j.Questions,
		Progress: Progress{
			TotalChunks:     j.Progress.TotalChunks,
			ChunksProcessed: j.Progress.ChunksProcessed,
			ChunksFailed:    j.Progress.ChunksFailed,
			Errors:          errs,
		},
		Warning:          j.Warning,
		SummaryPreview:   j.summary,
		QuestionsPreview: j.questions,
		MCQCount:         j.mcqs,
		SummaryFailures:  slices.Clone(j.summaryFailures),
		QuestionFailures: slices.Clone(j.questionFailures),
		Artifacts:        arts,
		ContentHash:      j.ContentHash,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
