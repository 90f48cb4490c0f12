package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docquiz/internal/doctree"
	"github.com/dgallion1/docquiz/internal/metrics"
	"github.com/dgallion1/docquiz/internal/parser"
)

// Worker processes a single document job.
type Worker struct {
	pipeline *Pipeline
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewWorker(p *Pipeline, m *metrics.Metrics, log *slog.Logger) *Worker {
	return &Worker{pipeline: p, metrics: m, log: log}
}

// Process runs the pipeline for a job and renders its artifacts.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename, "mode", string(job.Mode))
	defer job.ReleaseFileData()

	job.SetStatus(StatusExtracting, "extracting text")
	res, err := w.pipeline.Run(ctx, Request{
		Document: doctree.Document{
			Raw:    job.FileData(),
			Format: job.Format,
			Title:  job.Title,
		},
		Mode:      job.Mode,
		Questions: job.Questions,
		Observer:  job,
	})

	switch {
	case errors.Is(err, parser.ErrEmptyContent):
		log.Warn("no readable text")
		job.SetWarning(res.Warning)
		w.finish(job, StatusNoContent, "done")
		return
	case err != nil && res == nil:
		log.Error("pipeline failed", "error", err)
		job.AddError(err.Error())
		w.finish(job, StatusFailed, "extracting")
		return
	case err != nil:
		log.Warn("pipeline interrupted", "error", err)
		job.AddError(fmt.Sprintf("interrupted: %s", err))
	}

	job.SetStatus(StatusExporting, "rendering artifacts")
	artifacts := ExportArtifacts(res, job.Title, w.metrics)
	exportFailed := false
	for _, a := range artifacts {
		if a.Err != nil {
			log.Error("export failed", "artifact", a.Name, "error", a.Err)
			job.AddError(fmt.Sprintf("export %s: %s", a.Name, a.Err))
			exportFailed = true
		}
	}
	job.SetResult(res, artifacts)

	status := outcome(res, err != nil || exportFailed)
	log.Info("job finished", "status", string(status), "mcqs", len(res.MCQs))
	w.finish(job, status, "done")
}

func (w *Worker) finish(job *Job, status JobStatus, phase string) {
	job.SetStatus(status, phase)
	w.metrics.JobFinished(string(status))
}

// outcome is failed when no requested operation produced output, partial
// when anything was lost along the way, and completed otherwise.
func outcome(res *Result, degraded bool) JobStatus {
	produced, lost := false, degraded
	for _, agg := range []*AggregatedOutput{res.Summary, res.Questions} {
		if agg == nil {
			continue
		}
		if len(agg.Outputs()) > 0 {
			produced = true
		}
		if !agg.Complete() {
			lost = true
		}
	}
	switch {
	case !produced:
		return StatusFailed
	case lost:
		return StatusPartial
	default:
		return StatusCompleted
	}
}
