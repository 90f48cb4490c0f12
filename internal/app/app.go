// Package app assembles providers, cache, metrics and the job pipeline from
// configuration. Both the HTTP server and the command-line tool start here.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/docquiz/internal/api"
	"github.com/dgallion1/docquiz/internal/cache"
	"github.com/dgallion1/docquiz/internal/config"
	"github.com/dgallion1/docquiz/internal/llm"
	"github.com/dgallion1/docquiz/internal/metrics"
	"github.com/dgallion1/docquiz/internal/parser"
	"github.com/dgallion1/docquiz/internal/pipeline"
)

const cacheCleanupInterval = 10 * time.Minute

type App struct {
	Config       config.Config
	Stats        *llm.LLMStats
	Metrics      *metrics.Metrics
	Pipeline     *pipeline.Pipeline
	Orchestrator *pipeline.Orchestrator

	summarizer llm.Summarizer
	questioner llm.QuestionGenerator
	cache      cache.Cache
	log        *slog.Logger
}

// New builds every component named by cfg. The caller owns Close.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{Config: cfg, log: log, Stats: llm.NewLLMStats(time.Hour)}

	settings := llm.Settings{
		HFToken:          cfg.HFToken,
		HFModel:          cfg.HFModel,
		HFBaseURL:        cfg.HFBaseURL,
		GoogleAPIKey:     cfg.GoogleAPIKey,
		GeminiModel:      cfg.GeminiModel,
		GeminiBaseURL:    cfg.GeminiBaseURL,
		AnthropicAPIKey:  cfg.AnthropicAPIKey,
		AnthropicModel:   cfg.AnthropicModel,
		AnthropicBaseURL: cfg.AnthropicBaseURL,
		Timeout:          cfg.CallTimeout,
		Stats:            a.Stats,
	}
	var err error
	if a.summarizer, err = llm.NewSummarizer(cfg.SummaryProvider, settings); err != nil {
		return nil, fmt.Errorf("summary provider: %w", err)
	}
	if a.questioner, err = llm.NewQuestionGenerator(cfg.QuestionProvider, settings); err != nil {
		llm.Close(a.summarizer)
		return nil, fmt.Errorf("question provider: %w", err)
	}

	switch cfg.CacheBackend {
	case "memory":
		a.cache = cache.NewMemory()
	case "redis":
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, 5*time.Second)
		if err != nil {
			a.closeProviders()
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		a.cache = rc
	}

	// The queue gauge reads the orchestrator assigned below.
	a.Metrics = metrics.New(func() int { return a.Orchestrator.QueueDepth() })

	opts := []pipeline.Option{pipeline.WithMetrics(a.Metrics), pipeline.WithLogger(log)}
	if a.cache != nil {
		opts = append(opts, pipeline.WithCache(a.cache))
	}
	proc := pipeline.NewProcessor(a.summarizer, a.questioner, pipeline.ProcessorConfig{
		Retry: pipeline.RetryPolicy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
		},
		CallTimeout:    cfg.CallTimeout,
		MaxConcurrent:  cfg.MaxConcurrentChunks,
		CallsPerSecond: cfg.CallsPerSecond,
		Burst:          cfg.CallBurst,
		CacheTTL:       cfg.CacheTTL,
	}, opts...)

	a.Pipeline = pipeline.New(proc, pipeline.Options{
		SummaryChunkSize:  cfg.SummaryChunkSize,
		QuestionChunkSize: cfg.QuestionChunkSize,
		SummaryMinLength:  cfg.SummaryMinLength,
		SummaryMaxLength:  cfg.SummaryMaxLength,
		Parser:            parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext},
	}, log)

	a.Orchestrator = pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
	}, a.Pipeline, a.Metrics, log)

	log.Info("components ready",
		"summary_provider", cfg.SummaryProvider,
		"question_provider", cfg.QuestionProvider,
		"cache", cfg.CacheBackend,
	)
	return a, nil
}

// Start launches the job workers and cache housekeeping.
func (a *App) Start(ctx context.Context) {
	a.Orchestrator.Start(ctx)
	if mem, ok := a.cache.(*cache.Memory); ok {
		go func() {
			ticker := time.NewTicker(cacheCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					mem.Cleanup()
				}
			}
		}()
	}
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	return api.NewServer(a.Orchestrator, a.Metrics, a.Stats, a.log, a.Config)
}

// Serve runs the HTTP API until ctx is cancelled, then drains in-flight
// requests and stops the workers.
func (a *App) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         ":" + a.Config.Port,
		Handler:      a.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting docquiz", "port", a.Config.Port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down...")
	a.Orchestrator.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// Close releases provider connections and the cache client.
func (a *App) Close() {
	a.closeProviders()
	if c, ok := a.cache.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.log.Warn("close cache", "error", err)
		}
	}
}

func (a *App) closeProviders() {
	llm.Close(a.summarizer)
	llm.Close(a.questioner)
}
