package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           string `env:"PORT" envDefault:"8090"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"52428800"` // 50MB
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`

	// Providers
	SummaryProvider  string `env:"SUMMARY_PROVIDER" envDefault:"huggingface"`
	QuestionProvider string `env:"QUESTION_PROVIDER" envDefault:"gemini"`

	HFToken   string `env:"HF_API_TOKEN"`
	HFModel   string `env:"HF_MODEL" envDefault:"facebook/bart-large-cnn"`
	HFBaseURL string `env:"HF_BASE_URL"`

	GoogleAPIKey  string `env:"GOOGLE_API_KEY"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-pro"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL"`

	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel   string `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-5-20250929"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL"`

	// Chunking
	SummaryChunkSize  int `env:"SUMMARY_CHUNK_SIZE" envDefault:"1024"`
	QuestionChunkSize int `env:"QUESTION_CHUNK_SIZE" envDefault:"12000"`
	SummaryMinLength  int `env:"SUMMARY_MIN_LENGTH" envDefault:"40"`
	SummaryMaxLength  int `env:"SUMMARY_MAX_LENGTH" envDefault:"150"`
	DefaultQuestions  int `env:"DEFAULT_QUESTIONS" envDefault:"5"`

	// Chunk processing
	MaxConcurrentChunks int           `env:"MAX_CONCURRENT_CHUNKS" envDefault:"4"`
	MaxAttempts         int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	RetryBaseDelay      time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
	RetryMaxDelay       time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`
	CallTimeout         time.Duration `env:"CALL_TIMEOUT" envDefault:"120s"`
	CallsPerSecond      float64       `env:"CALLS_PER_SECOND" envDefault:"0"`
	CallBurst           int           `env:"CALL_BURST" envDefault:"1"`

	// Worker pool
	WorkerCount  int           `env:"WORKER_COUNT" envDefault:"4"`
	MaxQueueSize int           `env:"MAX_QUEUE_SIZE" envDefault:"100"`
	JobTTL       time.Duration `env:"JOB_TTL" envDefault:"1h"`

	// Result cache
	CacheBackend  string        `env:"CACHE_BACKEND" envDefault:"memory"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"24h"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`

	// PDF
	PDFFallbackPdftotext bool `env:"PDF_FALLBACK_PDFTOTEXT" envDefault:"true"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

// FromMap builds a Config from explicit variables, ignoring the process
// environment.
func FromMap(vars map[string]string) (Config, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentChunks <= 0 {
		cfg.MaxConcurrentChunks = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	cfg.SummaryProvider = strings.ToLower(strings.TrimSpace(cfg.SummaryProvider))
	cfg.QuestionProvider = strings.ToLower(strings.TrimSpace(cfg.QuestionProvider))
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if err := c.checkCredentials(c.SummaryProvider); err != nil {
		errs = append(errs, err)
	}
	if c.QuestionProvider != c.SummaryProvider {
		if err := c.checkCredentials(c.QuestionProvider); err != nil {
			errs = append(errs, err)
		}
	}
	if c.QuestionProvider == "huggingface" {
		errs = append(errs, fmt.Errorf("QUESTION_PROVIDER huggingface cannot generate questions"))
	}
	if c.SummaryMinLength > c.SummaryMaxLength {
		errs = append(errs, fmt.Errorf("SUMMARY_MIN_LENGTH %d exceeds SUMMARY_MAX_LENGTH %d", c.SummaryMinLength, c.SummaryMaxLength))
	}
	if c.DefaultQuestions < 1 || c.DefaultQuestions > 20 {
		errs = append(errs, fmt.Errorf("DEFAULT_QUESTIONS must be between 1 and 20"))
	}
	switch c.CacheBackend {
	case "none", "memory":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("REDIS_ADDR is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend))
	}
	return errors.Join(errs...)
}

func (c Config) checkCredentials(provider string) error {
	switch provider {
	case "huggingface":
		if c.HFToken == "" {
			return fmt.Errorf("HF_API_TOKEN is required")
		}
	case "gemini":
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required")
		}
	case "claude", "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
	case "local":
	default:
		return fmt.Errorf("unknown provider %q", provider)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
