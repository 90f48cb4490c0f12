package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dgallion1/docquiz/internal/cache"
	"github.com/dgallion1/docquiz/internal/chunker"
	"github.com/dgallion1/docquiz/internal/doctree"
	"github.com/dgallion1/docquiz/internal/metrics"
)

// OpKind names the transformation applied to a chunk.
type OpKind string

const (
	OpSummarize OpKind = "summarize"
	OpQuestions OpKind = "questions"
)

// Operation is a chunk transformation with its parameters. Build one with
// Summarize or GenerateQuestions.
type Operation struct {
	Kind      OpKind
	MinLength int
	MaxLength int
	Count     int
}

func Summarize(minLen, maxLen int) Operation {
	return Operation{Kind: OpSummarize, MinLength: minLen, MaxLength: maxLen}
}

func GenerateQuestions(count int) Operation {
	return Operation{Kind: OpQuestions, Count: count}
}

// Task pairs a chunk with the operation to run on it.
type Task struct {
	Chunk doctree.Chunk
	Op    Operation
}

// ChunkResult is the outcome for one chunk. Err is nil on success.
type ChunkResult struct {
	Index    int
	Output   string
	Err      error
	Attempts int
}

func (r ChunkResult) Failed() bool { return r.Err != nil }

// ProcessingError is the terminal failure of one chunk.
type ProcessingError struct {
	Index     int
	Attempts  int
	Transient bool
	Err       error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("chunk %d failed after %d attempt(s): %v", e.Index, e.Attempts, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Summarizer and QuestionGenerator are the remote capabilities the
// processor drives. Implementations live in package llm.
type Summarizer interface {
	Summarize(ctx context.Context, text string, minLen, maxLen int) (string, error)
}

type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, text string, count int) (string, error)
}

var errNoCapability = errors.New("no provider configured for operation")

// ProcessorConfig holds processing limits.
type ProcessorConfig struct {
	Retry         RetryPolicy
	CallTimeout   time.Duration // per attempt; 0 disables
	MaxConcurrent int
	// CallsPerSecond limits calls across all chunks; 0 means unlimited.
	CallsPerSecond float64
	Burst          int
	CacheTTL       time.Duration
}

// Processor applies an Operation to chunks with retries, isolating
// failures per chunk.
type Processor struct {
	summarizer Summarizer
	questions  QuestionGenerator
	cfg        ProcessorConfig
	limiter    *rate.Limiter
	cache      cache.Cache
	metrics    *metrics.Metrics
	log        *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Processor)

// WithCache memoizes successful outputs.
func WithCache(c cache.Cache) Option {
	return func(p *Processor) { p.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

func WithLogger(log *slog.Logger) Option {
	return func(p *Processor) { p.log = log }
}

// NewProcessor creates a processor. Either capability may be nil when the
// matching operation is never requested.
func NewProcessor(s Summarizer, q QuestionGenerator, cfg ProcessorConfig, opts ...Option) *Processor {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 4
	}
	limit, burst := rate.Inf, max(cfg.Burst, 1)
	if cfg.CallsPerSecond > 0 {
		limit = rate.Limit(cfg.CallsPerSecond)
	}
	p := &Processor{
		summarizer: s,
		questions:  q,
		cfg:        cfg,
		limiter:    rate.NewLimiter(limit, burst),
		log:        slog.New(slog.DiscardHandler),
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one task to completion: a cached output, a success within
// the retry budget, or a *ProcessingError.
func (p *Processor) Process(ctx context.Context, t Task) ChunkResult {
	res := ChunkResult{Index: t.Chunk.Index}
	log := p.log.With("chunk", t.Chunk.Index, "op", string(t.Op.Kind))

	if err := ctx.Err(); err != nil {
		res.Err = &ProcessingError{Index: t.Chunk.Index, Err: err}
		return res
	}

	var key string
	if p.cache != nil {
		key = p.cacheKey(t)
		out, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			log.Warn("cache lookup failed", "error", err)
		} else {
			p.metrics.CacheLookup(ok)
			if ok {
				res.Output = out
				return res
			}
		}
	}

	attempts := p.cfg.Retry.attempts()
	var lastErr error
	for attempt := range attempts {
		res.Attempts = attempt + 1
		out, err := p.call(ctx, t)
		if err == nil {
			res.Output = out
			if key != "" && strings.TrimSpace(out) != "" {
				if err := p.cache.Set(ctx, key, out, p.cfg.CacheTTL); err != nil {
					log.Warn("cache store failed", "error", err)
				}
			}
			return res
		}
		lastErr = err
		if !IsRetryable(err) || attempt == attempts-1 {
			break
		}
		wait := p.cfg.Retry.Wait(attempt, err)
		log.Warn("retryable chunk error", "attempt", attempt+1, "wait", wait, "error", err)
		if err := p.sleep(ctx, wait); err != nil {
			lastErr = err
			break
		}
	}

	log.Error("chunk failed", "attempts", res.Attempts, "error", lastErr)
	res.Err = &ProcessingError{
		Index:     t.Chunk.Index,
		Attempts:  res.Attempts,
		Transient: IsRetryable(lastErr),
		Err:       lastErr,
	}
	return res
}

// ProcessAll fans tasks out over at most MaxConcurrent goroutines. Results
// arrive in completion order; onDone, if set, sees each one as it lands.
// Once ctx is done no further task starts, and every task that never
// started is reported as failed with the context error.
func (p *Processor) ProcessAll(ctx context.Context, tasks []Task, onDone func(ChunkResult)) []ChunkResult {
	if len(tasks) == 0 {
		return nil
	}
	results := make(chan ChunkResult, len(tasks))

	go func() {
		defer close(results)
		var g errgroup.Group
		g.SetLimit(p.cfg.MaxConcurrent)
		for i, t := range tasks {
			if err := ctx.Err(); err != nil {
				for _, rest := range tasks[i:] {
					p.metrics.ChunkDone(string(rest.Op.Kind), true)
					results <- ChunkResult{
						Index: rest.Chunk.Index,
						Err:   &ProcessingError{Index: rest.Chunk.Index, Err: err},
					}
				}
				break
			}
			g.Go(func() error {
				r := p.Process(ctx, t)
				p.metrics.ChunkDone(string(t.Op.Kind), r.Failed())
				results <- r
				return nil
			})
		}
		_ = g.Wait()
	}()

	out := make([]ChunkResult, 0, len(tasks))
	for r := range results {
		if onDone != nil {
			onDone(r)
		}
		out = append(out, r)
	}
	return out
}

func (p *Processor) call(ctx context.Context, t Task) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if p.cfg.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, p.cfg.CallTimeout)
	}
	defer cancel()

	start := time.Now()
	out, err := p.invoke(callCtx, t)
	p.metrics.ObserveCall(string(t.Op.Kind), time.Since(start), err)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w after %s: %w", ErrCallTimeout, p.cfg.CallTimeout, err)
	}
	return out, err
}

func (p *Processor) invoke(ctx context.Context, t Task) (string, error) {
	switch t.Op.Kind {
	case OpSummarize:
		if p.summarizer == nil {
			return "", fmt.Errorf("%s: %w", t.Op.Kind, errNoCapability)
		}
		minLen, maxLen := chunker.ClampSummaryLength(t.Chunk.Text, t.Op.MinLength, t.Op.MaxLength)
		return p.summarizer.Summarize(ctx, t.Chunk.Text, minLen, maxLen)
	case OpQuestions:
		if p.questions == nil {
			return "", fmt.Errorf("%s: %w", t.Op.Kind, errNoCapability)
		}
		return p.questions.GenerateQuestions(ctx, t.Chunk.Text, t.Op.Count)
	default:
		return "", fmt.Errorf("unknown operation %q", t.Op.Kind)
	}
}

func (p *Processor) cacheKey(t Task) string {
	var model string
	var capability any = p.summarizer
	if t.Op.Kind == OpQuestions {
		capability = p.questions
	}
	if m, ok := capability.(interface{ Model() string }); ok {
		model = m.Model()
	}
	return cache.Key(string(t.Op.Kind), model,
		strconv.Itoa(t.Op.MinLength), strconv.Itoa(t.Op.MaxLength), strconv.Itoa(t.Op.Count),
		t.Chunk.Text)
}

// Allot spreads total questions over n chunks as evenly as possible; the
// shares sum to total and differ by at most one.
func Allot(total, n int) []int {
	if n <= 0 {
		return nil
	}
	shares := make([]int, n)
	if total <= 0 {
		return shares
	}
	for i := range shares {
		shares[i] = (i+1)*total/n - i*total/n
	}
	return shares
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
