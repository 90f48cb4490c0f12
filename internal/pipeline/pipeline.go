// Package pipeline turns an uploaded document into summaries and
// multiple-choice questions: extract, segment, process chunks, aggregate,
// export. It also runs those pipelines as background jobs.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/docquiz/internal/chunker"
	"github.com/dgallion1/docquiz/internal/doctree"
	"github.com/dgallion1/docquiz/internal/llm"
	"github.com/dgallion1/docquiz/internal/parser"
)

// Mode selects which operations run over a document.
type Mode string

const (
	ModeSummarize Mode = "summarize"
	ModeQuestions Mode = "questions"
	ModeBoth      Mode = "both"
)

// ParseMode accepts a mode name; "" means ModeBoth.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeBoth, nil
	case ModeSummarize, ModeQuestions, ModeBoth:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want summarize, questions or both)", s)
	}
}

func (m Mode) summarizes() bool { return m == ModeSummarize || m == ModeBoth }

func (m Mode) asksQuestions() bool { return m == ModeQuestions || m == ModeBoth }

const (
	MinQuestions     = 1
	MaxQuestions     = 20
	DefaultQuestions = 5
)

// NoContentWarning is shown when a document has no readable text.
const NoContentWarning = "No readable text found in the uploaded file."

const (
	summarySeparator  = "\n"
	questionSeparator = "\n\n"
)

// Phase names a pipeline stage reported to an Observer.
type Phase string

const (
	PhaseExtracting  Phase = "extracting"
	PhaseSummarizing Phase = "summarizing"
	PhaseGenerating  Phase = "generating"
)

// Observer receives progress from Run. Calls come from a single goroutine.
type Observer interface {
	OnPhase(phase Phase, chunks int)
	OnChunk(op OpKind, r ChunkResult)
}

// Options hold segmentation and summary sizing.
type Options struct {
	SummaryChunkSize  int
	QuestionChunkSize int
	SummaryMinLength  int
	SummaryMaxLength  int
	Parser            parser.Options
}

func DefaultOptions() Options {
	return Options{
		SummaryChunkSize:  chunker.DefaultMaxLength,
		QuestionChunkSize: 12000,
		SummaryMinLength:  40,
		SummaryMaxLength:  150,
	}
}

// Request is one document to run through the pipeline. When Document.Text
// is empty the text is extracted from Document.Raw.
type Request struct {
	Document  doctree.Document
	Mode      Mode
	Questions int // 0 means DefaultQuestions
	Observer  Observer
}

// Result holds everything a run produced. Summary and Questions are nil
// for operations the mode did not request.
type Result struct {
	Text      string
	Summary   *AggregatedOutput
	Questions *AggregatedOutput
	MCQs      []llm.MCQ
	// QuestionSource is "summary" or "text".
	QuestionSource string
	Warning        string
}

// Pipeline wires extraction, segmentation and chunk processing together.
type Pipeline struct {
	proc *Processor
	opts Options
	log  *slog.Logger
}

func New(proc *Processor, opts Options, log *slog.Logger) *Pipeline {
	def := DefaultOptions()
	if opts.SummaryChunkSize <= 0 {
		opts.SummaryChunkSize = def.SummaryChunkSize
	}
	if opts.QuestionChunkSize <= 0 {
		opts.QuestionChunkSize = def.QuestionChunkSize
	}
	if opts.SummaryMaxLength <= 0 {
		opts.SummaryMaxLength = def.SummaryMaxLength
	}
	if opts.SummaryMinLength < 0 || opts.SummaryMinLength > opts.SummaryMaxLength {
		opts.SummaryMinLength = min(def.SummaryMinLength, opts.SummaryMaxLength)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{proc: proc, opts: opts, log: log}
}

func (p *Pipeline) Options() Options { return p.opts }

// Segment splits text the way Run does for the given operation.
func (p *Pipeline) Segment(text string, op OpKind) []doctree.Chunk {
	if op == OpQuestions {
		return chunker.Segment(text, p.opts.QuestionChunkSize)
	}
	return chunker.Segment(text, p.opts.SummaryChunkSize)
}

// Run processes one document. Extraction failures abort the run. A document
// without readable text returns a Result carrying NoContentWarning together
// with an *parser.ExtractionError of kind ErrEmptyContent. Chunk failures
// never abort; they show up in the aggregated outputs. If ctx ends mid-run
// the partial Result is returned with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeBoth
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	count := req.Questions
	if count == 0 {
		count = DefaultQuestions
	}
	if mode.asksQuestions() && (count < MinQuestions || count > MaxQuestions) {
		return nil, fmt.Errorf("question count %d out of range %d-%d", count, MinQuestions, MaxQuestions)
	}
	obs := req.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	doc := req.Document
	log := p.log.With("title", doc.Title, "format", string(doc.Format), "mode", string(mode))

	text := doc.Text
	if text == "" {
		obs.OnPhase(PhaseExtracting, 0)
		var err error
		text, err = parser.ExtractWith(doc.Raw, doc.Format, p.opts.Parser)
		if err != nil {
			log.Error("extraction failed", "error", err)
			return nil, fmt.Errorf("extract text: %w", err)
		}
	}
	if strings.TrimSpace(text) == "" {
		log.Warn("document has no readable text")
		return &Result{Warning: NoContentWarning}, &parser.ExtractionError{Format: doc.Format, Kind: parser.ErrEmptyContent}
	}

	res := &Result{Text: text}

	if mode.summarizes() {
		chunks := p.Segment(text, OpSummarize)
		op := Summarize(p.opts.SummaryMinLength, p.opts.SummaryMaxLength)
		tasks := make([]Task, len(chunks))
		for i, c := range chunks {
			tasks[i] = Task{Chunk: c, Op: op}
		}
		obs.OnPhase(PhaseSummarizing, len(tasks))
		results := p.proc.ProcessAll(ctx, tasks, func(r ChunkResult) { obs.OnChunk(OpSummarize, r) })
		res.Summary = Aggregate(results, summarySeparator)
		log.Info("summary complete", "chunks", len(chunks), "failed", len(res.Summary.FailedIndices()))
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}

	if mode.asksQuestions() {
		source, from := text, "text"
		if res.Summary != nil {
			if s := res.Summary.Text(); strings.TrimSpace(s) != "" {
				source, from = s, "summary"
			}
		}
		res.QuestionSource = from

		chunks := p.Segment(source, OpQuestions)
		shares := Allot(count, len(chunks))
		var tasks []Task
		for i, c := range chunks {
			if shares[i] > 0 {
				tasks = append(tasks, Task{Chunk: c, Op: GenerateQuestions(shares[i])})
			}
		}
		obs.OnPhase(PhaseGenerating, len(tasks))
		results := p.proc.ProcessAll(ctx, tasks, func(r ChunkResult) { obs.OnChunk(OpQuestions, r) })
		res.Questions = Aggregate(results, questionSeparator)
		res.MCQs = llm.ParseMCQs(res.Questions.Text())
		log.Info("questions complete", "source", from, "chunks", len(tasks),
			"failed", len(res.Questions.FailedIndices()), "parsed", len(res.MCQs))
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}

	return res, nil
}

type nopObserver struct{}

func (nopObserver) OnPhase(Phase, int) {}
func (nopObserver) OnChunk(OpKind, ChunkResult) {}
