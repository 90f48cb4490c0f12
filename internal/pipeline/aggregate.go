package pipeline

import (
	"encoding/json"
	"slices"
	"strings"
)

// AggregatedOutput is the document-ordered result of one operation over all
// chunks. It is immutable; accessors return copies.
type AggregatedOutput struct {
	outputs []string
	failed  []int
	reasons map[int]string
	total   int
	sep     string
}

// Aggregate orders results by chunk index, keeps the non-blank successful
// outputs and records every failed index with its reason. The input slice
// is not modified.
func Aggregate(results []ChunkResult, sep string) *AggregatedOutput {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b ChunkResult) int { return a.Index - b.Index })

	agg := &AggregatedOutput{
		reasons: make(map[int]string),
		total:   len(sorted),
		sep:     sep,
	}
	for _, r := range sorted {
		if r.Failed() {
			agg.failed = append(agg.failed, r.Index)
			agg.reasons[r.Index] = r.Err.Error()
			continue
		}
		if strings.TrimSpace(r.Output) == "" {
			continue
		}
		agg.outputs = append(agg.outputs, strings.TrimSpace(r.Output))
	}
	return agg
}

func (a *AggregatedOutput) Outputs() []string { return slices.Clone(a.outputs) }

// FailedIndices lists failed chunk indices in ascending order.
func (a *AggregatedOutput) FailedIndices() []int { return slices.Clone(a.failed) }

// Text joins the outputs with the aggregation separator.
func (a *AggregatedOutput) Text() string { return strings.Join(a.outputs, a.sep) }

func (a *AggregatedOutput) FailureReason(index int) (string, bool) {
	r, ok := a.reasons[index]
	return r, ok
}

// ChunkFailure is one failed chunk and why it failed.
type ChunkFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Failures lists the failed chunks in index order.
func (a *AggregatedOutput) Failures() []ChunkFailure {
	out := make([]ChunkFailure, 0, len(a.failed))
	for _, i := range a.failed {
		out = append(out, ChunkFailure{Index: i, Reason: a.reasons[i]})
	}
	return out
}

func (a *AggregatedOutput) Total() int { return a.total }

func (a *AggregatedOutput) Succeeded() int { return a.total - len(a.failed) }

// Complete reports whether every chunk succeeded.
func (a *AggregatedOutput) Complete() bool { return len(a.failed) == 0 }

func (a *AggregatedOutput) MarshalJSON() ([]byte, error) {
	failed := a.failed
	if failed == nil {
		failed = []int{}
	}
	return json.Marshal(struct {
		Text          string         `json:"text"`
		TotalChunks   int            `json:"total_chunks"`
		FailedIndices []int          `json:"failed_indices"`
		Failures      []ChunkFailure `json:"failures"`
	}{a.Text(), a.total, failed, a.Failures()})
}
