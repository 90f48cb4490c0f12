package pipeline

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestAggregate_OrdersByIndex(t *testing.T) {
	results := []ChunkResult{
		{Index: 2, Output: "third"},
		{Index: 0, Output: "first"},
		{Index: 1, Output: "second"},
	}
	agg := Aggregate(results, " | ")
	if agg.Text() != "first | second | third" {
		t.Errorf("unexpected text %q", agg.Text())
	}
	if results[0].Index != 2 {
		t.Error("expected input slice left untouched")
	}
	if !agg.Complete() || agg.Total() != 3 || agg.Succeeded() != 3 {
		t.Errorf("unexpected counts total=%d succeeded=%d", agg.Total(), agg.Succeeded())
	}
}

func TestAggregate_FailuresAndBlanks(t *testing.T) {
	agg := Aggregate([]ChunkResult{
		{Index: 3, Err: errors.New("boom")},
		{Index: 0, Output: "  kept  "},
		{Index: 1, Output: "   "},
		{Index: 2, Err: errors.New("bust")},
	}, "\n")
	if got := agg.Outputs(); len(got) != 1 || got[0] != "kept" {
		t.Errorf("expected only the non-blank output, got %q", got)
	}
	failed := agg.FailedIndices()
	if len(failed) != 2 || failed[0] != 2 || failed[1] != 3 {
		t.Errorf("expected failed [2 3], got %v", failed)
	}
	if r, ok := agg.FailureReason(3); !ok || r != "boom" {
		t.Errorf("expected reason boom, got %q", r)
	}
	if _, ok := agg.FailureReason(0); ok {
		t.Error("expected no reason for a successful chunk")
	}
	if agg.Complete() || agg.Succeeded() != 2 {
		t.Errorf("expected 2 of 4 succeeded, got %d", agg.Succeeded())
	}
}

func TestAggregate_AccessorsReturnCopies(t *testing.T) {
	agg := Aggregate([]ChunkResult{{Index: 0, Output: "a"}, {Index: 1, Err: errors.New("x")}}, "")
	agg.Outputs()[0] = "mutated"
	agg.FailedIndices()[0] = 99
	if agg.Outputs()[0] != "a" || agg.FailedIndices()[0] != 1 {
		t.Error("expected aggregated output to be immutable")
	}
}

func TestAggregate_Empty(t *testing.T) {
	agg := Aggregate(nil, "\n")
	if agg.Text() != "" || agg.Total() != 0 || !agg.Complete() {
		t.Errorf("unexpected empty aggregate: %q total=%d", agg.Text(), agg.Total())
	}
}

func TestAggregate_Failures(t *testing.T) {
	agg := Aggregate([]ChunkResult{
		{Index: 4, Err: errors.New("rate limited")},
		{Index: 0, Output: "a"},
		{Index: 2, Err: errors.New("timeout")},
	}, "\n")
	got := agg.Failures()
	if len(got) != 2 || got[0] != (ChunkFailure{Index: 2, Reason: "timeout"}) || got[1] != (ChunkFailure{Index: 4, Reason: "rate limited"}) {
		t.Errorf("unexpected failures %+v", got)
	}
	if f := Aggregate([]ChunkResult{{Index: 0, Output: "a"}}, "").Failures(); f == nil || len(f) != 0 {
		t.Errorf("expected empty non-nil failures, got %#v", f)
	}
}

func TestAggregate_MarshalJSONFailures(t *testing.T) {
	agg := Aggregate([]ChunkResult{{Index: 0, Output: "a"}, {Index: 1, Err: errors.New("boom")}}, "\n")
	data, err := json.Marshal(agg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"failures":[{"index":1,"reason":"boom"}]`) {
		t.Errorf("expected failure reasons in json, got %s", data)
	}
}

func TestAggregate_MarshalJSON(t *testing.T) {
	agg := Aggregate([]ChunkResult{{Index: 0, Output: "a"}, {Index: 1, Output: "b"}}, "\n")
	data, err := json.Marshal(agg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got struct {
		Text          string `json:"text"`
		TotalChunks   int    `json:"total_chunks"`
		FailedIndices []int  `json:"failed_indices"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Text != "a\nb" || got.TotalChunks != 2 || got.FailedIndices == nil {
		t.Errorf("unexpected json %s", data)
	}
}
