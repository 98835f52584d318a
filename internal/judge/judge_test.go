package judge

import (
	"context"
	"testing"

	"github.com/rankeval/rank-eval/internal/eval"
	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

// TestLocal_EvaluateSearch tests keyword grading over hit fields.
func TestLocal_EvaluateSearch(t *testing.T) {
	local := NewLocal()
	query := eval.Query{Text: "Goroutine Leaks", ID: "q1"}
	hits := []eval.Hit{
		{"id": "a", "text": "Detecting goroutine leaks in production"},
		{"id": "b", "text": "Cooking with cast iron"},
		{"id": "c", "title": "Leaks and how to plug them"},
	}

	rec, err := local.EvaluateSearch(context.Background(), query, hits)
	if err != nil {
		t.Fatalf("EvaluateSearch returned error: %v", err)
	}

	if len(rec.HitScores) != 3 {
		t.Fatalf("hit scores len = %d, want 3", len(rec.HitScores))
	}

	wantRelevant := []bool{true, false, true}
	wantScore := []int{4, 2, 4}
	for i, hs := range rec.HitScores {
		if hs.Relevant != wantRelevant[i] {
			t.Errorf("hit %d relevant = %v, want %v", i, hs.Relevant, wantRelevant[i])
		}
		if hs.EvalScore != wantScore[i] {
			t.Errorf("hit %d score = %d, want %d", i, hs.EvalScore, wantScore[i])
		}
		if hs.Relevant != (hs.EvalScore >= 3) {
			t.Errorf("hit %d relevant flag inconsistent with score %d", i, hs.EvalScore)
		}
	}

	if rec.HitScores[0].HitID != "a" {
		t.Errorf("hit 0 id = %q, want a", rec.HitScores[0].HitID)
	}
	// The third hit has no id field, so its identifier is positional.
	if rec.HitScores[2].HitID != "hit-2" {
		t.Errorf("hit 2 id = %q, want hit-2", rec.HitScores[2].HitID)
	}

	// relevances [1,0,1]: mrr from the first hit.
	if rec.Metrics["mrr"] != 1.0 {
		t.Errorf("mrr = %v, want 1.0", rec.Metrics["mrr"])
	}
	if rec.Usage["evaluation_input_tokens"] == 0 {
		t.Error("usage counters missing")
	}
}

// TestLocal_EmptyHits tests grading an empty hit list.
func TestLocal_EmptyHits(t *testing.T) {
	rec, err := NewLocal().EvaluateSearch(context.Background(), eval.Query{Text: "anything"}, nil)
	if err != nil {
		t.Fatalf("EvaluateSearch returned error: %v", err)
	}
	if len(rec.HitScores) != 0 {
		t.Errorf("hit scores len = %d, want 0", len(rec.HitScores))
	}
	if rec.Metrics["ndcg"] != 0 || rec.Metrics["map"] != 0 || rec.Metrics["mrr"] != 0 {
		t.Errorf("metrics over empty hits = %v, want all zero", rec.Metrics)
	}
}

// TestLocal_CancelledContext tests that a cancelled context aborts.
func TestLocal_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewLocal().EvaluateSearch(ctx, eval.Query{Text: "x"}, nil); err == nil {
		t.Error("EvaluateSearch ignored cancelled context")
	}
}

// TestNewRequest tests wire request construction and field defaulting.
func TestNewRequest(t *testing.T) {
	query := eval.Query{Text: "hello"}
	hits := []eval.Hit{{"text": "world"}}

	req := NewRequest(query, hits, nil, true)
	if req.Query.Inputs.Text != "hello" {
		t.Errorf("request query text = %q", req.Query.Inputs.Text)
	}
	if len(req.Eval.Fields) != 1 || req.Eval.Fields[0] != "text" {
		t.Errorf("default fields = %v, want [text]", req.Eval.Fields)
	}
	if !req.Eval.Debug {
		t.Error("debug flag not carried")
	}
	if len(req.Hits) != 1 {
		t.Errorf("hits len = %d, want 1", len(req.Hits))
	}

	req = NewRequest(query, hits, []string{"title", "body"}, false)
	if len(req.Eval.Fields) != 2 || req.Eval.Fields[0] != "title" {
		t.Errorf("explicit fields = %v", req.Eval.Fields)
	}
}

// TestParseResponse tests response validation and record conversion.
func TestParseResponse(t *testing.T) {
	query := eval.Query{Text: "q", ID: "id"}

	resp := &Response{
		Hits: []ResponseHit{
			{
				Index:         0,
				Fields:        map[string]any{"id": "doc-1", "text": "judged text"},
				Relevant:      boolPtr(true),
				Score:         intPtr(4),
				Justification: "matches the query",
			},
			{
				Index:    1,
				Relevant: boolPtr(false),
				Score:    intPtr(1),
			},
		},
		Metrics: map[string]float64{"ndcg": 0.8, "map": 1.0, "mrr": 1.0},
		Usage:   map[string]int{"evaluation_input_tokens": 12},
	}

	rec, err := parseResponse(query, resp, 2, nil)
	if err != nil {
		t.Fatalf("parseResponse returned error: %v", err)
	}

	if rec.Query != query {
		t.Errorf("record query = %+v", rec.Query)
	}
	if rec.Metrics["ndcg"] != 0.8 {
		t.Errorf("ndcg = %v, want 0.8", rec.Metrics["ndcg"])
	}

	first := rec.HitScores[0]
	if first.HitID != "doc-1" {
		t.Errorf("hit 0 id = %q, want doc-1 from fields", first.HitID)
	}
	if first.EvalText != "judged text" {
		t.Errorf("hit 0 eval text = %q", first.EvalText)
	}
	if !first.Relevant || first.EvalScore != 4 {
		t.Errorf("hit 0 = %+v", first)
	}

	second := rec.HitScores[1]
	if second.HitID != "hit-1" {
		t.Errorf("hit 1 id = %q, want positional fallback", second.HitID)
	}
}

// TestParseResponse_Protocol tests protocol violations.
func TestParseResponse_Protocol(t *testing.T) {
	query := eval.Query{Text: "q"}
	valid := ResponseHit{Index: 0, Relevant: boolPtr(true), Score: intPtr(3)}

	tests := []struct {
		name      string
		resp      *Response
		requested int
	}{
		{
			name:      "hit count mismatch",
			resp:      &Response{Hits: []ResponseHit{valid}},
			requested: 2,
		},
		{
			name:      "missing relevant",
			resp:      &Response{Hits: []ResponseHit{{Index: 0, Score: intPtr(3)}}},
			requested: 1,
		},
		{
			name:      "missing score",
			resp:      &Response{Hits: []ResponseHit{{Index: 0, Relevant: boolPtr(true)}}},
			requested: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseResponse(query, tt.resp, tt.requested, nil)
			if err == nil {
				t.Fatal("parseResponse returned no error")
			}
			if !errors.HasCode(err, errors.CodeProtocol) {
				t.Errorf("error code = %v, want protocol error", err)
			}
		})
	}
}
