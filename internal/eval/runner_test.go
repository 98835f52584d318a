package eval

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

// fakeJudge delegates to a function, or grades everything relevant when
// none is given.
type fakeJudge struct {
	fn func(ctx context.Context, query Query, hits []Hit) (*Record, error)
}

func (f *fakeJudge) EvaluateSearch(ctx context.Context, query Query, hits []Hit) (*Record, error) {
	if f.fn != nil {
		return f.fn(ctx, query, hits)
	}
	relevances := make([]float64, len(hits))
	for i := range relevances {
		relevances[i] = 1.0
	}
	return &Record{
		Query: query,
		Metrics: map[string]float64{
			"ndcg": NDCG(relevances),
			"map":  MAP(relevances),
			"mrr":  MRR(relevances),
		},
	}, nil
}

func staticSearch(hits []Hit) SearchFunc {
	return func(ctx context.Context, query Query) (SearchResult, error) {
		return SearchResult{Query: query, Hits: hits}, nil
	}
}

func quietOptions() Options {
	return Options{ShowProgress: false, MaxWorkers: 4}
}

// TestEvaluateApproach tests a single-approach run end to end: one
// query, two hits, first relevant.
func TestEvaluateApproach(t *testing.T) {
	judge := &fakeJudge{fn: func(ctx context.Context, query Query, hits []Hit) (*Record, error) {
		relevances := []float64{1, 0}
		return &Record{
			Query: query,
			Metrics: map[string]float64{
				"ndcg": NDCG(relevances),
				"map":  MAP(relevances),
				"mrr":  MRR(relevances),
			},
			HitScores: []HitJudgment{
				{Index: 0, HitID: "a", Relevant: true, EvalScore: 4},
				{Index: 1, HitID: "b", Relevant: false, EvalScore: 2},
			},
		}, nil
	}}

	evaluator := New(judge, nil)
	hits := []Hit{{"id": "a", "text": "match"}, {"id": "b", "text": "miss"}}
	queries := []Query{{Text: "single query"}}

	result, err := evaluator.EvaluateApproach(context.Background(), "bm25", staticSearch(hits), queries, quietOptions())
	if err != nil {
		t.Fatalf("EvaluateApproach returned error: %v", err)
	}

	if len(result.DetailedResults) != 1 {
		t.Fatalf("detailed results len = %d, want 1", len(result.DetailedResults))
	}
	if !almostEqual(result.Metrics["mrr"].Mean, 1.0) {
		t.Errorf("mrr mean = %v, want 1.0", result.Metrics["mrr"].Mean)
	}
	if !almostEqual(result.Metrics["map"].Mean, 1.0) {
		t.Errorf("map mean = %v, want 1.0", result.Metrics["map"].Mean)
	}

	rec := result.DetailedResults[0]
	if rec.Query.Text != "single query" {
		t.Errorf("record query = %q", rec.Query.Text)
	}
	if rec.Query.ID == "" {
		t.Error("query was stored without an assigned ID")
	}

	stored, ok := evaluator.Store().Get("bm25")
	if !ok {
		t.Fatal("result not published into the store")
	}
	if stored != result {
		t.Error("stored result differs from the returned one")
	}
}

// TestEvaluateApproach_SearchFailureIsolated tests that a failing search
// function skips only its query.
func TestEvaluateApproach_SearchFailureIsolated(t *testing.T) {
	searchFn := func(ctx context.Context, query Query) (SearchResult, error) {
		if query.Text == "broken" {
			return SearchResult{}, fmt.Errorf("backend unavailable")
		}
		return SearchResult{Query: query, Hits: []Hit{{"text": "ok"}}}, nil
	}
	queries := []Query{{Text: "first"}, {Text: "broken"}, {Text: "third"}}

	evaluator := New(&fakeJudge{}, nil)
	result, err := evaluator.EvaluateApproach(context.Background(), "flaky", searchFn, queries, quietOptions())
	if err != nil {
		t.Fatalf("EvaluateApproach returned error: %v", err)
	}

	if len(result.DetailedResults) != 2 {
		t.Fatalf("detailed results len = %d, want 2", len(result.DetailedResults))
	}
	for _, rec := range result.DetailedResults {
		if rec.Query.Text == "broken" {
			t.Error("failed query appears in detailed results")
		}
	}
}

// TestEvaluateApproach_JudgeFailureIsolated tests per-query isolation of
// judge errors.
func TestEvaluateApproach_JudgeFailureIsolated(t *testing.T) {
	judge := &fakeJudge{fn: func(ctx context.Context, query Query, hits []Hit) (*Record, error) {
		if query.Text == "poison" {
			return nil, errors.ProtocolError("malformed judge response")
		}
		return &Record{Query: query, Metrics: map[string]float64{"mrr": 1}}, nil
	}}

	queries := []Query{{Text: "fine"}, {Text: "poison"}}
	evaluator := New(judge, nil)

	result, err := evaluator.EvaluateApproach(context.Background(), "a", staticSearch(nil), queries, quietOptions())
	if err != nil {
		t.Fatalf("EvaluateApproach returned error: %v", err)
	}
	if len(result.DetailedResults) != 1 {
		t.Errorf("detailed results len = %d, want 1", len(result.DetailedResults))
	}
}

// TestEvaluateApproach_AllFail tests that a run with zero successes
// returns an aggregation error and stores nothing.
func TestEvaluateApproach_AllFail(t *testing.T) {
	searchFn := func(ctx context.Context, query Query) (SearchResult, error) {
		return SearchResult{}, fmt.Errorf("always down")
	}

	evaluator := New(&fakeJudge{}, nil)
	_, err := evaluator.EvaluateApproach(context.Background(), "down", searchFn, []Query{{Text: "q"}}, quietOptions())
	if err == nil {
		t.Fatal("EvaluateApproach returned no error with zero successes")
	}
	if !errors.HasCode(err, errors.CodeAggregation) {
		t.Errorf("error code = %v, want aggregation error", err)
	}
	if evaluator.Store().Len() != 0 {
		t.Error("failed run left a result in the store")
	}
}

// TestEvaluateApproach_Validation tests input validation.
func TestEvaluateApproach_Validation(t *testing.T) {
	evaluator := New(&fakeJudge{}, nil)

	if _, err := evaluator.EvaluateApproach(context.Background(), "", staticSearch(nil), nil, quietOptions()); !errors.HasCode(err, errors.CodeValidation) {
		t.Errorf("empty name: error = %v, want validation error", err)
	}
	if _, err := evaluator.EvaluateApproach(context.Background(), "a", nil, nil, quietOptions()); !errors.HasCode(err, errors.CodeValidation) {
		t.Errorf("nil search fn: error = %v, want validation error", err)
	}
}

// TestEvaluateApproach_SequentialOrder tests that sequential mode keeps
// submission order in the detailed results.
func TestEvaluateApproach_SequentialOrder(t *testing.T) {
	queries := []Query{{Text: "a"}, {Text: "b"}, {Text: "c"}}

	evaluator := New(&fakeJudge{}, nil)
	result, err := evaluator.EvaluateApproach(context.Background(), "seq", staticSearch([]Hit{{"text": "x"}}), queries, quietOptions())
	if err != nil {
		t.Fatalf("EvaluateApproach returned error: %v", err)
	}

	for i, want := range []string{"a", "b", "c"} {
		if result.DetailedResults[i].Query.Text != want {
			t.Errorf("record %d query = %q, want %q", i, result.DetailedResults[i].Query.Text, want)
		}
	}
}

// TestEvaluateApproach_Parallel tests the bounded worker pool: every
// query is evaluated exactly once.
func TestEvaluateApproach_Parallel(t *testing.T) {
	var calls atomic.Int64
	judge := &fakeJudge{fn: func(ctx context.Context, query Query, hits []Hit) (*Record, error) {
		calls.Add(1)
		return &Record{Query: query, Metrics: map[string]float64{"mrr": 1}}, nil
	}}

	queries := make([]Query, 20)
	for i := range queries {
		queries[i] = Query{Text: fmt.Sprintf("query-%d", i)}
	}

	evaluator := New(judge, nil)
	opts := Options{Parallel: true, MaxWorkers: 4}
	result, err := evaluator.EvaluateApproach(context.Background(), "par", staticSearch(nil), queries, opts)
	if err != nil {
		t.Fatalf("EvaluateApproach returned error: %v", err)
	}

	if len(result.DetailedResults) != len(queries) {
		t.Errorf("detailed results len = %d, want %d", len(result.DetailedResults), len(queries))
	}
	if calls.Load() != int64(len(queries)) {
		t.Errorf("judge called %d times, want %d", calls.Load(), len(queries))
	}

	seen := make(map[string]bool, len(queries))
	for _, rec := range result.DetailedResults {
		if seen[rec.Query.Text] {
			t.Errorf("query %q evaluated twice", rec.Query.Text)
		}
		seen[rec.Query.Text] = true
	}
}

// TestEvaluateApproach_TwoApproachComparison tests comparing two runs
// through the evaluator.
func TestEvaluateApproach_TwoApproachComparison(t *testing.T) {
	makeJudge := func(relevances []float64) *fakeJudge {
		return &fakeJudge{fn: func(ctx context.Context, query Query, hits []Hit) (*Record, error) {
			return &Record{
				Query:   query,
				Metrics: map[string]float64{"ndcg": NDCG(relevances)},
			}, nil
		}}
	}

	queries := []Query{{Text: "q"}}

	evaluator := New(makeJudge([]float64{1, 1}), nil)
	if _, err := evaluator.EvaluateApproach(context.Background(), "strong", staticSearch(nil), queries, quietOptions()); err != nil {
		t.Fatalf("strong run failed: %v", err)
	}

	evaluator.judge = makeJudge([]float64{0, 1})
	if _, err := evaluator.EvaluateApproach(context.Background(), "weak", staticSearch(nil), queries, quietOptions()); err != nil {
		t.Fatalf("weak run failed: %v", err)
	}

	comparison, err := evaluator.CompareApproaches()
	if err != nil {
		t.Fatalf("CompareApproaches returned error: %v", err)
	}
	if comparison.Metrics["ndcg"].BestApproach != "strong" {
		t.Errorf("best = %q, want strong", comparison.Metrics["ndcg"].BestApproach)
	}
	if !comparison.Metrics["ndcg"].SignificantGap {
		t.Error("large ndcg gap not flagged as significant")
	}
}

// TestEvaluateApproach_InputQueriesUntouched tests that ID assignment
// does not mutate the caller's slice.
func TestEvaluateApproach_InputQueriesUntouched(t *testing.T) {
	queries := []Query{{Text: "no id"}}

	evaluator := New(&fakeJudge{}, nil)
	if _, err := evaluator.EvaluateApproach(context.Background(), "a", staticSearch(nil), queries, quietOptions()); err != nil {
		t.Fatalf("EvaluateApproach returned error: %v", err)
	}

	if queries[0].ID != "" {
		t.Errorf("caller's query mutated: ID = %q", queries[0].ID)
	}
}
