package searcher

import (
	"context"
	"testing"

	"github.com/rankeval/rank-eval/internal/eval"
)

// TestFixture tests the fixture-backed search function.
func TestFixture(t *testing.T) {
	hits := map[string][]eval.Hit{
		"known query": {
			{"id": "a", "text": "first"},
			{"id": "b", "text": "second"},
		},
	}

	searchFn := Fixture(hits, nil)

	result, err := searchFn(context.Background(), eval.Query{Text: "known query", ID: "q1"})
	if err != nil {
		t.Fatalf("search returned error: %v", err)
	}
	if len(result.Hits) != 2 {
		t.Errorf("hits len = %d, want 2", len(result.Hits))
	}
	if result.Query.Text != "known query" {
		t.Errorf("result query = %q", result.Query.Text)
	}
}

// TestFixture_UnknownQuery tests that a query without fixture hits gets
// an empty result instead of an error.
func TestFixture_UnknownQuery(t *testing.T) {
	searchFn := Fixture(map[string][]eval.Hit{}, nil)

	result, err := searchFn(context.Background(), eval.Query{Text: "unknown"})
	if err != nil {
		t.Fatalf("search returned error: %v", err)
	}
	if len(result.Hits) != 0 {
		t.Errorf("hits len = %d, want 0", len(result.Hits))
	}
}
