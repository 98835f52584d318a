// Package eval implements the search evaluation engine: running search
// approaches over query sets, judging their results, aggregating ranking
// metrics and comparing approaches against each other.
package eval

import (
	"context"

	"github.com/google/uuid"
)

// Query represents a search query. Text is immutable once the query
// exists; ID is assigned lazily when the query enters a collection.
type Query struct {
	Text string `json:"text" yaml:"text"`
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
}

// NewQuery creates a query with a fresh unique identifier.
func NewQuery(text string) Query {
	return Query{Text: text, ID: uuid.NewString()}
}

// EnsureID returns the query with an ID assigned if it was absent.
func (q Query) EnsureID() Query {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return q
}

// Hit is a single search result with completely flexible fields.
// Common fields include "id" and "text", but none are required; judges
// iterate all string-valued fields when assessing relevance.
type Hit map[string]any

// SearchResult is the ordered collection of hits an approach returned
// for a query.
type SearchResult struct {
	Query Query `json:"query"`
	Hits  []Hit `json:"hits"`
}

// SearchFunc maps one query to one search result. It is supplied by the
// caller and may fail; the runner isolates such failures per query.
type SearchFunc func(ctx context.Context, query Query) (SearchResult, error)

// HitJudgment holds the judge's relevance assessment for a single hit.
type HitJudgment struct {
	// Index is the hit's position in the original hit list.
	Index int `json:"index"`

	// HitID identifies the judged hit.
	HitID string `json:"hit_id"`

	// EvalScore is the graded relevance score in [1,4].
	EvalScore int `json:"eval_score"`

	// Relevant indicates the hit satisfies the query. Judges that
	// derive it from the graded score use relevant == score >= 3.
	Relevant bool `json:"relevant"`

	// EvalText is the text the judge assessed.
	EvalText string `json:"eval_text,omitempty"`

	// Fields echoes the judged hit's fields.
	Fields map[string]any `json:"fields,omitempty"`

	// Justification explains the judgment, when the judge provides one.
	Justification string `json:"justification,omitempty"`
}

// Record is the evaluation result for one (approach, query) pair.
// It is immutable once produced.
type Record struct {
	Query     Query              `json:"query"`
	Metrics   map[string]float64 `json:"metrics"`
	HitScores []HitJudgment      `json:"hit_scores"`
	Usage     map[string]int     `json:"usage"`
}

// Judge scores the relevance of search hits for a query. Implementations
// include the remote judging service client and a local keyword judge.
type Judge interface {
	EvaluateSearch(ctx context.Context, query Query, hits []Hit) (*Record, error)
}

// Stats holds summary statistics for one metric across queries.
type Stats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
}

// ApproachResult is the complete evaluation outcome for one approach.
// It is constructed fully before being published into the store.
type ApproachResult struct {
	Name            string           `json:"-"`
	Metrics         map[string]Stats `json:"metrics"`
	DetailedResults []Record         `json:"detailed_results"`
}

// MetricComparison compares all approaches on one metric.
type MetricComparison struct {
	// BestApproach is the approach with the highest mean. Ties resolve
	// to the approach evaluated first.
	BestApproach string `json:"best_approach"`

	// Values maps each approach to its mean for this metric.
	Values map[string]float64 `json:"values"`

	// GapPercent is the percentage difference between the best and
	// worst mean: (max-min)/max*100, 0 when max is 0.
	GapPercent float64 `json:"gap_percent"`

	// SignificantGap reports whether GapPercent exceeds the
	// significance threshold.
	SignificantGap bool `json:"significant_gap"`
}

// Comparison is the cross-approach comparison, recomputed on demand
// from the current store state.
type Comparison struct {
	Metrics map[string]MetricComparison `json:"metrics"`
}

// QueryBest identifies the winning approach for one metric on one query.
type QueryBest struct {
	Approach string  `json:"approach"`
	Value    float64 `json:"value"`
}
