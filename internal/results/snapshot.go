// Package results provides the serializable form of evaluation results
// and its persistence backends. The snapshot field names and nesting
// are a stable contract other tooling depends on.
package results

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/rankeval/rank-eval/internal/eval"
	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

// Snapshot is the exported form of an evaluation store, keyed by
// approach name.
type Snapshot map[string]ApproachSnapshot

// ApproachSnapshot is one approach's exported results.
type ApproachSnapshot struct {
	Metrics         map[string]eval.Stats `json:"metrics"`
	DetailedResults []RecordSnapshot      `json:"detailed_results"`
}

// RecordSnapshot is one query's exported evaluation record.
type RecordSnapshot struct {
	Query     string             `json:"query"`
	QueryID   string             `json:"query_id,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
	Usage     map[string]int     `json:"usage"`
	HitScores []HitSnapshot      `json:"hit_scores"`
}

// HitSnapshot is one hit judgment in the exported form.
type HitSnapshot struct {
	Index         int    `json:"index"`
	HitID         string `json:"hit_id"`
	EvalScore     int    `json:"eval_score"`
	Relevant      bool   `json:"relevant"`
	Justification string `json:"justification,omitempty"`
}

// FromStore builds a snapshot of every approach in the store.
func FromStore(store *eval.Store) Snapshot {
	snapshot := make(Snapshot, store.Len())

	for _, name := range store.Names() {
		result, ok := store.Get(name)
		if !ok {
			continue
		}

		detailed := make([]RecordSnapshot, 0, len(result.DetailedResults))
		for _, rec := range result.DetailedResults {
			hits := make([]HitSnapshot, 0, len(rec.HitScores))
			for _, hs := range rec.HitScores {
				hits = append(hits, HitSnapshot{
					Index:         hs.Index,
					HitID:         hs.HitID,
					EvalScore:     hs.EvalScore,
					Relevant:      hs.Relevant,
					Justification: hs.Justification,
				})
			}
			detailed = append(detailed, RecordSnapshot{
				Query:     rec.Query.Text,
				QueryID:   rec.Query.ID,
				Metrics:   rec.Metrics,
				Usage:     rec.Usage,
				HitScores: hits,
			})
		}

		snapshot[name] = ApproachSnapshot{
			Metrics:         result.Metrics,
			DetailedResults: detailed,
		}
	}

	return snapshot
}

// ToStore rebuilds an evaluation store from a snapshot. Approach
// insertion order is not preserved by the snapshot format, so names
// are inserted alphabetically for determinism.
func ToStore(snapshot Snapshot) *eval.Store {
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	store := eval.NewStore()
	for _, name := range names {
		approach := snapshot[name]

		detailed := make([]eval.Record, 0, len(approach.DetailedResults))
		for _, rec := range approach.DetailedResults {
			hits := make([]eval.HitJudgment, 0, len(rec.HitScores))
			for _, hs := range rec.HitScores {
				hits = append(hits, eval.HitJudgment{
					Index:         hs.Index,
					HitID:         hs.HitID,
					EvalScore:     hs.EvalScore,
					Relevant:      hs.Relevant,
					Justification: hs.Justification,
				})
			}
			detailed = append(detailed, eval.Record{
				Query:     eval.Query{Text: rec.Query, ID: rec.QueryID},
				Metrics:   rec.Metrics,
				Usage:     rec.Usage,
				HitScores: hits,
			})
		}

		store.Put(name, &eval.ApproachResult{
			Name:            name,
			Metrics:         approach.Metrics,
			DetailedResults: detailed,
		})
	}

	return store
}

// SaveFile writes a snapshot to a JSON file.
func SaveFile(path string, snapshot Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.InternalError("marshaling snapshot", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.InternalError("writing snapshot file", err)
	}
	return nil
}

// LoadFile reads a snapshot from a JSON file.
func LoadFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeNotFound, "reading snapshot file", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "parsing snapshot file", err)
	}

	return snapshot, nil
}
