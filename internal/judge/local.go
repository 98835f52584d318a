package judge

import (
	"context"
	"strconv"
	"strings"

	"github.com/rankeval/rank-eval/internal/eval"
)

// Local is an offline judge that grades hits by keyword overlap with
// the query. It checks every string-valued field of a hit, not just a
// named text field, so callers can attach arbitrary metadata.
//
// A matching hit scores 4, a non-matching one 2; relevant is derived
// from the score (relevant == score >= 3).
type Local struct{}

// NewLocal creates a local judge.
func NewLocal() *Local {
	return &Local{}
}

const localJustification = "keyword overlap between query and hit fields"

// Usage counters reported by the local judge. Fixed values: no tokens
// are actually consumed.
const (
	localInputTokens  = 1000
	localOutputTokens = 500
)

// EvaluateSearch grades the hits and computes ranking metrics from the
// resulting binary relevance sequence.
func (l *Local) EvaluateSearch(ctx context.Context, query eval.Query, hits []eval.Hit) (*eval.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := strings.Fields(strings.ToLower(query.Text))

	hitScores := make([]eval.HitJudgment, 0, len(hits))
	for i, hit := range hits {
		relevant := anyFieldMatches(hit, words)

		score := 2
		if relevant {
			score = 4
		}

		hitScores = append(hitScores, eval.HitJudgment{
			Index:         i,
			HitID:         localHitID(hit, i),
			EvalScore:     score,
			Relevant:      score >= 3,
			EvalText:      stringField(hit, "text"),
			Fields:        hit,
			Justification: localJustification,
		})
	}

	relevances := eval.BinaryRelevance(hitScores)

	return &eval.Record{
		Query: query,
		Metrics: map[string]float64{
			"ndcg": eval.NDCG(relevances),
			"map":  eval.MAP(relevances),
			"mrr":  eval.MRR(relevances),
		},
		HitScores: hitScores,
		Usage: map[string]int{
			"evaluation_input_tokens":  localInputTokens,
			"evaluation_output_tokens": localOutputTokens,
		},
	}, nil
}

// anyFieldMatches reports whether any query word occurs in any
// string-valued field of the hit.
func anyFieldMatches(hit eval.Hit, words []string) bool {
	for _, value := range hit {
		text, ok := value.(string)
		if !ok {
			continue
		}
		lower := strings.ToLower(text)
		for _, word := range words {
			if strings.Contains(lower, word) {
				return true
			}
		}
	}
	return false
}

func localHitID(hit eval.Hit, index int) string {
	if id := stringField(hit, "id"); id != "" {
		return id
	}
	return "hit-" + strconv.Itoa(index)
}
