package eval

import (
	"sort"

	apperrors "github.com/rankeval/rank-eval/internal/pkg/errors"
)

// SignificantGapPercent is the threshold above which a performance gap
// between best and worst approach is flagged as significant.
const SignificantGapPercent = 10.0

// Compare determines, for each metric, the best approach by mean value
// across all approaches in the store. Higher is always better. The gap
// between best and worst mean is computed alongside so renderers can
// rely on it being precomputed.
//
// Calling Compare on an empty store is an expected idle state and
// returns a comparison error rather than panicking.
func Compare(store *Store) (*Comparison, error) {
	names := store.Names()
	if len(names) == 0 {
		return nil, apperrors.ComparisonError("no approaches have been evaluated")
	}

	first, _ := store.Get(names[0])
	metricNames := make([]string, 0, len(first.Metrics))
	for name := range first.Metrics {
		metricNames = append(metricNames, name)
	}
	sort.Strings(metricNames)

	comparison := &Comparison{
		Metrics: make(map[string]MetricComparison, len(metricNames)),
	}

	for _, metric := range metricNames {
		mc := MetricComparison{
			Values: make(map[string]float64, len(names)),
		}

		var best, worst float64
		for i, name := range names {
			result, ok := store.Get(name)
			if !ok {
				continue
			}
			mean := result.Metrics[metric].Mean
			mc.Values[name] = mean

			if i == 0 {
				best, worst = mean, mean
				mc.BestApproach = name
				continue
			}
			// Strict comparison keeps the first maximum on ties.
			if mean > best {
				best = mean
				mc.BestApproach = name
			}
			if mean < worst {
				worst = mean
			}
		}

		if best > 0 {
			mc.GapPercent = (best - worst) / best * 100
		}
		mc.SignificantGap = mc.GapPercent > SignificantGapPercent

		comparison.Metrics[metric] = mc
	}

	return comparison, nil
}

// BestPerQuery groups all approaches' records by exact query text and
// selects, per query and per metric, the approach with the highest raw
// metric value for that query. Approaches without a record for a query
// simply do not contribute to that query's comparison. Ties resolve to
// the approach evaluated first.
//
// The returned map is keyed by query text, then by metric name.
func BestPerQuery(store *Store) map[string]map[string]QueryBest {
	best := make(map[string]map[string]QueryBest)

	for _, name := range store.Names() {
		result, ok := store.Get(name)
		if !ok {
			continue
		}
		for _, rec := range result.DetailedResults {
			byMetric, seen := best[rec.Query.Text]
			if !seen {
				byMetric = make(map[string]QueryBest)
				best[rec.Query.Text] = byMetric
			}
			for metric, value := range rec.Metrics {
				current, exists := byMetric[metric]
				if !exists || value > current.Value {
					byMetric[metric] = QueryBest{Approach: name, Value: value}
				}
			}
		}
	}

	return best
}
