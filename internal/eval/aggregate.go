package eval

import (
	"fmt"
	"math"
	"sort"

	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

// Aggregate reduces per-query records into summary statistics per
// metric. The metric key set is taken from the first record; a later
// record missing one of those keys is an error, as is an empty input.
func Aggregate(records []Record) (map[string]Stats, error) {
	if len(records) == 0 {
		return nil, errors.AggregationError("no successful evaluations to aggregate")
	}

	keys := make([]string, 0, len(records[0].Metrics))
	for key := range records[0].Metrics {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	aggregated := make(map[string]Stats, len(keys))
	for _, key := range keys {
		values := make([]float64, len(records))
		for i, rec := range records {
			v, ok := rec.Metrics[key]
			if !ok {
				return nil, errors.AggregationError(
					fmt.Sprintf("record %d is missing metric %q reported by the first record", i, key))
			}
			values[i] = v
		}
		aggregated[key] = computeStats(values)
	}

	return aggregated, nil
}

// computeStats calculates summary statistics for a non-empty value set.
// StdDev is the sample standard deviation (divisor n-1), 0 for a single
// value.
func computeStats(values []float64) Stats {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	stddev := 0.0
	if len(values) > 1 {
		var sqSum float64
		for _, v := range values {
			d := v - mean
			sqSum += d * d
		}
		stddev = math.Sqrt(sqSum / float64(len(values)-1))
	}

	return Stats{
		Mean:   mean,
		Median: median,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		StdDev: stddev,
	}
}
