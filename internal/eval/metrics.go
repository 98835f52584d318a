package eval

// Ranking metrics computed from an ordered relevance sequence, one
// indicator per hit in returned order. Indicators are graded or binary
// signals in [0,1]. All three functions are pure and total over any
// finite sequence, including the empty one.

// NDCG computes a simplified normalized discounted cumulative gain: the
// position-weighted relevance sum over the harmonic normalizer
// sum(1/(i+1)). This is deliberately not the textbook ideal-DCG
// normalization; the simplified ratio is kept for continuity with
// historical evaluation numbers.
func NDCG(relevances []float64) float64 {
	if len(relevances) == 0 {
		return 0
	}

	var dcg, norm float64
	for i, rel := range relevances {
		dcg += rel / float64(i+1)
		norm += 1 / float64(i+1)
	}

	return dcg / norm
}

// MAP computes mean average precision: the precision at each relevant
// position, averaged over the number of relevant items. Returns 0 when
// nothing is relevant.
func MAP(relevances []float64) float64 {
	relevant := 0
	sumPrecision := 0.0

	for i, rel := range relevances {
		if rel > 0 {
			relevant++
			sumPrecision += float64(relevant) / float64(i+1)
		}
	}

	if relevant == 0 {
		return 0
	}
	return sumPrecision / float64(relevant)
}

// MRR computes the reciprocal of the 1-based rank of the first relevant
// item, or 0 if none are relevant.
func MRR(relevances []float64) float64 {
	for i, rel := range relevances {
		if rel > 0 {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// BinaryRelevance converts hit judgments to a binary relevance sequence
// in returned-hit order.
func BinaryRelevance(judgments []HitJudgment) []float64 {
	relevances := make([]float64, len(judgments))
	for i, j := range judgments {
		if j.Relevant {
			relevances[i] = 1.0
		}
	}
	return relevances
}
