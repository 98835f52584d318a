package eval

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

// TestNDCG tests the simplified NDCG computation.
func TestNDCG(t *testing.T) {
	tests := []struct {
		name       string
		relevances []float64
		want       float64
	}{
		{
			name:       "empty sequence",
			relevances: nil,
			want:       0,
		},
		{
			name:       "single relevant hit",
			relevances: []float64{1.0},
			want:       1.0,
		},
		{
			name:       "single irrelevant hit",
			relevances: []float64{0.0},
			want:       0,
		},
		{
			name:       "all relevant",
			relevances: []float64{1.0, 1.0, 1.0},
			want:       1.0,
		},
		{
			// dcg = 1 + 0 + 1/3 = 4/3; norm = 1 + 1/2 + 1/3 = 11/6
			name:       "mixed relevance",
			relevances: []float64{1.0, 0.0, 1.0},
			want:       (4.0 / 3.0) / (11.0 / 6.0),
		},
		{
			// dcg = 0.5 + 0.25; norm = 1.5
			name:       "graded relevance",
			relevances: []float64{0.5, 0.5},
			want:       0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NDCG(tt.relevances)
			if !almostEqual(got, tt.want) {
				t.Errorf("NDCG(%v) = %v, want %v", tt.relevances, got, tt.want)
			}
		})
	}
}

// TestMAP tests mean average precision.
func TestMAP(t *testing.T) {
	tests := []struct {
		name       string
		relevances []float64
		want       float64
	}{
		{
			name:       "empty sequence",
			relevances: nil,
			want:       0,
		},
		{
			name:       "no relevant hits",
			relevances: []float64{0, 0, 0},
			want:       0,
		},
		{
			name:       "all relevant",
			relevances: []float64{1, 1, 1},
			want:       1.0,
		},
		{
			// precision at positions 1 and 3: (1/1 + 2/3) / 2
			name:       "relevant at positions 1 and 3",
			relevances: []float64{1, 0, 1},
			want:       (1.0 + 2.0/3.0) / 2.0,
		},
		{
			// precision at position 2: (1/2) / 1
			name:       "single relevant at position 2",
			relevances: []float64{0, 1},
			want:       0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MAP(tt.relevances)
			if !almostEqual(got, tt.want) {
				t.Errorf("MAP(%v) = %v, want %v", tt.relevances, got, tt.want)
			}
		})
	}
}

// TestMRR tests mean reciprocal rank.
func TestMRR(t *testing.T) {
	tests := []struct {
		name       string
		relevances []float64
		want       float64
	}{
		{name: "empty sequence", relevances: nil, want: 0},
		{name: "no relevant hits", relevances: []float64{0, 0}, want: 0},
		{name: "first hit relevant", relevances: []float64{1, 0, 1}, want: 1.0},
		{name: "third hit relevant", relevances: []float64{0, 0, 1}, want: 1.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MRR(tt.relevances)
			if !almostEqual(got, tt.want) {
				t.Errorf("MRR(%v) = %v, want %v", tt.relevances, got, tt.want)
			}
		})
	}
}

// TestBinaryRelevance tests judgment-to-relevance conversion.
func TestBinaryRelevance(t *testing.T) {
	judgments := []HitJudgment{
		{Index: 0, Relevant: true},
		{Index: 1, Relevant: false},
		{Index: 2, Relevant: true},
	}

	got := BinaryRelevance(judgments)
	want := []float64{1, 0, 1}

	if len(got) != len(want) {
		t.Fatalf("BinaryRelevance returned %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("BinaryRelevance[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
