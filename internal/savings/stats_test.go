package savings

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	t.Run("skips non-finite entries", func(t *testing.T) {
		s := Summarize([]float64{1, 2, 3, 4, math.NaN(), math.Inf(-1)})

		assert.Equal(t, 6, s.Count)
		assert.Equal(t, 4, s.Finite)
		assert.Equal(t, 2, s.NonFinite)
		assert.InDelta(t, 2.5, s.Mean, 1e-12)
		assert.InDelta(t, math.Sqrt(1.25), s.Std, 1e-12)
		assert.Equal(t, 1.0, s.Min)
		assert.Equal(t, 4.0, s.Max)
		assert.InDelta(t, 2.5, s.Median, 1e-12)
		assert.InDelta(t, 1.3, s.P10, 1e-12)
		assert.InDelta(t, 3.7, s.P90, 1e-12)
	})

	t.Run("single value", func(t *testing.T) {
		s := Summarize([]float64{7})
		assert.Equal(t, 7.0, s.Mean)
		assert.Equal(t, 7.0, s.P10)
		assert.Equal(t, 7.0, s.P90)
		assert.Equal(t, 0.0, s.Std)
	})

	t.Run("no finite values", func(t *testing.T) {
		s := Summarize([]float64{math.NaN(), math.Inf(1)})
		assert.Equal(t, 0, s.Finite)
		assert.True(t, math.IsNaN(s.Mean))
		assert.True(t, math.IsNaN(s.Median))

		data, err := json.Marshal(s)
		require.NoError(t, err)
		assert.JSONEq(t, `{"count":2,"finite":0,"nonFinite":2,"mean":null,"std":null,"min":null,"p10":null,"median":null,"p90":null,"max":null}`, string(data))
	})

	t.Run("input order is preserved", func(t *testing.T) {
		values := []float64{3, 1, 2}
		Summarize(values)
		assert.Equal(t, []float64{3, 1, 2}, values)
	})
}

func TestHistogram(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		bins    int
		edges   []float64
		counts  []int
		dropped int
	}{
		{
			name:   "last bin is closed",
			values: []float64{0, 1, 2, 3, 4},
			bins:   4,
			edges:  []float64{0, 1, 2, 3, 4},
			counts: []int{1, 1, 1, 2},
		},
		{
			name:    "non-finite entries are dropped",
			values:  []float64{0, math.NaN(), 10, math.Inf(1)},
			bins:    2,
			edges:   []float64{0, 5, 10},
			counts:  []int{1, 1},
			dropped: 2,
		},
		{
			name:   "constant input gets unit span",
			values: []float64{2, 2},
			bins:   2,
			edges:  []float64{1.5, 2, 2.5},
			counts: []int{0, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Histogram(tt.values, tt.bins)
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.edges, h.Edges, 1e-12)
			assert.Equal(t, tt.counts, h.Counts)
			assert.Equal(t, tt.dropped, h.Dropped)
		})
	}

	t.Run("counts add up", func(t *testing.T) {
		values := make([]float64, 1000)
		for i := range values {
			values[i] = math.Sin(float64(i))
		}
		h, err := Histogram(values, 17)
		require.NoError(t, err)
		total := 0
		for _, c := range h.Counts {
			total += c
		}
		assert.Equal(t, 1000, total)
	})

	t.Run("constant input beyond integer precision", func(t *testing.T) {
		h, err := Histogram([]float64{1e17, 1e17}, 10)
		require.NoError(t, err)
		assert.Less(t, h.Edges[0], 1e17)
		assert.Greater(t, h.Edges[10], 1e17)
		total := 0
		for _, c := range h.Counts {
			total += c
		}
		assert.Equal(t, 2, total)
	})

	t.Run("range wider than the largest float", func(t *testing.T) {
		h, err := Histogram([]float64{-1e308, 1e308}, 2)
		require.NoError(t, err)
		assert.Equal(t, []float64{-1e308, 0, 1e308}, h.Edges)
		assert.Equal(t, []int{1, 1}, h.Counts)
	})

	t.Run("constant input at the largest float", func(t *testing.T) {
		h, err := Histogram([]float64{math.MaxFloat64}, 3)
		require.NoError(t, err)
		assert.Equal(t, math.MaxFloat64, h.Edges[3])
		assert.Equal(t, 1, h.Counts[0]+h.Counts[1]+h.Counts[2])
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := Histogram([]float64{1, 2}, 0)
		assert.Error(t, err)
		_, err = Histogram([]float64{math.NaN()}, 3)
		assert.Error(t, err)
		_, err = Histogram(nil, 3)
		assert.Error(t, err)
	})
}
