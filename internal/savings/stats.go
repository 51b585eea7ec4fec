package savings

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	apperrors "lifecyclecli/internal/errors"
)

// Summary describes a series over its finite entries. Non-finite entries are
// only counted.
type Summary struct {
	Count     int     `json:"count"`
	Finite    int     `json:"finite"`
	NonFinite int     `json:"nonFinite"`
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	Min       float64 `json:"min"`
	P10       float64 `json:"p10"`
	Median    float64 `json:"median"`
	P90       float64 `json:"p90"`
	Max       float64 `json:"max"`
}

// Summarize computes a Summary. With no finite entries every statistic is NaN.
func Summarize(values []float64) Summary {
	finite := Filter(values, FiniteOnly())
	s := Summary{
		Count:     len(values),
		Finite:    len(finite),
		NonFinite: len(values) - len(finite),
	}
	if len(finite) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.P10, s.Median, s.P90, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	data := stats.Float64Data(finite)
	// errors below only signal empty input, ruled out above
	s.Mean, _ = data.Mean()
	s.Std, _ = data.StandardDeviation()
	s.Min, _ = data.Min()
	s.Max, _ = data.Max()
	s.Median, _ = data.Median()
	s.P10 = quantile(finite, 0.10)
	s.P90 = quantile(finite, 0.90)
	return s
}

// MarshalJSON writes statistics that are undefined (no finite entries) as null
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count     int      `json:"count"`
		Finite    int      `json:"finite"`
		NonFinite int      `json:"nonFinite"`
		Mean      *float64 `json:"mean"`
		Std       *float64 `json:"std"`
		Min       *float64 `json:"min"`
		P10       *float64 `json:"p10"`
		Median    *float64 `json:"median"`
		P90       *float64 `json:"p90"`
		Max       *float64 `json:"max"`
	}{
		Count:     s.Count,
		Finite:    s.Finite,
		NonFinite: s.NonFinite,
		Mean:      finiteOrNil(s.Mean),
		Std:       finiteOrNil(s.Std),
		Min:       finiteOrNil(s.Min),
		P10:       finiteOrNil(s.P10),
		Median:    finiteOrNil(s.Median),
		P90:       finiteOrNil(s.P90),
		Max:       finiteOrNil(s.Max),
	})
}

func finiteOrNil(v float64) *float64 {
	if !IsFinite(v) {
		return nil
	}
	return &v
}

// quantile uses linear interpolation between closest ranks.
func quantile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// HistogramResult holds equal-width bin counts. Edges has len(Counts)+1
// entries; the last bin is closed on the right.
type HistogramResult struct {
	Edges   []float64 `json:"edges"`
	Counts  []int     `json:"counts"`
	Dropped int       `json:"dropped"` // non-finite entries left out
}

// Histogram bins the finite entries of values into bins equal-width buckets
// spanning their range.
func Histogram(values []float64, bins int) (HistogramResult, error) {
	if bins <= 0 {
		return HistogramResult{}, apperrors.NewValidationError(fmt.Sprintf("histogram needs at least one bin, got %d", bins))
	}
	finite := Filter(values, FiniteOnly())
	if len(finite) == 0 {
		return HistogramResult{}, apperrors.NewValidationError("histogram has no finite values")
	}

	lo, _ := stats.Min(finite)
	hi, _ := stats.Max(finite)
	if lo == hi {
		pad := math.Max(0.5, math.Abs(lo)*1e-9)
		lo = math.Max(lo-pad, -math.MaxFloat64)
		hi = math.Min(hi+pad, math.MaxFloat64)
	}

	res := HistogramResult{
		Edges:   make([]float64, bins+1),
		Counts:  make([]int, bins),
		Dropped: len(values) - len(finite),
	}
	// edges and positions interpolate between lo and hi so that a range wider
	// than MaxFloat64 never overflows
	for i := range res.Edges {
		f := float64(i) / float64(bins)
		res.Edges[i] = lo*(1-f) + hi*f
	}
	res.Edges[0], res.Edges[bins] = lo, hi

	half := hi/2 - lo/2
	for _, v := range finite {
		pos := (v/2 - lo/2) / half * float64(bins)
		idx := bins - 1
		if !math.IsNaN(pos) && pos < float64(bins-1) {
			idx = int(math.Max(pos, 0))
		}
		res.Counts[idx]++
	}
	return res, nil
}

// PeriodSummary summarises one collation record.
type PeriodSummary struct {
	Period     int     `json:"period"`
	SavingRate Summary `json:"savingRate"`
	Growth     Summary `json:"growth"`
	ANrm       Summary `json:"aNrm"`
	CNrm       Summary `json:"cNrm"`
}

// PeriodSummaries returns one PeriodSummary per record, in period order.
func (c *Collation) PeriodSummaries() []PeriodSummary {
	out := make([]PeriodSummary, len(c.Records))
	for i, r := range c.Records {
		out[i] = PeriodSummary{
			Period:     r.Period,
			SavingRate: Summarize(r.SavingRate),
			Growth:     Summarize(r.Growth),
			ANrm:       Summarize(r.ANrm),
			CNrm:       Summarize(r.CNrm),
		}
	}
	return out
}
