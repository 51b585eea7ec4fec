package savings

import "math"

// DefaultGrowthRatioFloor is the lower bound applied to asset growth factors
// before histogramming them. Ratios below it come from agents whose prior
// assets were close to zero.
const DefaultGrowthRatioFloor = 0.2

// Predicate decides whether a value is kept.
type Predicate func(v float64) bool

// FiniteOnly keeps values that are neither NaN nor ±Inf.
func FiniteOnly() Predicate {
	return IsFinite
}

// ThresholdFilter keeps finite values at or above min.
func ThresholdFilter(min float64) Predicate {
	return func(v float64) bool {
		return IsFinite(v) && v >= min
	}
}

// Filter returns the values for which every predicate holds. The input is not
// modified.
func Filter(values []float64, preds ...Predicate) []float64 {
	out := make([]float64, 0, len(values))
next:
	for _, v := range values {
		for _, p := range preds {
			if !p(v) {
				continue next
			}
		}
		out = append(out, v)
	}
	return out
}

// GrowthRatios returns exp(growth), the asset growth factor, for every agent
// and period in the collation, keeping only values accepted by preds.
func (c *Collation) GrowthRatios(preds ...Predicate) []float64 {
	var out []float64
	for _, r := range c.Records {
		ratios := make([]float64, len(r.Growth))
		for i, g := range r.Growth {
			ratios[i] = math.Exp(g)
		}
		out = append(out, Filter(ratios, preds...)...)
	}
	return out
}

// SavingRates returns all saving rates in the collation accepted by preds.
func (c *Collation) SavingRates(preds ...Predicate) []float64 {
	var out []float64
	for _, r := range c.Records {
		out = append(out, Filter(r.SavingRate, preds...)...)
	}
	return out
}
