package agenttype

import (
	"fmt"
	"math"
	"sort"

	apperrors "lifecyclecli/internal/errors"
)

// TabulatedRule is a consumption rule given as (m, c) knots, evaluated by
// piecewise-linear interpolation and linear extrapolation past either end.
type TabulatedRule struct {
	M []float64 `json:"m"`
	C []float64 `json:"c"`
}

// NewTabulatedRule sorts the knots by m and checks them.
func NewTabulatedRule(m, c []float64) (TabulatedRule, error) {
	if len(m) != len(c) {
		return TabulatedRule{}, apperrors.NewValidationError(
			fmt.Sprintf("knot length mismatch: %d m values, %d c values", len(m), len(c)))
	}
	if len(m) == 0 {
		return TabulatedRule{}, apperrors.NewValidationError("consumption rule has no knots")
	}

	idx := make([]int, len(m))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return m[idx[a]] < m[idx[b]] })

	rule := TabulatedRule{M: make([]float64, len(m)), C: make([]float64, len(c))}
	for i, j := range idx {
		if math.IsNaN(m[j]) || math.IsInf(m[j], 0) || math.IsNaN(c[j]) || math.IsInf(c[j], 0) {
			return TabulatedRule{}, apperrors.NewValidationError(fmt.Sprintf("knot %d is not finite", j))
		}
		if i > 0 && m[j] == rule.M[i-1] {
			return TabulatedRule{}, apperrors.NewValidationError(fmt.Sprintf("duplicate knot at m=%g", m[j]))
		}
		rule.M[i] = m[j]
		rule.C[i] = c[j]
	}
	return rule, nil
}

// Consumption evaluates the rule at m. NaN in, NaN out.
func (r TabulatedRule) Consumption(m float64) float64 {
	n := len(r.M)
	switch {
	case n == 0 || math.IsNaN(m):
		return math.NaN()
	case n == 1:
		return r.C[0]
	}

	// first knot >= m, clamped so there is always a segment to extend
	i := sort.SearchFloat64s(r.M, m)
	if i < len(r.M) && r.M[i] == m {
		return r.C[i]
	}
	if i == 0 {
		i = 1
	}
	if i >= n {
		i = n - 1
	}
	m0, m1 := r.M[i-1], r.M[i]
	c0, c1 := r.C[i-1], r.C[i]
	return c0 + (c1-c0)*(m-m0)/(m1-m0)
}
