// Package api contains the request and response bodies of the v1 HTTP API.
package api

import (
	"lifecyclecli/internal/agenttype"
	"lifecyclecli/internal/savings"
)

// PolicyKnots is a consumption rule given as (m, c) pairs.
type PolicyKnots struct {
	M []float64 `json:"m" validate:"required,min=1"`
	C []float64 `json:"c" validate:"required,min=1"`
}

// Rule converts the knots into an evaluable consumption rule.
func (k PolicyKnots) Rule() (agenttype.TabulatedRule, error) {
	return agenttype.NewTabulatedRule(k.M, k.C)
}

// CollationRequest asks for the full collation of a simulated history.
// Null entries in the history decode as NaN.
type CollationRequest struct {
	RiskFree float64         `json:"riskFree" validate:"gt=0"`
	History  savings.History `json:"history" validate:"required"`
	// Policies holds one rule per period; a single entry is a stationary rule.
	Policies             []PolicyKnots `json:"policies" validate:"required,min=1,dive"`
	ReferencePeriod      *int          `json:"referencePeriod,omitempty" validate:"omitempty,gte=0"`
	UseCurrentPeriodRule *bool         `json:"useCurrentPeriodRule,omitempty"`
	GrowthRatioFloor     *float64      `json:"growthRatioFloor,omitempty" validate:"omitempty,gte=0"`
	HistogramBins        *int          `json:"histogramBins,omitempty" validate:"omitempty,gte=0,lte=1000"`
}

// SavingRateRequest evaluates the saving rate of one population.
type SavingRateRequest struct {
	RiskFree float64        `json:"riskFree" validate:"gt=0"`
	MNrm     savings.Series `json:"mNrm" validate:"required"`
	Policy   PolicyKnots    `json:"policy"`
}

// GrowthRequest computes log asset growth between two asset-level vectors.
type GrowthRequest struct {
	Prev savings.Series `json:"prev" validate:"required"`
	Curr savings.Series `json:"curr" validate:"required"`
}
