package http

import (
	"context"

	"lifecyclecli/internal/savings"
	"lifecyclecli/internal/services"
)

// AnalysisServiceInterface is the part of services.AnalysisService the HTTP
// API needs.
type AnalysisServiceInterface interface {
	Analyze(ctx context.Context, history savings.History, riskFree float64, rules savings.PolicySet, opts services.AnalysisOptions) (*services.RunResult, error)
}
