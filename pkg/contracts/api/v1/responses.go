package api

import (
	"lifecyclecli/internal/savings"
)

// CollationResponse is the collation plus its derived summaries.
type CollationResponse struct {
	RunID string `json:"runId"`
	*savings.Report
}

// SeriesResponse carries one derived series and its summary.
type SeriesResponse struct {
	Values  savings.Series  `json:"values"`
	Summary savings.Summary `json:"summary"`
}
