package savings

import (
	"fmt"
	"math"

	apperrors "lifecyclecli/internal/errors"
)

// ComputeLogAssetGrowth returns log(curr/prev) per agent.
//
// A non-positive prev or curr yields NaN or ±Inf in that position; nothing is
// dropped. Filter the result before feeding it to statistics that need finite
// input.
func ComputeLogAssetGrowth(prev, curr []float64) ([]float64, error) {
	if len(prev) != len(curr) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("asset level length mismatch: prev=%d curr=%d", len(prev), len(curr))).
			WithContext("prev_len", len(prev)).
			WithContext("curr_len", len(curr))
	}

	growth := make([]float64, len(curr))
	for i := range curr {
		growth[i] = math.Log(curr[i] / prev[i])
	}
	return growth, nil
}

// AssetLevel returns aNrm*pLvl for one snapshot.
func AssetLevel(s Snapshot) []float64 {
	level := make([]float64, len(s.ANrm))
	for i := range s.ANrm {
		level[i] = s.ANrm[i] * s.PLvl[i]
	}
	return level
}

// AssetLevels returns the asset level of every period in h. The history
// itself is left untouched.
func AssetLevels(h History) [][]float64 {
	levels := make([][]float64, len(h))
	for t, s := range h {
		levels[t] = AssetLevel(s)
	}
	return levels
}
