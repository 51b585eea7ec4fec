package savings

import (
	"errors"
	"fmt"
	"math"

	apperrors "lifecyclecli/internal/errors"
)

// MinHistoryPeriods is the shortest history BuildCollation accepts.
const MinHistoryPeriods = 2

// ErrInsufficientHistory is wrapped by every error BuildCollation returns for
// a history shorter than MinHistoryPeriods.
var ErrInsufficientHistory = errors.New("insufficient history")

// ValidateSnapshot checks that every tracked series is present and that all
// share the population length.
func ValidateSnapshot(s Snapshot) error {
	n := len(s.ANrm)
	if n == 0 {
		return apperrors.NewValidationError("snapshot has no agents")
	}

	series := []struct {
		name   string
		values Series
	}{
		{VarPLvl, s.PLvl},
		{VarMNrm, s.MNrm},
		{VarCNrm, s.CNrm},
		{VarTranShk, s.TranShk},
	}
	for _, sr := range series {
		if len(sr.values) != n {
			return apperrors.NewValidationError(
				fmt.Sprintf("%s has %d entries, %s has %d", sr.name, len(sr.values), VarANrm, n)).
				WithContext("variable", sr.name)
		}
	}
	return nil
}

// ValidateHistory checks the history length and that every snapshot is well
// formed and covers the same population.
func ValidateHistory(h History) error {
	if len(h) < MinHistoryPeriods {
		return apperrors.NewInsufficientHistoryError(
			fmt.Sprintf("need at least %d periods of history, got %d", MinHistoryPeriods, len(h)),
			ErrInsufficientHistory).
			WithContext("periods", len(h))
	}

	agents := h[0].Len()
	for t, s := range h {
		if err := ValidateSnapshot(s); err != nil {
			return fmt.Errorf("period %d: %w", t, err)
		}
		if s.Len() != agents {
			return apperrors.NewValidationError(
				fmt.Sprintf("period %d has %d agents, period 0 has %d", t, s.Len(), agents)).
				WithContext("period", t)
		}
	}
	return nil
}

// ValidateRiskFree rejects a return factor that is not a positive finite number.
func ValidateRiskFree(riskFree float64) error {
	if math.IsNaN(riskFree) || math.IsInf(riskFree, 0) || riskFree <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("risk-free return must be positive and finite, got %v", riskFree))
	}
	return nil
}

// IsFinite reports whether v is neither NaN nor ±Inf
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CountNonFinite returns the number of NaN or ±Inf entries in values
func CountNonFinite(values []float64) int {
	n := 0
	for _, v := range values {
		if !IsFinite(v) {
			n++
		}
	}
	return n
}
