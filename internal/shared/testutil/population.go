package testutil

import (
	"lifecyclecli/internal/savings"
)

// LinearRule is a consumption rule c(m) = Slope*m + Intercept.
type LinearRule struct {
	Slope     float64
	Intercept float64
}

// Consumption implements savings.PolicyFunction
func (r LinearRule) Consumption(m float64) float64 {
	return r.Slope*m + r.Intercept
}

// StationaryRules returns a single-rule PolicySet with c(m) = 0.5m + 0.4.
func StationaryRules() savings.Rules {
	return savings.Rules{LinearRule{Slope: 0.5, Intercept: 0.4}}
}

// DeterministicHistory builds a history of the given size whose values are
// simple functions of (period, agent). Every agent has strictly positive
// assets and income, so all derived series are finite.
func DeterministicHistory(periods, agents int) savings.History {
	h := make(savings.History, periods)
	for t := 0; t < periods; t++ {
		s := savings.Snapshot{
			ANrm:    make(savings.Series, agents),
			PLvl:    make(savings.Series, agents),
			MNrm:    make(savings.Series, agents),
			CNrm:    make(savings.Series, agents),
			TranShk: make(savings.Series, agents),
		}
		for i := 0; i < agents; i++ {
			s.ANrm[i] = 1 + 0.1*float64(i) + 0.05*float64(t)
			s.PLvl[i] = 1 + 0.01*float64(t)
			s.MNrm[i] = s.ANrm[i] + 1
			s.CNrm[i] = 0.5*s.MNrm[i] + 0.4
			s.TranShk[i] = 0.9 + 0.05*float64((i+t)%5)
		}
		h[t] = s
	}
	return h
}

// DegenerateHistory returns a two-period history of three agents where
// agent 1 starts with zero assets and agent 2 ends with zero assets.
func DegenerateHistory() savings.History {
	return savings.History{
		{
			ANrm:    savings.Series{1, 0, 2},
			PLvl:    savings.Series{1, 1, 1},
			MNrm:    savings.Series{2, 1, 3},
			CNrm:    savings.Series{1.4, 0.9, 1.9},
			TranShk: savings.Series{1, 1, 1},
		},
		{
			ANrm:    savings.Series{2, 1, 0},
			PLvl:    savings.Series{1, 1, 1},
			MNrm:    savings.Series{3, 2, 1},
			CNrm:    savings.Series{1.9, 1.4, 0.9},
			TranShk: savings.Series{0.9, 1.1, 1},
		},
	}
}
