package agenttype

import (
	"context"

	"lifecyclecli/internal/savings"
)

// Solver produces the consumption rules of a consumer type.
type Solver interface {
	Solve(ctx context.Context, params Params) (*Solution, error)
}

// Simulator draws a population history from a solved consumer type.
// vars names the tracked variables to record; horizon is the number of
// simulated periods.
type Simulator interface {
	Simulate(ctx context.Context, solution *Solution, vars []string, horizon int) (savings.History, error)
}

// Solution is a solved consumer type: the parameters it was solved with and
// one consumption rule per cycle period.
type Solution struct {
	Params Params
	Rules  savings.Rules
}

// Rule returns the consumption rule of a period.
func (s *Solution) Rule(period int) (savings.PolicyFunction, error) {
	return s.Rules.Rule(period)
}

// Len returns the number of consumption rules.
func (s *Solution) Len() int {
	return len(s.Rules)
}

var _ savings.PolicySet = (*Solution)(nil)
