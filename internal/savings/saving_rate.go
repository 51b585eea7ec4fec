package savings

// Income returns normalized income (R-1)(m-1)+1 for normalized market
// resources m under gross risk-free return R.
func Income(m, riskFree float64) float64 {
	return (riskFree-1)*(m-1) + 1
}

// ComputeSavingRate returns, per agent, the share of income that is not
// consumed when consumption follows policy:
//
//	income = (R-1)(m-1) + 1
//	saving = income - policy(m)
//	rate   = saving / income
//
// An agent with zero income gets a non-finite rate: NaN when its saving is
// also zero, ±Inf otherwise. The caller chooses which period's rule to pass;
// this function never picks one.
func ComputeSavingRate(m []float64, riskFree float64, policy PolicyFunction) []float64 {
	rates := ComputeSaving(m, riskFree, policy)
	for i, mi := range m {
		rates[i] /= Income(mi, riskFree)
	}
	return rates
}

// ComputeSaving returns the unconsumed income per agent, the numerator of
// ComputeSavingRate.
func ComputeSaving(m []float64, riskFree float64, policy PolicyFunction) []float64 {
	saving := make([]float64, len(m))
	for i, mi := range m {
		saving[i] = Income(mi, riskFree) - policy.Consumption(mi)
	}
	return saving
}
