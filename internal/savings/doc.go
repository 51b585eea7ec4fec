// Package savings derives saving rates and asset growth rates from a
// simulated life-cycle population.
//
// The input is a period-indexed History of population snapshots (normalized
// assets, permanent income level, market resources, consumption and the
// transitory shock) produced by an external solver/simulator, together with
// the solved consumption rules. The package never solves or simulates.
//
// # Derived series
//
//	assetLevel[t] = aNrm[t] * pLvl[t]
//	growth[t]     = log(assetLevel[t] / assetLevel[t-1])        t >= 1
//	income        = (R-1)(m-1) + 1
//	savingRate    = (income - c(m)) / income
//
// c is the consumption rule of a reference period chosen by the caller
// (WithReferencePeriod, default 0) or of the period itself
// (WithCurrentPeriodRule).
//
// # Non-finite values
//
// Agents with zero income or non-positive asset levels produce NaN or ±Inf.
// These are kept in place so that every output series stays aligned with the
// population; use Filter with FiniteOnly or ThresholdFilter before computing
// statistics, or Summarize, which counts and skips them.
//
// # Usage
//
//	collation, err := savings.BuildCollation(history, params.Rfree, solution,
//	    savings.WithReferencePeriod(0),
//	    savings.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	ratios := collation.GrowthRatios(savings.ThresholdFilter(savings.DefaultGrowthRatioFloor))
//	hist, err := savings.Histogram(ratios, 50)
package savings
