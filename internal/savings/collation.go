package savings

import (
	"fmt"
	"log/slog"
	"time"
)

// CurrentPeriodRule is the Collation.ReferencePeriod value recorded when each
// period's saving rate uses that period's own consumption rule.
const CurrentPeriodRule = -1

type collationOptions struct {
	referencePeriod int
	logger          *slog.Logger
}

// CollationOption customises BuildCollation.
type CollationOption func(*collationOptions)

// WithReferencePeriod evaluates every period's market resources with the
// consumption rule of period k. The default is period 0, which treats the
// rule as stationary.
func WithReferencePeriod(k int) CollationOption {
	return func(o *collationOptions) {
		o.referencePeriod = k
	}
}

// WithCurrentPeriodRule evaluates period t's market resources with the
// consumption rule of period t.
func WithCurrentPeriodRule() CollationOption {
	return func(o *collationOptions) {
		o.referencePeriod = CurrentPeriodRule
	}
}

// WithLogger sets the logger used for progress and sentinel counts.
func WithLogger(logger *slog.Logger) CollationOption {
	return func(o *collationOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// BuildCollation derives, for every period t in 1..T, the log asset growth
// against t-1 and the saving rate at m[t], and collates them with the raw
// period arrays.
//
// It fails with ErrInsufficientHistory when the history has fewer than two
// periods, and with a validation error for malformed snapshots or a missing
// consumption rule. Degenerate agents never fail the build: they surface as
// non-finite entries in Growth or SavingRate.
func BuildCollation(history History, riskFree float64, rules PolicySet, opts ...CollationOption) (*Collation, error) {
	options := collationOptions{
		referencePeriod: 0,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.logger
	start := time.Now()

	if err := ValidateHistory(history); err != nil {
		return nil, fmt.Errorf("validate history: %w", err)
	}
	if err := ValidateRiskFree(riskFree); err != nil {
		return nil, err
	}
	if rules == nil {
		return nil, fmt.Errorf("build collation: no consumption rules supplied")
	}

	var fixedRule PolicyFunction
	if options.referencePeriod != CurrentPeriodRule {
		rule, err := rules.Rule(options.referencePeriod)
		if err != nil {
			return nil, fmt.Errorf("resolve reference rule: %w", err)
		}
		fixedRule = rule
	}

	logger.Debug("building collation",
		"periods", history.Periods(),
		"agents", history[0].Len(),
		"reference_period", options.referencePeriod,
		"risk_free", riskFree,
	)

	collation := &Collation{
		RiskFree:        riskFree,
		ReferencePeriod: options.referencePeriod,
		Agents:          history[0].Len(),
		Records:         make([]Record, 0, history.Periods()-1),
	}

	prevLevel := AssetLevel(history[0])
	nonFiniteGrowth, nonFiniteRate := 0, 0

	for t := 1; t < history.Periods(); t++ {
		curr := history[t]
		currLevel := AssetLevel(curr)

		growth, err := ComputeLogAssetGrowth(prevLevel, currLevel)
		if err != nil {
			return nil, fmt.Errorf("period %d growth: %w", t, err)
		}

		rule := fixedRule
		if rule == nil {
			rule, err = rules.Rule(t)
			if err != nil {
				return nil, fmt.Errorf("period %d rule: %w", t, err)
			}
		}
		rate := ComputeSavingRate(curr.MNrm, riskFree, rule)

		nonFiniteGrowth += CountNonFinite(growth)
		nonFiniteRate += CountNonFinite(rate)

		collation.Records = append(collation.Records, Record{
			Period:      t,
			ANrm:        curr.ANrm,
			CNrm:        curr.CNrm,
			TranShk:     curr.TranShk,
			PrevTranShk: history[t-1].TranShk,
			Growth:      growth,
			SavingRate:  rate,
		})

		prevLevel = currLevel
	}

	logger.Info("collation built",
		"records", len(collation.Records),
		"agents", collation.Agents,
		"nonfinite_growth", nonFiniteGrowth,
		"nonfinite_saving_rate", nonFiniteRate,
		"duration", time.Since(start),
	)

	return collation, nil
}

// NonFiniteCounts returns the number of non-finite growth and saving-rate
// entries across all records.
func (c *Collation) NonFiniteCounts() (growth, savingRate int) {
	for _, r := range c.Records {
		growth += CountNonFinite(r.Growth)
		savingRate += CountNonFinite(r.SavingRate)
	}
	return growth, savingRate
}
