package savings

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Report bundles a collation with the derived summaries written to disk.
type Report struct {
	GeneratedAt      time.Time        `json:"generatedAt"`
	Collation        *Collation       `json:"collation"`
	Periods          []PeriodSummary  `json:"periods"`
	SavingRate       Summary          `json:"savingRate"`
	GrowthRatio      Summary          `json:"growthRatio"`
	GrowthRatioFloor float64          `json:"growthRatioFloor"`
	GrowthHistogram  *HistogramResult `json:"growthHistogram,omitempty"`
	SavingHistogram  *HistogramResult `json:"savingHistogram,omitempty"`
}

// NewReport summarises c. Growth ratios below floor are left out of the
// growth summary and histogram; bins <= 0 skips the histograms.
func NewReport(c *Collation, floor float64, bins int) (*Report, error) {
	if c == nil || len(c.Records) == 0 {
		return nil, fmt.Errorf("no collation records to report")
	}

	ratios := c.GrowthRatios(ThresholdFilter(floor))
	rates := c.SavingRates()

	report := &Report{
		GeneratedAt:      time.Now().UTC(),
		Collation:        c,
		Periods:          c.PeriodSummaries(),
		SavingRate:       Summarize(rates),
		GrowthRatio:      Summarize(ratios),
		GrowthRatioFloor: floor,
	}

	if bins > 0 {
		if h, err := Histogram(ratios, bins); err == nil {
			report.GrowthHistogram = &h
		}
		if h, err := Histogram(rates, bins); err == nil {
			report.SavingHistogram = &h
		}
	}
	return report, nil
}

// SaveToJSON writes the report as indented JSON. Non-finite values are
// written as null.
func SaveToJSON(report *Report, outputPath string) error {
	if report == nil {
		return fmt.Errorf("no report to save")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// SaveSummaryReport writes a plain-text summary of the report.
func SaveSummaryReport(report *Report, outputPath string) error {
	if report == nil {
		return fmt.Errorf("no report to save")
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create summary file: %w", err)
	}
	defer file.Close()

	return WriteSummary(file, report)
}

// WriteSummary renders the text summary to w.
func WriteSummary(w io.Writer, report *Report) error {
	c := report.Collation
	reference := fmt.Sprintf("period %d", c.ReferencePeriod)
	if c.ReferencePeriod == CurrentPeriodRule {
		reference = "current period"
	}
	growthNaN, rateNaN := c.NonFiniteCounts()

	lines := []string{
		"Life-Cycle Saving Analysis - Summary Report",
		"===========================================",
		"",
		fmt.Sprintf("Generated: %s", report.GeneratedAt.Format("2006-01-02 15:04:05")),
		"",
		"DATASET OVERVIEW",
		"----------------",
		fmt.Sprintf("Periods collated: %d", len(c.Records)),
		fmt.Sprintf("Agents: %d", c.Agents),
		fmt.Sprintf("Risk-free return: %.4f", c.RiskFree),
		fmt.Sprintf("Consumption rule: %s", reference),
		fmt.Sprintf("Non-finite growth entries: %d", growthNaN),
		fmt.Sprintf("Non-finite saving-rate entries: %d", rateNaN),
		"",
		"SAVING RATE",
		"-----------",
		formatSummary(report.SavingRate),
		"",
		fmt.Sprintf("ASSET GROWTH FACTOR (>= %.2f)", report.GrowthRatioFloor),
		"-----------------------------",
		formatSummary(report.GrowthRatio),
		"",
		"PER PERIOD",
		"----------",
		fmt.Sprintf("%6s %12s %12s %12s %12s", "Period", "SavingMean", "SavingMed", "GrowthMean", "MeanANrm"),
	}
	for _, p := range report.Periods {
		lines = append(lines, fmt.Sprintf("%6d %12.4f %12.4f %12.4f %12.4f",
			p.Period, p.SavingRate.Mean, p.SavingRate.Median, p.Growth.Mean, p.ANrm.Mean))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return nil
}

func formatSummary(s Summary) string {
	return fmt.Sprintf("N=%d (non-finite %d)  mean=%.4f  std=%.4f  min=%.4f  p10=%.4f  median=%.4f  p90=%.4f  max=%.4f",
		s.Finite, s.NonFinite, s.Mean, s.Std, s.Min, s.P10, s.Median, s.P90, s.Max)
}
