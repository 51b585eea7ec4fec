package exporter

import (
	"fmt"
	"log/slog"

	"lifecyclecli/internal/config"
	"lifecyclecli/internal/savings"
)

// CollationHeaders are the columns of the long-format collation CSV.
var CollationHeaders = []string{
	"period", "agent", "aNrm", "cNrm", "TranShk", "prevTranShk", "growth", "savingRate",
}

// PeriodSummaryHeaders are the columns of the per-period summary CSV.
var PeriodSummaryHeaders = []string{
	"period", "agents",
	"savingRate_mean", "savingRate_median", "savingRate_std", "savingRate_nonFinite",
	"growth_mean", "growth_median", "growth_std", "growth_nonFinite",
	"aNrm_mean", "cNrm_mean",
}

// CollationExporter writes collation tables to CSV and xlsx.
type CollationExporter struct {
	csv    *CSVWriter
	logger *slog.Logger
}

// NewCollationExporter creates an exporter writing relative paths under
// paths.OutputDir.
func NewCollationExporter(paths *config.Paths, logger *slog.Logger) *CollationExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CollationExporter{
		csv:    NewCSVWriter(paths, logger),
		logger: logger,
	}
}

// ExportCollationCSV streams one row per (period, agent) and returns the
// number of data rows written.
func (e *CollationExporter) ExportCollationCSV(c *savings.Collation, filePath string) (int, error) {
	if c == nil {
		return 0, fmt.Errorf("no collation to export")
	}

	sw, err := e.csv.CreateStreamWriter(filePath, CollationHeaders)
	if err != nil {
		return 0, err
	}

	for _, r := range c.Records {
		for i := 0; i < c.Agents; i++ {
			if err := sw.WriteRecord(collationRow(r, i)); err != nil {
				sw.Close()
				return sw.Rows(), fmt.Errorf("failed to write period %d agent %d: %w", r.Period, i, err)
			}
		}
	}
	if err := sw.Close(); err != nil {
		return sw.Rows(), fmt.Errorf("failed to close collation CSV: %w", err)
	}

	e.logger.Info("collation CSV exported",
		slog.String("file_path", filePath),
		slog.Int("periods", len(c.Records)),
		slog.Int("rows", sw.Rows()))
	return sw.Rows(), nil
}

// ExportPeriodSummaryCSV writes one summary row per collated period.
func (e *CollationExporter) ExportPeriodSummaryCSV(c *savings.Collation, filePath string) error {
	if c == nil {
		return fmt.Errorf("no collation to export")
	}

	summaries := c.PeriodSummaries()
	records := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		records = append(records, periodRow(s))
	}

	return e.csv.WriteCSV(filePath, WriteOptions{
		Headers:   PeriodSummaryHeaders,
		Records:   records,
		BOMPrefix: true,
	})
}

func collationRow(r savings.Record, i int) []string {
	return []string{
		formatInt(r.Period),
		formatInt(i),
		formatFloat(at(r.ANrm, i)),
		formatFloat(at(r.CNrm, i)),
		formatFloat(at(r.TranShk, i)),
		formatFloat(at(r.PrevTranShk, i)),
		formatFloat(at(r.Growth, i)),
		formatFloat(at(r.SavingRate, i)),
	}
}

func periodRow(s savings.PeriodSummary) []string {
	return []string{
		formatInt(s.Period),
		formatInt(s.SavingRate.Count),
		formatFloat(s.SavingRate.Mean),
		formatFloat(s.SavingRate.Median),
		formatFloat(s.SavingRate.Std),
		formatInt(s.SavingRate.NonFinite),
		formatFloat(s.Growth.Mean),
		formatFloat(s.Growth.Median),
		formatFloat(s.Growth.Std),
		formatInt(s.Growth.NonFinite),
		formatFloat(s.ANrm.Mean),
		formatFloat(s.CNrm.Mean),
	}
}
