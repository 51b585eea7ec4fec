package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	apperrors "lifecyclecli/internal/errors"
	"lifecyclecli/internal/savings"
)

// Sheets of the report workbook, in tab order.
const (
	SheetOverview  = "overview"
	SheetPeriods   = "periods"
	SheetCollation = "collation"
)

// sheetRowLimit is the number of rows one worksheet holds, header included.
var sheetRowLimit = excelize.TotalRows

// CollationSheetName returns the name of the n-th (0-based) collation sheet.
// A collation longer than one worksheet continues on collation_2,
// collation_3 and so on, each with its own header row.
func CollationSheetName(n int) string {
	if n == 0 {
		return SheetCollation
	}
	return fmt.Sprintf("%s_%d", SheetCollation, n+1)
}

// ExportWorkbook writes report as an xlsx with a scalar overview, per-period
// summaries and the long-format collation.
func (e *CollationExporter) ExportWorkbook(report *savings.Report, filePath string) error {
	if report == nil || report.Collation == nil {
		return apperrors.NewValidationError("no report to export")
	}
	fullPath := e.csv.resolvePath(filePath)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetOverview); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetPeriods); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetPeriods, err)
	}

	if err := writeOverview(f, report); err != nil {
		return err
	}
	if err := writePeriods(f, report.Periods); err != nil {
		return err
	}
	sheets, err := writeCollation(f, report.Collation)
	if err != nil {
		return err
	}
	if sheets > 1 {
		e.logger.Warn("collation split across sheets",
			slog.Int("sheets", sheets),
			slog.Int("rows_per_sheet", sheetRowLimit-1))
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return apperrors.NewStorageError("create workbook directory", err)
	}
	if err := f.SaveAs(fullPath); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("save workbook %s", fullPath), err)
	}

	e.logger.Info("collation workbook exported",
		slog.String("full_path", fullPath),
		slog.Int("periods", len(report.Periods)),
		slog.Int("collation_sheets", sheets))
	return nil
}

func writeOverview(f *excelize.File, report *savings.Report) error {
	c := report.Collation
	rows := [][]interface{}{
		{"field", "value"},
		{"generatedAt", report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")},
		{"riskFree", c.RiskFree},
		{"referencePeriod", c.ReferencePeriod},
		{"agents", c.Agents},
		{"periods", len(c.Records)},
		{"growthRatioFloor", report.GrowthRatioFloor},
	}
	rows = append(rows, summaryRows("savingRate", report.SavingRate)...)
	rows = append(rows, summaryRows("growthRatio", report.GrowthRatio)...)

	sw, err := f.NewStreamWriter(SheetOverview)
	if err != nil {
		return fmt.Errorf("stream %s: %w", SheetOverview, err)
	}
	if err := sw.SetColWidth(1, 1, 24); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func summaryRows(prefix string, s savings.Summary) [][]interface{} {
	return [][]interface{}{
		{prefix + ".count", s.Count},
		{prefix + ".finite", s.Finite},
		{prefix + ".mean", cellValue(s.Mean)},
		{prefix + ".std", cellValue(s.Std)},
		{prefix + ".min", cellValue(s.Min)},
		{prefix + ".p10", cellValue(s.P10)},
		{prefix + ".median", cellValue(s.Median)},
		{prefix + ".p90", cellValue(s.P90)},
		{prefix + ".max", cellValue(s.Max)},
	}
}

func writePeriods(f *excelize.File, periods []savings.PeriodSummary) error {
	sw, err := f.NewStreamWriter(SheetPeriods)
	if err != nil {
		return fmt.Errorf("stream %s: %w", SheetPeriods, err)
	}
	if err := sw.SetRow("A1", stringsToCells(PeriodSummaryHeaders)); err != nil {
		return err
	}
	for i, s := range periods {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			s.Period,
			s.SavingRate.Count,
			cellValue(s.SavingRate.Mean),
			cellValue(s.SavingRate.Median),
			cellValue(s.SavingRate.Std),
			s.SavingRate.NonFinite,
			cellValue(s.Growth.Mean),
			cellValue(s.Growth.Median),
			cellValue(s.Growth.Std),
			s.Growth.NonFinite,
			cellValue(s.ANrm.Mean),
			cellValue(s.CNrm.Mean),
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// writeCollation streams one row per period and agent, starting a new sheet
// whenever the current one is full. It returns the number of sheets written.
func writeCollation(f *excelize.File, c *savings.Collation) (int, error) {
	var (
		sw    *excelize.StreamWriter
		sheet = -1
		row   int
	)
	next := func() error {
		if sw != nil {
			if err := sw.Flush(); err != nil {
				return err
			}
		}
		sheet++
		name := CollationSheetName(sheet)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		var err error
		if sw, err = f.NewStreamWriter(name); err != nil {
			return fmt.Errorf("stream %s: %w", name, err)
		}
		row = 2
		return sw.SetRow("A1", stringsToCells(CollationHeaders))
	}

	if err := next(); err != nil {
		return 0, err
	}
	for _, r := range c.Records {
		for i := 0; i < c.Agents; i++ {
			if row > sheetRowLimit {
				if err := next(); err != nil {
					return 0, err
				}
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return 0, err
			}
			values := []interface{}{
				r.Period,
				i,
				cellValue(at(r.ANrm, i)),
				cellValue(at(r.CNrm, i)),
				cellValue(at(r.TranShk, i)),
				cellValue(at(r.PrevTranShk, i)),
				cellValue(at(r.Growth, i)),
				cellValue(at(r.SavingRate, i)),
			}
			if err := sw.SetRow(cell, values); err != nil {
				return 0, err
			}
			row++
		}
	}
	return sheet + 1, sw.Flush()
}

func stringsToCells(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
