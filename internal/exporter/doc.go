// Package exporter writes collation results to disk.
//
// CSVWriter is the low-level writer: it resolves relative paths under the
// run's output directory, prefixes a UTF-8 BOM for spreadsheet tools and
// supports streaming for large populations.
//
// CollationExporter builds on it to produce the report files of a run:
//
//   - a long-format collation CSV, one row per (period, agent)
//   - a per-period summary CSV
//   - an xlsx workbook with overview, periods and collation sheets
//
// Non-finite values are written as NaN, +Inf or -Inf rather than dropped, so
// row counts always equal periods times agents.
//
// Example usage:
//
//	exp := exporter.NewCollationExporter(paths, logger)
//	rows, err := exp.ExportCollationCSV(collation, config.CollationCSVFile)
package exporter
