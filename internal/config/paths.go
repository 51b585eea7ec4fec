package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Well-known report file names written under the output directory.
const (
	CollationCSVFile   = "collation.csv"
	PeriodCSVFile      = "period_summary.csv"
	CollationXLSXFile  = "collation.xlsx"
	ReportJSONFile     = "report.json"
	SummaryReportFile  = "summary.txt"
	DefaultLogFileName = "app.log"
)

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	// BaseDir anchors relative paths. Empty means the working directory.
	BaseDir string `yaml:"base_dir" envconfig:"BASE_DIR"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// Paths is the resolved set of directories and report files for a run.
type Paths struct {
	BaseDir   string
	OutputDir string
	LogsDir   string

	CollationCSV  string
	PeriodCSV     string
	CollationXLSX string
	ReportJSON    string
	SummaryReport string
}

// ResolvePaths makes the configured directories absolute and derives the
// report file locations.
func (c *Config) ResolvePaths() (*Paths, error) {
	return ResolvePathsFor(c.Paths, c.Analysis.OutputDir)
}

// ResolvePathsFor resolves paths for an explicit output directory, e.g. one
// given on the command line.
func ResolvePathsFor(pc PathsConfig, outputDir string) (*Paths, error) {
	base := pc.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	out := resolve(outputDir)
	if out == "" {
		out = base
	}
	logs := resolve(pc.LogsDir)
	if logs == "" {
		logs = filepath.Join(base, "logs")
	}

	return &Paths{
		BaseDir:       base,
		OutputDir:     out,
		LogsDir:       logs,
		CollationCSV:  filepath.Join(out, CollationCSVFile),
		PeriodCSV:     filepath.Join(out, PeriodCSVFile),
		CollationXLSX: filepath.Join(out, CollationXLSXFile),
		ReportJSON:    filepath.Join(out, ReportJSONFile),
		SummaryReport: filepath.Join(out, SummaryReportFile),
	}, nil
}

// EnsureDirectories creates the output and log directories.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.OutputDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("paths resolved",
		slog.String("base_dir", p.BaseDir),
		slog.String("output_dir", p.OutputDir),
		slog.String("logs_dir", p.LogsDir))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
