// Command savings-report collates an exported life-cycle run and writes the
// saving-rate reports.
//
// Usage:
//
//	savings-report -workbook run.xlsx [-out reports] [-ref-period 0 | -current-rule]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"lifecyclecli/internal/agenttype"
	"lifecyclecli/internal/config"
	apperrors "lifecyclecli/internal/errors"
	"lifecyclecli/internal/infrastructure"
	"lifecyclecli/internal/savings"
	"lifecyclecli/internal/services"
	"lifecyclecli/internal/validation"
	"lifecyclecli/pkg/contracts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			return
		}
		slog.Error("savings report failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type options struct {
	configFile      string
	workbook        string
	outputDir       string
	referencePeriod int
	currentRule     bool
	growthFloor     float64
	bins            int
	horizon         int
	useConfigParams bool
	logLevel        string
	version         bool
}

func parseFlags(args []string, stderr io.Writer) (*options, map[string]bool, error) {
	opts := &options{}
	fs := flag.NewFlagSet("savings-report", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file (default: $LCS_CONFIG_FILE or ./config.yaml)")
	fs.StringVar(&opts.workbook, "workbook", "", "exported run (.xlsx) with params, solution and history sheets")
	fs.StringVar(&opts.outputDir, "out", "", "directory for the generated reports")
	fs.IntVar(&opts.referencePeriod, "ref-period", 0, "period whose consumption rule is applied to every period")
	fs.BoolVar(&opts.currentRule, "current-rule", false, "evaluate each period with its own consumption rule")
	fs.Float64Var(&opts.growthFloor, "growth-floor", 0, "minimum asset growth ratio kept in the summary histogram")
	fs.IntVar(&opts.bins, "bins", 0, "histogram bins for the saving-rate and asset-growth summaries")
	fs.IntVar(&opts.horizon, "horizon", 0, "number of simulated periods to collate (0 = all recorded)")
	fs.BoolVar(&opts.useConfigParams, "use-config-params", false, "solve with the configured model parameters instead of the workbook's")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return opts, set, nil
}

func loadConfig(opts *options, set map[string]bool) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configFile != "" {
		cfg, err = config.LoadFile(opts.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if set["workbook"] {
		cfg.Analysis.WorkbookPath = opts.workbook
	}
	if set["out"] {
		cfg.Analysis.OutputDir = opts.outputDir
	}
	if set["ref-period"] {
		cfg.Analysis.ReferencePeriod = opts.referencePeriod
	}
	if set["current-rule"] {
		cfg.Analysis.UseCurrentPeriodRule = opts.currentRule
	}
	if set["growth-floor"] {
		cfg.Analysis.GrowthRatioFloor = opts.growthFloor
	}
	if set["bins"] {
		cfg.Analysis.HistogramBins = opts.bins
	}
	if set["log-level"] {
		cfg.Logging.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Analysis.WorkbookPath == "" {
		return nil, apperrors.NewConfigError("no workbook given: use -workbook or analysis.workbook_path", nil)
	}
	if opts.horizon < 0 {
		return nil, apperrors.NewConfigError(fmt.Sprintf("horizon %d must not be negative", opts.horizon), nil)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, set, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		_, err := fmt.Fprintf(stdout, "savings-report %s\n", contracts.VersionString())
		return err
	}

	cfg, err := loadConfig(opts, set)
	if err != nil {
		return err
	}

	logger := infrastructure.NewJSONLogger(stderr, cfg.Logging.Level)
	logger = infrastructure.WithComponent(logger, "savings-report")
	ctx = infrastructure.EnsureTraceID(ctx)

	otelCfg := infrastructure.OTelConfigFrom(cfg.Telemetry)
	otelCfg.TraceOutput = stderr
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.CreateAnalysisMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	paths, err := config.ResolvePathsFor(cfg.Paths, cfg.Analysis.OutputDir)
	if err != nil {
		return apperrors.NewConfigError("resolve output paths", err)
	}
	paths.LogPathResolution(logger)

	files := validation.NewFileValidator(logger)
	workbookPath, err := resolveWorkbook(files, cfg.Analysis.WorkbookPath)
	if err != nil {
		return err
	}
	if err := files.ValidateOutputDirectory(paths.OutputDir); err != nil {
		return err
	}

	wb, err := agenttype.OpenWorkbook(workbookPath, logger)
	if err != nil {
		return err
	}

	params := wb.Params()
	if opts.useConfigParams {
		params = cfg.Model
	}
	horizon := opts.horizon
	if horizon == 0 {
		horizon = wb.Periods()
	}

	svc := services.NewAnalysisService(wb, wb, providers.Tracer, metrics, logger)
	analysis := services.OptionsFromConfig(cfg.Analysis)
	result, err := svc.Run(ctx, services.RunRequest{
		Params:          params,
		Horizon:         horizon,
		AnalysisOptions: analysis,
	})
	if err != nil {
		return err
	}

	exported, err := svc.Export(ctx, result, paths)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "savings report complete",
		slog.String("run_id", result.RunID),
		slog.String("output_dir", exported.Paths.OutputDir),
		slog.Int("collation_rows", exported.CollationRows),
		slog.Duration("duration", result.Duration))

	return savings.WriteSummary(stdout, result.Report)
}

// resolveWorkbook accepts a workbook file, or a directory holding exactly one.
func resolveWorkbook(files *validation.FileValidator, path string) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		found, err := files.FindWorkbooks(path)
		if err != nil {
			return "", err
		}
		if len(found) != 1 {
			return "", apperrors.NewConfigError(
				fmt.Sprintf("directory %s holds %d workbooks, want exactly one", path, len(found)), nil)
		}
		path = found[0]
	}
	if err := files.ValidateWorkbookFile(path); err != nil {
		return "", err
	}
	return path, nil
}
