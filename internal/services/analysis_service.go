package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"lifecyclecli/internal/agenttype"
	"lifecyclecli/internal/config"
	apperrors "lifecyclecli/internal/errors"
	"lifecyclecli/internal/exporter"
	"lifecyclecli/internal/infrastructure"
	"lifecyclecli/internal/savings"
)

// Sources recorded on collation metrics.
const (
	SourceModel = "model"
	SourceAPI   = "api"
)

// AnalysisOptions selects how a collation is built and summarised.
type AnalysisOptions struct {
	ReferencePeriod      int
	UseCurrentPeriodRule bool
	GrowthRatioFloor     float64
	HistogramBins        int
}

// OptionsFromConfig copies the analysis section of the configuration.
func OptionsFromConfig(cfg config.AnalysisConfig) AnalysisOptions {
	return AnalysisOptions{
		ReferencePeriod:      cfg.ReferencePeriod,
		UseCurrentPeriodRule: cfg.UseCurrentPeriodRule,
		GrowthRatioFloor:     cfg.GrowthRatioFloor,
		HistogramBins:        cfg.HistogramBins,
	}
}

func (o AnalysisOptions) collationOptions(logger *slog.Logger) []savings.CollationOption {
	opts := []savings.CollationOption{savings.WithLogger(logger)}
	if o.UseCurrentPeriodRule {
		return append(opts, savings.WithCurrentPeriodRule())
	}
	return append(opts, savings.WithReferencePeriod(o.ReferencePeriod))
}

// RunRequest describes a full solve, simulate and collate run.
type RunRequest struct {
	Params agenttype.Params
	// Horizon is the number of simulated periods to collate; 0 means Params.TSim.
	Horizon int
	AnalysisOptions
}

// RunResult is the outcome of one analysis run.
type RunResult struct {
	RunID    string          `json:"runId"`
	Source   string          `json:"source"`
	Duration time.Duration   `json:"duration"`
	Report   *savings.Report `json:"report"`
}

// ExportResult lists what Export wrote.
type ExportResult struct {
	Paths         *config.Paths
	CollationRows int
}

// AnalysisService runs the saving-rate pipeline against a solved and
// simulated consumer type, or against a caller-supplied history.
type AnalysisService struct {
	solver    agenttype.Solver
	simulator agenttype.Simulator
	tracer    trace.Tracer
	metrics   *infrastructure.AnalysisMetrics
	logger    *slog.Logger
}

// NewAnalysisService creates the service. solver and simulator may be nil
// when only Analyze is used; tracer and metrics may be nil.
func NewAnalysisService(solver agenttype.Solver, simulator agenttype.Simulator, tracer trace.Tracer, metrics *infrastructure.AnalysisMetrics, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer("lifecyclecli/services")
	}
	return &AnalysisService{
		solver:    solver,
		simulator: simulator,
		tracer:    tracer,
		metrics:   metrics,
		logger:    infrastructure.WithComponent(logger, "analysis"),
	}
}

// Run solves the consumer type, simulates it with the tracked variables and
// collates the resulting history.
func (s *AnalysisService) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if s.solver == nil || s.simulator == nil {
		return nil, apperrors.NewConfigError("analysis service has no model source", nil)
	}

	ctx, span := s.tracer.Start(ctx, "analysis.run")
	defer span.End()

	horizon := req.Horizon
	if horizon == 0 {
		horizon = req.Params.TSim
	}
	span.SetAttributes(
		attribute.Int("model.t_sim", req.Params.TSim),
		attribute.Int("analysis.horizon", horizon),
	)

	solution, err := s.solver.Solve(ctx, req.Params)
	if err != nil {
		return nil, s.fail(ctx, span, "solve", err)
	}

	history, err := s.simulator.Simulate(ctx, solution, savings.TrackedVars, horizon)
	if err != nil {
		return nil, s.fail(ctx, span, "simulate", err)
	}

	result, err := s.analyze(ctx, SourceModel, history, req.Params.Rfree, solution, req.AnalysisOptions)
	if err != nil {
		return nil, s.fail(ctx, span, "collate", err)
	}
	span.SetAttributes(attribute.String("analysis.run_id", result.RunID))
	return result, nil
}

// Analyze collates a history the caller already holds.
func (s *AnalysisService) Analyze(ctx context.Context, history savings.History, riskFree float64, rules savings.PolicySet, opts AnalysisOptions) (*RunResult, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.analyze")
	defer span.End()

	result, err := s.analyze(ctx, SourceAPI, history, riskFree, rules, opts)
	if err != nil {
		return nil, s.fail(ctx, span, "collate", err)
	}
	return result, nil
}

func (s *AnalysisService) analyze(ctx context.Context, source string, history savings.History, riskFree float64, rules savings.PolicySet, opts AnalysisOptions) (*RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger := s.logger.With(slog.String("run_id", runID), slog.String("source", source))
	start := time.Now()

	collation, err := savings.BuildCollation(history, riskFree, rules, opts.collationOptions(logger)...)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.RecordCollation(ctx, source, elapsed, 0, 0, 0, err)
		return nil, err
	}

	growthNF, rateNF := collation.NonFiniteCounts()
	s.metrics.RecordCollation(ctx, source, elapsed, collation.Len(), growthNF, rateNF, nil)

	report, err := savings.NewReport(collation, opts.GrowthRatioFloor, opts.HistogramBins)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "analysis completed",
		slog.Int("periods", collation.Len()),
		slog.Int("agents", collation.Agents),
		slog.Int("reference_period", collation.ReferencePeriod),
		slog.Int("growth_nonfinite", growthNF),
		slog.Int("saving_rate_nonfinite", rateNF),
		slog.Duration("duration", elapsed))

	return &RunResult{
		RunID:    runID,
		Source:   source,
		Duration: time.Since(start),
		Report:   report,
	}, nil
}

// Export writes the collation CSV, the period summary CSV, the xlsx workbook,
// the JSON report and the text summary concurrently. The first failure
// cancels the remaining writers.
func (s *AnalysisService) Export(ctx context.Context, result *RunResult, paths *config.Paths) (*ExportResult, error) {
	if result == nil || result.Report == nil || result.Report.Collation == nil {
		return nil, apperrors.NewValidationError("no analysis result to export")
	}
	if paths == nil {
		return nil, apperrors.NewConfigError("no output paths configured", nil)
	}

	ctx, span := s.tracer.Start(ctx, "analysis.export",
		trace.WithAttributes(attribute.String("output.dir", paths.OutputDir)))
	defer span.End()

	if err := paths.EnsureDirectories(); err != nil {
		return nil, s.fail(ctx, span, "export", apperrors.NewStorageError("prepare output directories", err))
	}

	exp := exporter.NewCollationExporter(paths, s.logger)
	report := result.Report
	out := &ExportResult{Paths: paths}

	g, gctx := errgroup.WithContext(ctx)
	write := func(name string, fn func() error) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(); err != nil {
				return apperrors.NewStorageError(fmt.Sprintf("write %s", name), err)
			}
			return nil
		})
	}

	write(config.CollationCSVFile, func() error {
		rows, err := exp.ExportCollationCSV(report.Collation, paths.CollationCSV)
		out.CollationRows = rows
		return err
	})
	write(config.PeriodCSVFile, func() error {
		return exp.ExportPeriodSummaryCSV(report.Collation, paths.PeriodCSV)
	})
	write(config.CollationXLSXFile, func() error {
		return exp.ExportWorkbook(report, paths.CollationXLSX)
	})
	write(config.ReportJSONFile, func() error {
		return savings.SaveToJSON(report, paths.ReportJSON)
	})
	write(config.SummaryReportFile, func() error {
		return savings.SaveSummaryReport(report, paths.SummaryReport)
	})

	if err := g.Wait(); err != nil {
		return nil, s.fail(ctx, span, "export", err)
	}

	s.logger.InfoContext(ctx, "reports exported",
		slog.String("run_id", result.RunID),
		slog.String("output_dir", paths.OutputDir),
		slog.Int("collation_rows", out.CollationRows))
	return out, nil
}

func (s *AnalysisService) fail(ctx context.Context, span trace.Span, stage string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")
	s.logger.ErrorContext(ctx, "analysis failed",
		slog.String("stage", stage),
		slog.String("error_type", string(apperrors.GetErrorType(err))),
		slog.String("error", err.Error()))
	return err
}
