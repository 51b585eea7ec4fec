package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifecyclecli/internal/agenttype"
	"lifecyclecli/internal/config"
	apperrors "lifecyclecli/internal/errors"
	"lifecyclecli/internal/infrastructure"
	"lifecyclecli/internal/savings"
	"lifecyclecli/internal/shared/testutil"
)

type fakeModel struct {
	history  savings.History
	solveErr error
	simErr   error
	gotVars  []string
	gotHor   int
}

func (f *fakeModel) Solve(ctx context.Context, p agenttype.Params) (*agenttype.Solution, error) {
	if f.solveErr != nil {
		return nil, f.solveErr
	}
	return &agenttype.Solution{Params: p, Rules: testutil.StationaryRules()}, nil
}

func (f *fakeModel) Simulate(ctx context.Context, s *agenttype.Solution, vars []string, horizon int) (savings.History, error) {
	f.gotVars = vars
	f.gotHor = horizon
	if f.simErr != nil {
		return nil, f.simErr
	}
	return f.history[:horizon], nil
}

func testParams(tSim int) agenttype.Params {
	p := agenttype.DefaultParams()
	p.TSim = tSim
	return p
}

func defaultOptions() AnalysisOptions {
	return OptionsFromConfig(config.Default().Analysis)
}

func TestAnalysisService_Run(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	model := &fakeModel{history: testutil.DeterministicHistory(6, 4)}
	svc := NewAnalysisService(model, model, nil, nil, logger)

	result, err := svc.Run(context.Background(), RunRequest{
		Params:          testParams(6),
		AnalysisOptions: defaultOptions(),
	})
	require.NoError(t, err)

	assert.Equal(t, savings.TrackedVars, model.gotVars)
	assert.Equal(t, 6, model.gotHor)
	assert.Equal(t, SourceModel, result.Source)
	assert.NotEmpty(t, result.RunID)
	require.NotNil(t, result.Report)
	assert.Equal(t, 5, result.Report.Collation.Len())
	assert.Equal(t, 4, result.Report.Collation.Agents)
	assert.Equal(t, 1.03, result.Report.Collation.RiskFree)

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "analysis completed")
	testutil.AssertLogAttr(t, handler, "run_id", result.RunID)
	testutil.AssertNoErrors(t, handler)
}

func TestAnalysisService_RunHorizon(t *testing.T) {
	model := &fakeModel{history: testutil.DeterministicHistory(6, 2)}
	svc := NewAnalysisService(model, model, nil, nil, nil)

	result, err := svc.Run(context.Background(), RunRequest{
		Params:          testParams(6),
		Horizon:         3,
		AnalysisOptions: defaultOptions(),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, model.gotHor)
	assert.Equal(t, 2, result.Report.Collation.Len())
}

func TestAnalysisService_RunErrors(t *testing.T) {
	configErr := apperrors.NewConfigError("params differ", nil)

	tests := []struct {
		name     string
		model    *fakeModel
		tSim     int
		wantType apperrors.ErrorType
	}{
		{
			name:     "solver rejects parameters",
			model:    &fakeModel{solveErr: configErr},
			tSim:     3,
			wantType: apperrors.ErrTypeConfig,
		},
		{
			name:     "simulator fails",
			model:    &fakeModel{simErr: apperrors.NewValidationError("unknown var")},
			tSim:     3,
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name:     "one period is not enough",
			model:    &fakeModel{history: testutil.DeterministicHistory(1, 2)},
			tSim:     1,
			wantType: apperrors.ErrTypeInsufficientHistory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, handler := testutil.NewTestLogger(t)
			svc := NewAnalysisService(tt.model, tt.model, nil, nil, logger)

			_, err := svc.Run(context.Background(), RunRequest{
				Params:          testParams(tt.tSim),
				AnalysisOptions: defaultOptions(),
			})
			require.Error(t, err)
			assert.Equal(t, tt.wantType, apperrors.GetErrorType(err))
			testutil.AssertLogContains(t, handler, slog.LevelError, "analysis failed")
		})
	}

	t.Run("no model source", func(t *testing.T) {
		svc := NewAnalysisService(nil, nil, nil, nil, nil)
		_, err := svc.Run(context.Background(), RunRequest{Params: testParams(3)})
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	})
}

func TestAnalysisService_Analyze(t *testing.T) {
	svc := NewAnalysisService(nil, nil, nil, nil, nil)
	history := testutil.DeterministicHistory(4, 3)
	rules := savings.Rules{
		testutil.LinearRule{Slope: 0.5, Intercept: 0.4},
		testutil.LinearRule{Slope: 0.6, Intercept: 0.3},
		testutil.LinearRule{Slope: 0.7, Intercept: 0.2},
		testutil.LinearRule{Slope: 0.8, Intercept: 0.1},
	}

	t.Run("reference period", func(t *testing.T) {
		opts := defaultOptions()
		opts.ReferencePeriod = 2
		result, err := svc.Analyze(context.Background(), history, 1.03, rules, opts)
		require.NoError(t, err)
		assert.Equal(t, SourceAPI, result.Source)
		assert.Equal(t, 2, result.Report.Collation.ReferencePeriod)

		want := savings.ComputeSavingRate(history[3].MNrm, 1.03, rules[2])
		assert.InDeltaSlice(t, want, []float64(result.Report.Collation.Records[2].SavingRate), 1e-12)
	})

	t.Run("current period rule", func(t *testing.T) {
		opts := defaultOptions()
		opts.ReferencePeriod = 2
		opts.UseCurrentPeriodRule = true
		result, err := svc.Analyze(context.Background(), history, 1.03, rules, opts)
		require.NoError(t, err)
		assert.Equal(t, savings.CurrentPeriodRule, result.Report.Collation.ReferencePeriod)

		want := savings.ComputeSavingRate(history[3].MNrm, 1.03, rules[3])
		assert.InDeltaSlice(t, want, []float64(result.Report.Collation.Records[2].SavingRate), 1e-12)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.Analyze(ctx, history, 1.03, rules, defaultOptions())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestAnalysisService_Metrics(t *testing.T) {
	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(config.Default().Telemetry), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })
	metrics, err := infrastructure.CreateAnalysisMetrics(providers.Meter)
	require.NoError(t, err)

	svc := NewAnalysisService(nil, nil, providers.Tracer, metrics, nil)
	_, err = svc.Analyze(context.Background(), testutil.DegenerateHistory(), 1.03, testutil.StationaryRules(), defaultOptions())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	providers.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `collation_runs_total{`)
	assert.Contains(t, body, `source="api"`)
	assert.Contains(t, body, `series="growth"`)
}

func TestAnalysisService_Export(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	svc := NewAnalysisService(nil, nil, nil, nil, logger)

	result, err := svc.Analyze(context.Background(), testutil.DeterministicHistory(3, 5), 1.03, testutil.StationaryRules(), defaultOptions())
	require.NoError(t, err)

	paths, err := config.ResolvePathsFor(config.PathsConfig{BaseDir: t.TempDir()}, "reports")
	require.NoError(t, err)

	out, err := svc.Export(context.Background(), result, paths)
	require.NoError(t, err)
	assert.Equal(t, 2*5, out.CollationRows)

	for _, p := range []string{paths.CollationCSV, paths.PeriodCSV, paths.CollationXLSX, paths.ReportJSON, paths.SummaryReport} {
		assert.True(t, config.FileExists(p), filepath.Base(p))
	}
	testutil.AssertLogContains(t, handler, slog.LevelInfo, "reports exported")

	_, err = svc.Export(context.Background(), nil, paths)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	_, err = svc.Export(context.Background(), result, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestAnalysisService_ExportStorageError(t *testing.T) {
	svc := NewAnalysisService(nil, nil, nil, nil, nil)
	result, err := svc.Analyze(context.Background(), testutil.DeterministicHistory(2, 2), 1.03, testutil.StationaryRules(), defaultOptions())
	require.NoError(t, err)

	base := t.TempDir()
	blocker := filepath.Join(base, "taken")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	paths, err := config.ResolvePathsFor(config.PathsConfig{BaseDir: base}, "taken")
	require.NoError(t, err)

	_, err = svc.Export(context.Background(), result, paths)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestAnalysisService_WorkbookModel(t *testing.T) {
	params := testParams(5)
	history := testutil.DeterministicHistory(5, 3)
	path := filepath.Join(t.TempDir(), "model.xlsx")
	require.NoError(t, agenttype.WriteWorkbook(path, &agenttype.Solution{Params: params, Rules: testutil.StationaryRules()}, history))

	wb, err := agenttype.OpenWorkbook(path, nil)
	require.NoError(t, err)

	svc := NewAnalysisService(wb, wb, nil, nil, nil)
	result, err := svc.Run(context.Background(), RunRequest{Params: params, AnalysisOptions: defaultOptions()})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Report.Collation.Len())

	direct, err := savings.BuildCollation(history, params.Rfree, testutil.StationaryRules())
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64(direct.Records[3].Growth), []float64(result.Report.Collation.Records[3].Growth), 1e-12)

	params.CRRA = 3
	_, err = svc.Run(context.Background(), RunRequest{Params: params, AnalysisOptions: defaultOptions()})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	assert.False(t, errors.Is(err, context.Canceled))
}
