package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifecyclecli/internal/agenttype"
	"lifecyclecli/internal/config"
	apperrors "lifecyclecli/internal/errors"
	"lifecyclecli/internal/savings"
	"lifecyclecli/internal/shared/testutil"
)

func writeWorkbook(t *testing.T, periods, agents int) string {
	t.Helper()

	params := agenttype.DefaultParams()
	params.AgentCount = agents
	params.TSim = periods
	rules := make(savings.Rules, periods)
	for i := range rules {
		rules[i] = testutil.LinearRule{Slope: 0.5, Intercept: 0.4}
	}
	sol := &agenttype.Solution{Params: params, Rules: rules}

	path := filepath.Join(t.TempDir(), "run.xlsx")
	require.NoError(t, agenttype.WriteWorkbook(path, sol, testutil.DeterministicHistory(periods, agents)))
	return path
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.ConfigFileEnv, "")
	t.Setenv("LCS_PATHS_BASE_DIR", dir)
	return dir
}

func TestRunWritesReports(t *testing.T) {
	base := isolate(t)
	workbook := writeWorkbook(t, 4, 3)
	out := filepath.Join(base, "out")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-workbook", workbook, "-out", out, "-bins", "5"}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	for _, name := range []string{
		config.CollationCSVFile,
		config.PeriodCSVFile,
		config.CollationXLSXFile,
		config.ReportJSONFile,
		config.SummaryReportFile,
	} {
		assert.FileExists(t, filepath.Join(out, name))
	}

	assert.Contains(t, stdout.String(), "Life-Cycle Saving Analysis - Summary Report")
	assert.Contains(t, stdout.String(), "Periods collated: 3")
	assert.Contains(t, stdout.String(), "Agents: 3")
	assert.Contains(t, stderr.String(), `"msg":"savings report complete"`)

	data, err := os.ReadFile(filepath.Join(out, config.ReportJSONFile))
	require.NoError(t, err)
	var report struct {
		Collation struct {
			ReferencePeriod int `json:"referencePeriod"`
		} `json:"collation"`
		SavingHistogram struct {
			Counts []int `json:"counts"`
		} `json:"savingHistogram"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 0, report.Collation.ReferencePeriod)
	assert.Len(t, report.SavingHistogram.Counts, 5)
}

func TestRunCurrentRuleAndHorizon(t *testing.T) {
	base := isolate(t)
	workbook := writeWorkbook(t, 5, 2)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-workbook", workbook,
		"-out", filepath.Join(base, "out"),
		"-current-rule",
		"-horizon", "3",
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	assert.Contains(t, stdout.String(), "Periods collated: 2")
	assert.Contains(t, stdout.String(), "Consumption rule: current period")
}

func TestRunErrors(t *testing.T) {
	base := isolate(t)
	workbook := writeWorkbook(t, 3, 2)
	out := filepath.Join(base, "out")
	require.NoError(t, os.WriteFile(filepath.Join(base, "notes.csv"), []byte("a,b\n"), 0644))

	tests := []struct {
		name     string
		args     []string
		wantType apperrors.ErrorType
	}{
		{
			name:     "no workbook",
			args:     []string{"-out", out},
			wantType: apperrors.ErrTypeConfig,
		},
		{
			name:     "missing workbook file",
			args:     []string{"-workbook", filepath.Join(base, "missing.xlsx"), "-out", out},
			wantType: apperrors.ErrTypeStorage,
		},
		{
			name:     "not a workbook",
			args:     []string{"-workbook", filepath.Join(base, "notes.csv"), "-out", out},
			wantType: apperrors.ErrTypeConfig,
		},
		{
			name:     "missing config file",
			args:     []string{"-config", filepath.Join(base, "missing.yaml"), "-workbook", workbook},
			wantType: apperrors.ErrTypeConfig,
		},
		{
			name:     "config params differ from workbook",
			args:     []string{"-workbook", workbook, "-out", out, "-use-config-params"},
			wantType: apperrors.ErrTypeConfig,
		},
		{
			name:     "negative horizon",
			args:     []string{"-workbook", workbook, "-out", out, "-horizon", "-1"},
			wantType: apperrors.ErrTypeConfig,
		},
		{
			name:     "horizon beyond history",
			args:     []string{"-workbook", workbook, "-out", out, "-horizon", "9"},
			wantType: apperrors.ErrTypeValidation,
		},
		{
			name:     "invalid log level",
			args:     []string{"-workbook", workbook, "-out", out, "-log-level", "loud"},
			wantType: apperrors.ErrTypeConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, &stdout, &stderr)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRunWorkbookDirectory(t *testing.T) {
	base := isolate(t)
	workbook := writeWorkbook(t, 3, 2)
	out := filepath.Join(base, "out")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(),
		[]string{"-workbook", filepath.Dir(workbook), "-out", out}, &stdout, &stderr), stderr.String())
	assert.FileExists(t, filepath.Join(out, config.CollationCSVFile))

	empty := t.TempDir()
	err := run(context.Background(), []string{"-workbook", empty, "-out", out}, &stdout, &stderr)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestRunConfigFile(t *testing.T) {
	base := isolate(t)
	workbook := writeWorkbook(t, 3, 2)

	cfgPath := filepath.Join(base, "config.yaml")
	yaml := "analysis:\n" +
		"  workbook_path: " + workbook + "\n" +
		"  output_dir: from-config\n" +
		"  use_current_period_rule: true\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0644))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", cfgPath}, &stdout, &stderr), stderr.String())

	assert.FileExists(t, filepath.Join(base, "from-config", config.ReportJSONFile))
	assert.Contains(t, stdout.String(), "Consumption rule: current period")
}

func TestRunConfigParamsUseRecordedHorizon(t *testing.T) {
	base := isolate(t)
	workbook := writeWorkbook(t, 4, 3)

	cfgPath := filepath.Join(base, "config.yaml")
	yaml := "model:\n" +
		"  agent_count: 3\n" +
		"  t_sim: 200\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0644))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-config", cfgPath,
		"-workbook", workbook,
		"-out", filepath.Join(base, "out"),
		"-use-config-params",
	}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	assert.Contains(t, stdout.String(), "Periods collated: 3")
	assert.Contains(t, stdout.String(), "Agents: 3")
}

func TestRunFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "savings-report ")

	err := run(context.Background(), []string{"-no-such-flag"}, &stdout, &stderr)
	require.Error(t, err)
	assert.NotErrorIs(t, err, flag.ErrHelp)

	err = run(context.Background(), []string{"-h"}, &stdout, &stderr)
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestRunCancelled(t *testing.T) {
	base := isolate(t)
	workbook := writeWorkbook(t, 3, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	err := run(ctx, []string{"-workbook", workbook, "-out", filepath.Join(base, "out")}, &stdout, &stderr)
	assert.ErrorIs(t, err, context.Canceled)
}
