package agenttype

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "lifecyclecli/internal/errors"
	"lifecyclecli/internal/savings"
)

// Sheet names of an exported run.
const (
	SheetParams   = "params"
	SheetSolution = "solution"
	SheetHistory  = "history"
)

// sheetRowLimit is the number of rows one worksheet holds, header included.
var sheetRowLimit = excelize.TotalRows

// HistorySheetName returns the name of the n-th (0-based) history sheet. A
// history longer than one worksheet continues on history_2, history_3 and so
// on, each with its own header row.
func HistorySheetName(n int) string {
	if n == 0 {
		return SheetHistory
	}
	return fmt.Sprintf("%s_%d", SheetHistory, n+1)
}

// ExportGrid is the market-resources grid on which rules that are not
// already tabulated get sampled by WriteWorkbook.
var ExportGrid = func() []float64 {
	grid := make([]float64, 101)
	for i := range grid {
		grid[i] = 0.2 * float64(i)
	}
	return grid
}()

// Workbook serves a solved and simulated run exported to an .xlsx file.
// It satisfies both Solver and Simulator, so an analysis can run without
// the model library that produced the data.
type Workbook struct {
	path    string
	params  Params
	rules   savings.Rules
	history savings.History
	logger  *slog.Logger
}

var (
	_ Solver    = (*Workbook)(nil)
	_ Simulator = (*Workbook)(nil)
)

// OpenWorkbook reads all three sheets of an exported run into memory.
func OpenWorkbook(path string, logger *slog.Logger) (*Workbook, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("open workbook %s", path), err)
	}
	defer f.Close()

	params, err := readParams(f)
	if err != nil {
		return nil, err
	}
	rules, err := readSolution(f)
	if err != nil {
		return nil, err
	}
	history, err := readHistory(f)
	if err != nil {
		return nil, err
	}

	logger.Info("workbook loaded",
		slog.String("path", path),
		slog.Int("rules", len(rules)),
		slog.Int("periods", len(history)),
		slog.Int("agents", agentsOf(history)))

	return &Workbook{
		path:    path,
		params:  params,
		rules:   rules,
		history: history,
		logger:  logger,
	}, nil
}

// Params returns the parameters recorded in the workbook.
func (w *Workbook) Params() Params {
	return w.params
}

// Periods returns the number of recorded history periods.
func (w *Workbook) Periods() int {
	return len(w.history)
}

// Solve returns the exported rules. The requested parameters must match the
// exported ones, otherwise the rules would belong to a different model.
func (w *Workbook) Solve(ctx context.Context, params Params) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if !params.Equal(w.params, 1e-9) {
		return nil, apperrors.NewConfigError(
			fmt.Sprintf("requested parameters do not match workbook %s", filepath.Base(w.path)), nil)
	}

	rules := make(savings.Rules, len(w.rules))
	copy(rules, w.rules)
	w.logger.DebugContext(ctx, "solution served from workbook", slog.Int("rules", len(rules)))
	return &Solution{Params: w.params, Rules: rules}, nil
}

// Simulate returns the first horizon periods of the exported history. vars
// may only name recorded variables and must include every variable in
// savings.TrackedVars.
func (w *Workbook) Simulate(ctx context.Context, solution *Solution, vars []string, horizon int) (savings.History, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if solution == nil {
		return nil, apperrors.NewValidationError("simulate requires a solution")
	}

	want := make(map[string]bool, len(vars))
	for _, v := range vars {
		if !isTrackedVar(v) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("variable %q is not recorded in the workbook", v))
		}
		want[v] = true
	}
	for _, v := range savings.TrackedVars {
		if !want[v] {
			return nil, apperrors.NewValidationError(fmt.Sprintf("tracked variable %q was not requested", v))
		}
	}
	if horizon < 1 || horizon > len(w.history) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("horizon %d outside recorded range 1..%d", horizon, len(w.history)))
	}

	out := make(savings.History, horizon)
	copy(out, w.history[:horizon])
	w.logger.DebugContext(ctx, "history served from workbook",
		slog.Int("horizon", horizon),
		slog.Int("agents", agentsOf(out)))
	return out, nil
}

// WriteWorkbook exports a solution and history in the layout OpenWorkbook
// reads. Rules that are not TabulatedRule are sampled on ExportGrid.
func WriteWorkbook(path string, solution *Solution, history savings.History) error {
	if solution == nil {
		return apperrors.NewValidationError("write workbook requires a solution")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetParams); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSolution); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetSolution, err)
	}

	if err := writeParams(f, solution.Params); err != nil {
		return err
	}
	if err := writeSolution(f, solution.Rules); err != nil {
		return err
	}
	if err := writeHistory(f, history); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperrors.NewStorageError("create workbook directory", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("save workbook %s", path), err)
	}
	return nil
}

func writeParams(f *excelize.File, p Params) error {
	sw, err := f.NewStreamWriter(SheetParams)
	if err != nil {
		return fmt.Errorf("stream %s: %w", SheetParams, err)
	}
	if err := sw.SetRow("A1", []interface{}{"parameter", "value"}); err != nil {
		return err
	}
	for i, field := range p.fields() {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, []interface{}{field.name, field.value}); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func writeSolution(f *excelize.File, rules savings.Rules) error {
	sw, err := f.NewStreamWriter(SheetSolution)
	if err != nil {
		return fmt.Errorf("stream %s: %w", SheetSolution, err)
	}
	if err := sw.SetRow("A1", []interface{}{"period", "m", "c"}); err != nil {
		return err
	}

	row := 2
	for period, rule := range rules {
		if rule == nil {
			return apperrors.NewValidationError(fmt.Sprintf("consumption rule for period %d is nil", period))
		}
		m, c := knots(rule)
		for i := range m {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := sw.SetRow(cell, []interface{}{period, m[i], cellValue(c[i])}); err != nil {
				return err
			}
			row++
		}
	}
	return sw.Flush()
}

func writeHistory(f *excelize.File, history savings.History) error {
	header := []interface{}{"period", "agent"}
	for _, v := range savings.TrackedVars {
		header = append(header, v)
	}

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
		name := HistorySheetName(sheet)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		var err error
		if sw, err = f.NewStreamWriter(name); err != nil {
			return fmt.Errorf("stream %s: %w", name, err)
		}
		row = 2
		return sw.SetRow("A1", header)
	}

	if err := next(); err != nil {
		return err
	}
	for period, snap := range history {
		for agent := 0; agent < snap.Len(); agent++ {
			if row > sheetRowLimit {
				if err := next(); err != nil {
					return err
				}
			}
			values := []interface{}{period, agent}
			for _, v := range savings.TrackedVars {
				values = append(values, cellValue(at(seriesOf(snap, v), agent)))
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := sw.SetRow(cell, values); err != nil {
				return err
			}
			row++
		}
	}
	return sw.Flush()
}

func readParams(f *excelize.File) (Params, error) {
	rows, err := f.GetRows(SheetParams, excelize.Options{RawCellValue: true})
	if err != nil {
		return Params{}, apperrors.NewParsingError(fmt.Sprintf("read sheet %s", SheetParams), err)
	}

	var p Params
	seen := 0
	for i, row := range rows {
		if i == 0 || len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < 2 {
			return Params{}, apperrors.NewParsingError(fmt.Sprintf("%s row %d has no value", SheetParams, i+1), nil)
		}
		v, err := parseCell(row[1])
		if err != nil {
			return Params{}, apperrors.NewParsingError(fmt.Sprintf("%s row %d", SheetParams, i+1), err)
		}
		if err := p.setField(strings.TrimSpace(row[0]), v); err != nil {
			return Params{}, apperrors.NewParsingError(fmt.Sprintf("%s row %d", SheetParams, i+1), err)
		}
		seen++
	}
	if seen == 0 {
		return Params{}, apperrors.NewParsingError(fmt.Sprintf("sheet %s is empty", SheetParams), nil)
	}
	return p, nil
}

func readSolution(f *excelize.File) (savings.Rules, error) {
	rows, err := f.GetRows(SheetSolution, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("read sheet %s", SheetSolution), err)
	}

	type knotSet struct{ m, c []float64 }
	byPeriod := map[int]*knotSet{}
	maxPeriod := -1
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		if len(row) < 3 {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s row %d needs period, m and c", SheetSolution, i+1), nil)
		}
		period, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil || period < 0 {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s row %d: bad period %q", SheetSolution, i+1, row[0]), err)
		}
		m, err := parseCell(row[1])
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s row %d", SheetSolution, i+1), err)
		}
		c, err := parseCell(row[2])
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s row %d", SheetSolution, i+1), err)
		}

		ks, ok := byPeriod[period]
		if !ok {
			ks = &knotSet{}
			byPeriod[period] = ks
		}
		ks.m = append(ks.m, m)
		ks.c = append(ks.c, c)
		if period > maxPeriod {
			maxPeriod = period
		}
	}
	if maxPeriod < 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("sheet %s has no knots", SheetSolution), nil)
	}

	rules := make(savings.Rules, maxPeriod+1)
	for period := 0; period <= maxPeriod; period++ {
		ks, ok := byPeriod[period]
		if !ok {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s has no knots for period %d", SheetSolution, period), nil)
		}
		rule, err := NewTabulatedRule(ks.m, ks.c)
		if err != nil {
			return nil, fmt.Errorf("period %d rule: %w", period, err)
		}
		rules[period] = rule
	}
	return rules, nil
}

type agentRow struct {
	agent  int
	values map[string]float64
}

// readHistory reads history, history_2, ... until a sheet is missing.
func readHistory(f *excelize.File) (savings.History, error) {
	byPeriod := map[int][]agentRow{}
	maxPeriod := -1
	for n := 0; ; n++ {
		name := HistorySheetName(n)
		if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
			if n == 0 {
				return nil, apperrors.NewParsingError(fmt.Sprintf("workbook has no sheet %s", name), err)
			}
			break
		}
		last, err := readHistorySheet(f, name, byPeriod)
		if err != nil {
			return nil, err
		}
		if last > maxPeriod {
			maxPeriod = last
		}
	}
	if maxPeriod < 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("sheet %s has no rows", SheetHistory), nil)
	}

	history := make(savings.History, maxPeriod+1)
	for period := range history {
		agents := byPeriod[period]
		sort.SliceStable(agents, func(a, b int) bool { return agents[a].agent < agents[b].agent })

		var snap savings.Snapshot
		for _, v := range savings.TrackedVars {
			s := make(savings.Series, len(agents))
			for i, ar := range agents {
				s[i] = ar.values[v]
			}
			setSeries(&snap, v, s)
		}
		history[period] = snap
	}
	return history, nil
}

// readHistorySheet adds the rows of one history sheet to byPeriod and
// returns the highest period it saw, or -1.
func readHistorySheet(f *excelize.File, name string, byPeriod map[int][]agentRow) (int, error) {
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return -1, apperrors.NewParsingError(fmt.Sprintf("read sheet %s", name), err)
	}
	if len(rows) == 0 {
		return -1, apperrors.NewParsingError(fmt.Sprintf("sheet %s is empty", name), nil)
	}

	cols := map[string]int{}
	for i, col := range rows[0] {
		cols[strings.TrimSpace(col)] = i
	}
	for _, required := range append([]string{"period", "agent"}, savings.TrackedVars...) {
		if _, ok := cols[required]; !ok {
			return -1, apperrors.NewParsingError(fmt.Sprintf("sheet %s lacks column %q", name, required), nil)
		}
	}

	maxPeriod := -1
	for i, row := range rows[1:] {
		line := i + 2
		if len(row) == 0 {
			continue
		}
		period, err := strconv.Atoi(strings.TrimSpace(cellAt(row, cols["period"])))
		if err != nil || period < 0 {
			return -1, apperrors.NewParsingError(fmt.Sprintf("%s row %d: bad period", name, line), err)
		}
		agent, err := strconv.Atoi(strings.TrimSpace(cellAt(row, cols["agent"])))
		if err != nil {
			return -1, apperrors.NewParsingError(fmt.Sprintf("%s row %d: bad agent", name, line), err)
		}

		ar := agentRow{agent: agent, values: make(map[string]float64, len(savings.TrackedVars))}
		for _, v := range savings.TrackedVars {
			x, err := parseCell(cellAt(row, cols[v]))
			if err != nil {
				return -1, apperrors.NewParsingError(fmt.Sprintf("%s row %d column %s", name, line, v), err)
			}
			ar.values[v] = x
		}
		byPeriod[period] = append(byPeriod[period], ar)
		if period > maxPeriod {
			maxPeriod = period
		}
	}
	return maxPeriod, nil
}

// knots returns the (m, c) pairs that represent a rule in the solution sheet.
func knots(rule savings.PolicyFunction) ([]float64, []float64) {
	if t, ok := rule.(TabulatedRule); ok {
		return t.M, t.C
	}
	c := make([]float64, len(ExportGrid))
	for i, m := range ExportGrid {
		c[i] = rule.Consumption(m)
	}
	return ExportGrid, c
}

// cellValue stores non-finite numbers as text so they survive a round trip.
func cellValue(v float64) interface{} {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return v
}

// parseCell reads a numeric cell; an empty cell is NaN.
func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func at(s savings.Series, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return math.NaN()
}

func isTrackedVar(name string) bool {
	for _, v := range savings.TrackedVars {
		if v == name {
			return true
		}
	}
	return false
}

func seriesOf(snap savings.Snapshot, name string) savings.Series {
	switch name {
	case savings.VarANrm:
		return snap.ANrm
	case savings.VarPLvl:
		return snap.PLvl
	case savings.VarMNrm:
		return snap.MNrm
	case savings.VarCNrm:
		return snap.CNrm
	case savings.VarTranShk:
		return snap.TranShk
	}
	return nil
}

func setSeries(snap *savings.Snapshot, name string, s savings.Series) {
	switch name {
	case savings.VarANrm:
		snap.ANrm = s
	case savings.VarPLvl:
		snap.PLvl = s
	case savings.VarMNrm:
		snap.MNrm = s
	case savings.VarCNrm:
		snap.CNrm = s
	case savings.VarTranShk:
		snap.TranShk = s
	}
}

func agentsOf(h savings.History) int {
	if len(h) == 0 {
		return 0
	}
	return h[0].Len()
}
