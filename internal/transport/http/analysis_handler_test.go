package http

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lifecyclecli/internal/config"
	apperrors "lifecyclecli/internal/errors"
	"lifecyclecli/internal/savings"
	"lifecyclecli/internal/services"
	"lifecyclecli/internal/shared/testutil"
)

// MockAnalysisService is a mock implementation of AnalysisServiceInterface
type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) Analyze(ctx context.Context, history savings.History, riskFree float64, rules savings.PolicySet, opts services.AnalysisOptions) (*services.RunResult, error) {
	args := m.Called(history, riskFree, rules, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RunResult), args.Error(1)
}

func defaultOptions() services.AnalysisOptions {
	return services.OptionsFromConfig(config.Default().Analysis)
}

func newTestRouter(t *testing.T, svc AnalysisServiceInterface) (chi.Router, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	h := NewAnalysisHandler(svc, defaultOptions(), logger, apperrors.NewErrorHandler(logger, false))

	r := chi.NewRouter()
	r.Mount("/api/v1", h.Routes())
	return r, handler
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

// c(m) = 0.5m + 0.4 as knots
const stationaryPolicy = `{"m":[0,10],"c":[0.4,5.4]}`

const twoPeriodHistory = `[
	{"aNrm":[1,0],"pLvl":[1,1],"mNrm":[2,1],"cNrm":[1.4,0.9],"TranShk":[1,1]},
	{"aNrm":[2,1],"pLvl":[1,1],"mNrm":[3,2],"cNrm":[1.9,1.4],"TranShk":[0.9,1.1]}
]`

func TestAnalysisHandler_Collate(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	r, logs := newTestRouter(t, services.NewAnalysisService(nil, nil, nil, nil, logger))

	rec := post(r, "/api/v1/collation",
		`{"riskFree":1.03,"history":`+twoPeriodHistory+`,"policies":[`+stationaryPolicy+`]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		RunID     string `json:"runId"`
		Collation struct {
			RiskFree        float64 `json:"riskFree"`
			ReferencePeriod int     `json:"referencePeriod"`
			Agents          int     `json:"agents"`
			Records         []struct {
				Period     int        `json:"period"`
				Growth     []*float64 `json:"growth"`
				SavingRate []*float64 `json:"savingRate"`
			} `json:"records"`
		} `json:"collation"`
		SavingRate struct {
			Count int `json:"count"`
		} `json:"savingRate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, 1.03, resp.Collation.RiskFree)
	assert.Equal(t, 0, resp.Collation.ReferencePeriod)
	assert.Equal(t, 2, resp.Collation.Agents)
	require.Len(t, resp.Collation.Records, 1)

	rec1 := resp.Collation.Records[0]
	assert.Equal(t, 1, rec1.Period)
	require.NotNil(t, rec1.Growth[0])
	assert.InDelta(t, math.Log(2), *rec1.Growth[0], 1e-12)
	assert.Nil(t, rec1.Growth[1], "growth from zero assets is null")

	require.NotNil(t, rec1.SavingRate[0])
	income := savings.Income(3, 1.03)
	assert.InDelta(t, (income-1.9)/income, *rec1.SavingRate[0], 1e-12)
	assert.Equal(t, 2, resp.SavingRate.Count)

	assert.True(t, logs.ContainsAttr("run_id", resp.RunID))
}

func TestAnalysisHandler_CollateErrors(t *testing.T) {
	r, _ := newTestRouter(t, services.NewAnalysisService(nil, nil, nil, nil, nil))

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantType    string
		wantErrCode string
	}{
		{
			name:       "malformed json",
			body:       `{"riskFree":`,
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name:       "missing policies",
			body:       `{"riskFree":1.03,"history":` + twoPeriodHistory + `}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name:       "non-positive risk-free factor",
			body:       `{"riskFree":0,"history":` + twoPeriodHistory + `,"policies":[` + stationaryPolicy + `]}`,
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name:       "mismatched policy knots",
			body:       `{"riskFree":1.03,"history":` + twoPeriodHistory + `,"policies":[{"m":[0,1],"c":[1]}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apperrors.TypeValidation,
		},
		{
			name: "single period history",
			body: `{"riskFree":1.03,"history":[{"aNrm":[1],"pLvl":[1],"mNrm":[2],"cNrm":[1.4],"TranShk":[1]}],` +
				`"policies":[` + stationaryPolicy + `]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apperrors.TypeInsufficientHistory,
		},
		{
			name:       "reference period without a rule",
			body:       `{"riskFree":1.03,"history":` + twoPeriodHistory + `,"policies":[` + stationaryPolicy + `],"referencePeriod":4}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   apperrors.TypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(r, "/api/v1/collation", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantType, decodeProblem(t, rec)["type"])
		})
	}
}

func TestAnalysisHandler_CollateOptions(t *testing.T) {
	svc := new(MockAnalysisService)
	r, _ := newTestRouter(t, svc)

	report := &savings.Report{Collation: &savings.Collation{Agents: 2, Records: make([]savings.Record, 1)}}
	svc.On("Analyze", mock.Anything, 1.03, mock.Anything, mock.MatchedBy(func(o services.AnalysisOptions) bool {
		return o.ReferencePeriod == 1 && o.GrowthRatioFloor == 0.5 && o.HistogramBins == 10 && !o.UseCurrentPeriodRule
	})).Return(&services.RunResult{RunID: "run-1", Report: report}, nil).Once()

	rec := post(r, "/api/v1/collation",
		`{"riskFree":1.03,"history":`+twoPeriodHistory+`,"policies":[`+stationaryPolicy+`,`+stationaryPolicy+`],`+
			`"referencePeriod":1,"growthRatioFloor":0.5,"histogramBins":10}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"runId":"run-1"`)

	svc.On("Analyze", mock.Anything, 1.03, mock.Anything, mock.MatchedBy(func(o services.AnalysisOptions) bool {
		return o.UseCurrentPeriodRule && o.HistogramBins == defaultOptions().HistogramBins
	})).Return(nil, context.DeadlineExceeded).Once()

	rec = post(r, "/api/v1/collation",
		`{"riskFree":1.03,"history":`+twoPeriodHistory+`,"policies":[`+stationaryPolicy+`],"useCurrentPeriodRule":true}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	svc.AssertExpectations(t)
}

func TestAnalysisHandler_CollateKeepsConfiguredRuleMode(t *testing.T) {
	svc := new(MockAnalysisService)
	logger, _ := testutil.NewTestLogger(t)
	defaults := defaultOptions()
	defaults.UseCurrentPeriodRule = true

	h := NewAnalysisHandler(svc, defaults, logger, apperrors.NewErrorHandler(logger, false))
	r := chi.NewRouter()
	r.Mount("/api/v1", h.Routes())

	report := &savings.Report{Collation: &savings.Collation{Agents: 2, Records: make([]savings.Record, 1)}}
	result := &services.RunResult{RunID: "run-1", Report: report}
	base := `{"riskFree":1.03,"history":` + twoPeriodHistory + `,"policies":[` + stationaryPolicy + `,` + stationaryPolicy + `]`

	svc.On("Analyze", mock.Anything, 1.03, mock.Anything, mock.MatchedBy(func(o services.AnalysisOptions) bool {
		return o.UseCurrentPeriodRule
	})).Return(result, nil).Once()
	rec := post(r, "/api/v1/collation", base+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	svc.On("Analyze", mock.Anything, 1.03, mock.Anything, mock.MatchedBy(func(o services.AnalysisOptions) bool {
		return !o.UseCurrentPeriodRule && o.ReferencePeriod == 1
	})).Return(result, nil).Once()
	rec = post(r, "/api/v1/collation", base+`,"referencePeriod":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	svc.On("Analyze", mock.Anything, 1.03, mock.Anything, mock.MatchedBy(func(o services.AnalysisOptions) bool {
		return !o.UseCurrentPeriodRule && o.ReferencePeriod == 0
	})).Return(result, nil).Once()
	rec = post(r, "/api/v1/collation", base+`,"useCurrentPeriodRule":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	svc.AssertExpectations(t)
}

func TestAnalysisHandler_SavingRate(t *testing.T) {
	r, _ := newTestRouter(t, new(MockAnalysisService))

	rec := post(r, "/api/v1/saving-rate", `{"riskFree":1.03,"mNrm":[1,null],"policy":{"m":[0,2],"c":[0.8,1.0]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Values  []*float64 `json:"values"`
		Summary struct {
			Count     int `json:"count"`
			NonFinite int `json:"nonFinite"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Values, 2)
	require.NotNil(t, resp.Values[0])
	assert.InDelta(t, 0.1, *resp.Values[0], 1e-12)
	assert.Nil(t, resp.Values[1])
	assert.Equal(t, 2, resp.Summary.Count)
	assert.Equal(t, 1, resp.Summary.NonFinite)

	rec = post(r, "/api/v1/saving-rate", `{"riskFree":1.03,"mNrm":[1],"policy":{"m":[1,1],"c":[1,2]}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAnalysisHandler_Growth(t *testing.T) {
	r, _ := newTestRouter(t, new(MockAnalysisService))

	rec := post(r, "/api/v1/growth", `{"prev":[0,2],"curr":[1,4]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Values []*float64 `json:"values"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Values, 2)
	assert.Nil(t, resp.Values[0])
	require.NotNil(t, resp.Values[1])
	assert.InDelta(t, math.Log(2), *resp.Values[1], 1e-12)

	rec = post(r, "/api/v1/growth", `{"prev":[1,2],"curr":[1]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apperrors.TypeValidation, decodeProblem(t, rec)["type"])

	rec = post(r, "/api/v1/growth", `{"curr":[1]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
