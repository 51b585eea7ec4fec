package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "lifecyclecli/internal/errors"
	"lifecyclecli/internal/middleware"
	"lifecyclecli/internal/savings"
	"lifecyclecli/internal/services"
	api "lifecyclecli/pkg/contracts/api/v1"
)

// AnalysisHandler serves the saving-rate pipeline over JSON.
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	validator    *middleware.Validator
	defaults     services.AnalysisOptions
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewAnalysisHandler creates a new analysis handler. defaults fill in any
// option a collation request leaves out.
func NewAnalysisHandler(service AnalysisServiceInterface, defaults services.AnalysisOptions, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		validator:    middleware.NewValidator(),
		defaults:     defaults,
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/collation", h.Collate)
	r.Post("/saving-rate", h.SavingRate)
	r.Post("/growth", h.Growth)
	return r
}

// Collate handles POST /api/v1/collation
func (h *AnalysisHandler) Collate(w http.ResponseWriter, r *http.Request) {
	var req api.CollationRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rules := make(savings.Rules, len(req.Policies))
	for i, knots := range req.Policies {
		rule, err := knots.Rule()
		if err != nil {
			h.errorHandler.HandleError(w, r, fmt.Errorf("policy %d: %w", i, err))
			return
		}
		rules[i] = rule
	}

	result, err := h.service.Analyze(r.Context(), req.History, req.RiskFree, rules, h.options(req))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "collation served",
		slog.String("run_id", result.RunID),
		slog.Int("periods", result.Report.Collation.Len()),
		slog.Int("agents", result.Report.Collation.Agents))

	render.JSON(w, r, api.CollationResponse{RunID: result.RunID, Report: result.Report})
}

func (h *AnalysisHandler) options(req api.CollationRequest) services.AnalysisOptions {
	opts := h.defaults
	if req.ReferencePeriod != nil {
		// an explicit reference period selects the fixed-rule mode
		opts.ReferencePeriod = *req.ReferencePeriod
		opts.UseCurrentPeriodRule = false
	}
	if req.UseCurrentPeriodRule != nil {
		opts.UseCurrentPeriodRule = *req.UseCurrentPeriodRule
	}
	if req.GrowthRatioFloor != nil {
		opts.GrowthRatioFloor = *req.GrowthRatioFloor
	}
	if req.HistogramBins != nil {
		opts.HistogramBins = *req.HistogramBins
	}
	return opts
}

// SavingRate handles POST /api/v1/saving-rate
func (h *AnalysisHandler) SavingRate(w http.ResponseWriter, r *http.Request) {
	var req api.SavingRateRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rule, err := req.Policy.Rule()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rates := savings.ComputeSavingRate(req.MNrm, req.RiskFree, rule)
	render.JSON(w, r, api.SeriesResponse{Values: rates, Summary: savings.Summarize(rates)})
}

// Growth handles POST /api/v1/growth
func (h *AnalysisHandler) Growth(w http.ResponseWriter, r *http.Request) {
	var req api.GrowthRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	growth, err := savings.ComputeLogAssetGrowth(req.Prev, req.Curr)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.SeriesResponse{Values: growth, Summary: savings.Summarize(growth)})
}
