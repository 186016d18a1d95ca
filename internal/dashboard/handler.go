package dashboard

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bissquit/problem-dashboard/internal/aggregation"
	"github.com/bissquit/problem-dashboard/internal/domain"
	"github.com/bissquit/problem-dashboard/internal/insights"
	"github.com/bissquit/problem-dashboard/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// InsightsAnalyzer produces and exposes insight reports.
type InsightsAnalyzer interface {
	Analyze(ctx context.Context, problems []domain.Problem, stats domain.DashboardStats) (*insights.Report, error)
	Latest() *insights.Report
	Analyzing() bool
}

// Handler handles HTTP requests for the dashboard.
type Handler struct {
	store     *Store
	analyzer  InsightsAnalyzer
	validator *validator.Validate
}

// NewHandler creates a new dashboard handler.
func NewHandler(store *Store, analyzer InsightsAnalyzer) *Handler {
	return &Handler{
		store:     store,
		analyzer:  analyzer,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the dashboard.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.GetDashboard)
	r.Post("/refresh", h.Refresh)

	r.Get("/problems", h.ListProblems)
	r.Get("/problems/{id}", h.GetProblem)

	r.Get("/groups/entities", h.ListEntityGroups)
	r.Get("/groups/problems", h.ListProblemSummaries)

	r.Patch("/filters", h.UpdateFilters)
	r.Put("/time-range", h.UpdateTimeRange)
	r.Put("/auto-refresh", h.UpdateAutoRefresh)
	r.Put("/selection", h.UpdateSelection)

	r.Get("/insights", h.GetInsights)
	r.Post("/insights/refresh", h.RefreshInsights)
}

// DashboardResponse is the dashboard state as exposed over HTTP.
type DashboardResponse struct {
	Stats             domain.DashboardStats `json:"stats"`
	Charts            domain.ChartSeries    `json:"charts"`
	Filters           domain.Filters        `json:"filters"`
	TimeRange         domain.TimeRange      `json:"timeRange"`
	Loading           bool                  `json:"loading"`
	Error             *string               `json:"error"`
	AutoRefresh       bool                  `json:"autoRefresh"`
	RefreshIntervalMs int64                 `json:"refreshInterval"`
	SelectedProblemID *string               `json:"selectedProblemId"`
	ProblemCount      int                   `json:"problemCount"`
	LastUpdated       *time.Time            `json:"lastUpdated"`
}

func newDashboardResponse(state State) DashboardResponse {
	resp := DashboardResponse{
		Stats:             state.Stats,
		Charts:            state.Charts,
		Filters:           state.Filters,
		TimeRange:         state.TimeRange,
		Loading:           state.Loading,
		AutoRefresh:       state.AutoRefresh,
		RefreshIntervalMs: state.RefreshInterval.Milliseconds(),
		ProblemCount:      len(state.Problems),
	}
	if state.Error != "" {
		resp.Error = &state.Error
	}
	if state.SelectedProblem != nil {
		resp.SelectedProblemID = &state.SelectedProblem.ID
	}
	if !state.LastUpdated.IsZero() {
		resp.LastUpdated = &state.LastUpdated
	}
	return resp
}

// ProblemItem is a problem with its live duration.
type ProblemItem struct {
	domain.Problem
	DurationMinutes int64 `json:"durationMinutes"`
}

// ProblemDetail is a problem with display helpers for the detail view.
type ProblemDetail struct {
	domain.Problem
	DurationMinutes int64  `json:"durationMinutes"`
	Duration        string `json:"duration"`
	SeverityLabel   string `json:"severityLabel"`
	StatusLabel     string `json:"statusLabel"`
	ImpactLabel     string `json:"impactLabel"`
	CategoryLabel   string `json:"categoryLabel"`
	Ongoing         bool   `json:"ongoing"`
}

// displayLabel turns an upper-case API constant such as RESOURCE_CONTENTION into "Resource Contention".
func displayLabel(value string) string {
	words := strings.ReplaceAll(strings.ToLower(value), "_", " ")
	return cases.Title(language.English).String(words)
}

// InsightsResponse is the latest insight report and the analyzer state.
type InsightsResponse struct {
	Report    *insights.Report `json:"report"`
	Analyzing bool             `json:"analyzing"`
}

// UpdateFiltersRequest represents the request body for patching filters.
// Omitted fields keep their current value.
type UpdateFiltersRequest struct {
	Status      *[]string `json:"status" validate:"omitempty,dive,oneof=OPEN RESOLVED CLOSED"`
	Severity    *[]string `json:"severity" validate:"omitempty,dive,oneof=AVAILABILITY ERROR PERFORMANCE RESOURCE CUSTOM"`
	EntityTypes *[]string `json:"entityTypes" validate:"omitempty,dive,min=1,max=128"`
	SearchQuery *string   `json:"searchQuery" validate:"omitempty,max=256"`
}

// ToDomain converts the request to a filter patch.
func (r *UpdateFiltersRequest) ToDomain() domain.FiltersPatch {
	var patch domain.FiltersPatch
	if r.Status != nil {
		status := make([]domain.ProblemStatus, 0, len(*r.Status))
		for _, s := range *r.Status {
			status = append(status, domain.ProblemStatus(s))
		}
		patch.Status = &status
	}
	if r.Severity != nil {
		severity := make([]domain.SeverityLevel, 0, len(*r.Severity))
		for _, s := range *r.Severity {
			severity = append(severity, domain.SeverityLevel(s))
		}
		patch.Severity = &severity
	}
	patch.EntityTypes = r.EntityTypes
	patch.SearchQuery = r.SearchQuery
	return patch
}

// UpdateTimeRangeRequest represents the request body for replacing the time range.
type UpdateTimeRangeRequest struct {
	From string `json:"from" validate:"required,max=64"`
	To   string `json:"to" validate:"required,max=64"`
}

// UpdateAutoRefreshRequest represents the request body for polling settings.
type UpdateAutoRefreshRequest struct {
	Enabled           *bool  `json:"enabled" validate:"required"`
	RefreshIntervalMs *int64 `json:"refreshInterval" validate:"omitempty,gte=1000"`
}

// UpdateSelectionRequest represents the request body for selecting a problem.
// A null problemId clears the selection.
type UpdateSelectionRequest struct {
	ProblemID *string `json:"problemId" validate:"omitempty,min=1"`
}

// GetDashboard handles GET /dashboard request.
func (h *Handler) GetDashboard(w http.ResponseWriter, _ *http.Request) {
	httputil.Success(w, http.StatusOK, newDashboardResponse(h.store.Snapshot()))
}

// Refresh handles POST /refresh request.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Refresh(r.Context()); err != nil {
		h.handleStoreError(r.Context(), w, err)
		return
	}
	httputil.Success(w, http.StatusOK, newDashboardResponse(h.store.Snapshot()))
}

// ListProblems handles GET /problems request.
func (h *Handler) ListProblems(w http.ResponseWriter, _ *http.Request) {
	problems := h.store.FilteredProblems()
	now := h.store.Now()

	items := make([]ProblemItem, 0, len(problems))
	for i := range problems {
		items = append(items, ProblemItem{
			Problem:         problems[i],
			DurationMinutes: aggregation.Duration(&problems[i], now),
		})
	}

	httputil.Success(w, http.StatusOK, items)
}

// GetProblem handles GET /problems/{id} request.
func (h *Handler) GetProblem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	problem, err := h.store.Problem(id)
	if err != nil {
		h.handleStoreError(r.Context(), w, err)
		return
	}

	now := h.store.Now()
	httputil.Success(w, http.StatusOK, ProblemDetail{
		Problem:         *problem,
		DurationMinutes: aggregation.Duration(problem, now),
		Duration:        domain.FormatDuration(problem.Elapsed(now)),
		SeverityLabel:   problem.SeverityLevel.Label(),
		StatusLabel:     displayLabel(string(problem.Status)),
		ImpactLabel:     displayLabel(string(problem.ImpactLevel)),
		CategoryLabel:   displayLabel(string(problem.SeverityLevel)),
		Ongoing:         problem.IsOngoing(),
	})
}

// ListEntityGroups handles GET /groups/entities request.
func (h *Handler) ListEntityGroups(w http.ResponseWriter, _ *http.Request) {
	httputil.Success(w, http.StatusOK, h.store.EntityProblemGroups())
}

// ListProblemSummaries handles GET /groups/problems request.
func (h *Handler) ListProblemSummaries(w http.ResponseWriter, _ *http.Request) {
	httputil.Success(w, http.StatusOK, h.store.ProblemSummaries())
}

// UpdateFilters handles PATCH /filters request.
func (h *Handler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	var req UpdateFiltersRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, h.store.SetFilters(req.ToDomain()))
}

// UpdateTimeRange handles PUT /time-range request.
// The new range applies to the next fetch.
func (h *Handler) UpdateTimeRange(w http.ResponseWriter, r *http.Request) {
	var req UpdateTimeRangeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	timeRange := domain.TimeRange{From: req.From, To: req.To}
	h.store.SetTimeRange(timeRange)
	httputil.Success(w, http.StatusOK, timeRange)
}

// UpdateAutoRefresh handles PUT /auto-refresh request.
func (h *Handler) UpdateAutoRefresh(w http.ResponseWriter, r *http.Request) {
	var req UpdateAutoRefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if req.RefreshIntervalMs != nil {
		if err := h.store.SetRefreshInterval(time.Duration(*req.RefreshIntervalMs) * time.Millisecond); err != nil {
			h.handleStoreError(r.Context(), w, err)
			return
		}
	}

	if err := h.store.SetAutoRefresh(*req.Enabled); err != nil {
		h.handleStoreError(r.Context(), w, err)
		return
	}

	httputil.Success(w, http.StatusOK, newDashboardResponse(h.store.Snapshot()))
}

// UpdateSelection handles PUT /selection request.
func (h *Handler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	var req UpdateSelectionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if req.ProblemID == nil {
		h.store.ClearSelection()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	problem, err := h.store.SelectProblem(*req.ProblemID)
	if err != nil {
		h.handleStoreError(r.Context(), w, err)
		return
	}

	httputil.Success(w, http.StatusOK, problem)
}

// GetInsights handles GET /insights request.
func (h *Handler) GetInsights(w http.ResponseWriter, _ *http.Request) {
	httputil.Success(w, http.StatusOK, InsightsResponse{
		Report:    h.analyzer.Latest(),
		Analyzing: h.analyzer.Analyzing(),
	})
}

// RefreshInsights handles POST /insights/refresh request.
func (h *Handler) RefreshInsights(w http.ResponseWriter, r *http.Request) {
	state := h.store.Snapshot()

	report, err := h.analyzer.Analyze(r.Context(), state.Problems, state.Stats)
	if err != nil {
		h.handleStoreError(r.Context(), w, err)
		return
	}

	httputil.Success(w, http.StatusOK, InsightsResponse{
		Report:    report,
		Analyzing: h.analyzer.Analyzing(),
	})
}

var storeErrors = []httputil.ErrorMapping{
	{Target: ErrProblemNotFound, Status: http.StatusNotFound},
	{Target: ErrInvalidInterval, Status: http.StatusBadRequest},
	{Target: ErrStoreClosed, Status: http.StatusServiceUnavailable},
	{Target: ErrFetch, Status: http.StatusBadGateway},
}

func (h *Handler) handleStoreError(ctx context.Context, w http.ResponseWriter, err error) {
	httputil.HandleError(ctx, w, err, storeErrors)
}
