package controller

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nucore/fincore-backend/internal/adapter/http/middleware"
	"github.com/nucore/fincore-backend/internal/adapter/http/models"
	"github.com/nucore/fincore-backend/internal/domain"
	"github.com/nucore/fincore-backend/internal/usecase/analytics"
)

type AnalyticsService interface {
	Overview(ctx context.Context, principal uuid.UUID, filters analytics.Filters) (*analytics.OverviewResult, error)
	CategoryAnalysis(ctx context.Context, principal uuid.UUID, filters analytics.Filters) (*analytics.CategoryAnalysisResult, error)
	MonthlyTrends(ctx context.Context, principal uuid.UUID, months int, filters analytics.Filters) ([]analytics.MonthlyBucket, error)
	TopTransactions(ctx context.Context, principal uuid.UUID, limit int, filters analytics.Filters) ([]*domain.Transaction, error)
	Recent(ctx context.Context, principal uuid.UUID, limit int) ([]*domain.Transaction, error)
}

type AnalyticsController struct {
	service AnalyticsService
}

func NewAnalyticsController(service AnalyticsService) *AnalyticsController {
	return &AnalyticsController{service: service}
}

func (c *AnalyticsController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	register := func(pattern string, handler http.HandlerFunc) {
		if authMiddleware != nil {
			mux.Handle(pattern, authMiddleware(handler))
			return
		}
		mux.Handle(pattern, handler)
	}

	register("GET /api/v1/analytics/overview", c.overview)
	register("GET /api/v1/analytics/categories", c.categories)
	register("GET /api/v1/analytics/monthly", c.monthly)
	register("GET /api/v1/analytics/top", c.top)
	register("GET /api/v1/analytics/recent", c.recent)
}

func (c *AnalyticsController) overview(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[models.OverviewResponse]("unauthorized"))
		return
	}

	filters, err := parseAnalyticsFilters(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse[models.OverviewResponse]("invalid filters", err.Error()))
		return
	}

	result, err := c.service.Overview(r.Context(), principal, filters)
	if err != nil {
		logError(r, err, nil)
		writeJSON(w, statusForError(err), models.ErrorResponse[models.OverviewResponse]("overview failed", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("overview retrieved", models.NewOverviewResponse(result)))
}

func (c *AnalyticsController) categories(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[models.CategoryAnalysisResponse]("unauthorized"))
		return
	}

	filters, err := parseAnalyticsFilters(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse[models.CategoryAnalysisResponse]("invalid filters", err.Error()))
		return
	}

	result, err := c.service.CategoryAnalysis(r.Context(), principal, filters)
	if err != nil {
		logError(r, err, nil)
		writeJSON(w, statusForError(err), models.ErrorResponse[models.CategoryAnalysisResponse]("category analysis failed", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("category analysis retrieved", models.NewCategoryAnalysisResponse(result)))
}

func (c *AnalyticsController) monthly(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[[]models.MonthlyBucketResponse]("unauthorized"))
		return
	}

	filters, err := parseAnalyticsFilters(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse[[]models.MonthlyBucketResponse]("invalid filters", err.Error()))
		return
	}
	months := queryInt(r, "months", 12)

	series, err := c.service.MonthlyTrends(r.Context(), principal, months, filters)
	if err != nil {
		logError(r, err, nil)
		writeJSON(w, statusForError(err), models.ErrorResponse[[]models.MonthlyBucketResponse]("monthly trends failed", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("monthly trends retrieved", models.NewMonthlyTrendsResponse(series)))
}

func (c *AnalyticsController) top(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[[]models.TransactionResponse]("unauthorized"))
		return
	}

	filters, err := parseAnalyticsFilters(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse[[]models.TransactionResponse]("invalid filters", err.Error()))
		return
	}
	limit := queryInt(r, "limit", 10)

	transactions, err := c.service.TopTransactions(r.Context(), principal, limit, filters)
	if err != nil {
		logError(r, err, nil)
		writeJSON(w, statusForError(err), models.ErrorResponse[[]models.TransactionResponse]("top transactions failed", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("top transactions retrieved", models.NewTransactionListResponse(transactions)))
}

func (c *AnalyticsController) recent(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[[]models.TransactionResponse]("unauthorized"))
		return
	}

	limit := queryInt(r, "limit", 5)

	transactions, err := c.service.Recent(r.Context(), principal, limit)
	if err != nil {
		logError(r, err, nil)
		writeJSON(w, statusForError(err), models.ErrorResponse[[]models.TransactionResponse]("recent transactions failed", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("recent transactions retrieved", models.NewTransactionListResponse(transactions)))
}

func parseAnalyticsFilters(r *http.Request) (analytics.Filters, error) {
	var filters analytics.Filters
	query := r.URL.Query()

	if raw := query.Get("accountId"); raw != "" {
		accountID, err := uuid.Parse(raw)
		if err != nil {
			return filters, err
		}
		filters.AccountID = &accountID
	}
	if raw := query.Get("startDate"); raw != "" {
		startDate, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, err
		}
		filters.StartDate = &startDate
	}
	if raw := query.Get("endDate"); raw != "" {
		endDate, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, err
		}
		filters.EndDate = &endDate
	}

	return filters, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
