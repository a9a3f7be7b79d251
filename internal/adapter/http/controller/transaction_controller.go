package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nucore/fincore-backend/internal/adapter/http/middleware"
	"github.com/nucore/fincore-backend/internal/adapter/http/models"
	"github.com/nucore/fincore-backend/internal/domain"
	"github.com/nucore/fincore-backend/internal/logger"
	"github.com/nucore/fincore-backend/internal/usecase/ledger"
)

type TransactionService interface {
	Execute(ctx context.Context, principal uuid.UUID, input ledger.CreateTransactionInput) (*domain.Transaction, error)
	Transfer(ctx context.Context, principal uuid.UUID, input ledger.TransferInput) (*domain.Transaction, error)
	Cancel(ctx context.Context, principal uuid.UUID, transactionID uuid.UUID) (*domain.Transaction, error)
	Get(ctx context.Context, principal uuid.UUID, transactionID uuid.UUID) (*domain.Transaction, error)
	List(ctx context.Context, principal uuid.UUID, filters domain.TransactionFilters) ([]*domain.Transaction, error)
}

type TransactionController struct {
	service TransactionService
}

func NewTransactionController(service TransactionService) *TransactionController {
	return &TransactionController{service: service}
}

func (c *TransactionController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	register := func(pattern string, handler http.HandlerFunc) {
		if authMiddleware != nil {
			mux.Handle(pattern, authMiddleware(handler))
			return
		}
		mux.Handle(pattern, handler)
	}

	register("POST /api/v1/transactions", c.create)
	register("POST /api/v1/transactions/transfer", c.transfer)
	register("GET /api/v1/transactions", c.list)
	register("GET /api/v1/transactions/{id}", c.get)
	register("POST /api/v1/transactions/{id}/cancel", c.cancel)
}

func (c *TransactionController) create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[models.TransactionResponse]("unauthorized"))
		return
	}

	var req models.CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse[models.TransactionResponse]("invalid request body", err.Error()))
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()))
		return
	}

	tx, err := c.service.Execute(r.Context(), principal, ledger.CreateTransactionInput{
		AccountID:        req.AccountID,
		Type:             domain.TransactionType(req.Type),
		Amount:           req.Amount,
		Fee:              req.Fee,
		Category:         domain.TransactionCategory(req.Category),
		Description:      req.Description,
		RecipientName:    req.RecipientName,
		RecipientAccount: req.RecipientAccount,
		IdempotencyKey:   req.IdempotencyKey,
	})
	if err != nil {
		logError(r, err, nil)
		status := statusForError(err)
		// A failed transaction is still a recorded outcome worth returning
		if tx != nil {
			response := models.Response[models.TransactionResponse]{
				Success: false,
				Message: "transaction failed",
				Errors:  []string{err.Error()},
			}
			data := models.NewTransactionResponse(tx)
			response.Data = &data
			writeJSON(w, status, response)
			logResponse(r, status, response, start)
			return
		}
		writeJSON(w, status, models.ErrorResponse[models.TransactionResponse]("transaction failed", err.Error()))
		return
	}

	response := models.SuccessResponse("transaction completed", models.NewTransactionResponse(tx))
	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *TransactionController) transfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[models.TransactionResponse]("unauthorized"))
		return
	}

	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse[models.TransactionResponse]("invalid request body", err.Error()))
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse[models.TransactionResponse]("validation failed", err.Error()))
		return
	}

	debit, err := c.service.Transfer(r.Context(), principal, ledger.TransferInput{
		FromAccountID:  req.FromAccountID,
		ToAccountID:    req.ToAccountID,
		Amount:         req.Amount,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		logError(r, err, nil)
		status := statusForError(err)
		if debit != nil {
			response := models.Response[models.TransactionResponse]{
				Success: false,
				Message: "transfer failed",
				Errors:  []string{err.Error()},
			}
			data := models.NewTransactionResponse(debit)
			response.Data = &data
			writeJSON(w, status, response)
			logResponse(r, status, response, start)
			return
		}
		writeJSON(w, status, models.ErrorResponse[models.TransactionResponse]("transfer failed", err.Error()))
		return
	}

	response := models.SuccessResponse("transfer completed", models.NewTransactionResponse(debit))
	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *TransactionController) get(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[models.TransactionResponse]("unauthorized"))
		return
	}

	transactionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse[models.TransactionResponse]("invalid transaction id", err.Error()))
		return
	}

	tx, err := c.service.Get(r.Context(), principal, transactionID)
	if err != nil {
		logError(r, err, logger.Fields{"transactionId": transactionID})
		writeJSON(w, statusForError(err), models.ErrorResponse[models.TransactionResponse]("transaction retrieval failed", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("transaction retrieved", models.NewTransactionResponse(tx)))
}

func (c *TransactionController) cancel(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[models.TransactionResponse]("unauthorized"))
		return
	}

	transactionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse[models.TransactionResponse]("invalid transaction id", err.Error()))
		return
	}

	tx, err := c.service.Cancel(r.Context(), principal, transactionID)
	if err != nil {
		logError(r, err, logger.Fields{"transactionId": transactionID})
		writeJSON(w, statusForError(err), models.ErrorResponse[models.TransactionResponse]("transaction cancellation failed", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("transaction cancelled", models.NewTransactionResponse(tx)))
}

func (c *TransactionController) list(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[[]models.TransactionResponse]("unauthorized"))
		return
	}

	filters, err := parseTransactionFilters(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse[[]models.TransactionResponse]("invalid filters", err.Error()))
		return
	}

	transactions, err := c.service.List(r.Context(), principal, filters)
	if err != nil {
		logError(r, err, nil)
		writeJSON(w, statusForError(err), models.ErrorResponse[[]models.TransactionResponse]("transaction listing failed", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("transactions retrieved", models.NewTransactionListResponse(transactions)))
}

func parseTransactionFilters(r *http.Request) (domain.TransactionFilters, error) {
	var filters domain.TransactionFilters
	query := r.URL.Query()

	if raw := query.Get("accountId"); raw != "" {
		accountID, err := uuid.Parse(raw)
		if err != nil {
			return filters, err
		}
		filters.AccountID = &accountID
	}
	if raw := query.Get("type"); raw != "" {
		txType := domain.TransactionType(raw)
		if !domain.ValidTransactionType(txType) {
			return filters, domain.ErrInvalidInput
		}
		filters.Type = &txType
	}
	if raw := query.Get("status"); raw != "" {
		status := domain.TransactionStatus(raw)
		filters.Status = &status
	}
	if raw := query.Get("category"); raw != "" {
		category := domain.TransactionCategory(raw)
		if !domain.ValidCategory(category) {
			return filters, domain.ErrInvalidInput
		}
		filters.Category = &category
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
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filters, err
		}
		filters.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return filters, err
		}
		filters.Offset = offset
	}

	return filters, nil
}
