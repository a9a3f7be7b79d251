package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nucore/fincore-backend/internal/adapter/http/middleware"
	"github.com/nucore/fincore-backend/internal/adapter/http/models"
	"github.com/nucore/fincore-backend/internal/domain"
	"github.com/nucore/fincore-backend/internal/logger"
	"github.com/nucore/fincore-backend/internal/usecase/account"
)

type AccountService interface {
	Create(ctx context.Context, principal uuid.UUID, input account.CreateAccountInput) (*domain.Account, error)
	List(ctx context.Context, principal uuid.UUID) ([]*domain.Account, error)
	Get(ctx context.Context, principal uuid.UUID, accountID uuid.UUID) (*domain.Account, error)
	TotalBalance(ctx context.Context, principal uuid.UUID) (*account.TotalBalanceResult, error)
}

type AccountController struct {
	service AccountService
}

func NewAccountController(service AccountService) *AccountController {
	return &AccountController{service: service}
}

func (c *AccountController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	register := func(pattern string, handler http.HandlerFunc) {
		if authMiddleware != nil {
			mux.Handle(pattern, authMiddleware(handler))
			return
		}
		mux.Handle(pattern, handler)
	}

	register("POST /api/v1/accounts", c.create)
	register("GET /api/v1/accounts", c.list)
	register("GET /api/v1/accounts/balance", c.totalBalance)
	register("GET /api/v1/accounts/{id}", c.get)
}

func (c *AccountController) create(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[models.AccountResponse]("unauthorized"))
		return
	}

	var req models.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse[models.AccountResponse]("invalid request body", err.Error()))
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse[models.AccountResponse]("validation failed", err.Error()))
		return
	}

	created, err := c.service.Create(r.Context(), principal, account.CreateAccountInput{
		Type:           domain.AccountType(req.Type),
		Currency:       req.Currency,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		logError(r, err, nil)
		status := statusForError(err)
		writeJSON(w, status, models.ErrorResponse[models.AccountResponse]("account creation failed", err.Error()))
		return
	}

	response := models.SuccessResponse("account created", models.NewAccountResponse(created))
	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *AccountController) list(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[[]models.AccountResponse]("unauthorized"))
		return
	}

	accounts, err := c.service.List(r.Context(), principal)
	if err != nil {
		logError(r, err, nil)
		writeJSON(w, statusForError(err), models.ErrorResponse[[]models.AccountResponse]("account listing failed", err.Error()))
		return
	}

	out := make([]models.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, models.NewAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, models.SuccessResponse("accounts retrieved", out))
}

func (c *AccountController) get(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[models.AccountResponse]("unauthorized"))
		return
	}

	accountID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse[models.AccountResponse]("invalid account id", err.Error()))
		return
	}

	fetched, err := c.service.Get(r.Context(), principal, accountID)
	if err != nil {
		logError(r, err, logger.Fields{"accountId": accountID})
		writeJSON(w, statusForError(err), models.ErrorResponse[models.AccountResponse]("account retrieval failed", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("account retrieved", models.NewAccountResponse(fetched)))
}

func (c *AccountController) totalBalance(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse[models.TotalBalanceResponse]("unauthorized"))
		return
	}

	result, err := c.service.TotalBalance(r.Context(), principal)
	if err != nil {
		logError(r, err, nil)
		writeJSON(w, statusForError(err), models.ErrorResponse[models.TotalBalanceResponse]("balance retrieval failed", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse("total balance retrieved", models.NewTotalBalanceResponse(result)))
}
