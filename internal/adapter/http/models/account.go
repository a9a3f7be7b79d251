package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nucore/fincore-backend/internal/domain"
	"github.com/nucore/fincore-backend/internal/usecase/account"
)

type CreateAccountRequest struct {
	Type           string          `json:"type"`
	Currency       string          `json:"currency,omitempty"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
}

func (r CreateAccountRequest) Validate() error {
	switch domain.AccountType(r.Type) {
	case domain.AccountTypeMain, domain.AccountTypeSavings, domain.AccountTypeBusiness:
	default:
		return domain.ErrInvalidInput
	}
	if r.InitialBalance.IsNegative() {
		return domain.ErrInvalidInput
	}
	return nil
}

type AccountResponse struct {
	ID               string          `json:"id"`
	AccountNumber    string          `json:"accountNumber"`
	Type             string          `json:"type"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	Currency         string          `json:"currency"`
	Active           bool            `json:"isActive"`
	CreatedAt        time.Time       `json:"createdAt"`
}

func NewAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:               a.ID.String(),
		AccountNumber:    a.AccountNumber,
		Type:             string(a.Type),
		Balance:          a.Balance,
		AvailableBalance: a.AvailableBalance,
		Currency:         a.Currency,
		Active:           a.Active,
		CreatedAt:        a.CreatedAt,
	}
}

type BalanceSummaryResponse struct {
	AccountID        string          `json:"accountId"`
	AccountNumber    string          `json:"accountNumber"`
	Type             string          `json:"type"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	Currency         string          `json:"currency"`
}

type TotalBalanceResponse struct {
	Total          decimal.Decimal          `json:"total"`
	TotalAvailable decimal.Decimal          `json:"totalAvailable"`
	MainAccount    *BalanceSummaryResponse  `json:"mainAccount,omitempty"`
	SavingsAccount *BalanceSummaryResponse  `json:"savingsAccount,omitempty"`
	Accounts       []BalanceSummaryResponse `json:"accounts"`
}

func NewTotalBalanceResponse(result *account.TotalBalanceResult) TotalBalanceResponse {
	response := TotalBalanceResponse{
		Total:          result.Total,
		TotalAvailable: result.TotalAvailable,
		Accounts:       make([]BalanceSummaryResponse, 0, len(result.Accounts)),
	}
	for _, summary := range result.Accounts {
		response.Accounts = append(response.Accounts, newBalanceSummaryResponse(summary))
	}
	if result.MainAccount != nil {
		main := newBalanceSummaryResponse(*result.MainAccount)
		response.MainAccount = &main
	}
	if result.SavingsAccount != nil {
		savings := newBalanceSummaryResponse(*result.SavingsAccount)
		response.SavingsAccount = &savings
	}
	return response
}

func newBalanceSummaryResponse(summary account.BalanceSummary) BalanceSummaryResponse {
	return BalanceSummaryResponse{
		AccountID:        summary.AccountID.String(),
		AccountNumber:    summary.AccountNumber,
		Type:             string(summary.Type),
		Balance:          summary.Balance,
		AvailableBalance: summary.AvailableBalance,
		Currency:         summary.Currency,
	}
}
