package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nucore/fincore-backend/internal/domain"
)

type CreateTransactionRequest struct {
	AccountID        uuid.UUID       `json:"accountId"`
	Type             string          `json:"type"`
	Amount           decimal.Decimal `json:"amount"`
	Fee              decimal.Decimal `json:"fee,omitempty"`
	Category         string          `json:"category,omitempty"`
	Description      string          `json:"description,omitempty"`
	RecipientName    string          `json:"recipientName,omitempty"`
	RecipientAccount string          `json:"recipientAccount,omitempty"`
	IdempotencyKey   string          `json:"idempotencyKey,omitempty"`
}

func (r CreateTransactionRequest) Validate() error {
	if r.AccountID == uuid.Nil {
		return domain.ErrInvalidInput
	}
	if !domain.ValidTransactionType(domain.TransactionType(r.Type)) {
		return domain.ErrInvalidInput
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.ErrAmountNotPositive
	}
	if r.Category != "" && !domain.ValidCategory(domain.TransactionCategory(r.Category)) {
		return domain.ErrInvalidInput
	}
	return nil
}

type TransferRequest struct {
	FromAccountID  uuid.UUID       `json:"fromAccountId"`
	ToAccountID    uuid.UUID       `json:"toAccountId"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
}

func (r TransferRequest) Validate() error {
	if r.FromAccountID == uuid.Nil || r.ToAccountID == uuid.Nil {
		return domain.ErrInvalidInput
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.ErrAmountNotPositive
	}
	return nil
}

type TransactionResponse struct {
	ID               string          `json:"id"`
	AccountID        string          `json:"accountId"`
	Type             string          `json:"type"`
	Status           string          `json:"status"`
	Category         string          `json:"category"`
	Amount           decimal.Decimal `json:"amount"`
	Fee              decimal.Decimal `json:"fee"`
	Description      string          `json:"description,omitempty"`
	RecipientName    string          `json:"recipientName,omitempty"`
	RecipientAccount string          `json:"recipientAccount,omitempty"`
	Reference        string          `json:"reference"`
	CounterpartID    string          `json:"counterpartId,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func NewTransactionResponse(tx *domain.Transaction) TransactionResponse {
	response := TransactionResponse{
		ID:               tx.ID.String(),
		AccountID:        tx.AccountID.String(),
		Type:             string(tx.Type),
		Status:           string(tx.Status),
		Category:         string(tx.Category),
		Amount:           tx.Amount,
		Fee:              tx.Fee,
		Description:      tx.Description,
		RecipientName:    tx.RecipientName,
		RecipientAccount: tx.RecipientAccount,
		Reference:        tx.Reference,
		CreatedAt:        tx.CreatedAt,
		UpdatedAt:        tx.UpdatedAt,
	}
	if tx.CounterpartID != nil {
		response.CounterpartID = tx.CounterpartID.String()
	}
	return response
}

func NewTransactionListResponse(transactions []*domain.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		out = append(out, NewTransactionResponse(tx))
	}
	return out
}
