package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement
type TransactionType string

const (
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypePurchase   TransactionType = "purchase"
	TransactionTypeUtility    TransactionType = "utility_payment"
)

// TransactionStatus represents the lifecycle state of a transaction.
// Transitions are one-directional: pending -> completed|failed|cancelled.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// TransactionCategory classifies a transaction for analytics
type TransactionCategory string

const (
	CategoryFood          TransactionCategory = "food"
	CategoryTransport     TransactionCategory = "transport"
	CategoryEntertainment TransactionCategory = "entertainment"
	CategoryUtilities     TransactionCategory = "utilities"
	CategoryHealth        TransactionCategory = "health"
	CategoryShopping      TransactionCategory = "shopping"
	CategoryOther         TransactionCategory = "other"
)

// Transaction represents a single money movement against one account.
// Amount is always positive (absolute value); Delta carries the sign.
// A transaction row is never deleted and Amount is immutable after creation.
type Transaction struct {
	ID               uuid.UUID
	AccountID        uuid.UUID
	Type             TransactionType
	Status           TransactionStatus
	Category         TransactionCategory
	Amount           decimal.Decimal
	Fee              decimal.Decimal
	Description      string
	RecipientName    string
	RecipientAccount string
	Reference        string
	IdempotencyKey   string
	// CounterpartID links the two legs of an internal transfer
	CounterpartID *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate ensures the transaction adheres to domain rules
// Returns an error if validation fails
func (t *Transaction) Validate() error {
	if t.AccountID == uuid.Nil {
		return ErrInvalidInput
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrAmountNotPositive
	}
	if t.Fee.IsNegative() {
		return ErrInvalidInput
	}
	if !ValidTransactionType(t.Type) {
		return ErrInvalidInput
	}
	// Deposits credit the full amount; a fee would be recorded but never
	// applied to any balance
	if t.Type == TransactionTypeDeposit && t.Fee.IsPositive() {
		return ErrInvalidInput
	}
	if !ValidCategory(t.Category) {
		return ErrInvalidInput
	}
	return nil
}

// Delta returns the signed amount this transaction applies to the account
// balance once completed: deposits add the amount, every other type
// subtracts amount plus fee.
func (t *Transaction) Delta() decimal.Decimal {
	if t.Type == TransactionTypeDeposit {
		return t.Amount
	}
	return t.Amount.Add(t.Fee).Neg()
}

// IsTerminal reports whether the transaction reached a final state
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted ||
		t.Status == TransactionStatusFailed ||
		t.Status == TransactionStatusCancelled
}

// CanTransitionTo reports whether moving to the given status is a legal
// state-machine transition. Terminal states never transition again.
func (t *Transaction) CanTransitionTo(next TransactionStatus) bool {
	if t.Status != TransactionStatusPending {
		return false
	}
	switch next {
	case TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled:
		return true
	}
	return false
}

// ValidTransactionType reports whether t is a known transaction type
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TransactionTypeTransfer, TransactionTypePayment, TransactionTypeDeposit,
		TransactionTypeWithdrawal, TransactionTypePurchase, TransactionTypeUtility:
		return true
	}
	return false
}

// ValidCategory reports whether c is a known category
func ValidCategory(c TransactionCategory) bool {
	switch c {
	case CategoryFood, CategoryTransport, CategoryEntertainment,
		CategoryUtilities, CategoryHealth, CategoryShopping, CategoryOther:
		return true
	}
	return false
}
