package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType represents the type of account offered to users
type AccountType string

const (
	AccountTypeMain     AccountType = "main"
	AccountTypeSavings  AccountType = "savings"
	AccountTypeBusiness AccountType = "business"
)

// DefaultCurrency is applied when an account is created without an explicit currency
const DefaultCurrency = "KZT"

// Account represents a user's account in the domain layer.
// Balance fields are mutated only through AccountRepository.ApplyDelta /
// ApplyTransfer, never written directly.
type Account struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	AccountNumber    string
	Type             AccountType
	Balance          decimal.Decimal
	AvailableBalance decimal.Decimal // never negative, never above Balance
	Currency         string
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate ensures the account adheres to domain rules
// Returns an error if validation fails
func (a *Account) Validate() error {
	if a.UserID == uuid.Nil {
		return ErrInvalidInput
	}
	if a.AccountNumber == "" {
		return ErrInvalidInput
	}
	switch a.Type {
	case AccountTypeMain, AccountTypeSavings, AccountTypeBusiness:
	default:
		return ErrInvalidInput
	}
	if a.AvailableBalance.IsNegative() {
		return ErrInvalidInput
	}
	if a.AvailableBalance.GreaterThan(a.Balance) {
		return ErrInvalidInput
	}
	return nil
}

// CanDebit reports whether a debit of the given amount fits the
// available balance. Deposits never consult this.
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return a.Active && a.AvailableBalance.GreaterThanOrEqual(amount)
}

// OwnedBy reports whether the account belongs to the given principal
func (a *Account) OwnedBy(userID uuid.UUID) bool {
	return a.UserID == userID
}
