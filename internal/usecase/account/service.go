package account

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nucore/fincore-backend/internal/domain"
	"github.com/nucore/fincore-backend/internal/logger"
)

// CreateAccountInput represents the input for provisioning an account
type CreateAccountInput struct {
	Type           domain.AccountType
	Currency       string
	InitialBalance decimal.Decimal
}

// BalanceSummary is the per-account slice of a total balance report
type BalanceSummary struct {
	AccountID        uuid.UUID
	AccountNumber    string
	Type             domain.AccountType
	Balance          decimal.Decimal
	AvailableBalance decimal.Decimal
	Currency         string
}

// TotalBalanceResult aggregates balances across a user's active accounts
type TotalBalanceResult struct {
	Total          decimal.Decimal
	TotalAvailable decimal.Decimal
	MainAccount    *BalanceSummary
	SavingsAccount *BalanceSummary
	Accounts       []BalanceSummary
}

// Service handles account provisioning and balance reads
type Service struct {
	AccountRepo domain.AccountRepository
}

// NewService creates a new account Service instance
func NewService(accountRepo domain.AccountRepository) *Service {
	return &Service{AccountRepo: accountRepo}
}

// Create provisions a new account for the principal with a generated
// account number. The initial balance may be zero.
func (s *Service) Create(ctx context.Context, principal uuid.UUID, input CreateAccountInput) (*domain.Account, error) {
	if input.InitialBalance.IsNegative() {
		return nil, fmt.Errorf("initial balance cannot be negative: %w", domain.ErrInvalidInput)
	}

	currency := input.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	account := &domain.Account{
		ID:               uuid.New(),
		UserID:           principal,
		AccountNumber:    generateAccountNumber(),
		Type:             input.Type,
		Balance:          input.InitialBalance,
		AvailableBalance: input.InitialBalance,
		Currency:         currency,
		Active:           true,
	}
	if err := account.Validate(); err != nil {
		return nil, err
	}

	if err := s.AccountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	logger.Info("account service account created", logger.Fields{
		"accountId":     account.ID,
		"accountNumber": account.AccountNumber,
		"type":          string(account.Type),
	})

	return account, nil
}

// List retrieves the principal's active accounts
func (s *Service) List(ctx context.Context, principal uuid.UUID) ([]*domain.Account, error) {
	return s.AccountRepo.ListByUser(ctx, principal)
}

// Get retrieves one account owned by the principal
func (s *Service) Get(ctx context.Context, principal uuid.UUID, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.AccountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.OwnedBy(principal) {
		return nil, domain.ErrForbidden
	}
	return account, nil
}

// TotalBalance sums balances across the principal's active accounts and
// breaks out the main and savings accounts when present
func (s *Service) TotalBalance(ctx context.Context, principal uuid.UUID) (*TotalBalanceResult, error) {
	accounts, err := s.AccountRepo.ListByUser(ctx, principal)
	if err != nil {
		return nil, err
	}

	result := &TotalBalanceResult{
		Total:          decimal.Zero,
		TotalAvailable: decimal.Zero,
		Accounts:       make([]BalanceSummary, 0, len(accounts)),
	}

	for _, account := range accounts {
		summary := BalanceSummary{
			AccountID:        account.ID,
			AccountNumber:    account.AccountNumber,
			Type:             account.Type,
			Balance:          account.Balance,
			AvailableBalance: account.AvailableBalance,
			Currency:         account.Currency,
		}
		result.Accounts = append(result.Accounts, summary)
		result.Total = result.Total.Add(account.Balance)
		result.TotalAvailable = result.TotalAvailable.Add(account.AvailableBalance)

		switch account.Type {
		case domain.AccountTypeMain:
			if result.MainAccount == nil {
				copied := summary
				result.MainAccount = &copied
			}
		case domain.AccountTypeSavings:
			if result.SavingsAccount == nil {
				copied := summary
				result.SavingsAccount = &copied
			}
		}
	}

	return result, nil
}

var accountNumberCounter uint32

// generateAccountNumber builds a display account number: KZ + UTC
// timestamp + zero-padded rolling counter (20 digits total). Uniqueness
// is ultimately enforced by the store.
func generateAccountNumber() string {
	n := atomic.AddUint32(&accountNumberCounter, 1) % 1000000
	return fmt.Sprintf("KZ%s%06d", time.Now().UTC().Format("20060102150405"), n)
}
