package seeder

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nucore/fincore-backend/internal/domain"
	"github.com/nucore/fincore-backend/internal/logger"
)

// Fixed UUIDs for the demo dataset so repeated boots reuse the same rows
var (
	DEMO_USER            = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	DEMO_MAIN_ACCOUNT    = uuid.MustParse("00000000-0000-0000-0000-000000000010")
	DEMO_SAVINGS_ACCOUNT = uuid.MustParse("00000000-0000-0000-0000-000000000011")
)

// demoAccount defines the structure for a demo account to be seeded
type demoAccount struct {
	ID            uuid.UUID
	AccountNumber string
	Type          domain.AccountType
	Balance       decimal.Decimal
}

// DemoSeeder handles seeding of the demo user's accounts
type DemoSeeder struct {
	repo domain.AccountRepository
}

// NewDemoSeeder creates a new DemoSeeder instance
func NewDemoSeeder(repo domain.AccountRepository) *DemoSeeder {
	return &DemoSeeder{
		repo: repo,
	}
}

// Seed ensures the demo user's main and savings accounts exist.
// Accounts that already exist are left untouched.
func (s *DemoSeeder) Seed(ctx context.Context) error {
	demoAccounts := []demoAccount{
		{
			ID:            DEMO_MAIN_ACCOUNT,
			AccountNumber: "KZ00000000000000000001",
			Type:          domain.AccountTypeMain,
			Balance:       decimal.NewFromInt(100000),
		},
		{
			ID:            DEMO_SAVINGS_ACCOUNT,
			AccountNumber: "KZ00000000000000000002",
			Type:          domain.AccountTypeSavings,
			Balance:       decimal.NewFromInt(50000),
		},
	}

	for _, demo := range demoAccounts {
		_, err := s.repo.GetByID(ctx, demo.ID)
		if err == nil {
			continue
		}

		account := &domain.Account{
			ID:               demo.ID,
			UserID:           DEMO_USER,
			AccountNumber:    demo.AccountNumber,
			Type:             demo.Type,
			Balance:          demo.Balance,
			AvailableBalance: demo.Balance,
			Currency:         domain.DefaultCurrency,
			Active:           true,
		}

		if err := account.Validate(); err != nil {
			return err
		}

		if err := s.repo.Create(ctx, account); err != nil {
			return err
		}

		logger.Info("seeder demo account created", logger.Fields{
			"accountId":     account.ID,
			"accountNumber": account.AccountNumber,
		})
	}

	return nil
}
