package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nucore/fincore-backend/internal/adapter/repository/memory"
	"github.com/nucore/fincore-backend/internal/domain"
)

// newMemoryService wires the workflow against the in-memory store so the
// scenarios exercise real per-account serialization
func newMemoryService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore(100)
	service := NewService(store.Accounts(), store.Transactions(), nil, 2*time.Second, time.Minute)
	return service, store
}

func seedAccount(t *testing.T, store *memory.Store, userID uuid.UUID, number string, balance int64) *domain.Account {
	t.Helper()
	account := &domain.Account{
		ID:               uuid.New(),
		UserID:           userID,
		AccountNumber:    number,
		Type:             domain.AccountTypeMain,
		Balance:          decimal.NewFromInt(balance),
		AvailableBalance: decimal.NewFromInt(balance),
		Currency:         domain.DefaultCurrency,
		Active:           true,
	}
	require.NoError(t, store.Accounts().Create(context.Background(), account))
	return account
}

func TestScenario_DepositThenOverdraftAttempt(t *testing.T) {
	ctx := context.Background()
	service, store := newMemoryService(t)

	userID := uuid.New()
	account := seedAccount(t, store, userID, "KZ00000000000000000010", 1000)

	// Deposit 500 completes and the balance becomes 1500
	deposit, err := service.Execute(ctx, userID, CreateTransactionInput{
		AccountID: account.ID,
		Type:      domain.TransactionTypeDeposit,
		Amount:    decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, deposit.Status)

	current, err := store.Accounts().GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, current.Balance.Equal(decimal.NewFromInt(1500)))

	// A withdrawal of 2000 fails with insufficient funds; balance stays 1500
	withdrawal, err := service.Execute(ctx, userID, CreateTransactionInput{
		AccountID: account.ID,
		Type:      domain.TransactionTypeWithdrawal,
		Amount:    decimal.NewFromInt(2000),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	require.NotNil(t, withdrawal)
	assert.Equal(t, domain.TransactionStatusFailed, withdrawal.Status)

	current, err = store.Accounts().GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, current.Balance.Equal(decimal.NewFromInt(1500)))
}

func TestScenario_ConcurrentWithdrawalsOnlyOneSucceeds(t *testing.T) {
	ctx := context.Background()
	service, store := newMemoryService(t)

	userID := uuid.New()
	account := seedAccount(t, store, userID, "KZ00000000000000000011", 1500)

	// Two concurrent withdrawals of 1000 each individually fit the
	// balance but not together
	var wg sync.WaitGroup
	results := make([]*domain.Transaction, 2)
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = service.Execute(ctx, userID, CreateTransactionInput{
				AccountID: account.ID,
				Type:      domain.TransactionTypeWithdrawal,
				Amount:    decimal.NewFromInt(1000),
			})
		}(i)
	}
	wg.Wait()

	completed := 0
	failed := 0
	for i := 0; i < 2; i++ {
		require.NotNil(t, results[i])
		switch results[i].Status {
		case domain.TransactionStatusCompleted:
			require.NoError(t, errs[i])
			completed++
		case domain.TransactionStatusFailed:
			require.Error(t, errs[i])
			failed++
		default:
			t.Fatalf("unexpected status %s", results[i].Status)
		}
	}
	assert.Equal(t, 1, completed, "exactly one withdrawal wins")
	assert.Equal(t, 1, failed, "the loser is failed, never left pending")

	current, err := store.Accounts().GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, current.Balance.Equal(decimal.NewFromInt(500)),
		"final balance reflects exactly one debit, got %s", current.Balance)
}

func TestScenario_BalanceEqualsSumOfCompletedDeltas(t *testing.T) {
	ctx := context.Background()
	service, store := newMemoryService(t)

	userID := uuid.New()
	initial := int64(1000)
	account := seedAccount(t, store, userID, "KZ00000000000000000012", initial)

	inputs := []CreateTransactionInput{
		{AccountID: account.ID, Type: domain.TransactionTypeDeposit, Amount: decimal.NewFromInt(300)},
		{AccountID: account.ID, Type: domain.TransactionTypePayment, Amount: decimal.NewFromInt(120), Fee: decimal.NewFromInt(5), Category: domain.CategoryUtilities},
		{AccountID: account.ID, Type: domain.TransactionTypeWithdrawal, Amount: decimal.NewFromInt(5000)}, // fails
		{AccountID: account.ID, Type: domain.TransactionTypePurchase, Amount: decimal.NewFromInt(75), Category: domain.CategoryShopping},
	}
	for _, input := range inputs {
		_, _ = service.Execute(ctx, userID, input)
	}

	status := domain.TransactionStatusCompleted
	completed, err := service.List(ctx, userID, domain.TransactionFilters{Status: &status})
	require.NoError(t, err)

	expected := decimal.NewFromInt(initial)
	for _, tx := range completed {
		expected = expected.Add(tx.Delta())
	}

	current, err := store.Accounts().GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, current.Balance.Equal(expected),
		"balance %s must equal initial plus completed deltas %s", current.Balance, expected)
	assert.False(t, current.AvailableBalance.IsNegative())
}

func TestScenario_TransferBetweenOwnAccounts(t *testing.T) {
	ctx := context.Background()
	service, store := newMemoryService(t)

	userID := uuid.New()
	main := seedAccount(t, store, userID, "KZ00000000000000000013", 1000)
	savings := seedAccount(t, store, userID, "KZ00000000000000000014", 200)

	debit, err := service.Transfer(ctx, userID, TransferInput{
		FromAccountID: main.ID,
		ToAccountID:   savings.ID,
		Amount:        decimal.NewFromInt(300),
		Description:   "monthly savings",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, debit.Status)
	require.NotNil(t, debit.CounterpartID)

	credit, err := store.Transactions().GetByID(ctx, *debit.CounterpartID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, credit.Status)
	assert.Equal(t, domain.TransactionTypeDeposit, credit.Type)
	assert.Equal(t, savings.ID, credit.AccountID)

	fromAfter, err := store.Accounts().GetByID(ctx, main.ID)
	require.NoError(t, err)
	toAfter, err := store.Accounts().GetByID(ctx, savings.ID)
	require.NoError(t, err)
	assert.True(t, fromAfter.Balance.Equal(decimal.NewFromInt(700)))
	assert.True(t, toAfter.Balance.Equal(decimal.NewFromInt(500)))
}

func TestScenario_TransferInsufficientFundsLeavesBothBalancesUntouched(t *testing.T) {
	ctx := context.Background()
	service, store := newMemoryService(t)

	userID := uuid.New()
	main := seedAccount(t, store, userID, "KZ00000000000000000015", 100)
	savings := seedAccount(t, store, userID, "KZ00000000000000000016", 0)

	debit, err := service.Transfer(ctx, userID, TransferInput{
		FromAccountID: main.ID,
		ToAccountID:   savings.ID,
		Amount:        decimal.NewFromInt(500),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	require.NotNil(t, debit)
	assert.Equal(t, domain.TransactionStatusFailed, debit.Status)

	fromAfter, err := store.Accounts().GetByID(ctx, main.ID)
	require.NoError(t, err)
	toAfter, err := store.Accounts().GetByID(ctx, savings.ID)
	require.NoError(t, err)
	assert.True(t, fromAfter.Balance.Equal(decimal.NewFromInt(100)))
	assert.True(t, toAfter.Balance.Equal(decimal.Zero))
}

func TestCancel_OnlyPendingTransactionsCanBeCancelled(t *testing.T) {
	ctx := context.Background()
	service, store := newMemoryService(t)

	userID := uuid.New()
	account := seedAccount(t, store, userID, "KZ00000000000000000017", 1000)

	pending := &domain.Transaction{
		ID:        uuid.New(),
		AccountID: account.ID,
		Type:      domain.TransactionTypePayment,
		Status:    domain.TransactionStatusPending,
		Category:  domain.CategoryOther,
		Amount:    decimal.NewFromInt(50),
	}
	require.NoError(t, store.Transactions().Create(ctx, pending))

	cancelled, err := service.Cancel(ctx, userID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCancelled, cancelled.Status)

	// A second cancel hits a terminal row
	_, err = service.Cancel(ctx, userID, pending.ID)
	assert.ErrorIs(t, err, domain.ErrTransactionTerminal)

	// Completed transactions cannot be cancelled either
	completed, err := service.Execute(ctx, userID, CreateTransactionInput{
		AccountID: account.ID,
		Type:      domain.TransactionTypeDeposit,
		Amount:    decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	_, err = service.Cancel(ctx, userID, completed.ID)
	assert.ErrorIs(t, err, domain.ErrTransactionTerminal)
}
