package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nucore/fincore-backend/internal/domain"
)

// MockAccountRepository is a mock implementation of AccountRepository for testing
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ApplyDelta(ctx context.Context, accountID, transactionID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, transactionID, delta)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAccountRepository) ApplyTransfer(ctx context.Context, debit, credit domain.TransferLeg) error {
	args := m.Called(ctx, debit, credit)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of TransactionRepository for testing
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*domain.Transaction, error) {
	args := m.Called(ctx, accountID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, filters domain.TransactionFilters) ([]*domain.Transaction, error) {
	args := m.Called(ctx, userID, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListStalePending(ctx context.Context, cutoff time.Time) ([]*domain.Transaction, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func newTestAccount(userID uuid.UUID, balance int64) *domain.Account {
	return &domain.Account{
		ID:               uuid.New(),
		UserID:           userID,
		AccountNumber:    "KZ00000000000000000001",
		Type:             domain.AccountTypeMain,
		Balance:          decimal.NewFromInt(balance),
		AvailableBalance: decimal.NewFromInt(balance),
		Currency:         domain.DefaultCurrency,
		Active:           true,
	}
}

func TestExecute_DepositCompletes(t *testing.T) {
	ctx := context.Background()
	mockAccountRepo := new(MockAccountRepository)
	mockTxRepo := new(MockTransactionRepository)

	userID := uuid.New()
	account := newTestAccount(userID, 1000)

	service := NewService(mockAccountRepo, mockTxRepo, nil, time.Second, time.Minute)

	mockAccountRepo.On("GetByID", mock.Anything, account.ID).Return(account, nil)
	mockTxRepo.On("Create", mock.Anything, mock.MatchedBy(func(tx *domain.Transaction) bool {
		return tx.Status == domain.TransactionStatusPending &&
			tx.Type == domain.TransactionTypeDeposit &&
			tx.Amount.Equal(decimal.NewFromInt(500))
	})).Return(nil)
	mockAccountRepo.On("ApplyDelta", mock.Anything, account.ID, mock.Anything, mock.MatchedBy(func(delta decimal.Decimal) bool {
		return delta.Equal(decimal.NewFromInt(500))
	})).Return(decimal.NewFromInt(1500), nil)

	tx, err := service.Execute(ctx, userID, CreateTransactionInput{
		AccountID: account.ID,
		Type:      domain.TransactionTypeDeposit,
		Amount:    decimal.NewFromInt(500),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, tx.Status)
	assert.Equal(t, domain.CategoryOther, tx.Category, "category defaults to other")
	assert.NotEmpty(t, tx.Reference)
	mockAccountRepo.AssertExpectations(t)
	mockTxRepo.AssertExpectations(t)
}

func TestExecute_InsufficientFundsMarksFailed(t *testing.T) {
	ctx := context.Background()
	mockAccountRepo := new(MockAccountRepository)
	mockTxRepo := new(MockTransactionRepository)

	userID := uuid.New()
	account := newTestAccount(userID, 100)

	service := NewService(mockAccountRepo, mockTxRepo, nil, time.Second, time.Minute)

	mockAccountRepo.On("GetByID", mock.Anything, account.ID).Return(account, nil)
	mockTxRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	mockAccountRepo.On("ApplyDelta", mock.Anything, account.ID, mock.Anything, mock.Anything).
		Return(decimal.Zero, domain.ErrInsufficientFunds)
	mockTxRepo.On("UpdateStatus", mock.Anything, mock.Anything, domain.TransactionStatusFailed).Return(nil)

	tx, err := service.Execute(ctx, userID, CreateTransactionInput{
		AccountID: account.ID,
		Type:      domain.TransactionTypeWithdrawal,
		Amount:    decimal.NewFromInt(500),
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	require.NotNil(t, tx)
	assert.Equal(t, domain.TransactionStatusFailed, tx.Status)
	mockTxRepo.AssertCalled(t, "UpdateStatus", mock.Anything, tx.ID, domain.TransactionStatusFailed)
}

func TestExecute_ForbiddenForForeignAccount(t *testing.T) {
	ctx := context.Background()
	mockAccountRepo := new(MockAccountRepository)
	mockTxRepo := new(MockTransactionRepository)

	owner := uuid.New()
	account := newTestAccount(owner, 1000)

	service := NewService(mockAccountRepo, mockTxRepo, nil, time.Second, time.Minute)
	mockAccountRepo.On("GetByID", mock.Anything, account.ID).Return(account, nil)

	_, err := service.Execute(ctx, uuid.New(), CreateTransactionInput{
		AccountID: account.ID,
		Type:      domain.TransactionTypeDeposit,
		Amount:    decimal.NewFromInt(10),
	})

	assert.ErrorIs(t, err, domain.ErrForbidden)
	mockTxRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestExecute_RejectsInvalidAmountBeforeAnyMutation(t *testing.T) {
	ctx := context.Background()
	mockAccountRepo := new(MockAccountRepository)
	mockTxRepo := new(MockTransactionRepository)

	userID := uuid.New()
	account := newTestAccount(userID, 1000)

	service := NewService(mockAccountRepo, mockTxRepo, nil, time.Second, time.Minute)
	mockAccountRepo.On("GetByID", mock.Anything, account.ID).Return(account, nil)

	_, err := service.Execute(ctx, userID, CreateTransactionInput{
		AccountID: account.ID,
		Type:      domain.TransactionTypePayment,
		Amount:    decimal.NewFromInt(-5),
	})

	assert.ErrorIs(t, err, domain.ErrAmountNotPositive)
	mockTxRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockAccountRepo.AssertNotCalled(t, "ApplyDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_IdempotentReplayReturnsExisting(t *testing.T) {
	ctx := context.Background()
	mockAccountRepo := new(MockAccountRepository)
	mockTxRepo := new(MockTransactionRepository)

	userID := uuid.New()
	account := newTestAccount(userID, 1000)
	existing := &domain.Transaction{
		ID:             uuid.New(),
		AccountID:      account.ID,
		Type:           domain.TransactionTypePayment,
		Status:         domain.TransactionStatusCompleted,
		Amount:         decimal.NewFromInt(40),
		IdempotencyKey: "retry-key-1",
	}

	service := NewService(mockAccountRepo, mockTxRepo, nil, time.Second, time.Minute)
	mockAccountRepo.On("GetByID", mock.Anything, account.ID).Return(account, nil)
	mockTxRepo.On("GetByIdempotencyKey", mock.Anything, account.ID, "retry-key-1").Return(existing, nil)

	tx, err := service.Execute(ctx, userID, CreateTransactionInput{
		AccountID:      account.ID,
		Type:           domain.TransactionTypePayment,
		Amount:         decimal.NewFromInt(40),
		IdempotencyKey: "retry-key-1",
	})

	require.NoError(t, err)
	assert.Equal(t, existing.ID, tx.ID, "retried request must not create a second transaction")
	mockTxRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockAccountRepo.AssertNotCalled(t, "ApplyDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_StorageFailureLeavesPending(t *testing.T) {
	ctx := context.Background()
	mockAccountRepo := new(MockAccountRepository)
	mockTxRepo := new(MockTransactionRepository)

	userID := uuid.New()
	account := newTestAccount(userID, 1000)

	service := NewService(mockAccountRepo, mockTxRepo, nil, time.Second, time.Minute)
	mockAccountRepo.On("GetByID", mock.Anything, account.ID).Return(account, nil)
	mockTxRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	mockAccountRepo.On("ApplyDelta", mock.Anything, account.ID, mock.Anything, mock.Anything).
		Return(decimal.Zero, domain.ErrStorageUnavailable)

	_, err := service.Execute(ctx, userID, CreateTransactionInput{
		AccountID: account.ID,
		Type:      domain.TransactionTypeWithdrawal,
		Amount:    decimal.NewFromInt(10),
	})

	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	// The terminal status cannot be confirmed, so the row must stay
	// pending for the reconciler instead of being guessed at
	mockTxRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcileStalePending_FailsStaleRows(t *testing.T) {
	ctx := context.Background()
	mockAccountRepo := new(MockAccountRepository)
	mockTxRepo := new(MockTransactionRepository)

	stale := []*domain.Transaction{
		{ID: uuid.New(), Status: domain.TransactionStatusPending, CreatedAt: time.Now().Add(-time.Hour)},
		{ID: uuid.New(), Status: domain.TransactionStatusPending, CreatedAt: time.Now().Add(-2 * time.Hour)},
	}

	service := NewService(mockAccountRepo, mockTxRepo, nil, time.Second, time.Minute)
	mockTxRepo.On("ListStalePending", mock.Anything, mock.Anything).Return(stale, nil)
	mockTxRepo.On("UpdateStatus", mock.Anything, stale[0].ID, domain.TransactionStatusFailed).Return(nil)
	mockTxRepo.On("UpdateStatus", mock.Anything, stale[1].ID, domain.TransactionStatusFailed).
		Return(domain.ErrTransactionTerminal)

	reconciled, err := service.ReconcileStalePending(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, reconciled, "a row already finalized by a racing writer is not re-counted")
}
