package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository defines the interface for account persistence operations
type AccountRepository interface {
	// Create creates a new account
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// ListByUser retrieves a user's active accounts ordered by creation time
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Account, error)

	// ApplyDelta applies a signed delta to the account balance and, in the
	// same atomic unit, marks the given transaction completed. The
	// read-compare-write is serialized per account: concurrent callers on
	// the same account never both pass a balance check only one can
	// satisfy. Returns the new balance.
	//
	// Errors: ErrNotFound, ErrAccountInactive, ErrInsufficientFunds when a
	// negative delta does not fit the available balance, ErrConflict when
	// the row could not be locked within the retry budget.
	ApplyDelta(ctx context.Context, accountID, transactionID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)

	// ApplyTransfer atomically debits one account, credits another and
	// marks both legs completed. Locks are taken in a fixed global order
	// regardless of argument order, so concurrent opposite transfers
	// cannot deadlock.
	ApplyTransfer(ctx context.Context, debit TransferLeg, credit TransferLeg) error
}

// TransferLeg names one side of an internal transfer
type TransferLeg struct {
	AccountID     uuid.UUID
	TransactionID uuid.UUID
	Amount        decimal.Decimal // absolute value moved on this leg
}

// TransactionFilters narrows transaction list queries.
// Nil pointer fields mean "no filter".
type TransactionFilters struct {
	AccountID        *uuid.UUID
	Type             *TransactionType
	Status           *TransactionStatus
	Category         *TransactionCategory
	StartDate        *time.Time
	EndDate          *time.Time
	SortByAmountDesc bool
	Limit            int
	Offset           int
}

// TransactionRepository defines the interface for transaction persistence operations
type TransactionRepository interface {
	// Create inserts a new transaction row (normally pending).
	// Returns ErrDuplicateIdempotencyKey when the account already has a
	// transaction with the same idempotency key.
	Create(ctx context.Context, tx *Transaction) error

	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// GetByIdempotencyKey retrieves the transaction previously created on
	// the account with the given key, or ErrNotFound
	GetByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*Transaction, error)

	// UpdateStatus moves a pending transaction to the given status.
	// Returns ErrTransactionTerminal if the row already left pending;
	// the transition is enforced at the storage layer so concurrent
	// finalizers cannot both win.
	UpdateStatus(ctx context.Context, id uuid.UUID, status TransactionStatus) error

	// ListByUser retrieves transactions across all of the user's accounts,
	// newest first unless SortByAmountDesc is set
	ListByUser(ctx context.Context, userID uuid.UUID, filters TransactionFilters) ([]*Transaction, error)

	// ListStalePending retrieves pending transactions created before the cutoff
	ListStalePending(ctx context.Context, cutoff time.Time) ([]*Transaction, error)
}
