package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nucore/fincore-backend/internal/domain"
	"github.com/nucore/fincore-backend/internal/logger"
)

// lockRetryBackoff is the pause between lock acquisition attempts
const lockRetryBackoff = 10 * time.Millisecond

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	db *DB
	// maxRetries bounds FOR UPDATE NOWAIT attempts before ErrConflict
	maxRetries int
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB, maxRetries int) domain.AccountRepository {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &accountRepository{db: db, maxRetries: maxRetries}
}

// Create creates a new account
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, account_number, type, balance, available_balance, currency, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		account.ID,
		account.UserID,
		account.AccountNumber,
		string(account.Type),
		account.Balance.String(),
		account.AvailableBalance.String(),
		account.Currency,
		account.Active,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return storageErr("create account", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `
		SELECT id, user_id, account_number, type, balance, available_balance, currency, active, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("get account by ID", err)
	}

	return account, nil
}

// ListByUser retrieves a user's active accounts ordered by creation time
func (r *accountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Account, error) {
	query := `
		SELECT id, user_id, account_number, type, balance, available_balance, currency, active, created_at, updated_at
		FROM accounts
		WHERE user_id = $1 AND active = TRUE
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storageErr("list accounts", err)
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, storageErr("scan account", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list accounts", err)
	}

	return accounts, nil
}

// ApplyDelta applies a signed delta to the account balance under a row
// lock and marks the transaction completed in the same database
// transaction. Retries a bounded number of times when the row is locked
// by a concurrent mutation, then fails with ErrConflict.
func (r *accountRepository) ApplyDelta(ctx context.Context, accountID, transactionID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return decimal.Zero, fmt.Errorf("apply delta: %w", domain.ErrConflict)
			case <-time.After(lockRetryBackoff):
			}
		}

		newBalance, err := r.applyDeltaOnce(ctx, accountID, transactionID, delta)
		if err == nil {
			return newBalance, nil
		}
		if !isLockNotAvailable(err) {
			return decimal.Zero, err
		}
		lastErr = err
	}

	logger.Error("account repository lock retry budget exhausted", lastErr, logger.Fields{
		"accountId": accountID,
	})
	return decimal.Zero, fmt.Errorf("apply delta: %w", domain.ErrConflict)
}

func (r *accountRepository) applyDeltaOnce(ctx context.Context, accountID, transactionID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, storageErr("begin apply delta", err)
	}
	defer dbTx.Rollback()

	balance, err := lockAndMutate(ctx, dbTx, accountID, delta)
	if err != nil {
		return decimal.Zero, err
	}

	if err := markCompleted(ctx, dbTx, transactionID); err != nil {
		return decimal.Zero, err
	}

	if err := dbTx.Commit(); err != nil {
		return decimal.Zero, storageErr("commit apply delta", err)
	}

	return balance, nil
}

// ApplyTransfer atomically debits one account, credits another and marks
// both legs completed. Rows are locked in lexicographic id order so
// concurrent opposite transfers cannot deadlock.
func (r *accountRepository) ApplyTransfer(ctx context.Context, debit, credit domain.TransferLeg) error {
	var lastErr error
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("apply transfer: %w", domain.ErrConflict)
			case <-time.After(lockRetryBackoff):
			}
		}

		err := r.applyTransferOnce(ctx, debit, credit)
		if err == nil {
			return nil
		}
		if !isLockNotAvailable(err) {
			return err
		}
		lastErr = err
	}

	logger.Error("account repository transfer lock retry budget exhausted", lastErr, logger.Fields{
		"debitAccountId":  debit.AccountID,
		"creditAccountId": credit.AccountID,
	})
	return fmt.Errorf("apply transfer: %w", domain.ErrConflict)
}

func (r *accountRepository) applyTransferOnce(ctx context.Context, debit, credit domain.TransferLeg) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin apply transfer", err)
	}
	defer dbTx.Rollback()

	// Fixed global lock order: lexicographic by account id
	first, second := debit, credit
	if credit.AccountID.String() < debit.AccountID.String() {
		first, second = credit, debit
	}
	for _, leg := range []domain.TransferLeg{first, second} {
		if err := lockAccountRow(ctx, dbTx, leg.AccountID); err != nil {
			return err
		}
	}

	if _, err := mutateLocked(ctx, dbTx, debit.AccountID, debit.Amount.Neg()); err != nil {
		return err
	}
	if _, err := mutateLocked(ctx, dbTx, credit.AccountID, credit.Amount); err != nil {
		return err
	}

	if err := markCompleted(ctx, dbTx, debit.TransactionID); err != nil {
		return err
	}
	if err := markCompleted(ctx, dbTx, credit.TransactionID); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return storageErr("commit apply transfer", err)
	}

	return nil
}

// lockAndMutate locks the account row and applies the delta
func lockAndMutate(ctx context.Context, dbTx *sql.Tx, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := lockAccountRow(ctx, dbTx, accountID); err != nil {
		return decimal.Zero, err
	}
	return mutateLocked(ctx, dbTx, accountID, delta)
}

// lockAccountRow takes the row lock without waiting; contention surfaces
// as a lock-not-available error so the caller controls the retry budget
func lockAccountRow(ctx context.Context, dbTx *sql.Tx, accountID uuid.UUID) error {
	var id uuid.UUID
	err := dbTx.QueryRowContext(ctx,
		`SELECT id FROM accounts WHERE id = $1 FOR UPDATE NOWAIT`, accountID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if isLockNotAvailable(err) {
			return err
		}
		return storageErr("lock account", err)
	}
	return nil
}

// mutateLocked performs the read-compare-write against an already locked row
func mutateLocked(ctx context.Context, dbTx *sql.Tx, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var (
		balanceStr   string
		availableStr string
		active       bool
	)
	err := dbTx.QueryRowContext(ctx,
		`SELECT balance, available_balance, active FROM accounts WHERE id = $1`, accountID,
	).Scan(&balanceStr, &availableStr, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.ErrNotFound
		}
		return decimal.Zero, storageErr("read balance", err)
	}

	if !active {
		return decimal.Zero, domain.ErrAccountInactive
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, storageErr("parse balance", err)
	}
	available, err := decimal.NewFromString(availableStr)
	if err != nil {
		return decimal.Zero, storageErr("parse available balance", err)
	}

	newAvailable := available.Add(delta)
	if delta.IsNegative() && newAvailable.IsNegative() {
		return decimal.Zero, domain.ErrInsufficientFunds
	}
	newBalance := balance.Add(delta)

	_, err = dbTx.ExecContext(ctx,
		`UPDATE accounts SET balance = $2, available_balance = $3, updated_at = NOW() WHERE id = $1`,
		accountID, newBalance.String(), newAvailable.String(),
	)
	if err != nil {
		return decimal.Zero, storageErr("write balance", err)
	}

	return newBalance, nil
}

// markCompleted finalizes the transaction row inside the same database
// transaction as the balance write, so "balance moved" and "status
// completed" are one atomic outcome
func markCompleted(ctx context.Context, dbTx *sql.Tx, transactionID uuid.UUID) error {
	result, err := dbTx.ExecContext(ctx,
		`UPDATE transactions SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		transactionID, string(domain.TransactionStatusCompleted), string(domain.TransactionStatusPending),
	)
	if err != nil {
		return storageErr("mark transaction completed", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storageErr("mark transaction completed", err)
	}
	if affected == 0 {
		return domain.ErrTransactionTerminal
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*domain.Account, error) {
	var (
		account      domain.Account
		accountType  string
		balanceStr   string
		availableStr string
	)

	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.AccountNumber,
		&accountType,
		&balanceStr,
		&availableStr,
		&account.Currency,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Type = domain.AccountType(accountType)

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	account.Balance = balance

	available, err := decimal.NewFromString(availableStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse available_balance: %w", err)
	}
	account.AvailableBalance = available

	return &account, nil
}
