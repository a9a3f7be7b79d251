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
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `id, account_id, type, status, category, amount, fee,
	description, recipient_name, recipient_account, reference, idempotency_key,
	counterpart_id, created_at, updated_at`

// Create inserts a new transaction row
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, type, status, category, amount, fee,
			description, recipient_name, recipient_account, reference, idempotency_key, counterpart_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	var counterpart any
	if tx.CounterpartID != nil {
		counterpart = *tx.CounterpartID
	}

	err := r.db.QueryRowContext(ctx, query,
		tx.ID,
		tx.AccountID,
		string(tx.Type),
		string(tx.Status),
		string(tx.Category),
		tx.Amount.String(),
		tx.Fee.String(),
		tx.Description,
		tx.RecipientName,
		tx.RecipientAccount,
		tx.Reference,
		tx.IdempotencyKey,
		counterpart,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateIdempotencyKey
		}
		return storageErr("create transaction", err)
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("get transaction by ID", err)
	}

	return tx, nil
}

// GetByIdempotencyKey retrieves the transaction previously created on the
// account with the given key
func (r *transactionRepository) GetByIdempotencyKey(ctx context.Context, accountID uuid.UUID, key string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = $1 AND idempotency_key = $2`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, accountID, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("get transaction by idempotency key", err)
	}

	return tx, nil
}

// UpdateStatus moves a pending transaction to the given status. The
// WHERE clause enforces the one-directional state machine at the storage
// layer, so racing finalizers cannot both win.
func (r *transactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		id, string(status), string(domain.TransactionStatusPending),
	)
	if err != nil {
		return storageErr("update transaction status", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storageErr("update transaction status", err)
	}
	if affected == 0 {
		// Distinguish a missing row from a finished one
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrTransactionTerminal
	}

	return nil
}

// ListByUser retrieves transactions across all of the user's accounts
func (r *transactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, filters domain.TransactionFilters) ([]*domain.Transaction, error) {
	query := `
		SELECT t.id, t.account_id, t.type, t.status, t.category, t.amount, t.fee,
			t.description, t.recipient_name, t.recipient_account, t.reference, t.idempotency_key,
			t.counterpart_id, t.created_at, t.updated_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.user_id = $1
	`
	args := []any{userID}

	if filters.AccountID != nil {
		args = append(args, *filters.AccountID)
		query += fmt.Sprintf(" AND t.account_id = $%d", len(args))
	}
	if filters.Type != nil {
		args = append(args, string(*filters.Type))
		query += fmt.Sprintf(" AND t.type = $%d", len(args))
	}
	if filters.Status != nil {
		args = append(args, string(*filters.Status))
		query += fmt.Sprintf(" AND t.status = $%d", len(args))
	}
	if filters.Category != nil {
		args = append(args, string(*filters.Category))
		query += fmt.Sprintf(" AND t.category = $%d", len(args))
	}
	if filters.StartDate != nil {
		args = append(args, *filters.StartDate)
		query += fmt.Sprintf(" AND t.created_at >= $%d", len(args))
	}
	if filters.EndDate != nil {
		args = append(args, *filters.EndDate)
		query += fmt.Sprintf(" AND t.created_at <= $%d", len(args))
	}

	if filters.SortByAmountDesc {
		query += " ORDER BY t.amount DESC"
	} else {
		query += " ORDER BY t.created_at DESC"
	}
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list transactions", err)
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, storageErr("scan transaction", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list transactions", err)
	}

	return transactions, nil
}

// ListStalePending retrieves pending transactions created before the cutoff
func (r *transactionRepository) ListStalePending(ctx context.Context, cutoff time.Time) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE status = $1 AND created_at < $2`

	rows, err := r.db.QueryContext(ctx, query, string(domain.TransactionStatusPending), cutoff)
	if err != nil {
		return nil, storageErr("list stale pending transactions", err)
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, storageErr("scan transaction", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list stale pending transactions", err)
	}

	return transactions, nil
}

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var (
		tx          domain.Transaction
		txType      string
		status      string
		category    string
		amountStr   string
		feeStr      string
		counterpart sql.NullString
	)

	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&txType,
		&status,
		&category,
		&amountStr,
		&feeStr,
		&tx.Description,
		&tx.RecipientName,
		&tx.RecipientAccount,
		&tx.Reference,
		&tx.IdempotencyKey,
		&counterpart,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Type = domain.TransactionType(txType)
	tx.Status = domain.TransactionStatus(status)
	tx.Category = domain.TransactionCategory(category)

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	tx.Amount = amount

	fee, err := decimal.NewFromString(feeStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fee: %w", err)
	}
	tx.Fee = fee

	if counterpart.Valid {
		counterpartID, err := uuid.Parse(counterpart.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse counterpart_id: %w", err)
		}
		tx.CounterpartID = &counterpartID
	}

	return &tx, nil
}
