package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/nucore/fincore-backend/internal/domain"
	"github.com/nucore/fincore-backend/internal/logger"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=fincore sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Migrate creates the ledger schema if it does not exist
func (db *DB) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			account_number TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			balance NUMERIC(15,2) NOT NULL DEFAULT 0,
			available_balance NUMERIC(15,2) NOT NULL DEFAULT 0,
			currency TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT available_balance_non_negative CHECK (available_balance >= 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts (user_id)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			account_id UUID NOT NULL REFERENCES accounts (id),
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			category TEXT NOT NULL,
			amount NUMERIC(15,2) NOT NULL,
			fee NUMERIC(15,2) NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			recipient_name TEXT NOT NULL DEFAULT '',
			recipient_account TEXT NOT NULL DEFAULT '',
			reference TEXT NOT NULL DEFAULT '',
			idempotency_key TEXT NOT NULL DEFAULT '',
			counterpart_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account_id ON transactions (account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_status_created ON transactions (status, created_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_idempotency
			ON transactions (account_id, idempotency_key)
			WHERE idempotency_key <> ''`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}

// storageErr maps driver failures to the StorageUnavailable condition.
// The raw error is logged here and never carried on the returned error,
// so driver text cannot leak past the repository boundary.
func storageErr(op string, err error) error {
	logger.Error("postgres repository storage failure", err, logger.Fields{"op": op})
	return fmt.Errorf("%s: %w", op, domain.ErrStorageUnavailable)
}

// isLockNotAvailable reports whether err means a FOR UPDATE NOWAIT lock
// could not be taken (pq error 55P03) or the transaction lost a
// serialization conflict (40001)
func isLockNotAvailable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "55P03" || pqErr.Code == "40001"
	}
	return false
}

// isUniqueViolation reports whether err is a unique constraint violation (23505)
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
