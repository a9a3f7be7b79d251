package domain

import "errors"

var (
	// ErrNotFound is returned when an account or transaction does not exist
	ErrNotFound = errors.New("record not found")

	// ErrForbidden is returned when the principal does not own the resource
	ErrForbidden = errors.New("resource belongs to another user")

	// ErrInsufficientFunds is returned when a debit exceeds the available balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflict is returned when a concurrent mutation could not be
	// serialized within the retry budget
	ErrConflict = errors.New("concurrent balance mutation conflict")

	// ErrInvalidInput is returned for malformed amounts, types, categories or dates
	ErrInvalidInput = errors.New("invalid input")

	// ErrAmountNotPositive is returned when a transaction amount is zero or negative
	ErrAmountNotPositive = errors.New("amount must be positive")

	// ErrAccountInactive is returned when mutating a deactivated account
	ErrAccountInactive = errors.New("account is not active")

	// ErrTransactionTerminal is returned on an attempt to move a
	// completed/failed/cancelled transaction to another status
	ErrTransactionTerminal = errors.New("transaction already in a terminal status")

	// ErrDuplicateIdempotencyKey is returned when an idempotency key was
	// already used for another transaction on the same account
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")

	// ErrStorageUnavailable wraps persistence-layer failures so raw driver
	// errors never leak to callers
	ErrStorageUnavailable = errors.New("storage unavailable")
)
