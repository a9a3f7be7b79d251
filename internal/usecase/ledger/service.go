// Package ledger implements the transaction workflow: a creation request
// becomes a pending row, the balance mutation and completed-status write
// happen as one atomic outcome, and every other path ends in failed or
// cancelled. Pending is never a resting state.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nucore/fincore-backend/internal/domain"
	"github.com/nucore/fincore-backend/internal/logger"
)

// CreateTransactionInput represents the input for executing a transaction
type CreateTransactionInput struct {
	AccountID        uuid.UUID
	Type             domain.TransactionType
	Amount           decimal.Decimal
	Fee              decimal.Decimal
	Category         domain.TransactionCategory
	Description      string
	RecipientName    string
	RecipientAccount string
	// IdempotencyKey deduplicates retried requests; optional
	IdempotencyKey string
}

// TransferInput represents the input for a transfer between two accounts
// of the same owner
type TransferInput struct {
	FromAccountID  uuid.UUID
	ToAccountID    uuid.UUID
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// Notifier receives transaction settlement events for the owning user
type Notifier interface {
	TransactionSettled(userID uuid.UUID, tx *domain.Transaction)
}

// Service orchestrates the transaction workflow
type Service struct {
	AccountRepo     domain.AccountRepository
	TransactionRepo domain.TransactionRepository
	Notifier        Notifier
	// Timeout bounds one workflow invocation; on expiry the transaction
	// is failed rather than left pending
	Timeout time.Duration
	// StaleAfter is the pending age at which reconciliation fails a transaction
	StaleAfter time.Duration
}

// NewService creates a new ledger workflow Service instance
func NewService(
	accountRepo domain.AccountRepository,
	transactionRepo domain.TransactionRepository,
	notifier Notifier,
	timeout time.Duration,
	staleAfter time.Duration,
) *Service {
	return &Service{
		AccountRepo:     accountRepo,
		TransactionRepo: transactionRepo,
		Notifier:        notifier,
		Timeout:         timeout,
		StaleAfter:      staleAfter,
	}
}

// Execute runs the full workflow for a single-account transaction:
//  1. Validate input and ownership
//  2. Return the existing transaction if the idempotency key was seen
//  3. Insert the pending row
//  4. Apply the signed delta; balance write and completed status are one
//     atomic step in the store
//  5. On a business rejection, mark the transaction failed with the
//     balance untouched
func (s *Service) Execute(ctx context.Context, principal uuid.UUID, input CreateTransactionInput) (*domain.Transaction, error) {
	account, err := s.ownedAccount(ctx, principal, input.AccountID)
	if err != nil {
		return nil, err
	}

	if input.IdempotencyKey != "" {
		existing, err := s.TransactionRepo.GetByIdempotencyKey(ctx, input.AccountID, input.IdempotencyKey)
		if err == nil {
			logger.Info("ledger workflow idempotent replay", logger.Fields{
				"transactionId": existing.ID,
				"accountId":     input.AccountID,
			})
			return existing, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	tx := &domain.Transaction{
		ID:               uuid.New(),
		AccountID:        account.ID,
		Type:             input.Type,
		Status:           domain.TransactionStatusPending,
		Category:         categoryOrDefault(input.Category),
		Amount:           input.Amount,
		Fee:              input.Fee,
		Description:      input.Description,
		RecipientName:    input.RecipientName,
		RecipientAccount: input.RecipientAccount,
		Reference:        generateReference(),
		IdempotencyKey:   input.IdempotencyKey,
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if err := s.TransactionRepo.Create(ctx, tx); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
			// Lost a creation race with a retry of the same request
			return s.TransactionRepo.GetByIdempotencyKey(ctx, input.AccountID, input.IdempotencyKey)
		}
		return nil, err
	}

	return s.settle(ctx, account.UserID, tx)
}

// settle applies the transaction's delta and finalizes its status
func (s *Service) settle(ctx context.Context, userID uuid.UUID, tx *domain.Transaction) (*domain.Transaction, error) {
	wctx, cancel := s.boundedCtx(ctx)
	defer cancel()

	newBalance, err := s.AccountRepo.ApplyDelta(wctx, tx.AccountID, tx.ID, tx.Delta())
	if err != nil {
		return s.handleMutationFailure(ctx, userID, tx, err)
	}

	tx.Status = domain.TransactionStatusCompleted
	logger.Info("ledger workflow transaction completed", logger.Fields{
		"transactionId": tx.ID,
		"accountId":     tx.AccountID,
		"type":          string(tx.Type),
		"newBalance":    newBalance.String(),
	})
	s.notify(userID, tx)

	return tx, nil
}

// handleMutationFailure maps a balance mutation error to the transaction's
// terminal state. Business rejections become failed; a storage failure
// leaves the row pending for reconciliation because no terminal status can
// be confirmed.
func (s *Service) handleMutationFailure(ctx context.Context, userID uuid.UUID, tx *domain.Transaction, mutationErr error) (*domain.Transaction, error) {
	if errors.Is(mutationErr, domain.ErrStorageUnavailable) {
		logger.Error("ledger workflow storage failure, leaving transaction pending", mutationErr, logger.Fields{
			"transactionId": tx.ID,
		})
		return nil, mutationErr
	}

	failErr := mutationErr
	if errors.Is(mutationErr, context.DeadlineExceeded) {
		failErr = fmt.Errorf("workflow timed out: %w", domain.ErrConflict)
	}

	// The original request context may already be done; the terminal
	// status must still be recorded
	markCtx := context.WithoutCancel(ctx)
	if err := s.TransactionRepo.UpdateStatus(markCtx, tx.ID, domain.TransactionStatusFailed); err != nil {
		logger.Error("ledger workflow failed to mark transaction failed", err, logger.Fields{
			"transactionId": tx.ID,
		})
		return nil, errors.Join(failErr, err)
	}

	tx.Status = domain.TransactionStatusFailed
	logger.Info("ledger workflow transaction failed", logger.Fields{
		"transactionId": tx.ID,
		"reason":        failErr.Error(),
	})
	s.notify(userID, tx)

	return tx, failErr
}

// Transfer moves funds between two accounts of the same owner. Both legs
// are committed atomically; the store locks the accounts in a fixed
// global order.
func (s *Service) Transfer(ctx context.Context, principal uuid.UUID, input TransferInput) (*domain.Transaction, error) {
	if input.FromAccountID == input.ToAccountID {
		return nil, fmt.Errorf("transfer to the same account: %w", domain.ErrInvalidInput)
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrAmountNotPositive
	}

	from, err := s.ownedAccount(ctx, principal, input.FromAccountID)
	if err != nil {
		return nil, err
	}
	to, err := s.ownedAccount(ctx, principal, input.ToAccountID)
	if err != nil {
		return nil, err
	}

	if input.IdempotencyKey != "" {
		existing, err := s.TransactionRepo.GetByIdempotencyKey(ctx, input.FromAccountID, input.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	debitID := uuid.New()
	creditID := uuid.New()
	reference := generateReference()

	debit := &domain.Transaction{
		ID:               debitID,
		AccountID:        from.ID,
		Type:             domain.TransactionTypeTransfer,
		Status:           domain.TransactionStatusPending,
		Category:         domain.CategoryOther,
		Amount:           input.Amount,
		Fee:              decimal.Zero,
		Description:      input.Description,
		RecipientAccount: to.AccountNumber,
		Reference:        reference,
		IdempotencyKey:   input.IdempotencyKey,
		CounterpartID:    &creditID,
	}
	credit := &domain.Transaction{
		ID:            creditID,
		AccountID:     to.ID,
		Type:          domain.TransactionTypeDeposit,
		Status:        domain.TransactionStatusPending,
		Category:      domain.CategoryOther,
		Amount:        input.Amount,
		Fee:           decimal.Zero,
		Description:   fmt.Sprintf("Transfer from %s", from.AccountNumber),
		Reference:     reference,
		CounterpartID: &debitID,
	}

	if err := s.TransactionRepo.Create(ctx, debit); err != nil {
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
			return s.TransactionRepo.GetByIdempotencyKey(ctx, input.FromAccountID, input.IdempotencyKey)
		}
		return nil, err
	}
	if err := s.TransactionRepo.Create(ctx, credit); err != nil {
		// The debit leg stays pending and is reconciled to failed later;
		// no balance was touched
		logger.Error("ledger workflow failed to create credit leg", err, logger.Fields{
			"debitTransactionId": debitID,
		})
		return nil, err
	}

	wctx, cancel := s.boundedCtx(ctx)
	defer cancel()

	err = s.AccountRepo.ApplyTransfer(wctx,
		domain.TransferLeg{AccountID: from.ID, TransactionID: debitID, Amount: input.Amount},
		domain.TransferLeg{AccountID: to.ID, TransactionID: creditID, Amount: input.Amount},
	)
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return nil, err
		}
		markCtx := context.WithoutCancel(ctx)
		_ = s.TransactionRepo.UpdateStatus(markCtx, creditID, domain.TransactionStatusFailed)
		return s.handleMutationFailure(ctx, from.UserID, debit, err)
	}

	debit.Status = domain.TransactionStatusCompleted
	credit.Status = domain.TransactionStatusCompleted
	logger.Info("ledger workflow transfer completed", logger.Fields{
		"debitTransactionId":  debitID,
		"creditTransactionId": creditID,
		"amount":              input.Amount.String(),
	})
	s.notify(from.UserID, debit)
	s.notify(to.UserID, credit)

	return debit, nil
}

// Cancel moves a pending transaction to cancelled. Completed, failed and
// cancelled transactions cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, principal uuid.UUID, transactionID uuid.UUID) (*domain.Transaction, error) {
	tx, err := s.Get(ctx, principal, transactionID)
	if err != nil {
		return nil, err
	}

	if err := s.TransactionRepo.UpdateStatus(ctx, transactionID, domain.TransactionStatusCancelled); err != nil {
		return nil, err
	}

	tx.Status = domain.TransactionStatusCancelled
	return tx, nil
}

// Get retrieves a transaction owned by the principal
func (s *Service) Get(ctx context.Context, principal uuid.UUID, transactionID uuid.UUID) (*domain.Transaction, error) {
	tx, err := s.TransactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.ownedAccount(ctx, principal, tx.AccountID); err != nil {
		return nil, err
	}

	return tx, nil
}

// List retrieves the principal's transactions with optional filters
func (s *Service) List(ctx context.Context, principal uuid.UUID, filters domain.TransactionFilters) ([]*domain.Transaction, error) {
	return s.TransactionRepo.ListByUser(ctx, principal, filters)
}

// ReconcileStalePending fails pending transactions older than the
// configured threshold. Balance mutation and the completed status share
// one atomic step, so a stale pending row can never have had a balance
// effect; failing it is always safe. Returns the number reconciled.
func (s *Service) ReconcileStalePending(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.StaleAfter)
	stale, err := s.TransactionRepo.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	reconciled := 0
	for _, tx := range stale {
		if err := s.TransactionRepo.UpdateStatus(ctx, tx.ID, domain.TransactionStatusFailed); err != nil {
			// A concurrent finalizer won the race; that is a resolution too
			if errors.Is(err, domain.ErrTransactionTerminal) {
				continue
			}
			return reconciled, err
		}
		reconciled++
		logger.Info("ledger workflow reconciled stale pending transaction", logger.Fields{
			"transactionId": tx.ID,
			"createdAt":     tx.CreatedAt,
		})
	}

	return reconciled, nil
}

// ownedAccount fetches an account and enforces ownership
func (s *Service) ownedAccount(ctx context.Context, principal uuid.UUID, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.AccountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.OwnedBy(principal) {
		return nil, domain.ErrForbidden
	}
	return account, nil
}

func (s *Service) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

func (s *Service) notify(userID uuid.UUID, tx *domain.Transaction) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.TransactionSettled(userID, tx)
}

func categoryOrDefault(c domain.TransactionCategory) domain.TransactionCategory {
	if c == "" {
		return domain.CategoryOther
	}
	return c
}

var referenceCounter uint32

// generateReference builds an internal transaction reference:
// FC + UTC timestamp + zero-padded rolling counter
func generateReference() string {
	n := atomic.AddUint32(&referenceCounter, 1) % 1000000
	return fmt.Sprintf("FC%s%06d", time.Now().UTC().Format("20060102150405"), n)
}
