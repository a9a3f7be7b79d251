// Package memory provides an in-memory implementation of the ledger
// repositories. It honors the same per-account serialization contract as
// the postgres adapter and backs the concurrency tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nucore/fincore-backend/internal/domain"
)

const lockRetryBackoff = 2 * time.Millisecond

// Store holds accounts and transactions guarded by a store-wide map lock
// plus one mutex per account for balance mutations
type Store struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]*domain.Account
	transactions map[uuid.UUID]*domain.Transaction
	locks        map[uuid.UUID]*sync.Mutex
	maxRetries   int
}

// NewStore creates an empty in-memory store
func NewStore(maxRetries int) *Store {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Store{
		accounts:     make(map[uuid.UUID]*domain.Account),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		locks:        make(map[uuid.UUID]*sync.Mutex),
		maxRetries:   maxRetries,
	}
}

// Accounts returns the store's domain.AccountRepository view
func (s *Store) Accounts() domain.AccountRepository {
	return &accountRepo{s: s}
}

// Transactions returns the store's domain.TransactionRepository view
func (s *Store) Transactions() domain.TransactionRepository {
	return &transactionRepo{s: s}
}

func (s *Store) accountLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// tryLock attempts a bounded lock acquisition, mirroring the postgres
// adapter's FOR UPDATE NOWAIT retry budget
func (s *Store) tryLock(ctx context.Context, lock *sync.Mutex) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if lock.TryLock() {
			return nil
		}
		select {
		case <-ctx.Done():
			return domain.ErrConflict
		case <-time.After(lockRetryBackoff):
		}
	}
	return domain.ErrConflict
}

type accountRepo struct {
	s *Store
}

func (r *accountRepo) Create(_ context.Context, account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.accounts[account.ID]; exists {
		return fmt.Errorf("create account: %w", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	stored := *account
	r.s.accounts[account.ID] = &stored
	return nil
}

func (r *accountRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	account, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *accountRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	accounts := make([]*domain.Account, 0)
	for _, account := range r.s.accounts {
		if account.UserID == userID && account.Active {
			copied := *account
			accounts = append(accounts, &copied)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

func (r *accountRepo) ApplyDelta(ctx context.Context, accountID, transactionID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	lock := r.s.accountLock(accountID)
	if err := r.s.tryLock(ctx, lock); err != nil {
		return decimal.Zero, fmt.Errorf("apply delta: %w", err)
	}
	defer lock.Unlock()

	newBalance, err := r.mutateLocked(accountID, delta)
	if err != nil {
		return decimal.Zero, err
	}

	if err := r.s.markCompleted(transactionID); err != nil {
		// Roll the balance back; the status write failed so the outcome
		// must be "nothing happened"
		_, _ = r.mutateLocked(accountID, delta.Neg())
		return decimal.Zero, err
	}

	return newBalance, nil
}

func (r *accountRepo) ApplyTransfer(ctx context.Context, debit, credit domain.TransferLeg) error {
	// Fixed global lock order: lexicographic by account id
	first, second := debit.AccountID, credit.AccountID
	if second.String() < first.String() {
		first, second = second, first
	}

	firstLock := r.s.accountLock(first)
	if err := r.s.tryLock(ctx, firstLock); err != nil {
		return fmt.Errorf("apply transfer: %w", err)
	}
	defer firstLock.Unlock()

	secondLock := r.s.accountLock(second)
	if err := r.s.tryLock(ctx, secondLock); err != nil {
		return fmt.Errorf("apply transfer: %w", err)
	}
	defer secondLock.Unlock()

	if _, err := r.mutateLocked(debit.AccountID, debit.Amount.Neg()); err != nil {
		return err
	}
	if _, err := r.mutateLocked(credit.AccountID, credit.Amount); err != nil {
		_, _ = r.mutateLocked(debit.AccountID, debit.Amount)
		return err
	}

	if err := r.s.markCompleted(debit.TransactionID); err != nil {
		_, _ = r.mutateLocked(debit.AccountID, debit.Amount)
		_, _ = r.mutateLocked(credit.AccountID, credit.Amount.Neg())
		return err
	}
	if err := r.s.markCompleted(credit.TransactionID); err != nil {
		_, _ = r.mutateLocked(debit.AccountID, debit.Amount)
		_, _ = r.mutateLocked(credit.AccountID, credit.Amount.Neg())
		return err
	}

	return nil
}

// mutateLocked applies the delta to the stored account. Callers must hold
// the per-account mutex.
func (r *accountRepo) mutateLocked(accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	account, ok := r.s.accounts[accountID]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	if !account.Active {
		return decimal.Zero, domain.ErrAccountInactive
	}

	newAvailable := account.AvailableBalance.Add(delta)
	if delta.IsNegative() && newAvailable.IsNegative() {
		return decimal.Zero, domain.ErrInsufficientFunds
	}

	account.Balance = account.Balance.Add(delta)
	account.AvailableBalance = newAvailable
	account.UpdatedAt = time.Now().UTC()
	return account.Balance, nil
}

func (s *Store) markCompleted(transactionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return domain.ErrNotFound
	}
	if tx.Status != domain.TransactionStatusPending {
		return domain.ErrTransactionTerminal
	}
	tx.Status = domain.TransactionStatusCompleted
	tx.UpdatedAt = time.Now().UTC()
	return nil
}

type transactionRepo struct {
	s *Store
}

func (r *transactionRepo) Create(_ context.Context, tx *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if tx.IdempotencyKey != "" {
		for _, existing := range r.s.transactions {
			if existing.AccountID == tx.AccountID && existing.IdempotencyKey == tx.IdempotencyKey {
				return domain.ErrDuplicateIdempotencyKey
			}
		}
	}

	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	stored := *tx
	r.s.transactions[tx.ID] = &stored
	return nil
}

func (r *transactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tx, ok := r.s.transactions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *tx
	return &copied, nil
}

func (r *transactionRepo) GetByIdempotencyKey(_ context.Context, accountID uuid.UUID, key string) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, tx := range r.s.transactions {
		if tx.AccountID == accountID && tx.IdempotencyKey == key {
			copied := *tx
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *transactionRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.TransactionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.transactions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !tx.CanTransitionTo(status) {
		return domain.ErrTransactionTerminal
	}
	tx.Status = status
	tx.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *transactionRepo) ListByUser(_ context.Context, userID uuid.UUID, filters domain.TransactionFilters) ([]*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	owned := make(map[uuid.UUID]bool)
	for id, account := range r.s.accounts {
		if account.UserID == userID {
			owned[id] = true
		}
	}

	matches := make([]*domain.Transaction, 0)
	for _, tx := range r.s.transactions {
		if !owned[tx.AccountID] {
			continue
		}
		if !matchesFilters(tx, filters) {
			continue
		}
		copied := *tx
		matches = append(matches, &copied)
	}

	if filters.SortByAmountDesc {
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].Amount.GreaterThan(matches[j].Amount)
		})
	} else {
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		})
	}

	if filters.Offset > 0 {
		if filters.Offset >= len(matches) {
			return []*domain.Transaction{}, nil
		}
		matches = matches[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(matches) {
		matches = matches[:filters.Limit]
	}

	return matches, nil
}

func (r *transactionRepo) ListStalePending(_ context.Context, cutoff time.Time) ([]*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stale := make([]*domain.Transaction, 0)
	for _, tx := range r.s.transactions {
		if tx.Status == domain.TransactionStatusPending && tx.CreatedAt.Before(cutoff) {
			copied := *tx
			stale = append(stale, &copied)
		}
	}
	return stale, nil
}

func matchesFilters(tx *domain.Transaction, filters domain.TransactionFilters) bool {
	if filters.AccountID != nil && tx.AccountID != *filters.AccountID {
		return false
	}
	if filters.Type != nil && tx.Type != *filters.Type {
		return false
	}
	if filters.Status != nil && tx.Status != *filters.Status {
		return false
	}
	if filters.Category != nil && tx.Category != *filters.Category {
		return false
	}
	if filters.StartDate != nil && tx.CreatedAt.Before(*filters.StartDate) {
		return false
	}
	if filters.EndDate != nil && tx.CreatedAt.After(*filters.EndDate) {
		return false
	}
	return true
}
