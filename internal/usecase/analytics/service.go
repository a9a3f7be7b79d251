// Package analytics implements the read side of the ledger. Every
// aggregation restricts to completed transactions; nothing here mutates
// state. Monthly buckets are keyed by UTC calendar year-month.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nucore/fincore-backend/internal/domain"
)

// Filters narrows analytics queries to a date window and/or one account
type Filters struct {
	AccountID *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
}

// OverviewResult represents income-vs-expense totals
type OverviewResult struct {
	TotalIncome      decimal.Decimal
	TotalExpenses    decimal.Decimal
	NetBalance       decimal.Decimal
	TransactionCount int
}

// CategoryStat represents one category's share of spending
type CategoryStat struct {
	Category   domain.TransactionCategory
	Amount     decimal.Decimal
	Count      int
	Percentage decimal.Decimal
}

// CategoryAnalysisResult groups completed transactions by category
type CategoryAnalysisResult struct {
	Categories    []CategoryStat
	TotalExpenses decimal.Decimal
}

// MonthlyBucket represents one UTC calendar month of activity
type MonthlyBucket struct {
	Month      string // YYYY-MM
	Income     decimal.Decimal
	Expenses   decimal.Decimal
	NetBalance decimal.Decimal
}

// Service handles read-only aggregations over completed transactions
type Service struct {
	TransactionRepo domain.TransactionRepository
}

// NewService creates a new analytics Service instance
func NewService(transactionRepo domain.TransactionRepository) *Service {
	return &Service{TransactionRepo: transactionRepo}
}

// Overview computes income, expense and net totals for the principal
func (s *Service) Overview(ctx context.Context, principal uuid.UUID, filters Filters) (*OverviewResult, error) {
	transactions, err := s.completed(ctx, principal, filters)
	if err != nil {
		return nil, err
	}

	result := &OverviewResult{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
	}
	for _, tx := range transactions {
		if tx.Type == domain.TransactionTypeDeposit {
			result.TotalIncome = result.TotalIncome.Add(tx.Amount)
		} else {
			result.TotalExpenses = result.TotalExpenses.Add(tx.Amount)
		}
		result.TransactionCount++
	}
	result.NetBalance = result.TotalIncome.Sub(result.TotalExpenses)

	return result, nil
}

// CategoryAnalysis computes per-category expense sums and their share of
// total spending. Percentage is (categoryAmount / totalExpenses) * 100,
// and 0 when the total is 0. Deposits are income, not spending, and are
// excluded.
func (s *Service) CategoryAnalysis(ctx context.Context, principal uuid.UUID, filters Filters) (*CategoryAnalysisResult, error) {
	transactions, err := s.completed(ctx, principal, filters)
	if err != nil {
		return nil, err
	}

	amounts := make(map[domain.TransactionCategory]*CategoryStat)
	total := decimal.Zero
	for _, tx := range transactions {
		if tx.Type == domain.TransactionTypeDeposit {
			continue
		}
		stat, ok := amounts[tx.Category]
		if !ok {
			stat = &CategoryStat{Category: tx.Category, Amount: decimal.Zero}
			amounts[tx.Category] = stat
		}
		stat.Amount = stat.Amount.Add(tx.Amount)
		stat.Count++
		total = total.Add(tx.Amount)
	}

	hundred := decimal.NewFromInt(100)
	categories := make([]CategoryStat, 0, len(amounts))
	for _, stat := range amounts {
		if total.IsPositive() {
			stat.Percentage = stat.Amount.Div(total).Mul(hundred)
		} else {
			stat.Percentage = decimal.Zero
		}
		categories = append(categories, *stat)
	}
	sort.Slice(categories, func(i, j int) bool {
		// Equal amounts tie-break on category name so the order is stable
		// across map iterations
		if !categories[i].Amount.Equal(categories[j].Amount) {
			return categories[i].Amount.GreaterThan(categories[j].Amount)
		}
		return categories[i].Category < categories[j].Category
	})

	return &CategoryAnalysisResult{
		Categories:    categories,
		TotalExpenses: total,
	}, nil
}

// MonthlyTrends buckets completed activity by UTC calendar year-month,
// oldest first. An explicit date window on the filters wins; otherwise
// the window is the last `months` months.
func (s *Service) MonthlyTrends(ctx context.Context, principal uuid.UUID, months int, filters Filters) ([]MonthlyBucket, error) {
	if months <= 0 {
		months = 12
	}

	end := time.Now().UTC()
	if filters.EndDate != nil {
		end = *filters.EndDate
	} else {
		filters.EndDate = &end
	}
	if filters.StartDate == nil {
		start := end.AddDate(0, -months, 0)
		filters.StartDate = &start
	}

	transactions, err := s.completed(ctx, principal, filters)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*MonthlyBucket)
	for _, tx := range transactions {
		key := tx.CreatedAt.UTC().Format("2006-01")
		bucket, ok := buckets[key]
		if !ok {
			bucket = &MonthlyBucket{
				Month:    key,
				Income:   decimal.Zero,
				Expenses: decimal.Zero,
			}
			buckets[key] = bucket
		}
		if tx.Type == domain.TransactionTypeDeposit {
			bucket.Income = bucket.Income.Add(tx.Amount)
		} else {
			bucket.Expenses = bucket.Expenses.Add(tx.Amount)
		}
	}

	series := make([]MonthlyBucket, 0, len(buckets))
	for _, bucket := range buckets {
		bucket.NetBalance = bucket.Income.Sub(bucket.Expenses)
		series = append(series, *bucket)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Month < series[j].Month
	})

	return series, nil
}

// TopTransactions retrieves the principal's largest completed
// transactions by amount
func (s *Service) TopTransactions(ctx context.Context, principal uuid.UUID, limit int, filters Filters) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}

	status := domain.TransactionStatusCompleted
	return s.TransactionRepo.ListByUser(ctx, principal, domain.TransactionFilters{
		AccountID:        filters.AccountID,
		Status:           &status,
		StartDate:        filters.StartDate,
		EndDate:          filters.EndDate,
		SortByAmountDesc: true,
		Limit:            limit,
	})
}

// Recent retrieves the principal's most recent completed transactions
func (s *Service) Recent(ctx context.Context, principal uuid.UUID, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 5
	}

	status := domain.TransactionStatusCompleted
	return s.TransactionRepo.ListByUser(ctx, principal, domain.TransactionFilters{
		Status: &status,
		Limit:  limit,
	})
}

// completed lists the principal's completed transactions under the filters
func (s *Service) completed(ctx context.Context, principal uuid.UUID, filters Filters) ([]*domain.Transaction, error) {
	status := domain.TransactionStatusCompleted
	return s.TransactionRepo.ListByUser(ctx, principal, domain.TransactionFilters{
		AccountID: filters.AccountID,
		Status:    &status,
		StartDate: filters.StartDate,
		EndDate:   filters.EndDate,
	})
}
