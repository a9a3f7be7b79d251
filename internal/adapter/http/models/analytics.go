package models

import (
	"github.com/shopspring/decimal"

	"github.com/nucore/fincore-backend/internal/usecase/analytics"
)

type OverviewResponse struct {
	TotalIncome      decimal.Decimal `json:"totalIncome"`
	TotalExpenses    decimal.Decimal `json:"totalExpenses"`
	NetBalance       decimal.Decimal `json:"netBalance"`
	TransactionCount int             `json:"transactionCount"`
}

func NewOverviewResponse(result *analytics.OverviewResult) OverviewResponse {
	return OverviewResponse{
		TotalIncome:      result.TotalIncome,
		TotalExpenses:    result.TotalExpenses,
		NetBalance:       result.NetBalance,
		TransactionCount: result.TransactionCount,
	}
}

type CategoryStatResponse struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

type CategoryAnalysisResponse struct {
	Categories    []CategoryStatResponse `json:"categories"`
	TotalExpenses decimal.Decimal        `json:"totalExpenses"`
}

func NewCategoryAnalysisResponse(result *analytics.CategoryAnalysisResult) CategoryAnalysisResponse {
	response := CategoryAnalysisResponse{
		Categories:    make([]CategoryStatResponse, 0, len(result.Categories)),
		TotalExpenses: result.TotalExpenses,
	}
	for _, stat := range result.Categories {
		response.Categories = append(response.Categories, CategoryStatResponse{
			Category:   string(stat.Category),
			Amount:     stat.Amount,
			Count:      stat.Count,
			Percentage: stat.Percentage,
		})
	}
	return response
}

type MonthlyBucketResponse struct {
	Month      string          `json:"month"`
	Income     decimal.Decimal `json:"income"`
	Expenses   decimal.Decimal `json:"expenses"`
	NetBalance decimal.Decimal `json:"netBalance"`
}

func NewMonthlyTrendsResponse(series []analytics.MonthlyBucket) []MonthlyBucketResponse {
	out := make([]MonthlyBucketResponse, 0, len(series))
	for _, bucket := range series {
		out = append(out, MonthlyBucketResponse{
			Month:      bucket.Month,
			Income:     bucket.Income,
			Expenses:   bucket.Expenses,
			NetBalance: bucket.NetBalance,
		})
	}
	return out
}
