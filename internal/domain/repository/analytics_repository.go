package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TopTestResult is how often a test was ordered and what it earned
type TopTestResult struct {
	LabTestID  uuid.UUID
	Name       string
	OrderCount int
	Revenue    decimal.Decimal
}

// DailyRevenueResult is payments received on one day
type DailyRevenueResult struct {
	Date    time.Time
	Revenue decimal.Decimal
}

// AnalyticsRepository defines aggregation queries for the dashboard
type AnalyticsRepository interface {
	// GetRevenueBetween sums payments received in [from, to)
	GetRevenueBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
	// GetOutstandingBalance sums invoice balances not yet paid
	GetOutstandingBalance(ctx context.Context) (decimal.Decimal, error)
	GetDailyRevenue(ctx context.Context, days int) ([]DailyRevenueResult, error)
	GetTopTests(ctx context.Context, limit int) ([]TopTestResult, error)
	CountOrdersBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountPendingResults(ctx context.Context) (int64, error)
}
