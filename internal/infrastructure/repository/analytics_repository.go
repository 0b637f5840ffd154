package repository

import (
	"context"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/enum"
	domainRepo "github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type sumResult struct {
	Total decimal.Decimal
}

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *gorm.DB) domainRepo.AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) GetRevenueBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var result sumResult
	err := conn(ctx, r.db).Raw(`
		SELECT COALESCE(SUM(amount), 0) AS total
		FROM payments
		WHERE paid_at >= ? AND paid_at < ?
	`, from, to).Scan(&result).Error

	return result.Total, err
}

func (r *analyticsRepository) GetOutstandingBalance(ctx context.Context) (decimal.Decimal, error) {
	var result sumResult
	err := conn(ctx, r.db).Raw(`
		SELECT COALESCE(SUM(balance_amount), 0) AS total
		FROM invoices
		WHERE deleted_at IS NULL AND payment_status <> ?
	`, enum.PaymentStatusPaid).Scan(&result).Error

	return result.Total, err
}

// GetDailyRevenue returns one row per day for the last days days, oldest
// first, including days without payments.
func (r *analyticsRepository) GetDailyRevenue(ctx context.Context, days int) ([]domainRepo.DailyRevenueResult, error) {
	if days < 1 {
		days = 1
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(days - 1))

	var rows []struct {
		Day     time.Time
		Revenue decimal.Decimal
	}
	err := conn(ctx, r.db).Raw(`
		SELECT date_trunc('day', paid_at AT TIME ZONE 'UTC') AS day,
			COALESCE(SUM(amount), 0) AS revenue
		FROM payments
		WHERE paid_at >= ?
		GROUP BY day
		ORDER BY day
	`, start).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		byDay[row.Day.Format("2006-01-02")] = row.Revenue
	}

	results := make([]domainRepo.DailyRevenueResult, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		revenue, ok := byDay[day.Format("2006-01-02")]
		if !ok {
			revenue = decimal.Zero
		}
		results = append(results, domainRepo.DailyRevenueResult{Date: day, Revenue: revenue})
	}

	return results, nil
}

func (r *analyticsRepository) GetTopTests(ctx context.Context, limit int) ([]domainRepo.TopTestResult, error) {
	var results []domainRepo.TopTestResult

	err := conn(ctx, r.db).Raw(`
		SELECT
			t.id as lab_test_id,
			t.name as name,
			COUNT(oi.id) as order_count,
			COALESCE(SUM(CASE WHEN oi.billable THEN oi.price ELSE 0 END), 0) as revenue
		FROM order_items oi
		JOIN lab_tests t ON t.id = oi.lab_test_id
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status <> ? AND o.deleted_at IS NULL
		GROUP BY t.id, t.name
		ORDER BY order_count DESC, revenue DESC
		LIMIT ?
	`, enum.OrderStatusCancelled, limit).Scan(&results).Error

	if err != nil {
		return nil, err
	}

	return results, nil
}

func (r *analyticsRepository) CountOrdersBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Raw(`
		SELECT COUNT(*) FROM orders
		WHERE deleted_at IS NULL AND created_at >= ? AND created_at < ?
	`, from, to).Scan(&count).Error
	return count, err
}

// CountPendingResults counts test rows still waiting for a value on live orders
func (r *analyticsRepository) CountPendingResults(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Raw(`
		SELECT COUNT(*)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.kind = ? AND (oi.result_value IS NULL OR oi.result_value = '')
		AND o.status IN (?, ?) AND o.deleted_at IS NULL
	`, enum.LineItemKindTest, enum.OrderStatusSampleCollected, enum.OrderStatusInProgress).Scan(&count).Error
	return count, err
}
