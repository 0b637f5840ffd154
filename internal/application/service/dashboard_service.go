package service

import (
	"context"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/shopspring/decimal"
)

const (
	defaultRevenueDays = 30
	maxRevenueDays     = 365
	defaultTopTests    = 10
)

// DashboardService provides dashboard statistics
type DashboardService struct {
	analyticsRepo repository.AnalyticsRepository
	orderRepo     repository.OrderRepository
	patientRepo   repository.PatientRepository
	now           func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	analyticsRepo repository.AnalyticsRepository,
	orderRepo repository.OrderRepository,
	patientRepo repository.PatientRepository,
) *DashboardService {
	return &DashboardService{
		analyticsRepo: analyticsRepo,
		orderRepo:     orderRepo,
		patientRepo:   patientRepo,
		now:           time.Now,
	}
}

// DashboardStats represents dashboard statistics
type DashboardStats struct {
	TotalPatients      int64           `json:"total_patients"`
	OrdersToday        int64           `json:"orders_today"`
	OrdersThisMonth    int64           `json:"orders_this_month"`
	PendingOrders      int64           `json:"pending_orders"`
	InProgressOrders   int64           `json:"in_progress_orders"`
	CompletedOrders    int64           `json:"completed_orders"`
	PendingResults     int64           `json:"pending_results"`
	RevenueToday       decimal.Decimal `json:"revenue_today"`
	RevenueThisMonth   decimal.Decimal `json:"revenue_this_month"`
	RevenueGrowth      float64         `json:"revenue_growth"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
}

// DailyRevenuePoint represents one day of the revenue chart
type DailyRevenuePoint struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
}

// TopTest represents one row of the most ordered tests
type TopTest struct {
	LabTestID  string          `json:"lab_test_id"`
	Name       string          `json:"name"`
	OrderCount int             `json:"order_count"`
	Revenue    decimal.Decimal `json:"revenue"`
}

// GetDashboardStats returns the headline counters. Days and months are UTC.
func (s *DashboardService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevMonthStart := monthStart.AddDate(0, -1, 0)
	tomorrow := today.AddDate(0, 0, 1)

	stats := &DashboardStats{}
	var err error

	if stats.TotalPatients, err = s.patientRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.OrdersToday, err = s.analyticsRepo.CountOrdersBetween(ctx, today, tomorrow); err != nil {
		return nil, err
	}
	if stats.OrdersThisMonth, err = s.analyticsRepo.CountOrdersBetween(ctx, monthStart, tomorrow); err != nil {
		return nil, err
	}
	if stats.PendingOrders, err = s.orderRepo.CountByStatus(ctx, enum.OrderStatusPending); err != nil {
		return nil, err
	}
	if stats.InProgressOrders, err = s.orderRepo.CountByStatus(ctx, enum.OrderStatusInProgress); err != nil {
		return nil, err
	}
	if stats.CompletedOrders, err = s.orderRepo.CountByStatus(ctx, enum.OrderStatusCompleted); err != nil {
		return nil, err
	}
	if stats.PendingResults, err = s.analyticsRepo.CountPendingResults(ctx); err != nil {
		return nil, err
	}
	if stats.RevenueToday, err = s.analyticsRepo.GetRevenueBetween(ctx, today, tomorrow); err != nil {
		return nil, err
	}
	if stats.RevenueThisMonth, err = s.analyticsRepo.GetRevenueBetween(ctx, monthStart, tomorrow); err != nil {
		return nil, err
	}
	if stats.OutstandingBalance, err = s.analyticsRepo.GetOutstandingBalance(ctx); err != nil {
		return nil, err
	}

	prevRevenue, err := s.analyticsRepo.GetRevenueBetween(ctx, prevMonthStart, monthStart)
	if err != nil {
		return nil, err
	}
	stats.RevenueGrowth = growth(stats.RevenueThisMonth, prevRevenue)

	return stats, nil
}

// growth is the percentage change from prev to cur, rounded to one decimal
func growth(cur, prev decimal.Decimal) float64 {
	if prev.IsZero() {
		if cur.IsPositive() {
			return 100
		}
		return 0
	}
	pct, _ := cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(1).Float64()
	return pct
}

// GetDailyRevenue returns one point per day for the last days days
func (s *DashboardService) GetDailyRevenue(ctx context.Context, days int) ([]DailyRevenuePoint, error) {
	if days <= 0 {
		days = defaultRevenueDays
	}
	if days > maxRevenueDays {
		days = maxRevenueDays
	}

	rows, err := s.analyticsRepo.GetDailyRevenue(ctx, days)
	if err != nil {
		return nil, err
	}

	points := make([]DailyRevenuePoint, len(rows))
	for i, row := range rows {
		points[i] = DailyRevenuePoint{
			Date:    row.Date.Format("2006-01-02"),
			Revenue: row.Revenue,
		}
	}
	return points, nil
}

// GetTopTests returns the most ordered tests
func (s *DashboardService) GetTopTests(ctx context.Context, limit int) ([]TopTest, error) {
	if limit <= 0 || limit > 50 {
		limit = defaultTopTests
	}

	rows, err := s.analyticsRepo.GetTopTests(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]TopTest, len(rows))
	for i, row := range rows {
		out[i] = TopTest{
			LabTestID:  row.LabTestID.String(),
			Name:       row.Name,
			OrderCount: row.OrderCount,
			Revenue:    row.Revenue,
		}
	}
	return out, nil
}
