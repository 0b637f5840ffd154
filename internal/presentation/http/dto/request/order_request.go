package request

import (
	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRequest is money received at the counter
type PaymentRequest struct {
	Amount    decimal.Decimal    `json:"amount" binding:"required"`
	Method    enum.PaymentMethod `json:"method"`
	Reference string             `json:"reference" binding:"omitempty,max=255"`
}

// CreateOrderRequest represents a new lab order
type CreateOrderRequest struct {
	PatientID      uuid.UUID          `json:"patient_id" binding:"required"`
	DoctorID       *uuid.UUID         `json:"doctor_id"`
	Priority       enum.OrderPriority `json:"priority"`
	Notes          string             `json:"notes"`
	TestIDs        []uuid.UUID        `json:"test_ids"`
	PackageIDs     []uuid.UUID        `json:"package_ids"`
	InitialPayment *PaymentRequest    `json:"initial_payment"`
}

// UpdateOrderStatusRequest moves an order along the workflow
type UpdateOrderStatusRequest struct {
	Status enum.OrderStatus `json:"status"`
	Reason string           `json:"reason" binding:"omitempty,max=500"`
}

// CancelOrderRequest cancels an order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// EnterResultRequest is one test result from the bench
type EnterResultRequest struct {
	Value      string `json:"result_value" binding:"required,max=255"`
	IsAbnormal bool   `json:"is_abnormal"`
	Notes      string `json:"notes"`
}

// VerifyOrderRequest is a doctor's sign-off, with optional remarks per item
type VerifyOrderRequest struct {
	Remarks map[uuid.UUID]string `json:"remarks"`
}

// OrderFilterRequest represents order list filters
type OrderFilterRequest struct {
	Search        string `form:"search"`
	Status        string `form:"status"`
	PaymentStatus string `form:"payment_status"`
	PatientID     string `form:"patient_id"`
	DoctorID      string `form:"doctor_id"`
	TechnicianID  string `form:"technician_id"`
	StartDate     string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate       string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
	SortBy        string `form:"sort_by"`
	SortOrder     string `form:"sort_order"`
	Page          int    `form:"page"`
	PerPage       int    `form:"per_page"`
}

// WorklistRequest pages through open orders
type WorklistRequest struct {
	Cursor   string `form:"cursor"`
	Limit    int    `form:"limit"`
	MineOnly bool   `form:"mine"`
}
