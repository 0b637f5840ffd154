package request

import (
	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceTermsRequest holds the adjustable parts of an invoice. A missing
// tax_percentage takes the lab's default rate.
type InvoiceTermsRequest struct {
	DiscountPercentage decimal.Decimal  `json:"discount_percentage"`
	TaxPercentage      *decimal.Decimal `json:"tax_percentage"`
	DiscountAmount     decimal.Decimal  `json:"discount_amount"`
	TaxAmount          decimal.Decimal  `json:"tax_amount"`
	DueDate            string           `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	Notes              string           `json:"notes"`
}

// LineItemRequest is one invoice line
type LineItemRequest struct {
	Kind      enum.LineItemKind `json:"kind"`
	LabTestID *uuid.UUID        `json:"lab_test_id"`
	PackageID *uuid.UUID        `json:"package_id"`
	Name      string            `json:"name" binding:"omitempty,max=255"`
	UnitPrice decimal.Decimal   `json:"unit_price"`
	Quantity  int               `json:"quantity" binding:"min=0"`
}

// CreateInvoiceRequest creates an invoice from an order, or an ad hoc one
// from line items when order_id is absent
type CreateInvoiceRequest struct {
	InvoiceTermsRequest
	OrderID   *uuid.UUID        `json:"order_id"`
	PatientID *uuid.UUID        `json:"patient_id"`
	IssueDate string            `json:"issue_date" binding:"omitempty,datetime=2006-01-02"`
	LineItems []LineItemRequest `json:"line_items" binding:"omitempty,dive"`
}

// UpdateInvoiceRequest replaces an invoice's terms and, when given, its lines
type UpdateInvoiceRequest struct {
	InvoiceTermsRequest
	LineItems []LineItemRequest `json:"line_items" binding:"omitempty,dive"`
}

// InvoiceFilterRequest represents invoice list filters
type InvoiceFilterRequest struct {
	Search        string `form:"search"`
	PaymentStatus string `form:"payment_status"`
	PatientID     string `form:"patient_id"`
	StartDate     string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate       string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
	Page          int    `form:"page"`
	PerPage       int    `form:"per_page"`
}
