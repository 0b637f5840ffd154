package repository

import (
	"context"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/diaglab/labdesk-api/pkg/pagination"
	"github.com/google/uuid"
)

// InvoiceRepository defines the interface for invoice data operations
type InvoiceRepository interface {
	// Create inserts the invoice together with its line items
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	GetByNumber(ctx context.Context, number string) (*entity.Invoice, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.Invoice, error)
	// GetForUpdate loads the invoice and its lines under a row lock held until
	// the transaction in ctx ends. Nil when not found.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	// Update saves the invoice and replaces its line items
	Update(ctx context.Context, invoice *entity.Invoice) error
	// SaveTotals writes only the derived amount and status columns
	SaveTotals(ctx context.Context, invoice *entity.Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params *InvoiceFilterParams) ([]entity.Invoice, int64, error)
	// ListUnpaidPastDue returns unpaid invoices whose due date is before now,
	// without their lines
	ListUnpaidPastDue(ctx context.Context, now time.Time, limit int) ([]entity.Invoice, error)
	RecordPayment(ctx context.Context, invoiceID uuid.UUID, payment *entity.Payment, apply func(invoice *entity.Invoice) error) (*entity.Invoice, error)
	ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]entity.Payment, error)
}

// InvoiceFilterParams contains filtering parameters for invoice queries
type InvoiceFilterParams struct {
	Pagination    *pagination.PaginationParams
	Search        string
	PaymentStatus *enum.PaymentStatus
	PatientID     *uuid.UUID
	StartDate     *time.Time
	EndDate       *time.Time
}
