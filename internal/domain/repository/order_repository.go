package repository

import (
	"context"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/diaglab/labdesk-api/pkg/pagination"
	"github.com/google/uuid"
)

// OrderRepository defines the interface for lab order data operations
type OrderRepository interface {
	// Create inserts the order together with its items
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	GetByNumber(ctx context.Context, number string) (*entity.Order, error)
	GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	Update(ctx context.Context, order *entity.Order) error
	UpdateItem(ctx context.Context, item *entity.OrderItem) error
	List(ctx context.Context, params *OrderFilterParams) ([]entity.Order, int64, error)
	// ListWithCursor backs the technician worklist feed
	ListWithCursor(ctx context.Context, params *OrderCursorFilterParams) ([]entity.Order, error)
	// RecordPayment locks the order row, lets apply mutate it, then saves the
	// order and inserts payment in the same transaction.
	RecordPayment(ctx context.Context, orderID uuid.UUID, payment *entity.Payment, apply func(order *entity.Order) error) (*entity.Order, error)
	CountByStatus(ctx context.Context, status enum.OrderStatus) (int64, error)
}

// OrderFilterParams contains filtering parameters for order queries
type OrderFilterParams struct {
	Pagination    *pagination.PaginationParams
	Search        string
	Status        *enum.OrderStatus
	PaymentStatus *enum.PaymentStatus
	PatientID     *uuid.UUID
	DoctorID      *uuid.UUID
	TechnicianID  *uuid.UUID
	StartDate     *time.Time
	EndDate       *time.Time
	SortBy        string
	SortOrder     string
}

// OrderCursorFilterParams contains cursor-based filtering for order queries
type OrderCursorFilterParams struct {
	Cursor       *pagination.CursorParams
	Statuses     []enum.OrderStatus
	TechnicianID *uuid.UUID
}
