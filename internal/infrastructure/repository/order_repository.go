package repository

import (
	"context"
	"errors"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/enum"
	domainRepo "github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var orderSortColumns = map[string]string{
	"created_at":     "created_at",
	"order_number":   "order_number",
	"status":         "status",
	"payment_status": "payment_status",
	"balance_amount": "balance_amount",
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) domainRepo.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	return translate(conn(ctx, r.db).
		Omit("Patient", "Doctor", "Technician", "Payments").
		Create(order).Error)
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	var order entity.Order
	err := conn(ctx, r.db).
		Scopes(PatientScope(ctx)).
		Preload("Patient").
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*entity.Order, error) {
	var order entity.Order
	err := conn(ctx, r.db).Scopes(PatientScope(ctx)).First(&order, "order_number = ?", number).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}

func (r *orderRepository) GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	var order entity.Order
	err := conn(ctx, r.db).
		Scopes(PatientScope(ctx)).
		Preload("Patient").
		Preload("Doctor.User").
		Preload("Technician.User").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC") }).
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}

// Update saves the order columns only; items are written through UpdateItem
func (r *orderRepository) Update(ctx context.Context, order *entity.Order) error {
	return conn(ctx, r.db).
		Omit("Patient", "Doctor", "Technician", "Items", "Payments").
		Save(order).Error
}

func (r *orderRepository) UpdateItem(ctx context.Context, item *entity.OrderItem) error {
	return conn(ctx, r.db).Save(item).Error
}

func (r *orderRepository) List(ctx context.Context, params *domainRepo.OrderFilterParams) ([]entity.Order, int64, error) {
	var orders []entity.Order
	var total int64

	query := conn(ctx, r.db).Model(&entity.Order{}).Scopes(PatientScope(ctx))

	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where(
			"order_number ILIKE ? OR patient_id IN (?)",
			search,
			r.db.Model(&entity.Patient{}).Select("id").
				Where("patient_code ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?", search, search, search),
		)
	}

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	if params.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *params.PaymentStatus)
	}

	if params.PatientID != nil {
		query = query.Where("patient_id = ?", *params.PatientID)
	}

	if params.DoctorID != nil {
		query = query.Where("doctor_id = ?", *params.DoctorID)
	}

	if params.TechnicianID != nil {
		query = query.Where("technician_id = ?", *params.TechnicianID)
	}

	if params.StartDate != nil {
		query = query.Where("created_at >= ?", *params.StartDate)
	}

	if params.EndDate != nil {
		query = query.Where("created_at <= ?", *params.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Sorting
	sortBy := "created_at"
	sortOrder := "DESC"
	if col, ok := orderSortColumns[params.SortBy]; ok {
		sortBy = col
	}
	if params.SortOrder == "ASC" || params.SortOrder == "asc" {
		sortOrder = "ASC"
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Preload("Patient").
		Order(sortBy + " " + sortOrder).
		Find(&orders).Error

	return orders, total, err
}

// ListWithCursor returns orders oldest first using keyset pagination. Paging
// is forward only.
func (r *orderRepository) ListWithCursor(ctx context.Context, params *domainRepo.OrderCursorFilterParams) ([]entity.Order, error) {
	var orders []entity.Order

	params.Cursor.Validate()
	query := conn(ctx, r.db).Model(&entity.Order{}).Scopes(PatientScope(ctx))

	if len(params.Statuses) > 0 {
		query = query.Where("status IN ?", params.Statuses)
	}

	if params.TechnicianID != nil {
		query = query.Where("technician_id = ?", *params.TechnicianID)
	}

	cursor, err := params.Cursor.DecodeCursor()
	if err != nil {
		return nil, err
	}

	if cursor != nil {
		query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	err = query.Limit(params.Cursor.Limit + 1).
		Preload("Patient").
		Preload("Items").
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// RecordPayment applies a payment under a row lock so concurrent payments on
// the same order are serialised.
func (r *orderRepository) RecordPayment(ctx context.Context, orderID uuid.UUID, payment *entity.Payment, apply func(order *entity.Order) error) (*entity.Order, error) {
	var order entity.Order
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ?", orderID).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", orderID).Find(&order.Items).Error; err != nil {
			return err
		}

		if err := apply(&order); err != nil {
			return err
		}

		payment.OrderID = &order.ID
		if err := tx.Create(payment).Error; err != nil {
			return err
		}

		return tx.Model(&order).Updates(map[string]interface{}{
			"line_item_total": order.LineItemTotal,
			"amount_paid":     order.AmountPaid,
			"balance_amount":  order.BalanceAmount,
			"payment_status":  order.PaymentStatus,
		}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) CountByStatus(ctx context.Context, status enum.OrderStatus) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&entity.Order{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
