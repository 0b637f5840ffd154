package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/enum"
	domainRepo "github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) domainRepo.InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	return translate(conn(ctx, r.db).
		Omit("Patient", "Order", "Payments").
		Create(invoice).Error)
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *invoiceRepository) GetByNumber(ctx context.Context, number string) (*entity.Invoice, error) {
	return r.first(ctx, "invoice_number = ?", number)
}

func (r *invoiceRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.Invoice, error) {
	return r.first(ctx, "order_id = ?", orderID)
}

func (r *invoiceRepository) first(ctx context.Context, where string, arg interface{}) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := conn(ctx, r.db).
		Scopes(PatientScope(ctx)).
		Preload("Patient").
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC") }).
		First(&invoice, where, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &invoice, err
}

// GetForUpdate locks the invoice row until the transaction in ctx ends
func (r *invoiceRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	invoice, err := lockInvoice(conn(ctx, r.db), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return invoice, err
}

// lockInvoice selects the invoice FOR UPDATE and loads its lines. Payments
// are not loaded; AmountPaid already carries their sum.
func lockInvoice(tx *gorm.DB, id uuid.UUID) (*entity.Invoice, error) {
	var invoice entity.Invoice
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("invoice_id = ?", id).Order("position ASC").
		Find(&invoice.LineItems).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Update saves the invoice and swaps its line items for the ones it carries
func (r *invoiceRepository) Update(ctx context.Context, invoice *entity.Invoice) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(invoice).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&entity.InvoiceLineItem{}).Error; err != nil {
			return err
		}
		if len(invoice.LineItems) == 0 {
			return nil
		}
		for i := range invoice.LineItems {
			invoice.LineItems[i].ID = uuid.Nil
			invoice.LineItems[i].InvoiceID = invoice.ID
		}
		return tx.Create(&invoice.LineItems).Error
	})
}

func (r *invoiceRepository) SaveTotals(ctx context.Context, invoice *entity.Invoice) error {
	return conn(ctx, r.db).Model(&entity.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(totalsColumns(invoice)).Error
}

func totalsColumns(invoice *entity.Invoice) map[string]interface{} {
	return map[string]interface{}{
		"subtotal":        invoice.Subtotal,
		"discount_amount": invoice.DiscountAmount,
		"tax_amount":      invoice.TaxAmount,
		"total_amount":    invoice.TotalAmount,
		"amount_paid":     invoice.AmountPaid,
		"balance_amount":  invoice.BalanceAmount,
		"payment_status":  invoice.PaymentStatus,
		"due_date":        invoice.DueDate,
	}
}

func (r *invoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&entity.InvoiceLineItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Invoice{}, "id = ?", id).Error
	})
}

func (r *invoiceRepository) List(ctx context.Context, params *domainRepo.InvoiceFilterParams) ([]entity.Invoice, int64, error) {
	var invoices []entity.Invoice
	var total int64

	query := conn(ctx, r.db).Model(&entity.Invoice{}).Scopes(PatientScope(ctx))

	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where(
			"invoice_number ILIKE ? OR patient_id IN (?)",
			search,
			r.db.Model(&entity.Patient{}).Select("id").
				Where("patient_code ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?", search, search, search),
		)
	}

	if params.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *params.PaymentStatus)
	}

	if params.PatientID != nil {
		query = query.Where("patient_id = ?", *params.PatientID)
	}

	if params.StartDate != nil {
		query = query.Where("issue_date >= ?", *params.StartDate)
	}

	if params.EndDate != nil {
		query = query.Where("issue_date <= ?", *params.EndDate)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Preload("Patient").
		Order("issue_date DESC, created_at DESC").
		Find(&invoices).Error

	return invoices, total, err
}

func (r *invoiceRepository) ListUnpaidPastDue(ctx context.Context, now time.Time, limit int) ([]entity.Invoice, error) {
	var invoices []entity.Invoice
	err := conn(ctx, r.db).
		Where("payment_status = ? AND amount_paid = 0 AND due_date < ?", enum.PaymentStatusPending, now).
		Order("due_date ASC").
		Limit(limit).
		Find(&invoices).Error
	return invoices, err
}

// RecordPayment applies a payment under a row lock so concurrent payments on
// the same invoice are serialised.
func (r *invoiceRepository) RecordPayment(ctx context.Context, invoiceID uuid.UUID, payment *entity.Payment, apply func(invoice *entity.Invoice) error) (*entity.Invoice, error) {
	var invoice *entity.Invoice
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var err error
		if invoice, err = lockInvoice(tx, invoiceID); err != nil {
			return err
		}

		if err := apply(invoice); err != nil {
			return err
		}

		payment.InvoiceID = &invoice.ID
		if err := tx.Create(payment).Error; err != nil {
			return err
		}

		return tx.Model(&entity.Invoice{}).
			Where("id = ?", invoice.ID).
			Updates(totalsColumns(invoice)).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *invoiceRepository) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]entity.Payment, error) {
	var payments []entity.Payment
	err := conn(ctx, r.db).
		Where("invoice_id = ?", invoiceID).
		Order("paid_at ASC").
		Find(&payments).Error
	return payments, err
}
