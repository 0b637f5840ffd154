package entity

import (
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/billing"
	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice bills a patient for tests and packages. The derived amount fields
// and payment status are only written by Recompute.
type Invoice struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	InvoiceNumber      string             `gorm:"size:32;uniqueIndex:idx_invoices_invoice_number;not null" json:"invoice_number"`
	PatientID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"patient_id"`
	OrderID            *uuid.UUID         `gorm:"type:uuid;uniqueIndex:idx_invoices_order_id,where:deleted_at IS NULL" json:"order_id,omitempty"`
	CreatedByID        uuid.UUID          `gorm:"type:uuid;not null" json:"created_by_id"`
	IssueDate          time.Time          `gorm:"not null;index" json:"issue_date"`
	DueDate            time.Time          `gorm:"not null;index" json:"due_date"`
	DiscountPercentage decimal.Decimal    `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percentage"`
	TaxPercentage      decimal.Decimal    `gorm:"type:decimal(5,2);not null;default:0" json:"tax_percentage"`
	DiscountOverride   decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"discount_override"`
	TaxOverride        decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"tax_override"`
	Subtotal           decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"subtotal"`
	DiscountAmount     decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"discount_amount"`
	TaxAmount          decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"tax_amount"`
	TotalAmount        decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"total_amount"`
	AmountPaid         decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"amount_paid"`
	BalanceAmount      decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"balance_amount"`
	PaymentStatus      enum.PaymentStatus `gorm:"default:0;index" json:"payment_status"`
	Notes              *string            `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	DeletedAt          gorm.DeletedAt     `gorm:"index" json:"-"`

	Patient   *Patient          `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Order     *Order            `gorm:"foreignKey:OrderID" json:"-"`
	LineItems []InvoiceLineItem `gorm:"foreignKey:InvoiceID" json:"line_items"`
	Payments  []Payment         `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`
}

// BeforeCreate generates a UUID before creating a new invoice
func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Invoice model
func (Invoice) TableName() string {
	return "invoices"
}

// BillingInput maps the invoice onto the calculator's input
func (i *Invoice) BillingInput(now time.Time, dueDays int) billing.Input {
	items := make([]billing.LineItem, len(i.LineItems))
	for n, li := range i.LineItems {
		items[n] = billing.LineItem{
			Kind:      li.Kind,
			Name:      li.Name,
			UnitPrice: li.UnitPrice,
			Quantity:  li.Quantity,
		}
	}
	return billing.Input{
		LineItems:          items,
		DiscountPercentage: i.DiscountPercentage,
		TaxPercentage:      i.TaxPercentage,
		ExplicitDiscount:   i.DiscountOverride,
		ExplicitTax:        i.TaxOverride,
		AmountPaid:         i.AmountPaid,
		IssueDate:          i.IssueDate,
		DueDate:            i.DueDate,
		DueDays:            dueDays,
		Now:                now,
	}
}

// Recompute re-derives every amount field and the payment status. It is the
// only place those fields are assigned.
func (i *Invoice) Recompute(now time.Time, dueDays int) error {
	res, err := billing.Recompute(i.BillingInput(now, dueDays))
	if err != nil {
		return err
	}
	for n := range i.LineItems {
		i.LineItems[n].Position = n + 1
		i.LineItems[n].Amount = billing.Round2(i.LineItems[n].UnitPrice.Mul(decimal.NewFromInt(int64(i.LineItems[n].Quantity))))
	}
	i.Subtotal = res.Subtotal
	i.DiscountAmount = res.DiscountAmount
	i.TaxAmount = res.TaxAmount
	i.TotalAmount = res.TotalAmount
	i.BalanceAmount = res.BalanceAmount
	i.PaymentStatus = res.PaymentStatus
	i.DueDate = res.DueDate
	return nil
}

// InvoiceLineItem is one billed line
type InvoiceLineItem struct {
	ID        uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	InvoiceID uuid.UUID         `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Position  int               `gorm:"not null;default:0" json:"position"`
	Kind      enum.LineItemKind `gorm:"default:0" json:"kind"`
	LabTestID *uuid.UUID        `gorm:"type:uuid" json:"lab_test_id,omitempty"`
	PackageID *uuid.UUID        `gorm:"type:uuid" json:"package_id,omitempty"`
	Name      string            `gorm:"size:255;not null" json:"name"`
	UnitPrice decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"unit_price"`
	Quantity  int               `gorm:"not null;default:1" json:"quantity"`
	Amount    decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"amount"`
	CreatedAt time.Time         `json:"created_at"`
}

func (l *InvoiceLineItem) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (InvoiceLineItem) TableName() string {
	return "invoice_line_items"
}

// Payment is money received against an order or an invoice
type Payment struct {
	ID           uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	InvoiceID    *uuid.UUID         `gorm:"type:uuid;index" json:"invoice_id,omitempty"`
	OrderID      *uuid.UUID         `gorm:"type:uuid;index" json:"order_id,omitempty"`
	Amount       decimal.Decimal    `gorm:"type:decimal(15,2);not null" json:"amount"`
	Method       enum.PaymentMethod `gorm:"default:0" json:"method"`
	Reference    *string            `gorm:"size:255" json:"reference,omitempty"`
	ReceivedByID uuid.UUID          `gorm:"type:uuid;not null" json:"received_by_id"`
	PaidAt       time.Time          `gorm:"not null;index" json:"paid_at"`
	CreatedAt    time.Time          `json:"created_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Payment) TableName() string {
	return "payments"
}
