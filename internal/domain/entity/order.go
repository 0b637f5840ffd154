package entity

import (
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/billing"
	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is a request for one or more tests on a patient. Its payment fields
// are kept in step by RecomputePayment, never assigned directly.
type Order struct {
	ID                uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	OrderNumber       string             `gorm:"size:32;uniqueIndex:idx_orders_order_number;not null" json:"order_number"`
	PatientID         uuid.UUID          `gorm:"type:uuid;not null;index" json:"patient_id"`
	DoctorID          *uuid.UUID         `gorm:"type:uuid;index" json:"doctor_id,omitempty"`
	TechnicianID      *uuid.UUID         `gorm:"type:uuid;index" json:"technician_id,omitempty"`
	CreatedByID       uuid.UUID          `gorm:"type:uuid;not null" json:"created_by_id"`
	Status            enum.OrderStatus   `gorm:"default:0;index" json:"status"`
	Priority          enum.OrderPriority `gorm:"default:0" json:"priority"`
	LineItemTotal     decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"line_item_total"`
	AmountPaid        decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"amount_paid"`
	BalanceAmount     decimal.Decimal    `gorm:"type:decimal(15,2);not null;default:0" json:"balance_amount"`
	PaymentStatus     enum.PaymentStatus `gorm:"default:0;index" json:"payment_status"`
	Notes             *string            `gorm:"type:text" json:"notes,omitempty"`
	SampleCollectedAt *time.Time         `json:"sample_collected_at,omitempty"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty"`
	VerifiedByID      *uuid.UUID         `gorm:"type:uuid" json:"verified_by_id,omitempty"`
	VerifiedAt        *time.Time         `json:"verified_at,omitempty"`
	CancelledReason   *string            `gorm:"type:text" json:"cancelled_reason,omitempty"`
	CreatedAt         time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	DeletedAt         gorm.DeletedAt     `gorm:"index" json:"-"`

	Patient    *Patient       `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor     *Doctor        `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Technician *LabTechnician `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	Items      []OrderItem    `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Payments   []Payment      `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

// BeforeCreate generates a UUID before creating a new order
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// RecomputePayment re-derives the line item total, balance and payment status
// from the billable items and the amount paid.
func (o *Order) RecomputePayment() {
	total := decimal.Zero
	for _, item := range o.Items {
		if item.Billable {
			total = total.Add(item.Price)
		}
	}
	o.LineItemTotal = billing.Round2(total)
	o.AmountPaid = billing.Round2(o.AmountPaid)
	o.BalanceAmount = billing.Balance(o.LineItemTotal, o.AmountPaid)
	o.PaymentStatus = billing.OrderStatus(o.LineItemTotal, o.AmountPaid)
}

// ResultItems returns the items that carry a test result
func (o *Order) ResultItems() []*OrderItem {
	var out []*OrderItem
	for i := range o.Items {
		if o.Items[i].Kind == enum.LineItemKindTest {
			out = append(out, &o.Items[i])
		}
	}
	return out
}

// AllResultsEntered reports whether every test item has a value
func (o *Order) AllResultsEntered() bool {
	items := o.ResultItems()
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if item.ResultValue == nil || *item.ResultValue == "" {
			return false
		}
	}
	return true
}

// OrderItem is one ordered test or package. A package is billed on its own
// row and expanded into non-billable test rows that receive the results.
type OrderItem struct {
	ID              uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	OrderID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"order_id"`
	Kind            enum.LineItemKind `gorm:"default:0" json:"kind"`
	LabTestID       *uuid.UUID        `gorm:"type:uuid;index" json:"lab_test_id,omitempty"`
	PackageID       *uuid.UUID        `gorm:"type:uuid;index" json:"package_id,omitempty"`
	Name            string            `gorm:"size:255;not null" json:"name"`
	Price           decimal.Decimal   `gorm:"type:decimal(15,2);not null;default:0" json:"price"`
	Billable        bool              `gorm:"default:true" json:"billable"`
	ResultValue     *string           `gorm:"size:255" json:"result_value,omitempty"`
	Unit            string            `gorm:"size:50" json:"unit,omitempty"`
	NormalRange     string            `gorm:"size:255" json:"normal_range,omitempty"`
	IsAbnormal      bool              `gorm:"default:false" json:"is_abnormal"`
	TechnicianNotes *string           `gorm:"type:text" json:"technician_notes,omitempty"`
	EnteredByID     *uuid.UUID        `gorm:"type:uuid" json:"entered_by_id,omitempty"`
	EnteredAt       *time.Time        `json:"entered_at,omitempty"`
	DoctorRemarks   *string           `gorm:"type:text" json:"doctor_remarks,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new order item
func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}
