package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LabSettings holds lab-wide configuration editable by admins. There is a
// single row with ID 1.
type LabSettings struct {
	ID                        uint            `gorm:"primaryKey" json:"-"`
	LabName                   string          `gorm:"size:255;default:'LabDesk Diagnostics'" json:"lab_name"`
	Address                   string          `gorm:"type:text" json:"address"`
	Phone                     string          `gorm:"size:50" json:"phone"`
	Email                     string          `gorm:"size:255" json:"email"`
	TaxID                     string          `gorm:"size:100" json:"tax_id"`
	Currency                  string          `gorm:"size:10;default:'USD'" json:"currency"`
	DefaultTaxPercentage      decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"default_tax_percentage"`
	InvoiceDueDays            int             `gorm:"default:30" json:"invoice_due_days"`
	ReceiptFooter             string          `gorm:"size:255;default:'Thank you for choosing us'" json:"receipt_footer"`
	ResultEmailNotifications  bool            `gorm:"default:true" json:"result_email_notifications"`
	InvoiceEmailNotifications bool            `gorm:"default:true" json:"invoice_email_notifications"`
	UpdatedAt                 time.Time       `json:"updated_at"`
}

func (LabSettings) TableName() string {
	return "lab_settings"
}
