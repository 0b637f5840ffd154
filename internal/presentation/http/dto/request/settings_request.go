package request

import "github.com/shopspring/decimal"

// UpdateSettingsRequest represents a lab settings update. Absent fields are
// left unchanged.
type UpdateSettingsRequest struct {
	LabName                   *string          `json:"lab_name" binding:"omitempty,max=255"`
	Address                   *string          `json:"address"`
	Phone                     *string          `json:"phone" binding:"omitempty,max=50"`
	Email                     *string          `json:"email" binding:"omitempty,email"`
	TaxID                     *string          `json:"tax_id" binding:"omitempty,max=100"`
	Currency                  *string          `json:"currency" binding:"omitempty,len=3"`
	DefaultTaxPercentage      *decimal.Decimal `json:"default_tax_percentage"`
	InvoiceDueDays            *int             `json:"invoice_due_days" binding:"omitempty,min=0,max=365"`
	ReceiptFooter             *string          `json:"receipt_footer" binding:"omitempty,max=255"`
	ResultEmailNotifications  *bool            `json:"result_email_notifications"`
	InvoiceEmailNotifications *bool            `json:"invoice_email_notifications"`
}
