package entity

import "github.com/shopspring/decimal"

// ReceiptHeader holds the lab details printed at the top of a receipt.
type ReceiptHeader struct {
	LabName string `json:"lab_name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
}

// ReceiptItem represents a single line item on a receipt.
type ReceiptItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// Receipt is a printable value object composed from an invoice or order at
// print time. It is not persisted.
type Receipt struct {
	Header    ReceiptHeader   `json:"header"`
	Title     string          `json:"title"`
	Number    string          `json:"number"`
	Date      string          `json:"date"`
	Cashier   string          `json:"cashier,omitempty"`
	Patient   string          `json:"patient,omitempty"`
	PatientID string          `json:"patient_id,omitempty"`
	Items     []ReceiptItem   `json:"items"`
	SubTotal  decimal.Decimal `json:"sub_total"`
	Discount  decimal.Decimal `json:"discount"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	Balance   decimal.Decimal `json:"balance"`
	Status    string          `json:"status"`
	Footer    string          `json:"footer,omitempty"`
}
