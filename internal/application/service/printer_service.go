package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/diaglab/labdesk-api/pkg/printer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const receiptDateFormat = "2006-01-02 15:04"

// ErrPrinterUnavailable is returned when a print job could not be delivered.
// The receipt is still returned so it can be shown on screen.
var ErrPrinterUnavailable = apperror.NewAppError(503, "Printer unavailable")

// PrinterService composes receipts from invoices and orders and sends them
// to the thermal printer.
type PrinterService struct {
	printer     printer.Printer
	invoiceRepo repository.InvoiceRepository
	orderRepo   repository.OrderRepository
	settings    *SettingsService
	width       int
	log         *logger.Logger
}

// NewPrinterService creates a new printer service
func NewPrinterService(
	p printer.Printer,
	invoiceRepo repository.InvoiceRepository,
	orderRepo repository.OrderRepository,
	settings *SettingsService,
	width int,
	log *logger.Logger,
) *PrinterService {
	return &PrinterService{
		printer:     p,
		invoiceRepo: invoiceRepo,
		orderRepo:   orderRepo,
		settings:    settings,
		width:       width,
		log:         log,
	}
}

// PrinterStatus returns the current printer status information.
type PrinterStatus struct {
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Type       string `json:"type"`
}

// GetStatus returns printer connection status
func (s *PrinterService) GetStatus(ctx context.Context) *PrinterStatus {
	kind := s.printer.Kind()
	return &PrinterStatus{
		Configured: kind != "none",
		Connected:  s.printer.Ready(ctx),
		Type:       kind,
	}
}

func (s *PrinterService) header(ctx context.Context) (entity.ReceiptHeader, string, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return entity.ReceiptHeader{}, "", err
	}
	return entity.ReceiptHeader{
		LabName: settings.LabName,
		Address: settings.Address,
		Phone:   settings.Phone,
		TaxID:   settings.TaxID,
	}, settings.ReceiptFooter, nil
}

// TestPrint sends a sample receipt to the printer
func (s *PrinterService) TestPrint(ctx context.Context) (*entity.Receipt, error) {
	header, footer, err := s.header(ctx)
	if err != nil {
		return nil, err
	}

	price := decimal.RequireFromString("10.00")
	receipt := &entity.Receipt{
		Header: header,
		Title:  "PRINTER TEST",
		Number: "TEST-0001",
		Date:   "-",
		Items: []entity.ReceiptItem{
			{Name: "Sample test", Quantity: 1, UnitPrice: price, Total: price},
		},
		SubTotal: price,
		Total:    price,
		Paid:     price,
		Status:   "paid",
		Footer:   footer,
	}
	return receipt, s.send(ctx, receipt)
}

// InvoiceReceipt composes the receipt for an invoice without printing it
func (s *PrinterService) InvoiceReceipt(ctx context.Context, invoiceID uuid.UUID, cashier string) (*entity.Receipt, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	header, footer, err := s.header(ctx)
	if err != nil {
		return nil, err
	}

	receipt := &entity.Receipt{
		Header:   header,
		Title:    "INVOICE",
		Number:   invoice.InvoiceNumber,
		Date:     invoice.IssueDate.Format(receiptDateFormat),
		Cashier:  cashier,
		SubTotal: invoice.Subtotal,
		Discount: invoice.DiscountAmount,
		Tax:      invoice.TaxAmount,
		Total:    invoice.TotalAmount,
		Paid:     invoice.AmountPaid,
		Balance:  invoice.BalanceAmount,
		Status:   invoice.PaymentStatus.String(),
		Footer:   footer,
	}
	if invoice.Patient != nil {
		receipt.Patient = invoice.Patient.FullName()
		receipt.PatientID = invoice.Patient.PatientCode
	}
	for _, li := range invoice.LineItems {
		receipt.Items = append(receipt.Items, entity.ReceiptItem{
			Name:      li.Name,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
			Total:     li.Amount,
		})
	}
	return receipt, nil
}

// OrderReceipt composes the receipt for an order's billable items
func (s *PrinterService) OrderReceipt(ctx context.Context, orderID uuid.UUID, cashier string) (*entity.Receipt, error) {
	order, err := s.orderRepo.GetWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}
	header, footer, err := s.header(ctx)
	if err != nil {
		return nil, err
	}

	receipt := &entity.Receipt{
		Header:   header,
		Title:    "LAB ORDER",
		Number:   order.OrderNumber,
		Date:     order.CreatedAt.Format(receiptDateFormat),
		Cashier:  cashier,
		SubTotal: order.LineItemTotal,
		Total:    order.LineItemTotal,
		Paid:     order.AmountPaid,
		Balance:  order.BalanceAmount,
		Status:   order.PaymentStatus.String(),
		Footer:   footer,
	}
	if order.Patient != nil {
		receipt.Patient = order.Patient.FullName()
		receipt.PatientID = order.Patient.PatientCode
	}
	for _, item := range order.Items {
		if !item.Billable {
			continue
		}
		receipt.Items = append(receipt.Items, entity.ReceiptItem{
			Name:      item.Name,
			Quantity:  1,
			UnitPrice: item.Price,
			Total:     item.Price,
		})
	}
	return receipt, nil
}

// PrintInvoice prints an invoice receipt
func (s *PrinterService) PrintInvoice(ctx context.Context, invoiceID uuid.UUID, cashier string) (*entity.Receipt, error) {
	receipt, err := s.InvoiceReceipt(ctx, invoiceID, cashier)
	if err != nil {
		return nil, err
	}
	return receipt, s.send(ctx, receipt)
}

// PrintOrder prints an order receipt
func (s *PrinterService) PrintOrder(ctx context.Context, orderID uuid.UUID, cashier string) (*entity.Receipt, error) {
	receipt, err := s.OrderReceipt(ctx, orderID, cashier)
	if err != nil {
		return nil, err
	}
	return receipt, s.send(ctx, receipt)
}

// PreviewInvoice renders an invoice receipt as plain text
func (s *PrinterService) PreviewInvoice(ctx context.Context, invoiceID uuid.UUID, cashier string) (string, error) {
	receipt, err := s.InvoiceReceipt(ctx, invoiceID, cashier)
	if err != nil {
		return "", err
	}
	return FormatReceipt(receipt, s.width).PlainText(), nil
}

func (s *PrinterService) send(ctx context.Context, receipt *entity.Receipt) error {
	data := FormatReceipt(receipt, s.width).Bytes()
	if err := s.printer.Print(ctx, data); err != nil {
		s.log.WithComponent("printer").WithError(err).WithField("number", receipt.Number).Error("Print failed")
		return ErrPrinterUnavailable
	}
	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatReceipt lays out a receipt for a printer width characters wide
func FormatReceipt(r *entity.Receipt, width int) *printer.Document {
	doc := printer.NewDocument(width)

	doc.Align(printer.AlignCenter).
		Bold(true).
		Size(printer.FontDouble).
		Text(r.Header.LabName).
		Size(printer.FontNormal).
		Bold(false)
	if r.Header.Address != "" {
		doc.Text(r.Header.Address)
	}
	if r.Header.Phone != "" {
		doc.Text("Tel: " + r.Header.Phone)
	}
	if r.Header.TaxID != "" {
		doc.Text("Tax ID: " + r.Header.TaxID)
	}
	doc.Feed(1).Bold(true).Text(r.Title).Bold(false)

	doc.Align(printer.AlignLeft).Rule('-').
		Pair("No:", r.Number).
		Pair("Date:", r.Date)
	if r.Patient != "" {
		doc.Pair("Patient:", r.Patient)
	}
	if r.PatientID != "" {
		doc.Pair("Patient ID:", r.PatientID)
	}
	if r.Cashier != "" {
		doc.Pair("Cashier:", r.Cashier)
	}
	doc.Rule('-')

	for _, item := range r.Items {
		name := item.Name
		if item.Quantity > 1 {
			name = strconv.Itoa(item.Quantity) + " x " + name
		}
		doc.Item(name, money(item.Total))
		if item.Quantity > 1 {
			doc.Text(fmt.Sprintf("  @ %s each", money(item.UnitPrice)))
		}
	}
	doc.Rule('-')

	doc.Pair("Subtotal:", money(r.SubTotal))
	if r.Discount.IsPositive() {
		doc.Pair("Discount:", "-"+money(r.Discount))
	}
	if r.Tax.IsPositive() {
		doc.Pair("Tax:", money(r.Tax))
	}
	doc.Bold(true).Pair("TOTAL:", money(r.Total)).Bold(false)
	doc.Pair("Paid:", money(r.Paid))
	if r.Balance.IsPositive() {
		doc.Pair("Balance:", money(r.Balance))
	}
	if r.Status != "" {
		doc.Pair("Status:", r.Status)
	}
	doc.Rule('-')

	if r.Footer != "" {
		doc.Align(printer.AlignCenter).Text(r.Footer).Align(printer.AlignLeft)
	}
	return doc.Feed(3).Cut()
}
