package service

import (
	"context"
	"strings"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/diaglab/labdesk-api/internal/domain/identifier"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/diaglab/labdesk-api/pkg/metrics"
	"github.com/diaglab/labdesk-api/pkg/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// overdueBatchSize bounds how many invoices RefreshOverdue loads at once
const overdueBatchSize = 200

// InvoiceService issues invoices and records payments against them. Every
// write re-derives the invoice's amounts through Invoice.Recompute.
type InvoiceService struct {
	invoiceRepo repository.InvoiceRepository
	orderRepo   repository.OrderRepository
	patientRepo repository.PatientRepository
	testRepo    repository.LabTestRepository
	packageRepo repository.TestPackageRepository
	tx          repository.Transactor
	identifiers *IdentifierService
	settings    *SettingsService
	mailer      Mailer
	log         *logger.Logger
	now         func() time.Time
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	orderRepo repository.OrderRepository,
	patientRepo repository.PatientRepository,
	testRepo repository.LabTestRepository,
	packageRepo repository.TestPackageRepository,
	tx repository.Transactor,
	identifiers *IdentifierService,
	settings *SettingsService,
	mailer Mailer,
	log *logger.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		orderRepo:   orderRepo,
		patientRepo: patientRepo,
		testRepo:    testRepo,
		packageRepo: packageRepo,
		tx:          tx,
		identifiers: identifiers,
		settings:    settings,
		mailer:      mailer,
		log:         log,
		now:         time.Now,
	}
}

// InvoiceTerms are the adjustable parts of an invoice. A nil TaxPercentage
// takes the lab's default tax rate on a new invoice and keeps the current
// rate on an update.
type InvoiceTerms struct {
	DiscountPercentage decimal.Decimal
	TaxPercentage      *decimal.Decimal
	DiscountAmount     decimal.Decimal
	TaxAmount          decimal.Decimal
	DueDate            *time.Time
	Notes              string
}

func (t *InvoiceTerms) apply(inv *entity.Invoice) {
	inv.DiscountPercentage = t.DiscountPercentage
	if t.TaxPercentage != nil {
		inv.TaxPercentage = *t.TaxPercentage
	}
	inv.DiscountOverride = t.DiscountAmount
	inv.TaxOverride = t.TaxAmount
	if t.DueDate != nil {
		inv.DueDate = *t.DueDate
	}
	inv.Notes = utils.StringPtr(strings.TrimSpace(t.Notes))
}

// LineItemInput is one line on an ad hoc invoice. When a test or package ID
// is given, a missing name or price is taken from the catalog.
type LineItemInput struct {
	Kind      enum.LineItemKind
	LabTestID *uuid.UUID
	PackageID *uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// CreateInvoiceInput represents an invoice not tied to an order
type CreateInvoiceInput struct {
	InvoiceTerms
	PatientID   uuid.UUID
	IssueDate   *time.Time
	LineItems   []LineItemInput
	CreatedByID uuid.UUID
}

// CreateInvoice issues an ad hoc invoice
func (s *InvoiceService) CreateInvoice(ctx context.Context, input *CreateInvoiceInput) (*entity.Invoice, error) {
	if len(input.LineItems) == 0 {
		return nil, apperror.NewFieldError("line_items", "must contain at least one item")
	}

	patient, err := s.patientRepo.GetByID(ctx, input.PatientID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, apperror.NewFieldError("patient_id", "does not exist")
	}

	lines, err := s.resolveLines(ctx, input.LineItems)
	if err != nil {
		return nil, err
	}

	now := s.now()
	invoice := &entity.Invoice{
		PatientID:   patient.ID,
		CreatedByID: input.CreatedByID,
		IssueDate:   now,
		LineItems:   lines,
	}
	if input.IssueDate != nil {
		invoice.IssueDate = *input.IssueDate
	}

	if err := s.issue(ctx, invoice, &input.InvoiceTerms); err != nil {
		return nil, err
	}
	invoice.Patient = patient
	s.notifyIssued(ctx, invoice)
	return invoice, nil
}

func (s *InvoiceService) resolveLines(ctx context.Context, inputs []LineItemInput) ([]entity.InvoiceLineItem, error) {
	lines := make([]entity.InvoiceLineItem, 0, len(inputs))
	for _, in := range inputs {
		line := entity.InvoiceLineItem{
			Kind:      in.Kind,
			LabTestID: in.LabTestID,
			PackageID: in.PackageID,
			Name:      strings.TrimSpace(in.Name),
			UnitPrice: in.UnitPrice,
			Quantity:  in.Quantity,
		}
		if line.Quantity == 0 {
			line.Quantity = 1
		}

		switch {
		case in.LabTestID != nil:
			test, err := s.testRepo.GetByID(ctx, *in.LabTestID)
			if err != nil {
				return nil, err
			}
			if test == nil {
				return nil, apperror.NewFieldError("line_items", "test "+in.LabTestID.String()+" does not exist")
			}
			line.Kind = enum.LineItemKindTest
			if line.Name == "" {
				line.Name = test.Name
			}
			if line.UnitPrice.IsZero() {
				line.UnitPrice = test.Price
			}
		case in.PackageID != nil:
			pkg, err := s.packageRepo.GetByID(ctx, *in.PackageID)
			if err != nil {
				return nil, err
			}
			if pkg == nil {
				return nil, apperror.NewFieldError("line_items", "package "+in.PackageID.String()+" does not exist")
			}
			line.Kind = enum.LineItemKindPackage
			if line.Name == "" {
				line.Name = pkg.Name
			}
			if line.UnitPrice.IsZero() {
				line.UnitPrice = pkg.Price
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// CreateFromOrder bills an order's billable items. Money already taken on the
// order carries over as the invoice's amount paid.
func (s *InvoiceService) CreateFromOrder(ctx context.Context, orderID uuid.UUID, terms *InvoiceTerms, createdByID uuid.UUID) (*entity.Invoice, error) {
	order, err := s.orderRepo.GetWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}
	if order.Status == enum.OrderStatusCancelled {
		return nil, apperror.NewFieldError("order_id", "cannot invoice a cancelled order")
	}

	existing, err := s.invoiceRepo.GetByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.NewConflictError("Order already invoiced as " + existing.InvoiceNumber)
	}

	var lines []entity.InvoiceLineItem
	for _, item := range order.Items {
		if !item.Billable {
			continue
		}
		lines = append(lines, entity.InvoiceLineItem{
			Kind:      item.Kind,
			LabTestID: item.LabTestID,
			PackageID: item.PackageID,
			Name:      item.Name,
			UnitPrice: item.Price,
			Quantity:  1,
		})
	}

	id := order.ID
	invoice := &entity.Invoice{
		PatientID:   order.PatientID,
		OrderID:     &id,
		CreatedByID: createdByID,
		IssueDate:   s.now(),
		AmountPaid:  order.AmountPaid,
		LineItems:   lines,
	}

	if err := s.issue(ctx, invoice, terms); err != nil {
		if isDuplicate(err) {
			return nil, apperror.NewConflictError("Order already invoiced")
		}
		return nil, err
	}
	invoice.Patient = order.Patient
	s.notifyIssued(ctx, invoice)
	return invoice, nil
}

// issue applies terms, recomputes and stores the invoice under a new number
func (s *InvoiceService) issue(ctx context.Context, invoice *entity.Invoice, terms *InvoiceTerms) error {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return err
	}
	if terms == nil {
		terms = &InvoiceTerms{}
	}
	invoice.TaxPercentage = settings.DefaultTaxPercentage
	terms.apply(invoice)

	if err := invoice.Recompute(s.now(), settings.InvoiceDueDays); err != nil {
		return err
	}
	if invoice.DueDate.Before(invoice.IssueDate) {
		return apperror.NewFieldError("due_date", "must not be before the issue date")
	}

	_, err = s.identifiers.Issue(ctx, identifier.KindInvoice, func(ctx context.Context, code string) error {
		invoice.ID = uuid.Nil
		for i := range invoice.LineItems {
			invoice.LineItems[i].ID = uuid.Nil
			invoice.LineItems[i].InvoiceID = uuid.Nil
		}
		invoice.InvoiceNumber = code
		return s.invoiceRepo.Create(ctx, invoice)
	})
	if err != nil {
		return err
	}

	s.log.WithComponent("invoices").WithFields(logrus.Fields{
		"invoice_number": invoice.InvoiceNumber,
		"total":          invoice.TotalAmount.StringFixed(2),
		"payment_status": invoice.PaymentStatus.String(),
	}).Info("Invoice issued")
	return nil
}

func (s *InvoiceService) notifyIssued(ctx context.Context, invoice *entity.Invoice) {
	if invoice.Patient == nil || invoice.Patient.Email == nil {
		return
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil || !settings.InvoiceEmailNotifications {
		return
	}
	err = s.mailer.SendInvoiceIssued(
		*invoice.Patient.Email,
		invoice.Patient.FullName(),
		invoice.InvoiceNumber,
		settings.Currency+" "+invoice.TotalAmount.StringFixed(2),
		invoice.DueDate.Format("2006-01-02"),
	)
	if err != nil {
		s.log.WithComponent("invoices").WithError(err).WithField("invoice_number", invoice.InvoiceNumber).
			Warn("Failed to send invoice email")
	}
}

// GetInvoice returns an invoice with its lines and payments
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	return invoice, nil
}

// ListInvoices returns a filtered, paginated list of invoices
func (s *InvoiceService) ListInvoices(ctx context.Context, params *repository.InvoiceFilterParams) ([]entity.Invoice, int64, error) {
	params.Search = strings.TrimSpace(params.Search)
	return s.invoiceRepo.List(ctx, params)
}

// UpdateInvoiceInput changes an invoice's terms and, optionally, its lines
type UpdateInvoiceInput struct {
	InvoiceTerms
	LineItems []LineItemInput
}

// UpdateInvoice replaces the terms (and lines when given) and recomputes.
// The invoice row is locked for the read-modify-write so a payment recorded
// meanwhile is not overwritten.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id uuid.UUID, input *UpdateInvoiceInput) (*entity.Invoice, error) {
	var lines []entity.InvoiceLineItem
	if input.LineItems != nil {
		if len(input.LineItems) == 0 {
			return nil, apperror.NewFieldError("line_items", "must contain at least one item")
		}
		var err error
		if lines, err = s.resolveLines(ctx, input.LineItems); err != nil {
			return nil, err
		}
	}

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		invoice, err := s.lockInvoice(ctx, id)
		if err != nil {
			return err
		}
		if lines != nil {
			invoice.LineItems = lines
		}
		input.InvoiceTerms.apply(invoice)
		if err := invoice.Recompute(s.now(), settings.InvoiceDueDays); err != nil {
			return err
		}
		return s.invoiceRepo.Update(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, id)
}

func (s *InvoiceService) lockInvoice(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	invoice, err := s.invoiceRepo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	return invoice, nil
}

// DeleteInvoice deletes an invoice that has no payments
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.lockInvoice(ctx, id); err != nil {
			return err
		}
		payments, err := s.invoiceRepo.ListPayments(ctx, id)
		if err != nil {
			return err
		}
		if len(payments) > 0 {
			return apperror.NewConflictError("Invoice has payments and cannot be deleted")
		}
		return s.invoiceRepo.Delete(ctx, id)
	})
}

// RecomputeInvoice re-derives an invoice's amounts and status from its
// current lines, adjustments and payments
func (s *InvoiceService) RecomputeInvoice(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		invoice, err := s.lockInvoice(ctx, id)
		if err != nil {
			return err
		}
		if err := invoice.Recompute(s.now(), settings.InvoiceDueDays); err != nil {
			return err
		}
		return s.invoiceRepo.SaveTotals(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, id)
}

// RecordPayment adds a payment to an invoice under a row lock and recomputes
// it. Paying more than the balance leaves a zero balance.
func (s *InvoiceService) RecordPayment(ctx context.Context, invoiceID uuid.UUID, input *PaymentInput) (*entity.Invoice, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	payment := input.payment(now)

	invoice, err := s.invoiceRepo.RecordPayment(ctx, invoiceID, payment, func(invoice *entity.Invoice) error {
		invoice.AmountPaid = invoice.AmountPaid.Add(payment.Amount)
		return invoice.Recompute(now, settings.InvoiceDueDays)
	})
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, apperror.NewNotFoundError("Invoice")
	}

	metrics.PaymentRecorded("invoice")
	s.log.Audit(input.ReceivedByID.String(), "payment.recorded", "invoice", logrus.Fields{
		"invoice_number": invoice.InvoiceNumber,
		"amount":         payment.Amount.StringFixed(2),
		"method":         payment.Method.String(),
		"balance":        invoice.BalanceAmount.StringFixed(2),
		"payment_status": invoice.PaymentStatus.String(),
	})
	return invoice, nil
}

// ListPayments returns an invoice's payments oldest first
func (s *InvoiceService) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]entity.Payment, error) {
	if _, err := s.GetInvoice(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.invoiceRepo.ListPayments(ctx, invoiceID)
}

// RefreshOverdue recomputes unpaid invoices whose due date has passed so
// their stored status reads overdue. It returns how many changed.
func (s *InvoiceService) RefreshOverdue(ctx context.Context) (int, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	updated := 0
	for {
		invoices, err := s.invoiceRepo.ListUnpaidPastDue(ctx, now, overdueBatchSize)
		if err != nil {
			return updated, err
		}

		changed := 0
		for i := range invoices {
			ok, err := s.markOverdue(ctx, invoices[i].ID, now, settings.InvoiceDueDays)
			if err != nil {
				return updated + changed, err
			}
			if ok {
				changed++
			}
		}
		updated += changed

		if len(invoices) < overdueBatchSize || changed == 0 {
			break
		}
	}

	s.log.WithComponent("invoices").WithField("updated", updated).Info("Overdue invoices refreshed")
	return updated, nil
}

// markOverdue recomputes one invoice under its row lock and saves the totals
// when the status moved. A payment that landed since the listing is kept.
func (s *InvoiceService) markOverdue(ctx context.Context, id uuid.UUID, now time.Time, dueDays int) (bool, error) {
	changed := false
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.invoiceRepo.GetForUpdate(ctx, id)
		if err != nil || inv == nil {
			return err
		}
		before := inv.PaymentStatus
		if err := inv.Recompute(now, dueDays); err != nil {
			s.log.WithComponent("invoices").WithError(err).WithField("invoice_number", inv.InvoiceNumber).
				Warn("Skipping invoice that failed to recompute")
			return nil
		}
		if inv.PaymentStatus == before {
			return nil
		}
		changed = true
		return s.invoiceRepo.SaveTotals(ctx, inv)
	})
	return changed, err
}
