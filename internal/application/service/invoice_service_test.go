package service

import (
	"context"
	"testing"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type invoiceFixture struct {
	svc      *InvoiceService
	invoices *MockInvoiceRepository
	orders   *MockOrderRepository
	patients *MockPatientRepository
	mailer   *MockMailer
}

func newInvoiceFixture() *invoiceFixture {
	f := &invoiceFixture{
		invoices: new(MockInvoiceRepository),
		orders:   new(MockOrderRepository),
		patients: new(MockPatientRepository),
		mailer:   new(MockMailer),
	}
	tx := &fakeTx{}
	f.svc = NewInvoiceService(
		f.invoices, f.orders, f.patients,
		new(MockLabTestRepository), new(MockPackageRepository),
		tx, newTestIdentifiers(newFakeSequences(), tx), newTestSettings(), f.mailer, logger.Discard(),
	)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pct(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// unpaidInvoice is the 25 + 35 invoice with 10% discount and 5% tax
func unpaidInvoice(t *testing.T) *entity.Invoice {
	inv := &entity.Invoice{
		ID:                 uuid.New(),
		InvoiceNumber:      "INV2024010001",
		IssueDate:          fixedNow,
		DiscountPercentage: dec("10"),
		TaxPercentage:      dec("5"),
		LineItems: []entity.InvoiceLineItem{
			{Name: "Complete Blood Count", UnitPrice: dec("25"), Quantity: 1},
			{Name: "Lipid Panel", UnitPrice: dec("35"), Quantity: 1},
		},
	}
	require.NoError(t, inv.Recompute(fixedNow, 30))
	return inv
}

func TestInvoiceService_CreateInvoice(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()
	patient := &entity.Patient{ID: uuid.New(), PatientCode: "PAT000001", FirstName: "Amina", LastName: "Otieno"}

	f.patients.On("GetByID", ctx, patient.ID).Return(patient, nil)
	f.invoices.On("Create", mock.Anything, mock.AnythingOfType("*entity.Invoice")).Return(nil)

	invoice, err := f.svc.CreateInvoice(ctx, &CreateInvoiceInput{
		InvoiceTerms: InvoiceTerms{
			DiscountPercentage: dec("10"),
			TaxPercentage:      pct("5"),
		},
		PatientID: patient.ID,
		LineItems: []LineItemInput{
			{Name: "Complete Blood Count", UnitPrice: dec("25"), Quantity: 1},
			{Name: "Lipid Panel", UnitPrice: dec("35"), Quantity: 1},
		},
		CreatedByID: uuid.New(),
	})

	require.NoError(t, err)
	assert.Equal(t, "INV2024010001", invoice.InvoiceNumber)
	assert.Equal(t, "60.00", invoice.Subtotal.StringFixed(2))
	assert.Equal(t, "6.00", invoice.DiscountAmount.StringFixed(2))
	assert.Equal(t, "2.70", invoice.TaxAmount.StringFixed(2))
	assert.Equal(t, "56.70", invoice.TotalAmount.StringFixed(2))
	assert.Equal(t, "56.70", invoice.BalanceAmount.StringFixed(2))
	assert.Equal(t, enum.PaymentStatusPending, invoice.PaymentStatus)
	assert.Equal(t, fixedNow.AddDate(0, 0, 30), invoice.DueDate)
	assert.Equal(t, 2, invoice.LineItems[1].Position)

	f.invoices.AssertExpectations(t)
	f.mailer.AssertNotCalled(t, "SendInvoiceIssued", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInvoiceService_CreateInvoice_EmailsPatient(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()
	email := "amina@example.com"
	patient := &entity.Patient{ID: uuid.New(), FirstName: "Amina", LastName: "Otieno", Email: &email}

	f.patients.On("GetByID", ctx, patient.ID).Return(patient, nil)
	f.invoices.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.mailer.On("SendInvoiceIssued", email, "Amina Otieno", "INV2024010001", "USD 40.00", "2024-02-14").Return(nil)

	_, err := f.svc.CreateInvoice(ctx, &CreateInvoiceInput{
		PatientID: patient.ID,
		LineItems: []LineItemInput{{Name: "Thyroid Panel", UnitPrice: dec("40")}},
	})

	require.NoError(t, err)
	f.mailer.AssertExpectations(t)
}

func TestInvoiceService_CreateInvoice_Validation(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	_, err := f.svc.CreateInvoice(ctx, &CreateInvoiceInput{PatientID: uuid.New()})
	assert.True(t, apperror.IsValidation(err))

	missing := uuid.New()
	f.patients.On("GetByID", ctx, missing).Return(nil, nil)
	_, err = f.svc.CreateInvoice(ctx, &CreateInvoiceInput{
		PatientID: missing,
		LineItems: []LineItemInput{{Name: "CBC", UnitPrice: dec("25")}},
	})
	assert.True(t, apperror.IsValidation(err))

	patient := &entity.Patient{ID: uuid.New()}
	f.patients.On("GetByID", ctx, patient.ID).Return(patient, nil)
	_, err = f.svc.CreateInvoice(ctx, &CreateInvoiceInput{
		PatientID: patient.ID,
		LineItems: []LineItemInput{{Name: "CBC", UnitPrice: dec("-25")}},
	})
	assert.True(t, apperror.IsValidation(err))
	f.invoices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInvoiceService_RecordPayment(t *testing.T) {
	receiver := uuid.New()

	tests := []struct {
		name        string
		amount      string
		wantBalance string
		wantStatus  enum.PaymentStatus
	}{
		{"exact payment settles the invoice", "56.70", "0.00", enum.PaymentStatusPaid},
		{"part payment leaves a balance", "20", "36.70", enum.PaymentStatusPartial},
		{"over-payment clamps the balance", "100", "0.00", enum.PaymentStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newInvoiceFixture()
			ctx := context.Background()
			inv := unpaidInvoice(t)

			f.invoices.On("RecordPayment", ctx, inv.ID, mock.AnythingOfType("*entity.Payment")).Return(inv, nil)

			got, err := f.svc.RecordPayment(ctx, inv.ID, &PaymentInput{
				Amount:       dec(tt.amount),
				Method:       enum.PaymentMethodCash,
				ReceivedByID: receiver,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.wantBalance, got.BalanceAmount.StringFixed(2))
			assert.Equal(t, tt.wantStatus, got.PaymentStatus)
			assert.Equal(t, "56.70", got.TotalAmount.StringFixed(2))
		})
	}
}

func TestInvoiceService_RecordPayment_RejectsBadAmounts(t *testing.T) {
	f := newInvoiceFixture()
	id := uuid.New()

	for _, amount := range []string{"0", "-5", "10.005"} {
		_, err := f.svc.RecordPayment(context.Background(), id, &PaymentInput{Amount: dec(amount)})
		assert.True(t, apperror.IsValidation(err), amount)
	}
	f.invoices.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestInvoiceService_RecordPayment_NotFound(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()
	id := uuid.New()

	f.invoices.On("RecordPayment", ctx, id, mock.Anything).Return(nil, nil)

	_, err := f.svc.RecordPayment(ctx, id, &PaymentInput{Amount: dec("5")})
	require.Error(t, err)
	assert.Equal(t, 404, apperror.GetAppError(err).Code)
}

func TestInvoiceService_CreateFromOrder(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()
	cbc := uuid.New()
	panel := uuid.New()
	order := &entity.Order{
		ID:         uuid.New(),
		PatientID:  uuid.New(),
		Status:     enum.OrderStatusInProgress,
		AmountPaid: dec("20"),
		Items: []entity.OrderItem{
			{Kind: enum.LineItemKindPackage, PackageID: &panel, Name: "Wellness Panel", Price: dec("35"), Billable: true},
			{Kind: enum.LineItemKindTest, LabTestID: &cbc, Name: "Glucose", Price: dec("0"), Billable: false},
			{Kind: enum.LineItemKindTest, LabTestID: &cbc, Name: "Complete Blood Count", Price: dec("25"), Billable: true},
		},
	}

	f.orders.On("GetWithItems", ctx, order.ID).Return(order, nil)
	f.invoices.On("GetByOrderID", ctx, order.ID).Return(nil, nil)
	f.invoices.On("Create", mock.Anything, mock.Anything).Return(nil)

	invoice, err := f.svc.CreateFromOrder(ctx, order.ID, &InvoiceTerms{
		DiscountPercentage: dec("10"),
		TaxPercentage:      pct("5"),
	}, uuid.New())

	require.NoError(t, err)
	require.Len(t, invoice.LineItems, 2)
	assert.Equal(t, order.ID, *invoice.OrderID)
	assert.Equal(t, "56.70", invoice.TotalAmount.StringFixed(2))
	assert.Equal(t, "36.70", invoice.BalanceAmount.StringFixed(2))
	assert.Equal(t, enum.PaymentStatusPartial, invoice.PaymentStatus)
}

func TestInvoiceService_CreateFromOrder_Conflicts(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	invoiced := &entity.Order{ID: uuid.New(), Status: enum.OrderStatusCompleted}
	f.orders.On("GetWithItems", ctx, invoiced.ID).Return(invoiced, nil)
	f.invoices.On("GetByOrderID", ctx, invoiced.ID).Return(&entity.Invoice{InvoiceNumber: "INV2024010001"}, nil)

	_, err := f.svc.CreateFromOrder(ctx, invoiced.ID, nil, uuid.New())
	require.Error(t, err)
	assert.Equal(t, 409, apperror.GetAppError(err).Code)

	cancelled := &entity.Order{ID: uuid.New(), Status: enum.OrderStatusCancelled}
	f.orders.On("GetWithItems", ctx, cancelled.ID).Return(cancelled, nil)

	_, err = f.svc.CreateFromOrder(ctx, cancelled.ID, nil, uuid.New())
	assert.True(t, apperror.IsValidation(err))
	f.invoices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInvoiceService_CreateFromOrder_ConcurrentInvoiceIsConflict(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()
	order := &entity.Order{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		Status:    enum.OrderStatusCompleted,
		Items:     []entity.OrderItem{{Name: "Complete Blood Count", Price: dec("25"), Billable: true}},
	}

	f.orders.On("GetWithItems", ctx, order.ID).Return(order, nil)
	f.invoices.On("GetByOrderID", ctx, order.ID).Return(nil, nil)
	// another request invoiced the order between the check and the insert
	f.invoices.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicateKey).Once()

	_, err := f.svc.CreateFromOrder(ctx, order.ID, nil, uuid.New())

	require.Error(t, err)
	appErr := apperror.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 409, appErr.Code)
	assert.Equal(t, "Order already invoiced", appErr.Message)
	f.invoices.AssertNumberOfCalls(t, "Create", 1)
}

func TestInvoiceService_CreateInvoice_DefaultTax(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()
	patient := &entity.Patient{ID: uuid.New()}
	f.svc.settings = newTestSettingsWithTax(8)

	f.patients.On("GetByID", ctx, patient.ID).Return(patient, nil)
	f.invoices.On("Create", mock.Anything, mock.Anything).Return(nil)

	invoice, err := f.svc.CreateInvoice(ctx, &CreateInvoiceInput{
		PatientID: patient.ID,
		LineItems: []LineItemInput{{Name: "Thyroid Panel", UnitPrice: dec("50")}},
	})

	require.NoError(t, err)
	assert.Equal(t, "8", invoice.TaxPercentage.String())
	assert.Equal(t, "4.00", invoice.TaxAmount.StringFixed(2))
}

func TestInvoiceService_UpdateInvoice(t *testing.T) {
	t.Run("keeps the current tax rate when none is given", func(t *testing.T) {
		f := newInvoiceFixture()
		ctx := context.Background()
		inv := unpaidInvoice(t)
		f.svc.settings = newTestSettingsWithTax(16)

		f.invoices.On("GetForUpdate", ctx, inv.ID).Return(inv, nil)
		f.invoices.On("Update", ctx, mock.MatchedBy(func(i *entity.Invoice) bool {
			return i.TaxPercentage.Equal(dec("5")) && i.DiscountPercentage.IsZero()
		})).Return(nil)
		f.invoices.On("GetByID", ctx, inv.ID).Return(inv, nil)

		got, err := f.svc.UpdateInvoice(ctx, inv.ID, &UpdateInvoiceInput{})

		require.NoError(t, err)
		assert.Equal(t, "3.00", got.TaxAmount.StringFixed(2))
		assert.Equal(t, "63.00", got.TotalAmount.StringFixed(2))
		f.invoices.AssertExpectations(t)
	})

	t.Run("recomputes from the locked row", func(t *testing.T) {
		f := newInvoiceFixture()
		ctx := context.Background()
		inv := unpaidInvoice(t)
		// a payment landed after any earlier read
		inv.AmountPaid = dec("20")

		f.invoices.On("GetForUpdate", ctx, inv.ID).Return(inv, nil)
		f.invoices.On("Update", ctx, mock.MatchedBy(func(i *entity.Invoice) bool {
			return i.AmountPaid.Equal(dec("20")) && i.PaymentStatus == enum.PaymentStatusPartial
		})).Return(nil)
		f.invoices.On("GetByID", ctx, inv.ID).Return(inv, nil)

		_, err := f.svc.UpdateInvoice(ctx, inv.ID, &UpdateInvoiceInput{
			InvoiceTerms: InvoiceTerms{DiscountPercentage: dec("10"), TaxPercentage: pct("5")},
		})

		require.NoError(t, err)
		f.invoices.AssertExpectations(t)
		f.invoices.AssertNotCalled(t, "SaveTotals", mock.Anything, mock.Anything)
	})

	t.Run("missing invoice", func(t *testing.T) {
		f := newInvoiceFixture()
		ctx := context.Background()
		id := uuid.New()

		f.invoices.On("GetForUpdate", ctx, id).Return(nil, nil)

		_, err := f.svc.UpdateInvoice(ctx, id, &UpdateInvoiceInput{})

		require.Error(t, err)
		assert.Equal(t, 404, apperror.GetAppError(err).Code)
		f.invoices.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestInvoiceService_RecomputeInvoice_UsesLockedRow(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()
	inv := unpaidInvoice(t)
	inv.AmountPaid = dec("56.70")

	f.invoices.On("GetForUpdate", ctx, inv.ID).Return(inv, nil)
	f.invoices.On("SaveTotals", ctx, mock.MatchedBy(func(i *entity.Invoice) bool {
		return i.PaymentStatus == enum.PaymentStatusPaid && i.BalanceAmount.IsZero()
	})).Return(nil)
	f.invoices.On("GetByID", ctx, inv.ID).Return(inv, nil)

	_, err := f.svc.RecomputeInvoice(ctx, inv.ID)

	require.NoError(t, err)
	f.invoices.AssertExpectations(t)
}

func TestInvoiceService_DeleteInvoice_WithPayments(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()
	inv := unpaidInvoice(t)

	f.invoices.On("GetForUpdate", ctx, inv.ID).Return(inv, nil)
	f.invoices.On("ListPayments", ctx, inv.ID).Return([]entity.Payment{{Amount: dec("5")}}, nil)

	err := f.svc.DeleteInvoice(ctx, inv.ID)
	assert.Equal(t, 409, apperror.GetAppError(err).Code)
	f.invoices.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestInvoiceService_RefreshOverdue(t *testing.T) {
	f := newInvoiceFixture()
	ctx := context.Background()

	lapsed := *unpaidInvoice(t)
	lapsed.DueDate = fixedNow.AddDate(0, 0, -1)

	// listed as unpaid, but a payment was recorded before the lock was taken
	paidSince := *unpaidInvoice(t)
	paidSince.ID = uuid.New()
	paidSince.DueDate = fixedNow.AddDate(0, 0, -1)
	locked := paidSince
	locked.AmountPaid = dec("20")
	require.NoError(t, locked.Recompute(fixedNow, 30))

	f.invoices.On("ListUnpaidPastDue", ctx, fixedNow, overdueBatchSize).
		Return([]entity.Invoice{lapsed, paidSince}, nil).Once()
	f.invoices.On("GetForUpdate", ctx, lapsed.ID).Return(&lapsed, nil)
	f.invoices.On("GetForUpdate", ctx, paidSince.ID).Return(&locked, nil)
	f.invoices.On("SaveTotals", ctx, mock.MatchedBy(func(inv *entity.Invoice) bool {
		return inv.ID == lapsed.ID && inv.PaymentStatus == enum.PaymentStatusOverdue
	})).Return(nil).Once()

	updated, err := f.svc.RefreshOverdue(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	f.invoices.AssertExpectations(t)
}
