package service

import (
	"context"
	"time"

	"github.com/diaglab/labdesk-api/internal/config"
	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/diaglab/labdesk-api/internal/domain/identifier"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/diaglab/labdesk-api/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// fixedNow is 2024-01-15 09:30 UTC
var fixedNow = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

// fakeTx runs fn inline and counts how often it was asked to
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

// fakeSequences is an in-memory counter per scope
type fakeSequences struct {
	values map[string]int64
	err    error
}

func newFakeSequences() *fakeSequences {
	return &fakeSequences{values: map[string]int64{}}
}

func (f *fakeSequences) Next(_ context.Context, scope string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.values[scope]++
	return f.values[scope], nil
}

func newTestIdentifiers(seq repository.SequenceRepository, tx repository.Transactor) *IdentifierService {
	svc := NewIdentifierService(seq, tx, identifier.NewGenerator(identifier.DefaultWidths()), DefaultIdentifierAttempts, logger.Discard())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

// staticSettings returns no stored row so the defaults apply
type staticSettings struct {
	settings *entity.LabSettings
}

func (s *staticSettings) Get(context.Context) (*entity.LabSettings, error) {
	return s.settings, nil
}

func (s *staticSettings) Save(_ context.Context, settings *entity.LabSettings) error {
	s.settings = settings
	return nil
}

func newTestSettings() *SettingsService {
	return newTestSettingsWithTax(0)
}

func newTestSettingsWithTax(tax float64) *SettingsService {
	return NewSettingsService(&staticSettings{}, config.BillingConfig{
		InvoiceDueDays:       30,
		Currency:             "USD",
		DefaultTaxPercentage: tax,
	})
}

// MockMailer is a mock implementation of Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendPasswordReset(toEmail, token string) error {
	return m.Called(toEmail, token).Error(0)
}

func (m *MockMailer) SendResultsReady(toEmail, patientName, orderNumber string) error {
	return m.Called(toEmail, patientName, orderNumber).Error(0)
}

func (m *MockMailer) SendInvoiceIssued(toEmail, patientName, invoiceNumber, total, dueDate string) error {
	return m.Called(toEmail, patientName, invoiceNumber, total, dueDate).Error(0)
}

// MockPatientRepository is a mock implementation of PatientRepository
type MockPatientRepository struct {
	mock.Mock
}

func (m *MockPatientRepository) Create(ctx context.Context, patient *entity.Patient) error {
	return m.Called(ctx, patient).Error(0)
}

func (m *MockPatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Patient, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*entity.Patient)
	return p, args.Error(1)
}

func (m *MockPatientRepository) GetByCode(ctx context.Context, code string) (*entity.Patient, error) {
	args := m.Called(ctx, code)
	p, _ := args.Get(0).(*entity.Patient)
	return p, args.Error(1)
}

func (m *MockPatientRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Patient, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*entity.Patient)
	return p, args.Error(1)
}

func (m *MockPatientRepository) Update(ctx context.Context, patient *entity.Patient) error {
	return m.Called(ctx, patient).Error(0)
}

func (m *MockPatientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPatientRepository) List(ctx context.Context, params *repository.PatientFilterParams) ([]entity.Patient, int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]entity.Patient), args.Get(1).(int64), args.Error(2)
}

func (m *MockPatientRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockDoctorRepository is a mock implementation of DoctorRepository
type MockDoctorRepository struct {
	mock.Mock
}

func (m *MockDoctorRepository) Create(ctx context.Context, doctor *entity.Doctor) error {
	return m.Called(ctx, doctor).Error(0)
}

func (m *MockDoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Doctor, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*entity.Doctor)
	return d, args.Error(1)
}

func (m *MockDoctorRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Doctor, error) {
	args := m.Called(ctx, userID)
	d, _ := args.Get(0).(*entity.Doctor)
	return d, args.Error(1)
}

func (m *MockDoctorRepository) GetByLicense(ctx context.Context, license string) (*entity.Doctor, error) {
	args := m.Called(ctx, license)
	d, _ := args.Get(0).(*entity.Doctor)
	return d, args.Error(1)
}

func (m *MockDoctorRepository) Update(ctx context.Context, doctor *entity.Doctor) error {
	return m.Called(ctx, doctor).Error(0)
}

func (m *MockDoctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockDoctorRepository) List(ctx context.Context, params *repository.StaffFilterParams) ([]entity.Doctor, int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]entity.Doctor), args.Get(1).(int64), args.Error(2)
}

// MockTechnicianRepository is a mock implementation of TechnicianRepository
type MockTechnicianRepository struct {
	mock.Mock
}

func (m *MockTechnicianRepository) Create(ctx context.Context, tech *entity.LabTechnician) error {
	return m.Called(ctx, tech).Error(0)
}

func (m *MockTechnicianRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.LabTechnician, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*entity.LabTechnician)
	return t, args.Error(1)
}

func (m *MockTechnicianRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.LabTechnician, error) {
	args := m.Called(ctx, userID)
	t, _ := args.Get(0).(*entity.LabTechnician)
	return t, args.Error(1)
}

func (m *MockTechnicianRepository) Update(ctx context.Context, tech *entity.LabTechnician) error {
	return m.Called(ctx, tech).Error(0)
}

func (m *MockTechnicianRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTechnicianRepository) List(ctx context.Context, params *repository.StaffFilterParams) ([]entity.LabTechnician, int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]entity.LabTechnician), args.Get(1).(int64), args.Error(2)
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) GetByProviderID(ctx context.Context, provider, providerID string) (*entity.User, error) {
	args := m.Called(ctx, provider, providerID)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, params *repository.UserFilterParams) ([]entity.User, int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]entity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) GetWithRoles(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) AssignRole(ctx context.Context, userID uuid.UUID, roleID uint) error {
	return m.Called(ctx, userID, roleID).Error(0)
}

func (m *MockUserRepository) RemoveRole(ctx context.Context, userID uuid.UUID, roleID uint) error {
	return m.Called(ctx, userID, roleID).Error(0)
}

// MockRoleRepository is a mock implementation of RoleRepository
type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) Create(ctx context.Context, role *entity.Role) error {
	return m.Called(ctx, role).Error(0)
}

func (m *MockRoleRepository) GetByID(ctx context.Context, id uint) (*entity.Role, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*entity.Role)
	return r, args.Error(1)
}

func (m *MockRoleRepository) GetByName(ctx context.Context, name string) (*entity.Role, error) {
	args := m.Called(ctx, name)
	r, _ := args.Get(0).(*entity.Role)
	return r, args.Error(1)
}

func (m *MockRoleRepository) List(ctx context.Context) ([]entity.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Role), args.Error(1)
}

func (m *MockRoleRepository) SyncPermissions(ctx context.Context, roleID uint, permissionIDs []uint) error {
	return m.Called(ctx, roleID, permissionIDs).Error(0)
}

// MockPasswordResetRepository is a mock implementation of PasswordResetTokenRepository
type MockPasswordResetRepository struct {
	mock.Mock
}

func (m *MockPasswordResetRepository) Create(ctx context.Context, token *entity.PasswordResetToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockPasswordResetRepository) GetByHash(ctx context.Context, tokenHash string) (*entity.PasswordResetToken, error) {
	args := m.Called(ctx, tokenHash)
	t, _ := args.Get(0).(*entity.PasswordResetToken)
	return t, args.Error(1)
}

func (m *MockPasswordResetRepository) MarkAsUsed(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPasswordResetRepository) DeleteByEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockPasswordResetRepository) DeleteExpired(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockLabTestRepository is a mock implementation of LabTestRepository
type MockLabTestRepository struct {
	mock.Mock
}

func (m *MockLabTestRepository) Create(ctx context.Context, test *entity.LabTest) error {
	return m.Called(ctx, test).Error(0)
}

func (m *MockLabTestRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.LabTest, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*entity.LabTest)
	return t, args.Error(1)
}

func (m *MockLabTestRepository) GetByCode(ctx context.Context, code string) (*entity.LabTest, error) {
	args := m.Called(ctx, code)
	t, _ := args.Get(0).(*entity.LabTest)
	return t, args.Error(1)
}

func (m *MockLabTestRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.LabTest, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]entity.LabTest), args.Error(1)
}

func (m *MockLabTestRepository) Update(ctx context.Context, test *entity.LabTest) error {
	return m.Called(ctx, test).Error(0)
}

func (m *MockLabTestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLabTestRepository) List(ctx context.Context, params *repository.LabTestFilterParams) ([]entity.LabTest, int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]entity.LabTest), args.Get(1).(int64), args.Error(2)
}

// MockPackageRepository is a mock implementation of TestPackageRepository
type MockPackageRepository struct {
	mock.Mock
}

func (m *MockPackageRepository) Create(ctx context.Context, pkg *entity.TestPackage) error {
	return m.Called(ctx, pkg).Error(0)
}

func (m *MockPackageRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.TestPackage, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*entity.TestPackage)
	return p, args.Error(1)
}

func (m *MockPackageRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.TestPackage, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]entity.TestPackage), args.Error(1)
}

func (m *MockPackageRepository) Update(ctx context.Context, pkg *entity.TestPackage) error {
	return m.Called(ctx, pkg).Error(0)
}

func (m *MockPackageRepository) ReplaceTests(ctx context.Context, pkg *entity.TestPackage, tests []entity.LabTest) error {
	return m.Called(ctx, pkg, tests).Error(0)
}

func (m *MockPackageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPackageRepository) List(ctx context.Context, params *pagination.PaginationParams, search string, activeOnly bool) ([]entity.TestPackage, int64, error) {
	args := m.Called(ctx, params, search, activeOnly)
	return args.Get(0).([]entity.TestPackage), args.Get(1).(int64), args.Error(2)
}

// MockOrderRepository is a mock implementation of OrderRepository.
// RecordPayment runs apply against the order returned by the expectation.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *entity.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*entity.Order)
	return o, args.Error(1)
}

func (m *MockOrderRepository) GetByNumber(ctx context.Context, number string) (*entity.Order, error) {
	args := m.Called(ctx, number)
	o, _ := args.Get(0).(*entity.Order)
	return o, args.Error(1)
}

func (m *MockOrderRepository) GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*entity.Order)
	return o, args.Error(1)
}

func (m *MockOrderRepository) Update(ctx context.Context, order *entity.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) UpdateItem(ctx context.Context, item *entity.OrderItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockOrderRepository) List(ctx context.Context, params *repository.OrderFilterParams) ([]entity.Order, int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]entity.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) ListWithCursor(ctx context.Context, params *repository.OrderCursorFilterParams) ([]entity.Order, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]entity.Order), args.Error(1)
}

func (m *MockOrderRepository) RecordPayment(ctx context.Context, orderID uuid.UUID, payment *entity.Payment, apply func(order *entity.Order) error) (*entity.Order, error) {
	args := m.Called(ctx, orderID, payment)
	order, _ := args.Get(0).(*entity.Order)
	if order == nil || args.Error(1) != nil {
		return nil, args.Error(1)
	}
	if err := apply(order); err != nil {
		return nil, err
	}
	payment.OrderID = &order.ID
	return order, nil
}

func (m *MockOrderRepository) CountByStatus(ctx context.Context, status enum.OrderStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

// MockInvoiceRepository is a mock implementation of InvoiceRepository.
// RecordPayment runs apply against the invoice returned by the expectation.
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	args := m.Called(ctx, id)
	i, _ := args.Get(0).(*entity.Invoice)
	return i, args.Error(1)
}

func (m *MockInvoiceRepository) GetByNumber(ctx context.Context, number string) (*entity.Invoice, error) {
	args := m.Called(ctx, number)
	i, _ := args.Get(0).(*entity.Invoice)
	return i, args.Error(1)
}

func (m *MockInvoiceRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.Invoice, error) {
	args := m.Called(ctx, orderID)
	i, _ := args.Get(0).(*entity.Invoice)
	return i, args.Error(1)
}

func (m *MockInvoiceRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	args := m.Called(ctx, id)
	i, _ := args.Get(0).(*entity.Invoice)
	return i, args.Error(1)
}

func (m *MockInvoiceRepository) Update(ctx context.Context, invoice *entity.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *MockInvoiceRepository) SaveTotals(ctx context.Context, invoice *entity.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *MockInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockInvoiceRepository) List(ctx context.Context, params *repository.InvoiceFilterParams) ([]entity.Invoice, int64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]entity.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) ListUnpaidPastDue(ctx context.Context, now time.Time, limit int) ([]entity.Invoice, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]entity.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) RecordPayment(ctx context.Context, invoiceID uuid.UUID, payment *entity.Payment, apply func(invoice *entity.Invoice) error) (*entity.Invoice, error) {
	args := m.Called(ctx, invoiceID, payment)
	invoice, _ := args.Get(0).(*entity.Invoice)
	if invoice == nil || args.Error(1) != nil {
		return nil, args.Error(1)
	}
	if err := apply(invoice); err != nil {
		return nil, err
	}
	payment.InvoiceID = &invoice.ID
	return invoice, nil
}

func (m *MockInvoiceRepository) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]entity.Payment, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]entity.Payment), args.Error(1)
}
