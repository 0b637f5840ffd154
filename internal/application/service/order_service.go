package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/diaglab/labdesk-api/internal/domain/identifier"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/diaglab/labdesk-api/pkg/metrics"
	"github.com/diaglab/labdesk-api/pkg/pagination"
	"github.com/diaglab/labdesk-api/pkg/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// OrderService runs lab orders from booking through results and verification
type OrderService struct {
	orderRepo   repository.OrderRepository
	patientRepo repository.PatientRepository
	doctorRepo  repository.DoctorRepository
	techRepo    repository.TechnicianRepository
	testRepo    repository.LabTestRepository
	packageRepo repository.TestPackageRepository
	tx          repository.Transactor
	identifiers *IdentifierService
	settings    *SettingsService
	mailer      Mailer
	log         *logger.Logger
	now         func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo repository.OrderRepository,
	patientRepo repository.PatientRepository,
	doctorRepo repository.DoctorRepository,
	techRepo repository.TechnicianRepository,
	testRepo repository.LabTestRepository,
	packageRepo repository.TestPackageRepository,
	tx repository.Transactor,
	identifiers *IdentifierService,
	settings *SettingsService,
	mailer Mailer,
	log *logger.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		techRepo:    techRepo,
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

// PaymentInput is money received at the counter
type PaymentInput struct {
	Amount       decimal.Decimal
	Method       enum.PaymentMethod
	Reference    string
	ReceivedByID uuid.UUID
}

func (in *PaymentInput) validate() error {
	if !in.Amount.IsPositive() {
		return apperror.NewFieldError("amount", "must be greater than zero")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return apperror.NewFieldError("amount", "must have at most 2 decimal places")
	}
	return nil
}

func (in *PaymentInput) payment(now time.Time) *entity.Payment {
	return &entity.Payment{
		Amount:       in.Amount.Round(2),
		Method:       in.Method,
		Reference:    utils.StringPtr(strings.TrimSpace(in.Reference)),
		ReceivedByID: in.ReceivedByID,
		PaidAt:       now,
	}
}

// CreateOrderInput represents a new order
type CreateOrderInput struct {
	PatientID      uuid.UUID
	DoctorID       *uuid.UUID
	Priority       enum.OrderPriority
	Notes          string
	TestIDs        []uuid.UUID
	PackageIDs     []uuid.UUID
	InitialPayment *PaymentInput
	CreatedByID    uuid.UUID
}

// CreateOrder books tests and packages for a patient. Each package is billed
// on its own row and expanded into non-billable rows for its tests, which is
// where results are entered.
func (s *OrderService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*entity.Order, error) {
	if len(input.TestIDs) == 0 && len(input.PackageIDs) == 0 {
		return nil, apperror.NewFieldError("test_ids", "select at least one test or package")
	}
	if input.InitialPayment != nil {
		if err := input.InitialPayment.validate(); err != nil {
			return nil, err
		}
	}

	patient, err := s.patientRepo.GetByID(ctx, input.PatientID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, apperror.NewFieldError("patient_id", "does not exist")
	}

	if input.DoctorID != nil {
		doctor, err := s.doctorRepo.GetByID(ctx, *input.DoctorID)
		if err != nil {
			return nil, err
		}
		if doctor == nil {
			return nil, apperror.NewFieldError("doctor_id", "does not exist")
		}
	}

	items, err := s.buildItems(ctx, input.TestIDs, input.PackageIDs)
	if err != nil {
		return nil, err
	}

	order := &entity.Order{
		PatientID:   patient.ID,
		DoctorID:    input.DoctorID,
		CreatedByID: input.CreatedByID,
		Status:      enum.OrderStatusPending,
		Priority:    input.Priority,
		Notes:       utils.StringPtr(strings.TrimSpace(input.Notes)),
		Items:       items,
	}
	order.RecomputePayment()

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := s.identifiers.Issue(ctx, identifier.KindOrder, func(ctx context.Context, code string) error {
			order.ID = uuid.Nil
			for i := range order.Items {
				order.Items[i].ID = uuid.Nil
				order.Items[i].OrderID = uuid.Nil
			}
			order.OrderNumber = code
			return s.orderRepo.Create(ctx, order)
		})
		if err != nil {
			return err
		}

		if input.InitialPayment != nil {
			paid, err := s.recordPayment(ctx, order.ID, input.InitialPayment)
			if err != nil {
				return err
			}
			order.AmountPaid = paid.AmountPaid
			order.BalanceAmount = paid.BalanceAmount
			order.PaymentStatus = paid.PaymentStatus
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Patient = patient
	s.log.WithComponent("orders").WithFields(logrus.Fields{
		"order_number": order.OrderNumber,
		"patient_code": patient.PatientCode,
		"total":        order.LineItemTotal.StringFixed(2),
	}).Info("Order created")
	return order, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (s *OrderService) buildItems(ctx context.Context, testIDs, packageIDs []uuid.UUID) ([]entity.OrderItem, error) {
	testIDs = uniqueIDs(testIDs)
	packageIDs = uniqueIDs(packageIDs)

	tests, err := s.testRepo.GetByIDs(ctx, testIDs)
	if err != nil {
		return nil, err
	}
	testMap := make(map[uuid.UUID]*entity.LabTest, len(tests))
	for i := range tests {
		testMap[tests[i].ID] = &tests[i]
	}

	pkgs, err := s.packageRepo.GetByIDs(ctx, packageIDs)
	if err != nil {
		return nil, err
	}
	pkgMap := make(map[uuid.UUID]*entity.TestPackage, len(pkgs))
	for i := range pkgs {
		pkgMap[pkgs[i].ID] = &pkgs[i]
	}

	var fieldErrors []apperror.FieldError
	items := make([]entity.OrderItem, 0, len(testIDs)+len(packageIDs))
	inPackage := make(map[uuid.UUID]string)

	for _, id := range packageIDs {
		pkg, ok := pkgMap[id]
		if !ok || !pkg.IsActive {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: "package_ids", Message: fmt.Sprintf("package %s is not available", id)})
			continue
		}
		pkgID := pkg.ID
		items = append(items, entity.OrderItem{
			Kind:      enum.LineItemKindPackage,
			PackageID: &pkgID,
			Name:      pkg.Name,
			Price:     pkg.Price,
			Billable:  true,
		})
		for _, t := range pkg.Tests {
			inPackage[t.ID] = pkg.Name
			items = append(items, testItem(t, &pkgID, false))
		}
	}

	for _, id := range testIDs {
		t, ok := testMap[id]
		if !ok || !t.IsActive {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: "test_ids", Message: fmt.Sprintf("test %s is not available", id)})
			continue
		}
		if name, dup := inPackage[id]; dup {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: "test_ids", Message: fmt.Sprintf("%s is already included in %s", t.Name, name)})
			continue
		}
		items = append(items, testItem(*t, nil, true))
	}

	if len(fieldErrors) > 0 {
		return nil, apperror.NewValidationError(fieldErrors)
	}
	return items, nil
}

func testItem(t entity.LabTest, packageID *uuid.UUID, billable bool) entity.OrderItem {
	testID := t.ID
	return entity.OrderItem{
		Kind:        enum.LineItemKindTest,
		LabTestID:   &testID,
		PackageID:   packageID,
		Name:        t.Name,
		Price:       t.Price,
		Billable:    billable,
		Unit:        t.Unit,
		NormalRange: t.NormalRange,
	}
}

// GetOrder returns an order with its items and payments
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	order, err := s.orderRepo.GetWithItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}
	return order, nil
}

// ListOrders returns a filtered, paginated list of orders
func (s *OrderService) ListOrders(ctx context.Context, params *repository.OrderFilterParams) ([]entity.Order, int64, error) {
	params.Search = strings.TrimSpace(params.Search)
	return s.orderRepo.List(ctx, params)
}

// Worklist returns open orders oldest first for the bench. When mineOnly is
// set and the caller is a technician, only orders assigned to them are shown.
func (s *OrderService) Worklist(ctx context.Context, params *pagination.CursorParams, actorID uuid.UUID, mineOnly bool) (*pagination.CursorPaginatedResult[entity.Order], error) {
	params.Validate()
	if _, err := params.DecodeCursor(); err != nil {
		return nil, apperror.NewBadRequestError("Invalid cursor")
	}

	filter := &repository.OrderCursorFilterParams{
		Cursor: params,
		Statuses: []enum.OrderStatus{
			enum.OrderStatusPending,
			enum.OrderStatusSampleCollected,
			enum.OrderStatusInProgress,
		},
	}
	if mineOnly {
		tech, err := s.techRepo.GetByUserID(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if tech != nil {
			filter.TechnicianID = &tech.ID
		}
	}

	orders, err := s.orderRepo.ListWithCursor(ctx, filter)
	if err != nil {
		return nil, err
	}

	page, orders := pagination.NewCursorPagination(orders, params.Limit,
		func(o entity.Order) string { return o.ID.String() },
		func(o entity.Order) time.Time { return o.CreatedAt },
	)
	return pagination.NewCursorPaginatedResult(orders, page), nil
}

// technicianFor returns the technician profile of the caller, or nil when the
// caller is not a technician. A technician may only work on orders that are
// unassigned or assigned to them.
func (s *OrderService) technicianFor(ctx context.Context, order *entity.Order, actorID uuid.UUID) (*entity.LabTechnician, error) {
	tech, err := s.techRepo.GetByUserID(ctx, actorID)
	if err != nil || tech == nil {
		return nil, err
	}
	if order.TechnicianID != nil && *order.TechnicianID != tech.ID {
		return nil, apperror.NewForbiddenError("Order is assigned to another technician")
	}
	return tech, nil
}

// UpdateStatusInput moves an order along the workflow
type UpdateStatusInput struct {
	OrderID uuid.UUID
	Status  enum.OrderStatus
	Reason  string
	ActorID uuid.UUID
}

// UpdateStatus advances an order one step. Completion happens through
// VerifyOrder and cancellation through CancelOrder.
func (s *OrderService) UpdateStatus(ctx context.Context, input *UpdateStatusInput) (*entity.Order, error) {
	switch input.Status {
	case enum.OrderStatusCancelled:
		return s.CancelOrder(ctx, input.OrderID, input.Reason, input.ActorID)
	case enum.OrderStatusCompleted:
		return nil, apperror.NewFieldError("status", "orders are completed by result verification")
	}

	order, err := s.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(input.Status) {
		return nil, apperror.NewFieldError("status", fmt.Sprintf("cannot move from %s to %s", order.Status, input.Status))
	}

	tech, err := s.technicianFor(ctx, order, input.ActorID)
	if err != nil {
		return nil, err
	}
	if tech != nil && order.TechnicianID == nil {
		order.TechnicianID = &tech.ID
	}

	now := s.now()
	order.Status = input.Status
	if input.Status == enum.OrderStatusSampleCollected {
		order.SampleCollectedAt = &now
	}

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// AssignTechnician puts an open order on a technician's bench
func (s *OrderService) AssignTechnician(ctx context.Context, orderID, technicianID uuid.UUID) (*entity.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, apperror.NewFieldError("status", fmt.Sprintf("order is %s", order.Status))
	}

	tech, err := s.techRepo.GetByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if tech == nil {
		return nil, apperror.NewFieldError("technician_id", "does not exist")
	}

	order.TechnicianID = &tech.ID
	order.Technician = tech
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// RecordPayment adds a payment to an order and re-derives its balance and
// payment status. Paying more than the total leaves a zero balance.
func (s *OrderService) RecordPayment(ctx context.Context, orderID uuid.UUID, input *PaymentInput) (*entity.Order, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	return s.recordPayment(ctx, orderID, input)
}

func (s *OrderService) recordPayment(ctx context.Context, orderID uuid.UUID, input *PaymentInput) (*entity.Order, error) {
	payment := input.payment(s.now())

	order, err := s.orderRepo.RecordPayment(ctx, orderID, payment, func(order *entity.Order) error {
		if order.Status == enum.OrderStatusCancelled {
			return apperror.NewFieldError("order_id", "cannot pay for a cancelled order")
		}
		order.AmountPaid = order.AmountPaid.Add(payment.Amount)
		order.RecomputePayment()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}

	metrics.PaymentRecorded("order")
	s.log.Audit(input.ReceivedByID.String(), "payment.recorded", "order", logrus.Fields{
		"order_number":   order.OrderNumber,
		"amount":         payment.Amount.StringFixed(2),
		"method":         payment.Method.String(),
		"payment_status": order.PaymentStatus.String(),
	})
	return order, nil
}

// EnterResultInput is one test result from the bench
type EnterResultInput struct {
	OrderID    uuid.UUID
	ItemID     uuid.UUID
	Value      string
	IsAbnormal bool
	Notes      string
	ActorID    uuid.UUID
}

// EnterResult records a test result. The first result moves a collected
// order to in_progress.
func (s *OrderService) EnterResult(ctx context.Context, input *EnterResultInput) (*entity.Order, error) {
	value := strings.TrimSpace(input.Value)
	if value == "" {
		return nil, apperror.NewFieldError("result_value", "is required")
	}

	order, err := s.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case enum.OrderStatusSampleCollected, enum.OrderStatusInProgress:
	case enum.OrderStatusPending:
		return nil, apperror.NewFieldError("status", "sample has not been collected")
	default:
		return nil, apperror.NewFieldError("status", fmt.Sprintf("order is %s", order.Status))
	}

	var item *entity.OrderItem
	for _, it := range order.ResultItems() {
		if it.ID == input.ItemID {
			item = it
			break
		}
	}
	if item == nil {
		return nil, apperror.NewNotFoundError("Order item")
	}

	tech, err := s.technicianFor(ctx, order, input.ActorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	actorID := input.ActorID
	item.ResultValue = &value
	item.IsAbnormal = input.IsAbnormal
	item.TechnicianNotes = utils.StringPtr(strings.TrimSpace(input.Notes))
	item.EnteredByID = &actorID
	item.EnteredAt = &now

	orderChanged := false
	if order.Status == enum.OrderStatusSampleCollected {
		order.Status = enum.OrderStatusInProgress
		orderChanged = true
	}
	if tech != nil && order.TechnicianID == nil {
		order.TechnicianID = &tech.ID
		orderChanged = true
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.orderRepo.UpdateItem(ctx, item); err != nil {
			return err
		}
		if orderChanged {
			return s.orderRepo.Update(ctx, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// VerifyInput is a doctor's sign-off on an order's results
type VerifyInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	// Remarks per order item ID
	Remarks map[uuid.UUID]string
}

// VerifyOrder lets an approved doctor sign off the results, which completes
// the order and notifies the patient.
func (s *OrderService) VerifyOrder(ctx context.Context, input *VerifyInput) (*entity.Order, error) {
	doctor, err := s.doctorRepo.GetByUserID(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, apperror.NewForbiddenError("Only doctors can verify results")
	}
	if !doctor.IsApproved {
		return nil, apperror.NewForbiddenError("Doctor account is awaiting approval")
	}

	order, err := s.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enum.OrderStatusInProgress {
		return nil, apperror.NewFieldError("status", fmt.Sprintf("order is %s", order.Status))
	}
	if !order.AllResultsEntered() {
		return nil, apperror.NewFieldError("items", "all results must be entered before verification")
	}

	now := s.now()
	actorID := input.ActorID
	order.Status = enum.OrderStatusCompleted
	order.CompletedAt = &now
	order.VerifiedAt = &now
	order.VerifiedByID = &actorID

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, item := range order.ResultItems() {
			remark, ok := input.Remarks[item.ID]
			if !ok {
				continue
			}
			item.DoctorRemarks = utils.StringPtr(strings.TrimSpace(remark))
			if err := s.orderRepo.UpdateItem(ctx, item); err != nil {
				return err
			}
		}
		return s.orderRepo.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.notifyResultsReady(ctx, order)
	return order, nil
}

func (s *OrderService) notifyResultsReady(ctx context.Context, order *entity.Order) {
	if order.Patient == nil || order.Patient.Email == nil {
		return
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil || !settings.ResultEmailNotifications {
		return
	}
	if err := s.mailer.SendResultsReady(*order.Patient.Email, order.Patient.FullName(), order.OrderNumber); err != nil {
		s.log.WithComponent("orders").WithError(err).WithField("order_number", order.OrderNumber).
			Warn("Failed to send results email")
	}
}

// CancelOrder cancels an order that has not been completed
func (s *OrderService) CancelOrder(ctx context.Context, id uuid.UUID, reason string, actorID uuid.UUID) (*entity.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(enum.OrderStatusCancelled) {
		return nil, apperror.NewFieldError("status", fmt.Sprintf("cannot cancel a %s order", order.Status))
	}

	order.Status = enum.OrderStatusCancelled
	order.CancelledReason = utils.StringPtr(strings.TrimSpace(reason))
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.log.Audit(actorID.String(), "order.cancelled", "order", logrus.Fields{
		"order_number": order.OrderNumber,
		"amount_paid":  order.AmountPaid.StringFixed(2),
	})
	return order, nil
}
