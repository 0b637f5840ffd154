package handler

import (
	"github.com/diaglab/labdesk-api/internal/application/service"
	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/request"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/response"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/gin-gonic/gin"
)

// InvoiceHandler handles invoice and invoice payment HTTP requests
type InvoiceHandler struct {
	invoiceService *service.InvoiceService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func invoiceTerms(req *request.InvoiceTermsRequest) (service.InvoiceTerms, error) {
	due, err := optionalDate("due_date", req.DueDate)
	if err != nil {
		return service.InvoiceTerms{}, err
	}
	return service.InvoiceTerms{
		DiscountPercentage: req.DiscountPercentage,
		TaxPercentage:      req.TaxPercentage,
		DiscountAmount:     req.DiscountAmount,
		TaxAmount:          req.TaxAmount,
		DueDate:            due,
		Notes:              req.Notes,
	}, nil
}

func lineItemInputs(reqs []request.LineItemRequest) []service.LineItemInput {
	if reqs == nil {
		return nil
	}
	lines := make([]service.LineItemInput, len(reqs))
	for i, r := range reqs {
		lines[i] = service.LineItemInput{
			Kind:      r.Kind,
			LabTestID: r.LabTestID,
			PackageID: r.PackageID,
			Name:      r.Name,
			UnitPrice: r.UnitPrice,
			Quantity:  r.Quantity,
		}
	}
	return lines
}

// List handles listing invoices. Patients only ever see their own.
// @Summary List Invoices
// @Tags invoices
// @Security BearerAuth
// @Param payment_status query string false "pending, partial, paid or overdue"
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var req request.InvoiceFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	params := &repository.InvoiceFilterParams{
		Pagination: pageParams(c),
		Search:     req.Search,
	}
	if req.PaymentStatus != "" {
		status, ok := enum.ParsePaymentStatus(req.PaymentStatus)
		if !ok {
			response.Error(c, apperror.NewFieldError("payment_status", "unknown payment status"))
			return
		}
		params.PaymentStatus = &status
	}

	var err error
	if params.PatientID, err = optionalUUID("patient_id", req.PatientID); err != nil {
		response.Error(c, err)
		return
	}
	if params.StartDate, err = optionalDate("start_date", req.StartDate); err != nil {
		response.Error(c, err)
		return
	}
	end, err := optionalDate("end_date", req.EndDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	params.EndDate = endOfDay(end)

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, "Invoices retrieved successfully", invoices, params.Pagination, total)
}

// Create handles issuing an invoice, either for an order or ad hoc
// @Summary Create Invoice
// @Tags invoices
// @Security BearerAuth
// @Param Idempotency-Key header string false "Replays the first response for a repeated key"
// @Router /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req request.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	terms, err := invoiceTerms(&req.InvoiceTermsRequest)
	if err != nil {
		response.Error(c, err)
		return
	}

	if req.OrderID != nil {
		invoice, err := h.invoiceService.CreateFromOrder(c.Request.Context(), *req.OrderID, &terms, userID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, "Invoice created successfully", invoice)
		return
	}

	if req.PatientID == nil {
		response.Error(c, apperror.NewFieldError("patient_id", "is required when order_id is absent"))
		return
	}
	issueDate, err := optionalDate("issue_date", req.IssueDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), &service.CreateInvoiceInput{
		InvoiceTerms: terms,
		PatientID:    *req.PatientID,
		IssueDate:    issueDate,
		LineItems:    lineItemInputs(req.LineItems),
		CreatedByID:  userID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Invoice created successfully", invoice)
}

// Get handles fetching an invoice with its lines and payments
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice retrieved successfully", invoice)
}

// Update handles changing an invoice's terms and lines
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	terms, err := invoiceTerms(&req.InvoiceTermsRequest)
	if err != nil {
		response.Error(c, err)
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), id, &service.UpdateInvoiceInput{
		InvoiceTerms: terms,
		LineItems:    lineItemInputs(req.LineItems),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice updated successfully", invoice)
}

// Delete handles deleting an unpaid invoice
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Recompute re-derives an invoice's totals and status from its lines
func (h *InvoiceHandler) Recompute(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.RecomputeInvoice(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Invoice recomputed successfully", invoice)
}

// RecordPayment handles money received against an invoice
// @Param Idempotency-Key header string false "Replays the first response for a repeated key"
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	invoice, err := h.invoiceService.RecordPayment(c.Request.Context(), id, paymentInput(&req, userID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment recorded successfully", invoice)
}

// ListPayments handles listing an invoice's payments
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	payments, err := h.invoiceService.ListPayments(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payments retrieved successfully", payments)
}

// RefreshOverdue marks unpaid invoices past their due date as overdue
func (h *InvoiceHandler) RefreshOverdue(c *gin.Context) {
	updated, err := h.invoiceService.RefreshOverdue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Overdue invoices refreshed", gin.H{"updated": updated})
}
