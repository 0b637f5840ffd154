package handler

import (
	"github.com/diaglab/labdesk-api/internal/application/service"
	"github.com/diaglab/labdesk-api/internal/domain/enum"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/request"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/response"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles lab order HTTP requests
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func orderFilter(c *gin.Context, req *request.OrderFilterRequest) (*repository.OrderFilterParams, error) {
	params := &repository.OrderFilterParams{
		Pagination: pageParams(c),
		Search:     req.Search,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	}

	if req.Status != "" {
		status, ok := enum.ParseOrderStatus(req.Status)
		if !ok {
			return nil, apperror.NewFieldError("status", "unknown order status")
		}
		params.Status = &status
	}
	if req.PaymentStatus != "" {
		status, ok := enum.ParsePaymentStatus(req.PaymentStatus)
		if !ok {
			return nil, apperror.NewFieldError("payment_status", "unknown payment status")
		}
		params.PaymentStatus = &status
	}

	var err error
	if params.PatientID, err = optionalUUID("patient_id", req.PatientID); err != nil {
		return nil, err
	}
	if params.DoctorID, err = optionalUUID("doctor_id", req.DoctorID); err != nil {
		return nil, err
	}
	if params.TechnicianID, err = optionalUUID("technician_id", req.TechnicianID); err != nil {
		return nil, err
	}
	if params.StartDate, err = optionalDate("start_date", req.StartDate); err != nil {
		return nil, err
	}
	end, err := optionalDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}
	params.EndDate = endOfDay(end)
	return params, nil
}

// List handles listing orders. Patients only ever see their own.
// @Summary List Orders
// @Tags orders
// @Security BearerAuth
// @Param status query string false "pending, sample_collected, in_progress, completed or cancelled"
// @Param payment_status query string false "pending, partial or paid"
// @Router /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	var req request.OrderFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	params, err := orderFilter(c, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, "Orders retrieved successfully", orders, params.Pagination, total)
}

// Worklist handles the bench view of open orders, oldest first
// @Param cursor query string false "Cursor from the previous page"
// @Param mine query bool false "Only orders assigned to the caller"
// @Router /orders/worklist [get]
func (h *OrderHandler) Worklist(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req request.WorklistRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	result, err := h.orderService.Worklist(c.Request.Context(), &pagination.CursorParams{
		Cursor: req.Cursor,
		Limit:  req.Limit,
	}, userID, req.MineOnly)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Worklist retrieved successfully", result)
}

// Create handles booking a new order
// @Summary Create Order
// @Tags orders
// @Security BearerAuth
// @Param Idempotency-Key header string false "Replays the first response for a repeated key"
// @Router /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req request.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	input := &service.CreateOrderInput{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		Priority:    req.Priority,
		Notes:       req.Notes,
		TestIDs:     req.TestIDs,
		PackageIDs:  req.PackageIDs,
		CreatedByID: userID,
	}
	if req.InitialPayment != nil {
		input.InitialPayment = paymentInput(req.InitialPayment, userID)
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Order created successfully", order)
}

// Get handles fetching an order with its items
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order retrieved successfully", order)
}

// UpdateStatus handles moving an order one step along the workflow
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), &service.UpdateStatusInput{
		OrderID: id,
		Status:  req.Status,
		Reason:  req.Reason,
		ActorID: userID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order status updated successfully", order)
}

// AssignTechnician handles putting an order on a technician's bench
func (h *OrderHandler) AssignTechnician(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.AssignTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	order, err := h.orderService.AssignTechnician(c.Request.Context(), id, req.TechnicianID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Technician assigned successfully", order)
}

// RecordPayment handles money taken against an order
// @Param Idempotency-Key header string false "Replays the first response for a repeated key"
func (h *OrderHandler) RecordPayment(c *gin.Context) {
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

	order, err := h.orderService.RecordPayment(c.Request.Context(), id, paymentInput(&req, userID))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Payment recorded successfully", order)
}

// EnterResult handles a technician entering one test result
func (h *OrderHandler) EnterResult(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseID(c, "itemId")
	if !ok {
		return
	}

	var req request.EnterResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	order, err := h.orderService.EnterResult(c.Request.Context(), &service.EnterResultInput{
		OrderID:    id,
		ItemID:     itemID,
		Value:      req.Value,
		IsAbnormal: req.IsAbnormal,
		Notes:      req.Notes,
		ActorID:    userID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Result saved successfully", order)
}

// Verify handles a doctor's sign-off, which completes the order
func (h *OrderHandler) Verify(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.VerifyOrderRequest
	// The body is optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	order, err := h.orderService.VerifyOrder(c.Request.Context(), &service.VerifyInput{
		OrderID: id,
		ActorID: userID,
		Remarks: req.Remarks,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Results verified successfully", order)
}

// Cancel handles cancelling an order
func (h *OrderHandler) Cancel(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), id, req.Reason, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order cancelled successfully", order)
}

func paymentInput(req *request.PaymentRequest, receivedBy uuid.UUID) *service.PaymentInput {
	return &service.PaymentInput{
		Amount:       req.Amount,
		Method:       req.Method,
		Reference:    req.Reference,
		ReceivedByID: receivedBy,
	}
}
