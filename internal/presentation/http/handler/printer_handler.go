package handler

import (
	"context"
	"errors"

	"github.com/diaglab/labdesk-api/internal/application/service"
	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/request"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PrinterHandler handles printer-related HTTP requests.
type PrinterHandler struct {
	printerService *service.PrinterService
}

// NewPrinterHandler creates a new printer handler.
func NewPrinterHandler(printerService *service.PrinterService) *PrinterHandler {
	return &PrinterHandler{printerService: printerService}
}

// GetStatus returns the current printer connection status.
func (h *PrinterHandler) GetStatus(c *gin.Context) {
	status := h.printerService.GetStatus(c.Request.Context())
	response.OK(c, "Printer status retrieved", status)
}

// TestPrint sends a test page to the printer.
func (h *PrinterHandler) TestPrint(c *gin.Context) {
	receipt, err := h.printerService.TestPrint(c.Request.Context())
	respondPrinted(c, receipt, err, "Test page sent to printer")
}

// PrintInvoice prints the receipt for an invoice.
func (h *PrinterHandler) PrintInvoice(c *gin.Context) {
	h.print(c, h.printerService.PrintInvoice, "Invoice receipt printed successfully")
}

// PrintOrder prints the receipt for an order.
func (h *PrinterHandler) PrintOrder(c *gin.Context) {
	h.print(c, h.printerService.PrintOrder, "Order receipt printed successfully")
}

// PreviewInvoice returns the invoice receipt as plain text.
func (h *PrinterHandler) PreviewInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	name := c.Query("cashier")
	if name == "" {
		name = GetUserEmail(c)
	}
	text, err := h.printerService.PreviewInvoice(c.Request.Context(), id, name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt preview generated", gin.H{"text": text})
}

type printFunc func(ctx context.Context, id uuid.UUID, cashier string) (*entity.Receipt, error)

func (h *PrinterHandler) print(c *gin.Context, fn printFunc, message string) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.PrintRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Invalid request: "+err.Error())
			return
		}
	}
	if req.Cashier == "" {
		req.Cashier = GetUserEmail(c)
	}

	receipt, err := fn(c.Request.Context(), id, req.Cashier)
	respondPrinted(c, receipt, err, message)
}

// respondPrinted still returns a receipt that was built but could not be
// printed, so it can be shown on screen.
func respondPrinted(c *gin.Context, receipt *entity.Receipt, err error, message string) {
	if err != nil {
		if receipt != nil && errors.Is(err, service.ErrPrinterUnavailable) {
			response.OK(c, "Receipt generated but printing failed", gin.H{
				"receipt": receipt,
				"warning": err.Error(),
			})
			return
		}
		response.Error(c, err)
		return
	}

	response.OK(c, message, gin.H{"receipt": receipt})
}
