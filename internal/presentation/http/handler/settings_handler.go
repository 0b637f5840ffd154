package handler

import (
	"github.com/diaglab/labdesk-api/internal/application/service"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/request"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/response"
	"github.com/gin-gonic/gin"
)

// SettingsHandler handles lab settings HTTP requests
type SettingsHandler struct {
	settingsService *service.SettingsService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// GetSettings returns the lab settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.GetSettings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Settings retrieved successfully", settings)
}

// UpdateSettings updates the lab settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req request.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	settings, err := h.settingsService.UpdateSettings(c.Request.Context(), &service.UpdateSettingsInput{
		LabName:                   req.LabName,
		Address:                   req.Address,
		Phone:                     req.Phone,
		Email:                     req.Email,
		TaxID:                     req.TaxID,
		Currency:                  req.Currency,
		DefaultTaxPercentage:      req.DefaultTaxPercentage,
		InvoiceDueDays:            req.InvoiceDueDays,
		ReceiptFooter:             req.ReceiptFooter,
		ResultEmailNotifications:  req.ResultEmailNotifications,
		InvoiceEmailNotifications: req.InvoiceEmailNotifications,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Settings updated successfully", settings)
}
