package handler

import (
	"strconv"

	"github.com/diaglab/labdesk-api/internal/application/service"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/response"
	"github.com/gin-gonic/gin"
)

// DashboardHandler handles dashboard-related HTTP requests
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetStats handles getting dashboard statistics
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.dashboardService.GetDashboardStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Dashboard stats retrieved successfully", stats)
}

// GetRevenue handles the daily revenue chart
// @Param days query int false "Number of days" default(30)
func (h *DashboardHandler) GetRevenue(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	points, err := h.dashboardService.GetDailyRevenue(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Revenue retrieved successfully", points)
}

// GetTopTests handles the most ordered tests
// @Param limit query int false "Number of tests" default(10)
func (h *DashboardHandler) GetTopTests(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	tests, err := h.dashboardService.GetTopTests(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Top tests retrieved successfully", tests)
}
