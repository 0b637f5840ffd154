package handler

import (
	"github.com/diaglab/labdesk-api/internal/application/service"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/request"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/response"
	"github.com/gin-gonic/gin"
)

// StaffHandler handles doctor and technician HTTP requests
type StaffHandler struct {
	staffService *service.StaffService
}

// NewStaffHandler creates a new staff handler
func NewStaffHandler(staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{staffService: staffService}
}

func doctorInput(req request.DoctorRequest) *service.DoctorInput {
	return &service.DoctorInput{
		Specialization:  req.Specialization,
		LicenseNumber:   req.LicenseNumber,
		Qualification:   req.Qualification,
		ConsultationFee: req.ConsultationFee,
	}
}

// ListDoctors handles listing doctors, optionally by approval state
// @Param approved query bool false "Approval state"
func (h *StaffHandler) ListDoctors(c *gin.Context) {
	params := pageParams(c)
	doctors, total, err := h.staffService.ListDoctors(c.Request.Context(), params, c.Query("search"), optionalBool(c, "approved"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, "Doctors retrieved successfully", doctors, params, total)
}

// GetDoctor handles fetching a doctor
func (h *StaffHandler) GetDoctor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	doctor, err := h.staffService.GetDoctor(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Doctor retrieved successfully", doctor)
}

// CreateDoctor adds an approved doctor
func (h *StaffHandler) CreateDoctor(c *gin.Context) {
	var req request.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	account := accountInput(req.FirstName, req.LastName, req.Email, req.Phone, req.Password)
	doctor, err := h.staffService.CreateDoctor(c.Request.Context(), account, doctorInput(req.DoctorRequest), false)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Doctor created successfully", doctor)
}

// UpdateDoctor handles editing a doctor's profile
func (h *StaffHandler) UpdateDoctor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.DoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	doctor, err := h.staffService.UpdateDoctor(c.Request.Context(), id, doctorInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Doctor updated successfully", doctor)
}

// ApproveDoctor lets a self-registered doctor verify results
func (h *StaffHandler) ApproveDoctor(c *gin.Context) {
	actorID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	doctor, err := h.staffService.ApproveDoctor(c.Request.Context(), id, actorID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Doctor approved successfully", doctor)
}

// DeleteDoctor handles removing a doctor
func (h *StaffHandler) DeleteDoctor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.staffService.DeleteDoctor(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListTechnicians handles listing lab technicians
func (h *StaffHandler) ListTechnicians(c *gin.Context) {
	params := pageParams(c)
	techs, total, err := h.staffService.ListTechnicians(c.Request.Context(), params, c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, "Technicians retrieved successfully", techs, params, total)
}

// GetTechnician handles fetching a technician
func (h *StaffHandler) GetTechnician(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	tech, err := h.staffService.GetTechnician(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Technician retrieved successfully", tech)
}

// CreateTechnician adds a lab technician
func (h *StaffHandler) CreateTechnician(c *gin.Context) {
	var req request.CreateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	account := accountInput(req.FirstName, req.LastName, req.Email, req.Phone, req.Password)
	tech, err := h.staffService.CreateTechnician(c.Request.Context(), account, &service.TechnicianInput{
		Qualification: req.Qualification,
		Department:    req.Department,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Technician created successfully", tech)
}

// UpdateTechnician handles editing a technician's profile
func (h *StaffHandler) UpdateTechnician(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.TechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tech, err := h.staffService.UpdateTechnician(c.Request.Context(), id, &service.TechnicianInput{
		Qualification: req.Qualification,
		Department:    req.Department,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Technician updated successfully", tech)
}

// DeleteTechnician handles removing a technician
func (h *StaffHandler) DeleteTechnician(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.staffService.DeleteTechnician(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
