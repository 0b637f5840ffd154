package handler

import (
	"github.com/diaglab/labdesk-api/internal/application/service"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/request"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/response"
	"github.com/gin-gonic/gin"
)

// PatientHandler handles patient HTTP requests
type PatientHandler struct {
	patientService *service.PatientService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(patientService *service.PatientService) *PatientHandler {
	return &PatientHandler{patientService: patientService}
}

func patientInput(c *gin.Context) (*service.PatientInput, bool) {
	var req request.PatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return nil, false
	}

	dob, err := optionalDate("date_of_birth", req.DateOfBirth)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}

	return &service.PatientInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Gender:      req.Gender,
		DateOfBirth: dob,
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		BloodGroup:  req.BloodGroup,
		Notes:       req.Notes,
	}, true
}

// List handles listing patients
func (h *PatientHandler) List(c *gin.Context) {
	params := pageParams(c)
	patients, total, err := h.patientService.ListPatients(c.Request.Context(), params, c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, "Patients retrieved successfully", patients, params, total)
}

// Get handles fetching a patient
func (h *PatientHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	patient, err := h.patientService.GetPatient(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Patient retrieved successfully", patient)
}

// Me returns the caller's own patient record
func (h *PatientHandler) Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	patient, err := h.patientService.GetPatientForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Patient retrieved successfully", patient)
}

// Create registers a walk-in patient
func (h *PatientHandler) Create(c *gin.Context) {
	input, ok := patientInput(c)
	if !ok {
		return
	}

	patient, err := h.patientService.CreatePatient(c.Request.Context(), input, nil, GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Patient created successfully", patient)
}

// Update handles editing a patient
func (h *PatientHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	input, ok := patientInput(c)
	if !ok {
		return
	}

	patient, err := h.patientService.UpdatePatient(c.Request.Context(), id, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Patient updated successfully", patient)
}

// Delete handles deleting a patient
func (h *PatientHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.patientService.DeletePatient(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
