package service

import (
	"context"
	"strings"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/identifier"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/pagination"
	"github.com/diaglab/labdesk-api/pkg/utils"
	"github.com/google/uuid"
)

var validGenders = map[string]bool{"male": true, "female": true, "other": true}

// PatientService handles patient records
type PatientService struct {
	patientRepo repository.PatientRepository
	identifiers *IdentifierService
}

// NewPatientService creates a new patient service
func NewPatientService(patientRepo repository.PatientRepository, identifiers *IdentifierService) *PatientService {
	return &PatientService{
		patientRepo: patientRepo,
		identifiers: identifiers,
	}
}

// PatientInput holds the editable patient details
type PatientInput struct {
	FirstName   string
	LastName    string
	Gender      string
	DateOfBirth *time.Time
	Phone       string
	Email       string
	Address     string
	BloodGroup  string
	Notes       string
}

func (in *PatientInput) validate(now time.Time) error {
	var fieldErrors []apperror.FieldError
	if strings.TrimSpace(in.FirstName) == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "first_name", Message: "is required"})
	}
	if in.Gender != "" && !validGenders[strings.ToLower(in.Gender)] {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "gender", Message: "must be male, female or other"})
	}
	if in.DateOfBirth != nil && in.DateOfBirth.After(now) {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "date_of_birth", Message: "must not be in the future"})
	}
	if len(fieldErrors) > 0 {
		return apperror.NewValidationError(fieldErrors)
	}
	return nil
}

func (in *PatientInput) apply(p *entity.Patient) {
	p.FirstName = strings.TrimSpace(in.FirstName)
	p.LastName = strings.TrimSpace(in.LastName)
	p.Gender = strings.ToLower(in.Gender)
	p.DateOfBirth = in.DateOfBirth
	p.Phone = utils.StringPtr(strings.TrimSpace(in.Phone))
	if in.Email != "" {
		p.Email = utils.StringPtr(utils.NormalizeEmail(in.Email))
	} else {
		p.Email = nil
	}
	p.Address = utils.StringPtr(in.Address)
	p.BloodGroup = utils.StringPtr(strings.ToUpper(strings.TrimSpace(in.BloodGroup)))
	p.Notes = utils.StringPtr(in.Notes)
}

// CreatePatient registers a patient and assigns the next PAT code.
// userID links the record to a login account and may be nil for walk-ins.
func (s *PatientService) CreatePatient(ctx context.Context, input *PatientInput, userID, createdByID *uuid.UUID) (*entity.Patient, error) {
	if err := input.validate(time.Now()); err != nil {
		return nil, err
	}

	patient := &entity.Patient{
		UserID:      userID,
		CreatedByID: createdByID,
	}
	input.apply(patient)

	_, err := s.identifiers.Issue(ctx, identifier.KindPatient, func(ctx context.Context, code string) error {
		patient.ID = uuid.Nil
		patient.PatientCode = code
		return s.patientRepo.Create(ctx, patient)
	})
	if err != nil {
		return nil, err
	}
	return patient, nil
}

// GetPatient returns a patient by ID
func (s *PatientService) GetPatient(ctx context.Context, id uuid.UUID) (*entity.Patient, error) {
	patient, err := s.patientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, apperror.NewNotFoundError("Patient")
	}
	return patient, nil
}

// GetPatientForUser returns the patient record linked to a login account
func (s *PatientService) GetPatientForUser(ctx context.Context, userID uuid.UUID) (*entity.Patient, error) {
	patient, err := s.patientRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, apperror.NewNotFoundError("Patient")
	}
	return patient, nil
}

// ListPatients returns a paginated list of patients
func (s *PatientService) ListPatients(ctx context.Context, params *pagination.PaginationParams, search string) ([]entity.Patient, int64, error) {
	return s.patientRepo.List(ctx, &repository.PatientFilterParams{
		Pagination: params,
		Search:     strings.TrimSpace(search),
	})
}

// UpdatePatient replaces the patient's editable details
func (s *PatientService) UpdatePatient(ctx context.Context, id uuid.UUID, input *PatientInput) (*entity.Patient, error) {
	if err := input.validate(time.Now()); err != nil {
		return nil, err
	}

	patient, err := s.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	input.apply(patient)

	if err := s.patientRepo.Update(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// DeletePatient soft-deletes a patient
func (s *PatientService) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetPatient(ctx, id); err != nil {
		return err
	}
	return s.patientRepo.Delete(ctx, id)
}
