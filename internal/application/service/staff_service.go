package service

import (
	"context"
	"strings"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/identifier"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/diaglab/labdesk-api/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StaffService manages doctors and lab technicians. Both own a login account
// created alongside the profile.
type StaffService struct {
	doctorRepo  repository.DoctorRepository
	techRepo    repository.TechnicianRepository
	userRepo    repository.UserRepository
	tx          repository.Transactor
	identifiers *IdentifierService
	accounts    accounts
	log         *logger.Logger
}

// NewStaffService creates a new staff service
func NewStaffService(
	doctorRepo repository.DoctorRepository,
	techRepo repository.TechnicianRepository,
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	tx repository.Transactor,
	identifiers *IdentifierService,
	log *logger.Logger,
) *StaffService {
	return &StaffService{
		doctorRepo:  doctorRepo,
		techRepo:    techRepo,
		userRepo:    userRepo,
		tx:          tx,
		identifiers: identifiers,
		accounts:    accounts{userRepo: userRepo, roleRepo: roleRepo},
		log:         log,
	}
}

// DoctorInput holds the doctor profile fields
type DoctorInput struct {
	Specialization  string
	LicenseNumber   string
	Qualification   string
	ConsultationFee decimal.Decimal
}

func (in *DoctorInput) validate() error {
	var fieldErrors []apperror.FieldError
	if strings.TrimSpace(in.LicenseNumber) == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "license_number", Message: "is required"})
	}
	if in.ConsultationFee.IsNegative() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "consultation_fee", Message: "must not be negative"})
	}
	if len(fieldErrors) > 0 {
		return apperror.NewValidationError(fieldErrors)
	}
	return nil
}

// CreateDoctor creates a doctor account. Doctors added by an admin are
// approved straight away and get a DOC code of the admin width; self
// registrations wait for approval and use the self-registration width.
func (s *StaffService) CreateDoctor(ctx context.Context, account AccountInput, input *DoctorInput, selfRegistered bool) (*entity.Doctor, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if account.Password == "" {
		return nil, apperror.NewFieldError("password", "is required")
	}

	kind := identifier.KindDoctor
	if selfRegistered {
		kind = identifier.KindDoctorSelfRegistered
	}

	doctor := &entity.Doctor{
		Specialization:  strings.TrimSpace(input.Specialization),
		LicenseNumber:   strings.TrimSpace(input.LicenseNumber),
		Qualification:   strings.TrimSpace(input.Qualification),
		ConsultationFee: input.ConsultationFee,
		SelfRegistered:  selfRegistered,
		IsApproved:      !selfRegistered,
	}
	if doctor.IsApproved {
		now := time.Now()
		doctor.ApprovedAt = &now
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.ensureLicenseFree(ctx, doctor.LicenseNumber, uuid.Nil); err != nil {
			return err
		}

		user, err := s.accounts.create(ctx, account, entity.RoleDoctor)
		if err != nil {
			return err
		}
		doctor.UserID = user.ID
		doctor.User = *user

		_, err = s.identifiers.Issue(ctx, kind, func(ctx context.Context, code string) error {
			doctor.ID = uuid.Nil
			doctor.DoctorCode = code
			return s.doctorRepo.Create(ctx, doctor)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return doctor, nil
}

func (s *StaffService) ensureLicenseFree(ctx context.Context, license string, self uuid.UUID) error {
	existing, err := s.doctorRepo.GetByLicense(ctx, license)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return apperror.NewConflictError("License number already registered")
	}
	return nil
}

// GetDoctor returns a doctor by ID
func (s *StaffService) GetDoctor(ctx context.Context, id uuid.UUID) (*entity.Doctor, error) {
	doctor, err := s.doctorRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, apperror.NewNotFoundError("Doctor")
	}
	return doctor, nil
}

// GetDoctorForUser returns the doctor profile of a login account
func (s *StaffService) GetDoctorForUser(ctx context.Context, userID uuid.UUID) (*entity.Doctor, error) {
	doctor, err := s.doctorRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, apperror.NewNotFoundError("Doctor")
	}
	return doctor, nil
}

// ListDoctors returns a paginated list of doctors
func (s *StaffService) ListDoctors(ctx context.Context, params *pagination.PaginationParams, search string, approved *bool) ([]entity.Doctor, int64, error) {
	return s.doctorRepo.List(ctx, &repository.StaffFilterParams{
		Pagination: params,
		Search:     strings.TrimSpace(search),
		Approved:   approved,
	})
}

// UpdateDoctor replaces the doctor's profile fields
func (s *StaffService) UpdateDoctor(ctx context.Context, id uuid.UUID, input *DoctorInput) (*entity.Doctor, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	doctor, err := s.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}

	license := strings.TrimSpace(input.LicenseNumber)
	if !strings.EqualFold(license, doctor.LicenseNumber) {
		if err := s.ensureLicenseFree(ctx, license, doctor.ID); err != nil {
			return nil, err
		}
	}

	doctor.Specialization = strings.TrimSpace(input.Specialization)
	doctor.LicenseNumber = license
	doctor.Qualification = strings.TrimSpace(input.Qualification)
	doctor.ConsultationFee = input.ConsultationFee

	if err := s.doctorRepo.Update(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

// ApproveDoctor lets a self-registered doctor verify results
func (s *StaffService) ApproveDoctor(ctx context.Context, id, actorID uuid.UUID) (*entity.Doctor, error) {
	doctor, err := s.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	if doctor.IsApproved {
		return doctor, nil
	}

	now := time.Now()
	doctor.IsApproved = true
	doctor.ApprovedAt = &now
	if err := s.doctorRepo.Update(ctx, doctor); err != nil {
		return nil, err
	}

	s.log.Audit(actorID.String(), "doctor.approved", "doctor", map[string]interface{}{
		"doctor_id":   doctor.ID.String(),
		"doctor_code": doctor.DoctorCode,
	})
	return doctor, nil
}

// DeleteDoctor removes the doctor profile and deactivates its account
func (s *StaffService) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	doctor, err := s.GetDoctor(ctx, id)
	if err != nil {
		return err
	}
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.doctorRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.deactivate(ctx, doctor.UserID)
	})
}

func (s *StaffService) deactivate(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || user == nil {
		return err
	}
	user.IsActive = false
	return s.userRepo.Update(ctx, user)
}

// TechnicianInput holds the technician profile fields
type TechnicianInput struct {
	Qualification string
	Department    string
}

// CreateTechnician creates a lab technician account with a TECH code
func (s *StaffService) CreateTechnician(ctx context.Context, account AccountInput, input *TechnicianInput) (*entity.LabTechnician, error) {
	if account.Password == "" {
		return nil, apperror.NewFieldError("password", "is required")
	}

	tech := &entity.LabTechnician{
		Qualification: strings.TrimSpace(input.Qualification),
		Department:    strings.TrimSpace(input.Department),
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.accounts.create(ctx, account, entity.RoleLabTechnician)
		if err != nil {
			return err
		}
		tech.UserID = user.ID
		tech.User = *user

		_, err = s.identifiers.Issue(ctx, identifier.KindTechnician, func(ctx context.Context, code string) error {
			tech.ID = uuid.Nil
			tech.TechnicianCode = code
			return s.techRepo.Create(ctx, tech)
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return tech, nil
}

// GetTechnician returns a technician by ID
func (s *StaffService) GetTechnician(ctx context.Context, id uuid.UUID) (*entity.LabTechnician, error) {
	tech, err := s.techRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tech == nil {
		return nil, apperror.NewNotFoundError("Technician")
	}
	return tech, nil
}

// GetTechnicianForUser returns the technician profile of a login account, or
// nil when the account has none
func (s *StaffService) GetTechnicianForUser(ctx context.Context, userID uuid.UUID) (*entity.LabTechnician, error) {
	return s.techRepo.GetByUserID(ctx, userID)
}

// ListTechnicians returns a paginated list of technicians
func (s *StaffService) ListTechnicians(ctx context.Context, params *pagination.PaginationParams, search string) ([]entity.LabTechnician, int64, error) {
	return s.techRepo.List(ctx, &repository.StaffFilterParams{
		Pagination: params,
		Search:     strings.TrimSpace(search),
	})
}

// UpdateTechnician replaces the technician's profile fields
func (s *StaffService) UpdateTechnician(ctx context.Context, id uuid.UUID, input *TechnicianInput) (*entity.LabTechnician, error) {
	tech, err := s.GetTechnician(ctx, id)
	if err != nil {
		return nil, err
	}
	tech.Qualification = strings.TrimSpace(input.Qualification)
	tech.Department = strings.TrimSpace(input.Department)
	if err := s.techRepo.Update(ctx, tech); err != nil {
		return nil, err
	}
	return tech, nil
}

// DeleteTechnician removes the technician profile and deactivates its account
func (s *StaffService) DeleteTechnician(ctx context.Context, id uuid.UUID) error {
	tech, err := s.GetTechnician(ctx, id)
	if err != nil {
		return err
	}
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.techRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.deactivate(ctx, tech.UserID)
	})
}
