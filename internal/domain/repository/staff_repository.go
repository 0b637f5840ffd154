package repository

import (
	"context"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/pkg/pagination"
	"github.com/google/uuid"
)

// DoctorRepository defines the interface for doctor data operations
type DoctorRepository interface {
	Create(ctx context.Context, doctor *entity.Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Doctor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Doctor, error)
	GetByLicense(ctx context.Context, license string) (*entity.Doctor, error)
	Update(ctx context.Context, doctor *entity.Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params *StaffFilterParams) ([]entity.Doctor, int64, error)
}

// TechnicianRepository defines the interface for lab technician data operations
type TechnicianRepository interface {
	Create(ctx context.Context, tech *entity.LabTechnician) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.LabTechnician, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.LabTechnician, error)
	Update(ctx context.Context, tech *entity.LabTechnician) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params *StaffFilterParams) ([]entity.LabTechnician, int64, error)
}

// StaffFilterParams filters doctor and technician listings
type StaffFilterParams struct {
	Pagination *pagination.PaginationParams
	Search     string
	// Approved only applies to doctors
	Approved *bool
}
