package repository

import (
	"context"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/pkg/pagination"
	"github.com/google/uuid"
)

// PatientRepository defines the interface for patient data operations
type PatientRepository interface {
	Create(ctx context.Context, patient *entity.Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Patient, error)
	GetByCode(ctx context.Context, code string) (*entity.Patient, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Patient, error)
	Update(ctx context.Context, patient *entity.Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params *PatientFilterParams) ([]entity.Patient, int64, error)
	Count(ctx context.Context) (int64, error)
}

// PatientFilterParams contains filtering parameters for patient queries
type PatientFilterParams struct {
	Pagination *pagination.PaginationParams
	Search     string
}
