package repository

import (
	"context"
	"errors"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	domainRepo "github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type patientRepository struct {
	db *gorm.DB
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *gorm.DB) domainRepo.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *entity.Patient) error {
	return translate(conn(ctx, r.db).Create(patient).Error)
}

func (r *patientRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Patient, error) {
	var patient entity.Patient
	err := conn(ctx, r.db).
		Scopes(PatientScopeOn(ctx, "id")).
		First(&patient, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &patient, err
}

func (r *patientRepository) GetByCode(ctx context.Context, code string) (*entity.Patient, error) {
	var patient entity.Patient
	err := conn(ctx, r.db).
		Scopes(PatientScopeOn(ctx, "id")).
		First(&patient, "patient_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &patient, err
}

func (r *patientRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Patient, error) {
	var patient entity.Patient
	err := conn(ctx, r.db).First(&patient, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &patient, err
}

func (r *patientRepository) Update(ctx context.Context, patient *entity.Patient) error {
	return translate(conn(ctx, r.db).Omit("User").Save(patient).Error)
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Delete(&entity.Patient{}, "id = ?", id).Error
}

func (r *patientRepository) List(ctx context.Context, params *domainRepo.PatientFilterParams) ([]entity.Patient, int64, error) {
	var patients []entity.Patient
	var total int64

	query := conn(ctx, r.db).Model(&entity.Patient{}).Scopes(PatientScopeOn(ctx, "id"))

	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where(
			"patient_code ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ? OR phone ILIKE ? OR email ILIKE ?",
			search, search, search, search, search,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Order("created_at DESC").
		Find(&patients).Error

	return patients, total, err
}

func (r *patientRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&entity.Patient{}).Count(&count).Error
	return count, err
}
