package repository

import (
	"context"
	"errors"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	domainRepo "github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// staffSearch matches a staff row by its code or its user's name and email
func staffSearch(codeColumn, search string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if search == "" {
			return db
		}
		like := "%" + search + "%"
		return db.Where(
			codeColumn+" ILIKE ? OR user_id IN (?)",
			like,
			db.Session(&gorm.Session{NewDB: true}).Model(&entity.User{}).Select("id").
				Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?", like, like, like),
		)
	}
}

type doctorRepository struct {
	db *gorm.DB
}

// NewDoctorRepository creates a new doctor repository
func NewDoctorRepository(db *gorm.DB) domainRepo.DoctorRepository {
	return &doctorRepository{db: db}
}

func (r *doctorRepository) Create(ctx context.Context, doctor *entity.Doctor) error {
	return translate(conn(ctx, r.db).Omit("User").Create(doctor).Error)
}

func (r *doctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Doctor, error) {
	var doctor entity.Doctor
	err := conn(ctx, r.db).Preload("User").First(&doctor, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &doctor, err
}

func (r *doctorRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Doctor, error) {
	var doctor entity.Doctor
	err := conn(ctx, r.db).Preload("User").First(&doctor, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &doctor, err
}

func (r *doctorRepository) GetByLicense(ctx context.Context, license string) (*entity.Doctor, error) {
	var doctor entity.Doctor
	err := conn(ctx, r.db).First(&doctor, "LOWER(license_number) = LOWER(?)", license).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &doctor, err
}

func (r *doctorRepository) Update(ctx context.Context, doctor *entity.Doctor) error {
	return translate(conn(ctx, r.db).Omit("User").Save(doctor).Error)
}

func (r *doctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Delete(&entity.Doctor{}, "id = ?", id).Error
}

func (r *doctorRepository) List(ctx context.Context, params *domainRepo.StaffFilterParams) ([]entity.Doctor, int64, error) {
	var doctors []entity.Doctor
	var total int64

	query := conn(ctx, r.db).Model(&entity.Doctor{}).
		Scopes(staffSearch("doctor_code", params.Search))

	if params.Approved != nil {
		query = query.Where("is_approved = ?", *params.Approved)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Preload("User").
		Order("created_at DESC").
		Find(&doctors).Error

	return doctors, total, err
}

type technicianRepository struct {
	db *gorm.DB
}

// NewTechnicianRepository creates a new lab technician repository
func NewTechnicianRepository(db *gorm.DB) domainRepo.TechnicianRepository {
	return &technicianRepository{db: db}
}

func (r *technicianRepository) Create(ctx context.Context, tech *entity.LabTechnician) error {
	return translate(conn(ctx, r.db).Omit("User").Create(tech).Error)
}

func (r *technicianRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.LabTechnician, error) {
	var tech entity.LabTechnician
	err := conn(ctx, r.db).Preload("User").First(&tech, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &tech, err
}

func (r *technicianRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.LabTechnician, error) {
	var tech entity.LabTechnician
	err := conn(ctx, r.db).Preload("User").First(&tech, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &tech, err
}

func (r *technicianRepository) Update(ctx context.Context, tech *entity.LabTechnician) error {
	return translate(conn(ctx, r.db).Omit("User").Save(tech).Error)
}

func (r *technicianRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Delete(&entity.LabTechnician{}, "id = ?", id).Error
}

func (r *technicianRepository) List(ctx context.Context, params *domainRepo.StaffFilterParams) ([]entity.LabTechnician, int64, error) {
	var techs []entity.LabTechnician
	var total int64

	query := conn(ctx, r.db).Model(&entity.LabTechnician{}).
		Scopes(staffSearch("technician_code", params.Search))

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Preload("User").
		Order("created_at DESC").
		Find(&techs).Error

	return techs, total, err
}
