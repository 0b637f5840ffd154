package repository

import (
	"context"
	"errors"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	domainRepo "github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type testCategoryRepository struct {
	db *gorm.DB
}

// NewTestCategoryRepository creates a new test category repository
func NewTestCategoryRepository(db *gorm.DB) domainRepo.TestCategoryRepository {
	return &testCategoryRepository{db: db}
}

func (r *testCategoryRepository) Create(ctx context.Context, category *entity.TestCategory) error {
	return translate(conn(ctx, r.db).Create(category).Error)
}

func (r *testCategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.TestCategory, error) {
	var category entity.TestCategory
	err := conn(ctx, r.db).First(&category, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &category, err
}

func (r *testCategoryRepository) GetByName(ctx context.Context, name string) (*entity.TestCategory, error) {
	var category entity.TestCategory
	err := conn(ctx, r.db).First(&category, "LOWER(name) = LOWER(?)", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &category, err
}

func (r *testCategoryRepository) Update(ctx context.Context, category *entity.TestCategory) error {
	return translate(conn(ctx, r.db).Save(category).Error)
}

func (r *testCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Delete(&entity.TestCategory{}, "id = ?", id).Error
}

func (r *testCategoryRepository) List(ctx context.Context) ([]entity.TestCategory, error) {
	var categories []entity.TestCategory
	err := conn(ctx, r.db).Order("name ASC").Find(&categories).Error
	return categories, err
}

type labTestRepository struct {
	db *gorm.DB
}

// NewLabTestRepository creates a new lab test repository
func NewLabTestRepository(db *gorm.DB) domainRepo.LabTestRepository {
	return &labTestRepository{db: db}
}

func (r *labTestRepository) Create(ctx context.Context, test *entity.LabTest) error {
	return translate(conn(ctx, r.db).Omit("Category").Create(test).Error)
}

func (r *labTestRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.LabTest, error) {
	var test entity.LabTest
	err := conn(ctx, r.db).Preload("Category").First(&test, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &test, err
}

func (r *labTestRepository) GetByCode(ctx context.Context, code string) (*entity.LabTest, error) {
	var test entity.LabTest
	err := conn(ctx, r.db).First(&test, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &test, err
}

// GetByIDs retrieves multiple tests by their IDs in a single query
func (r *labTestRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.LabTest, error) {
	if len(ids) == 0 {
		return []entity.LabTest{}, nil
	}
	var tests []entity.LabTest
	err := conn(ctx, r.db).Where("id IN ?", ids).Find(&tests).Error
	return tests, err
}

func (r *labTestRepository) Update(ctx context.Context, test *entity.LabTest) error {
	return translate(conn(ctx, r.db).Omit("Category").Save(test).Error)
}

func (r *labTestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Delete(&entity.LabTest{}, "id = ?", id).Error
}

func (r *labTestRepository) List(ctx context.Context, params *domainRepo.LabTestFilterParams) ([]entity.LabTest, int64, error) {
	var tests []entity.LabTest
	var total int64

	query := conn(ctx, r.db).Model(&entity.LabTest{})

	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where("name ILIKE ? OR code ILIKE ?", search, search)
	}

	if params.CategoryID != nil {
		query = query.Where("category_id = ?", *params.CategoryID)
	}

	if params.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Preload("Category").
		Order("name ASC").
		Find(&tests).Error

	return tests, total, err
}

type testPackageRepository struct {
	db *gorm.DB
}

// NewTestPackageRepository creates a new test package repository
func NewTestPackageRepository(db *gorm.DB) domainRepo.TestPackageRepository {
	return &testPackageRepository{db: db}
}

// Create inserts the package and links its tests. The tests themselves must
// already exist.
func (r *testPackageRepository) Create(ctx context.Context, pkg *entity.TestPackage) error {
	return translate(conn(ctx, r.db).Omit("Tests.*").Create(pkg).Error)
}

func (r *testPackageRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.TestPackage, error) {
	var pkg entity.TestPackage
	err := conn(ctx, r.db).Preload("Tests").First(&pkg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &pkg, err
}

func (r *testPackageRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.TestPackage, error) {
	if len(ids) == 0 {
		return []entity.TestPackage{}, nil
	}
	var pkgs []entity.TestPackage
	err := conn(ctx, r.db).Preload("Tests").Where("id IN ?", ids).Find(&pkgs).Error
	return pkgs, err
}

func (r *testPackageRepository) Update(ctx context.Context, pkg *entity.TestPackage) error {
	return translate(conn(ctx, r.db).Omit("Tests").Save(pkg).Error)
}

func (r *testPackageRepository) ReplaceTests(ctx context.Context, pkg *entity.TestPackage, tests []entity.LabTest) error {
	if err := conn(ctx, r.db).Model(pkg).Omit("Tests.*").Association("Tests").Replace(tests); err != nil {
		return err
	}
	pkg.Tests = tests
	return nil
}

func (r *testPackageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM package_tests WHERE test_package_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.TestPackage{}, "id = ?", id).Error
	})
}

func (r *testPackageRepository) List(ctx context.Context, params *pagination.PaginationParams, search string, activeOnly bool) ([]entity.TestPackage, int64, error) {
	var pkgs []entity.TestPackage
	var total int64

	query := conn(ctx, r.db).Model(&entity.TestPackage{})

	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}

	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Preload("Tests").
		Order("name ASC").
		Find(&pkgs).Error

	return pkgs, total, err
}
