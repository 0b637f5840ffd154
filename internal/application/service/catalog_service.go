package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/pagination"
	"github.com/diaglab/labdesk-api/pkg/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogService manages the test menu: categories, tests and packages
type CatalogService struct {
	categoryRepo repository.TestCategoryRepository
	testRepo     repository.LabTestRepository
	packageRepo  repository.TestPackageRepository
	tx           repository.Transactor
}

// NewCatalogService creates a new catalog service
func NewCatalogService(
	categoryRepo repository.TestCategoryRepository,
	testRepo repository.LabTestRepository,
	packageRepo repository.TestPackageRepository,
	tx repository.Transactor,
) *CatalogService {
	return &CatalogService{
		categoryRepo: categoryRepo,
		testRepo:     testRepo,
		packageRepo:  packageRepo,
		tx:           tx,
	}
}

// CategoryInput represents a test category
type CategoryInput struct {
	Name        string
	Description string
}

// CreateCategory creates a new test category
func (s *CatalogService) CreateCategory(ctx context.Context, input *CategoryInput) (*entity.TestCategory, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.NewFieldError("name", "is required")
	}

	existing, err := s.categoryRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.NewConflictError("Category with this name already exists")
	}

	category := &entity.TestCategory{
		Name:        name,
		Description: utils.StringPtr(input.Description),
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// GetCategory returns a category by ID
func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*entity.TestCategory, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, apperror.NewNotFoundError("Category")
	}
	return category, nil
}

// ListCategories returns all categories ordered by name
func (s *CatalogService) ListCategories(ctx context.Context) ([]entity.TestCategory, error) {
	return s.categoryRepo.List(ctx)
}

// UpdateCategory renames a category
func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, input *CategoryInput) (*entity.TestCategory, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.NewFieldError("name", "is required")
	}
	if !strings.EqualFold(name, category.Name) {
		existing, err := s.categoryRepo.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != category.ID {
			return nil, apperror.NewConflictError("Category with this name already exists")
		}
	}

	category.Name = name
	category.Description = utils.StringPtr(input.Description)
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory deletes a category
func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}
	return s.categoryRepo.Delete(ctx, id)
}

// LabTestInput represents an orderable test
type LabTestInput struct {
	CategoryID      *uuid.UUID
	Code            string
	Name            string
	Description     string
	Price           decimal.Decimal
	SampleType      string
	Unit            string
	NormalRange     string
	TurnaroundHours int
	IsActive        *bool
}

func (in *LabTestInput) validate() error {
	var fieldErrors []apperror.FieldError
	if utils.NormalizeCode(in.Code) == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "code", Message: "is required"})
	}
	if strings.TrimSpace(in.Name) == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "name", Message: "is required"})
	}
	if in.Price.IsNegative() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "price", Message: "must not be negative"})
	}
	if in.TurnaroundHours < 0 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "turnaround_hours", Message: "must not be negative"})
	}
	if len(fieldErrors) > 0 {
		return apperror.NewValidationError(fieldErrors)
	}
	return nil
}

func (in *LabTestInput) apply(t *entity.LabTest) {
	t.CategoryID = in.CategoryID
	t.Code = utils.NormalizeCode(in.Code)
	t.Name = strings.TrimSpace(in.Name)
	t.Description = utils.StringPtr(in.Description)
	t.Price = in.Price.Round(2)
	t.SampleType = strings.TrimSpace(in.SampleType)
	t.Unit = strings.TrimSpace(in.Unit)
	t.NormalRange = strings.TrimSpace(in.NormalRange)
	if in.TurnaroundHours > 0 {
		t.TurnaroundHours = in.TurnaroundHours
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
}

func (s *CatalogService) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	category, err := s.categoryRepo.GetByID(ctx, *id)
	if err != nil {
		return err
	}
	if category == nil {
		return apperror.NewFieldError("category_id", "does not exist")
	}
	return nil
}

// CreateLabTest adds a test to the menu
func (s *CatalogService) CreateLabTest(ctx context.Context, input *LabTestInput) (*entity.LabTest, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	code := utils.NormalizeCode(input.Code)
	existing, err := s.testRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.NewConflictError(fmt.Sprintf("Test code %s already exists", code))
	}

	test := &entity.LabTest{TurnaroundHours: 24, IsActive: true}
	input.apply(test)
	if err := s.testRepo.Create(ctx, test); err != nil {
		return nil, err
	}
	return test, nil
}

// GetLabTest returns a test by ID
func (s *CatalogService) GetLabTest(ctx context.Context, id uuid.UUID) (*entity.LabTest, error) {
	test, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, apperror.NewNotFoundError("Lab test")
	}
	return test, nil
}

// ListLabTests returns a filtered, paginated list of tests
func (s *CatalogService) ListLabTests(ctx context.Context, params *repository.LabTestFilterParams) ([]entity.LabTest, int64, error) {
	params.Search = strings.TrimSpace(params.Search)
	return s.testRepo.List(ctx, params)
}

// UpdateLabTest replaces a test's details. Price changes only affect orders
// and invoices created afterwards.
func (s *CatalogService) UpdateLabTest(ctx context.Context, id uuid.UUID, input *LabTestInput) (*entity.LabTest, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	test, err := s.GetLabTest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	code := utils.NormalizeCode(input.Code)
	if code != test.Code {
		existing, err := s.testRepo.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != test.ID {
			return nil, apperror.NewConflictError(fmt.Sprintf("Test code %s already exists", code))
		}
	}

	input.apply(test)
	if err := s.testRepo.Update(ctx, test); err != nil {
		return nil, err
	}
	return test, nil
}

// DeleteLabTest soft-deletes a test
func (s *CatalogService) DeleteLabTest(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetLabTest(ctx, id); err != nil {
		return err
	}
	return s.testRepo.Delete(ctx, id)
}

// PackageInput represents a bundle of tests sold at one price
type PackageInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	TestIDs     []uuid.UUID
	IsActive    *bool
}

func (in *PackageInput) validate() error {
	var fieldErrors []apperror.FieldError
	if strings.TrimSpace(in.Name) == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "name", Message: "is required"})
	}
	if in.Price.IsNegative() {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "price", Message: "must not be negative"})
	}
	if len(in.TestIDs) == 0 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "test_ids", Message: "must contain at least one test"})
	}
	if len(fieldErrors) > 0 {
		return apperror.NewValidationError(fieldErrors)
	}
	return nil
}

// resolveTests loads the package's tests, failing on any unknown ID
func (s *CatalogService) resolveTests(ctx context.Context, ids []uuid.UUID) ([]entity.LabTest, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	tests, err := s.testRepo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(tests) != len(unique) {
		found := make(map[uuid.UUID]bool, len(tests))
		for _, t := range tests {
			found[t.ID] = true
		}
		for _, id := range unique {
			if !found[id] {
				return nil, apperror.NewFieldError("test_ids", fmt.Sprintf("test %s does not exist", id))
			}
		}
	}
	return tests, nil
}

// CreatePackage creates a test package
func (s *CatalogService) CreatePackage(ctx context.Context, input *PackageInput) (*entity.TestPackage, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	tests, err := s.resolveTests(ctx, input.TestIDs)
	if err != nil {
		return nil, err
	}

	pkg := &entity.TestPackage{
		Name:        strings.TrimSpace(input.Name),
		Description: utils.StringPtr(input.Description),
		Price:       input.Price.Round(2),
		IsActive:    true,
		Tests:       tests,
	}
	if input.IsActive != nil {
		pkg.IsActive = *input.IsActive
	}

	if err := s.packageRepo.Create(ctx, pkg); err != nil {
		if isDuplicate(err) {
			return nil, apperror.NewConflictError("Package with this name already exists")
		}
		return nil, err
	}
	return pkg, nil
}

// GetPackage returns a package with its tests
func (s *CatalogService) GetPackage(ctx context.Context, id uuid.UUID) (*entity.TestPackage, error) {
	pkg, err := s.packageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, apperror.NewNotFoundError("Package")
	}
	return pkg, nil
}

// ListPackages returns a paginated list of packages
func (s *CatalogService) ListPackages(ctx context.Context, params *pagination.PaginationParams, search string, activeOnly bool) ([]entity.TestPackage, int64, error) {
	return s.packageRepo.List(ctx, params, strings.TrimSpace(search), activeOnly)
}

// UpdatePackage replaces a package's details and its test list
func (s *CatalogService) UpdatePackage(ctx context.Context, id uuid.UUID, input *PackageInput) (*entity.TestPackage, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	pkg, err := s.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	tests, err := s.resolveTests(ctx, input.TestIDs)
	if err != nil {
		return nil, err
	}

	pkg.Name = strings.TrimSpace(input.Name)
	pkg.Description = utils.StringPtr(input.Description)
	pkg.Price = input.Price.Round(2)
	if input.IsActive != nil {
		pkg.IsActive = *input.IsActive
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.packageRepo.Update(ctx, pkg); err != nil {
			return err
		}
		return s.packageRepo.ReplaceTests(ctx, pkg, tests)
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, apperror.NewConflictError("Package with this name already exists")
		}
		return nil, err
	}
	pkg.Tests = tests
	return pkg, nil
}

// DeletePackage deletes a package
func (s *CatalogService) DeletePackage(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetPackage(ctx, id); err != nil {
		return err
	}
	return s.packageRepo.Delete(ctx, id)
}
