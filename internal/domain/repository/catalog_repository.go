package repository

import (
	"context"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/pkg/pagination"
	"github.com/google/uuid"
)

// TestCategoryRepository defines the interface for test category data operations
type TestCategoryRepository interface {
	Create(ctx context.Context, category *entity.TestCategory) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.TestCategory, error)
	GetByName(ctx context.Context, name string) (*entity.TestCategory, error)
	Update(ctx context.Context, category *entity.TestCategory) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]entity.TestCategory, error)
}

// LabTestRepository defines the interface for lab test data operations
type LabTestRepository interface {
	Create(ctx context.Context, test *entity.LabTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.LabTest, error)
	GetByCode(ctx context.Context, code string) (*entity.LabTest, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.LabTest, error)
	Update(ctx context.Context, test *entity.LabTest) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params *LabTestFilterParams) ([]entity.LabTest, int64, error)
}

// LabTestFilterParams contains filtering parameters for lab test queries
type LabTestFilterParams struct {
	Pagination *pagination.PaginationParams
	Search     string
	CategoryID *uuid.UUID
	ActiveOnly bool
}

// TestPackageRepository defines the interface for test package data operations
type TestPackageRepository interface {
	Create(ctx context.Context, pkg *entity.TestPackage) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.TestPackage, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.TestPackage, error)
	Update(ctx context.Context, pkg *entity.TestPackage) error
	ReplaceTests(ctx context.Context, pkg *entity.TestPackage, tests []entity.LabTest) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params *pagination.PaginationParams, search string, activeOnly bool) ([]entity.TestPackage, int64, error)
}
