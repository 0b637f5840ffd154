package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryRequest represents a test category
type CategoryRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"omitempty,max=500"`
}

// LabTestRequest represents a catalog test
type LabTestRequest struct {
	CategoryID      *uuid.UUID      `json:"category_id"`
	Code            string          `json:"code" binding:"required,max=50"`
	Name            string          `json:"name" binding:"required,min=2,max=255"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	SampleType      string          `json:"sample_type" binding:"omitempty,max=100"`
	Unit            string          `json:"unit" binding:"omitempty,max=50"`
	NormalRange     string          `json:"normal_range" binding:"omitempty,max=255"`
	TurnaroundHours int             `json:"turnaround_hours" binding:"min=0"`
	IsActive        *bool           `json:"is_active"`
}

// PackageRequest represents a bundle of tests sold at one price
type PackageRequest struct {
	Name        string          `json:"name" binding:"required,min=2,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	TestIDs     []uuid.UUID     `json:"test_ids" binding:"required,min=1"`
	IsActive    *bool           `json:"is_active"`
}

// CatalogFilterRequest represents catalog list filters
type CatalogFilterRequest struct {
	Search     string `form:"search"`
	CategoryID string `form:"category_id"`
	ActiveOnly bool   `form:"active_only"`
	Page       int    `form:"page"`
	PerPage    int    `form:"per_page"`
}
