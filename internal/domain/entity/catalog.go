package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TestCategory groups tests on the menu, e.g. Haematology or Biochemistry
type TestCategory struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Name        string         `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Description *string        `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *TestCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (TestCategory) TableName() string {
	return "test_categories"
}

// LabTest is one orderable investigation
type LabTest struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	CategoryID      *uuid.UUID      `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Code            string          `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	Description     *string         `gorm:"type:text" json:"description,omitempty"`
	Price           decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"price"`
	SampleType      string          `gorm:"size:100" json:"sample_type,omitempty"`
	Unit            string          `gorm:"size:50" json:"unit,omitempty"`
	NormalRange     string          `gorm:"size:255" json:"normal_range,omitempty"`
	TurnaroundHours int             `gorm:"default:24" json:"turnaround_hours"`
	IsActive        bool            `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`

	Category *TestCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (t *LabTest) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (LabTest) TableName() string {
	return "lab_tests"
}

// TestPackage bundles several tests at one price
type TestPackage struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Name        string          `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Description *string         `gorm:"type:text" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"price"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`

	Tests []LabTest `gorm:"many2many:package_tests;" json:"tests,omitempty"`
}

func (p *TestPackage) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (TestPackage) TableName() string {
	return "test_packages"
}

// SumOfTests is what the package's tests would cost ordered one by one
func (p *TestPackage) SumOfTests() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range p.Tests {
		sum = sum.Add(t.Price)
	}
	return sum
}
