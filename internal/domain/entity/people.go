package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Patient is a person tests are ordered for. Walk-in patients registered at
// reception have no user account; self-registered ones do.
type Patient struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	PatientCode string         `gorm:"size:32;uniqueIndex:idx_patients_patient_code;not null" json:"patient_code"`
	UserID      *uuid.UUID     `gorm:"type:uuid;uniqueIndex" json:"user_id,omitempty"`
	FirstName   string         `gorm:"size:255;not null" json:"first_name"`
	LastName    string         `gorm:"size:255" json:"last_name"`
	Gender      string         `gorm:"size:20" json:"gender,omitempty"`
	DateOfBirth *time.Time     `gorm:"type:date" json:"date_of_birth,omitempty"`
	Phone       *string        `gorm:"size:50;index" json:"phone,omitempty"`
	Email       *string        `gorm:"size:255;index" json:"email,omitempty"`
	Address     *string        `gorm:"type:text" json:"address,omitempty"`
	BloodGroup  *string        `gorm:"size:5" json:"blood_group,omitempty"`
	Notes       *string        `gorm:"type:text" json:"notes,omitempty"`
	CreatedByID *uuid.UUID     `gorm:"type:uuid" json:"created_by_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Patient) TableName() string {
	return "patients"
}

// FullName joins first and last name
func (p *Patient) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Age in whole years at now, or -1 when the birth date is unknown
func (p *Patient) Age(now time.Time) int {
	if p.DateOfBirth == nil {
		return -1
	}
	dob := *p.DateOfBirth
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// Doctor refers patients and verifies results. Self-registered doctors wait
// for admin approval before they can verify anything.
type Doctor struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	DoctorCode      string          `gorm:"size:32;uniqueIndex:idx_doctors_doctor_code;not null" json:"doctor_code"`
	UserID          uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Specialization  string          `gorm:"size:255" json:"specialization,omitempty"`
	LicenseNumber   string          `gorm:"size:100;uniqueIndex:idx_doctors_license_number,where:deleted_at IS NULL" json:"license_number"`
	Qualification   string          `gorm:"size:255" json:"qualification,omitempty"`
	ConsultationFee decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"consultation_fee"`
	IsApproved      bool            `gorm:"default:false" json:"is_approved"`
	SelfRegistered  bool            `gorm:"default:false" json:"self_registered"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"user"`
}

func (d *Doctor) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (Doctor) TableName() string {
	return "doctors"
}

// LabTechnician processes samples and enters results
type LabTechnician struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	TechnicianCode string         `gorm:"size:32;uniqueIndex:idx_lab_technicians_technician_code;not null" json:"technician_code"`
	UserID         uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Qualification  string         `gorm:"size:255" json:"qualification,omitempty"`
	Department     string         `gorm:"size:255" json:"department,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"user"`
}

func (t *LabTechnician) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (LabTechnician) TableName() string {
	return "lab_technicians"
}
