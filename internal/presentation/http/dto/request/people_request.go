package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PatientRequest represents a patient created or edited at reception
type PatientRequest struct {
	FirstName   string `json:"first_name" binding:"required,min=1,max=255"`
	LastName    string `json:"last_name" binding:"omitempty,max=255"`
	Gender      string `json:"gender" binding:"omitempty,oneof=male female other"`
	DateOfBirth string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Phone       string `json:"phone" binding:"omitempty,max=50"`
	Email       string `json:"email" binding:"omitempty,email"`
	Address     string `json:"address"`
	BloodGroup  string `json:"blood_group" binding:"omitempty,max=5"`
	Notes       string `json:"notes"`
}

// CreateUserRequest represents an admin-created staff account
type CreateUserRequest struct {
	FirstName string   `json:"first_name" binding:"required,min=2,max=255"`
	LastName  string   `json:"last_name" binding:"omitempty,max=255"`
	Email     string   `json:"email" binding:"required,email"`
	Phone     string   `json:"phone" binding:"omitempty,max=50"`
	Password  string   `json:"password" binding:"required,min=8"`
	Roles     []string `json:"roles" binding:"required,min=1"`
}

// UpdateUserRequest represents an admin edit of an account
type UpdateUserRequest struct {
	FirstName *string  `json:"first_name" binding:"omitempty,min=2,max=255"`
	LastName  *string  `json:"last_name" binding:"omitempty,max=255"`
	Phone     *string  `json:"phone" binding:"omitempty,max=50"`
	IsActive  *bool    `json:"is_active"`
	Roles     []string `json:"roles"`
}

// StaffAccountRequest holds the account part of an admin-created doctor or
// technician
type StaffAccountRequest struct {
	FirstName string `json:"first_name" binding:"required,min=2,max=255"`
	LastName  string `json:"last_name" binding:"omitempty,max=255"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"omitempty,max=50"`
	Password  string `json:"password" binding:"required,min=8"`
}

// DoctorRequest holds the doctor profile fields
type DoctorRequest struct {
	Specialization  string          `json:"specialization" binding:"omitempty,max=255"`
	LicenseNumber   string          `json:"license_number" binding:"required,max=100"`
	Qualification   string          `json:"qualification" binding:"omitempty,max=255"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
}

// CreateDoctorRequest represents a doctor added by an admin
type CreateDoctorRequest struct {
	StaffAccountRequest
	DoctorRequest
}

// TechnicianRequest holds the technician profile fields
type TechnicianRequest struct {
	Qualification string `json:"qualification" binding:"omitempty,max=255"`
	Department    string `json:"department" binding:"omitempty,max=100"`
}

// CreateTechnicianRequest represents a technician added by an admin
type CreateTechnicianRequest struct {
	StaffAccountRequest
	TechnicianRequest
}

// AssignTechnicianRequest puts an order on a technician's bench
type AssignTechnicianRequest struct {
	TechnicianID uuid.UUID `json:"technician_id" binding:"required"`
}
