package request

import "github.com/shopspring/decimal"

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AccountRequest holds the login details shared by every registration
type AccountRequest struct {
	FirstName       string `json:"first_name" binding:"required,min=2,max=255"`
	LastName        string `json:"last_name" binding:"omitempty,max=255"`
	Email           string `json:"email" binding:"required,email"`
	Phone           string `json:"phone" binding:"omitempty,max=50"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" binding:"required,eqfield=Password"`
}

// RegisterPatientRequest represents a patient's self-registration
type RegisterPatientRequest struct {
	AccountRequest
	Gender      string `json:"gender" binding:"omitempty,oneof=male female other"`
	DateOfBirth string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Address     string `json:"address"`
}

// RegisterDoctorRequest represents a doctor's self-registration
type RegisterDoctorRequest struct {
	AccountRequest
	Specialization  string          `json:"specialization" binding:"omitempty,max=255"`
	LicenseNumber   string          `json:"license_number" binding:"required,max=100"`
	Qualification   string          `json:"qualification" binding:"omitempty,max=255"`
	ConsultationFee decimal.Decimal `json:"consultation_fee"`
}

// RefreshTokenRequest represents a token refresh request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ForgotPasswordRequest represents a forgot password request
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest represents a password reset request
type ResetPasswordRequest struct {
	Token           string `json:"token" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" binding:"required,eqfield=Password"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

// UpdateProfileRequest represents a profile update
type UpdateProfileRequest struct {
	FirstName string  `json:"first_name" binding:"required,min=2,max=255"`
	LastName  string  `json:"last_name" binding:"omitempty,max=255"`
	Phone     *string `json:"phone" binding:"omitempty,max=50"`
	Photo     *string `json:"photo" binding:"omitempty,url"`
}
