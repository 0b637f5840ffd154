package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/diaglab/labdesk-api/pkg/oauth"
	"github.com/diaglab/labdesk-api/pkg/utils"
	"github.com/google/uuid"
)

const (
	passwordResetTTL  = time.Hour
	minPasswordLength = 8
)

var errInvalidResetToken = apperror.NewBadRequestError("Invalid or expired reset token")

// AuthService handles authentication-related operations
type AuthService struct {
	userRepo          repository.UserRepository
	passwordResetRepo repository.PasswordResetTokenRepository
	patientRepo       repository.PatientRepository
	tx                repository.Transactor
	accounts          accounts
	patients          *PatientService
	staff             *StaffService
	jwtManager        *utils.JWTManager
	mailer            Mailer
	google            GoogleAuthenticator
	log               *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	passwordResetRepo repository.PasswordResetTokenRepository,
	patientRepo repository.PatientRepository,
	tx repository.Transactor,
	patients *PatientService,
	staff *StaffService,
	jwtManager *utils.JWTManager,
	mailer Mailer,
	google GoogleAuthenticator,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		userRepo:          userRepo,
		passwordResetRepo: passwordResetRepo,
		patientRepo:       patientRepo,
		tx:                tx,
		accounts:          accounts{userRepo: userRepo, roleRepo: roleRepo},
		patients:          patients,
		staff:             staff,
		jwtManager:        jwtManager,
		mailer:            mailer,
		google:            google,
		log:               log,
	}
}

// LoginInput represents the login input
type LoginInput struct {
	Email    string
	Password string
}

// LoginOutput represents the login output
type LoginOutput struct {
	User         *entity.User
	Patient      *entity.Patient
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	user, err := s.userRepo.GetByEmail(ctx, utils.NormalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}
	if user == nil || user.Password == "" {
		return nil, apperror.ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(input.Password, user.Password) {
		return nil, apperror.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperror.ErrAccountInactive
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user.ID)
}

// issueTokens loads the user's roles and signs a token pair. Patients carry
// their patient ID in the access token so their reads can be scoped to it.
func (s *AuthService) issueTokens(ctx context.Context, userID uuid.UUID) (*LoginOutput, error) {
	user, err := s.userRepo.GetWithRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.ErrNotFound
	}

	out := &LoginOutput{User: user, ExpiresIn: int64(s.jwtManager.AccessTokenExpiry().Seconds())}

	var patientID *uuid.UUID
	if user.HasRole(entity.RolePatient) {
		patient, err := s.patientRepo.GetByUserID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if patient != nil {
			patientID = &patient.ID
			out.Patient = patient
		} else {
			// A patient account without a record can see nothing
			none := uuid.Nil
			patientID = &none
		}
	}

	out.AccessToken, err = s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.RoleNames(), user.GetPermissions(), patientID)
	if err != nil {
		return nil, err
	}
	out.RefreshToken, err = s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validatePassword(field, password string) error {
	if len(password) < minPasswordLength {
		return apperror.NewFieldError(field, "must be at least 8 characters")
	}
	return nil
}

// RegisterPatientInput represents a patient's self-registration
type RegisterPatientInput struct {
	AccountInput
	Gender      string
	DateOfBirth *time.Time
	Address     string
}

// RegisterPatient creates a login account with the patient role and the
// linked patient record, then signs the new patient in.
func (s *AuthService) RegisterPatient(ctx context.Context, input *RegisterPatientInput) (*LoginOutput, error) {
	if err := validatePassword("password", input.Password); err != nil {
		return nil, err
	}

	user, err := s.createPatientAccount(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user.ID)
}

func (s *AuthService) createPatientAccount(ctx context.Context, input *RegisterPatientInput) (*entity.User, error) {
	var user *entity.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.accounts.create(ctx, input.AccountInput, entity.RolePatient)
		if err != nil {
			return err
		}

		_, err = s.patients.CreatePatient(ctx, &PatientInput{
			FirstName:   input.FirstName,
			LastName:    input.LastName,
			Gender:      input.Gender,
			DateOfBirth: input.DateOfBirth,
			Phone:       input.Phone,
			Email:       input.Email,
			Address:     input.Address,
		}, &user.ID, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RegisterDoctorInput represents a doctor's self-registration
type RegisterDoctorInput struct {
	AccountInput
	DoctorInput
}

// RegisterDoctor creates a doctor account that must be approved by an admin
// before it can verify results
func (s *AuthService) RegisterDoctor(ctx context.Context, input *RegisterDoctorInput) (*entity.Doctor, error) {
	if err := validatePassword("password", input.Password); err != nil {
		return nil, err
	}
	return s.staff.CreateDoctor(ctx, input.AccountInput, &input.DoctorInput, true)
}

// RefreshToken generates new tokens from a refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*LoginOutput, error) {
	userID, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.ErrInvalidToken
	}
	if !user.IsActive {
		return nil, apperror.ErrAccountInactive
	}

	return s.issueTokens(ctx, user.ID)
}

// GetCurrentUser returns the current user by ID
func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.GetWithRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.ErrNotFound
	}
	return user, nil
}

// ChangePasswordInput represents the change password input
type ChangePasswordInput struct {
	UserID          uuid.UUID
	CurrentPassword string
	NewPassword     string
}

// ChangePassword changes the user's password
func (s *AuthService) ChangePassword(ctx context.Context, input *ChangePasswordInput) error {
	if err := validatePassword("new_password", input.NewPassword); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperror.ErrNotFound
	}

	// Google accounts have no password until they set one
	if user.Password != "" && !utils.CheckPasswordHash(input.CurrentPassword, user.Password) {
		return apperror.NewFieldError("current_password", "is incorrect")
	}

	hashedPassword, err := utils.HashPassword(input.NewPassword)
	if err != nil {
		return err
	}

	user.Password = hashedPassword
	return s.userRepo.Update(ctx, user)
}

// UpdateProfileInput represents the update profile input
type UpdateProfileInput struct {
	UserID    uuid.UUID
	FirstName string
	LastName  string
	Phone     *string
	Photo     *string
}

// UpdateProfile updates the user's own name, phone and photo
func (s *AuthService) UpdateProfile(ctx context.Context, input *UpdateProfileInput) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.ErrNotFound
	}

	if input.FirstName != "" {
		user.FirstName = strings.TrimSpace(input.FirstName)
	}
	if input.LastName != "" {
		user.LastName = strings.TrimSpace(input.LastName)
	}
	if input.Phone != nil {
		user.Phone = utils.StringPtr(strings.TrimSpace(*input.Phone))
	}
	if input.Photo != nil {
		user.Photo = utils.StringPtr(*input.Photo)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ForgotPassword e-mails a reset link. It reports success whether or not the
// address belongs to an account.
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr string) error {
	emailAddr = utils.NormalizeEmail(emailAddr)

	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		s.log.WithComponent("auth").WithError(err).Error("Failed to look up user for password reset")
		return nil
	}
	if user == nil || !user.IsActive {
		return nil
	}

	if err := s.passwordResetRepo.DeleteByEmail(ctx, emailAddr); err != nil {
		return err
	}

	raw, token := entity.NewPasswordResetToken(emailAddr, passwordResetTTL)
	if err := s.passwordResetRepo.Create(ctx, token); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(emailAddr, raw); err != nil {
		s.log.WithComponent("auth").WithError(err).WithField("email", emailAddr).Warn("Failed to send password reset email")
	}
	return nil
}

// ResetPasswordInput represents the reset password input
type ResetPasswordInput struct {
	Email       string
	Token       string
	NewPassword string
}

// ResetPassword resets the user's password using a valid token
func (s *AuthService) ResetPassword(ctx context.Context, input *ResetPasswordInput) error {
	if err := validatePassword("new_password", input.NewPassword); err != nil {
		return err
	}
	emailAddr := utils.NormalizeEmail(input.Email)

	resetToken, err := s.passwordResetRepo.GetByHash(ctx, entity.HashResetToken(input.Token))
	if err != nil {
		return err
	}
	if resetToken == nil || resetToken.Email != emailAddr || !resetToken.IsValid() {
		return errInvalidResetToken
	}

	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		return err
	}
	if user == nil {
		return errInvalidResetToken
	}

	hashedPassword, err := utils.HashPassword(input.NewPassword)
	if err != nil {
		return err
	}

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user.Password = hashedPassword
		if err := s.userRepo.Update(ctx, user); err != nil {
			return err
		}
		if err := s.passwordResetRepo.MarkAsUsed(ctx, resetToken.ID); err != nil {
			return err
		}
		return s.passwordResetRepo.DeleteByEmail(ctx, emailAddr)
	})
}

// GoogleAuthURL returns the consent page URL and its signed state
func (s *AuthService) GoogleAuthURL() (string, string, error) {
	if s.google == nil || !s.google.IsConfigured() {
		return "", "", oauth.ErrOAuthNotConfigured
	}
	return s.google.AuthURL()
}

// GoogleCallback completes Google sign-in. An existing account is matched by
// Google ID, then by e-mail (and linked); otherwise a patient account is
// created.
func (s *AuthService) GoogleCallback(ctx context.Context, state, code string) (*LoginOutput, error) {
	if s.google == nil || !s.google.IsConfigured() {
		return nil, oauth.ErrOAuthNotConfigured
	}

	gUser, err := s.google.Authenticate(ctx, state, code)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidState) || errors.Is(err, oauth.ErrUnverifiedEmail) {
			return nil, apperror.NewBadRequestError(err.Error())
		}
		return nil, apperror.ErrUnauthorized
	}

	user, err := s.userRepo.GetByProviderID(ctx, "google", gUser.ID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		user, err = s.userRepo.GetByEmail(ctx, utils.NormalizeEmail(gUser.Email))
		if err != nil {
			return nil, err
		}
		if user != nil {
			user.ProviderID = &gUser.ID
			if user.Photo == nil && gUser.Picture != "" {
				user.Photo = &gUser.Picture
			}
			if user.EmailVerifiedAt == nil {
				now := time.Now()
				user.EmailVerifiedAt = &now
			}
			if err := s.userRepo.Update(ctx, user); err != nil {
				return nil, err
			}
		}
	}

	if user == nil {
		firstName := gUser.GivenName
		if firstName == "" {
			firstName, _, _ = strings.Cut(gUser.Email, "@")
		}
		user, err = s.createPatientAccount(ctx, &RegisterPatientInput{
			AccountInput: AccountInput{
				FirstName:  firstName,
				LastName:   gUser.FamilyName,
				Email:      gUser.Email,
				ProviderID: gUser.ID,
			},
		})
		if err != nil {
			return nil, err
		}
		s.log.WithComponent("auth").WithField("user_id", user.ID.String()).Info("Patient account created from Google sign-in")
	}

	if !user.IsActive {
		return nil, apperror.ErrAccountInactive
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user.ID)
}
