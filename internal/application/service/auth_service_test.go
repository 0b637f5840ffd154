package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/diaglab/labdesk-api/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	svc      *AuthService
	users    *MockUserRepository
	roles    *MockRoleRepository
	resets   *MockPasswordResetRepository
	patients *MockPatientRepository
	mailer   *MockMailer
	jwt      *utils.JWTManager
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:    new(MockUserRepository),
		roles:    new(MockRoleRepository),
		resets:   new(MockPasswordResetRepository),
		patients: new(MockPatientRepository),
		mailer:   new(MockMailer),
		jwt:      utils.NewJWTManager("test-secret", time.Hour, 24*time.Hour),
	}
	tx := &fakeTx{}
	ids := newTestIdentifiers(newFakeSequences(), tx)
	staff := NewStaffService(new(MockDoctorRepository), new(MockTechnicianRepository), f.users, f.roles, tx, ids, logger.Discard())
	f.svc = NewAuthService(
		f.users, f.roles, f.resets, f.patients, tx,
		NewPatientService(f.patients, ids), staff, f.jwt, f.mailer, nil, logger.Discard(),
	)
	return f
}

func userWithPassword(t *testing.T, password string) *entity.User {
	hashed, err := utils.HashPassword(password)
	require.NoError(t, err)
	return &entity.User{ID: uuid.New(), Email: "amina@example.com", Password: hashed, IsActive: true}
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := userWithPassword(t, "correct-horse")
	withRoles := *user
	withRoles.Roles = []entity.Role{{ID: 5, Name: entity.RolePatient}}
	patient := &entity.Patient{ID: uuid.New(), UserID: &user.ID}

	f.users.On("GetByEmail", ctx, "amina@example.com").Return(user, nil)
	f.users.On("Update", ctx, user).Return(nil)
	f.users.On("GetWithRoles", ctx, user.ID).Return(&withRoles, nil)
	f.patients.On("GetByUserID", ctx, user.ID).Return(patient, nil)

	out, err := f.svc.Login(ctx, &LoginInput{Email: " Amina@Example.com", Password: "correct-horse"})

	require.NoError(t, err)
	assert.NotNil(t, user.LastLoginAt)
	assert.Equal(t, patient, out.Patient)
	assert.Equal(t, int64(3600), out.ExpiresIn)

	claims, err := f.jwt.ValidateAccessToken(out.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.HasRole(entity.RolePatient))
	require.NotNil(t, claims.PatientID)
	assert.Equal(t, patient.ID, *claims.PatientID)
}

func TestAuthService_Login_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("GetByEmail", ctx, "nobody@example.com").Return(nil, nil)

		_, err := f.svc.Login(ctx, &LoginInput{Email: "nobody@example.com", Password: "whatever1"})
		assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("GetByEmail", ctx, "amina@example.com").Return(userWithPassword(t, "correct-horse"), nil)

		_, err := f.svc.Login(ctx, &LoginInput{Email: "amina@example.com", Password: "battery-staple"})
		assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	})

	t.Run("google-only account has no password", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("GetByEmail", ctx, "amina@example.com").Return(&entity.User{ID: uuid.New(), IsActive: true}, nil)

		_, err := f.svc.Login(ctx, &LoginInput{Email: "amina@example.com", Password: ""})
		assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	})

	t.Run("inactive account", func(t *testing.T) {
		f := newAuthFixture()
		user := userWithPassword(t, "correct-horse")
		user.IsActive = false
		f.users.On("GetByEmail", ctx, "amina@example.com").Return(user, nil)

		_, err := f.svc.Login(ctx, &LoginInput{Email: "amina@example.com", Password: "correct-horse"})
		assert.ErrorIs(t, err, apperror.ErrAccountInactive)
		f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestAuthService_RefreshToken_InactiveUser(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := &entity.User{ID: uuid.New(), IsActive: false}
	refresh, err := f.jwt.GenerateRefreshToken(user.ID)
	require.NoError(t, err)

	f.users.On("GetByID", ctx, user.ID).Return(user, nil)

	_, err = f.svc.RefreshToken(ctx, refresh)
	assert.ErrorIs(t, err, apperror.ErrAccountInactive)
}

func TestAuthService_ForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email reports success and sends nothing", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("GetByEmail", ctx, "nobody@example.com").Return(nil, nil)

		assert.NoError(t, f.svc.ForgotPassword(ctx, "nobody@example.com"))
		f.resets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.mailer.AssertNotCalled(t, "SendPasswordReset", mock.Anything, mock.Anything)
	})

	t.Run("known email stores a hashed token and mails the raw one", func(t *testing.T) {
		f := newAuthFixture()
		var stored *entity.PasswordResetToken
		f.users.On("GetByEmail", ctx, "amina@example.com").Return(&entity.User{ID: uuid.New(), IsActive: true}, nil)
		f.resets.On("DeleteByEmail", ctx, "amina@example.com").Return(nil)
		f.resets.On("Create", ctx, mock.AnythingOfType("*entity.PasswordResetToken")).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*entity.PasswordResetToken) }).
			Return(nil)
		f.mailer.On("SendPasswordReset", "amina@example.com", mock.AnythingOfType("string")).
			Return(errors.New("smtp down"))

		require.NoError(t, f.svc.ForgotPassword(ctx, "amina@example.com"))

		raw := f.mailer.Calls[0].Arguments.String(1)
		require.NotNil(t, stored)
		assert.Equal(t, entity.HashResetToken(raw), stored.TokenHash)
		assert.NotEqual(t, raw, stored.TokenHash)
	})
}

func TestAuthService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	raw := "raw-reset-token"

	t.Run("unknown token", func(t *testing.T) {
		f := newAuthFixture()
		f.resets.On("GetByHash", ctx, entity.HashResetToken(raw)).Return(nil, nil)

		err := f.svc.ResetPassword(ctx, &ResetPasswordInput{Email: "amina@example.com", Token: raw, NewPassword: "new-password"})
		assert.ErrorIs(t, err, errInvalidResetToken)
	})

	t.Run("token issued for another address", func(t *testing.T) {
		f := newAuthFixture()
		f.resets.On("GetByHash", ctx, entity.HashResetToken(raw)).Return(&entity.PasswordResetToken{
			Email: "someone@example.com", ExpiresAt: time.Now().Add(time.Hour),
		}, nil)

		err := f.svc.ResetPassword(ctx, &ResetPasswordInput{Email: "amina@example.com", Token: raw, NewPassword: "new-password"})
		assert.ErrorIs(t, err, errInvalidResetToken)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newAuthFixture()
		f.resets.On("GetByHash", ctx, entity.HashResetToken(raw)).Return(&entity.PasswordResetToken{
			Email: "amina@example.com", ExpiresAt: time.Now().Add(-time.Minute),
		}, nil)

		err := f.svc.ResetPassword(ctx, &ResetPasswordInput{Email: "amina@example.com", Token: raw, NewPassword: "new-password"})
		assert.ErrorIs(t, err, errInvalidResetToken)
	})

	t.Run("short password", func(t *testing.T) {
		f := newAuthFixture()
		err := f.svc.ResetPassword(ctx, &ResetPasswordInput{Email: "amina@example.com", Token: raw, NewPassword: "short"})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("valid token updates the password and burns the token", func(t *testing.T) {
		f := newAuthFixture()
		token := &entity.PasswordResetToken{ID: uuid.New(), Email: "amina@example.com", ExpiresAt: time.Now().Add(time.Hour)}
		user := userWithPassword(t, "old-password")

		f.resets.On("GetByHash", ctx, entity.HashResetToken(raw)).Return(token, nil)
		f.users.On("GetByEmail", ctx, "amina@example.com").Return(user, nil)
		f.users.On("Update", ctx, user).Return(nil)
		f.resets.On("MarkAsUsed", ctx, token.ID).Return(nil)
		f.resets.On("DeleteByEmail", ctx, "amina@example.com").Return(nil)

		err := f.svc.ResetPassword(ctx, &ResetPasswordInput{Email: "amina@example.com", Token: raw, NewPassword: "new-password"})

		require.NoError(t, err)
		assert.True(t, utils.CheckPasswordHash("new-password", user.Password))
		f.resets.AssertExpectations(t)
	})
}
