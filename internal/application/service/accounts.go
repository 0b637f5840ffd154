package service

import (
	"context"
	"strings"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/utils"
)

// AccountInput holds the login details shared by every kind of account
type AccountInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
	// ProviderID is set for accounts created through Google sign-in
	ProviderID string
}

// accounts creates login accounts and gives them their roles. Patients,
// doctors, technicians and staff users all go through it.
type accounts struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
}

func (a accounts) create(ctx context.Context, in AccountInput, roleNames ...string) (*entity.User, error) {
	email := utils.NormalizeEmail(in.Email)

	existing, err := a.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.NewConflictError("Email already registered")
	}

	roles := make([]*entity.Role, 0, len(roleNames))
	for _, name := range roleNames {
		role, err := a.roleRepo.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if role == nil {
			return nil, apperror.NewFieldError("roles", "unknown role "+name)
		}
		roles = append(roles, role)
	}

	user := &entity.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     email,
		Phone:     utils.StringPtr(strings.TrimSpace(in.Phone)),
		IsActive:  true,
		Provider:  "local",
	}
	if in.ProviderID != "" {
		now := time.Now()
		user.Provider = "google"
		user.ProviderID = &in.ProviderID
		user.EmailVerifiedAt = &now
	}
	if in.Password != "" {
		hashed, err := utils.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hashed
	}

	if err := a.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	for _, role := range roles {
		if err := a.userRepo.AssignRole(ctx, user.ID, role.ID); err != nil {
			return nil, err
		}
		user.Roles = append(user.Roles, *role)
	}
	return user, nil
}
