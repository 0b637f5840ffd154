package service

import (
	"context"
	"strings"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/pagination"
	"github.com/diaglab/labdesk-api/pkg/utils"
	"github.com/google/uuid"
)

// UserService handles user management operations
type UserService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	tx       repository.Transactor
	accounts accounts
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	tx repository.Transactor,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		roleRepo: roleRepo,
		tx:       tx,
		accounts: accounts{userRepo: userRepo, roleRepo: roleRepo},
	}
}

// ListUsers returns a paginated list of users with their roles
func (s *UserService) ListUsers(ctx context.Context, params *pagination.PaginationParams, search, role string) ([]entity.User, int64, error) {
	return s.userRepo.List(ctx, &repository.UserFilterParams{
		Pagination: params,
		Search:     strings.TrimSpace(search),
		Role:       role,
	})
}

// GetUser returns a user with roles and permissions
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.GetWithRoles(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewNotFoundError("User")
	}
	return user, nil
}

// CreateUserInput represents the input for an admin-created account
type CreateUserInput struct {
	AccountInput
	Roles []string
}

// CreateUser creates a staff account with the given roles
func (s *UserService) CreateUser(ctx context.Context, input *CreateUserInput) (*entity.User, error) {
	if len(input.Roles) == 0 {
		return nil, apperror.NewFieldError("roles", "at least one role is required")
	}
	if input.Password == "" {
		return nil, apperror.NewFieldError("password", "is required")
	}

	var user *entity.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.accounts.create(ctx, input.AccountInput, input.Roles...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUserInput represents the input for updating a user. Nil fields are
// left unchanged; a non-nil Roles replaces the user's roles.
type UpdateUserInput struct {
	ID        uuid.UUID
	ActorID   uuid.UUID
	FirstName *string
	LastName  *string
	Phone     *string
	IsActive  *bool
	Roles     []string
}

// UpdateUser updates a user's profile, status and roles
func (s *UserService) UpdateUser(ctx context.Context, input *UpdateUserInput) (*entity.User, error) {
	user, err := s.GetUser(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.IsActive != nil && !*input.IsActive && input.ID == input.ActorID {
		return nil, apperror.NewBadRequestError("You cannot deactivate your own account")
	}

	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		user.Phone = utils.StringPtr(strings.TrimSpace(*input.Phone))
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Update(ctx, user); err != nil {
			return err
		}
		if input.Roles != nil {
			return s.replaceRoles(ctx, user, input.Roles)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetUser(ctx, user.ID)
}

func (s *UserService) replaceRoles(ctx context.Context, user *entity.User, names []string) error {
	if len(names) == 0 {
		return apperror.NewFieldError("roles", "at least one role is required")
	}

	wanted := make(map[uint]bool, len(names))
	for _, name := range names {
		role, err := s.roleRepo.GetByName(ctx, name)
		if err != nil {
			return err
		}
		if role == nil {
			return apperror.NewFieldError("roles", "unknown role "+name)
		}
		wanted[role.ID] = true
	}

	for _, current := range user.Roles {
		if !wanted[current.ID] {
			if err := s.userRepo.RemoveRole(ctx, user.ID, current.ID); err != nil {
				return err
			}
		}
		delete(wanted, current.ID)
	}
	for roleID := range wanted {
		if err := s.userRepo.AssignRole(ctx, user.ID, roleID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteUser soft-deletes a user. Admins cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return apperror.NewBadRequestError("You cannot delete your own account")
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return apperror.NewNotFoundError("User")
	}
	return s.userRepo.Delete(ctx, id)
}

// ListRoles returns every role with its permissions
func (s *UserService) ListRoles(ctx context.Context) ([]entity.Role, error) {
	return s.roleRepo.List(ctx)
}
