package handler

import (
	"github.com/diaglab/labdesk-api/internal/application/service"
	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/request"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/response"
	"github.com/gin-gonic/gin"
)

// UserHandler handles user management HTTP requests
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func userListItem(user entity.User) gin.H {
	return gin.H{
		"id":            user.ID,
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"email":         user.Email,
		"phone":         user.Phone,
		"provider":      user.Provider,
		"is_active":     user.IsActive,
		"roles":         user.RoleNames(),
		"last_login_at": user.LastLoginAt,
		"created_at":    user.CreatedAt,
	}
}

// List handles listing users with pagination
// @Summary List Users
// @Tags users
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(15)
// @Param search query string false "Search query"
// @Param role query string false "Role name"
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	params := pageParams(c)
	users, total, err := h.userService.ListUsers(c.Request.Context(), params, c.Query("search"), c.Query("role"))
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]gin.H, len(users))
	for i, user := range users {
		items[i] = userListItem(user)
	}
	response.Paginated(c, "Users retrieved successfully", items, params, total)
}

// Get handles getting a single user by ID
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "User retrieved successfully", userPayload(user))
}

// Create handles creating a staff account
func (h *UserHandler) Create(c *gin.Context) {
	var req request.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), &service.CreateUserInput{
		AccountInput: accountInput(req.FirstName, req.LastName, req.Email, req.Phone, req.Password),
		Roles:        req.Roles,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "User created successfully", userPayload(user))
}

// Update handles editing an account's profile, status and roles
func (h *UserHandler) Update(c *gin.Context) {
	actorID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), &service.UpdateUserInput{
		ID:        id,
		ActorID:   actorID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		IsActive:  req.IsActive,
		Roles:     req.Roles,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "User updated successfully", userPayload(user))
}

// Delete handles deleting an account
func (h *UserHandler) Delete(c *gin.Context) {
	actorID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), actorID, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListRoles returns every role with its permissions
func (h *UserHandler) ListRoles(c *gin.Context) {
	roles, err := h.userService.ListRoles(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Roles retrieved successfully", roles)
}
