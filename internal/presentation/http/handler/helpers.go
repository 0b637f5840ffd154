package handler

import (
	"strconv"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/response"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/diaglab/labdesk-api/pkg/pagination"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) *uuid.UUID {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return nil
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		return nil
	}
	return &userID
}

// GetUserEmail extracts the user email from the Gin context
func GetUserEmail(c *gin.Context) string {
	return c.GetString("user_email")
}

// GetUserRoles extracts the user roles from the Gin context
func GetUserRoles(c *gin.Context) []string {
	return c.GetStringSlice("user_roles")
}

// HasRole checks if the user holds the given role
func HasRole(c *gin.Context, role string) bool {
	for _, r := range GetUserRoles(c) {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin checks if the user has the admin role
func IsAdmin(c *gin.Context) bool {
	return HasRole(c, entity.RoleAdmin)
}

// requireUserID writes a 401 and returns false when the caller is anonymous
func requireUserID(c *gin.Context) (uuid.UUID, bool) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return uuid.Nil, false
	}
	return *userID, true
}

// parseID reads a UUID path parameter, writing a 400 when it is malformed
func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// pageParams reads page and per_page from the query string
func pageParams(c *gin.Context) *pagination.PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "15"))
	params := &pagination.PaginationParams{Page: page, PerPage: perPage}
	params.Validate()
	return params
}

// optionalUUID parses s, returning nil when it is empty
func optionalUUID(field, s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, apperror.NewFieldError(field, "must be a valid UUID")
	}
	return &id, nil
}

// optionalDate parses a YYYY-MM-DD string as a UTC date, nil when empty
func optionalDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return nil, apperror.NewFieldError(field, "must be a date in YYYY-MM-DD format")
	}
	return &t, nil
}

// endOfDay moves a date filter to the last instant of that day
func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return &end
}

// optionalBool parses a query flag, nil when absent
func optionalBool(c *gin.Context, key string) *bool {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}
