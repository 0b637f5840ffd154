package middleware

import (
	"strings"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	infraRepo "github.com/diaglab/labdesk-api/internal/infrastructure/repository"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/response"
	"github.com/diaglab/labdesk-api/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthMiddleware creates a JWT authentication middleware. Requests made by a
// patient carry the patient ID in their context, which limits every
// repository query to that patient's own records.
func AuthMiddleware(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header is required")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Set("user_roles", claims.Roles)
		c.Set("user_permissions", claims.Permissions)

		if claims.HasRole(entity.RolePatient) && !isStaff(claims) {
			// A patient without a record sees nothing
			patientID := uuid.Nil
			if claims.PatientID != nil {
				patientID = *claims.PatientID
			}
			c.Set("patient_id", patientID)
			c.Request = c.Request.WithContext(infraRepo.WithPatient(c.Request.Context(), patientID))
		}

		c.Next()
	}
}

func isStaff(claims *utils.JWTClaims) bool {
	return claims.HasRole(entity.RoleAdmin) ||
		claims.HasRole(entity.RoleReceptionist) ||
		claims.HasRole(entity.RoleLabTechnician) ||
		claims.HasRole(entity.RoleDoctor)
}

// RequirePermission creates a middleware that requires a specific permission
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, p := range c.GetStringSlice("user_permissions") {
			if p == permission {
				c.Next()
				return
			}
		}

		response.Forbidden(c, "You do not have permission to perform this action")
		c.Abort()
	}
}

// RequireRole creates a middleware that requires any of the given roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, userRole := range c.GetStringSlice("user_roles") {
			for _, requiredRole := range roles {
				if userRole == requiredRole {
					c.Next()
					return
				}
			}
		}

		response.Forbidden(c, "Insufficient role privileges")
		c.Abort()
	}
}
