package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/diaglab/labdesk-api/internal/application/service"
	"github.com/diaglab/labdesk-api/internal/config"
	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/request"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/response"
	"github.com/diaglab/labdesk-api/pkg/oauth"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
	oauthCfg    *config.OAuthConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, oauthCfg *config.OAuthConfig) *AuthHandler {
	return &AuthHandler{authService: authService, oauthCfg: oauthCfg}
}

func userPayload(user *entity.User) gin.H {
	return gin.H{
		"id":          user.ID,
		"first_name":  user.FirstName,
		"last_name":   user.LastName,
		"email":       user.Email,
		"phone":       user.Phone,
		"photo":       user.Photo,
		"is_active":   user.IsActive,
		"roles":       user.RoleNames(),
		"permissions": user.GetPermissions(),
	}
}

func tokenPayload(output *service.LoginOutput) gin.H {
	body := gin.H{
		"user":          userPayload(output.User),
		"access_token":  output.AccessToken,
		"refresh_token": output.RefreshToken,
		"token_type":    "Bearer",
		"expires_in":    output.ExpiresIn,
	}
	if output.Patient != nil {
		body["patient"] = output.Patient
	}
	return body
}

// Login handles user login
// @Summary Login
// @Description Authenticate user and return tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.LoginRequest true "Login credentials"
// @Success 200 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req request.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	output, err := h.authService.Login(c.Request.Context(), &service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Login successful", tokenPayload(output))
}

// RegisterPatient handles patient self-registration
// @Summary Register patient
// @Description Create a patient account and sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.RegisterPatientRequest true "Registration data"
// @Success 201 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Router /auth/register [post]
func (h *AuthHandler) RegisterPatient(c *gin.Context) {
	var req request.RegisterPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	dob, err := optionalDate("date_of_birth", req.DateOfBirth)
	if err != nil {
		response.Error(c, err)
		return
	}

	output, err := h.authService.RegisterPatient(c.Request.Context(), &service.RegisterPatientInput{
		AccountInput: accountInput(req.FirstName, req.LastName, req.Email, req.Phone, req.Password),
		Gender:      req.Gender,
		DateOfBirth: dob,
		Address:     req.Address,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Registration successful", tokenPayload(output))
}

// RegisterDoctor handles doctor self-registration
// @Summary Register doctor
// @Description Create a doctor account awaiting admin approval
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.RegisterDoctorRequest true "Registration data"
// @Success 201 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Router /auth/register/doctor [post]
func (h *AuthHandler) RegisterDoctor(c *gin.Context) {
	var req request.RegisterDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	doctor, err := h.authService.RegisterDoctor(c.Request.Context(), &service.RegisterDoctorInput{
		AccountInput: accountInput(req.FirstName, req.LastName, req.Email, req.Phone, req.Password),
		DoctorInput: service.DoctorInput{
			Specialization:  req.Specialization,
			LicenseNumber:   req.LicenseNumber,
			Qualification:   req.Qualification,
			ConsultationFee: req.ConsultationFee,
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Registration received. Your account will be reviewed by an administrator", gin.H{
		"doctor": doctor,
	})
}

func accountInput(firstName, lastName, email, phone, password string) service.AccountInput {
	return service.AccountInput{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     phone,
		Password:  password,
	}
}

// RefreshToken handles token refresh
// @Summary Refresh Token
// @Description Refresh access token using refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req request.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	output, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Token refreshed successfully", tokenPayload(output))
}

// Logout handles user logout
// @Summary Logout
// @Description Logout user (client should discard tokens)
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} response.APIResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	// JWT is stateless, so the client discards the tokens
	response.OK(c, "Logged out successfully", nil)
}

// GetProfile handles fetching current user profile
// @Summary Get Profile
// @Description Get current user's profile
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := userPayload(user)
	payload["created_at"] = user.CreatedAt
	payload["last_login_at"] = user.LastLoginAt
	response.OK(c, "Profile retrieved successfully", gin.H{"user": payload})
}

// UpdateProfile handles updating user profile
// @Summary Update Profile
// @Description Update current user's profile
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req request.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), &service.UpdateProfileInput{
		UserID:    userID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Photo:     req.Photo,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Profile updated successfully", gin.H{"user": userPayload(user)})
}

// ChangePassword handles password change
// @Summary Change Password
// @Description Change current user's password
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body request.ChangePasswordRequest true "Password change data"
// @Success 200 {object} response.APIResponse
// @Failure 422 {object} response.APIResponse
// @Router /profile/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req request.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	err := h.authService.ChangePassword(c.Request.Context(), &service.ChangePasswordInput{
		UserID:          userID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Password changed successfully", nil)
}

// ForgotPassword handles forgot password request
// @Summary Forgot Password
// @Description Send password reset email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.ForgotPasswordRequest true "Forgot password request"
// @Success 200 {object} response.APIResponse
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req request.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	// Same answer whether or not the address exists
	response.OK(c, "If the email exists, a reset link has been sent", nil)
}

// ResetPassword handles password reset
// @Summary Reset Password
// @Description Reset password using token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.ResetPasswordRequest true "Reset password request"
// @Success 200 {object} response.APIResponse
// @Failure 400 {object} response.APIResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req request.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	err := h.authService.ResetPassword(c.Request.Context(), &service.ResetPasswordInput{
		Email:       req.Email,
		Token:       req.Token,
		NewPassword: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Password reset successfully", nil)
}

// GoogleLogin redirects to the Google consent page
// @Summary Google sign-in
// @Tags auth
// @Success 307
// @Router /auth/google [get]
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	authURL, _, err := h.authService.GoogleAuthURL()
	if err != nil {
		if errors.Is(err, oauth.ErrOAuthNotConfigured) {
			response.ErrorWithCode(c, http.StatusServiceUnavailable, "Google sign-in is not configured")
			return
		}
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// GoogleCallback finishes Google sign-in and hands the tokens to the
// frontend. Without a frontend URL the tokens are returned as JSON.
// @Summary Google sign-in callback
// @Tags auth
// @Router /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	output, err := h.authService.GoogleCallback(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		if h.oauthCfg != nil && h.oauthCfg.FrontendErrorURL != "" {
			c.Redirect(http.StatusTemporaryRedirect, withQuery(h.oauthCfg.FrontendErrorURL, url.Values{
				"error": {err.Error()},
			}))
			return
		}
		response.Error(c, err)
		return
	}

	if h.oauthCfg != nil && h.oauthCfg.FrontendSuccessURL != "" {
		c.Redirect(http.StatusTemporaryRedirect, withQuery(h.oauthCfg.FrontendSuccessURL, url.Values{
			"access_token":  {output.AccessToken},
			"refresh_token": {output.RefreshToken},
			"expires_in":    {strconv.FormatInt(output.ExpiresIn, 10)},
		}))
		return
	}
	response.OK(c, "Login successful", tokenPayload(output))
}

func withQuery(base string, values url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for k, v := range values {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String()
}
