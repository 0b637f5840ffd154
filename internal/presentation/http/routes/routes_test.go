package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diaglab/labdesk-api/internal/config"
	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/presentation/http/middleware"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/diaglab/labdesk-api/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *utils.JWTManager) {
	gin.SetMode(gin.TestMode)

	jwt := utils.NewJWTManager("routes-secret", time.Hour, 24*time.Hour)
	limiter := middleware.NewUserRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(limiter.Stop)

	cfg := &config.Config{App: config.AppConfig{Name: "labdesk-api"}}
	router := Setup(&Handlers{}, &Deps{
		JWTManager:  jwt,
		Cfg:         cfg,
		Log:         logger.Discard(),
		RateLimiter: limiter,
	})
	return router, jwt
}

func serve(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSetup_HealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t)

	health := serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, health.Code)
	assert.Contains(t, health.Body.String(), "labdesk-api")

	metrics := serve(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "http_requests_total")
}

func TestSetup_ProtectedRoutesNeedToken(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{"/api/v1/orders", "/api/v1/invoices", "/api/v1/users", "/api/v1/auth/me"} {
		assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, path, "").Code, path)
	}
}

func TestSetup_PermissionsGateRoutes(t *testing.T) {
	r, jwt := newTestRouter(t)
	patientID := uuid.New()
	token, err := jwt.GenerateAccessToken(uuid.New(), "p@lab.test",
		[]string{entity.RolePatient}, []string{entity.PermViewOrders}, &patientID)
	require.NoError(t, err)

	forbidden := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/users"},
		{http.MethodGet, "/api/v1/patients"},
		{http.MethodPost, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/orders/worklist"},
		{http.MethodPost, "/api/v1/printer/test"},
		{http.MethodGet, "/api/v1/dashboard/stats"},
		{http.MethodPut, "/api/v1/settings"},
		{http.MethodGet, "/api/v1/doctors"},
	}
	for _, tt := range forbidden {
		assert.Equal(t, http.StatusForbidden, serve(r, tt.method, tt.path, token).Code, tt.method+" "+tt.path)
	}
}
