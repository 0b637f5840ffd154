package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diaglab/labdesk-api/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterConfigFrom(t *testing.T) {
	cfg := RateLimiterConfigFrom(config.RateLimitConfig{Requests: 120, Duration: 60})
	assert.InDelta(t, 2.0, cfg.RequestsPerSecond, 0.0001)
	assert.Equal(t, 120, cfg.BurstSize)

	assert.Equal(t, DefaultRateLimiterConfig(), RateLimiterConfigFrom(config.RateLimitConfig{}))
}

func TestUserRateLimiter_RejectsOverBurst(t *testing.T) {
	rl := NewUserRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstSize:         2,
		CleanupInterval:   time.Hour,
		EntryTTL:          time.Hour,
	})
	defer rl.Stop()

	userA, userB := uuid.New(), uuid.New()
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if c.Query("u") == "b" {
			c.Set("user_id", userB)
		} else {
			c.Set("user_id", userA)
		}
	}, rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(u string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x?u="+u, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, call("a").Code)
	assert.Equal(t, http.StatusOK, call("a").Code)
	rejected := call("a")
	assert.Equal(t, http.StatusTooManyRequests, rejected.Code)
	assert.Equal(t, "0", rejected.Header().Get("X-RateLimit-Remaining"))

	// Buckets are per user
	assert.Equal(t, http.StatusOK, call("b").Code)
	assert.Equal(t, 2, rl.Size())
}

func TestUserRateLimiter_Cleanup(t *testing.T) {
	rl := NewUserRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 1,
		BurstSize:         1,
		CleanupInterval:   time.Hour,
		EntryTTL:          time.Minute,
	})
	defer rl.Stop()

	rl.getLimiter("ip:10.0.0.1")
	rl.cleanup(time.Now())
	assert.Equal(t, 1, rl.Size())

	rl.cleanup(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, rl.Size())
}
