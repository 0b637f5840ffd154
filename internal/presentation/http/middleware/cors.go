package middleware

import (
	"time"

	"github.com/diaglab/labdesk-api/internal/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	defaultAllowedHeaders = []string{
		"Accept",
		"Authorization",
		"Content-Type",
		"Origin",
		"X-Request-ID",
		IdempotencyKeyHeader,
	}
	exposedHeaders = []string{
		"Content-Length",
		"Content-Type",
		"X-Request-ID",
		"X-RateLimit-Limit",
		"X-RateLimit-Remaining",
		"Retry-After",
		"X-Idempotency-Replayed",
	}
)

// CORSConfig builds the gin-contrib/cors settings from the app config
func CORSConfig(cfg *config.CORSConfig) cors.Config {
	corsConfig := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     cfg.AllowedMethods,
		AllowHeaders:     cfg.AllowedHeaders,
		ExposeHeaders:    exposedHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}
	if len(corsConfig.AllowMethods) == 0 {
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(corsConfig.AllowHeaders) == 0 {
		corsConfig.AllowHeaders = defaultAllowedHeaders
	} else {
		// Clients must always be able to send these
		corsConfig.AllowHeaders = appendMissing(corsConfig.AllowHeaders, "Authorization", IdempotencyKeyHeader)
	}
	return corsConfig
}

// CORSMiddleware creates a CORS middleware with the provided configuration
func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	return cors.New(CORSConfig(cfg))
}

func appendMissing(list []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, h := range list {
			if h == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}
