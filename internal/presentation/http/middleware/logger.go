package middleware

import (
	"strconv"
	"time"

	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/diaglab/labdesk-api/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LoggerMiddleware assigns each request an ID, logs it as structured fields
// and records its count and latency.
func LoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		// Route templates keep the label set small
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, endpoint, strconv.Itoa(statusCode), latency.Seconds())

		if raw != "" {
			path = path + "?" + raw
		}

		entry := log.WithRequestID(requestID).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"status":     statusCode,
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if userID, ok := c.Get("user_id"); ok {
			entry = entry.WithField("user_id", userID)
		}

		for _, e := range c.Errors {
			entry.WithError(e.Err).Error("Request error")
		}

		switch {
		case statusCode >= 500:
			entry.Error("Request failed")
		case statusCode >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request completed")
		}
	}
}
