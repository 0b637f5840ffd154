package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/internal/presentation/http/dto/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// IdempotencyKeyHeader is the HTTP header for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyKeyTTL is how long keys are valid
	IdempotencyKeyTTL = 24 * time.Hour
	// IdempotencyPendingTTL bounds how long a reservation left behind by a
	// crashed request blocks its key
	IdempotencyPendingTTL = 5 * time.Minute

	maxIdempotencyKeyLength = 255
	inProgressMessage       = "A request with this Idempotency-Key is still in progress"
)

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Repo repository.IdempotencyRepository
	// Required rejects POST requests that carry no key
	Required bool
}

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a create or payment request is
// retried with the same Idempotency-Key. Reusing a key for a different
// endpoint or body is a conflict. The key is reserved before the handler
// runs, so a duplicate arriving while the first is in flight gets 409 instead
// of executing twice. Only 2xx responses are stored; any other outcome
// releases the key so the request may be retried with it.
func Idempotency(config IdempotencyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			if config.Required && c.Request.Method == http.MethodPost {
				response.BadRequest(c, "Idempotency-Key header is required for this request")
				c.Abort()
				return
			}
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			response.BadRequest(c, "Idempotency-Key is too long")
			c.Abort()
			return
		}

		userID, ok := c.Get("user_id")
		if !ok {
			c.Next()
			return
		}
		uid, ok := userID.(uuid.UUID)
		if !ok {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.BadRequest(c, "Could not read request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		requestHash := hex.EncodeToString(sum[:])
		endpoint := c.Request.Method + " " + c.FullPath()

		existing, err := config.Repo.GetByKey(c.Request.Context(), key, uid)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if existing != nil && !existing.IsExpired() {
			if !existing.Matches(endpoint, requestHash) {
				response.ErrorWithCode(c, http.StatusConflict, "Idempotency-Key was already used for a different request")
				c.Abort()
				return
			}
			if existing.IsPending() {
				response.ErrorWithCode(c, http.StatusConflict, inProgressMessage)
				c.Abort()
				return
			}
			c.Header("X-Idempotency-Replayed", "true")
			c.Data(existing.ResponseCode, "application/json; charset=utf-8", []byte(existing.ResponseBody))
			c.Abort()
			return
		}

		reservation := &entity.IdempotencyKey{
			Key:         key,
			UserID:      uid,
			Endpoint:    endpoint,
			RequestHash: requestHash,
			ExpiresAt:   time.Now().Add(IdempotencyPendingTTL),
		}
		if err := config.Repo.Reserve(c.Request.Context(), reservation); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				response.ErrorWithCode(c, http.StatusConflict, inProgressMessage)
			} else {
				response.Error(c, err)
			}
			c.Abort()
			return
		}

		blw := &responseWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// the key must be settled even if the client went away
		ctx := context.WithoutCancel(c.Request.Context())
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			if err := config.Repo.Release(ctx, key, uid); err != nil {
				_ = c.Error(err)
			}
			return
		}
		reservation.ResponseCode = status
		reservation.ResponseBody = blw.body.String()
		reservation.ExpiresAt = time.Now().Add(IdempotencyKeyTTL)
		if err := config.Repo.Complete(ctx, reservation); err != nil {
			_ = c.Error(err)
		}
	}
}
