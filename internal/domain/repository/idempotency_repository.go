package repository

import (
	"context"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/google/uuid"
)

// IdempotencyRepository stores responses of create/payment requests keyed by
// the client's Idempotency-Key header.
type IdempotencyRepository interface {
	GetByKey(ctx context.Context, key string, userID uuid.UUID) (*entity.IdempotencyKey, error)
	// Reserve inserts a pending key, replacing an expired one. It returns
	// ErrDuplicateKey while another live request holds the key.
	Reserve(ctx context.Context, ikey *entity.IdempotencyKey) error
	// Complete stores the response of a reserved key
	Complete(ctx context.Context, ikey *entity.IdempotencyKey) error
	// Release drops a pending reservation so the request may be retried
	Release(ctx context.Context, key string, userID uuid.UUID) error
	// DeleteExpired removes expired keys and reports how many went
	DeleteExpired(ctx context.Context) (int64, error)
}
