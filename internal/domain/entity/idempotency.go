package entity

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyKey remembers the response to a create or payment request so a
// retried request with the same key is replayed instead of executed twice.
// A key is reserved with ResponseCode 0 before the request runs.
type IdempotencyKey struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Key          string    `gorm:"size:255;not null;uniqueIndex:idx_idempotency_user_key"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_idempotency_user_key"`
	Endpoint     string    `gorm:"size:255;not null"`
	RequestHash  string    `gorm:"size:64"`
	ResponseCode int       `gorm:"not null"`
	ResponseBody string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	ExpiresAt    time.Time `gorm:"not null;index"`
}

func (IdempotencyKey) TableName() string {
	return "idempotency_keys"
}

// IsExpired checks if the idempotency key has expired
func (i *IdempotencyKey) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// IsPending reports whether the request holding the key has not finished
func (i *IdempotencyKey) IsPending() bool {
	return i.ResponseCode == 0
}

// Matches reports whether a replay is for the same endpoint and body
func (i *IdempotencyKey) Matches(endpoint, requestHash string) bool {
	return i.Endpoint == endpoint && (i.RequestHash == "" || i.RequestHash == requestHash)
}
