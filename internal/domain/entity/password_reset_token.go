package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PasswordResetToken is a one-time reset credential. Only the SHA-256 of the
// token e-mailed to the user is stored.
type PasswordResetToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Email     string    `gorm:"size:255;not null;index" json:"email"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPasswordResetToken returns the raw token to send and the record to store
func NewPasswordResetToken(email string, ttl time.Duration) (string, *PasswordResetToken) {
	raw := uuid.NewString() + uuid.NewString()
	return raw, &PasswordResetToken{
		Email:     email,
		TokenHash: HashResetToken(raw),
		ExpiresAt: time.Now().Add(ttl),
	}
}

// HashResetToken is the lookup key for a raw token
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (t *PasswordResetToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

// IsValid checks the token is neither expired nor used
func (t *PasswordResetToken) IsValid() bool {
	return !t.Used && time.Now().Before(t.ExpiresAt)
}
