package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	domainRepo "github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type passwordResetTokenRepository struct {
	db *gorm.DB
}

// NewPasswordResetTokenRepository creates a new password reset token repository
func NewPasswordResetTokenRepository(db *gorm.DB) domainRepo.PasswordResetTokenRepository {
	return &passwordResetTokenRepository{db: db}
}

func (r *passwordResetTokenRepository) Create(ctx context.Context, token *entity.PasswordResetToken) error {
	return conn(ctx, r.db).Create(token).Error
}

func (r *passwordResetTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*entity.PasswordResetToken, error) {
	var token entity.PasswordResetToken
	err := conn(ctx, r.db).Where("token_hash = ?", tokenHash).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &token, err
}

func (r *passwordResetTokenRepository) MarkAsUsed(ctx context.Context, id uuid.UUID) error {
	return conn(ctx, r.db).
		Model(&entity.PasswordResetToken{}).
		Where("id = ?", id).
		Update("used", true).Error
}

func (r *passwordResetTokenRepository) DeleteByEmail(ctx context.Context, email string) error {
	return conn(ctx, r.db).
		Where("email = ?", email).
		Delete(&entity.PasswordResetToken{}).Error
}

func (r *passwordResetTokenRepository) DeleteExpired(ctx context.Context) error {
	return conn(ctx, r.db).
		Where("expires_at < ? OR used = ?", time.Now(), true).
		Delete(&entity.PasswordResetToken{}).Error
}
