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

type idempotencyRepository struct {
	db *gorm.DB
}

// NewIdempotencyRepository creates a new idempotency repository
func NewIdempotencyRepository(db *gorm.DB) domainRepo.IdempotencyRepository {
	return &idempotencyRepository{db: db}
}

func (r *idempotencyRepository) GetByKey(ctx context.Context, key string, userID uuid.UUID) (*entity.IdempotencyKey, error) {
	var ikey entity.IdempotencyKey
	err := conn(ctx, r.db).
		Where("key = ? AND user_id = ?", key, userID).
		First(&ikey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ikey, err
}

// Reserve relies on idx_idempotency_user_key: of two requests racing on one
// key, the second insert fails.
func (r *idempotencyRepository) Reserve(ctx context.Context, ikey *entity.IdempotencyKey) error {
	db := conn(ctx, r.db)
	err := db.Where("key = ? AND user_id = ? AND expires_at < ?", ikey.Key, ikey.UserID, time.Now()).
		Delete(&entity.IdempotencyKey{}).Error
	if err != nil {
		return err
	}
	return translate(db.Create(ikey).Error)
}

func (r *idempotencyRepository) Complete(ctx context.Context, ikey *entity.IdempotencyKey) error {
	return conn(ctx, r.db).Model(&entity.IdempotencyKey{}).
		Where("key = ? AND user_id = ?", ikey.Key, ikey.UserID).
		Updates(map[string]interface{}{
			"response_code": ikey.ResponseCode,
			"response_body": ikey.ResponseBody,
			"expires_at":    ikey.ExpiresAt,
		}).Error
}

func (r *idempotencyRepository) Release(ctx context.Context, key string, userID uuid.UUID) error {
	return conn(ctx, r.db).
		Where("key = ? AND user_id = ? AND response_code = 0", key, userID).
		Delete(&entity.IdempotencyKey{}).Error
}

func (r *idempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res := conn(ctx, r.db).
		Where("expires_at < ?", time.Now()).
		Delete(&entity.IdempotencyKey{})
	return res.RowsAffected, res.Error
}
