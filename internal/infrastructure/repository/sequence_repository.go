package repository

import (
	"context"
	"time"

	domainRepo "github.com/diaglab/labdesk-api/internal/domain/repository"
	"gorm.io/gorm"
)

type sequenceRepository struct {
	db *gorm.DB
}

// NewSequenceRepository creates a sequence repository over the sequences table
func NewSequenceRepository(db *gorm.DB) domainRepo.SequenceRepository {
	return &sequenceRepository{db: db}
}

// Next is a single upsert statement, so two callers can never read the same value
func (r *sequenceRepository) Next(ctx context.Context, scope string) (int64, error) {
	var value int64
	err := conn(ctx, r.db).Raw(
		`INSERT INTO sequences (scope, value, updated_at) VALUES (?, 1, ?)
		ON CONFLICT (scope) DO UPDATE SET value = sequences.value + 1, updated_at = EXCLUDED.updated_at
		RETURNING value`,
		scope, time.Now(),
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}
