package repository

import (
	"context"
	"errors"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	domainRepo "github.com/diaglab/labdesk-api/internal/domain/repository"
	"gorm.io/gorm"
)

const labSettingsID = 1

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *gorm.DB) domainRepo.SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context) (*entity.LabSettings, error) {
	var settings entity.LabSettings
	err := conn(ctx, r.db).First(&settings, labSettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &settings, err
}

// Save upserts the singleton row
func (r *settingsRepository) Save(ctx context.Context, settings *entity.LabSettings) error {
	settings.ID = labSettingsID
	return conn(ctx, r.db).Save(settings).Error
}
