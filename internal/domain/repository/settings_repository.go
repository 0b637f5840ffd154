package repository

import (
	"context"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
)

// SettingsRepository reads and writes the single lab settings row
type SettingsRepository interface {
	// Get returns nil when the row has not been created yet
	Get(ctx context.Context) (*entity.LabSettings, error)
	Save(ctx context.Context, settings *entity.LabSettings) error
}
