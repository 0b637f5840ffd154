package service

import (
	"context"
	"strings"

	"github.com/diaglab/labdesk-api/internal/config"
	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/pkg/apperror"
	"github.com/shopspring/decimal"
)

// SettingsService handles the lab-wide settings
type SettingsService struct {
	settingsRepo repository.SettingsRepository
	defaults     config.BillingConfig
}

// NewSettingsService creates a new settings service. defaults fill in a
// missing settings row.
func NewSettingsService(settingsRepo repository.SettingsRepository, defaults config.BillingConfig) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		defaults:     defaults,
	}
}

// GetSettings returns the stored settings, or the configured defaults when
// nothing has been saved yet
func (s *SettingsService) GetSettings(ctx context.Context) (*entity.LabSettings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = &entity.LabSettings{
			ID:                        1,
			LabName:                   "LabDesk Diagnostics",
			Currency:                  s.defaults.Currency,
			DefaultTaxPercentage:      decimal.NewFromFloat(s.defaults.DefaultTaxPercentage),
			InvoiceDueDays:            s.defaults.InvoiceDueDays,
			ReceiptFooter:             "Thank you for choosing us",
			ResultEmailNotifications:  true,
			InvoiceEmailNotifications: true,
		}
	}
	if settings.InvoiceDueDays <= 0 {
		settings.InvoiceDueDays = s.defaults.InvoiceDueDays
	}
	return settings, nil
}

// UpdateSettingsInput represents the input for updating settings. Nil fields
// are left unchanged.
type UpdateSettingsInput struct {
	LabName                   *string
	Address                   *string
	Phone                     *string
	Email                     *string
	TaxID                     *string
	Currency                  *string
	DefaultTaxPercentage      *decimal.Decimal
	InvoiceDueDays            *int
	ReceiptFooter             *string
	ResultEmailNotifications  *bool
	InvoiceEmailNotifications *bool
}

// UpdateSettings updates the lab settings
func (s *SettingsService) UpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*entity.LabSettings, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	var fieldErrors []apperror.FieldError
	if input.LabName != nil {
		if strings.TrimSpace(*input.LabName) == "" {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: "lab_name", Message: "must not be empty"})
		}
		settings.LabName = strings.TrimSpace(*input.LabName)
	}
	if input.DefaultTaxPercentage != nil {
		if input.DefaultTaxPercentage.IsNegative() || input.DefaultTaxPercentage.GreaterThan(decimal.NewFromInt(100)) {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: "default_tax_percentage", Message: "must be between 0 and 100"})
		}
		settings.DefaultTaxPercentage = *input.DefaultTaxPercentage
	}
	if input.InvoiceDueDays != nil {
		if *input.InvoiceDueDays < 1 || *input.InvoiceDueDays > 365 {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: "invoice_due_days", Message: "must be between 1 and 365"})
		}
		settings.InvoiceDueDays = *input.InvoiceDueDays
	}
	if len(fieldErrors) > 0 {
		return nil, apperror.NewValidationError(fieldErrors)
	}

	if input.Address != nil {
		settings.Address = *input.Address
	}
	if input.Phone != nil {
		settings.Phone = *input.Phone
	}
	if input.Email != nil {
		settings.Email = *input.Email
	}
	if input.TaxID != nil {
		settings.TaxID = *input.TaxID
	}
	if input.Currency != nil {
		settings.Currency = strings.ToUpper(*input.Currency)
	}
	if input.ReceiptFooter != nil {
		settings.ReceiptFooter = *input.ReceiptFooter
	}
	if input.ResultEmailNotifications != nil {
		settings.ResultEmailNotifications = *input.ResultEmailNotifications
	}
	if input.InvoiceEmailNotifications != nil {
		settings.InvoiceEmailNotifications = *input.InvoiceEmailNotifications
	}

	if err := s.settingsRepo.Save(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
