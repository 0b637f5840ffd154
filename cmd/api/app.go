package main

import (
	"github.com/diaglab/labdesk-api/internal/application/service"
	"github.com/diaglab/labdesk-api/internal/config"
	"github.com/diaglab/labdesk-api/internal/domain/identifier"
	domainRepo "github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/diaglab/labdesk-api/internal/infrastructure/repository"
	"github.com/diaglab/labdesk-api/internal/presentation/http/handler"
	"github.com/diaglab/labdesk-api/internal/presentation/http/routes"
	"github.com/diaglab/labdesk-api/pkg/email"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/diaglab/labdesk-api/pkg/oauth"
	"github.com/diaglab/labdesk-api/pkg/printer"
	"github.com/diaglab/labdesk-api/pkg/utils"
	"gorm.io/gorm"
)

// app holds the wired services shared by the CLI commands
type app struct {
	cfg             *config.Config
	log             *logger.Logger
	jwtManager      *utils.JWTManager
	idempotencyRepo domainRepo.IdempotencyRepository

	auth      *service.AuthService
	users     *service.UserService
	patients  *service.PatientService
	staff     *service.StaffService
	catalog   *service.CatalogService
	orders    *service.OrderService
	invoices  *service.InvoiceService
	printer   *service.PrinterService
	dashboard *service.DashboardService
	settings  *service.SettingsService
}

func newApp(cfg *config.Config, db *gorm.DB, log *logger.Logger) *app {
	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.ExpiryHours,
		cfg.JWT.RefreshExpiryHours,
	)

	// Repositories
	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	passwordResetRepo := repository.NewPasswordResetTokenRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	doctorRepo := repository.NewDoctorRepository(db)
	techRepo := repository.NewTechnicianRepository(db)
	categoryRepo := repository.NewTestCategoryRepository(db)
	testRepo := repository.NewLabTestRepository(db)
	packageRepo := repository.NewTestPackageRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	mailer := email.NewMailer(email.Config{
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUsername: cfg.Email.SMTPUsername,
		SMTPPassword: cfg.Email.SMTPPassword,
		FromName:     cfg.Email.FromName,
		FromEmail:    cfg.Email.FromEmail,
		FrontendURL:  cfg.Email.FrontendURL,
		LabName:      cfg.Email.FromName,
	})
	if !mailer.Configured() {
		log.WithComponent("email").Warn("SMTP host not set, e-mail delivery is disabled")
	}

	google := oauth.NewGoogleProvider(oauth.Config{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		RedirectURL:  cfg.OAuth.GoogleRedirectURL,
		SuccessURL:   cfg.OAuth.FrontendSuccessURL,
		ErrorURL:     cfg.OAuth.FrontendErrorURL,
		StateSecret:  cfg.JWT.Secret,
	})

	thermalPrinter, err := printer.New(cfg.Printer.Type, cfg.Printer.USBPath, cfg.Printer.Address)
	if err != nil {
		log.WithComponent("printer").WithError(err).Warn("Failed to initialize printer, receipts will not be printed")
		thermalPrinter = printer.NewNullPrinter()
	}

	// Services
	generator := identifier.NewGenerator(identifier.Widths{
		Order:       cfg.Identifier.OrderWidth,
		Invoice:     cfg.Identifier.InvoiceWidth,
		Patient:     cfg.Identifier.PatientWidth,
		DoctorAdmin: cfg.Identifier.DoctorAdminWidth,
		DoctorSelf:  cfg.Identifier.DoctorSelfWidth,
		Technician:  cfg.Identifier.TechnicianWidth,
	})
	identifiers := service.NewIdentifierService(sequenceRepo, tx, generator, cfg.Identifier.MaxAttempts, log)
	settings := service.NewSettingsService(settingsRepo, cfg.Billing)
	patients := service.NewPatientService(patientRepo, identifiers)
	staff := service.NewStaffService(doctorRepo, techRepo, userRepo, roleRepo, tx, identifiers, log)

	return &app{
		cfg:             cfg,
		log:             log,
		jwtManager:      jwtManager,
		idempotencyRepo: repository.NewIdempotencyRepository(db),

		auth: service.NewAuthService(userRepo, roleRepo, passwordResetRepo, patientRepo, tx,
			patients, staff, jwtManager, mailer, google, log),
		users:    service.NewUserService(userRepo, roleRepo, tx),
		patients: patients,
		staff:    staff,
		catalog:  service.NewCatalogService(categoryRepo, testRepo, packageRepo, tx),
		orders: service.NewOrderService(orderRepo, patientRepo, doctorRepo, techRepo, testRepo, packageRepo,
			tx, identifiers, settings, mailer, log),
		invoices: service.NewInvoiceService(invoiceRepo, orderRepo, patientRepo, testRepo, packageRepo,
			tx, identifiers, settings, mailer, log),
		printer:   service.NewPrinterService(thermalPrinter, invoiceRepo, orderRepo, settings, cfg.Printer.Width, log),
		dashboard: service.NewDashboardService(analyticsRepo, orderRepo, patientRepo),
		settings:  settings,
	}
}

func (a *app) handlers() *routes.Handlers {
	return &routes.Handlers{
		Auth:      handler.NewAuthHandler(a.auth, &a.cfg.OAuth),
		User:      handler.NewUserHandler(a.users),
		Patient:   handler.NewPatientHandler(a.patients),
		Staff:     handler.NewStaffHandler(a.staff),
		Catalog:   handler.NewCatalogHandler(a.catalog),
		Order:     handler.NewOrderHandler(a.orders),
		Invoice:   handler.NewInvoiceHandler(a.invoices),
		Printer:   handler.NewPrinterHandler(a.printer),
		Dashboard: handler.NewDashboardHandler(a.dashboard),
		Settings:  handler.NewSettingsHandler(a.settings),
	}
}
