package config

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	Log        LogConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Identifier IdentifierConfig
	Billing    BillingConfig
	Email      EmailConfig
	OAuth      OAuthConfig
	Printer    PrinterConfig
	Admin      AdminConfig
}

type AppConfig struct {
	Name            string
	Env             string
	Port            string
	Debug           bool
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Timezone string
	MaxIdle  int
	MaxOpen  int
	LogSQL   bool
}

type JWTConfig struct {
	Secret             string
	ExpiryHours        time.Duration
	RefreshExpiryHours time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

// IdentifierConfig holds the zero-pad widths of the human-readable codes.
// Doctors created by an admin and self-registered doctors historically used
// different widths, so both are configurable.
type IdentifierConfig struct {
	OrderWidth       int
	InvoiceWidth     int
	PatientWidth     int
	DoctorAdminWidth int
	DoctorSelfWidth  int
	TechnicianWidth  int
	MaxAttempts      int
}

type BillingConfig struct {
	InvoiceDueDays       int
	DefaultTaxPercentage float64
	Currency             string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName     string
	FromEmail    string
	FrontendURL  string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	FrontendSuccessURL string
	FrontendErrorURL   string
}

type PrinterConfig struct {
	Type    string
	USBPath string
	Address string
	// Width is the paper width in characters
	Width int
}

type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logrus.WithError(err).Warn(".env file not found, using environment variables")
	}

	viper.SetDefault("APP_NAME", "labdesk-api")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("APP_SHUTDOWN_TIMEOUT_SECONDS", 15)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "labdesk")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "UTC")
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_MAX_OPEN_CONNS", 100)
	viper.SetDefault("DB_LOG_SQL", false)
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("JWT_REFRESH_EXPIRY_HOURS", 168)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("IDENTIFIER_ORDER_WIDTH", 4)
	viper.SetDefault("IDENTIFIER_INVOICE_WIDTH", 4)
	viper.SetDefault("IDENTIFIER_PATIENT_WIDTH", 6)
	viper.SetDefault("IDENTIFIER_DOCTOR_ADMIN_WIDTH", 4)
	viper.SetDefault("IDENTIFIER_DOCTOR_SELF_WIDTH", 6)
	viper.SetDefault("IDENTIFIER_TECHNICIAN_WIDTH", 6)
	viper.SetDefault("IDENTIFIER_MAX_ATTEMPTS", 3)
	viper.SetDefault("INVOICE_DUE_DAYS", 30)
	viper.SetDefault("DEFAULT_TAX_PERCENTAGE", 0)
	viper.SetDefault("CURRENCY", "USD")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("MAIL_FROM_NAME", "LabDesk")
	viper.SetDefault("FRONTEND_URL", "http://localhost:3000")
	viper.SetDefault("PRINTER_TYPE", "none")
	viper.SetDefault("PRINTER_USB_PATH", "/dev/usb/lp0")
	viper.SetDefault("PRINTER_WIDTH", 48)

	return &Config{
		App: AppConfig{
			Name:            viper.GetString("APP_NAME"),
			Env:             viper.GetString("APP_ENV"),
			Port:            viper.GetString("APP_PORT"),
			Debug:           viper.GetBool("APP_DEBUG"),
			ShutdownTimeout: time.Duration(viper.GetInt("APP_SHUTDOWN_TIMEOUT_SECONDS")) * time.Second,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
			Timezone: viper.GetString("DB_TIMEZONE"),
			MaxIdle:  viper.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpen:  viper.GetInt("DB_MAX_OPEN_CONNS"),
			LogSQL:   viper.GetBool("DB_LOG_SQL"),
		},
		JWT: JWTConfig{
			Secret:             viper.GetString("JWT_SECRET"),
			ExpiryHours:        time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
			RefreshExpiryHours: time.Duration(viper.GetInt("JWT_REFRESH_EXPIRY_HOURS")) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Identifier: IdentifierConfig{
			OrderWidth:       viper.GetInt("IDENTIFIER_ORDER_WIDTH"),
			InvoiceWidth:     viper.GetInt("IDENTIFIER_INVOICE_WIDTH"),
			PatientWidth:     viper.GetInt("IDENTIFIER_PATIENT_WIDTH"),
			DoctorAdminWidth: viper.GetInt("IDENTIFIER_DOCTOR_ADMIN_WIDTH"),
			DoctorSelfWidth:  viper.GetInt("IDENTIFIER_DOCTOR_SELF_WIDTH"),
			TechnicianWidth:  viper.GetInt("IDENTIFIER_TECHNICIAN_WIDTH"),
			MaxAttempts:      viper.GetInt("IDENTIFIER_MAX_ATTEMPTS"),
		},
		Billing: BillingConfig{
			InvoiceDueDays:       viper.GetInt("INVOICE_DUE_DAYS"),
			DefaultTaxPercentage: viper.GetFloat64("DEFAULT_TAX_PERCENTAGE"),
			Currency:             viper.GetString("CURRENCY"),
		},
		Email: EmailConfig{
			SMTPHost:     viper.GetString("SMTP_HOST"),
			SMTPPort:     viper.GetInt("SMTP_PORT"),
			SMTPUsername: viper.GetString("SMTP_USERNAME"),
			SMTPPassword: viper.GetString("SMTP_PASSWORD"),
			FromName:     viper.GetString("MAIL_FROM_NAME"),
			FromEmail:    viper.GetString("MAIL_FROM_ADDRESS"),
			FrontendURL:  viper.GetString("FRONTEND_URL"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     viper.GetString("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: viper.GetString("GOOGLE_CLIENT_SECRET"),
			GoogleRedirectURL:  viper.GetString("GOOGLE_REDIRECT_URL"),
			FrontendSuccessURL: viper.GetString("OAUTH_SUCCESS_URL"),
			FrontendErrorURL:   viper.GetString("OAUTH_ERROR_URL"),
		},
		Printer: PrinterConfig{
			Type:    viper.GetString("PRINTER_TYPE"),
			USBPath: viper.GetString("PRINTER_USB_PATH"),
			Address: viper.GetString("PRINTER_ADDRESS"),
			Width:   viper.GetInt("PRINTER_WIDTH"),
		},
		Admin: AdminConfig{
			Email:    viper.GetString("ADMIN_EMAIL"),
			Password: viper.GetString("ADMIN_PASSWORD"),
			Name:     viper.GetString("ADMIN_NAME"),
		},
	}
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}
