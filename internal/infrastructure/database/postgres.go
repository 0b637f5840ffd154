package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diaglab/labdesk-api/internal/config"
	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/pkg/logger"
	"github.com/diaglab/labdesk-api/pkg/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg *config.DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if cfg.LogSQL {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)

	log.WithFields(logrus.Fields{"host": cfg.Host, "database": cfg.Name}).
		Info("Successfully connected to PostgreSQL database")
	return db, nil
}

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB, log *logger.Logger) error {
	log.Info("Running database migrations...")

	err := db.AutoMigrate(
		// Accounts
		&entity.User{},
		&entity.Role{},
		&entity.Permission{},
		&entity.PasswordResetToken{},

		// People
		&entity.Patient{},
		&entity.Doctor{},
		&entity.LabTechnician{},

		// Catalog
		&entity.TestCategory{},
		&entity.LabTest{},
		&entity.TestPackage{},

		// Transactions
		&entity.Order{},
		&entity.OrderItem{},
		&entity.Invoice{},
		&entity.InvoiceLineItem{},
		&entity.Payment{},

		// System
		&entity.Sequence{},
		&entity.IdempotencyKey{},
		&entity.LabSettings{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := rebuildPartialIndexes(db, log); err != nil {
		return fmt.Errorf("failed to rebuild partial indexes: %w", err)
	}

	log.Info("Database migrations completed successfully")
	return nil
}

// partialUniqueIndexes ignore soft-deleted rows. AutoMigrate never alters an
// index that already exists, so schemas created before these became partial
// are rebuilt here.
var partialUniqueIndexes = []struct {
	model interface{}
	name  string
}{
	{&entity.Invoice{}, "idx_invoices_order_id"},
	{&entity.Doctor{}, "idx_doctors_license_number"},
}

func rebuildPartialIndexes(db *gorm.DB, log *logger.Logger) error {
	for _, idx := range partialUniqueIndexes {
		var def string
		if err := db.Raw("SELECT indexdef FROM pg_indexes WHERE indexname = ?", idx.name).
			Scan(&def).Error; err != nil {
			return err
		}
		if def == "" || strings.Contains(def, " WHERE ") {
			continue
		}

		m := db.Migrator()
		if err := m.DropIndex(idx.model, idx.name); err != nil {
			return err
		}
		if err := m.CreateIndex(idx.model, idx.name); err != nil {
			return err
		}
		log.WithField("index", idx.name).Info("Rebuilt unique index as partial")
	}
	return nil
}

// RolePermissions is the default permission set of each role
var RolePermissions = map[string][]string{
	entity.RoleAdmin: {
		entity.PermViewDashboard, entity.PermManageUsers, entity.PermManagePatients,
		entity.PermManageDoctors, entity.PermManageCatalog, entity.PermCreateOrders,
		entity.PermViewOrders, entity.PermProcessSamples, entity.PermEnterResults,
		entity.PermVerifyResults, entity.PermManageInvoices, entity.PermRecordPayments,
		entity.PermPrintReceipts, entity.PermViewReports, entity.PermManageSettings,
	},
	entity.RoleReceptionist: {
		entity.PermViewDashboard, entity.PermManagePatients, entity.PermCreateOrders,
		entity.PermViewOrders, entity.PermManageInvoices, entity.PermRecordPayments,
		entity.PermPrintReceipts,
	},
	entity.RoleLabTechnician: {
		entity.PermViewDashboard, entity.PermViewOrders, entity.PermProcessSamples,
		entity.PermEnterResults,
	},
	entity.RoleDoctor: {
		entity.PermViewDashboard, entity.PermViewOrders, entity.PermVerifyResults,
	},
	entity.RolePatient: {
		entity.PermViewOrders,
	},
}

var roleDescriptions = map[string]string{
	entity.RoleAdmin:         "Full access to the lab",
	entity.RoleReceptionist:  "Registers patients, books orders and takes payments",
	entity.RoleLabTechnician: "Processes samples and enters results",
	entity.RoleDoctor:        "Refers patients and verifies results",
	entity.RolePatient:       "Views own orders, results and invoices",
}

// SeedDefaultData seeds roles, permissions, the admin account, lab settings
// and a starter test catalog. It is safe to run repeatedly.
func SeedDefaultData(db *gorm.DB, cfg *config.Config, log *logger.Logger) error {
	log.Info("Seeding default data...")

	perms := make(map[string]entity.Permission)
	for _, names := range RolePermissions {
		for _, name := range names {
			if _, ok := perms[name]; ok {
				continue
			}
			p := entity.Permission{Name: name}
			if err := db.Where(entity.Permission{Name: name}).FirstOrCreate(&p).Error; err != nil {
				return fmt.Errorf("seed permission %s: %w", name, err)
			}
			perms[name] = p
		}
	}

	for roleName, names := range RolePermissions {
		role := entity.Role{Name: roleName}
		if err := db.Where(entity.Role{Name: roleName}).
			Attrs(entity.Role{Description: roleDescriptions[roleName]}).
			FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", roleName, err)
		}
		rolePerms := make([]entity.Permission, 0, len(names))
		for _, name := range names {
			rolePerms = append(rolePerms, perms[name])
		}
		if err := db.Model(&role).Association("Permissions").Replace(rolePerms); err != nil {
			return fmt.Errorf("seed permissions of %s: %w", roleName, err)
		}
	}

	if err := seedAdmin(db, cfg.Admin, log); err != nil {
		return err
	}

	settings := entity.LabSettings{ID: 1}
	if err := db.Where(entity.LabSettings{ID: 1}).
		Attrs(entity.LabSettings{
			Currency:             cfg.Billing.Currency,
			DefaultTaxPercentage: decimal.NewFromFloat(cfg.Billing.DefaultTaxPercentage),
			InvoiceDueDays:       cfg.Billing.InvoiceDueDays,
		}).
		FirstOrCreate(&settings).Error; err != nil {
		return fmt.Errorf("seed lab settings: %w", err)
	}

	if err := seedCatalog(db, log); err != nil {
		return err
	}

	log.Info("Default data seeding completed")
	return nil
}

func seedAdmin(db *gorm.DB, admin config.AdminConfig, log *logger.Logger) error {
	if admin.Email == "" || admin.Password == "" {
		log.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin account")
		return nil
	}

	var existing entity.User
	err := db.Where("LOWER(email) = LOWER(?)", admin.Email).First(&existing).Error
	if err == nil {
		log.WithField("email", admin.Email).Info("Admin user already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := utils.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	var role entity.Role
	if err := db.Where("name = ?", entity.RoleAdmin).First(&role).Error; err != nil {
		return fmt.Errorf("load admin role: %w", err)
	}

	name := admin.Name
	if name == "" {
		name = "Lab Admin"
	}
	firstName, lastName, _ := strings.Cut(name, " ")

	user := entity.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     strings.ToLower(admin.Email),
		Password:  hashed,
		IsActive:  true,
		Roles:     []entity.Role{role},
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	log.WithField("email", user.Email).Info("Admin user created")
	return nil
}

type seedTest struct {
	code, name, category, sample, unit, normal, price string
}

var starterTests = []seedTest{
	{"CBC", "Complete Blood Count", "Haematology", "Whole blood", "", "See report", "25.00"},
	{"ESR", "Erythrocyte Sedimentation Rate", "Haematology", "Whole blood", "mm/hr", "0-20", "8.00"},
	{"FBS", "Fasting Blood Sugar", "Biochemistry", "Plasma", "mg/dL", "70-100", "10.00"},
	{"LIPID", "Lipid Profile", "Biochemistry", "Serum", "", "See report", "35.00"},
	{"LFT", "Liver Function Test", "Biochemistry", "Serum", "", "See report", "30.00"},
	{"UA", "Urinalysis", "Clinical Pathology", "Urine", "", "See report", "12.00"},
}

// seedCatalog adds the starter tests and a basic checkup package when the
// catalog is empty
func seedCatalog(db *gorm.DB, log *logger.Logger) error {
	var count int64
	if err := db.Model(&entity.LabTest{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		categories := make(map[string]*entity.TestCategory)
		tests := make(map[string]entity.LabTest)

		for _, st := range starterTests {
			cat, ok := categories[st.category]
			if !ok {
				cat = &entity.TestCategory{Name: st.category}
				if err := tx.Where(entity.TestCategory{Name: st.category}).FirstOrCreate(cat).Error; err != nil {
					return err
				}
				categories[st.category] = cat
			}

			test := entity.LabTest{
				CategoryID:      &cat.ID,
				Code:            st.code,
				Name:            st.name,
				Price:           decimal.RequireFromString(st.price),
				SampleType:      st.sample,
				Unit:            st.unit,
				NormalRange:     st.normal,
				TurnaroundHours: 24,
				IsActive:        true,
			}
			if err := tx.Create(&test).Error; err != nil {
				return err
			}
			tests[st.code] = test
		}

		pkg := entity.TestPackage{
			Name:     "Basic Health Checkup",
			Price:    decimal.RequireFromString("60.00"),
			IsActive: true,
			Tests:    []entity.LabTest{tests["CBC"], tests["FBS"], tests["LIPID"]},
		}
		if err := tx.Omit("Tests.*").Create(&pkg).Error; err != nil {
			return err
		}

		log.WithField("tests", len(tests)).Info("Starter test catalog created")
		return nil
	})
}
