package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role names used by route guards and seeding
const (
	RoleAdmin         = "admin"
	RoleReceptionist  = "receptionist"
	RoleLabTechnician = "lab_technician"
	RoleDoctor        = "doctor"
	RolePatient       = "patient"
)

// Permission names
const (
	PermViewDashboard  = "dashboard.view"
	PermManageUsers    = "users.manage"
	PermManagePatients = "patients.manage"
	PermManageDoctors  = "doctors.manage"
	PermManageCatalog  = "catalog.manage"
	PermCreateOrders   = "orders.create"
	PermViewOrders     = "orders.view"
	PermProcessSamples = "samples.process"
	PermEnterResults   = "results.enter"
	PermVerifyResults  = "results.verify"
	PermManageInvoices = "invoices.manage"
	PermRecordPayments = "payments.record"
	PermPrintReceipts  = "receipts.print"
	PermViewReports    = "reports.view"
	PermManageSettings = "settings.manage"
)

// User is a login account. Patients, doctors and technicians link to one.
type User struct {
	ID              uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	FirstName       string         `gorm:"size:255;not null" json:"first_name"`
	LastName        string         `gorm:"size:255;not null" json:"last_name"`
	Email           string         `gorm:"size:255;unique;not null" json:"email"`
	Phone           *string        `gorm:"size:50" json:"phone,omitempty"`
	Password        string         `gorm:"size:255" json:"-"`
	Provider        string         `gorm:"size:50;default:'local'" json:"provider"`
	ProviderID      *string        `gorm:"size:255" json:"-"`
	Photo           *string        `gorm:"size:255" json:"photo,omitempty"`
	IsActive        bool           `gorm:"default:true" json:"is_active"`
	EmailVerifiedAt *time.Time     `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Roles []Role `gorm:"many2many:user_roles;foreignKey:ID;joinForeignKey:user_id;References:ID;joinReferences:role_id" json:"roles,omitempty"`
}

// BeforeCreate generates a UUID before creating a new user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Role represents a role in the RBAC system
type Role struct {
	ID          uint         `gorm:"primary_key" json:"id"`
	Name        string       `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string       `gorm:"size:255" json:"description,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Permissions []Permission `gorm:"many2many:role_permissions;foreignKey:ID;joinForeignKey:role_id;References:ID;joinReferences:permission_id" json:"permissions,omitempty"`
}

// TableName returns the table name for the Role model
func (Role) TableName() string {
	return "roles"
}

// Permission represents a permission in the RBAC system
type Permission struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the Permission model
func (Permission) TableName() string {
	return "permissions"
}

// HasPermission checks if the user has a specific permission
func (u *User) HasPermission(permissionName string) bool {
	for _, role := range u.Roles {
		for _, permission := range role.Permissions {
			if permission.Name == permissionName {
				return true
			}
		}
	}
	return false
}

// HasRole checks if the user has a specific role
func (u *User) HasRole(roleName string) bool {
	for _, role := range u.Roles {
		if role.Name == roleName {
			return true
		}
	}
	return false
}

// RoleNames lists the user's role names
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// GetPermissions returns all permission names for the user
func (u *User) GetPermissions() []string {
	seen := make(map[string]bool)
	result := make([]string, 0)
	for _, role := range u.Roles {
		for _, permission := range role.Permissions {
			if !seen[permission.Name] {
				seen[permission.Name] = true
				result = append(result, permission.Name)
			}
		}
	}
	return result
}
