package repository

import (
	"context"
	"errors"
	"fmt"

	domainRepo "github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type ctxKey string

const (
	// PatientIDKey restricts queries to one patient's records (patient portal)
	PatientIDKey ctxKey = "patient_id"
	txKey        ctxKey = "gorm_tx"
)

// PatientScope filters patient-owned tables down to the patient in ctx.
// Staff requests carry no patient ID and are not filtered.
func PatientScope(ctx context.Context) func(db *gorm.DB) *gorm.DB {
	return PatientScopeOn(ctx, "patient_id")
}

// PatientScopeOn is PatientScope for a table whose owner column is column
func PatientScopeOn(ctx context.Context, column string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		patientID, ok := ctx.Value(PatientIDKey).(uuid.UUID)
		if !ok {
			return db
		}
		if patientID == uuid.Nil {
			// Patient account without a patient record sees nothing
			return db.Where("1 = 0")
		}
		return db.Where(column+" = ?", patientID)
	}
}

// WithPatient restricts repository reads in ctx to one patient
func WithPatient(ctx context.Context, patientID uuid.UUID) context.Context {
	return context.WithValue(ctx, PatientIDKey, patientID)
}

// GetPatientID extracts the patient restriction from ctx
func GetPatientID(ctx context.Context) (uuid.UUID, bool) {
	patientID, ok := ctx.Value(PatientIDKey).(uuid.UUID)
	return patientID, ok
}

// conn returns the transaction in ctx if there is one, else db
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

const uniqueViolation = "23505"

// codeIndexes hold generated identifiers. A violation of one of them means
// the code was already issued, not that the row itself is a duplicate.
var codeIndexes = map[string]bool{
	"idx_orders_order_number":             true,
	"idx_invoices_invoice_number":         true,
	"idx_patients_patient_code":           true,
	"idx_doctors_doctor_code":             true,
	"idx_lab_technicians_technician_code": true,
}

// translate maps driver-level errors onto domain sentinels
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if codeIndexes[pgErr.ConstraintName] {
			return fmt.Errorf("%w (%s)", domainRepo.ErrDuplicateCode, pgErr.ConstraintName)
		}
		return fmt.Errorf("%w (%s)", domainRepo.ErrDuplicateKey, pgErr.ConstraintName)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainRepo.ErrDuplicateKey
	}
	return err
}

type transactor struct {
	db *gorm.DB
}

// NewTransactor creates a Transactor backed by db
func NewTransactor(db *gorm.DB) domainRepo.Transactor {
	return &transactor{db: db}
}

// WithinTransaction starts a transaction, or a savepoint when ctx already
// carries one, so a failed inner step can be retried without aborting the
// outer transaction.
func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return conn(ctx, t.db).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey, tx))
	})
}
