package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	domainRepo "github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSequenceRepository_Next(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSequenceRepository(db)

	mock.ExpectQuery(`INSERT INTO sequences .* ON CONFLICT \(scope\) DO UPDATE SET value = sequences.value \+ 1`).
		WithArgs("ORD:20240115", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(1))
	mock.ExpectQuery(`INSERT INTO sequences`).
		WithArgs("ORD:20240115", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(2))

	first, err := repo.Next(context.Background(), "ORD:20240115")
	require.NoError(t, err)
	second, err := repo.Next(context.Background(), "ORD:20240115")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceRepository_NextError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSequenceRepository(db)

	mock.ExpectQuery(`INSERT INTO sequences`).
		WithArgs("PAT", sqlmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	value, err := repo.Next(context.Background(), "PAT")

	assert.Error(t, err)
	assert.Zero(t, value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), domainRepo.ErrDuplicateKey)
	assert.Nil(t, translate(nil))

	other := errors.New("timeout")
	assert.Equal(t, other, translate(other))
}

func TestTranslate_UniqueViolations(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		isCode     bool
	}{
		{"order number", "idx_orders_order_number", true},
		{"invoice number", "idx_invoices_invoice_number", true},
		{"patient code", "idx_patients_patient_code", true},
		{"doctor code", "idx_doctors_doctor_code", true},
		{"technician code", "idx_lab_technicians_technician_code", true},
		{"one invoice per order", "idx_invoices_order_id", false},
		{"license number", "idx_doctors_license_number", false},
		{"user email", "idx_users_email", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translate(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			assert.ErrorIs(t, err, domainRepo.ErrDuplicateKey)
			assert.Equal(t, tt.isCode, errors.Is(err, domainRepo.ErrDuplicateCode))
		})
	}

	t.Run("other postgres errors pass through", func(t *testing.T) {
		fk := &pgconn.PgError{Code: "23503", ConstraintName: "fk_orders_patient"}
		assert.Equal(t, error(fk), translate(fk))
	})
}
