package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/diaglab/labdesk-api/internal/domain/entity"
	domainRepo "github.com/diaglab/labdesk-api/internal/domain/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceRepository_GetForUpdate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInvoiceRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE id = \$1 .* FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_number", "amount_paid"}).
			AddRow(id.String(), "INV2024010003", "20.00"))
	mock.ExpectQuery(`SELECT \* FROM "invoice_line_items" WHERE invoice_id = \$1 ORDER BY position ASC`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_id", "name", "unit_price", "quantity"}).
			AddRow(uuid.New().String(), id.String(), "Complete Blood Count", "25.00", 1))

	invoice, err := repo.GetForUpdate(context.Background(), id)

	require.NoError(t, err)
	require.NotNil(t, invoice)
	assert.Equal(t, "INV2024010003", invoice.InvoiceNumber)
	assert.Equal(t, "20", invoice.AmountPaid.String())
	require.Len(t, invoice.LineItems, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepository_GetForUpdate_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInvoiceRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	invoice, err := repo.GetForUpdate(context.Background(), id)

	assert.NoError(t, err)
	assert.Nil(t, invoice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepository_CreateSecondInvoiceForOrder(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewInvoiceRepository(db)

	mock.ExpectExec(`INSERT INTO "invoices"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_invoices_order_id"})

	err := repo.Create(context.Background(), &entity.Invoice{InvoiceNumber: "INV2024010007"})

	assert.ErrorIs(t, err, domainRepo.ErrDuplicateKey)
	assert.NotErrorIs(t, err, domainRepo.ErrDuplicateCode)
}
