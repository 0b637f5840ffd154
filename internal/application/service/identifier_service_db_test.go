package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/diaglab/labdesk-api/internal/domain/identifier"
	infraRepo "github.com/diaglab/labdesk-api/internal/infrastructure/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Runs Issue against the gorm repositories inside an outer transaction, the
// way PatientService and OrderService call it.
func TestIdentifierService_Issue_CounterFailureInsideTransaction(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	tx := infraRepo.NewTransactor(db)
	svc := newTestIdentifiers(infraRepo.NewSequenceRepository(db), tx)
	patients := infraRepo.NewPatientRepository(db)

	mock.ExpectBegin()
	// counter runs in a savepoint and is rolled back to it on failure
	mock.ExpectExec(`^SAVEPOINT sp`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO sequences`).WillReturnError(errors.New("relation \"sequences\" does not exist"))
	mock.ExpectExec(`^ROLLBACK TO SAVEPOINT sp`).WillReturnResult(sqlmock.NewResult(0, 0))
	// the insert still runs on a usable transaction
	mock.ExpectExec(`^SAVEPOINT sp`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "patients"`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	var code string
	err = tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		var err error
		code, err = svc.Issue(ctx, identifier.KindPatient, func(ctx context.Context, code string) error {
			return patients.Create(ctx, &entity.Patient{PatientCode: code, FirstName: "Ama"})
		})
		return err
	})

	require.NoError(t, err)
	assert.Regexp(t, `^PAT\d+$`, code)
	assert.NotEqual(t, "PAT000001", code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
