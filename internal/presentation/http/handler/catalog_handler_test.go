package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/diaglab/labdesk-api/internal/application/service"
	"github.com/diaglab/labdesk-api/internal/infrastructure/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newCatalogRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	catalog := service.NewCatalogService(
		repository.NewTestCategoryRepository(db),
		repository.NewLabTestRepository(db),
		repository.NewTestPackageRepository(db),
		repository.NewTransactor(db),
	)
	h := NewCatalogHandler(catalog)

	r := gin.New()
	r.GET("/test-categories", h.ListCategories)
	r.GET("/test-categories/:id", h.GetCategory)
	r.POST("/test-categories", h.CreateCategory)
	return r, mock
}

func TestCatalogHandler_ListCategories(t *testing.T) {
	r, mock := newCatalogRouter(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "test_categories"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow(uuid.New(), "Biochemistry", now, now).
			AddRow(uuid.New(), "Hematology", now, now))

	rec := doJSON(r, http.MethodGet, "/test-categories", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.True(t, body.Success)
	assert.Contains(t, string(body.Data), "Hematology")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogHandler_GetCategory(t *testing.T) {
	t.Run("malformed id", func(t *testing.T) {
		r, _ := newCatalogRouter(t)
		assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/test-categories/42", nil).Code)
	})

	t.Run("not found", func(t *testing.T) {
		r, mock := newCatalogRouter(t)
		mock.ExpectQuery(`SELECT \* FROM "test_categories" WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		rec := doJSON(r, http.MethodGet, "/test-categories/"+uuid.NewString(), nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.False(t, decode(t, rec).Success)
	})
}

func TestCatalogHandler_CreateCategory(t *testing.T) {
	t.Run("binding failure", func(t *testing.T) {
		r, _ := newCatalogRouter(t)
		rec := doJSON(r, http.MethodPost, "/test-categories", map[string]string{"description": "no name"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate name", func(t *testing.T) {
		r, mock := newCatalogRouter(t)
		mock.ExpectQuery(`SELECT \* FROM "test_categories" WHERE LOWER\(name\) = LOWER\(\$1\)`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(uuid.New(), "Hematology"))

		rec := doJSON(r, http.MethodPost, "/test-categories", map[string]string{"name": "hematology"})

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
