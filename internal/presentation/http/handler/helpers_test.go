package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diaglab/labdesk-api/internal/domain/entity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiBody struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) apiBody {
	t.Helper()
	var body apiBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// asUser stands in for the auth middleware
func asUser(userID uuid.UUID, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("user_email", "staff@lab.test")
		c.Set("user_roles", roles)
	}
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestContextReaders(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetUserID(c))
	assert.False(t, IsAdmin(c))

	id := uuid.New()
	asUser(id, entity.RoleAdmin, entity.RoleDoctor)(c)

	require.NotNil(t, GetUserID(c))
	assert.Equal(t, id, *GetUserID(c))
	assert.Equal(t, "staff@lab.test", GetUserEmail(c))
	assert.True(t, IsAdmin(c))
	assert.True(t, HasRole(c, entity.RoleDoctor))
	assert.False(t, HasRole(c, entity.RolePatient))
}

func TestRequireUserIDAndParseID(t *testing.T) {
	r := gin.New()
	r.GET("/things/:id", func(c *gin.Context) {
		if _, ok := requireUserID(c); !ok {
			return
		}
		if _, ok := parseID(c, "id"); !ok {
			return
		}
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodGet, "/things/"+uuid.NewString(), nil).Code)

	authed := gin.New()
	authed.GET("/things/:id", asUser(uuid.New()), func(c *gin.Context) {
		if _, ok := parseID(c, "id"); !ok {
			return
		}
		c.Status(http.StatusOK)
	})
	rec := doJSON(authed, http.MethodGet, "/things/nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid id", decode(t, rec).Message)
	assert.Equal(t, http.StatusOK, doJSON(authed, http.MethodGet, "/things/"+uuid.NewString(), nil).Code)
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query   string
		page    int
		perPage int
	}{
		{"", 1, 15},
		{"?page=3&per_page=50", 3, 50},
		{"?page=0&per_page=1000", 1, 100},
		{"?page=x&per_page=y", 1, 20},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)

		params := pageParams(c)

		assert.Equal(t, tt.page, params.Page, tt.query)
		assert.Equal(t, tt.perPage, params.PerPage, tt.query)
	}
}

func TestOptionalParsers(t *testing.T) {
	id, err := optionalUUID("patient_id", "")
	assert.NoError(t, err)
	assert.Nil(t, id)

	_, err = optionalUUID("patient_id", "bad")
	assert.Error(t, err)

	d, err := optionalDate("start_date", "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *d)

	_, err = optionalDate("start_date", "15/01/2024")
	assert.Error(t, err)

	end := endOfDay(d)
	assert.Equal(t, time.Date(2024, 1, 15, 23, 59, 59, 999999999, time.UTC), *end)
	assert.Nil(t, endOfDay(nil))
}

func TestOptionalBool(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?approved=true&mine=maybe", nil)

	approved := optionalBool(c, "approved")
	require.NotNil(t, approved)
	assert.True(t, *approved)
	assert.Nil(t, optionalBool(c, "mine"))
	assert.Nil(t, optionalBool(c, "missing"))
}
