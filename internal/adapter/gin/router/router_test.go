package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"usuarios-service/internal/adapter/db/gormdb"
	"usuarios-service/internal/adapter/gin/handler"
	"usuarios-service/internal/adapter/gin/middleware"
	"usuarios-service/internal/usecase/user"
	"usuarios-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

// setupRouter wires the real stack on an in-memory SQLite database.
func setupRouter(t *testing.T, opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&gormdb.UserSchema{}))

	uc := user.New(gormdb.NewUserRepo(db, log), log)
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	return SetupRouter(handler.NewUserHandler(uc, log), opts, log)
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeUser(t *testing.T, w *httptest.ResponseRecorder) handler.UserResponse {
	t.Helper()
	var u handler.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	return u
}

func TestUsuarios_EndToEnd(t *testing.T) {
	r := setupRouter(t, Options{ServiceName: "usuarios-service"})

	// create A
	w := do(t, r, http.MethodPost, "/usuarios", handler.UserRequest{
		ID: 77, Name: "Ana", Email: "a@x.com", CPF: "111", BirthDate: "1990-05-04",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	a := decodeUser(t, w)
	assert.NotZero(t, a.ID)
	assert.NotEqual(t, int64(77), a.ID)
	assert.Equal(t, "1990-05-04", a.BirthDate)

	// create B with A's cpf
	w = do(t, r, http.MethodPost, "/usuarios", handler.UserRequest{
		Name: "Bia", Email: "b@x.com", CPF: "111", BirthDate: "1995-01-01",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, w.Body.String())

	// update A changing only the name; the body id is ignored
	w = do(t, r, http.MethodPut, fmt.Sprintf("/usuarios/%d", a.ID), handler.UserRequest{
		ID: 999, Name: "Ana Maria", Email: "a@x.com", CPF: "111", BirthDate: "1990-05-04",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeUser(t, w)
	assert.Equal(t, a.ID, updated.ID)
	assert.Equal(t, "Ana Maria", updated.Name)

	w = do(t, r, http.MethodGet, fmt.Sprintf("/usuarios/%d", a.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ana Maria", decodeUser(t, w).Name)

	w = do(t, r, http.MethodGet, "/usuarios/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// delete A
	w = do(t, r, http.MethodDelete, fmt.Sprintf("/usuarios/%d", a.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, fmt.Sprintf("/usuarios/%d", a.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(t, r, http.MethodDelete, fmt.Sprintf("/usuarios/%d", a.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/usuarios", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestUsuarios_UpdateConflicts(t *testing.T) {
	r := setupRouter(t, Options{})

	w := do(t, r, http.MethodPost, "/usuarios", handler.UserRequest{Name: "A", Email: "a@x.com", CPF: "111"})
	require.Equal(t, http.StatusCreated, w.Code)
	a := decodeUser(t, w)

	w = do(t, r, http.MethodPost, "/usuarios", handler.UserRequest{Name: "B", Email: "b@x.com", CPF: "222"})
	require.Equal(t, http.StatusCreated, w.Code)

	// email held by B
	w = do(t, r, http.MethodPut, fmt.Sprintf("/usuarios/%d", a.ID), handler.UserRequest{Name: "A", Email: "b@x.com", CPF: "111"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// cpf held by B
	w = do(t, r, http.MethodPut, fmt.Sprintf("/usuarios/%d", a.ID), handler.UserRequest{Name: "A", Email: "a@x.com", CPF: "222"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// unknown id
	w = do(t, r, http.MethodPut, "/usuarios/12345", handler.UserRequest{Name: "Z", Email: "z@x.com", CPF: "999"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// duplicate email on create
	w = do(t, r, http.MethodPost, "/usuarios", handler.UserRequest{Name: "C", Email: "a@x.com", CPF: "333"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUsuarios_ListAndFilter(t *testing.T) {
	r := setupRouter(t, Options{})

	for _, u := range []handler.UserRequest{
		{Name: "A", Email: "a@x.com", CPF: "1", BirthDate: "2000-01-02"},
		{Name: "B", Email: "b@x.com", CPF: "2", BirthDate: "2000-01-01"},
		{Name: "C", Email: "c@x.com", CPF: "3", BirthDate: "1999-12-31"},
		{Name: "D", Email: "d@x.com", CPF: "4", BirthDate: "2010-06-15"},
	} {
		require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/usuarios", u).Code)
	}

	w := do(t, r, http.MethodGet, "/usuarios", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []handler.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all, 4)
	assert.Equal(t, []string{"A", "B", "C", "D"}, []string{all[0].Name, all[1].Name, all[2].Name, all[3].Name})

	// strictly after, list order preserved
	w = do(t, r, http.MethodGet, "/usuarios/filtro-data?nascimento=2000-01-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var filtered []handler.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &filtered))
	require.Len(t, filtered, 2)
	assert.Equal(t, "A", filtered[0].Name)
	assert.Equal(t, "D", filtered[1].Name)

	w = do(t, r, http.MethodGet, "/usuarios/filtro-data?nascimento=2020-01-01", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// A malformed date is reported as a server error, not a client error.
	w = do(t, r, http.MethodGet, "/usuarios/filtro-data?nascimento=01-01-2000", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(t, r, http.MethodGet, "/usuarios/filtro-data", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Ambient(t *testing.T) {
	r := setupRouter(t, Options{ServiceName: "usuarios-service", MaxBodyBytes: 64})

	t.Run("Health", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "usuarios-service")
	})

	t.Run("Request ID Echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(logger.RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "req-123", w.Header().Get(logger.RequestIDHeader))
	})

	t.Run("Metrics", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/metrics", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "http_requests_total")
	})

	t.Run("Invalid ID", func(t *testing.T) {
		w := do(t, r, http.MethodGet, "/usuarios/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Body Too Large", func(t *testing.T) {
		w := do(t, r, http.MethodPost, "/usuarios", handler.UserRequest{
			Name:  "a very long name that pushes the body past the limit",
			Email: "long@x.com",
			CPF:   "12345678900",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRouter_RateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(nil, middleware.RateLimiterConfig{
		RequestsPerSecond: 1,
		BurstCapacity:     2,
		Enabled:           true,
	}, zaptest.NewLogger(t))
	r := setupRouter(t, Options{RateLimiter: limiter})

	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodGet, "/usuarios", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodGet, "/usuarios", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, r, http.MethodGet, "/usuarios", nil).Code)

	// health is outside the limited group
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/health", nil).Code)
}
