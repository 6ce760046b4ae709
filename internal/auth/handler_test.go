package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bhfe/cfp-workshops/internal/models"
	"github.com/bhfe/cfp-workshops/pkg/utils"
)

type memStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemStore() *memStore { return &memStore{users: make(map[string]*models.User)} }

func (m *memStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u, nil
}

func (m *memStore) Create(_ context.Context, email, hash, name string, role models.Role) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{ID: uuid.New(), Email: strings.ToLower(email), Password: hash, FullName: name, Role: role, CreatedAt: time.Now()}
	m.users[u.Email] = u
	return u, nil
}

func (m *memStore) List(context.Context) ([]models.UserPublic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserPublic
	for _, u := range m.users {
		out = append(out, u.ToPublic())
	}
	return out, nil
}

func newRouter(t *testing.T, store UserStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, NewJWTService("secret", 1), zaptest.NewLogger(t))
	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.POST("/users", h.CreateUser)
	r.GET("/users", h.List)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	store := newMemStore()
	hash, err := utils.HashPassword("workshop-pass")
	require.NoError(t, err)
	_, err = store.Create(context.Background(), "admin@example.org", hash, "Admin", models.RoleAdmin)
	require.NoError(t, err)
	r := newRouter(t, store)

	rec := do(r, http.MethodPost, "/auth/login", `{"email":"admin@example.org","password":"workshop-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.Token)
	assert.Equal(t, models.RoleAdmin, body.Data.User.Role)

	rec = do(r, http.MethodPost, "/auth/login", `{"email":"admin@example.org","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(r, http.MethodPost, "/auth/login", `{"email":"ghost@example.org","password":"workshop-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateUser(t *testing.T) {
	store := newMemStore()
	r := newRouter(t, store)

	rec := do(r, http.MethodPost, "/users", `{"email":"Staff@Example.org","password":"longenough","full_name":"Staff"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	u, err := store.GetByEmail(context.Background(), "staff@example.org")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, u.Role)

	rec = do(r, http.MethodPost, "/users", `{"email":"staff@example.org","password":"longenough","full_name":"Again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(r, http.MethodPost, "/users", `{"email":"x@example.org","password":"short","full_name":"X"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/users", `{"email":"y@example.org","password":"longenough","full_name":"Y","role":"speaker"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnsureAdmin(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	require.NoError(t, EnsureAdmin(ctx, store, "", "", zaptest.NewLogger(t)))
	assert.Empty(t, store.users)

	require.NoError(t, EnsureAdmin(ctx, store, "root@example.org", "bootstrap-pw", zaptest.NewLogger(t)))
	u, err := store.GetByEmail(ctx, "root@example.org")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	require.NoError(t, EnsureAdmin(ctx, store, "root@example.org", "bootstrap-pw", zaptest.NewLogger(t)))
	assert.Len(t, store.users, 1)
}
