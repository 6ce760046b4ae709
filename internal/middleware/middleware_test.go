package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bhfe/cfp-workshops/internal/auth"
	"github.com/bhfe/cfp-workshops/internal/models"
)

func protected(t *testing.T, jwt *auth.JWTService, roles ...models.Role) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(zaptest.NewLogger(t)))
	g := r.Group("", JWT(jwt), RequireRole(roles...))
	g.GET("/secret", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextUserEmail)) })
	return r
}

func get(r http.Handler, url, authz string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAndRole(t *testing.T) {
	jwt := auth.NewJWTService("secret", 1)
	admin, err := jwt.Generate(&models.User{ID: uuid.New(), Email: "admin@example.org", Role: models.RoleAdmin})
	require.NoError(t, err)
	staff, err := jwt.Generate(&models.User{ID: uuid.New(), Email: "staff@example.org", Role: models.RoleStaff})
	require.NoError(t, err)
	r := protected(t, jwt, models.RoleAdmin)

	rec := get(r, "/secret", "Bearer "+admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin@example.org", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	assert.Equal(t, http.StatusOK, get(r, "/secret?access_token="+admin, "").Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/secret", "Bearer "+staff).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/secret", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/secret", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/secret", "Bearer garbage").Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://admin.example.org"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://admin.example.org")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://admin.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
