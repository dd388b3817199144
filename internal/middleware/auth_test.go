package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mindscreen_backend/internal/config"
	"mindscreen_backend/internal/model"
	"mindscreen_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func router(roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}
	r := gin.New()
	r.GET("/admin", AuthMiddleware(cfg), RoleMiddleware(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, util.GetUserFromContext(c).Actor())
	})
	return r
}

func call(t *testing.T, r *gin.Engine, token string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := router(model.RoleClinician)

	assert.Equal(t, http.StatusUnauthorized, call(t, r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, r, "garbage").Code)

	wrongKey, err := util.GenerateJWT(1, "eve", model.RoleClinician, "another-secret-another-secret-xx", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(t, r, wrongKey).Code)

	expired, err := util.GenerateJWT(1, "bob", model.RoleClinician, secret, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(t, r, expired).Code)

	token, err := util.GenerateJWT(1, "dr.lee", model.RoleClinician, secret, time.Hour)
	require.NoError(t, err)
	w := call(t, r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dr.lee", w.Body.String())
}

func TestRoleMiddleware(t *testing.T) {
	adminOnly := router(model.RoleAdmin)

	clinician, err := util.GenerateJWT(2, "", model.RoleClinician, secret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call(t, adminOnly, clinician).Code)

	admin, err := util.GenerateJWT(3, "", model.RoleAdmin, secret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, call(t, adminOnly, admin).Code)

	// 管理员可访问临床人员接口
	w := call(t, router(model.RoleClinician), admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user:3", w.Body.String())
}
