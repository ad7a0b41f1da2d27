package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/serial-console/internal/config"
	"github.com/wfunc/serial-console/internal/service"
	"github.com/wfunc/serial-console/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(auth service.AuthService) *gin.Engine {
	engine := gin.New()
	engine.Use(RequestID(), Recovery())
	engine.GET("/open", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })
	engine.GET("/secure", NewAuthMiddleware(auth).RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextOperator))
	})
	return engine
}

func newAuthService(t *testing.T, enabled bool) (service.AuthService, string) {
	hash, err := utils.HashPasswordWithConfig("pw", &utils.PasswordConfig{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32})
	require.NoError(t, err)
	auth := service.NewAuthService(&config.SecurityConfig{Enabled: enabled, PasswordHash: hash},
		utils.NewJWTManager("secret", time.Hour))
	if !enabled {
		return auth, ""
	}
	resp, err := auth.Login(context.Background(), "pw")
	require.NoError(t, err)
	return auth, resp.AccessToken
}

func TestRequestID(t *testing.T) {
	auth, _ := newAuthService(t, false)
	engine := newEngine(auth)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, w.Header().Get(HeaderRequestID), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set(HeaderRequestID, "abc")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Body.String())
}

func TestRecovery(t *testing.T) {
	auth, _ := newAuthService(t, false)
	w := httptest.NewRecorder()
	newEngine(auth).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	auth, _ := newAuthService(t, false)
	w := httptest.NewRecorder()
	newEngine(auth).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	auth, token := newAuthService(t, true)
	engine := newEngine(auth)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "operator", w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
