// internal/middleware/middleware_test.go
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v1kassh/escrawl-connect/internal/auth"
	"github.com/v1kassh/escrawl-connect/internal/models"
)

const testSecret = "middleware-test-secret"

func signToken(t *testing.T, role models.Role) string {
	t.Helper()
	token, err := auth.Sign(models.User{ID: "u1", Username: "alice", Role: role}, testSecret, "escrawl-connect", time.Hour)
	require.NoError(t, err)
	return token
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", ExtractToken(r))

	// WebSocket handshakes carry the token as a query parameter.
	r = httptest.NewRequest(http.MethodGet, "/api/ws?token=query-token", nil)
	assert.Equal(t, "query-token", ExtractToken(r))

	r = httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	r.AddCookie(&http.Cookie{Name: "auth_token", Value: "cookie-token"})
	assert.Equal(t, "cookie-token", ExtractToken(r))

	// Header wins over query parameter.
	r = httptest.NewRequest(http.MethodGet, "/api/ws?token=query-token", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", ExtractToken(r))

	r = httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	assert.Empty(t, ExtractToken(r))
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthStoresClaims(t *testing.T) {
	var actor models.User
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = Actor(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, models.RoleAdmin))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", actor.Username)
	assert.Equal(t, models.RoleAdmin, actor.Role)
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		name string
		role models.Role
		min  models.Role
		want int
	}{
		{"user blocked from admin routes", models.RoleUser, models.RoleAdmin, http.StatusForbidden},
		{"admin passes admin gate", models.RoleAdmin, models.RoleAdmin, http.StatusOK},
		{"admin blocked from super admin routes", models.RoleAdmin, models.RoleSuperAdmin, http.StatusForbidden},
		{"super admin passes everywhere", models.RoleSuperAdmin, models.RoleAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Auth(testSecret)(RequireRole(tt.min)(next))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer "+signToken(t, tt.role))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireChannelManager(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		name string
		role models.Role
		want int
	}{
		{"user cannot manage channels", models.RoleUser, http.StatusForbidden},
		{"admin can manage channels", models.RoleAdmin, http.StatusOK},
		{"super admin can manage channels", models.RoleSuperAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Auth(testSecret)(RequireChannelManager()(next))

			r := httptest.NewRequest(http.MethodDelete, "/channels/c1", nil)
			r.Header.Set("Authorization", "Bearer "+signToken(t, tt.role))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireChannelManagerWithoutAuthIsForbidden(t *testing.T) {
	handler := RequireChannelManager()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/channels/c1", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoleWithoutAuthIsForbidden(t *testing.T) {
	handler := RequireRole(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
