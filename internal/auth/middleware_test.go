package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prospecta/leads-api/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// whoami echoes the authentication method, or "anonymous"
var whoami = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.FromContext(r.Context()); ok {
		_, _ = w.Write([]byte(u.Method))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
})

func TestMiddleware_Authenticate(t *testing.T) {
	cfg := testAuthConfig()
	m := auth.NewMiddleware(cfg, zap.NewNop())
	handler := m.Authenticate(whoami)

	token, err := auth.IssueToken(cfg, &auth.UserContext{UserID: uuid.New()}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		headers map[string]string
		status  int
		body    string
	}{
		{"api key", map[string]string{"x-api-key": "test-key"}, http.StatusOK, auth.MethodAPIKey},
		{"bearer token", map[string]string{"Authorization": "Bearer " + token}, http.StatusOK, auth.MethodJWT},
		{"wrong api key", map[string]string{"x-api-key": "nope"}, http.StatusUnauthorized, ""},
		{"malformed header", map[string]string{"Authorization": "Token " + token}, http.StatusUnauthorized, ""},
		{"bad token", map[string]string{"Authorization": "Bearer abc"}, http.StatusUnauthorized, ""},
		{"no credentials", nil, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tags", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rr.Body.String())
			} else {
				assert.Contains(t, rr.Body.String(), `"success":false`)
			}
		})
	}
}

func TestMiddleware_Disabled(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Enabled = false
	m := auth.NewMiddleware(cfg, zap.NewNop())

	rr := httptest.NewRecorder()
	m.Authenticate(whoami).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/tags", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "anonymous", rr.Body.String())
}

func TestMiddleware_OptionalAuthenticate(t *testing.T) {
	m := auth.NewMiddleware(testAuthConfig(), zap.NewNop())
	handler := m.OptionalAuthenticate(whoami)

	t.Run("invalid token continues anonymously", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "anonymous", rr.Body.String())
	})

	t.Run("api key attaches system user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("x-api-key", "test-key")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, auth.MethodAPIKey, rr.Body.String())
	})
}

func TestMiddleware_RequireRole(t *testing.T) {
	cfg := testAuthConfig()
	m := auth.NewMiddleware(cfg, zap.NewNop())
	handler := m.Authenticate(m.RequireRole("admin")(whoami))

	viewer, err := auth.IssueToken(cfg, &auth.UserContext{UserID: uuid.New(), Roles: []string{"viewer"}}, time.Hour)
	require.NoError(t, err)
	admin, err := auth.IssueToken(cfg, &auth.UserContext{UserID: uuid.New(), Roles: []string{"admin"}}, time.Hour)
	require.NoError(t, err)

	for name, tc := range map[string]struct {
		header, value string
		status        int
	}{
		"viewer forbidden": {"Authorization", "Bearer " + viewer, http.StatusForbidden},
		"admin allowed":    {"Authorization", "Bearer " + admin, http.StatusOK},
		"api key allowed":  {"x-api-key", "test-key", http.StatusOK},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/tags/1", nil)
			req.Header.Set(tc.header, tc.value)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tc.status, rr.Code)
		})
	}
}
