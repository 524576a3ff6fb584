package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"idstation-backend/internal/domain"
	"idstation-backend/internal/server/authctx"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func accessClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":        "7",
		"username":   "tester",
		"role":       role,
		"station_id": float64(3),
		"token_type": "access",
		"exp":        time.Now().Add(time.Hour).Unix(),
		"iat":        time.Now().Unix(),
	}
}

func echoUser(t *testing.T, captured **authctx.CurrentUser) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = authctx.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	var got *authctx.CurrentUser
	h := AuthMiddleware(testSecret)(echoUser(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, accessClaims("stationRegistrar")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "tester", got.Username)
	assert.Equal(t, domain.RoleRegistrar, got.Role)
	require.NotNil(t, got.StationID)
	assert.Equal(t, int64(3), *got.StationID)
}

func TestAuthMiddlewareNormalizesLegacyRoles(t *testing.T) {
	var got *authctx.CurrentUser
	h := AuthMiddleware(testSecret)(echoUser(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, accessClaims("stationPrintral")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, domain.RolePrinter, got.Role)
}

func TestAuthMiddlewareRejections(t *testing.T) {
	h := AuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	cases := []struct {
		name  string
		token string
	}{
		{"missing header", ""},
		{"garbage token", "not-a-jwt"},
		{"wrong secret", func() string {
			tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims("stationRegistrar")).SignedString([]byte("other"))
			return tok
		}()},
		{"refresh token", signToken(t, jwt.MapClaims{
			"sub":        "7",
			"token_type": "refresh",
			"exp":        time.Now().Add(time.Hour).Unix(),
		})},
		{"expired", signToken(t, jwt.MapClaims{
			"sub":        "7",
			"username":   "tester",
			"role":       "stationRegistrar",
			"token_type": "access",
			"exp":        time.Now().Add(-time.Hour).Unix(),
		})},
		{"unknown role", signToken(t, accessClaims("wizard"))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	chain := AuthMiddleware(testSecret)(RequireRole(domain.RoleStationAdmin, domain.RoleSuperAdmin)(inner))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, accessClaims("stationAdmin")))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, accessClaims("stationRegistrar")))
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// No context user at all is forbidden.
	rec = httptest.NewRecorder()
	RequireRole(domain.RoleStationAdmin)(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
