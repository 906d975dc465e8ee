package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kosanku/kosanku-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiddleware(t *testing.T, rev TokenRevocationChecker, cfg RevocationConfig) (http.Handler, *TokenManager, *models.Account) {
	t.Helper()
	acct := testAccount("u1")
	tm := NewTokenManager(testSecret, time.Hour)
	tm.RegisterRealm(models.RealmUser, newFakeFetcher(acct))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaimsFromContext(r)
		require.NotNil(t, claims)
		w.WriteHeader(http.StatusNoContent)
	})
	return AuthMiddleware(tm, rev, cfg, logger)(next), tm, acct
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	h, tm, acct := setupMiddleware(t, nil, RevocationConfig{})
	token, err := tm.GenerateAccessToken(models.RealmUser, acct)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthMiddleware_MissingOrMalformedHeader(t *testing.T) {
	h, _, _ := setupMiddleware(t, nil, RevocationConfig{})

	for _, header := range []string{"", "Token abc", "Bearer", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	rev := &fakeRevocations{revoked: map[string]bool{}}
	h, tm, acct := setupMiddleware(t, rev, RevocationConfig{})
	token, err := tm.GenerateAccessToken(models.RealmUser, acct)
	require.NoError(t, err)

	claims, err := tm.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	rev.revoked[claims.ID] = true

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "revoked")
}

func TestAuthMiddleware_RevocationFailure(t *testing.T) {
	rev := &fakeRevocations{err: errors.New("db down")}

	t.Run("fail open", func(t *testing.T) {
		h, tm, acct := setupMiddleware(t, rev, RevocationConfig{FailClosed: false})
		token, _ := tm.GenerateAccessToken(models.RealmUser, acct)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("fail closed", func(t *testing.T) {
		h, tm, acct := setupMiddleware(t, rev, RevocationConfig{FailClosed: true})
		token, _ := tm.GenerateAccessToken(models.RealmUser, acct)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestRequireRealm(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	guard := RequireRealm(models.RealmAdmin)(ok)

	tests := []struct {
		name   string
		claims *models.TokenClaims
		want   int
	}{
		{"no claims", nil, http.StatusUnauthorized},
		{"wrong realm", &models.TokenClaims{Realm: models.RealmUser}, http.StatusForbidden},
		{"matching realm", &models.TokenClaims{Realm: models.RealmAdmin}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/profile", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			w := httptest.NewRecorder()
			guard.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
