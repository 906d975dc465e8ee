package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kosanku/kosanku-api/internal/models"
	pkghttp "github.com/kosanku/kosanku-api/pkg/http"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
)

// TokenRevocationChecker reports whether a JTI has been blacklisted
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// RevocationConfig controls what happens when the revocation lookup fails
type RevocationConfig struct {
	FailClosed bool
}

// AuthMiddleware validates the bearer token and stores its claims in the
// request context
func AuthMiddleware(tm *TokenManager, revocationChecker TokenRevocationChecker, revocationConfig RevocationConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "Missing or malformed Authorization header")
				return
			}

			claims, err := tm.ValidateToken(r.Context(), tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Invalid or expired token")
				return
			}

			if revocationChecker != nil && claims.ID != "" {
				revoked, err := revocationChecker.IsTokenRevoked(r.Context(), claims.ID)
				if err != nil {
					logger.Error("token revocation check failed", slog.Any("error", err))
					if revocationConfig.FailClosed {
						pkghttp.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "Unable to verify token status")
						return
					}
				}
				if revoked {
					pkghttp.WriteUnauthorized(w, "Token has been revoked")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRealm rejects tokens issued for a different realm. Must run after
// AuthMiddleware.
func RequireRealm(realm models.Realm) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "Unauthorized")
				return
			}
			if claims.Realm != realm {
				pkghttp.WriteForbidden(w, "Token not valid for this realm")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func WithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

func GetClaimsFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(ClaimsContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
