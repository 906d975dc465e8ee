package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/kosanku/kosanku-api/internal/auth"
	pkghttp "github.com/kosanku/kosanku-api/pkg/http"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// DefaultAuthRateLimit is the per-IP budget for the unauthenticated OTP and
// password endpoints. The per-email lockout is enforced separately by the
// auth engine.
func DefaultAuthRateLimit(ipConfig *pkghttp.IPConfig) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 20,
		IPConfig:          ipConfig,
	}
}

// DefaultAccountRateLimit is the per-account budget for authenticated routes
func DefaultAccountRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 60}
}

func writeLimited(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteRetryAfter(w, http.StatusTooManyRequests, "rate_limit_exceeded",
		"Too many requests. Try again shortly.", time.Minute)
}

// RateLimitByIP limits requests per client IP. Forwarding headers are only
// honoured from trusted proxies.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(writeLimited),
	)
}

// RateLimitByAccount limits requests per authenticated account and falls
// back to the client IP when no claims are present. Must run after
// auth.AuthMiddleware.
func RateLimitByAccount(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if claims := auth.GetClaimsFromContext(r); claims != nil {
				return string(claims.Realm) + ":" + claims.AccountID, nil
			}
			return "ip:" + pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(writeLimited),
	)
}
