package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/kosanku/kosanku-api/internal/auth"
	"github.com/kosanku/kosanku-api/internal/handlers"
	"github.com/kosanku/kosanku-api/internal/middleware"
	"github.com/kosanku/kosanku-api/internal/models"
)

// RealmRoutes bundles what one realm needs to be mounted
type RealmRoutes struct {
	Realm   models.Realm
	Prefix  string // "/auth" or "/admin"
	Auth    *handlers.AuthHandler
	Account *handlers.AccountHandler

	// CheckEmail exposes GET {prefix}/check/{email}
	CheckEmail bool
}

// Protection is the auth chain shared by the protected routes of every realm
type Protection struct {
	Tokens       *auth.TokenManager
	Revocations  auth.TokenRevocationChecker
	Revocation   auth.RevocationConfig
	PublicLimit  middleware.RateLimitConfig
	AccountLimit middleware.RateLimitConfig
	Logger       *slog.Logger
}

// RegisterHealthRoutes registers /ping and /health
func RegisterHealthRoutes(router chi.Router, health *handlers.HealthHandler) {
	router.Get("/ping", health.Ping)
	router.Get("/health", health.Health)
}

// RegisterRealm mounts the public OTP flow and the protected account routes
// of one realm under its prefix
func RegisterRealm(router chi.Router, rr RealmRoutes, p Protection) {
	router.Route(rr.Prefix, func(r chi.Router) {
		// Public routes - throttled per client IP
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(p.PublicLimit))

			r.Post("/register", rr.Auth.Register)
			r.Post("/resend-otp", rr.Auth.ResendOTP)
			r.Post("/verify-otp", rr.Auth.VerifyOTP)
			r.Post("/login", rr.Auth.Login)
			r.Post("/forgot-password", rr.Auth.ForgotPassword)
			r.Post("/verify-forgot-otp", rr.Auth.VerifyForgotOTP)

			if rr.CheckEmail {
				r.Get("/check/{email}", rr.Account.CheckEmail)
			}
		})

		// Protected routes - token of this realm required
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware(p.Tokens, p.Revocations, p.Revocation, p.Logger))
			r.Use(auth.RequireRealm(rr.Realm))
			r.Use(middleware.RateLimitByAccount(p.AccountLimit))

			r.Post("/logout", rr.Account.Logout)
			r.Post("/logout-all", rr.Account.LogoutAll)
			r.Post("/change-password", rr.Account.ChangePassword)
			r.Get("/profile", rr.Account.GetProfile)
			r.Post("/profile", rr.Account.UpdateProfile)
		})
	})
}
