package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kosanku/kosanku-api/internal/auth"
	"github.com/kosanku/kosanku-api/internal/background"
	"github.com/kosanku/kosanku-api/internal/config"
	"github.com/kosanku/kosanku-api/internal/database"
	"github.com/kosanku/kosanku-api/internal/handlers"
	middlewareCustom "github.com/kosanku/kosanku-api/internal/middleware"
	"github.com/kosanku/kosanku-api/internal/models"
	"github.com/kosanku/kosanku-api/internal/repositories"
	"github.com/kosanku/kosanku-api/internal/routes"
	"github.com/kosanku/kosanku-api/internal/services"
	pkgauth "github.com/kosanku/kosanku-api/pkg/auth"
	pkghttp "github.com/kosanku/kosanku-api/pkg/http"
	pkglogger "github.com/kosanku/kosanku-api/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// realmMounts maps each realm to its URL prefix
var realmMounts = []struct {
	realm      models.Realm
	prefix     string
	checkEmail bool
}{
	{models.RealmUser, "/auth", false},
	{models.RealmAdmin, "/admin", true},
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize Redis (rate-state store)
	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	redisClient, err := repositories.ConnectRedis(startCtx, cfg.Redis.URL)
	if err != nil {
		startCancel()
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer redisClient.Close()

	notifier, err := services.NewNotifier(startCtx, cfg.Mail, logger)
	startCancel()
	if err != nil {
		logger.Error("failed to initialize notifier", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := pkglogger.NewAuditLogger(logger)
	hasher := pkgauth.NewHasher(cfg.Auth.BcryptCost)
	timingDelay := auth.NewTimingDelay(cfg.Auth.TimingDelayBase, cfg.Auth.TimingDelayRandom)
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	revokeRepo := repositories.NewTokenRevocationRepository(db)
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)

	sweepers := map[string]background.Sweeper{
		"revoked_tokens": background.SweepFunc(revokeRepo.CleanupExpiredTokens),
	}

	protection := routes.Protection{
		Tokens:       tokenManager,
		Revocations:  revokeRepo,
		Revocation:   auth.RevocationConfig{FailClosed: cfg.Server.Env == "production"},
		PublicLimit:  middlewareCustom.DefaultAuthRateLimit(ipConfig),
		AccountLimit: middlewareCustom.DefaultAccountRateLimit(),
		Logger:       logger,
	}

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterHealthRoutes(router, handlers.NewHealthHandler(map[string]handlers.HealthChecker{
		"database": handlers.HealthCheckFunc(db.HealthCheck),
		"redis":    redisHealth(redisClient),
	}))

	// One engine per realm; tables, rate keys and token realm differ
	for _, m := range realmMounts {
		realmLogger := logger.With(slog.String("realm", string(m.realm)))

		accountRepo := repositories.NewAccountRepository(db, m.realm)
		otpRepo := repositories.NewOTPRepository(db, m.realm)
		tokenManager.RegisterRealm(m.realm, accountRepo)
		sweepers[string(m.realm)+"_otps"] = background.SweepFunc(otpRepo.CleanupStale)

		otpService := services.NewOTPService(otpRepo, notifier, services.OTPConfig{
			Secret:         cfg.Auth.AppKey,
			TTL:            cfg.Auth.OTPTTL,
			ResendCooldown: cfg.Auth.ResendCooldown,
			Env:            cfg.Server.Env,
		}, realmLogger)

		rateLimitService := services.NewRateLimitService(
			repositories.NewRedisRateStateStore(redisClient, m.realm),
			services.LockoutPolicy{
				SuspendDuration: cfg.Lockout.SuspendDuration,
				FailCounterTTL:  cfg.Lockout.FailCounterTTL,
			},
			realmLogger,
		)

		engine := services.NewAuthEngine(services.EngineConfig{
			Realm:            m.realm,
			MaxLoginAttempts: cfg.Lockout.MaxLoginAttempts,
			MaxOTPAttempts:   cfg.Lockout.MaxOTPAttempts,
		}, services.EngineDeps{
			Accounts: accountRepo,
			OTPs:     otpService,
			Limiter:  rateLimitService,
			Tokens:   tokenManager,
			Hasher:   hasher,
			Delay:    timingDelay,
			Logger:   logger,
			Audit:    auditLogger,
		})

		accountService := services.NewAccountService(m.realm, services.AccountDeps{
			Accounts:    accountRepo,
			Revocations: revokeRepo,
			Hasher:      hasher,
			Notifier:    notifier,
			TokenTTL:    cfg.Auth.AccessTokenExpiry,
			Logger:      realmLogger,
			Audit:       auditLogger,
		})

		routes.RegisterRealm(router, routes.RealmRoutes{
			Realm:      m.realm,
			Prefix:     m.prefix,
			Auth:       handlers.NewAuthHandler(engine, realmLogger),
			Account:    handlers.NewAccountHandler(accountService, realmLogger),
			CheckEmail: m.checkEmail,
		}, protection)
	}

	cleanupManager := background.NewCleanupManager(sweepers, logger, cfg.Auth.CleanupInterval)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func redisHealth(client *redis.Client) handlers.HealthChecker {
	return handlers.HealthCheckFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}
