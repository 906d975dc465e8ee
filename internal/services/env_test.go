package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kosanku/kosanku-api/internal/auth"
	"github.com/kosanku/kosanku-api/internal/models"
	"github.com/kosanku/kosanku-api/internal/repositories"
	"github.com/kosanku/kosanku-api/internal/services"
	pkgauth "github.com/kosanku/kosanku-api/pkg/auth"
	pkglogger "github.com/kosanku/kosanku-api/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAppKey    = "app-key-32-characters-long-here!"
	testJWTSecret = "test-secret-32-characters-long!!"
	testPassword  = "rahasia123"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// engineEnv wires one realm's engine over in-memory stores and miniredis
type engineEnv struct {
	engine   *services.AuthEngine
	accounts *services.FakeAccountRepository
	otps     *services.FakeOTPRepository
	otpSvc   *services.OTPService
	notifier *services.RecordingNotifier
	clock    *services.FakeClock
	mr       *miniredis.Miniredis
	tokens   *auth.TokenManager
	realm    models.Realm
}

func newEngineEnv(t *testing.T, realm models.Realm) *engineEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return newEngineEnvWithRedis(t, realm, mr, client)
}

func newEngineEnvWithRedis(t *testing.T, realm models.Realm, mr *miniredis.Miniredis, client *redis.Client) *engineEnv {
	t.Helper()
	logger := discardLogger()
	clock := services.NewFakeClock(time.Now())

	accounts := services.NewFakeAccountRepository()
	otps := services.NewFakeOTPRepository()
	notifier := &services.RecordingNotifier{}

	otpSvc := services.NewOTPService(otps, notifier, services.OTPConfig{
		Secret:         testAppKey,
		TTL:            15 * time.Minute,
		ResendCooldown: 60 * time.Second,
		Env:            "test",
	}, logger)
	otpSvc.SetClock(clock.Now)

	limiter := services.NewRateLimitService(
		repositories.NewRedisRateStateStore(client, realm),
		services.LockoutPolicy{SuspendDuration: 10 * time.Minute, FailCounterTTL: 15 * time.Minute},
		logger,
	)
	limiter.SetClock(clock.Now)

	tokens := auth.NewTokenManager(testJWTSecret, time.Hour)
	tokens.RegisterRealm(realm, accounts)

	engine := services.NewAuthEngine(
		services.EngineConfig{Realm: realm, MaxLoginAttempts: 5, MaxOTPAttempts: 5},
		services.EngineDeps{
			Accounts: accounts,
			OTPs:     otpSvc,
			Limiter:  limiter,
			Tokens:   tokens,
			Hasher:   pkgauth.NewHasher(bcrypt.MinCost),
			Logger:   logger,
			Audit:    pkglogger.NewAuditLogger(logger),
		},
	)

	return &engineEnv{
		engine: engine, accounts: accounts, otps: otps, otpSvc: otpSvc, notifier: notifier,
		clock: clock, mr: mr, tokens: tokens, realm: realm,
	}
}

// register creates an account and returns the code mailed for it
func (e *engineEnv) register(t *testing.T, email string) (*models.Account, string) {
	t.Helper()
	require.NoError(t, e.engine.Register(context.Background(), services.RegisterInput{Email: email, Password: testPassword}))
	acct, err := e.accounts.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	code := e.notifier.LastCode(email)
	require.Len(t, code, 6)
	return acct, code
}

// activate registers and verifies an account
func (e *engineEnv) activate(t *testing.T, email string) *models.Account {
	t.Helper()
	acct, code := e.register(t, email)
	_, err := e.engine.VerifyOTP(context.Background(), email, code)
	require.NoError(t, err)
	return acct
}

func (e *engineEnv) status(t *testing.T, email string) models.AccountStatus {
	t.Helper()
	acct, err := e.accounts.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return acct.Status
}

func (e *engineEnv) activeCodes(accountID string) int {
	n := 0
	for _, c := range e.otps.Codes(accountID) {
		if !c.IsConsumed() && !c.IsExpiredAt(e.clock.Now()) {
			n++
		}
	}
	return n
}
