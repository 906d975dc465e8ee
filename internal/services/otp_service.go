package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/kosanku/kosanku-api/internal/models"
	pkglogger "github.com/kosanku/kosanku-api/pkg/logger"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// OTPRepository is the one-time code ledger
type OTPRepository interface {
	Create(ctx context.Context, accountID, codeHash string, createdAt, expiresAt time.Time) (*models.OneTimeCode, error)
	LatestUnconsumed(ctx context.Context, accountID string) (*models.OneTimeCode, error)
	Latest(ctx context.Context, accountID string) (*models.OneTimeCode, error)
	DeleteUnconsumed(ctx context.Context, accountID string) (int64, error)
	DeleteStale(ctx context.Context, accountID string, now time.Time) (int64, error)
	MarkConsumed(ctx context.Context, id string, at time.Time) error
}

type OTPConfig struct {
	Secret         string // HMAC key for code hashes
	TTL            time.Duration
	ResendCooldown time.Duration
	SendTimeout    time.Duration
	Env            string
}

// OTPService issues, looks up and consumes one-time codes
type OTPService struct {
	repo     OTPRepository
	notifier Notifier
	cfg      OTPConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewOTPService(repo OTPRepository, notifier Notifier, cfg OTPConfig, logger *slog.Logger) *OTPService {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &OTPService{
		repo:     repo,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// GenerateCode returns a uniformly random code in [100000, 999999]
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+otpMin), nil
}

// HashCode is the keyed hash stored in place of the code
func HashCode(secret, code string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue replaces the account's codes with a fresh one and mails it. The mail
// is best effort: a send failure is logged and Issue still succeeds.
func (s *OTPService) Issue(ctx context.Context, account *models.Account) (string, error) {
	now := s.now()

	if _, err := s.repo.DeleteStale(ctx, account.ID, now); err != nil {
		s.logger.Warn("failed to purge stale otps", slog.String("account_id", account.ID), slog.Any("error", err))
	}

	if _, err := s.repo.DeleteUnconsumed(ctx, account.ID); err != nil {
		return "", fmt.Errorf("failed to invalidate previous otps: %w", err)
	}

	code, err := GenerateCode()
	if err != nil {
		return "", err
	}

	if _, err := s.repo.Create(ctx, account.ID, HashCode(s.cfg.Secret, code), now, now.Add(s.cfg.TTL)); err != nil {
		return "", err
	}

	deliver(ctx, s.notifier, s.cfg.SendTimeout, s.logger, OTPMessage(account.Email, code, s.cfg.TTL))

	s.logger.Info("otp issued",
		slog.String("account_id", account.ID),
		slog.String("email", pkglogger.SanitizedEmail(account.Email)),
		pkglogger.RedactedAttr("otp", code, s.cfg.Env))

	return code, nil
}

// CooldownRemaining is how long until another code may be requested, measured
// from the newest code row. Zero means a new code may be issued now.
func (s *OTPService) CooldownRemaining(ctx context.Context, accountID string) (time.Duration, error) {
	last, err := s.repo.Latest(ctx, accountID)
	if errors.Is(err, models.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	remaining := last.CreatedAt.Add(s.cfg.ResendCooldown).Sub(s.now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Active returns the newest unconsumed code. ErrNoActiveOTP when there is
// none, ErrOTPExpired (with the code) when it has lapsed.
func (s *OTPService) Active(ctx context.Context, accountID string) (*models.OneTimeCode, error) {
	code, err := s.repo.LatestUnconsumed(ctx, accountID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrNoActiveOTP
	}
	if err != nil {
		return nil, err
	}
	if code.IsExpiredAt(s.now()) {
		return code, models.ErrOTPExpired
	}
	return code, nil
}

// Matches compares the submitted code against the stored hash in constant time
func (s *OTPService) Matches(code *models.OneTimeCode, submitted string) bool {
	return hmac.Equal([]byte(code.CodeHash), []byte(HashCode(s.cfg.Secret, submitted)))
}

// Consume marks the code used. Losing a race to another consumer yields
// ErrNoActiveOTP.
func (s *OTPService) Consume(ctx context.Context, code *models.OneTimeCode) error {
	err := s.repo.MarkConsumed(ctx, code.ID, s.now())
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNoActiveOTP
	}
	return err
}

// SetClock overrides the time source
func (s *OTPService) SetClock(now func() time.Time) {
	s.now = now
}
