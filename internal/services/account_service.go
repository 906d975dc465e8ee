package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kosanku/kosanku-api/internal/models"
	pkgauth "github.com/kosanku/kosanku-api/pkg/auth"
	pkglogger "github.com/kosanku/kosanku-api/pkg/logger"
)

// TokenRevocationRepository is the JTI blacklist
type TokenRevocationRepository interface {
	RevokeToken(ctx context.Context, jti string, realm models.Realm, accountID, tokenType string, expiresAt time.Time, reason string) error
	RevokeAllAccountTokens(ctx context.Context, realm models.Realm, accountID string, ttl time.Duration, reason string) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type AccountDeps struct {
	Accounts    AccountRepository
	Revocations TokenRevocationRepository
	Hasher      PasswordHasher
	Notifier    Notifier
	SendTimeout time.Duration
	TokenTTL    time.Duration
	Logger      *slog.Logger
	Audit       *pkglogger.AuditLogger
}

// AccountService covers the authenticated account operations: profile,
// password change and session termination
type AccountService struct {
	realm       models.Realm
	accounts    AccountRepository
	revocations TokenRevocationRepository
	hasher      PasswordHasher
	notifier    Notifier
	sendTimeout time.Duration
	tokenTTL    time.Duration
	logger      *slog.Logger
	audit       *pkglogger.AuditLogger
	now         func() time.Time
}

func NewAccountService(realm models.Realm, deps AccountDeps) *AccountService {
	if deps.SendTimeout <= 0 {
		deps.SendTimeout = 10 * time.Second
	}
	return &AccountService{
		realm:       realm,
		accounts:    deps.Accounts,
		revocations: deps.Revocations,
		hasher:      deps.Hasher,
		notifier:    deps.Notifier,
		sendTimeout: deps.SendTimeout,
		tokenTTL:    deps.TokenTTL,
		logger:      deps.Logger,
		audit:       deps.Audit,
		now:         time.Now,
	}
}

func (s *AccountService) Profile(ctx context.Context, accountID string) (*models.Profile, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.ToProfile(), nil
}

// UpdateProfile applies the provided fields. Birth date must be before today
// and gender one of male or female.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, update models.ProfileUpdate) (*models.Profile, error) {
	if update.BirthDate != nil {
		today := s.now().UTC().Truncate(24 * time.Hour)
		if !update.BirthDate.Before(today) {
			return nil, fmt.Errorf("%w: birth_date must be before today", models.ErrBadRequest)
		}
	}
	if update.Gender != nil {
		g := strings.ToLower(*update.Gender)
		if g != "male" && g != "female" {
			return nil, fmt.Errorf("%w: gender must be male or female", models.ErrBadRequest)
		}
		update.Gender = &g
	}

	account, err := s.accounts.UpdateProfile(ctx, accountID, update)
	if err != nil {
		return nil, err
	}

	s.audit.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventProfileUpdate, Realm: string(s.realm), AccountID: accountID,
	})
	return account.ToProfile(), nil
}

// ChangePassword replaces the password after checking the current one and
// mails a best-effort notice
func (s *AccountService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidPassword, err)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(account.PasswordHash, currentPassword); err != nil {
		s.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventPasswordChange, Realm: string(s.realm), AccountID: accountID,
			FailureReason: "wrong_current_password",
		})
		return models.ErrBadCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, accountID, hash); err != nil {
		return err
	}

	s.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventPasswordChange, Realm: string(s.realm), AccountID: accountID, Success: true,
	})

	deliver(ctx, s.notifier, s.sendTimeout, s.logger, PasswordChangedMessage(account.Email, s.now()))
	return nil
}

// CheckEmail reports whether an account with this email exists
func (s *AccountService) CheckEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Logout blacklists the presented token until it would have expired
func (s *AccountService) Logout(ctx context.Context, claims *models.TokenClaims) error {
	expiresAt := s.now().Add(s.tokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.revocations.RevokeToken(ctx, claims.ID, s.realm, claims.AccountID, claims.Type, expiresAt, "logout"); err != nil {
		return err
	}

	s.audit.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogout, Realm: string(s.realm), AccountID: claims.AccountID,
	})
	return nil
}

// LogoutAll rotates the account's token key, which invalidates every
// outstanding token, and records an audit row
func (s *AccountService) LogoutAll(ctx context.Context, accountID string) error {
	if err := s.accounts.RotateTokenKey(ctx, accountID); err != nil {
		return err
	}

	if err := s.revocations.RevokeAllAccountTokens(ctx, s.realm, accountID, s.tokenTTL, "logout_all"); err != nil {
		s.logger.Warn("failed to record logout-all", slog.String("account_id", accountID), slog.Any("error", err))
	}

	s.audit.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogoutAll, Realm: string(s.realm), AccountID: accountID,
	})
	return nil
}

// SetClock overrides the time source
func (s *AccountService) SetClock(now func() time.Time) {
	s.now = now
}
