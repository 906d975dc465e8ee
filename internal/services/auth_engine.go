package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kosanku/kosanku-api/internal/models"
	pkgauth "github.com/kosanku/kosanku-api/pkg/auth"
	pkglogger "github.com/kosanku/kosanku-api/pkg/logger"
)

// AccountRepository is the credential store for one realm
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdateStatus(ctx context.Context, id string, status models.AccountStatus) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ResetPassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.Account, error)
	RotateTokenKey(ctx context.Context, id string) error
}

// TokenIssuer creates session tokens
type TokenIssuer interface {
	GenerateAccessToken(realm models.Realm, account *models.Account) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) error
}

// Delayer pads failed logins; see auth.TimingDelay
type Delayer interface {
	Wait(ctx context.Context)
}

type EngineConfig struct {
	Realm            models.Realm
	MaxLoginAttempts int
	MaxOTPAttempts   int
}

// EngineDeps groups the collaborators of an AuthEngine
type EngineDeps struct {
	Accounts AccountRepository
	OTPs     *OTPService
	Limiter  *RateLimitService
	Tokens   TokenIssuer
	Hasher   PasswordHasher
	Delay    Delayer
	Logger   *slog.Logger
	Audit    *pkglogger.AuditLogger
}

// AuthEngine is the OTP-gated authentication state machine for one realm.
// The same engine serves users and admins; the realm selects the tables,
// the rate-limit namespace and the token realm claim.
type AuthEngine struct {
	cfg      EngineConfig
	accounts AccountRepository
	otps     *OTPService
	limiter  *RateLimitService
	tokens   TokenIssuer
	hasher   PasswordHasher
	delay    Delayer
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
}

func NewAuthEngine(cfg EngineConfig, deps EngineDeps) *AuthEngine {
	return &AuthEngine{
		cfg:      cfg,
		accounts: deps.Accounts,
		otps:     deps.OTPs,
		limiter:  deps.Limiter,
		tokens:   deps.Tokens,
		hasher:   deps.Hasher,
		delay:    deps.Delay,
		logger:   deps.Logger.With(slog.String("realm", string(cfg.Realm))),
		audit:    deps.Audit,
	}
}

func (e *AuthEngine) Realm() models.Realm {
	return e.cfg.Realm
}

type RegisterInput struct {
	Email    string
	Password string
	FullName *string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (e *AuthEngine) auditAuth(ctx context.Context, event string, account *models.Account, email string, err error) {
	ev := pkglogger.AuditEvent{
		EventType: event,
		Realm:     string(e.cfg.Realm),
		Email:     email,
		Success:   err == nil,
	}
	if account != nil {
		ev.AccountID = account.ID
	}
	if err != nil {
		ev.FailureReason = err.Error()
	}
	e.audit.LogAuthAttempt(ctx, ev)
}

// Register creates a PENDING account and mails its first OTP
func (e *AuthEngine) Register(ctx context.Context, in RegisterInput) error {
	email := normalizeEmail(in.Email)

	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidPassword, err)
	}

	_, err := e.accounts.GetByEmail(ctx, email)
	if err == nil {
		return models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return err
	}

	account, err := e.accounts.Create(ctx, &models.Account{
		Email:        email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Status:       models.StatusPending,
	})
	if err != nil {
		return err
	}

	e.audit.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventRegister, Realm: string(e.cfg.Realm), AccountID: account.ID, Email: email,
	})

	_, err = e.otps.Issue(ctx, account)
	return err
}

// ResendOTP mails a new activation code to a PENDING account
func (e *AuthEngine) ResendOTP(ctx context.Context, email string) error {
	account, err := e.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if account.IsActive() {
		return models.ErrAlreadyActive
	}

	if err := e.checkCooldown(ctx, account); err != nil {
		return err
	}

	_, err = e.otps.Issue(ctx, account)
	return err
}

func (e *AuthEngine) checkCooldown(ctx context.Context, account *models.Account) error {
	wait, err := e.otps.CooldownRemaining(ctx, account.ID)
	if err != nil {
		return err
	}
	if wait > 0 {
		return &models.RetryError{Err: models.ErrCooldown, RetryAfter: wait}
	}
	return nil
}

// VerifyOTP activates an account. A missing or expired code is replaced by
// a freshly mailed one before the failure is returned.
func (e *AuthEngine) VerifyOTP(ctx context.Context, email, code string) (*models.AuthResponse, error) {
	email = normalizeEmail(email)
	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	otp, err := e.otps.Active(ctx, account.ID)
	if errors.Is(err, models.ErrNoActiveOTP) || errors.Is(err, models.ErrOTPExpired) {
		if _, issueErr := e.otps.Issue(ctx, account); issueErr != nil {
			return nil, issueErr
		}
		e.auditAuth(ctx, pkglogger.EventOTPVerify, account, email, err)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if !e.otps.Matches(otp, code) {
		e.auditAuth(ctx, pkglogger.EventOTPVerify, account, email, models.ErrWrongCode)
		return nil, models.ErrWrongCode
	}

	if err := e.otps.Consume(ctx, otp); err != nil {
		return nil, err
	}

	if !account.IsActive() {
		if err := e.accounts.UpdateStatus(ctx, account.ID, models.StatusActive); err != nil {
			return nil, err
		}
		account.Status = models.StatusActive
	}

	e.auditAuth(ctx, pkglogger.EventOTPVerify, account, email, nil)
	return e.session(account)
}

// Login checks the password under the login lockout. The suspension check
// runs before the credential check and does not reveal whether the account
// exists.
func (e *AuthEngine) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	email = normalizeEmail(email)
	key := models.RateKey(models.ChannelLogin, email)

	if err := e.limiter.Check(ctx, key); err != nil {
		e.auditAuth(ctx, pkglogger.EventLogin, nil, email, err)
		return nil, err
	}

	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	if account == nil || e.hasher.Compare(account.PasswordHash, password) != nil {
		if e.delay != nil {
			e.delay.Wait(ctx)
		}
		remaining, err := e.limiter.RecordFailure(ctx, key, e.cfg.MaxLoginAttempts)
		if err != nil {
			var retry *models.RetryError
			if errors.As(err, &retry) {
				e.audit.LogAuthAttempt(ctx, pkglogger.AuditEvent{
					EventType: pkglogger.EventLockout, Realm: string(e.cfg.Realm), Email: email,
					FailureReason: "max_attempts_reached",
				})
			}
			return nil, err
		}
		e.auditAuth(ctx, pkglogger.EventLogin, account, email, models.ErrBadCredentials)
		return nil, &models.AttemptsError{Err: models.ErrBadCredentials, Remaining: remaining}
	}

	e.limiter.Reset(ctx, key)

	if !account.IsActive() {
		if _, err := e.otps.Issue(ctx, account); err != nil {
			return nil, err
		}
		e.auditAuth(ctx, pkglogger.EventLogin, account, email, models.ErrPendingActivation)
		return nil, models.ErrPendingActivation
	}

	e.auditAuth(ctx, pkglogger.EventLogin, account, email, nil)
	return e.session(account)
}

// ForgotPassword puts the account back into PENDING and mails a reset code
func (e *AuthEngine) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := e.limiter.Check(ctx, models.RateKey(models.ChannelForgotOTP, email)); err != nil {
		return err
	}

	if err := e.checkCooldown(ctx, account); err != nil {
		return err
	}

	if account.Status != models.StatusPending {
		if err := e.accounts.UpdateStatus(ctx, account.ID, models.StatusPending); err != nil {
			return err
		}
		account.Status = models.StatusPending
	}

	e.audit.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventForgotPassword, Realm: string(e.cfg.Realm), AccountID: account.ID, Email: email,
	})

	_, err = e.otps.Issue(ctx, account)
	return err
}

// VerifyForgotOTP resets the password when the code matches. Missing,
// expired and wrong codes all count against the forgot-otp lockout; the
// password is changed only on a full match.
func (e *AuthEngine) VerifyForgotOTP(ctx context.Context, email, code, newPassword string) error {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidPassword, err)
	}

	email = normalizeEmail(email)
	account, err := e.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	key := models.RateKey(models.ChannelForgotOTP, email)
	if err := e.limiter.Check(ctx, key); err != nil {
		return err
	}

	otp, err := e.otps.Active(ctx, account.ID)
	switch {
	case errors.Is(err, models.ErrNoActiveOTP), errors.Is(err, models.ErrOTPExpired):
		return e.forgotFailure(ctx, key, account, err)
	case err != nil:
		return err
	}

	if !e.otps.Matches(otp, code) {
		return e.forgotFailure(ctx, key, account, models.ErrWrongCode)
	}

	e.limiter.Reset(ctx, key)

	if err := e.otps.Consume(ctx, otp); err != nil {
		return err
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := e.accounts.ResetPassword(ctx, account.ID, hash); err != nil {
		return err
	}

	e.audit.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventPasswordReset, Realm: string(e.cfg.Realm), AccountID: account.ID, Email: email,
	})
	return nil
}

func (e *AuthEngine) forgotFailure(ctx context.Context, key string, account *models.Account, cause error) error {
	e.auditAuth(ctx, pkglogger.EventPasswordReset, account, account.Email, cause)

	remaining, err := e.limiter.RecordFailure(ctx, key, e.cfg.MaxOTPAttempts)
	if err != nil {
		return err
	}
	return &models.AttemptsError{Err: cause, Remaining: remaining}
}

func (e *AuthEngine) session(account *models.Account) (*models.AuthResponse, error) {
	token, err := e.tokens.GenerateAccessToken(e.cfg.Realm, account)
	if err != nil {
		e.logger.Error("failed to issue session token", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return &models.AuthResponse{AccessToken: token, Account: account.ToProfile()}, nil
}
