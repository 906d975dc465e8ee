package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventRegister       = "register"
	EventOTPVerify      = "otp_verify"
	EventLogin          = "login"
	EventLockout        = "lockout"
	EventForgotPassword = "forgot_password"
	EventPasswordReset  = "password_reset"
	EventPasswordChange = "password_change"
	EventLogout         = "logout"
	EventLogoutAll      = "logout_all"
	EventProfileUpdate  = "profile_update"
)

// AuditEvent is a single security-relevant outcome
type AuditEvent struct {
	EventType     string
	Realm         string
	AccountID     string
	Email         string // masked before it is written
	IPAddress     string
	Success       bool
	FailureReason string
}

// AuditLogger writes audit events to the structured log
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogAuthAttempt records the outcome of a credential or code check.
// Failures are logged at warn.
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	attrs = append(attrs, event.attrs()...)

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogAccountAction records a state change on an account
func (al *AuditLogger) LogAccountAction(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "account"),
		slog.String("event_type", event.EventType),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	attrs = append(attrs, event.attrs()...)
	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}

func (e AuditEvent) attrs() []slog.Attr {
	var attrs []slog.Attr
	if e.Realm != "" {
		attrs = append(attrs, slog.String("realm", e.Realm))
	}
	if e.AccountID != "" {
		attrs = append(attrs, slog.String("account_id", e.AccountID))
	}
	if e.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(e.Email)))
	}
	if e.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", e.IPAddress))
	}
	if e.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", e.FailureReason))
	}
	return attrs
}
