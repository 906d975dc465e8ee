package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kosanku/kosanku-api/internal/config"
	pkglogger "github.com/kosanku/kosanku-api/pkg/logger"
)

// Message is a rendered email
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Notifier delivers a message to its recipient
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NewNotifier picks the delivery backend named by MAIL_DRIVER
func NewNotifier(ctx context.Context, cfg config.MailConfig, logger *slog.Logger) (Notifier, error) {
	switch cfg.Driver {
	case "ses":
		return NewSESNotifier(ctx, cfg.AWSRegion, cfg.From, logger)
	case "smtp":
		return NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.From, logger), nil
	case "log", "":
		return NewLogNotifier(logger), nil
	}
	return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
}

// LogNotifier writes messages to the log instead of sending them
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "mail not sent (log driver)",
		slog.String("to", pkglogger.SanitizedEmail(msg.To)),
		slog.String("subject", msg.Subject))
	return nil
}

// deliver sends msg with its own timeout, detached from the caller's
// cancellation. Failures are logged, never returned.
func deliver(ctx context.Context, n Notifier, timeout time.Duration, logger *slog.Logger, msg Message) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := n.Send(sendCtx, msg); err != nil {
		logger.Error("failed to send mail",
			slog.String("email", pkglogger.SanitizedEmail(msg.To)),
			slog.String("subject", msg.Subject),
			slog.Any("error", err))
	}
}
