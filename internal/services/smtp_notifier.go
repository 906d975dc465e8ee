package services

import (
	"context"
	"fmt"
	"log/slog"

	pkglogger "github.com/kosanku/kosanku-api/pkg/logger"
	"gopkg.in/gomail.v2"
)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier sends mail over SMTP, e.g. to MailHog in development
type SMTPNotifier struct {
	dialer      mailDialer
	fromAddress string
	logger      *slog.Logger
}

func NewSMTPNotifier(host string, port int, username, password, fromAddress string, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		dialer:      gomail.NewDialer(host, port, username, password),
		fromAddress: fromAddress,
		logger:      logger,
	}
}

// Send dials per message. gomail has no context support, so a slow server
// can outlive ctx; the goroutine result is dropped in that case.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.fromAddress)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	done := make(chan error, 1)
	go func() { done <- n.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}

	n.logger.Info("email sent", slog.String("email", pkglogger.SanitizedEmail(msg.To)))
	return nil
}
