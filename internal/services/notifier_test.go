package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/kosanku/kosanku-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESNotifier_Send(t *testing.T) {
	client := &fakeSES{}
	n := &SESNotifier{client: client, fromAddress: "no-reply@kosanku.id", logger: quietLogger()}

	msg := OTPMessage("budi@example.com", "482913", 15*time.Minute)
	require.NoError(t, n.Send(context.Background(), msg))

	require.NotNil(t, client.input)
	assert.Equal(t, "no-reply@kosanku.id", aws.ToString(client.input.Source))
	assert.Equal(t, []string{"budi@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, msg.Subject, aws.ToString(client.input.Message.Subject.Data))
	assert.Contains(t, aws.ToString(client.input.Message.Body.Text.Data), "482913")
	assert.Contains(t, aws.ToString(client.input.Message.Body.Html.Data), "482913")
}

func TestSESNotifier_SendError(t *testing.T) {
	n := &SESNotifier{client: &fakeSES{err: errors.New("throttled")}, fromAddress: "no-reply@kosanku.id", logger: quietLogger()}

	err := n.Send(context.Background(), OTPMessage("budi@example.com", "482913", 15*time.Minute))
	assert.ErrorContains(t, err, "throttled")
}

type fakeDialer struct {
	sent  []*gomail.Message
	err   error
	block chan struct{}
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.block != nil {
		<-d.block
	}
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSMTPNotifier_Send(t *testing.T) {
	dialer := &fakeDialer{}
	n := &SMTPNotifier{dialer: dialer, fromAddress: "no-reply@kosanku.id", logger: quietLogger()}

	require.NoError(t, n.Send(context.Background(), OTPMessage("budi@example.com", "482913", 15*time.Minute)))
	require.Len(t, dialer.sent, 1)
	assert.Equal(t, []string{"budi@example.com"}, dialer.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"no-reply@kosanku.id"}, dialer.sent[0].GetHeader("From"))
}

func TestSMTPNotifier_SendError(t *testing.T) {
	n := &SMTPNotifier{dialer: &fakeDialer{err: errors.New("connection refused")}, fromAddress: "a@b.c", logger: quietLogger()}

	err := n.Send(context.Background(), OTPMessage("budi@example.com", "482913", 15*time.Minute))
	assert.ErrorContains(t, err, "connection refused")
}

func TestSMTPNotifier_SendHonoursContext(t *testing.T) {
	dialer := &fakeDialer{block: make(chan struct{})}
	defer close(dialer.block)
	n := &SMTPNotifier{dialer: dialer, fromAddress: "a@b.c", logger: quietLogger()}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := n.Send(ctx, OTPMessage("budi@example.com", "482913", 15*time.Minute))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewNotifier(t *testing.T) {
	ctx := context.Background()

	n, err := NewNotifier(ctx, config.MailConfig{Driver: "log"}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)
	assert.NoError(t, n.Send(ctx, OTPMessage("budi@example.com", "482913", time.Minute)))

	n, err = NewNotifier(ctx, config.MailConfig{Driver: "smtp", SMTPHost: "localhost", SMTPPort: 1025, From: "a@b.c"}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &SMTPNotifier{}, n)

	_, err = NewNotifier(ctx, config.MailConfig{Driver: "pigeon"}, quietLogger())
	assert.Error(t, err)
}

type failingNotifier struct {
	calls  int
	ctxErr error
}

func (f *failingNotifier) Send(ctx context.Context, msg Message) error {
	f.calls++
	f.ctxErr = ctx.Err()
	return errors.New("bounce")
}

func TestDeliver_SwallowsErrorsAndDetachesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := &failingNotifier{}
	deliver(ctx, n, time.Second, quietLogger(), PasswordChangedMessage("budi@example.com", time.Now()))
	assert.Equal(t, 1, n.calls)
	assert.NoError(t, n.ctxErr)
}
