package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"guesthouse/internal/config"

	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"
)

// Message is a rendered email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Transport delivers rendered messages.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPTransport sends through an SMTP relay with a bounded timeout per message.
type SMTPTransport struct {
	dialer  *gomail.Dialer
	timeout time.Duration
}

func NewSMTPTransport(cfg config.MailConfig) *SMTPTransport {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.TLSConfig = &tls.Config{
		InsecureSkipVerify: false,
		ServerName:         cfg.Host,
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SMTPTransport{dialer: dialer, timeout: timeout}
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- t.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to send email: %w", ctx.Err())
	}
}

// LogTransport stands in when no SMTP credentials are configured: it logs the
// would-be message and reports success.
type LogTransport struct {
	logger *zerolog.Logger
}

func NewLogTransport(logger *zerolog.Logger) *LogTransport {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	t.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.HTML).
		Msg("email transport not configured, message logged instead of sent")
	return nil
}
