package mail

import (
	"context"
	"errors"
	"fmt"

	"guesthouse/internal/config"
	"guesthouse/internal/models"

	"github.com/rs/zerolog"
)

var ErrNoRecipient = errors.New("email recipient is empty")

// Dispatcher renders a template and hands it to the transport.
type Dispatcher struct {
	renderer   *Renderer
	transport  Transport
	from       string
	adminEmail string
	logger     *zerolog.Logger
}

func NewDispatcher(renderer *Renderer, transport Transport, from, adminEmail string, logger *zerolog.Logger) *Dispatcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Dispatcher{
		renderer:   renderer,
		transport:  transport,
		from:       from,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

// New wires a dispatcher from config, picking SMTP when credentials are set.
func New(cfg config.MailConfig, app config.AppConfig, currency string, logger *zerolog.Logger) (*Dispatcher, error) {
	renderer, err := NewRenderer(app.Name, currency)
	if err != nil {
		return nil, err
	}

	var transport Transport
	if cfg.Enabled() {
		transport = NewSMTPTransport(cfg)
	} else {
		if logger != nil {
			logger.Warn().Msg("mail credentials missing, emails will be logged only")
		}
		transport = NewLogTransport(logger)
	}
	return NewDispatcher(renderer, transport, cfg.From, cfg.AdminEmail, logger), nil
}

// AdminEmail is the recipient of admin notifications.
func (d *Dispatcher) AdminEmail() string {
	return d.adminEmail
}

// Send renders and delivers one message. Transport errors are returned so the
// email queue can retry them.
func (d *Dispatcher) Send(ctx context.Context, kind Kind, to string, data models.Payload) error {
	if to == "" {
		return ErrNoRecipient
	}
	subject, body, err := d.renderer.Render(kind, data)
	if err != nil {
		return err
	}

	msg := Message{From: d.from, To: to, Subject: subject, HTML: body}
	if err := d.transport.Send(ctx, msg); err != nil {
		d.logger.Warn().Err(err).Str("kind", string(kind)).Str("to", to).Msg("email delivery failed")
		return fmt.Errorf("send %s to %s: %w", kind, to, err)
	}

	d.logger.Debug().Str("kind", string(kind)).Str("to", to).Msg("email sent")
	return nil
}
