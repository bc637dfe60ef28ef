package domain

import (
	"context"

	"guesthouse/internal/mail"
	"guesthouse/internal/models"
	"guesthouse/internal/payment"
)

// Mailer hands notification jobs to the background email queue.
type Mailer interface {
	Enqueue(ctx context.Context, kind mail.Kind, to string, data models.Payload)
}

type PaymentGateway interface {
	Initialize(ctx context.Context, req payment.InitializeRequest) (*payment.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*payment.Transaction, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier delivers short plain-text alerts to the site owner.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type VisitorCounter interface {
	Increment(ctx context.Context) (int64, error)
	Get(ctx context.Context) (int64, error)
}
