package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guesthouse/internal/domain"
	"guesthouse/internal/events"

	"github.com/rs/zerolog"
)

// Alerts turns domain events into owner notifications.
type Alerts struct {
	notifier domain.Notifier
	currency string
	timeout  time.Duration
	logger   *zerolog.Logger
}

func NewAlerts(notifier domain.Notifier, currency string, logger *zerolog.Logger) *Alerts {
	log := logger.With().Str("component", "alerts").Logger()
	return &Alerts{notifier: notifier, currency: currency, timeout: 10 * time.Second, logger: &log}
}

// Subscribe registers the alerts on bus. Delivery runs in its own goroutine so
// publishers never wait on the chat API.
func (a *Alerts) Subscribe(bus *events.EventBus) {
	bus.Subscribe(func(ev *events.Event) error {
		go func() {
			if err := a.Handle(ev); err != nil {
				a.logger.Warn().Err(err).Str("event", ev.Type).Msg("alert not delivered")
			}
		}()
		return nil
	},
		events.EventBookingCreated,
		events.EventBookingDatesChanged,
		events.EventBookingRefunded,
		events.EventPaymentReconciled,
		events.EventDonationReceived,
		events.EventContactReceived,
	)
}

// Handle formats and sends one alert synchronously.
func (a *Alerts) Handle(ev *events.Event) error {
	text, err := a.Format(ev)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	return a.notifier.Notify(ctx, text)
}

func (a *Alerts) Format(ev *events.Event) (string, error) {
	switch ev.Type {
	case events.EventBookingCreated, events.EventBookingDatesChanged, events.EventBookingRefunded, events.EventPaymentReconciled:
		var p events.BookingEventPayload
		if err := ev.Decode(&p); err != nil {
			return "", fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		return a.bookingText(ev.Type, p), nil
	case events.EventDonationReceived:
		var p events.DonationEventPayload
		if err := ev.Decode(&p); err != nil {
			return "", fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		text := fmt.Sprintf("Donation received: %s %.2f from %s (%s)", p.Currency, p.Amount, p.CustomerName, p.Reference)
		if p.Purpose != "" {
			text += "\nPurpose: " + p.Purpose
		}
		return text, nil
	case events.EventContactReceived:
		var p events.ContactEventPayload
		if err := ev.Decode(&p); err != nil {
			return "", fmt.Errorf("decode %s: %w", ev.Type, err)
		}
		return fmt.Sprintf("New message from %s <%s>: %s", p.Name, p.Email, p.Subject), nil
	}
	return "", nil
}

func (a *Alerts) bookingText(eventType string, p events.BookingEventPayload) string {
	var b strings.Builder
	switch eventType {
	case events.EventBookingCreated:
		fmt.Fprintf(&b, "New booking %s\n", p.BookingID)
	case events.EventBookingDatesChanged:
		fmt.Fprintf(&b, "Dates changed for booking %s\n", p.BookingID)
	case events.EventBookingRefunded:
		fmt.Fprintf(&b, "Booking %s refunded\n", p.BookingID)
	case events.EventPaymentReconciled:
		fmt.Fprintf(&b, "Payment %s for booking %s\n", p.PaymentStatus, p.BookingID)
	}
	fmt.Fprintf(&b, "%s, %s\n", p.Name, p.Phone)
	fmt.Fprintf(&b, "%s: %s to %s (%d nights)\n", p.RoomType, p.CheckIn, p.CheckOut, p.Nights)
	if p.PaidAmount != nil {
		fmt.Fprintf(&b, "Paid %s %.2f of %.2f\n", a.currency, *p.PaidAmount, p.RequiredAmount)
	} else if p.RequiredAmount > 0 {
		fmt.Fprintf(&b, "Due %s %.2f\n", a.currency, p.RequiredAmount)
	}
	fmt.Fprintf(&b, "Status: %s / %s", p.Status, p.PaymentStatus)
	if p.Note != "" {
		fmt.Fprintf(&b, "\n%s", p.Note)
	}
	return b.String()
}
