package events

import (
	"encoding/json"
	"sync"
	"time"

	"guesthouse/internal/models"

	"github.com/rs/zerolog"
)

const (
	EventBookingCreated      = "booking_created"
	EventBookingDatesChanged = "booking_dates_changed"
	EventBookingRefunded     = "booking_refunded"
	EventPaymentReconciled   = "payment_reconciled"
	EventDonationReceived    = "donation_received"
	EventContactReceived     = "contact_received"
)

// BookingEventPayload is the booking snapshot handed to event consumers.
type BookingEventPayload struct {
	BookingID      string   `json:"booking_id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	RoomType       string   `json:"room_type"`
	CheckIn        string   `json:"checkin"`
	CheckOut       string   `json:"checkout"`
	Nights         int      `json:"nights"`
	RequiredAmount float64  `json:"required_amount"`
	Status         string   `json:"status"`
	PaymentStatus  string   `json:"payment_status"`
	PaidAmount     *float64 `json:"paid_amount,omitempty"`
	Reference      string   `json:"reference,omitempty"`
	Note           string   `json:"note,omitempty"`
}

func NewBookingPayload(b *models.Booking) BookingEventPayload {
	return BookingEventPayload{
		BookingID:      b.ID,
		Name:           b.Name,
		Email:          b.Email,
		Phone:          b.Phone,
		RoomType:       b.RoomType,
		CheckIn:        b.CheckIn,
		CheckOut:       b.CheckOut,
		Nights:         b.Nights,
		RequiredAmount: b.RequiredAmount,
		Status:         b.Status,
		PaymentStatus:  b.PaymentStatus,
		PaidAmount:     b.PaidAmount,
		Reference:      b.PaymentReference,
		Note:           b.PaymentNote,
	}
}

// DonationEventPayload describes a settled donation.
type DonationEventPayload struct {
	Reference    string  `json:"reference"`
	CustomerName string  `json:"customer_name"`
	Email        string  `json:"email"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Purpose      string  `json:"purpose,omitempty"`
}

type ContactEventPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. Handler errors are logged to logger when set.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for one or more event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, eventType := range eventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], handler)
	}
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && b.logger != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
