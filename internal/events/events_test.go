package events

import (
	"bytes"
	"errors"
	"testing"

	"guesthouse/internal/models"

	"github.com/rs/zerolog"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus(nil)

	var received *Event
	var callCount int

	bus.Subscribe(func(event *Event) error {
		received = event
		callCount++
		return nil
	}, EventBookingCreated)

	paid := 796.0
	booking := &models.Booking{ID: "abc12345", Name: "Ama", Status: models.StatusConfirmed, PaidAmount: &paid}
	if err := bus.PublishJSON(EventBookingCreated, NewBookingPayload(booking)); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventBookingCreated {
		t.Errorf("expected type %s, got %s", EventBookingCreated, received.Type)
	}

	var decoded BookingEventPayload
	if err := received.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.BookingID != "abc12345" || decoded.PaidAmount == nil || *decoded.PaidAmount != 796 {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestEventBusMultipleTypes(t *testing.T) {
	bus := NewEventBus(nil)
	var count1, count2 int

	bus.Subscribe(func(_ *Event) error { count1++; return nil }, EventBookingRefunded, EventPaymentReconciled)
	bus.Subscribe(func(_ *Event) error { count2++; return nil }, EventPaymentReconciled)

	bus.Publish(&Event{Type: EventBookingRefunded})
	bus.Publish(&Event{Type: EventPaymentReconciled})

	if count1 != 2 || count2 != 1 {
		t.Errorf("expected 2 and 1 calls, got %d and %d", count1, count2)
	}
}

func TestEventBusHandlerErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bus := NewEventBus(&logger)

	var second bool
	bus.Subscribe(func(_ *Event) error { return errors.New("telegram down") }, EventDonationReceived)
	bus.Subscribe(func(_ *Event) error { second = true; return nil }, EventDonationReceived)

	if err := bus.PublishJSON(EventDonationReceived, DonationEventPayload{Reference: "DON-1"}); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}
	if !second {
		t.Errorf("a failing handler must not stop the others")
	}
	if !bytes.Contains(buf.Bytes(), []byte("telegram down")) {
		t.Errorf("expected handler error in log, got %q", buf.String())
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	bus.Publish(&Event{Type: "unknown"})
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}

	var nilBus *EventBus
	if err := nilBus.PublishJSON(EventBookingCreated, nil); err != nil {
		t.Errorf("nil bus must be a no-op, got %v", err)
	}
}

func TestNewJSONEvent(t *testing.T) {
	event, err := NewJSONEvent(EventContactReceived, ContactEventPayload{Name: "Kofi"})
	if err != nil {
		t.Fatalf("NewJSONEvent failed: %v", err)
	}
	if event.Type != EventContactReceived {
		t.Errorf("expected %s, got %s", EventContactReceived, event.Type)
	}
	var decoded ContactEventPayload
	if err := event.Decode(&decoded); err != nil || decoded.Name != "Kofi" {
		t.Errorf("unexpected payload %+v err=%v", decoded, err)
	}
}
