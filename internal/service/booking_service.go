package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"guesthouse/internal/domain"
	"guesthouse/internal/events"
	"guesthouse/internal/mail"
	"guesthouse/internal/models"
	"guesthouse/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BookingRequest is the validated booking form.
type BookingRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=50"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,ghphone"`
	CheckIn       string `json:"checkin" validate:"required,datetime=2006-01-02"`
	CheckOut      string `json:"checkout" validate:"required,datetime=2006-01-02"`
	Adults        int    `json:"adults" validate:"gte=1,lte=10"`
	Children      int    `json:"children" validate:"gte=0,lte=10"`
	RoomType      string `json:"room_type" validate:"required"`
	Message       string `json:"message" validate:"max=500"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=online later"`
}

func (r *BookingRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = normalizePhone(r.Phone)
	r.CheckIn = strings.TrimSpace(r.CheckIn)
	r.CheckOut = strings.TrimSpace(r.CheckOut)
	r.RoomType = strings.ToLower(strings.TrimSpace(r.RoomType))
	r.Message = strings.TrimSpace(r.Message)
	r.PaymentMethod = strings.ToLower(strings.TrimSpace(r.PaymentMethod))
	if r.PaymentMethod == "" {
		r.PaymentMethod = models.PaymentMethodLater
	}
}

type RefundRequest struct {
	Reason string   `json:"reason" validate:"required,max=500"`
	Amount *float64 `json:"amount" validate:"omitempty,gte=0"`
	Method string   `json:"method" validate:"max=50"`
}

type BookingService struct {
	bookings   *storage.Repository[models.Booking]
	rooms      []models.RoomRate
	mailer     domain.Mailer
	eventBus   domain.EventPublisher
	adminEmail string
	locks      *storage.KeyedLock
	now        func() time.Time
	logger     *zerolog.Logger
}

func NewBookingService(
	store storage.Store,
	rooms []models.RoomRate,
	mailer domain.Mailer,
	eventBus domain.EventPublisher,
	adminEmail string,
	logger *zerolog.Logger,
) *BookingService {
	log := logger.With().Str("component", "bookings").Logger()
	return &BookingService{
		bookings:   storage.NewRepository[models.Booking](store.Collection(models.CollectionBookings), "id"),
		rooms:      rooms,
		mailer:     mailer,
		eventBus:   eventBus,
		adminEmail: adminEmail,
		locks:      storage.NewKeyedLock(10 * time.Millisecond),
		now:        time.Now,
		logger:     &log,
	}
}

// Rooms returns the configured price list.
func (s *BookingService) Rooms() []models.RoomRate {
	return append([]models.RoomRate(nil), s.rooms...)
}

func (s *BookingService) room(roomType string) (models.RoomRate, bool) {
	for _, r := range s.rooms {
		if r.Type == roomType {
			return r, true
		}
	}
	return models.RoomRate{}, false
}

// Create validates the request, prices the stay and persists a pending booking.
// Notifications are queued; their failure never fails the booking.
func (s *BookingService) Create(ctx context.Context, req BookingRequest) (*models.Booking, error) {
	req.normalize()
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	room, ok := s.room(req.RoomType)
	if !ok {
		return nil, invalid("room_type", "Invalid room type selected.")
	}

	now := s.now()
	checkin, checkout, err := s.parseStay(now, req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	nights := nightsBetween(checkin, checkout)
	amount := 0.0
	if !room.CustomPricing() {
		amount = roundMoney(room.NightlyRate * float64(nights))
	}

	booking := &models.Booking{
		ID:             newShortID(),
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		CheckIn:        req.CheckIn,
		CheckOut:       req.CheckOut,
		Adults:         req.Adults,
		Children:       req.Children,
		RoomType:       room.Type,
		Message:        req.Message,
		PaymentMethod:  req.PaymentMethod,
		Nights:         nights,
		NightlyRate:    room.NightlyRate,
		Amount:         amount,
		RequiredAmount: amount,
		Status:         models.StatusPending,
		PaymentStatus:  models.PaymentPending,
		Timestamp:      now.Format(models.TimestampLayout),
	}

	if err := s.bookings.Insert(ctx, booking); err != nil {
		return nil, fmt.Errorf("save booking: %w", err)
	}

	data := s.emailData(booking)
	s.mailer.Enqueue(ctx, mail.KindConfirmation, booking.Email, data)
	s.mailer.Enqueue(ctx, mail.KindAdminNotification, s.adminEmail, data)
	s.publish(events.EventBookingCreated, events.NewBookingPayload(booking))

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("room_type", booking.RoomType).
		Int("nights", nights).
		Float64("required_amount", booking.RequiredAmount).
		Msg("booking created")

	return booking, nil
}

// parseStay enforces checkout after checkin and checkin not before today.
func (s *BookingService) parseStay(now time.Time, checkinRaw, checkoutRaw string) (time.Time, time.Time, error) {
	checkin, err := time.Parse(models.DateLayout, checkinRaw)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("checkin", "checkin must be a date in YYYY-MM-DD format")
	}
	checkout, err := time.Parse(models.DateLayout, checkoutRaw)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("checkout", "checkout must be a date in YYYY-MM-DD format")
	}

	today, _ := time.Parse(models.DateLayout, now.Format(models.DateLayout))
	if checkin.Before(today) {
		return time.Time{}, time.Time{}, invalid("checkin", "Check-in date cannot be in the past.")
	}
	if !checkout.After(checkin) {
		return time.Time{}, time.Time{}, invalid("checkout", "Check-out date must be after check-in date.")
	}
	return checkin, checkout, nil
}

func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookings.Get(ctx, id)
	if storage.IsNotFound(err) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", id, err)
	}
	return booking, nil
}

func (s *BookingService) List(ctx context.Context) ([]models.Booking, error) {
	bookings, err := s.bookings.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// mutate applies fn to the stored booking under a per-booking lock and saves
// the result when fn reports a change.
func (s *BookingService) mutate(ctx context.Context, id string, fn func(b *models.Booking) (bool, error)) (*models.Booking, error) {
	if err := s.locks.Acquire(ctx, id); err != nil {
		return nil, err
	}
	defer s.locks.Release(id)

	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := fn(booking)
	if err != nil {
		return nil, err
	}
	if !changed {
		return booking, nil
	}
	booking.UpdatedAt = s.now().Format(models.TimestampLayout)
	if err := s.bookings.Save(ctx, id, booking); err != nil {
		return nil, fmt.Errorf("save booking %s: %w", id, err)
	}
	return booking, nil
}

// ChangeDates moves the stay. Status, payment state and the required amount
// snapshot are left untouched.
func (s *BookingService) ChangeDates(ctx context.Context, id, checkinRaw, checkoutRaw string) (*models.Booking, error) {
	var previousCheckIn, previousCheckOut string

	booking, err := s.mutate(ctx, id, func(b *models.Booking) (bool, error) {
		if b.Status == models.StatusRefunded {
			return false, ErrBookingRefunded
		}
		checkin, checkout, err := s.parseStay(s.now(), strings.TrimSpace(checkinRaw), strings.TrimSpace(checkoutRaw))
		if err != nil {
			return false, err
		}
		previousCheckIn, previousCheckOut = b.CheckIn, b.CheckOut
		b.CheckIn = checkin.Format(models.DateLayout)
		b.CheckOut = checkout.Format(models.DateLayout)
		b.Nights = nightsBetween(checkin, checkout)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	data := s.emailData(booking)
	data["previous_checkin"] = previousCheckIn
	data["previous_checkout"] = previousCheckOut
	s.mailer.Enqueue(ctx, mail.KindDateChange, booking.Email, data)
	s.mailer.Enqueue(ctx, mail.KindDateChange, s.adminEmail, data)
	s.publish(events.EventBookingDatesChanged, events.NewBookingPayload(booking))

	s.logger.Info().
		Str("booking_id", id).
		Str("checkin", booking.CheckIn).
		Str("checkout", booking.CheckOut).
		Msg("booking dates changed")
	return booking, nil
}

// Refund records an admin refund and moves the booking to refunded.
func (s *BookingService) Refund(ctx context.Context, id string, req RefundRequest) (*models.Booking, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	req.Method = strings.TrimSpace(req.Method)
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	booking, err := s.mutate(ctx, id, func(b *models.Booking) (bool, error) {
		if b.Status == models.StatusRefunded {
			return false, ErrBookingRefunded
		}
		amount := 0.0
		switch {
		case req.Amount != nil:
			amount = roundMoney(*req.Amount)
		case b.PaidAmount != nil:
			amount = *b.PaidAmount
		}
		method := req.Method
		if method == "" {
			method = "manual"
		}

		b.Status = models.StatusRefunded
		b.PaymentStatus = models.PaymentRefunded
		b.RefundReason = req.Reason
		b.RefundAmount = &amount
		b.RefundMethod = method
		b.RefundedAt = s.now().Format(models.TimestampLayout)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	data := s.emailData(booking)
	s.mailer.Enqueue(ctx, mail.KindRefund, booking.Email, data)
	s.mailer.Enqueue(ctx, mail.KindRefund, s.adminEmail, data)
	s.publish(events.EventBookingRefunded, events.NewBookingPayload(booking))

	s.logger.Info().
		Str("booking_id", id).
		Float64("refund_amount", *booking.RefundAmount).
		Str("refund_method", booking.RefundMethod).
		Msg("booking refunded")
	return booking, nil
}

func (s *BookingService) emailData(b *models.Booking) models.Payload {
	data := b.EmailData()
	if room, ok := s.room(b.RoomType); ok {
		data["room_name"] = room.Name
	}
	return data
}

func (s *BookingService) publish(eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func nightsBetween(checkin, checkout time.Time) int {
	return int(checkout.Sub(checkin).Hours() / 24)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// newShortID returns the first eight characters of a random UUID.
func newShortID() string {
	return uuid.NewString()[:8]
}

// IsNotFound reports whether err is one of the service not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrTestimonialNotFound)
}
