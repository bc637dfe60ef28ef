package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"guesthouse/internal/config"
	"guesthouse/internal/domain"
	"guesthouse/internal/events"
	"guesthouse/internal/mail"
	"guesthouse/internal/metrics"
	"guesthouse/internal/models"
	"guesthouse/internal/payment"
	"guesthouse/internal/storage"

	"github.com/rs/zerolog"
)

type InitPaymentRequest struct {
	BookingID   string  `json:"booking_id" validate:"required"`
	Email       string  `json:"email" validate:"omitempty,email"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	CallbackURL string  `json:"callback_url" validate:"omitempty,url"`
}

type DonationRequest struct {
	Email        string  `json:"email" validate:"required,email"`
	CustomerName string  `json:"customer_name" validate:"required,min=2,max=100"`
	Amount       float64 `json:"amount" validate:"gt=0"`
	CallbackURL  string  `json:"callback_url" validate:"omitempty,url"`
	Purpose      string  `json:"donation_purpose" validate:"max=200"`
}

// PaymentSession is what the browser needs to continue on the hosted checkout page.
type PaymentSession struct {
	AuthorizationURL string  `json:"authorization_url"`
	AccessCode       string  `json:"access_code"`
	Reference        string  `json:"reference"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
}

// PaymentResult is the outcome of applying a gateway transaction.
type PaymentResult struct {
	Payment   *models.Payment
	Booking   *models.Booking
	Duplicate bool
}

type PaymentService struct {
	payments      *storage.Repository[models.Payment]
	bookings      *BookingService
	gateway       domain.PaymentGateway
	mailer        domain.Mailer
	eventBus      domain.EventPublisher
	adminEmail    string
	currency      string
	callbackURL   string
	webhookSecret string
	locks         *storage.KeyedLock
	now           func() time.Time
	logger        *zerolog.Logger
}

func NewPaymentService(
	store storage.Store,
	bookings *BookingService,
	gateway domain.PaymentGateway,
	cfg config.PaystackConfig,
	mailer domain.Mailer,
	eventBus domain.EventPublisher,
	adminEmail string,
	logger *zerolog.Logger,
) *PaymentService {
	log := logger.With().Str("component", "payments").Logger()
	currency := cfg.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &PaymentService{
		payments:      storage.NewRepository[models.Payment](store.Collection(models.CollectionPayments), "reference"),
		bookings:      bookings,
		gateway:       gateway,
		mailer:        mailer,
		eventBus:      eventBus,
		adminEmail:    adminEmail,
		currency:      currency,
		callbackURL:   cfg.CallbackURL,
		webhookSecret: cfg.WebhookSecret,
		locks:         storage.NewKeyedLock(10 * time.Millisecond),
		now:           time.Now,
		logger:        &log,
	}
}

func (s *PaymentService) List(ctx context.Context) ([]models.Payment, error) {
	payments, err := s.payments.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func (s *PaymentService) Get(ctx context.Context, reference string) (*models.Payment, error) {
	p, err := s.payments.Get(ctx, reference)
	if storage.IsNotFound(err) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load payment %s: %w", reference, err)
	}
	return p, nil
}

// InitializeBooking opens a hosted checkout for an existing booking. A gateway
// failure is returned to the caller and leaves the booking as it was.
func (s *PaymentService) InitializeBooking(ctx context.Context, req InitPaymentRequest) (*PaymentSession, error) {
	req.BookingID = strings.TrimSpace(req.BookingID)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	booking, err := s.bookings.Get(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.Settled() {
		return nil, ErrBookingSettled
	}

	amount := req.Amount
	if amount == 0 {
		amount = booking.RequiredAmount
	}
	if amount <= 0 {
		return nil, ErrCustomPricing
	}
	email := req.Email
	if email == "" {
		email = booking.Email
	}

	reference := fmt.Sprintf("GH-%s-%s", booking.ID, newShortID())
	result, err := s.initialize(ctx, payment.InitializeRequest{
		Reference:   reference,
		Email:       email,
		Amount:      amount,
		Currency:    s.currency,
		CallbackURL: s.callback(req.CallbackURL),
		Metadata: map[string]any{
			"kind":          models.PaymentKindBooking,
			"booking_id":    booking.ID,
			"customer_name": booking.Name,
			"room_type":     booking.RoomType,
		},
	})
	if err != nil {
		return nil, err
	}

	record := &models.Payment{
		Reference:        reference,
		Kind:             models.PaymentKindBooking,
		BookingID:        booking.ID,
		Email:            email,
		CustomerName:     booking.Name,
		Amount:           amount,
		Currency:         s.currency,
		Status:           models.TransactionPending,
		AuthorizationURL: result.AuthorizationURL,
		CreatedAt:        s.now().Format(models.TimestampLayout),
	}
	s.savePending(ctx, record)

	_, err = s.bookings.mutate(ctx, booking.ID, func(b *models.Booking) (bool, error) {
		b.PaymentReference = reference
		b.PaymentMethod = models.PaymentMethodOnline
		return true, nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Str("reference", reference).Msg("failed to link payment reference to booking")
	}

	return &PaymentSession{
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Reference:        reference,
		Amount:           amount,
		Currency:         s.currency,
	}, nil
}

// InitializeDonation opens a hosted checkout that is not tied to a booking.
func (s *PaymentService) InitializeDonation(ctx context.Context, req DonationRequest) (*PaymentSession, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Purpose = strings.TrimSpace(req.Purpose)
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	amount := roundMoney(req.Amount)
	reference := fmt.Sprintf("DON-%d-%s", s.now().Unix(), newShortID())
	result, err := s.initialize(ctx, payment.InitializeRequest{
		Reference:   reference,
		Email:       req.Email,
		Amount:      amount,
		Currency:    s.currency,
		CallbackURL: s.callback(req.CallbackURL),
		Metadata: map[string]any{
			"kind":             models.PaymentKindDonation,
			"customer_name":    req.CustomerName,
			"donation_purpose": req.Purpose,
		},
	})
	if err != nil {
		return nil, err
	}

	s.savePending(ctx, &models.Payment{
		Reference:        reference,
		Kind:             models.PaymentKindDonation,
		Email:            req.Email,
		CustomerName:     req.CustomerName,
		Amount:           amount,
		Currency:         s.currency,
		Status:           models.TransactionPending,
		AuthorizationURL: result.AuthorizationURL,
		DonationPurpose:  req.Purpose,
		CreatedAt:        s.now().Format(models.TimestampLayout),
	})

	return &PaymentSession{
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Reference:        reference,
		Amount:           amount,
		Currency:         s.currency,
	}, nil
}

func (s *PaymentService) initialize(ctx context.Context, req payment.InitializeRequest) (*payment.InitializeResult, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	result, err := s.gateway.Initialize(ctx, req)
	if errors.Is(err, payment.ErrNotConfigured) {
		return nil, ErrPaymentsDisabled
	}
	if err != nil {
		s.logger.Error().Err(err).Str("reference", req.Reference).Msg("payment initialization failed")
		return nil, fmt.Errorf("initialize payment: %w", err)
	}
	return result, nil
}

// savePending records the pending transaction. The checkout link stays valid
// if this fails; the webhook or verify call creates the record later.
func (s *PaymentService) savePending(ctx context.Context, record *models.Payment) {
	if _, err := s.payments.Upsert(ctx, record.Reference, record); err != nil {
		s.logger.Error().Err(err).Str("reference", record.Reference).Msg("failed to save pending payment")
	}
}

func (s *PaymentService) callback(requested string) string {
	if requested != "" {
		return requested
	}
	return s.callbackURL
}

// Verify asks the gateway for the transaction state and reconciles it.
func (s *PaymentService) Verify(ctx context.Context, reference string) (*PaymentResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, invalid("reference", "reference is required")
	}
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}

	tx, err := s.gateway.Verify(ctx, reference)
	if errors.Is(err, payment.ErrNotConfigured) {
		return nil, ErrPaymentsDisabled
	}
	if err != nil {
		return nil, fmt.Errorf("verify payment %s: %w", reference, err)
	}
	if tx.Reference == "" {
		tx.Reference = reference
	}
	return s.apply(ctx, tx)
}

// HandleWebhook authenticates and applies a gateway notification. Only
// payment.ErrInvalidSignature should be reported to the gateway as a failure.
func (s *PaymentService) HandleWebhook(ctx context.Context, raw []byte, signature string) error {
	if !payment.VerifyWebhookSignature(raw, signature, s.webhookSecret) {
		metrics.IncWebhook("unknown", "rejected")
		s.logger.Warn().Int("bytes", len(raw)).Msg("webhook signature rejected")
		return payment.ErrInvalidSignature
	}

	ev, err := payment.ParseEvent(raw)
	if err != nil {
		metrics.IncWebhook("unknown", "malformed")
		s.logger.Error().Err(err).Msg("malformed webhook payload")
		return err
	}

	tx := ev.Transaction()
	switch ev.Event {
	case payment.EventChargeSuccess:
		if tx.Status == "" {
			tx.Status = models.TransactionSuccess
		}
	case payment.EventChargeFailed:
		tx.Status = models.TransactionFailed
	default:
		metrics.IncWebhook(ev.Event, "ignored")
		s.logger.Debug().Str("event", ev.Event).Str("reference", tx.Reference).Msg("webhook event ignored")
		return nil
	}

	if _, err := s.apply(ctx, tx); err != nil {
		metrics.IncWebhook(ev.Event, "error")
		s.logger.Error().Err(err).
			Str("event", ev.Event).
			Str("reference", tx.Reference).
			Float64("amount", tx.Amount).
			Msg("webhook reconciliation failed, manual reconciliation required")
		return err
	}
	metrics.IncWebhook(ev.Event, "applied")
	return nil
}

func transactionStatus(gatewayStatus string) string {
	switch strings.ToLower(gatewayStatus) {
	case "success":
		return models.TransactionSuccess
	case "failed", "abandoned", "reversed":
		return models.TransactionFailed
	default:
		return models.TransactionPending
	}
}

// apply upserts the payment by reference and reconciles the linked booking.
// A terminal payment only moves from failed to success; any other report on
// it is returned untouched as a duplicate.
func (s *PaymentService) apply(ctx context.Context, tx *payment.Transaction) (*PaymentResult, error) {
	if tx.Reference == "" {
		return nil, errors.New("transaction reference is missing")
	}
	if err := s.locks.Acquire(ctx, tx.Reference); err != nil {
		return nil, err
	}
	defer s.locks.Release(tx.Reference)

	existing, err := s.payments.Get(ctx, tx.Reference)
	if err != nil && !storage.IsNotFound(err) {
		return nil, fmt.Errorf("load payment %s: %w", tx.Reference, err)
	}

	status := transactionStatus(tx.Status)
	if existing != nil && existing.IsTerminal() && !recoversFailure(existing.Status, status) {
		if existing.Status != status {
			s.logger.Warn().
				Str("reference", tx.Reference).
				Str("stored", existing.Status).
				Str("reported", status).
				Msg("ignoring status change on settled payment")
		}
		result := &PaymentResult{Payment: existing, Duplicate: true}
		if existing.BookingID != "" {
			if b, err := s.bookings.Get(ctx, existing.BookingID); err == nil {
				result.Booking = b
			}
		}
		s.logger.Debug().Str("reference", tx.Reference).Str("status", status).Msg("payment already reconciled")
		return result, nil
	}

	record := s.mergeTransaction(existing, tx, status)
	if _, err := s.payments.Upsert(ctx, record.Reference, record); err != nil {
		return nil, fmt.Errorf("save payment %s: %w", record.Reference, err)
	}

	result := &PaymentResult{Payment: record}
	if status == models.TransactionPending {
		return result, nil
	}

	if record.Kind == models.PaymentKindDonation {
		if status == models.TransactionSuccess {
			s.settleDonation(ctx, record)
		}
		return result, nil
	}

	if record.BookingID == "" {
		s.logger.Warn().Str("reference", record.Reference).Msg("booking payment without booking id")
		return result, nil
	}

	booking, err := s.reconcileBooking(ctx, record)
	if err != nil {
		return result, err
	}
	result.Booking = booking
	return result, nil
}

// recoversFailure allows a retried charge to settle a reference that failed first.
func recoversFailure(stored, reported string) bool {
	return stored == models.TransactionFailed && reported == models.TransactionSuccess
}

func (s *PaymentService) mergeTransaction(existing *models.Payment, tx *payment.Transaction, status string) *models.Payment {
	now := s.now().Format(models.TimestampLayout)
	record := existing
	if record == nil {
		record = &models.Payment{
			Reference:       tx.Reference,
			Kind:            tx.MetadataString("kind"),
			BookingID:       tx.MetadataString("booking_id"),
			CustomerName:    tx.MetadataString("customer_name"),
			DonationPurpose: tx.MetadataString("donation_purpose"),
			CreatedAt:       now,
		}
		if record.Kind == "" {
			record.Kind = models.PaymentKindBooking
			if record.BookingID == "" && strings.HasPrefix(tx.Reference, "DON-") {
				record.Kind = models.PaymentKindDonation
			}
		}
	}

	if record.Email == "" {
		record.Email = tx.CustomerEmail
	}
	if tx.AmountMinor > 0 || record.Amount == 0 {
		record.Amount = tx.Amount
	}
	if tx.Currency != "" {
		record.Currency = tx.Currency
	}
	if record.Currency == "" {
		record.Currency = s.currency
	}
	record.Status = status
	record.GatewayResponse = tx.GatewayResponse
	record.GatewayID = tx.ID
	record.AuthorizationCode = tx.AuthorizationCode
	record.Channel = tx.Channel
	if status == models.TransactionSuccess {
		record.PaidAt = tx.PaidAt
		if record.PaidAt == "" {
			record.PaidAt = now
		}
	}
	record.UpdatedAt = now
	return record
}

// paidTotal sums every successful payment linked to the booking.
func (s *PaymentService) paidTotal(ctx context.Context, bookingID string) (float64, error) {
	paid, err := s.payments.Filter(ctx, func(doc storage.Document) bool {
		return storage.Match("booking_id", bookingID)(doc) && storage.Match("status", models.TransactionSuccess)(doc)
	})
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, p := range paid {
		total += p.Amount
	}
	return roundMoney(total), nil
}

func (s *PaymentService) reconcileBooking(ctx context.Context, record *models.Payment) (*models.Booking, error) {
	total, err := s.paidTotal(ctx, record.BookingID)
	if err != nil {
		return nil, fmt.Errorf("sum payments for booking %s: %w", record.BookingID, err)
	}
	success := record.Status == models.TransactionSuccess

	var changed bool
	booking, err := s.bookings.mutate(ctx, record.BookingID, func(b *models.Booking) (bool, error) {
		if b.Status == models.StatusRefunded {
			return false, nil
		}
		// a failed charge never downgrades a booking that already holds money
		if !success && (b.Settled() || total > 0) {
			return false, nil
		}
		outcome := Reconcile(b.RequiredAmount, total, success, record.Currency)
		outcome.ApplyTo(b)
		b.PaymentReference = record.Reference
		if success {
			b.PaidAt = record.PaidAt
		}
		changed = true
		return true, nil
	})
	if errors.Is(err, ErrBookingNotFound) {
		s.logger.Warn().Str("reference", record.Reference).Str("booking_id", record.BookingID).Msg("payment for unknown booking")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !changed {
		s.logger.Info().Str("reference", record.Reference).Str("booking_id", booking.ID).Str("status", booking.Status).Msg("booking left unchanged by payment")
		return booking, nil
	}

	metrics.IncReconciled(booking.PaymentStatus)
	s.logger.Info().
		Str("reference", record.Reference).
		Str("booking_id", booking.ID).
		Str("status", booking.Status).
		Str("payment_status", booking.PaymentStatus).
		Float64("paid_total", total).
		Float64("required_amount", booking.RequiredAmount).
		Msg("booking reconciled")

	data := s.bookings.emailData(booking)
	data["reference"] = record.Reference
	data["paid_amount"] = total
	s.mailer.Enqueue(ctx, mail.KindPaymentReceived, booking.Email, data)
	s.mailer.Enqueue(ctx, mail.KindPaymentAdmin, s.adminEmail, data)
	s.bookings.publish(events.EventPaymentReconciled, events.NewBookingPayload(booking))
	return booking, nil
}

func (s *PaymentService) settleDonation(ctx context.Context, record *models.Payment) {
	metrics.IncReconciled("donation")
	s.logger.Info().Str("reference", record.Reference).Float64("amount", record.Amount).Msg("donation received")

	s.mailer.Enqueue(ctx, mail.KindDonationThanks, record.Email, models.Payload{
		"customer_name":    record.CustomerName,
		"amount":           record.Amount,
		"reference":        record.Reference,
		"donation_purpose": record.DonationPurpose,
	})
	s.bookings.publish(events.EventDonationReceived, events.DonationEventPayload{
		Reference:    record.Reference,
		CustomerName: record.CustomerName,
		Email:        record.Email,
		Amount:       record.Amount,
		Currency:     record.Currency,
		Purpose:      record.DonationPurpose,
	})
}
