package models

// Booking lifecycle.
const (
	StatusPending        = "pending"
	StatusConfirmed      = "confirmed"
	StatusPendingPayment = "pending_payment"
	StatusFailed         = "failed"
	StatusRefunded       = "refunded"
)

// Booking payment sub-state.
const (
	PaymentPending   = "pending"
	PaymentPaid      = "paid"
	PaymentUnderpaid = "underpaid"
	PaymentOverpaid  = "overpaid"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Gateway transaction status stored on payment records.
const (
	TransactionPending = "pending"
	TransactionSuccess = "success"
	TransactionFailed  = "failed"
)

const (
	PaymentKindBooking  = "booking"
	PaymentKindDonation = "donation"
)

const (
	PaymentMethodOnline = "online"
	PaymentMethodLater  = "later"
)

// Storage collections.
const (
	CollectionBookings       = "bookings"
	CollectionContacts       = "contacts"
	CollectionTestimonials   = "testimonials"
	CollectionVisitorCounter = "visitorCounter"
	CollectionPayments       = "payments"
)

const (
	// DefaultCurrency is used when the gateway config leaves it empty.
	DefaultCurrency = "GHS"

	// DefaultSessionTTL is the admin session lifetime in seconds.
	DefaultSessionTTL = 24 * 60 * 60

	// DefaultEmailAttempts is the number of delivery attempts per email job.
	DefaultEmailAttempts = 3

	// EmailQueueBuffer is the in-memory queue capacity hint.
	EmailQueueBuffer = 1000

	// VisitorCounterID is the id of the single visitor counter document.
	VisitorCounterID = "visitors"
)
