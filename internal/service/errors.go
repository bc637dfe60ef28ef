package service

import (
	"errors"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrTestimonialNotFound = errors.New("testimonial not found")
	ErrBookingSettled      = errors.New("booking no longer accepts payments")
	ErrBookingRefunded     = errors.New("booking has been refunded")
	ErrCustomPricing       = errors.New("room is priced on request")
	ErrPaymentsDisabled    = errors.New("online payments are not configured")
)

// ValidationError carries a user-facing message and per-field details.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Message: message, Fields: map[string]string{field: message}}
}
