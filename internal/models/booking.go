package models

const (
	// DateLayout is the wire format of check-in/check-out dates.
	DateLayout = "2006-01-02"
	// TimestampLayout is the format of creation and mutation timestamps.
	TimestampLayout = "2006-01-02 15:04:05"
)

type Booking struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	Phone            string   `json:"phone"`
	CheckIn          string   `json:"checkin"`
	CheckOut         string   `json:"checkout"`
	Adults           int      `json:"adults"`
	Children         int      `json:"children"`
	RoomType         string   `json:"room_type"`
	Message          string   `json:"message"`
	PaymentMethod    string   `json:"payment_method,omitempty"`
	Nights           int      `json:"nights"`
	NightlyRate      float64  `json:"nightly_rate"`
	Amount           float64  `json:"amount"`
	RequiredAmount   float64  `json:"required_amount"`
	Status           string   `json:"status"`         // pending, confirmed, pending_payment, failed, refunded
	PaymentStatus    string   `json:"payment_status"` // pending, paid, underpaid, overpaid, failed, refunded
	PaidAmount       *float64 `json:"paid_amount,omitempty"`
	PaymentReference string   `json:"payment_reference,omitempty"`
	PaymentNote      string   `json:"payment_note,omitempty"`
	PaidAt           string   `json:"paid_at,omitempty"`
	Timestamp        string   `json:"timestamp"`
	UpdatedAt        string   `json:"updated_at,omitempty"`
	RefundReason     string   `json:"refund_reason,omitempty"`
	RefundAmount     *float64 `json:"refund_amount,omitempty"`
	RefundMethod     string   `json:"refund_method,omitempty"`
	RefundedAt       string   `json:"refunded_at,omitempty"`
}

// Settled reports whether the booking no longer accepts payments.
func (b *Booking) Settled() bool {
	switch b.Status {
	case StatusRefunded:
		return true
	case StatusConfirmed:
		return b.PaymentStatus == PaymentPaid || b.PaymentStatus == PaymentOverpaid
	}
	return false
}

// EmailData flattens the booking into template data.
func (b *Booking) EmailData() Payload {
	data := Payload{
		"id":              b.ID,
		"name":            b.Name,
		"email":           b.Email,
		"phone":           b.Phone,
		"checkin":         b.CheckIn,
		"checkout":        b.CheckOut,
		"adults":          b.Adults,
		"children":        b.Children,
		"room_type":       b.RoomType,
		"message":         b.Message,
		"nights":          b.Nights,
		"amount":          b.Amount,
		"required_amount": b.RequiredAmount,
		"status":          b.Status,
		"payment_status":  b.PaymentStatus,
		"payment_note":    b.PaymentNote,
		"timestamp":       b.Timestamp,
	}
	if b.PaidAmount != nil {
		data["paid_amount"] = *b.PaidAmount
	}
	if b.RefundAmount != nil {
		data["refund_amount"] = *b.RefundAmount
		data["refund_reason"] = b.RefundReason
		data["refund_method"] = b.RefundMethod
	}
	return data
}
