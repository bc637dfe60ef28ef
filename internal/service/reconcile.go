package service

import (
	"fmt"

	"guesthouse/internal/models"
	"guesthouse/internal/payment"
)

// Reconciliation is the booking state a verified payment outcome maps to.
type Reconciliation struct {
	Status        string
	PaymentStatus string
	PaidAmount    float64
	Note          string
}

// Reconcile compares the paid total with the required amount in minor units.
// It has no side effects.
func Reconcile(required, paid float64, success bool, currency string) Reconciliation {
	if !success {
		return Reconciliation{
			Status:        models.StatusFailed,
			PaymentStatus: models.PaymentFailed,
			PaidAmount:    paid,
			Note:          "Payment was not completed",
		}
	}

	requiredMinor := payment.ToMinor(required)
	paidMinor := payment.ToMinor(paid)

	switch {
	case paidMinor == requiredMinor:
		return Reconciliation{
			Status:        models.StatusConfirmed,
			PaymentStatus: models.PaymentPaid,
			PaidAmount:    paid,
		}
	case paidMinor < requiredMinor:
		return Reconciliation{
			Status:        models.StatusPendingPayment,
			PaymentStatus: models.PaymentUnderpaid,
			PaidAmount:    paid,
			Note: fmt.Sprintf("Underpaid by %s %.2f (paid %.2f of %.2f)",
				currency, payment.ToMajor(requiredMinor-paidMinor), paid, required),
		}
	default:
		return Reconciliation{
			Status:        models.StatusConfirmed,
			PaymentStatus: models.PaymentOverpaid,
			PaidAmount:    paid,
			Note: fmt.Sprintf("Overpaid by %s %.2f; excess recorded as a donation",
				currency, payment.ToMajor(paidMinor-requiredMinor)),
		}
	}
}

// ApplyTo writes the outcome onto b. The required amount is never touched.
func (r Reconciliation) ApplyTo(b *models.Booking) {
	paid := r.PaidAmount
	b.Status = r.Status
	b.PaymentStatus = r.PaymentStatus
	b.PaidAmount = &paid
	b.PaymentNote = r.Note
}
