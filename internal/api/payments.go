package api

import (
	"errors"
	"io"
	"net/http"

	"guesthouse/internal/models"
	"guesthouse/internal/payment"
	"guesthouse/internal/service"
)

// checkoutResponse flattens the session next to the envelope status.
type checkoutResponse struct {
	Status string `json:"status"`
	*service.PaymentSession
}

func (s *HTTPServer) handleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgBadInput)
		return
	}
	amount, err := f.float("amount")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	session, err := s.svc.Payments.InitializeBooking(r.Context(), service.InitPaymentRequest{
		BookingID:   f.get("booking_id", "bookingId"),
		Email:       f.get("email"),
		Amount:      amount,
		CallbackURL: f.get("callback_url", "callbackUrl"),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{Status: "success", PaymentSession: session})
}

func (s *HTTPServer) handleInitiateDonation(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgBadInput)
		return
	}
	amount, err := f.float("amount")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	session, err := s.svc.Payments.InitializeDonation(r.Context(), service.DonationRequest{
		Email:        f.get("email"),
		CustomerName: f.get("customer_name", "name"),
		Amount:       amount,
		CallbackURL:  f.get("callback_url", "callbackUrl"),
		Purpose:      f.get("donation_purpose", "purpose"),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{Status: "success", PaymentSession: session})
}

func (s *HTTPServer) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Payments.Verify(r.Context(), r.PathValue("reference"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	message := "Payment is still being processed."
	switch result.Payment.Status {
	case models.TransactionSuccess:
		message = "Payment verified successfully."
	case models.TransactionFailed:
		message = "Payment was not completed."
	}

	body := map[string]any{
		"payment_status": result.Payment.Status,
		"payment":        result.Payment,
		"duplicate":      result.Duplicate,
	}
	if result.Booking != nil {
		body["booking"] = result.Booking
	}
	writeSuccess(w, message, body)
}

// handleWebhook answers 200 for anything that passed the signature check so
// the gateway does not keep redelivering events we already logged.
func (s *HTTPServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unreadable request body")
		return
	}

	err = s.svc.Payments.HandleWebhook(r.Context(), raw, r.Header.Get(payment.SignatureHeader))
	if errors.Is(err, payment.ErrInvalidSignature) {
		writeError(w, http.StatusBadRequest, "Invalid signature")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
