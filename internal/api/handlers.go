package api

import (
	"errors"
	"net/http"

	"guesthouse/internal/models"
	"guesthouse/internal/service"
)

const (
	msgBookingReceived = "Booking request submitted successfully! A confirmation email has been sent to your email address. We will contact you shortly to confirm your reservation."
	msgContactReceived = "Thank you for your message! We will get back to you soon."
	msgTestimonialSent = "Thank you for sharing your experience!"
)

func (s *HTTPServer) handleBooking(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgBadInput)
		return
	}
	adults, err := f.int("adults")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	children, err := f.int("children")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	booking, err := s.svc.Bookings.Create(r.Context(), service.BookingRequest{
		Name:          f.get("name"),
		Email:         f.get("email"),
		Phone:         f.get("phone"),
		CheckIn:       f.get("checkin", "check-in"),
		CheckOut:      f.get("checkout", "check-out"),
		Adults:        adults,
		Children:      children,
		RoomType:      f.get("room_type", "room-type", "roomType"),
		Message:       f.get("message"),
		PaymentMethod: f.get("payment_method", "payment-method", "paymentMethod"),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	extra := map[string]any{"bookingId": booking.ID, "booking": booking}
	if booking.PaymentMethod == models.PaymentMethodOnline && s.svc.Payments != nil {
		// The booking stands even when checkout cannot be opened.
		session, err := s.svc.Payments.InitializeBooking(r.Context(), service.InitPaymentRequest{
			BookingID:   booking.ID,
			CallbackURL: f.get("callback_url"),
		})
		switch {
		case err == nil:
			extra["payment"] = session
			extra["authorization_url"] = session.AuthorizationURL
		case errors.Is(err, service.ErrCustomPricing):
			extra["paymentError"] = "This room is priced on request. We will contact you with a quote."
		default:
			s.logger.Warn().Err(err).Str("booking_id", booking.ID).Msg("checkout could not be opened for new booking")
			extra["paymentError"] = "We could not start the online payment. You can pay later using your booking ID."
		}
	}

	writeSuccess(w, msgBookingReceived, extra)
}

func (s *HTTPServer) handleContact(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgBadInput)
		return
	}

	contact, err := s.svc.Contacts.Submit(r.Context(), service.ContactRequest{
		Name:    f.get("contact-name", "name"),
		Email:   f.get("contact-email", "email"),
		Subject: f.get("subject", "contact-subject"),
		Message: f.get("contact-message", "message"),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, msgContactReceived, map[string]any{"contactId": contact.ID})
}

func (s *HTTPServer) handleAddTestimonial(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgBadInput)
		return
	}
	rating, err := f.int("rating")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	t, err := s.svc.Testimonials.Add(r.Context(), service.TestimonialRequest{
		Name:     f.get("name", "testimonial-name"),
		Location: f.get("location", "testimonial-location"),
		Comment:  f.get("comment", "testimonial-comment", "message"),
		Rating:   rating,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, msgTestimonialSent, map[string]any{"testimonial": t})
}

func (s *HTTPServer) handleTestimonials(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Testimonials.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOrEmpty(list))
}

func (s *HTTPServer) handleVisitorCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.svc.Visitors.Get(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (s *HTTPServer) handleVisitorIncrement(w http.ResponseWriter, r *http.Request) {
	count, err := s.svc.Visitors.Increment(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}
