package api

import (
	"fmt"
	"net/http"

	"guesthouse/internal/export"
	"guesthouse/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Bookings.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOrEmpty(list))
}

func (s *HTTPServer) handleListContacts(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Contacts.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOrEmpty(list))
}

func (s *HTTPServer) handleListTestimonials(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Testimonials.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOrEmpty(list))
}

func (s *HTTPServer) handleListPayments(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Payments.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listOrEmpty(list))
}

func (s *HTTPServer) handleDeleteTestimonial(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Testimonials.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, "Testimonial deleted successfully", nil)
}

func (s *HTTPServer) handleRefund(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgBadInput)
		return
	}

	req := service.RefundRequest{
		Reason: f.get("reason", "refund_reason"),
		Method: f.get("method", "refund_method"),
	}
	if f.has("amount", "refund_amount") {
		amount, err := f.float("amount", "refund_amount")
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		req.Amount = &amount
	}

	booking, err := s.svc.Bookings.Refund(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, "Booking refunded", map[string]any{"booking": booking})
}

func (s *HTTPServer) handleChangeDates(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgBadInput)
		return
	}

	booking, err := s.svc.Bookings.ChangeDates(r.Context(), r.PathValue("id"),
		f.get("checkin", "check-in"), f.get("checkout", "check-out"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, "Booking dates updated", map[string]any{"booking": booking})
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Bookings.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(s.now())))
	if err := export.WriteBookings(w, bookings); err != nil {
		s.logger.Error().Err(err).Msg("bookings export failed")
	}
}

// handleSaveExport writes the workbook to the exports directory on the server.
func (s *HTTPServer) handleSaveExport(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Bookings.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	path, err := export.SaveBookings(s.exportDir, bookings, s.now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info().Str("path", path).Int("rows", len(bookings)).Msg("bookings export saved")
	writeSuccess(w, "Export saved", map[string]any{"path": path, "rows": len(bookings)})
}
