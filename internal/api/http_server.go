package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"guesthouse/internal/config"
	"guesthouse/internal/domain"
	"guesthouse/internal/metrics"
	"guesthouse/internal/payment"
	"guesthouse/internal/service"
	"guesthouse/internal/session"
	"guesthouse/internal/storage"

	"github.com/rs/zerolog"
)

const msgInternal = "Something went wrong. Please try again later."

// Services groups what the HTTP surface delegates to.
type Services struct {
	Store        storage.Store
	Bookings     *service.BookingService
	Payments     *service.PaymentService
	Contacts     *service.ContactService
	Testimonials *service.TestimonialService
	Visitors     domain.VisitorCounter
	Auth         *session.Authenticator
}

// HTTPServer serves the public site API, the payment callbacks and the admin endpoints.
type HTTPServer struct {
	cfg       config.HTTPConfig
	exportDir string
	svc       Services
	limiter   *rateLimiter
	server    *http.Server
	now       func() time.Time
	logger    *zerolog.Logger
}

func NewHTTPServer(cfg *config.Config, svc Services, logger *zerolog.Logger) *HTTPServer {
	log := logger.With().Str("component", "http").Logger()
	srv := &HTTPServer{
		cfg:       cfg.HTTP,
		exportDir: cfg.Exports.Path,
		svc:       svc,
		limiter:   newRateLimiter(cfg.HTTP.RateLimit),
		now:       time.Now,
		logger:    &log,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	return srv
}

func (s *HTTPServer) routes() http.Handler {
	mux := http.NewServeMux()
	intake := s.limiter.Wrap

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.Handle("POST /process-booking", intake(http.HandlerFunc(s.handleBooking)))
	mux.Handle("POST /process-contact", intake(http.HandlerFunc(s.handleContact)))
	mux.Handle("POST /add-testimonial", intake(http.HandlerFunc(s.handleAddTestimonial)))
	mux.HandleFunc("GET /testimonials", s.handleTestimonials)
	mux.HandleFunc("GET /visitor-count", s.handleVisitorCount)
	mux.HandleFunc("POST /visitor-count", s.handleVisitorIncrement)

	mux.Handle("POST /initiate-payment", intake(http.HandlerFunc(s.handleInitiatePayment)))
	mux.Handle("POST /initiate-donation", intake(http.HandlerFunc(s.handleInitiateDonation)))
	mux.HandleFunc("GET /verify-payment/{reference}", s.handleVerifyPayment)
	mux.HandleFunc("POST /webhook/paystack", s.handleWebhook)

	mux.Handle("POST /admin/login", intake(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /admin/logout", s.handleLogout)

	mux.Handle("GET /bookings.json", s.requireAdmin(s.handleListBookings))
	mux.Handle("GET /contacts.json", s.requireAdmin(s.handleListContacts))
	mux.Handle("GET /testimonials.json", s.requireAdmin(s.handleListTestimonials))
	mux.Handle("GET /payments.json", s.requireAdmin(s.handleListPayments))
	mux.Handle("DELETE /delete-testimonial/{id}", s.requireAdmin(s.handleDeleteTestimonial))
	mux.Handle("POST /admin/bookings/{id}/refund", s.requireAdmin(s.handleRefund))
	mux.Handle("POST /admin/bookings/{id}/dates", s.requireAdmin(s.handleChangeDates))
	mux.Handle("GET /admin/export/bookings.xlsx", s.requireAdmin(s.handleExportBookings))
	mux.Handle("POST /admin/export/bookings", s.requireAdmin(s.handleSaveExport))

	if s.cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}

	return loggingMiddleware(s.logger, mux)
}

// Handler exposes the routed handler for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.Store.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("health check failed")
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": s.svc.Store.Backend(),
	})
}

// writeServiceError maps service and gateway errors onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":  "error",
			"message": verr.Message,
			"errors":  verr.Fields,
		})
	case errors.Is(err, service.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "Booking not found")
	case errors.Is(err, service.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, "Payment not found")
	case errors.Is(err, service.ErrTestimonialNotFound):
		writeError(w, http.StatusNotFound, "Testimonial not found")
	case errors.Is(err, service.ErrBookingSettled):
		writeError(w, http.StatusConflict, "This booking has already been paid.")
	case errors.Is(err, service.ErrBookingRefunded):
		writeError(w, http.StatusConflict, "This booking has been refunded.")
	case errors.Is(err, service.ErrCustomPricing):
		writeError(w, http.StatusConflict, "This room is priced on request. We will contact you with a quote.")
	case errors.Is(err, service.ErrPaymentsDisabled):
		writeError(w, http.StatusServiceUnavailable, "Online payments are currently unavailable.")
	case errors.Is(err, payment.ErrGateway):
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("payment gateway error")
		writeError(w, http.StatusBadGateway, "Payment provider error. Please try again later.")
	default:
		s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func loggingMiddleware(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint)

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("dur", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"status": "error", "message": message})
}

func writeSuccess(w http.ResponseWriter, message string, extra map[string]any) {
	body := map[string]any{"status": "success", "message": message}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// listOrEmpty keeps empty collections encoded as [] rather than null.
func listOrEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
