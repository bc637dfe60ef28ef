package service

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"guesthouse/internal/config"
	"guesthouse/internal/mail"
	"guesthouse/internal/models"
	"guesthouse/internal/payment"
	"guesthouse/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testAdmin  = "owner@lodge.example.com"
	testSecret = "sk_test_webhook"
)

var fixedNow = time.Date(2030, 1, 1, 9, 30, 0, 0, time.UTC)

type queuedMail struct {
	kind mail.Kind
	to   string
	data models.Payload
}

type fakeMailer struct {
	mu   sync.Mutex
	jobs []queuedMail
}

func (f *fakeMailer) Enqueue(_ context.Context, kind mail.Kind, to string, data models.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, queuedMail{kind: kind, to: to, data: data})
}

func (f *fakeMailer) sent() []queuedMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queuedMail(nil), f.jobs...)
}

func (f *fakeMailer) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = nil
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Initialize(ctx context.Context, req payment.InitializeRequest) (*payment.InitializeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.InitializeResult), args.Error(1)
}

func (m *mockGateway) Verify(ctx context.Context, reference string) (*payment.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Transaction), args.Error(1)
}

type testEnv struct {
	store    storage.Store
	mailer   *fakeMailer
	gateway  *mockGateway
	bookings *BookingService
	payments *PaymentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return newTestEnvWithStore(t, store)
}

// testStores builds one empty store per backend.
func testStores() map[string]func(t *testing.T) storage.Store {
	return map[string]func(t *testing.T) storage.Store{
		"file": func(t *testing.T) storage.Store {
			s, err := storage.NewFileStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) storage.Store {
			s, err := storage.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "guesthouse.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func newTestEnvWithStore(t *testing.T, store storage.Store) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	mailer := &fakeMailer{}
	gateway := new(mockGateway)

	bookings := NewBookingService(store, config.DefaultRooms(), mailer, nil, testAdmin, &logger)
	bookings.now = func() time.Time { return fixedNow }

	payments := NewPaymentService(store, bookings, gateway, config.PaystackConfig{
		Currency:      "GHS",
		CallbackURL:   "https://lodge.example.com/payment-success",
		WebhookSecret: testSecret,
	}, mailer, nil, testAdmin, &logger)
	payments.now = func() time.Time { return fixedNow }

	return &testEnv{store: store, mailer: mailer, gateway: gateway, bookings: bookings, payments: payments}
}

func validBooking() BookingRequest {
	return BookingRequest{
		Name:     "Ama Mensah",
		Email:    "Ama@Example.com ",
		Phone:    "024 123 4567",
		CheckIn:  "2030-01-10",
		CheckOut: "2030-01-14",
		Adults:   2,
		Children: 1,
		RoomType: "executive",
		Message:  "Late arrival",
	}
}

func (e *testEnv) createBooking(t *testing.T) *models.Booking {
	t.Helper()
	b, err := e.bookings.Create(context.Background(), validBooking())
	require.NoError(t, err)
	e.mailer.reset()
	return b
}

func kinds(jobs []queuedMail) []mail.Kind {
	out := make([]mail.Kind, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.kind)
	}
	return out
}
