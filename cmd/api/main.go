package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guesthouse/internal/api"
	"guesthouse/internal/config"
	"guesthouse/internal/domain"
	"guesthouse/internal/events"
	"guesthouse/internal/logging"
	"guesthouse/internal/mail"
	"guesthouse/internal/metrics"
	"guesthouse/internal/notify"
	"guesthouse/internal/payment"
	"guesthouse/internal/service"
	"guesthouse/internal/session"
	"guesthouse/internal/storage"
	"guesthouse/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	mainLog := logger.With().Str("component", "api-main").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage, &logger)
	if err != nil {
		mainLog.Error().Err(err).Msg("open storage")
		return err
	}
	defer store.Close()

	backup, err := storage.NewBackupService(store, cfg.Backup, &logger)
	if err != nil {
		mainLog.Warn().Err(err).Msg("storage backups disabled")
	}

	redisClient := initRedis(ctx, cfg, &mainLog)
	if redisClient != nil {
		defer redisClient.Close()
	}

	auth, err := initAuth(cfg, redisClient, &logger)
	if err != nil {
		return err
	}
	if !auth.Enabled() {
		mainLog.Warn().Msg("admin credentials not configured, admin endpoints will reject every request")
	}

	dispatcher, err := mail.New(cfg.Mail, cfg.App, cfg.Paystack.Currency, &logger)
	if err != nil {
		mainLog.Error().Err(err).Msg("init mail dispatcher")
		return err
	}
	queue := initEmailQueue(cfg, redisClient, dispatcher, &logger)

	bus := events.NewEventBus(&logger)
	notify.NewAlerts(initNotifier(cfg, &mainLog), cfg.Paystack.Currency, &logger).Subscribe(bus)

	gateway := payment.NewClient(cfg.Paystack, &logger)
	if !gateway.Configured() {
		mainLog.Warn().Msg("paystack secret key not configured, online payments disabled")
	}

	adminEmail := dispatcher.AdminEmail()
	bookings := service.NewBookingService(store, cfg.Rooms, queue, bus, adminEmail, &logger)
	services := api.Services{
		Store:        store,
		Bookings:     bookings,
		Payments:     service.NewPaymentService(store, bookings, gateway, cfg.Paystack, queue, bus, adminEmail, &logger),
		Contacts:     service.NewContactService(store, queue, bus, adminEmail, &logger),
		Testimonials: service.NewTestimonialService(store, &logger),
		Visitors:     initVisitorCounter(store, redisClient, &logger),
		Auth:         auth,
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	httpServer := api.NewHTTPServer(cfg, services, &logger)
	mainLog.Info().
		Str("storage", store.Backend()).
		Bool("redis", redisClient != nil).
		Bool("smtp", cfg.Mail.Enabled()).
		Int("http_port", cfg.HTTP.Port).
		Msg("guesthouse API starting")

	return serve(ctx, cfg, httpServer, queue, backup, &mainLog)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, *baseLogger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := session.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := session.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func initAuth(cfg *config.Config, client *redis.Client, logger *zerolog.Logger) (*session.Authenticator, error) {
	var store session.Store = session.NewMemoryStore()
	if client != nil {
		sessLog := logger.With().Str("component", "sessions").Logger()
		store = session.NewFailoverStore(session.NewRedisStore(client), store, &sessLog)
	}
	auth, err := session.NewAuthenticator(cfg.Admin, store)
	if err != nil {
		return nil, fmt.Errorf("init admin auth: %w", err)
	}
	return auth, nil
}

func initEmailQueue(cfg *config.Config, client *redis.Client, sender worker.Sender, logger *zerolog.Logger) *worker.EmailQueue {
	var jobs worker.JobQueue = worker.NewMemoryJobQueue(cfg.EmailQueue.Buffer)
	if client != nil {
		jobs = worker.NewRedisJobQueue(client)
	}
	return worker.NewEmailQueue(jobs, sender, worker.RetryPolicy{
		MaxRetries:    cfg.EmailQueue.MaxAttempts,
		InitialDelay:  cfg.EmailQueue.RetryDelay,
		MaxDelay:      cfg.EmailQueue.MaxDelay,
		BackoffFactor: cfg.EmailQueue.BackoffFactor,
	}, logger)
}

func initNotifier(cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == 0 {
		return notify.Nop{}
	}
	notifier, err := notify.NewTelegramNotifier(cfg.Telegram)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram alerts disabled")
		return notify.Nop{}
	}
	logger.Info().Int64("chat_id", cfg.Telegram.ChatID).Msg("telegram alerts enabled")
	return notifier
}

func initVisitorCounter(store storage.Store, client *redis.Client, logger *zerolog.Logger) domain.VisitorCounter {
	counter := service.NewStoreVisitorCounter(store)
	if client == nil {
		return counter
	}
	return service.NewRedisVisitorCounter(client, counter, logger)
}

func serve(
	ctx context.Context,
	cfg *config.Config,
	httpServer *api.HTTPServer,
	queue *worker.EmailQueue,
	backup *storage.BackupService,
	logger *zerolog.Logger,
) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(httpServer.Start)
	g.Go(func() error {
		return queue.Run(gctx)
	})
	if backup != nil {
		g.Go(func() error {
			return backup.Run(gctx)
		})
	}
	if cfg.Monitoring.PrometheusEnabled {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Monitoring.PrometheusPort, logger)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if pending := queue.Len(context.Background()); pending > 0 {
		logger.Warn().Int("pending", pending).Msg("email jobs left in queue at shutdown")
	}
	logger.Info().Msg("API server stopped")
	return err
}

func serveMetrics(ctx context.Context, port int, logger *zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", port).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
