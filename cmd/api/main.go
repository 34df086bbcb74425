package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/bookline/bookline/internal/api/router"
	"github.com/bookline/bookline/internal/appointments"
	appconfig "github.com/bookline/bookline/internal/config"
	"github.com/bookline/bookline/internal/customers"
	"github.com/bookline/bookline/internal/events"
	"github.com/bookline/bookline/internal/hours"
	"github.com/bookline/bookline/internal/http/handlers"
	"github.com/bookline/bookline/internal/observability/metrics"
	"github.com/bookline/bookline/internal/orgs"
	"github.com/bookline/bookline/internal/staff"
	"github.com/bookline/bookline/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting bookline API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
	}

	orgsRepo := orgs.NewPostgresRepository(pool)
	orgStore := orgs.NewStore(orgsRepo, orgsRepo, redisClient, logger)
	staffRepo := staff.NewPostgresRepository(pool)
	customersRepo := customers.NewPostgresRepository(pool)
	hoursRepo := hours.NewPostgresRepository(pool)

	var apptStore appointments.Store
	var recorder appointments.EventRecorder
	if cfg.UseMemoryStore {
		logger.Warn("using in-memory appointment store; data is not persisted")
		apptStore = appointments.NewMemoryStore()
		recorder = events.NewMemoryRecorder()
	} else {
		apptStore = appointments.NewPostgresStore(pool)
		outboxStore := events.NewOutboxStore(pool)
		recorder = events.NewOutboxRecorder(outboxStore)
		deliverer := events.NewDeliverer(outboxStore, events.NewLogHandler(logger), logger).
			WithBatchSize(int32(cfg.OutboxBatchSize)).
			WithInterval(cfg.OutboxPollInterval)
		go deliverer.Start(ctx)
	}

	bookingMetrics := metrics.NewBookingMetrics(nil)
	svc := appointments.NewService(appointments.ServiceConfig{
		Store:     apptStore,
		Orgs:      orgStore,
		Staff:     staffRepo,
		Customers: customersRepo,
		Hours:     hoursRepo,
		Events:    recorder,
		Metrics:   bookingMetrics,
		Logger:    logger,
	})

	r := router.New(&router.Config{
		Logger: logger,
		BookingHandler: handlers.NewBookingHandler(handlers.BookingHandlerConfig{
			Service: svc,
			Logger:  logger,
		}),
		CalendarHandler: handlers.NewCalendarHandler(handlers.CalendarHandlerConfig{
			Service: svc,
			Orgs:    orgStore,
			Hours:   hoursRepo,
			Logger:  logger,
		}),
		OrgHandler: handlers.NewOrgHandler(handlers.OrgHandlerConfig{
			Orgs:   orgStore,
			Hours:  hoursRepo,
			Logger: logger,
		}),
		SessionSecret:  cfg.SessionJWTSecret,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
