package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/caresync/healthcare-backend/internal/api"
	"github.com/caresync/healthcare-backend/internal/booking"
	"github.com/caresync/healthcare-backend/internal/config"
	"github.com/caresync/healthcare-backend/internal/db"
	"github.com/caresync/healthcare-backend/internal/observability"
	"github.com/caresync/healthcare-backend/internal/observability/metrics"
	"github.com/caresync/healthcare-backend/internal/patientclient"
	redisclient "github.com/caresync/healthcare-backend/internal/redis"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := observability.NewLogger("booking-server", "dev")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := observability.NewLogger("booking-server", cfg.Env)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("booking-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	store := booking.NewPgStore(pgPool)
	locker := redisclient.NewProviderLocker(rdb, cfg.LockTTL, cfg.LockWait)
	idem := redisclient.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)
	validator := patientclient.New(cfg.PatientServiceURL, cfg.ValidateTimeout)

	retry := booking.RetryPolicy{
		MaxAttempts:    cfg.ValidateAttempts,
		AttemptTimeout: cfg.ValidateTimeout,
		InitialBackoff: cfg.ValidateBackoff,
		MaxBackoff:     time.Second,
		Deadline:       cfg.ValidateDeadline,
	}

	svc := booking.NewService(store, validator, retry, locker,
		booking.WithIdempotencyStore(idem),
		booking.WithMetrics(bookingMetrics),
		booking.WithLogger(log),
	)

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		PgPool:   pgPool,
		Redis:    rdb,
		Registry: registry,
		Logger:   log,
		Env:      cfg.Env,
		Version:  version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down booking-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
}
