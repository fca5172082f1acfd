package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/caresync/healthcare-backend/internal/booking"
	"github.com/caresync/healthcare-backend/internal/config"
	"github.com/caresync/healthcare-backend/internal/db"
	"github.com/caresync/healthcare-backend/internal/observability"
)

const drainBatchSize = 100

// The relay drains committed/cancelled booking events from the outbox table
// and delivers them to the notification sink, keeping downstream delivery
// latency out of the booking critical path. The current sink is the
// structured log; a broker can replace deliver() without touching the
// booking service.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := observability.NewLogger("outbox-relay", "dev")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := observability.NewLogger("outbox-relay", cfg.Env)
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.RelayInterval).Msg("outbox-relay starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	store := booking.NewPgStore(pgPool)

	// Run once at startup
	drainOnce(rootCtx, store, log)

	ticker := time.NewTicker(cfg.RelayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping outbox relay")
			return
		case <-ticker.C:
			drainOnce(rootCtx, store, log)
		}
	}
}

func drainOnce(ctx context.Context, store booking.EventSource, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	for {
		events, err := store.UnpublishedEvents(runCtx, drainBatchSize)
		if err != nil {
			log.Error().Err(err).Msg("load unpublished events")
			return
		}
		if len(events) == 0 {
			return
		}

		ids := make([]int64, 0, len(events))
		for _, ev := range events {
			deliver(log, ev)
			ids = append(ids, ev.ID)
		}

		if err := store.MarkPublished(runCtx, ids, time.Now()); err != nil {
			log.Error().Err(err).Msg("mark events published")
			return
		}

		log.Info().Int("count", len(ids)).Msg("events relayed")

		if len(events) < drainBatchSize {
			return
		}
	}
}

func deliver(log zerolog.Logger, ev booking.EventRecord) {
	evt := log.Info().
		Str("event_type", ev.EventType).
		Str("appointment_id", ev.AppointmentID.String()).
		Time("created_at", ev.CreatedAt)
	if len(ev.Payload) > 0 {
		evt = evt.RawJSON("payload", ev.Payload)
	}
	evt.Msg("booking event")
}
