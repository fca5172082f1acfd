package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/caresync/healthcare-backend/internal/config"
	"github.com/caresync/healthcare-backend/internal/db"
	"github.com/caresync/healthcare-backend/internal/observability"
	"github.com/caresync/healthcare-backend/internal/patientsvc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := observability.NewLogger("patient-server", "dev")
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := observability.NewLogger("patient-server", cfg.Env)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.PatientHTTPPort).Msg("patient-server starting up")

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

	repo := patientsvc.NewPgRepository(pgPool)
	router := patientsvc.NewRouter(repo, log)

	server := &http.Server{
		Addr:              ":" + cfg.PatientHTTPPort,
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
	log.Info().Msg("shutting down patient-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
}
