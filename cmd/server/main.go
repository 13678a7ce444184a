package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/avoronov/huddle/internal/adapters/http"
	"github.com/avoronov/huddle/internal/adapters/ws"
	"github.com/avoronov/huddle/internal/app"
	"github.com/avoronov/huddle/internal/auth"
	"github.com/avoronov/huddle/internal/config"
	"github.com/avoronov/huddle/internal/storage/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Secret == "" {
		log.Fatal().Msg("secret is required to verify credentials")
	}

	// Persistence is optional: without a DSN the gateway relays without
	// storing, and every submission is dropped with a log line.
	var store app.MessageStore
	var avatars app.AvatarLookup
	if cfg.DatabaseDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()
		repo := postgres.NewMessageRepository(pool)
		store = repo
		avatars = repo
		log.Info().Msg("connected to postgres")
	}

	registry := app.NewRegistry()
	sink := app.NewSink(store, cfg.PersistQueue, cfg.PersistWorkers, cfg.PersistTimeout)
	sink.Start(ctx)
	defer sink.Stop()

	gateway := app.NewGateway(registry, sink, avatars, app.KickSlowPolicy{})
	verifier := auth.NewJWTVerifier(cfg.Secret)
	ctl := ws.NewController(gateway, verifier, cfg.ReadLimit, cfg.PingPeriod, cfg.SendBuffer)

	r := router.SetupRouter(ctx, cfg, ctl, registry)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("huddle gateway started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
