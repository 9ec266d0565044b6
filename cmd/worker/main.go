// Package main provides the block list sync worker. It applies updates
// published to a Pub/Sub subscription to the shared block list store and
// exposes health endpoints for the platform.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/olahtaxi/taxirelay/internal/api/handler"
	"github.com/olahtaxi/taxirelay/internal/api/middleware"
	"github.com/olahtaxi/taxirelay/internal/blocklist"
	"github.com/olahtaxi/taxirelay/internal/config"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "taxirelay-worker"

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("worker stopped with error")
	}
}

func run(log zerolog.Logger) error {
	cfg, err := config.LoadSync(log)
	if err != nil {
		return err
	}
	log = log.Level(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := blocklist.Open(ctx, cfg.StoreConfig(log))
	if err != nil {
		return err
	}
	defer closeStore()

	sub, err := blocklist.NewSubscriber(ctx, blocklist.SubscriberConfig{
		ProjectID:        cfg.PubSubProject(),
		SubscriptionName: cfg.BlockList.Subscription,
		Store:            store,
		Logger:           log.With().Str("component", "blocklist_sync").Logger(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(store, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
			stop()
		}
	}()

	// Receive blocks until ctx is cancelled.
	if err := sub.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	log.Info().Msg("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
	return nil
}

// storeReadiness adapts a Store to handler.ReadinessChecker.
type storeReadiness struct {
	store blocklist.Store
}

func (s storeReadiness) Ready(ctx context.Context) error {
	return blocklist.Ping(ctx, s.store)
}

func newRouter(store blocklist.Store, log zerolog.Logger) http.Handler {
	ops := handler.NewOpsHandler(Version, BuildTime, storeReadiness{store: store}, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.NotFound(handler.NotFound)

	r.Get("/health", ops.HealthCheck)
	r.Get("/ready", ops.ReadinessCheck)
	return r
}
