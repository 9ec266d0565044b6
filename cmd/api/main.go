// Package main provides the entrypoint for the taxi relay API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/olahtaxi/taxirelay/internal/api"
	"github.com/olahtaxi/taxirelay/internal/api/middleware"
	"github.com/olahtaxi/taxirelay/internal/auth"
	"github.com/olahtaxi/taxirelay/internal/blocklist"
	"github.com/olahtaxi/taxirelay/internal/config"
	"github.com/olahtaxi/taxirelay/internal/notify"
	"github.com/olahtaxi/taxirelay/internal/provider/resilience"
	"github.com/olahtaxi/taxirelay/internal/relay"
	"github.com/olahtaxi/taxirelay/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "taxirelay-api"

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("relay stopped with error")
	}
}

func run(log zerolog.Logger) error {
	cfg, err := config.Load(log)
	if err != nil {
		return err
	}
	log = log.Level(cfg.Level())

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting taxi relay")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.Telemetry.Enabled {
		log.Info().Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return err
	}
	relayMetrics, err := telemetry.NewRelayMetrics(tp.Meter)
	if err != nil {
		return err
	}

	store, closeStore, err := blocklist.Open(ctx, cfg.StoreConfig(log))
	if err != nil {
		return err
	}
	defer closeStore()

	registry := resilience.NewRegistry()
	dispatcher, err := newDispatcher(ctx, cfg, registry, log)
	if err != nil {
		return err
	}

	composerCfg, err := cfg.ComposerConfig()
	if err != nil {
		return err
	}

	keys := auth.NewKeySet(cfg.Auth.APIKeys...)
	service := relay.NewService(relay.Config{
		Gate:       auth.NewGate(auth.GateConfig{Keys: keys, Window: cfg.Auth.Window()}),
		Blocklist:  store,
		Composer:   notify.NewComposer(composerCfg),
		Dispatcher: dispatcher,
		Metrics:    relayMetrics,
		Logger:     log,
	})
	log.Info().
		Int("api_keys", keys.Len()).
		Dur("window", cfg.Auth.Window()).
		Str("blocklist_backend", cfg.BlockList.Backend).
		Str("dispatch_mode", cfg.FCM.Mode).
		Msg("relay service initialized")

	if cfg.BlockList.Subscription != "" {
		if err := startSubscriber(ctx, cfg, store, log); err != nil {
			return err
		}
	}

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     httpMetrics,
		Service:     service,
		Registry:    registry,
		RequireTLS:  cfg.RequireTLS,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("server stopped")
	return nil
}
