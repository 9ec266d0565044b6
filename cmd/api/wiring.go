package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/olahtaxi/taxirelay/internal/blocklist"
	"github.com/olahtaxi/taxirelay/internal/config"
	"github.com/olahtaxi/taxirelay/internal/fcm"
	"github.com/olahtaxi/taxirelay/internal/provider/resilience"
)

// newDispatcher builds the FCM dispatcher for the configured mode.
func newDispatcher(ctx context.Context, cfg *config.Config, registry *resilience.Registry, log zerolog.Logger) (fcm.Dispatcher, error) {
	sa, err := cfg.ServiceAccount()
	if err != nil {
		return nil, fmt.Errorf("fcm service account: %w", err)
	}

	if cfg.FCM.Mode == config.DispatchSDK {
		client, err := fcm.NewMessagingClient(ctx, sa)
		if err != nil {
			return nil, err
		}
		log.Info().Str("project_id", sa.ProjectID).Msg("firebase sdk dispatcher initialized")
		return fcm.NewSDKDispatcher(client, cfg.FCM.Topic, log).WithTimeout(cfg.FCM.Timeout), nil
	}

	tokenClientCfg := resilience.DefaultClientConfig("fcm-token")
	tokenClientCfg.Timeout = cfg.FCM.Timeout
	tokenClientCfg.Registry = registry

	tokens, err := fcm.NewTokenSource(fcm.TokenSourceConfig{
		Account: sa,
		Client:  resilience.NewClient(tokenClientCfg),
		Timeout: cfg.FCM.Timeout,
	})
	if err != nil {
		return nil, err
	}

	sendClientCfg := resilience.DefaultClientConfig("fcm-send")
	sendClientCfg.Timeout = cfg.FCM.Timeout
	sendClientCfg.Registry = registry

	log.Info().
		Str("project_id", sa.ProjectID).
		Str("endpoint", cfg.FCM.Endpoint).
		Str("topic", cfg.FCM.Topic).
		Msg("fcm http dispatcher initialized")

	return fcm.NewHTTPDispatcher(fcm.HTTPDispatcherConfig{
		ProjectID: sa.ProjectID,
		Endpoint:  cfg.FCM.Endpoint,
		Topic:     cfg.FCM.Topic,
		Tokens:    tokens,
		Client:    resilience.NewClient(sendClientCfg),
		Logger:    log,
	}), nil
}

// startSubscriber keeps the store in sync with the block list subscription
// until ctx is cancelled.
func startSubscriber(ctx context.Context, cfg *config.Config, store blocklist.Store, log zerolog.Logger) error {
	project := cfg.PubSubProject()
	if project == "" {
		sa, err := cfg.ServiceAccount()
		if err != nil {
			return err
		}
		project = sa.ProjectID
	}

	sub, err := blocklist.NewSubscriber(ctx, blocklist.SubscriberConfig{
		ProjectID:        project,
		SubscriptionName: cfg.BlockList.Subscription,
		Store:            store,
		Logger:           log.With().Str("component", "blocklist_sync").Logger(),
	})
	if err != nil {
		return err
	}

	go func() {
		defer func() { _ = sub.Close() }()
		if err := sub.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("block list subscriber stopped")
		}
	}()
	return nil
}
