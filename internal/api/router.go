// Package api provides the HTTP API for the taxi relay.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/olahtaxi/taxirelay/internal/api/handler"
	"github.com/olahtaxi/taxirelay/internal/api/middleware"
	"github.com/olahtaxi/taxirelay/internal/provider/resilience"
	"github.com/olahtaxi/taxirelay/internal/relay"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Service     *relay.Service
	Registry    *resilience.Registry

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	// Zero values fall back to middleware.RequestRateLimit,
	// middleware.RequestIPRateLimit and middleware.AdminRateLimit.
	RequestRateLimit   middleware.RateLimitConfig
	RequestIPRateLimit middleware.RateLimitConfig
	AdminRateLimit     middleware.RateLimitConfig
}

// NewRouter creates a new chi router with all relay routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "taxirelay-api"
	}
	requestLimit := cfg.RequestRateLimit
	if requestLimit.RequestLimit == 0 {
		requestLimit = middleware.RequestRateLimit
	}
	requestIPLimit := cfg.RequestIPRateLimit
	if requestIPLimit.RequestLimit == 0 {
		requestIPLimit = middleware.RequestIPRateLimit
	}
	adminLimit := cfg.AdminRateLimit
	if adminLimit.RequestLimit == 0 {
		adminLimit = middleware.AdminRateLimit
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName, "/ops/health", "/ops/ready"))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.LimitBody(middleware.MaxBodyBytes))

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Service, cfg.Registry)
	relayHandler := handler.NewRelayHandler(cfg.Service, cfg.Logger)
	blockListHandler := handler.NewBlockListHandler(cfg.Service, cfg.Logger)

	r.NotFound(handler.NotFound)
	r.Get("/", handler.Root)

	r.Route("/ops", func(r chi.Router) {
		r.Get("/health", opsHandler.HealthCheck)
		r.Get("/ready", opsHandler.ReadinessCheck)
		r.Get("/status", opsHandler.SystemStatus)
	})

	r.With(middleware.RequireJSON, middleware.RateLimitByIP(requestIPLimit), middleware.RateLimitByKey(requestLimit)).
		Post("/request", relayHandler.CreateRequest)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(adminLimit))
		r.With(middleware.RequireJSON).Post("/update-blocked", blockListHandler.UpdateBlockList)
		r.Get("/blocked", blockListHandler.GetBlockList)
	})

	return r
}
