package blocklist

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/olahtaxi/taxirelay/internal/database"
)

// Backends accepted by Open.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// OpenConfig selects and configures a Store.
type OpenConfig struct {
	// Backend is one of the Backend constants.
	// Default: BackendMemory
	Backend  string
	Redis    RedisConfig
	Database database.Config
	Logger   zerolog.Logger
}

// Open connects the configured backend. The returned func releases its connections.
func Open(ctx context.Context, cfg OpenConfig) (Store, func(), error) {
	switch cfg.Backend {
	case BackendRedis:
		store, err := DialRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		cfg.Logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis block list connected")
		return store, func() { _ = store.Close() }, nil

	case BackendPostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store := NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate block list schema: %w", err)
		}
		cfg.Logger.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("postgres block list connected")
		return store, pool.Close, nil

	case BackendMemory, "":
		cfg.Logger.Warn().Msg("using in-memory block list; updates are lost on restart")
		return NewMemoryStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown block list backend %q", cfg.Backend)
	}
}
