// Package config loads relay settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/olahtaxi/taxirelay/internal/blocklist"
	"github.com/olahtaxi/taxirelay/internal/database"
	"github.com/olahtaxi/taxirelay/internal/fcm"
	"github.com/olahtaxi/taxirelay/internal/notify"
)

// FileEnv names the environment variable pointing at the YAML base file.
const FileEnv = "RELAY_CONFIG_FILE"

// Block list backends.
const (
	BackendMemory   = blocklist.BackendMemory
	BackendRedis    = blocklist.BackendRedis
	BackendPostgres = blocklist.BackendPostgres
)

// Dispatch modes.
const (
	DispatchHTTP = "http"
	DispatchSDK  = "sdk"
)

// Config is the complete relay configuration.
type Config struct {
	Env        string `yaml:"env"`
	Port       string `yaml:"port"`
	LogLevel   string `yaml:"log_level"`
	RequireTLS bool   `yaml:"require_tls"`

	Auth      AuthConfig      `yaml:"auth"`
	FCM       FCMConfig       `yaml:"fcm"`
	Notify    NotifyConfig    `yaml:"notify"`
	BlockList BlockListConfig `yaml:"blocklist"`
	Database  database.Config `yaml:"database"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// AuthConfig configures the auth gate.
type AuthConfig struct {
	APIKeys   []string `yaml:"api_keys"`
	WindowSec int      `yaml:"allowed_window_sec"`
}

// Window returns the replay window as a duration.
func (a AuthConfig) Window() time.Duration {
	return time.Duration(a.WindowSec) * time.Second
}

// FCMConfig configures the push backend.
type FCMConfig struct {
	// ServiceAccountFile takes precedence over the inline credential fields.
	ServiceAccountFile string `yaml:"service_account_file"`
	ClientEmail        string `yaml:"client_email"`
	PrivateKey         string `yaml:"private_key"`
	ProjectID          string `yaml:"project_id"`
	TokenURI           string `yaml:"token_uri"`

	Endpoint string        `yaml:"endpoint"`
	Topic    string        `yaml:"topic"`
	Mode     string        `yaml:"mode"`
	Timeout  time.Duration `yaml:"timeout"`
}

// NotifyConfig configures the notification text.
type NotifyConfig struct {
	TimeZone     string `yaml:"timezone"`
	ArabicDigits bool   `yaml:"arabic_digits"`
}

// BlockListConfig selects and configures the block list store.
type BlockListConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`

	// Subscription, when set, keeps the store in sync from Pub/Sub.
	Subscription    string `yaml:"subscription"`
	PubSubProjectID string `yaml:"pubsub_project_id"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// SampleRatio is the fraction of root traces kept. 1 keeps all.
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Default returns the built-in settings. API keys and FCM credentials have no default.
func Default() Config {
	return Config{
		Env:      "development",
		Port:     "3000",
		LogLevel: "info",
		Auth: AuthConfig{
			WindowSec: 60,
		},
		FCM: FCMConfig{
			Endpoint: fcm.DefaultEndpoint,
			Topic:    fcm.DefaultTopic,
			Mode:     DispatchHTTP,
			Timeout:  5 * time.Second,
		},
		Notify: NotifyConfig{
			TimeZone:     notify.DefaultTimeZone,
			ArabicDigits: true,
		},
		BlockList: BlockListConfig{
			Backend: BackendMemory,
		},
		Database: database.DefaultConfig(),
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			SampleRatio:  1,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// RELAY_CONFIG_FILE if set, then environment overrides. The result is validated.
func Load(logger zerolog.Logger) (*Config, error) {
	return load(logger, (*Config).Validate)
}

// LoadSync is Load for the block list sync worker, which needs neither API
// keys nor FCM credentials.
func LoadSync(logger zerolog.Logger) (*Config, error) {
	return load(logger, (*Config).ValidateSync)
}

func load(logger zerolog.Logger, validate func(*Config) error) (*Config, error) {
	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		logger.Debug().Str("path", path).Msg("loading config file")
		loaded, err := LoadFile(path, cfg)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	ApplyEnv(&cfg, logger)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile overlays the YAML file at path onto base. Keys absent from the
// file keep their base value.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data, base)
}

// Parse overlays YAML data onto base.
func Parse(data []byte, base Config) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg. Unparsable numeric and
// boolean values are logged and ignored.
func ApplyEnv(cfg *Config, logger zerolog.Logger) {
	e := envReader{logger: logger}

	e.str("APP_ENV", &cfg.Env)
	e.str("APP_PORT", &cfg.Port)
	e.str("PORT", &cfg.Port)
	e.str("LOG_LEVEL", &cfg.LogLevel)
	e.boolean("REQUIRE_TLS", &cfg.RequireTLS)

	if raw, ok := os.LookupEnv("API_KEYS"); ok {
		cfg.Auth.APIKeys = splitList(raw)
	}
	e.integer("ALLOWED_WINDOW_SEC", &cfg.Auth.WindowSec)

	e.str("FCM_SERVICE_ACCOUNT_FILE", &cfg.FCM.ServiceAccountFile)
	e.str("FCM_CLIENT_EMAIL", &cfg.FCM.ClientEmail)
	e.str("FCM_PRIVATE_KEY", &cfg.FCM.PrivateKey)
	e.str("FCM_PROJECT_ID", &cfg.FCM.ProjectID)
	e.str("FCM_TOKEN_URI", &cfg.FCM.TokenURI)
	e.str("FCM_ENDPOINT", &cfg.FCM.Endpoint)
	e.str("FCM_TOPIC", &cfg.FCM.Topic)
	e.str("FCM_DISPATCH_MODE", &cfg.FCM.Mode)
	e.duration("FCM_TIMEOUT", &cfg.FCM.Timeout)

	e.str("NOTIFY_TIMEZONE", &cfg.Notify.TimeZone)
	e.boolean("NOTIFY_ARABIC_DIGITS", &cfg.Notify.ArabicDigits)

	e.str("BLOCKLIST_BACKEND", &cfg.BlockList.Backend)
	e.str("REDIS_ADDR", &cfg.BlockList.Redis.Addr)
	e.str("REDIS_PASSWORD", &cfg.BlockList.Redis.Password)
	e.integer("REDIS_DB", &cfg.BlockList.Redis.DB)
	e.str("REDIS_PREFIX", &cfg.BlockList.Redis.Prefix)
	e.str("BLOCKLIST_SUBSCRIPTION", &cfg.BlockList.Subscription)
	e.str("PUBSUB_PROJECT_ID", &cfg.BlockList.PubSubProjectID)

	cfg.Database = database.ApplyEnv(cfg.Database)

	e.boolean("OTEL_ENABLED", &cfg.Telemetry.Enabled)
	e.str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
	e.ratio("OTEL_TRACES_SAMPLER_ARG", &cfg.Telemetry.SampleRatio)
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Auth.APIKeys) == 0 {
		errs = append(errs, errors.New("api_keys is required (set via YAML or API_KEYS env var)"))
	}
	if c.Auth.WindowSec <= 0 {
		errs = append(errs, fmt.Errorf("allowed_window_sec must be positive, got %d", c.Auth.WindowSec))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}

	switch c.FCM.Mode {
	case DispatchHTTP, DispatchSDK:
	default:
		errs = append(errs, fmt.Errorf("fcm mode must be %q or %q, got %q", DispatchHTTP, DispatchSDK, c.FCM.Mode))
	}
	if c.FCM.ServiceAccountFile == "" {
		var missing []string
		if c.FCM.ClientEmail == "" {
			missing = append(missing, "client_email")
		}
		if c.FCM.PrivateKey == "" {
			missing = append(missing, "private_key")
		}
		if c.FCM.ProjectID == "" {
			missing = append(missing, "project_id")
		}
		if len(missing) > 0 {
			errs = append(errs, fmt.Errorf("fcm credentials incomplete, missing %s (or set FCM_SERVICE_ACCOUNT_FILE)", strings.Join(missing, ", ")))
		}
	}
	if c.FCM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fcm timeout must be positive, got %s", c.FCM.Timeout))
	}

	if _, err := time.LoadLocation(c.Notify.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("notify timezone: %w", err))
	}

	errs = append(errs, c.validateBlockList()...)
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry sample_ratio must be within [0, 1], got %g", c.Telemetry.SampleRatio))
	}
	if c.BlockList.Subscription != "" && c.PubSubProject() == "" && c.FCM.ServiceAccountFile == "" {
		errs = append(errs, errors.New("pubsub_project_id is required when a block list subscription is set"))
	}

	return errors.Join(errs...)
}

// ValidateSync checks the settings used by the sync worker. A subscription is
// mandatory and the in-memory backend is refused since nothing else could read it.
func (c *Config) ValidateSync() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	errs = append(errs, c.validateBlockList()...)
	if c.BlockList.Backend == BackendMemory {
		errs = append(errs, errors.New("sync worker needs a shared block list backend (redis or postgres)"))
	}
	if c.BlockList.Subscription == "" {
		errs = append(errs, errors.New("block list subscription is required (set BLOCKLIST_SUBSCRIPTION)"))
	}
	if c.PubSubProject() == "" {
		errs = append(errs, errors.New("pubsub_project_id is required (set PUBSUB_PROJECT_ID)"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateBlockList() []error {
	switch c.BlockList.Backend {
	case BackendMemory, BackendPostgres:
	case BackendRedis:
		if c.BlockList.Redis.Addr == "" {
			return []error{errors.New("redis addr is required for the redis block list backend")}
		}
	default:
		return []error{fmt.Errorf("unknown block list backend %q", c.BlockList.Backend)}
	}
	return nil
}

// PubSubProject returns the project hosting the block list subscription,
// defaulting to the FCM project.
func (c *Config) PubSubProject() string {
	if c.BlockList.PubSubProjectID != "" {
		return c.BlockList.PubSubProjectID
	}
	return c.FCM.ProjectID
}

// Level returns the zerolog level for LogLevel, defaulting to info.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// ServiceAccount resolves the FCM service account from the file or the inline fields.
func (c *Config) ServiceAccount() (*fcm.ServiceAccount, error) {
	if c.FCM.ServiceAccountFile != "" {
		sa, _, err := fcm.LoadServiceAccountFile(c.FCM.ServiceAccountFile)
		return sa, err
	}
	sa := &fcm.ServiceAccount{
		ClientEmail: c.FCM.ClientEmail,
		PrivateKey:  c.FCM.PrivateKey,
		ProjectID:   c.FCM.ProjectID,
		TokenURI:    c.FCM.TokenURI,
	}
	if err := sa.Validate(); err != nil {
		return nil, err
	}
	return sa, nil
}

// ComposerConfig returns the notification composer configuration.
func (c *Config) ComposerConfig() (notify.Config, error) {
	loc, err := time.LoadLocation(c.Notify.TimeZone)
	if err != nil {
		return notify.Config{}, fmt.Errorf("notify timezone: %w", err)
	}
	cfg := notify.DefaultConfig()
	cfg.Location = loc
	cfg.ArabicDigits = c.Notify.ArabicDigits
	return cfg, nil
}

// StoreConfig returns the block list backend selection.
func (c *Config) StoreConfig(logger zerolog.Logger) blocklist.OpenConfig {
	return blocklist.OpenConfig{
		Backend: c.BlockList.Backend,
		Redis: blocklist.RedisConfig{
			Addr:     c.BlockList.Redis.Addr,
			Password: c.BlockList.Redis.Password,
			DB:       c.BlockList.Redis.DB,
			Prefix:   c.BlockList.Redis.Prefix,
		},
		Database: c.Database,
		Logger:   logger,
	}
}

type envReader struct {
	logger zerolog.Logger
}

func (e envReader) str(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		e.logger.Debug().Str("key", key).Str("source", "env").Msg("overriding config value")
		*dst = val
	}
}

func (e envReader) integer(key string, dst *int) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		e.logger.Warn().Str("key", key).Str("value", val).Msg("ignoring non-integer env value")
		return
	}
	*dst = n
}

func (e envReader) boolean(key string, dst *bool) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		e.logger.Warn().Str("key", key).Str("value", val).Msg("ignoring non-boolean env value")
		return
	}
	*dst = b
}

func (e envReader) ratio(key string, dst *float64) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		e.logger.Warn().Str("key", key).Str("value", val).Msg("ignoring non-numeric env value")
		return
	}
	*dst = f
}

func (e envReader) duration(key string, dst *time.Duration) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		e.logger.Warn().Str("key", key).Str("value", val).Msg("ignoring unparsable duration")
		return
	}
	*dst = d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
