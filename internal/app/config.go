package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/edudao/gatekeeper/pkg/validator"
)

// Config represents the runtime configuration for the gatekeeper service.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Gates       map[string]string `mapstructure:"gates" validate:"dive,keys,startswith=/,endkeys,permission_name"`
	Gate        GateConfig        `mapstructure:"gate"`
	Sessions    SessionsConfig    `mapstructure:"sessions"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int    `mapstructure:"port" validate:"min=1,max=65535"`
	LogLevel     string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogEncoding  string `mapstructure:"log_encoding" validate:"omitempty,oneof=json console"`
	LandingRoute string `mapstructure:"landing_route" validate:"required,startswith=/"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver" validate:"oneof=sqlite postgres postgresql mysql"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
	SeedDemo bool         `mapstructure:"seed_demo"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig selects the store placed in front of the directory.
type CacheConfig struct {
	Backend string           `mapstructure:"backend" validate:"oneof=none memory redis database"`
	TTL     time.Duration    `mapstructure:"ttl" validate:"gte=0"`
	Size    int              `mapstructure:"size" validate:"gte=0"`
	Redis   RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuthConfig captures subject token settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// GateConfig tunes the page gates.
type GateConfig struct {
	WaitTimeout time.Duration `mapstructure:"wait_timeout" validate:"gt=0"`
}

// SessionsConfig bounds the per-subject session registry.
type SessionsConfig struct {
	Capacity int           `mapstructure:"capacity" validate:"gte=0"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// MaintenanceConfig schedules background jobs.
type MaintenanceConfig struct {
	CachePurgeSchedule string `mapstructure:"cache_purge_schedule"`
}

// MonitoringConfig enables metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// DefaultGates maps each gated page to the permission it requires.
func DefaultGates() map[string]string {
	return map[string]string{
		"/admin":       "manage_users",
		"/reviewer":    "review_proposal",
		"/institution": "manage_institution",
	}
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("GATEKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	// A configured gate table replaces the defaults instead of merging with them.
	if len(config.Gates) == 0 {
		config.Gates = DefaultGates()
	}
	config.Database.Driver = strings.ToLower(strings.TrimSpace(config.Database.Driver))
	config.Cache.Backend = strings.ToLower(strings.TrimSpace(config.Cache.Backend))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadConfigPath loads configuration from a directory or from the directory
// holding a config file. An empty path uses the default search paths.
func LoadConfigPath(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return LoadConfig()
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return LoadConfig(path)
	case err == nil:
		return LoadConfig(filepath.Dir(path))
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("config path %q does not exist", path)
	default:
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}
	if err := validator.ValidateStruct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Cache.Backend == "redis" && strings.TrimSpace(c.Cache.Redis.Address) == "" {
		return errors.New("config: cache.redis.address is required for the redis backend")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_encoding", "json")
	v.SetDefault("server.landing_route", "/")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/gatekeeper.sqlite")
	v.SetDefault("database.seed_demo", false)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("cache.size", 1024)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("auth.jwt.issuer", "gatekeeper")
	v.SetDefault("auth.jwt.access_token_ttl", "15m")

	v.SetDefault("gate.wait_timeout", "5s")
	v.SetDefault("sessions.capacity", 1024)
	v.SetDefault("sessions.ttl", "5m")

	v.SetDefault("maintenance.cache_purge_schedule", "@every 10m")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
