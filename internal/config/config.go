package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/radiusdt/vector-attribution/internal/models"
)

// Config holds all configuration for the attribution service.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Cache      CacheConfig
	Engine     EngineConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// ClickHouseConfig configures the warehouse holding touchpoints and spend.
type ClickHouseConfig struct {
	Enabled          bool
	Addrs            []string
	Database         string
	Username         string
	Password         string
	TouchpointsTable string
	SpendTable       string
	DialTimeout      time.Duration
	MaxOpenConns     int
	MaxIdleConns     int
	Debug            bool
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool
	Path      string
	Namespace string
}

// CacheConfig configures the Redis report cache in front of the engine.
type CacheConfig struct {
	Enabled   bool
	TTL       time.Duration
	KeyPrefix string
}

// EngineConfig holds attribution engine settings.
type EngineConfig struct {
	// DefaultModel is used when a request does not name a model.
	DefaultModel string
	// ComputeTimeout bounds a single computation including store fetches.
	ComputeTimeout time.Duration
	// MaxWindowDays rejects requests spanning more days than this (0 disables).
	MaxWindowDays int
}

// Load reads configuration from environment variables with sensible defaults
// and validates it.
func Load() (*Config, error) {
	cfg := Read()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads configuration from environment variables without validating it.
// Callers that adjust the result before use must call Validate themselves.
func Read() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("VECTOR_ATTR_HTTP_ADDR", ":8080"),
			Env:             getEnv("VECTOR_ATTR_ENV", "development"),
			ShutdownTimeout: getDurationEnv("VECTOR_ATTR_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolEnv("VECTOR_ATTR_DB_ENABLED", true),
			Host:     getEnv("VECTOR_ATTR_DB_HOST", "localhost"),
			Port:     getIntEnv("VECTOR_ATTR_DB_PORT", 5432),
			User:     getEnv("VECTOR_ATTR_DB_USER", "attribution"),
			Password: getEnv("VECTOR_ATTR_DB_PASSWORD", "attribution_secret"),
			DBName:   getEnv("VECTOR_ATTR_DB_NAME", "attribution"),
			SSLMode:  getEnv("VECTOR_ATTR_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("VECTOR_ATTR_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("VECTOR_ATTR_DB_MIN_CONNS", 5),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:          getBoolEnv("VECTOR_ATTR_CLICKHOUSE_ENABLED", true),
			Addrs:            getSliceEnv("VECTOR_ATTR_CLICKHOUSE_ADDRS", []string{"localhost:9000"}),
			Database:         getEnv("VECTOR_ATTR_CLICKHOUSE_DATABASE", "analytics"),
			Username:         getEnv("VECTOR_ATTR_CLICKHOUSE_USER", "default"),
			Password:         getEnv("VECTOR_ATTR_CLICKHOUSE_PASSWORD", ""),
			TouchpointsTable: getEnv("VECTOR_ATTR_CLICKHOUSE_TOUCHPOINTS_TABLE", "order_touchpoints"),
			SpendTable:       getEnv("VECTOR_ATTR_CLICKHOUSE_SPEND_TABLE", "ad_spend"),
			DialTimeout:      getDurationEnv("VECTOR_ATTR_CLICKHOUSE_DIAL_TIMEOUT", 5*time.Second),
			MaxOpenConns:     getIntEnv("VECTOR_ATTR_CLICKHOUSE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:     getIntEnv("VECTOR_ATTR_CLICKHOUSE_MAX_IDLE_CONNS", 5),
			Debug:            getBoolEnv("VECTOR_ATTR_CLICKHOUSE_DEBUG", false),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("VECTOR_ATTR_REDIS_ENABLED", true),
			Addr:     getEnv("VECTOR_ATTR_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("VECTOR_ATTR_REDIS_PASSWORD", ""),
			DB:       getIntEnv("VECTOR_ATTR_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("VECTOR_ATTR_AUTH_ENABLED", true),
			MasterKey: getEnv("VECTOR_ATTR_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("VECTOR_ATTR_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("VECTOR_ATTR_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("VECTOR_ATTR_RATE_LIMIT_RPS", 50),
			Burst:   getIntEnv("VECTOR_ATTR_RATE_LIMIT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("VECTOR_ATTR_LOG_LEVEL", "info"),
			Format: getEnv("VECTOR_ATTR_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled:   getBoolEnv("VECTOR_ATTR_METRICS_ENABLED", true),
			Path:      getEnv("VECTOR_ATTR_METRICS_PATH", "/metrics"),
			Namespace: getEnv("VECTOR_ATTR_METRICS_NAMESPACE", "vector_attribution"),
		},
		Cache: CacheConfig{
			Enabled:   getBoolEnv("VECTOR_ATTR_CACHE_ENABLED", true),
			TTL:       getDurationEnv("VECTOR_ATTR_CACHE_TTL", 5*time.Minute),
			KeyPrefix: getEnv("VECTOR_ATTR_CACHE_PREFIX", "attribution:report"),
		},
		Engine: EngineConfig{
			DefaultModel:   getEnv("VECTOR_ATTR_DEFAULT_MODEL", "last_click"),
			ComputeTimeout: getDurationEnv("VECTOR_ATTR_COMPUTE_TIMEOUT", 60*time.Second),
			MaxWindowDays:  getIntEnv("VECTOR_ATTR_MAX_WINDOW_DAYS", 366),
		},
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("VECTOR_ATTR_API_KEY_MASTER is required when auth is enabled")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("VECTOR_ATTR_CACHE_TTL must be positive when the cache is enabled")
	}
	if c.ClickHouse.Enabled && len(c.ClickHouse.Addrs) == 0 {
		return fmt.Errorf("VECTOR_ATTR_CLICKHOUSE_ADDRS is required when ClickHouse is enabled")
	}
	if !models.AttributionModel(c.Engine.DefaultModel).Valid() {
		return fmt.Errorf("VECTOR_ATTR_DEFAULT_MODEL %q is not a known attribution model", c.Engine.DefaultModel)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("VECTOR_ATTR_RATE_LIMIT_RPS and VECTOR_ATTR_RATE_LIMIT_BURST must be positive")
	}
	if c.Engine.MaxWindowDays < 0 {
		return fmt.Errorf("VECTOR_ATTR_MAX_WINDOW_DAYS must not be negative")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
