// Package config provides configuration loading and management for the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/yourorg/trader-leaderboard/internal/circuitbreaker"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Data    DataConfig    `yaml:"data"`
	Views   ViewsConfig   `yaml:"views"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Breaker BreakerConfig `yaml:"breaker"`
	Log     LogConfig     `yaml:"log"`

	// OpenTelemetry endpoint for observability
	OtelEndpoint string `yaml:"otel_endpoint"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port           string        `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	EnableMetrics  bool          `yaml:"enable_metrics"`
}

// DataConfig selects where traders are loaded from. An empty Source means
// the embedded fixture; otherwise a file path or an http(s) URL.
type DataConfig struct {
	Source          string        `yaml:"source"`
	APIKey          string        `yaml:"api_key"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`

	// Fall back to the embedded fixture when the configured source fails
	Fallback bool `yaml:"fallback"`
}

// ViewsConfig bounds the per-viewer table instances held by the server.
type ViewsConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	Capacity int           `yaml:"capacity"`

	// Comma separated gated actions, e.g. "sort,search,open", or "none"
	GatedActions string `yaml:"gated_actions"`
}

// WalletConfig configures wallet sessions.
type WalletConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	ChallengeTTL time.Duration `yaml:"challenge_ttl"`
	Domain       string        `yaml:"domain"`
}

// BreakerConfig guards snapshot refreshes.
type BreakerConfig struct {
	Enabled    bool                      `yaml:"enabled"`
	Thresholds circuitbreaker.Thresholds `yaml:"thresholds"`
	ResetDelay time.Duration             `yaml:"reset_delay"`
}

// LogConfig controls the format and level of logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           "8080",
			RequestTimeout: 10 * time.Second,
			RateLimitRPS:   10,
			RateLimitBurst: 20,
			AllowedOrigins: []string{"*"},
			EnableMetrics:  true,
		},
		Data: DataConfig{
			CacheTTL: time.Minute,
		},
		Views: ViewsConfig{
			TTL:          30 * time.Minute,
			Capacity:     1000,
			GatedActions: "sort,search,open",
		},
		Wallet: WalletConfig{
			SessionTTL:   24 * time.Hour,
			ChallengeTTL: 5 * time.Minute,
			Domain:       "trader-leaderboard",
		},
		Breaker: BreakerConfig{
			Enabled:    true,
			Thresholds: circuitbreaker.DefaultThresholds(),
			ResetDelay: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file at
// path, a .env file if present, and finally environment variables.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Views.Capacity <= 0 {
		return fmt.Errorf("views capacity must be positive, got %d", c.Views.Capacity)
	}
	if c.Data.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must not be negative")
	}
	return nil
}

// applyEnvOverrides overwrites values with environment variables if present.
func applyEnvOverrides(cfg *Config) {
	cfg.Server.Port = GetEnvOrDefault("PORT", cfg.Server.Port)
	cfg.Server.RequestTimeout = GetEnvAsDuration("REQUEST_TIMEOUT", cfg.Server.RequestTimeout)
	cfg.Server.RateLimitRPS = GetEnvAsFloat("RATE_LIMIT_RPS", cfg.Server.RateLimitRPS)
	cfg.Server.RateLimitBurst = GetEnvAsInt("RATE_LIMIT_BURST", cfg.Server.RateLimitBurst)
	cfg.Server.EnableMetrics = GetEnvAsBool("ENABLE_METRICS", cfg.Server.EnableMetrics)
	if origins, ok := GetEnv("ALLOWED_ORIGINS"); ok && origins != "" {
		cfg.Server.AllowedOrigins = splitList(origins)
	}

	cfg.Data.Source = GetEnvOrDefault("DATA_SOURCE", cfg.Data.Source)
	cfg.Data.APIKey = GetEnvOrDefault("DATA_API_KEY", cfg.Data.APIKey)
	cfg.Data.RefreshInterval = GetEnvAsDuration("REFRESH_INTERVAL", cfg.Data.RefreshInterval)
	cfg.Data.CacheTTL = GetEnvAsDuration("DATA_CACHE_TTL", cfg.Data.CacheTTL)
	cfg.Data.Fallback = GetEnvAsBool("DATA_FALLBACK", cfg.Data.Fallback)

	cfg.Views.TTL = GetEnvAsDuration("VIEW_TTL", cfg.Views.TTL)
	cfg.Views.Capacity = GetEnvAsInt("VIEW_CAPACITY", cfg.Views.Capacity)
	cfg.Views.GatedActions = GetEnvOrDefault("GATED_ACTIONS", cfg.Views.GatedActions)

	cfg.Wallet.JWTSecret = GetEnvOrDefault("JWT_SECRET", cfg.Wallet.JWTSecret)
	cfg.Wallet.SessionTTL = GetEnvAsDuration("SESSION_TTL", cfg.Wallet.SessionTTL)
	cfg.Wallet.ChallengeTTL = GetEnvAsDuration("CHALLENGE_TTL", cfg.Wallet.ChallengeTTL)
	cfg.Wallet.Domain = GetEnvOrDefault("WALLET_DOMAIN", cfg.Wallet.Domain)

	cfg.Breaker.Enabled = GetEnvAsBool("ENABLE_CIRCUIT_BREAKER", cfg.Breaker.Enabled)
	cfg.Breaker.Thresholds.MinTraders = GetEnvAsInt("MIN_TRADER_COUNT", cfg.Breaker.Thresholds.MinTraders)
	cfg.Breaker.Thresholds.MaxShrink = GetEnvAsFloat("MAX_TRADER_SHRINK", cfg.Breaker.Thresholds.MaxShrink)
	cfg.Breaker.Thresholds.MaxMalformedShare = GetEnvAsFloat("MAX_MALFORMED_SHARE", cfg.Breaker.Thresholds.MaxMalformedShare)
	cfg.Breaker.ResetDelay = GetEnvAsDuration("CIRCUIT_RESET_DELAY", cfg.Breaker.ResetDelay)

	cfg.Log.Level = GetEnvOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = GetEnvOrDefault("LOG_FORMAT", cfg.Log.Format)

	cfg.OtelEndpoint = GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OtelEndpoint)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.Warnf("Invalid integer in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		logrus.Warnf("Invalid float in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.Warnf("Invalid duration in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
		logrus.Warnf("Invalid boolean in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}
