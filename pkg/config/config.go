package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/pluma/pkg/observability"
	"github.com/platinummonkey/pluma/pkg/rbac"
	"github.com/platinummonkey/pluma/pkg/sso"
	"github.com/platinummonkey/pluma/pkg/storage/postgres"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Audit         AuditConfig         `yaml:"audit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// DatabaseConfig holds PostgreSQL pool configuration
type DatabaseConfig struct {
	URL           string        `yaml:"url"`
	MaxConns      int           `yaml:"max_conns"`
	MinConns      int           `yaml:"min_conns"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxLifetime   time.Duration `yaml:"max_lifetime"`
	MaxIdleTime   time.Duration `yaml:"max_idle_time"`
	RunMigrations bool          `yaml:"run_migrations"`
}

// RedisConfig holds the optional Redis connection. An empty URL disables Redis.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// AuthConfig holds identity provider settings
type AuthConfig struct {
	IssuerURL      string        `yaml:"issuer_url"`
	ClientID       string        `yaml:"client_id"`
	ClientSecret   string        `yaml:"client_secret"`
	RedirectURL    string        `yaml:"redirect_url"`
	Scopes         []string      `yaml:"scopes"`
	TokenCacheSize int           `yaml:"token_cache_size"`
	TokenCacheTTL  time.Duration `yaml:"token_cache_ttl"`
	DefaultRole    string        `yaml:"default_role"`
}

// RateLimitConfig limits post and comment creation per principal
type RateLimitConfig struct {
	RequestsPerWindow int           `yaml:"requests_per_window"`
	Window            time.Duration `yaml:"window"`
	Burst             int           `yaml:"burst"`
}

// AuditConfig controls the audit trail and its retention
type AuditConfig struct {
	Enabled         bool   `yaml:"enabled"`
	RetentionDays   int    `yaml:"retention_days"`
	CleanupSchedule string `yaml:"cleanup_schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"` // Use insecure gRPC connection
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			HealthPort:      "9090",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:      20,
			MinConns:      5,
			Timeout:       5 * time.Second,
			MaxLifetime:   30 * time.Minute,
			MaxIdleTime:   5 * time.Minute,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			PoolSize: 10,
		},
		Auth: AuthConfig{
			Scopes:         []string{"openid", "profile", "email"},
			TokenCacheSize: 1024,
			TokenCacheTTL:  5 * time.Minute,
			DefaultRole:    rbac.DefaultRoleName,
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: 30,
			Window:            time.Minute,
			Burst:             5,
		},
		Audit: AuditConfig{
			Enabled:         true,
			RetentionDays:   90,
			CleanupSchedule: "0 3 * * *",
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "pluma",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1.0,
		},
	}
}

// LoadConfig loads configuration from PLUMA_CONFIG_FILE (when set) and
// environment variables, then validates it
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("PLUMA_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile decodes a YAML file over the current values. Unknown keys are
// rejected so typos surface at start.
func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides values with any PLUMA_* variables that are set
func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("PLUMA_HOST", s.Host)
	s.Port = getEnv("PLUMA_PORT", s.Port)
	s.HealthPort = getEnv("PLUMA_HEALTH_PORT", s.HealthPort)
	s.ReadTimeout = getEnvDuration("PLUMA_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("PLUMA_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("PLUMA_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("PLUMA_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.CORSOrigins = getEnvList("PLUMA_CORS_ORIGINS", s.CORSOrigins)

	d := &c.Database
	d.URL = getEnv("PLUMA_DATABASE_URL", d.URL)
	d.MaxConns = getEnvInt("PLUMA_DATABASE_MAX_CONNS", d.MaxConns)
	d.MinConns = getEnvInt("PLUMA_DATABASE_MIN_CONNS", d.MinConns)
	d.Timeout = getEnvDuration("PLUMA_DATABASE_TIMEOUT", d.Timeout)
	d.MaxLifetime = getEnvDuration("PLUMA_DATABASE_MAX_LIFETIME", d.MaxLifetime)
	d.MaxIdleTime = getEnvDuration("PLUMA_DATABASE_MAX_IDLE_TIME", d.MaxIdleTime)
	d.RunMigrations = getEnvBool("PLUMA_RUN_MIGRATIONS", d.RunMigrations)

	r := &c.Redis
	r.URL = getEnv("PLUMA_REDIS_URL", r.URL)
	r.Password = getEnv("PLUMA_REDIS_PASSWORD", r.Password)
	r.DB = getEnvInt("PLUMA_REDIS_DB", r.DB)
	r.PoolSize = getEnvInt("PLUMA_REDIS_POOL_SIZE", r.PoolSize)

	a := &c.Auth
	a.IssuerURL = getEnv("PLUMA_OIDC_ISSUER_URL", a.IssuerURL)
	a.ClientID = getEnv("PLUMA_OIDC_CLIENT_ID", a.ClientID)
	a.ClientSecret = getEnv("PLUMA_OIDC_CLIENT_SECRET", a.ClientSecret)
	a.RedirectURL = getEnv("PLUMA_OIDC_REDIRECT_URL", a.RedirectURL)
	a.Scopes = getEnvList("PLUMA_OIDC_SCOPES", a.Scopes)
	a.TokenCacheSize = getEnvInt("PLUMA_TOKEN_CACHE_SIZE", a.TokenCacheSize)
	a.TokenCacheTTL = getEnvDuration("PLUMA_TOKEN_CACHE_TTL", a.TokenCacheTTL)
	a.DefaultRole = getEnv("PLUMA_DEFAULT_ROLE", a.DefaultRole)

	rl := &c.RateLimit
	rl.RequestsPerWindow = getEnvInt("PLUMA_RATE_LIMIT_REQUESTS", rl.RequestsPerWindow)
	rl.Window = getEnvDuration("PLUMA_RATE_LIMIT_WINDOW", rl.Window)
	rl.Burst = getEnvInt("PLUMA_RATE_LIMIT_BURST", rl.Burst)

	au := &c.Audit
	au.Enabled = getEnvBool("PLUMA_AUDIT_ENABLED", au.Enabled)
	au.RetentionDays = getEnvInt("PLUMA_AUDIT_RETENTION_DAYS", au.RetentionDays)
	au.CleanupSchedule = getEnv("PLUMA_AUDIT_CLEANUP_SCHEDULE", au.CleanupSchedule)

	o := &c.Observability
	o.LogLevel = getEnv("PLUMA_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("PLUMA_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("PLUMA_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("PLUMA_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("PLUMA_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("PLUMA_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("PLUMA_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("PLUMA_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.Database.MaxConns <= 0 || c.Database.MinConns <= 0 {
		return fmt.Errorf("database pool sizes must be positive")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database min conns (%d) exceeds max conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Redis.URL != "" && c.Redis.PoolSize <= 0 {
		return fmt.Errorf("redis pool size must be positive")
	}

	if c.Auth.DefaultRole == "" {
		return fmt.Errorf("default role is required")
	}
	if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit requests and window must be positive")
	}
	if c.Audit.Enabled && c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit retention days must be positive")
	}

	if _, err := observability.ParseLogLevel(c.Observability.LogLevel); err != nil {
		return err
	}
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// OIDCEnabled reports whether an identity provider is configured
func (c *Config) OIDCEnabled() bool {
	return c.Auth.IssuerURL != ""
}

// LogLevel returns the parsed log level. Validate has already rejected
// unknown names.
func (c *Config) LogLevel() observability.LogLevel {
	level, _ := observability.ParseLogLevel(c.Observability.LogLevel)
	return level
}

// ConnectionConfig returns the pool settings for postgres.NewConnectionManager
func (c *Config) ConnectionConfig() postgres.ConnectionConfig {
	return postgres.ConnectionConfig{
		URL:         c.Database.URL,
		MaxConns:    c.Database.MaxConns,
		MinConns:    c.Database.MinConns,
		Timeout:     c.Database.Timeout,
		MaxLifetime: c.Database.MaxLifetime,
		MaxIdleTime: c.Database.MaxIdleTime,
	}
}

// OIDCConfig returns the identity provider settings
func (c *Config) OIDCConfig() *sso.OIDCConfig {
	return &sso.OIDCConfig{
		ClientID:       c.Auth.ClientID,
		ClientSecret:   c.Auth.ClientSecret,
		IssuerURL:      c.Auth.IssuerURL,
		RedirectURL:    c.Auth.RedirectURL,
		Scopes:         c.Auth.Scopes,
		TokenCacheSize: c.Auth.TokenCacheSize,
		TokenCacheTTL:  c.Auth.TokenCacheTTL,
	}
}

// OTelConfig returns the OpenTelemetry settings
func (c *Config) OTelConfig() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Insecure:       c.Observability.OTelInsecure,
		SampleRatio:    c.Observability.OTelSampleRatio,
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
