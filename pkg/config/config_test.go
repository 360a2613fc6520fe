package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/platinummonkey/pluma/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("PLUMA_TEST_STRING", "custom")
	t.Setenv("PLUMA_TEST_BOOL", "TRUE")
	t.Setenv("PLUMA_TEST_BOOL_ONE", "1")
	t.Setenv("PLUMA_TEST_INT", "42")
	t.Setenv("PLUMA_TEST_BAD_INT", "forty")
	t.Setenv("PLUMA_TEST_FLOAT", "0.25")
	t.Setenv("PLUMA_TEST_DURATION", "90s")
	t.Setenv("PLUMA_TEST_BAD_DURATION", "soon")
	t.Setenv("PLUMA_TEST_LIST", " a, b ,,c ")

	assert.Equal(t, "custom", getEnv("PLUMA_TEST_STRING", "default"))
	assert.Equal(t, "default", getEnv("PLUMA_TEST_UNSET", "default"))

	assert.True(t, getEnvBool("PLUMA_TEST_BOOL", false))
	assert.True(t, getEnvBool("PLUMA_TEST_BOOL_ONE", false))
	assert.True(t, getEnvBool("PLUMA_TEST_UNSET", true))

	assert.Equal(t, 42, getEnvInt("PLUMA_TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("PLUMA_TEST_BAD_INT", 1))
	assert.Equal(t, 0.25, getEnvFloat("PLUMA_TEST_FLOAT", 1))

	assert.Equal(t, 90*time.Second, getEnvDuration("PLUMA_TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("PLUMA_TEST_BAD_DURATION", time.Second))

	assert.Equal(t, []string{"a", "b", "c"}, getEnvList("PLUMA_TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, getEnvList("PLUMA_TEST_UNSET", []string{"x"}))
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PLUMA_CONFIG_FILE", "")
	t.Setenv("PLUMA_DATABASE_URL", "postgres://localhost/pluma")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.True(t, cfg.Database.RunMigrations)
	assert.Equal(t, "comentador", cfg.Auth.DefaultRole)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerWindow)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 90, cfg.Audit.RetentionDays)
	assert.Equal(t, observability.InfoLevel, cfg.LogLevel())
	assert.False(t, cfg.OIDCEnabled())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PLUMA_CONFIG_FILE", "")
	t.Setenv("PLUMA_DATABASE_URL", "postgres://db/pluma")
	t.Setenv("PLUMA_PORT", "8000")
	t.Setenv("PLUMA_DATABASE_MAX_CONNS", "50")
	t.Setenv("PLUMA_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("PLUMA_OIDC_ISSUER_URL", "https://id.example.com")
	t.Setenv("PLUMA_OIDC_SCOPES", "openid,email")
	t.Setenv("PLUMA_RATE_LIMIT_REQUESTS", "5")
	t.Setenv("PLUMA_LOG_LEVEL", "debug")
	t.Setenv("PLUMA_CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 50, cfg.Database.MaxConns)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.True(t, cfg.OIDCEnabled())
	assert.Equal(t, []string{"openid", "email"}, cfg.Auth.Scopes)
	assert.Equal(t, 5, cfg.RateLimit.RequestsPerWindow)
	assert.Equal(t, observability.DebugLevel, cfg.LogLevel())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pluma.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_YAMLThenEnv(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: "7000"
  health_port: "7001"
database:
  url: postgres://file/pluma
  max_conns: 8
  min_conns: 2
rate_limit:
  requests_per_window: 10
  window: 30s
audit:
  retention_days: 30
observability:
  log_level: warn
`)
	t.Setenv("PLUMA_CONFIG_FILE", path)
	t.Setenv("PLUMA_DATABASE_URL", "")
	t.Setenv("PLUMA_PORT", "")
	t.Setenv("PLUMA_HEALTH_PORT", "7002")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "7002", cfg.Server.HealthPort, "env wins over file")
	assert.Equal(t, "postgres://file/pluma", cfg.Database.URL)
	assert.Equal(t, 8, cfg.Database.MaxConns)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 30, cfg.Audit.RetentionDays)
	assert.Equal(t, observability.WarnLevel, cfg.LogLevel())
	// untouched sections keep their defaults
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "comentador", cfg.Auth.DefaultRole)
}

func TestLoadConfig_FileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv("PLUMA_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "failed to open config file")
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Setenv("PLUMA_CONFIG_FILE", writeConfigFile(t, "server:\n  prot: \"1\"\n"))
		_, err := LoadConfig()
		assert.ErrorContains(t, err, "failed to parse config file")
	})
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	t.Setenv("PLUMA_CONFIG_FILE", "")
	t.Setenv("PLUMA_DATABASE_URL", "")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "database URL is required")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Defaults()
		cfg.Database.URL = "postgres://localhost/pluma"
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing port", func(c *Config) { c.Server.Port = "" }, "server port is required"},
		{"missing health port", func(c *Config) { c.Server.HealthPort = "" }, "health port is required"},
		{"same ports", func(c *Config) { c.Server.HealthPort = c.Server.Port }, "must be different"},
		{"missing database", func(c *Config) { c.Database.URL = "" }, "database URL is required"},
		{"zero pool", func(c *Config) { c.Database.MaxConns = 0 }, "pool sizes must be positive"},
		{"min over max", func(c *Config) { c.Database.MinConns = 30 }, "exceeds max conns"},
		{"redis pool", func(c *Config) { c.Redis.URL = "redis://x"; c.Redis.PoolSize = 0 }, "redis pool size"},
		{"default role", func(c *Config) { c.Auth.DefaultRole = "" }, "default role is required"},
		{"rate limit", func(c *Config) { c.RateLimit.Window = 0 }, "rate limit"},
		{"retention", func(c *Config) { c.Audit.RetentionDays = 0 }, "retention days"},
		{"log level", func(c *Config) { c.Observability.LogLevel = "loud" }, "loud"},
		{"otel endpoint", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelEndpoint = ""
		}, "endpoint is required"},
		{"otel service", func(c *Config) {
			c.Observability.OTelEnabled = true
			c.Observability.OTelServiceName = ""
		}, "service name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}

	t.Run("retention ignored when audit disabled", func(t *testing.T) {
		cfg := valid()
		cfg.Audit.Enabled = false
		cfg.Audit.RetentionDays = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestConversions(t *testing.T) {
	cfg := Defaults()
	cfg.Database.URL = "postgres://localhost/pluma"
	cfg.Auth.IssuerURL = "https://id.example.com"
	cfg.Auth.ClientID = "pluma"
	cfg.Observability.OTelEnabled = true

	conn := cfg.ConnectionConfig()
	assert.Equal(t, "postgres://localhost/pluma", conn.URL)
	assert.Equal(t, 20, conn.MaxConns)
	assert.Equal(t, 5, conn.MinConns)
	assert.Equal(t, 30*time.Minute, conn.MaxLifetime)

	oidc := cfg.OIDCConfig()
	assert.Equal(t, "https://id.example.com", oidc.IssuerURL)
	assert.Equal(t, "pluma", oidc.ClientID)
	assert.Equal(t, 1024, oidc.TokenCacheSize)

	otel := cfg.OTelConfig()
	assert.True(t, otel.Enabled)
	assert.Equal(t, "pluma", otel.ServiceName)
	assert.Equal(t, 1.0, otel.SampleRatio)
}
