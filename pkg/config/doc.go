// Package config loads application configuration from environment variables,
// optionally layered over a YAML file.
//
// # Overview
//
// Values resolve in three layers: built-in defaults, then the YAML file named
// by PLUMA_CONFIG_FILE (if any), then PLUMA_* environment variables.
//
// # Configuration Structure
//
// Server settings:
//
//	PLUMA_HOST="0.0.0.0"
//	PLUMA_PORT="8080"
//	PLUMA_HEALTH_PORT="9090"
//	PLUMA_READ_TIMEOUT="15s"
//	PLUMA_CORS_ORIGINS="https://blog.example.com,https://admin.example.com"
//
// Database settings:
//
//	PLUMA_DATABASE_URL="postgres://pluma@localhost/pluma?sslmode=disable"
//	PLUMA_DATABASE_MAX_CONNS="20"
//	PLUMA_RUN_MIGRATIONS="true"
//
// Redis (optional, enables the shared rate limiter):
//
//	PLUMA_REDIS_URL="redis://localhost:6379/0"
//
// Identity provider:
//
//	PLUMA_OIDC_ISSUER_URL="https://id.example.com"
//	PLUMA_OIDC_CLIENT_ID="pluma"
//	PLUMA_OIDC_REDIRECT_URL="https://blog.example.com/auth/callback"
//	PLUMA_DEFAULT_ROLE="comentador"
//
// Observability settings:
//
//	PLUMA_LOG_LEVEL="info"  # debug, info, warn, error
//	PLUMA_OTEL_ENABLED="true"
//	PLUMA_OTEL_ENDPOINT="otel-collector:4317"
//
// The YAML file uses the lower-case section and field names:
//
//	server:
//	  port: "8080"
//	database:
//	  url: postgres://localhost/pluma
//	rate_limit:
//	  requests_per_window: 30
//	  window: 1m
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	cm, err := postgres.NewConnectionManager(ctx, cfg.ConnectionConfig())
package config
