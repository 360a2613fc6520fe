package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// ConnectionManager owns the process-wide PostgreSQL pool. It is opened at
// process start and closed at shutdown; every engine receives its *sql.DB
// explicitly.
type ConnectionManager struct {
	db     *sql.DB
	config ConnectionConfig
}

// ConnectionConfig holds database connection configuration
type ConnectionConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// DefaultConnectionConfig returns pool defaults suitable for a single API instance
func DefaultConnectionConfig(url string) ConnectionConfig {
	return ConnectionConfig{
		URL:         url,
		MaxConns:    20,
		MinConns:    5,
		Timeout:     5 * time.Second,
		MaxLifetime: 30 * time.Minute,
		MaxIdleTime: 5 * time.Minute,
	}
}

// NewConnectionManager opens and verifies the pool
func NewConnectionManager(ctx context.Context, config ConnectionConfig) (*ConnectionManager, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	cm, err := NewConnectionManagerFromDB(ctx, db, config)
	if err != nil {
		db.Close()
		return nil, err
	}
	return cm, nil
}

// NewConnectionManagerFromDB wraps an already opened handle, applying pool
// settings and pinging it once.
func NewConnectionManagerFromDB(ctx context.Context, db *sql.DB, config ConnectionConfig) (*ConnectionManager, error) {
	if config.MaxConns > 0 {
		db.SetMaxOpenConns(config.MaxConns)
	}
	if config.MinConns > 0 {
		db.SetMaxIdleConns(config.MinConns)
	}
	if config.MaxLifetime > 0 {
		db.SetConnMaxLifetime(config.MaxLifetime)
	}
	if config.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(config.MaxIdleTime)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return nil, ClassifyError("connect", err)
	}

	return &ConnectionManager{db: db, config: config}, nil
}

// DB returns the pooled handle
func (cm *ConnectionManager) DB() *sql.DB {
	return cm.db
}

// HealthCheck pings the database
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.db.PingContext(ctx); err != nil {
		return ClassifyError("health check", err)
	}
	return nil
}

// Stats returns connection pool statistics
func (cm *ConnectionManager) Stats() sql.DBStats {
	return cm.db.Stats()
}

// Close closes the pool
func (cm *ConnectionManager) Close() error {
	if err := cm.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
