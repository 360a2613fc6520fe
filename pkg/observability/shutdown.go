package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

type namedShutdown struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager drains HTTP servers and then releases resources
// (tracing exporters, Redis, the database pool) in reverse registration order.
type ShutdownManager struct {
	logger  *Logger
	timeout time.Duration

	mu      sync.Mutex
	servers map[string]*http.Server
	funcs   []namedShutdown
}

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager(logger *Logger, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:  logger,
		timeout: timeout,
		servers: make(map[string]*http.Server),
	}
}

// AddServer registers an HTTP server to be drained first
func (sm *ShutdownManager) AddServer(name string, server *http.Server) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.servers[name] = server
}

// Register adds a named shutdown function
func (sm *ShutdownManager) Register(name string, fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.funcs = append(sm.funcs, namedShutdown{name: name, fn: fn})
}

// Shutdown drains servers concurrently, then runs shutdown functions
// last-registered first. All failures are joined into the returned error.
func (sm *ShutdownManager) Shutdown(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, sm.timeout)
	defer cancel()

	sm.mu.Lock()
	servers := make(map[string]*http.Server, len(sm.servers))
	for k, v := range sm.servers {
		servers[k] = v
	}
	funcs := append([]namedShutdown(nil), sm.funcs...)
	sm.mu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for name, server := range servers {
		wg.Add(1)
		go func(name string, server *http.Server) {
			defer wg.Done()
			sm.logger.WithField("server", name).Info("Shutting down HTTP server")
			if err := server.Shutdown(ctx); err != nil {
				sm.logger.WithField("server", name).WithError(err).Error("HTTP server shutdown error")
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s server: %w", name, err))
				mu.Unlock()
			}
		}(name, server)
	}
	wg.Wait()

	for i := len(funcs) - 1; i >= 0; i-- {
		f := funcs[i]
		if err := f.fn(ctx); err != nil {
			sm.logger.WithField("component", f.name).WithError(err).Error("Shutdown step failed")
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		sm.logger.WithField("component", f.name).Debug("Shutdown step complete")
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	sm.logger.Info("Graceful shutdown complete")
	return nil
}
