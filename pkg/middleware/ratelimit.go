package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/pluma/pkg/async"
	"github.com/platinummonkey/pluma/pkg/httputil"
	"github.com/platinummonkey/pluma/pkg/observability"
	"github.com/platinummonkey/pluma/pkg/rbac"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
}

// DefaultRateLimitConfig returns default rate limit settings
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 30,
		WindowDuration:    time.Minute,
		BurstSize:         5,
	}
}

// Limiter decides whether the caller identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimiter is an in-memory token bucket limiter for a single instance
type RateLimiter struct {
	config  *RateLimitConfig
	buckets map[string]*bucket
	mu      sync.Mutex
	now     func() time.Time
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewRateLimiter creates a new in-memory rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (rl *RateLimiter) capacity() float64 {
	return float64(rl.config.RequestsPerWindow + rl.config.BurstSize)
}

// Allow takes a token from key's bucket. It never fails.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{tokens: rl.capacity(), lastUpdate: now}
		rl.buckets[key] = b
	}

	// Refill proportionally to the time elapsed since the last request
	elapsed := now.Sub(b.lastUpdate)
	b.tokens += elapsed.Seconds() * float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds()
	if b.tokens > rl.capacity() {
		b.tokens = rl.capacity()
	}
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// Cleanup removes buckets idle for more than two windows
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastUpdate) > rl.config.WindowDuration*2 {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanup runs Cleanup every window until ctx is cancelled
func (rl *RateLimiter) StartCleanup(ctx context.Context) <-chan struct{} {
	return async.Every(ctx, rl.config.WindowDuration, "rate limiter cleanup", func(context.Context) error {
		rl.Cleanup()
		return nil
	})
}

// RateLimitMiddleware limits POST requests on a set of route templates
type RateLimitMiddleware struct {
	limiter Limiter
	config  *RateLimitConfig
	metrics *observability.Metrics
	routes  map[string]struct{}
}

// NewRateLimitMiddleware limits POSTs to the given mux route templates.
// metrics may be nil.
func NewRateLimitMiddleware(limiter Limiter, config *RateLimitConfig, metrics *observability.Metrics, routes ...string) *RateLimitMiddleware {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	m := &RateLimitMiddleware{
		limiter: limiter,
		config:  config,
		metrics: metrics,
		routes:  make(map[string]struct{}, len(routes)),
	}
	for _, route := range routes {
		m.routes[route] = struct{}{}
	}
	return m
}

// Handler wraps an HTTP handler with rate limiting. It must run as a mux
// middleware so the matched route template is known.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		route := observability.RouteLabel(r)
		if _, limited := m.routes[route]; !limited {
			next.ServeHTTP(w, r)
			return
		}

		key := route + "|" + callerKey(r)
		allowed, err := m.limiter.Allow(r.Context(), key)
		if err != nil {
			observability.FromContext(r.Context()).
				WithError(err).
				WithField("route", route).
				Warn("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			m.metrics.RecordRateLimited(route)
			retryAfter := int(m.config.WindowDuration.Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.config.RequestsPerWindow))
			httputil.WriteTooManyRequests(w, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// callerKey identifies the principal, or the client address for anonymous
// requests
func callerKey(r *http.Request) string {
	if p := rbac.PrincipalFromContext(r.Context()); p != nil {
		return fmt.Sprintf("user:%d", p.UserID)
	}
	return "ip:" + getClientIP(r)
}

func getClientIP(r *http.Request) string {
	// First hop of X-Forwarded-For when behind a proxy
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
