// SPDX-License-Identifier: MIT

// Package ratelimit throttles expensive operations (engine runs and encoder
// jobs) with token buckets: one global and one per client IP, per operation.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var rateLimitExceeded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "snapdown",
		Name:      "ratelimit_exceeded_total",
		Help:      "Total rate limit rejections",
	},
	[]string{"limit_type", "operation"},
)

// Limit is a token bucket definition.
type Limit struct {
	Rate  rate.Limit
	Burst int
}

// Config holds rate limiting configuration.
type Config struct {
	// Global bounds every operation together across all clients.
	Global Limit
	// PerIP bounds each operation for one client.
	PerIP map[string]Limit
	// IdleTTL evicts per-client buckets not used for this long.
	IdleTTL time.Duration
	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable only behind a trusted reverse proxy.
	TrustProxyHeaders bool
}

// Operation names.
const (
	OpConvert = "convert"
	OpExtract = "extract"
)

// DefaultConfig returns defaults sized for an encoder that can run a handful
// of jobs at once.
func DefaultConfig() Config {
	return Config{
		Global: Limit{Rate: 5, Burst: 10},
		PerIP: map[string]Limit{
			OpConvert: {Rate: 0.2, Burst: 2},
			OpExtract: {Rate: 1, Burst: 5},
		},
		IdleTTL: 10 * time.Minute,
	}
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter applies Config.
type Limiter struct {
	config Config
	global *rate.Limiter

	mu          sync.Mutex
	clients     map[string]*bucket
	lastCleanup time.Time
	now         func() time.Time
}

// New creates a Limiter.
func New(config Config) *Limiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	return &Limiter{
		config:      config,
		global:      rate.NewLimiter(config.Global.Rate, config.Global.Burst),
		clients:     make(map[string]*bucket),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow reports whether clientIP may run op now. Operations with no per-IP
// limit configured are only subject to the global bucket.
func (l *Limiter) Allow(clientIP, op string) bool {
	if !l.global.Allow() {
		rateLimitExceeded.WithLabelValues("global", op).Inc()
		return false
	}
	lim, ok := l.config.PerIP[op]
	if !ok {
		return true
	}
	if !l.clientLimiter(clientIP+"|"+op, lim).Allow() {
		rateLimitExceeded.WithLabelValues("per_ip", op).Inc()
		return false
	}
	return true
}

// Middleware rejects requests over the limit with reject.
func (l *Limiter) Middleware(op string, reject http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(l.ClientIP(r), op) {
				reject.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *Limiter) clientLimiter(key string, lim Limit) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastCleanup) >= l.config.IdleTTL {
		for k, b := range l.clients {
			if now.Sub(b.lastSeen) >= l.config.IdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastCleanup = now
	}

	b, ok := l.clients[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(lim.Rate, lim.Burst)}
		l.clients[key] = b
	}
	b.lastSeen = now
	return b.lim
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// ClientIP extracts the client address from r.
func (l *Limiter) ClientIP(r *http.Request) string {
	if l.config.TrustProxyHeaders {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
