// SPDX-License-Identifier: MIT

// Package middleware holds the HTTP ingress stack shared by every route.
package middleware

import (
	"github.com/go-chi/chi/v5"

	sdlog "github.com/snapdown/snapdown/internal/log"
)

// StackConfig selects which ingress middleware runs.
type StackConfig struct {
	EnableCORS            bool
	AllowedOrigins        []string
	EnableSecurityHeaders bool
	EnableMetrics         bool
	// TracingService names the server spans; empty disables tracing.
	TracingService string
	EnableLogging  bool
	// RateLimitRPM is the per-client budget across every route.
	EnableRateLimit bool
	RateLimitRPM    int
}

// NewRouter returns a chi router with the stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack installs the ingress middleware on r. Order matters: panics are
// caught outermost, the request ID exists before anything logs, and the
// API-wide limiter runs last so rejected requests are still logged and
// counted.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer, RequestID)
	if cfg.EnableCORS {
		r.Use(CORS(cfg.AllowedOrigins))
	}
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders)
	}
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(Tracing(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(sdlog.Middleware())
	}
	if cfg.EnableRateLimit {
		r.Use(APIRateLimit(cfg.RateLimitRPM))
	}
}
