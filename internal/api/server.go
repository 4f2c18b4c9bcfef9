// SPDX-License-Identifier: MIT

// Package api exposes the extraction, conversion and download operations
// over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/snapdown/snapdown/internal/api/middleware"
	"github.com/snapdown/snapdown/internal/convert"
	"github.com/snapdown/snapdown/internal/download"
	"github.com/snapdown/snapdown/internal/health"
	sdlog "github.com/snapdown/snapdown/internal/log"
	"github.com/snapdown/snapdown/internal/media"
	"github.com/snapdown/snapdown/internal/ratelimit"
)

// Extractor resolves a content URL into an ExtractionResult.
type Extractor interface {
	Extract(ctx context.Context, url string) media.ExtractionResult
}

// Converter turns adaptive streams into local MP4 files.
type Converter interface {
	Available() bool
	Convert(ctx context.Context, req convert.Request) (*convert.Job, error)
	Path(fileID string) (string, error)
}

// Downloader relays media bytes to the caller.
type Downloader interface {
	StreamRemote(ctx context.Context, w http.ResponseWriter, req download.RemoteRequest) error
	ServeLocal(w http.ResponseWriter, r *http.Request, path, filename string) error
}

// Deps are the collaborators a Server routes to.
type Deps struct {
	Version   string
	WorkDir   string
	Extractor Extractor
	Converter Converter
	Downloads Downloader
	Health    *health.Manager
	// Limiter throttles expensive operations per client; nil disables it.
	Limiter *ratelimit.Limiter
	Stack   middleware.StackConfig
	Metrics bool
	Logger  zerolog.Logger
}

// Server is the HTTP API.
type Server struct {
	deps   Deps
	logger zerolog.Logger
	router chi.Router
}

// New builds a Server and its routes.
func New(deps Deps) *Server {
	if deps.Health == nil {
		deps.Health = health.NewManager(deps.Version)
	}
	s := &Server{
		deps:   deps,
		logger: deps.Logger.With().Str(sdlog.FieldComponent, "api").Logger(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(s.deps.Stack)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, MsgEndpointNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
	})

	r.Get("/health", s.handleHealth)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	if s.deps.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/test-connection", s.handleTestConnection)
		r.Get("/info", s.handleInfo)

		r.With(s.throttle(ratelimit.OpExtract)).Post("/extract", s.handleExtract)
		r.With(s.throttle(ratelimit.OpExtract)).Post("/formats", s.handleFormats)
		r.With(s.throttle(ratelimit.OpConvert)).Post("/convert", s.handleConvert)

		r.Get("/download", s.handleDownload)
		r.Get("/download-converted/{fileId}", s.handleDownloadConverted)
	})
	return r
}

func (s *Server) throttle(op string) func(http.Handler) http.Handler {
	if s.deps.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.deps.Limiter.Middleware(op, http.HandlerFunc(middleware.Throttled))
}
