// Package api provides the HTTP API server and handlers for the reading tracker.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listenupapp/readtrack/internal/auth"
	"github.com/listenupapp/readtrack/internal/ratelimit"
	"github.com/listenupapp/readtrack/internal/validation"
)

// Options tunes the HTTP surface.
type Options struct {
	CORSOrigins []string
	IPRateLimit int // requests per minute per client IP, 0 disables
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services         *Services
	tokens           auth.TokenVerifier
	store            Pinger
	heartbeatLimiter *ratelimit.KeyedRateLimiter
	validator        *validation.Validator
	router           *chi.Mux
	api              huma.API
	logger           *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// heartbeatLimiter may be nil to disable per-user heartbeat limiting.
func NewServer(
	opts Options,
	services *Services,
	tokens auth.TokenVerifier,
	store Pinger,
	heartbeatLimiter *ratelimit.KeyedRateLimiter,
	logger *slog.Logger,
) *Server {
	s := &Server{
		services:         services,
		tokens:           tokens,
		store:            store,
		heartbeatLimiter: heartbeatLimiter,
		validator:        validation.New(),
		router:           chi.NewRouter(),
		logger:           logger,
	}

	s.setupMiddleware(opts)

	s.router.Handle("/metrics", promhttp.Handler())

	humaConfig := huma.DefaultConfig("ReadTrack API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	s.api = humachi.New(s.router, humaConfig)

	RegisterErrorHandler()
	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(corsMiddleware(opts.CORSOrigins))
	if opts.IPRateLimit > 0 {
		s.router.Use(ipRateLimit(opts.IPRateLimit, s.logger))
	}
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerSessionRoutes()
	s.registerProgressRoutes()
	s.registerAnalyticsRoutes()
	s.registerSearchRoutes()
}
