package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/veris-salud/agenda-web/internal/http/handlers"
	httpmiddleware "github.com/veris-salud/agenda-web/internal/http/middleware"
	"github.com/veris-salud/agenda-web/internal/live"
	"github.com/veris-salud/agenda-web/pkg/logging"
)

// ShimPath is where pages load the runtime script from.
const ShimPath = "/static/veris-live.js"

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Live               *live.Handler
	Validation         *handlers.ValidationHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimiter throttles the validation API per client IP (optional).
	RateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	var sessions func() int
	if cfg.Live != nil {
		sessions = cfg.Live.ActiveSessions
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", handlers.Health(sessions))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Live != nil {
			// The socket hijacks the connection; keep it out of Compress.
			public.Get("/ws", cfg.Live.HandleWebSocket)
			public.With(middleware.Compress(5)).Get(ShimPath, cfg.Live.HandleShimJS)
		}
	})

	if cfg.Validation != nil {
		r.Route("/api/validate", func(api chi.Router) {
			api.Use(middleware.Compress(5))
			if cfg.RateLimiter != nil {
				api.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
			}
			api.Post("/{gate}", cfg.Validation.Validate)
		})
	}

	return r
}
