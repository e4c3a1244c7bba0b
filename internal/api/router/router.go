package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/estetica-booking/internal/demo"
	httpmiddleware "github.com/wolfman30/estetica-booking/internal/http/middleware"
	"github.com/wolfman30/estetica-booking/internal/web"
	"github.com/wolfman30/estetica-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Booking            *web.Handler
	DemoBackend        *demo.Backend
	RateLimiter        *httpmiddleware.RateLimiter
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	// DEV ONLY: local storage and payment endpoints
	if cfg.DemoBackend != nil {
		r.Mount("/demo", cfg.DemoBackend.Routes())
	}

	if cfg.Booking != nil {
		r.With(limitWrites(cfg.RateLimiter)).Mount("/", cfg.Booking.Routes())
	}

	return r
}

// limitedPaths are the POSTs that reach the booking store or the payment
// backend. Draft edits and part toggles stay local and are not limited.
var limitedPaths = map[string]struct{}{
	"/booking/submit":   {},
	"/booking/checkout": {},
}

// limitWrites rate-limits the upstream-bound POSTs only.
func limitWrites(rl *httpmiddleware.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl == nil {
			return next
		}
		limited := rl.Middleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := limitedPaths[r.URL.Path]; ok && r.Method == http.MethodPost {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
