package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/telecare-appointments/internal/appointments"
	httpmiddleware "github.com/wolfman30/telecare-appointments/internal/http/middleware"
	"github.com/wolfman30/telecare-appointments/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	MetricsHandler      http.Handler

	// MeetingMode is reported by /health ("zoom" or "simulated").
	MeetingMode string

	// Per-IP limits for the appointment routes. Zero disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.MeetingMode))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.AppointmentsHandler != nil {
		r.Group(func(api chi.Router) {
			if cfg.RateLimitRPS > 0 {
				api.Use(httpmiddleware.RateLimit(httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))
			}
			api.Mount("/appointments", cfg.AppointmentsHandler.Routes())
		})
	}

	return r
}

func healthHandler(mode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := map[string]string{
			"status": "ok",
		}
		if mode != "" {
			response["meeting_provider"] = mode
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
