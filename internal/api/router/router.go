package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GerganaNoneva/beautysalon/internal/http/handlers"
	httpmiddleware "github.com/GerganaNoneva/beautysalon/internal/http/middleware"
	"github.com/GerganaNoneva/beautysalon/internal/salon"
	"github.com/GerganaNoneva/beautysalon/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Availability       *handlers.AvailabilityHandler
	Booking            *handlers.BookingHandler
	AdminBooking       *handlers.AdminBookingHandler
	SalonHandler       *salon.Handler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-caller limit on public routes; zero disables it.
	RateLimitRPS   float64
	RateLimitBurst int
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

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Public client routes
	r.Route("/salons/{salonID}", func(public chi.Router) {
		if cfg.RateLimitRPS > 0 {
			public.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		if cfg.Availability != nil {
			public.Get("/services", cfg.Availability.ListServices)
			public.Get("/slots", cfg.Availability.DaySlots)
			public.Get("/free-blocks", cfg.Availability.FreeBlocks)
		}
		if cfg.Booking != nil {
			public.Post("/requests", cfg.Booking.CreateRequest)
			public.Delete("/requests/{requestID}", cfg.Booking.CancelRequest)
		}
	})

	// Admin routes (protected by HMAC JWT). Everything that touches a salon's
	// data lives under /salons/{salonID} so the token's salon scope applies.
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Route("/salons/{salonID}", func(salonRoutes chi.Router) {
				salonRoutes.Use(requireSalonAccess)
				if cfg.AdminBooking != nil {
					salonRoutes.Get("/requests", cfg.AdminBooking.ListPending)
					salonRoutes.Post("/requests/{requestID}/approve", cfg.AdminBooking.Approve)
					salonRoutes.Post("/requests/{requestID}/reject", cfg.AdminBooking.Reject)
					salonRoutes.Post("/appointments", cfg.AdminBooking.BookDirect)
					salonRoutes.Delete("/appointments/{appointmentID}", cfg.AdminBooking.CancelAppointment)
				}
				if cfg.SalonHandler != nil {
					salonRoutes.Get("/hours", cfg.SalonHandler.GetHours)
					salonRoutes.Put("/hours", cfg.SalonHandler.UpdateHours)
				}
			})
		})
	}

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
