// Package admin exposes the staff back office as a JSON API.
package admin

import (
	"fmt"
	"net/http"
	"time"

	"ms-venues/internal/events"
	"ms-venues/internal/logger"
	"ms-venues/internal/payments"
	"ms-venues/internal/reservations"
	"ms-venues/internal/users"
	"ms-venues/internal/venues"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handler struct {
	Users        *users.Service
	Venues       *venues.Service
	Events       *events.Service
	Reservations *reservations.Service
	Payments     *payments.Service
	Logger       *logger.Logger
	// WebhookSecret verifies provider webhooks; empty disables the endpoint.
	WebhookSecret string
}

// Router builds the HTTP surface. guards wrap only the /api/admin routes.
func (h *Handler) Router(guards ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.Health)
	r.Post("/api/webhooks/stripe", h.StripeWebhook)

	r.Route("/api/admin", func(r chi.Router) {
		for _, g := range guards {
			r.Use(g)
		}
		h.identityRoutes(r)
		h.venueRoutes(r)
		h.eventRoutes(r)
		h.reservationRoutes(r)
		h.paymentRoutes(r)
	})
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ok(w, http.StatusOK, "ok", map[string]string{"status": "up"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.Logger.LogAPI(r.Method, r.URL.Path, fmt.Sprint(rec.status), time.Since(start).Round(time.Microsecond).String())
	})
}
