package admin

import (
	"net/http"
	"time"

	"ms-venues/internal/db"
	"ms-venues/internal/models"
	"ms-venues/internal/reservations"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) reservationRoutes(r chi.Router) {
	r.Route("/bookings", func(r chi.Router) {
		r.Get("/", h.ListBookings)
		r.Post("/", h.CreateBooking)
		r.Get("/{id}", h.GetBooking)
		r.Delete("/{id}", h.DeleteBooking)
		r.Post("/{id}/status", h.ChangeBookingStatus)
		r.Get("/{id}/transitions", h.BookingTransitions)
		r.Put("/{id}/schedule", h.RescheduleBooking)
	})
	r.Route("/hires", func(r chi.Router) {
		r.Get("/", h.ListHires)
		r.Post("/", h.CreateHire)
		r.Get("/{id}", h.GetHire)
		r.Delete("/{id}", h.DeleteHire)
		r.Post("/{id}/status", h.ChangeHireStatus)
		r.Get("/{id}/transitions", h.HireTransitions)
		r.Put("/{id}/schedule", h.RescheduleHire)
	})
}

type scheduleRequest struct {
	StartDatetime time.Time `json:"start_datetime"`
	EndDatetime   time.Time `json:"end_datetime"`
}

func reservationFilter(r *http.Request) (db.ReservationFilter, error) {
	q := &query{r: r}
	f := db.ReservationFilter{
		Query:        q.str("q"),
		Status:       q.str("status"),
		EventID:      q.str("event"),
		RenterID:     q.str("renter"),
		VenueID:      q.str("venue"),
		SpecialistID: q.str("specialist"),
		StartFrom:    q.instant("start_from"),
		StartTo:      q.instant("start_to"),
		Page:         q.page(),
	}
	return f, q.err
}

// ---------------- BOOKINGS ----------------

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	f, err := reservationFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, total, err := h.Reservations.ListBookings(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page(w, items, total, f.Page)
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var in reservations.BookingInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := h.Reservations.CreateBooking(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "booking created", b)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Reservations.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", b)
}

func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.Reservations.DeleteBooking(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "booking deleted", nil)
}

func (h *Handler) ChangeBookingStatus(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := h.Reservations.ChangeBookingStatus(r.Context(), chi.URLParam(r, "id"), models.ReservationStatus(in.Status))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "booking status changed", b)
}

func (h *Handler) BookingTransitions(w http.ResponseWriter, r *http.Request) {
	next, err := h.Reservations.AllowedBookingStatuses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", next)
}

func (h *Handler) RescheduleBooking(w http.ResponseWriter, r *http.Request) {
	var in scheduleRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := h.Reservations.RescheduleBooking(r.Context(), chi.URLParam(r, "id"), in.StartDatetime, in.EndDatetime)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "booking rescheduled", b)
}

// ---------------- HIRES ----------------

func (h *Handler) ListHires(w http.ResponseWriter, r *http.Request) {
	f, err := reservationFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, total, err := h.Reservations.ListHires(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page(w, items, total, f.Page)
}

func (h *Handler) CreateHire(w http.ResponseWriter, r *http.Request) {
	var in reservations.HireInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	hire, err := h.Reservations.CreateHire(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "hire created", hire)
}

func (h *Handler) GetHire(w http.ResponseWriter, r *http.Request) {
	hire, err := h.Reservations.GetHire(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", hire)
}

func (h *Handler) DeleteHire(w http.ResponseWriter, r *http.Request) {
	if err := h.Reservations.DeleteHire(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "hire deleted", nil)
}

func (h *Handler) ChangeHireStatus(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	hire, err := h.Reservations.ChangeHireStatus(r.Context(), chi.URLParam(r, "id"), models.ReservationStatus(in.Status))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "hire status changed", hire)
}

func (h *Handler) HireTransitions(w http.ResponseWriter, r *http.Request) {
	next, err := h.Reservations.AllowedHireStatuses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", next)
}

func (h *Handler) RescheduleHire(w http.ResponseWriter, r *http.Request) {
	var in scheduleRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	hire, err := h.Reservations.RescheduleHire(r.Context(), chi.URLParam(r, "id"), in.StartDatetime, in.EndDatetime)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "hire rescheduled", hire)
}
