package admin

import (
	"net/http"

	"ms-venues/internal/db"
	"ms-venues/internal/events"
	"ms-venues/internal/models"
	"ms-venues/internal/venues"

	"github.com/go-chi/chi/v5"
)

// ---------------- VENUES ----------------

func (h *Handler) venueRoutes(r chi.Router) {
	r.Route("/venues", func(r chi.Router) {
		r.Get("/", h.ListVenues)
		r.Post("/", h.CreateVenue)
		r.Get("/slug/{slug}", h.GetVenueBySlug)
		r.Get("/{id}", h.GetVenue)
		r.Patch("/{id}", h.UpdateVenue)
		r.Delete("/{id}", h.DeleteVenue)
		r.Post("/{id}/status", h.ChangeVenueStatus)
		r.Get("/{id}/transitions", h.VenueTransitions)
		r.Get("/{id}/images", h.ListVenueImages)
		r.Post("/{id}/images", h.AddVenueImage)
	})
}

func (h *Handler) ListVenues(w http.ResponseWriter, r *http.Request) {
	q := &query{r: r}
	f := db.VenueFilter{
		Query:      q.str("q"),
		Status:     q.str("status"),
		City:       q.str("city"),
		OwnerID:    q.str("owner"),
		IsVerified: q.boolean("is_verified"),
		Page:       q.page(),
	}
	if q.err != nil {
		h.fail(w, r, q.err)
		return
	}
	items, total, err := h.Venues.ListVenues(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page(w, items, total, f.Page)
}

func (h *Handler) CreateVenue(w http.ResponseWriter, r *http.Request) {
	var in venues.VenueInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.Venues.CreateVenue(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "venue created", v)
}

func (h *Handler) GetVenue(w http.ResponseWriter, r *http.Request) {
	v, err := h.Venues.GetVenueDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", v)
}

func (h *Handler) GetVenueBySlug(w http.ResponseWriter, r *http.Request) {
	v, err := h.Venues.GetVenueBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", v)
}

func (h *Handler) UpdateVenue(w http.ResponseWriter, r *http.Request) {
	var in venues.VenueInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.Venues.UpdateVenue(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "venue updated", v)
}

func (h *Handler) DeleteVenue(w http.ResponseWriter, r *http.Request) {
	if err := h.Venues.DeleteVenue(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "venue deleted", nil)
}

func (h *Handler) ChangeVenueStatus(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.Venues.ChangeVenueStatus(r.Context(), chi.URLParam(r, "id"), models.VenueStatus(in.Status))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "venue status changed", v)
}

func (h *Handler) VenueTransitions(w http.ResponseWriter, r *http.Request) {
	next, err := h.Venues.AllowedVenueStatuses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", next)
}

func (h *Handler) ListVenueImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.Venues.ListImages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", images)
}

func (h *Handler) AddVenueImage(w http.ResponseWriter, r *http.Request) {
	var in venues.ImageInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	img, err := h.Venues.AddImage(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "image added", img)
}

// ---------------- EVENTS ----------------

func (h *Handler) eventRoutes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.CreateEvent)
		r.Get("/{id}", h.GetEvent)
		r.Patch("/{id}", h.UpdateEvent)
		r.Delete("/{id}", h.DeleteEvent)
		r.Post("/{id}/status", h.ChangeEventStatus)
		r.Get("/{id}/transitions", h.EventTransitions)
	})
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := &query{r: r}
	f := db.EventFilter{
		Query:    q.str("q"),
		Status:   q.str("status"),
		Theme:    q.str("theme"),
		RenterID: q.str("renter"),
		DateFrom: q.instant("date_from"),
		DateTo:   q.instant("date_to"),
		Page:     q.page(),
	}
	if q.err != nil {
		h.fail(w, r, q.err)
		return
	}
	items, total, err := h.Events.ListEvents(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page(w, items, total, f.Page)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in events.EventInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	e, err := h.Events.CreateEvent(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "event created", e)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.Events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", e)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in events.EventInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	e, err := h.Events.UpdateEvent(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "event updated", e)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.Events.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "event deleted", nil)
}

func (h *Handler) ChangeEventStatus(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	e, err := h.Events.ChangeEventStatus(r.Context(), chi.URLParam(r, "id"), models.EventStatus(in.Status))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "event status changed", e)
}

func (h *Handler) EventTransitions(w http.ResponseWriter, r *http.Request) {
	next, err := h.Events.AllowedEventStatuses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", next)
}
