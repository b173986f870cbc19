package admin

import (
	"net/http"

	"ms-venues/internal/db"
	"ms-venues/internal/models"
	"ms-venues/internal/users"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) identityRoutes(r chi.Router) {
	r.Route("/identities", func(r chi.Router) {
		r.Get("/", h.ListIdentities)
		r.Post("/", h.CreateIdentity)
		r.Post("/actions/make-renter", h.assignRole(models.RoleRenter))
		r.Post("/actions/make-owner", h.assignRole(models.RoleOwner))
		r.Post("/actions/make-specialist", h.assignRole(models.RoleSpecialist))
		r.Get("/{id}", h.GetIdentity)
		r.Patch("/{id}", h.UpdateIdentityFlags)
		r.Delete("/{id}", h.DeleteIdentity)
	})
	r.Route("/renters", func(r chi.Router) {
		r.Get("/", h.ListRenters)
		r.Get("/{id}", h.GetRenter)
	})
	r.Route("/owners", func(r chi.Router) {
		r.Get("/", h.ListOwners)
		r.Get("/{id}", h.GetOwner)
		r.Patch("/{id}", h.UpdateOwner)
	})
	r.Route("/specialists", func(r chi.Router) {
		r.Get("/", h.ListSpecialists)
		r.Get("/{id}", h.GetSpecialist)
		r.Patch("/{id}", h.UpdateSpecialist)
	})
}

func (h *Handler) ListIdentities(w http.ResponseWriter, r *http.Request) {
	q := &query{r: r}
	f := db.IdentityFilter{
		Query:    q.str("q"),
		IsActive: q.boolean("is_active"),
		IsStaff:  q.boolean("is_staff"),
		Role:     q.str("role"),
		Page:     q.page(),
	}
	if q.err != nil {
		h.fail(w, r, q.err)
		return
	}
	items, total, err := h.Users.ListIdentities(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page(w, items, total, f.Page)
}

func (h *Handler) CreateIdentity(w http.ResponseWriter, r *http.Request) {
	var in users.CreateIdentityInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	i, err := h.Users.CreateIdentity(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "identity created", users.NewIdentityView(i))
}

func (h *Handler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	i, err := h.Users.GetIdentity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", users.NewIdentityView(i))
}

type flagsRequest struct {
	IsActive *bool `json:"is_active"`
	IsStaff  *bool `json:"is_staff"`
}

func (h *Handler) UpdateIdentityFlags(w http.ResponseWriter, r *http.Request) {
	var in flagsRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if in.IsActive != nil {
		if _, err := h.Users.SetActive(r.Context(), id, *in.IsActive); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	if in.IsStaff != nil {
		if _, err := h.Users.SetStaff(r.Context(), id, *in.IsStaff); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	h.GetIdentity(w, r)
}

func (h *Handler) DeleteIdentity(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.DeleteIdentity(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "identity deleted", nil)
}

func (h *Handler) assignRole(role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in idsRequest
		if err := decode(r, &in); err != nil {
			h.fail(w, r, err)
			return
		}
		n, err := h.Users.AssignRole(r.Context(), role, in.IDs)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		ok(w, http.StatusOK, "role assigned", map[string]int{"assigned": n})
	}
}

func profileFilter(r *http.Request) (db.ProfileFilter, error) {
	q := &query{r: r}
	f := db.ProfileFilter{
		Query:     q.str("q"),
		Verified:  q.boolean("verified"),
		City:      q.str("city"),
		Specialty: q.str("specialty"),
		Page:      q.page(),
	}
	return f, q.err
}

func (h *Handler) ListRenters(w http.ResponseWriter, r *http.Request) {
	f, err := profileFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, total, err := h.Users.ListRenters(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page(w, items, total, f.Page)
}

func (h *Handler) GetRenter(w http.ResponseWriter, r *http.Request) {
	p, err := h.Users.GetRenter(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", p)
}

func (h *Handler) ListOwners(w http.ResponseWriter, r *http.Request) {
	f, err := profileFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, total, err := h.Users.ListOwners(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page(w, items, total, f.Page)
}

func (h *Handler) GetOwner(w http.ResponseWriter, r *http.Request) {
	p, err := h.Users.GetOwner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", p)
}

func (h *Handler) UpdateOwner(w http.ResponseWriter, r *http.Request) {
	var in users.OwnerUpdate
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Users.UpdateOwner(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "owner updated", p)
}

func (h *Handler) ListSpecialists(w http.ResponseWriter, r *http.Request) {
	f, err := profileFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, total, err := h.Users.ListSpecialists(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page(w, items, total, f.Page)
}

func (h *Handler) GetSpecialist(w http.ResponseWriter, r *http.Request) {
	p, err := h.Users.GetSpecialist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", p)
}

func (h *Handler) UpdateSpecialist(w http.ResponseWriter, r *http.Request) {
	var in users.SpecialistUpdate
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Users.UpdateSpecialist(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "specialist updated", p)
}
