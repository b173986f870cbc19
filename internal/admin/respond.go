package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ms-venues/internal/apperr"
	"ms-venues/internal/db"
	"ms-venues/internal/payments"
	"ms-venues/internal/utils"
)

func ok(w http.ResponseWriter, status int, message string, data any) {
	_ = utils.WriteJSON(w, status, utils.SuccessResponse(message, data))
}

func page(w http.ResponseWriter, items any, total int, p db.Page) {
	ok(w, http.StatusOK, "ok", utils.Page{Items: items, Total: total, Limit: p.Limit, Offset: p.Offset})
}

// fail maps domain errors onto HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status, message = http.StatusBadRequest, "validation failed"
	case apperr.KindNotFound:
		status, message = http.StatusNotFound, "not found"
	case apperr.KindConstraint:
		status, message = http.StatusConflict, "constraint violated"
	case apperr.KindConflict:
		status, message = http.StatusConflict, "concurrent modification"
	default:
		if errors.Is(err, payments.ErrProviderDisabled) {
			status, message = http.StatusServiceUnavailable, "payment provider unavailable"
		}
	}

	resp := utils.ErrorResponse(message, err.Error())
	resp.Field = apperr.FieldOf(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
		resp.Error = message
	}
	_ = utils.WriteJSON(w, status, resp)
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("body", "malformed JSON: %v", err).Wrap(err)
	}
	return nil
}

func pageParams(r *http.Request) (db.Page, error) {
	var p db.Page
	var err error
	if p.Limit, err = intParam(r, "limit"); err != nil {
		return p, err
	}
	if p.Offset, err = intParam(r, "offset"); err != nil {
		return p, err
	}
	if p.Limit <= 0 {
		p.Limit = db.DefaultLimit
	}
	if p.Limit > db.MaxLimit {
		p.Limit = db.MaxLimit
	}
	return p, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation(name, "must be a non-negative integer")
	}
	return n, nil
}

func boolParam(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Validation(name, "must be true or false")
	}
	return &b, nil
}

// timeParam accepts RFC 3339 instants or plain dates.
func timeParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation(name, "must be a date (YYYY-MM-DD) or RFC 3339 time")
}

// query collects the first parse error of a chain of parameter reads.
type query struct {
	r   *http.Request
	err error
}

func (q *query) str(name string) string { return q.r.URL.Query().Get(name) }

func (q *query) boolean(name string) *bool {
	if q.err != nil {
		return nil
	}
	var b *bool
	b, q.err = boolParam(q.r, name)
	return b
}

func (q *query) instant(name string) *time.Time {
	if q.err != nil {
		return nil
	}
	var t *time.Time
	t, q.err = timeParam(q.r, name)
	return t
}

func (q *query) page() db.Page {
	if q.err != nil {
		return db.Page{}
	}
	var p db.Page
	p, q.err = pageParams(q.r)
	return p
}

type statusRequest struct {
	Status string `json:"status"`
}

type idsRequest struct {
	IDs []string `json:"ids"`
}
