package admin

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ms-venues/internal/db"
	"ms-venues/internal/models"
	"ms-venues/internal/payments"

	"github.com/go-chi/chi/v5"
)

const maxWebhookBody = 65536

func (h *Handler) paymentRoutes(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Get("/", h.ListPayments)
		r.Post("/", h.CreatePayment)
		r.Get("/export.csv", h.ExportPayments)
		r.Get("/{id}", h.GetPayment)
		r.Post("/{id}/status", h.ChangePaymentStatus)
		r.Get("/{id}/transitions", h.PaymentTransitions)
		r.Put("/{id}/target", h.UpdatePaymentTarget)
		r.Post("/{id}/charge", h.ChargePayment)
	})
}

func paymentFilter(r *http.Request) (db.PaymentFilter, error) {
	q := &query{r: r}
	f := db.PaymentFilter{
		Query:       q.str("q"),
		Status:      q.str("status"),
		PayerID:     q.str("payer"),
		BookingID:   q.str("booking"),
		HireID:      q.str("hire"),
		CreatedFrom: q.instant("created_from"),
		CreatedTo:   q.instant("created_to"),
		PaidFrom:    q.instant("paid_from"),
		PaidTo:      q.instant("paid_to"),
		Page:        q.page(),
	}
	if ids := q.str("ids"); ids != "" {
		f.IDs = strings.Split(ids, ",")
	}
	return f, q.err
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	f, err := paymentFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, total, err := h.Payments.ListPayments(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page(w, items, total, f.Page)
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var in payments.PaymentInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Payments.CreatePayment(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "payment created", p)
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.Payments.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", p)
}

func (h *Handler) ChangePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Payments.ChangePaymentStatus(r.Context(), chi.URLParam(r, "id"), models.PaymentStatus(in.Status))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "payment status changed", p)
}

func (h *Handler) PaymentTransitions(w http.ResponseWriter, r *http.Request) {
	next, err := h.Payments.AllowedPaymentStatuses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "ok", next)
}

type targetRequest struct {
	BookingID *string `json:"booking_id"`
	HireID    *string `json:"hire_id"`
}

func (h *Handler) UpdatePaymentTarget(w http.ResponseWriter, r *http.Request) {
	var in targetRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.Payments.UpdatePaymentTarget(r.Context(), chi.URLParam(r, "id"), in.BookingID, in.HireID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "payment target updated", p)
}

func (h *Handler) ChargePayment(w http.ResponseWriter, r *http.Request) {
	charge, err := h.Payments.InitiateCharge(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "charge initiated", charge)
}

// ExportPayments sends the filtered ledger as CSV. The body is rendered
// fully before any byte is sent so errors still produce a JSON response.
func (h *Handler) ExportPayments(w http.ResponseWriter, r *http.Request) {
	f, err := paymentFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := h.Payments.ExportCSV(r.Context(), &buf, f); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, payments.ExportFilename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// StripeWebhook applies provider notifications. It is not behind staff auth;
// the signature is the credential.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ev, err := payments.ParseWebhook(payload, r.Header.Get("Stripe-Signature"), h.WebhookSecret)
	if err != nil {
		h.Logger.LogSecurity("WEBHOOK", fmt.Sprintf("rejected provider event: %v", err))
		h.fail(w, r, err)
		return
	}
	p, err := h.Payments.HandleProviderEvent(r.Context(), ev)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "event processed", p)
}
