// Package payments records payments against bookings and hires, charges them
// through the payment provider and exports the ledger.
package payments

import (
	"context"
	"fmt"
	"time"

	"ms-venues/internal/apperr"
	"ms-venues/internal/db"
	"ms-venues/internal/kafka"
	"ms-venues/internal/logger"
	"ms-venues/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, data any) error
}

type Service struct {
	DB       *db.DB
	Gateway  Gateway
	Events   Publisher
	Log      *logger.Logger
	Now      func() time.Time
	Currency string
	// Loc renders export timestamps.
	Loc *time.Location
}

func NewService(store *db.DB, gateway Gateway, events Publisher, log *logger.Logger, currency string, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{DB: store, Gateway: gateway, Events: events, Log: log, Now: time.Now, Currency: currency, Loc: loc}
}

func (s *Service) publish(ctx context.Context, topic, key string, data any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, topic, key, data); err != nil {
		s.Log.Error("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", topic, key, err))
	}
}

type StatusChange struct {
	ID   string               `json:"id"`
	From models.PaymentStatus `json:"from"`
	To   models.PaymentStatus `json:"to"`
}

type PaymentInput struct {
	PayerID   string          `json:"payer_id"`
	BookingID *string         `json:"booking_id"`
	HireID    *string         `json:"hire_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
}

func optional(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	v := *id
	return &v
}

// checkTarget verifies the referenced reservation exists.
func checkTarget(ctx context.Context, tx *db.DB, p *models.Payment) error {
	t, _ := p.Target()
	switch t.Kind {
	case models.TargetBooking:
		_, err := tx.GetBooking(ctx, t.ID)
		return err
	case models.TargetHire:
		_, err := tx.GetHire(ctx, t.ID)
		return err
	}
	return nil
}

// CreatePayment records a payment by a renter for exactly one booking or
// hire. New payments are pending; admins may record an already settled one
// as succeeded.
func (s *Service) CreatePayment(ctx context.Context, in PaymentInput) (*models.PaymentView, error) {
	if err := models.CheckLinkage(in.BookingID, in.HireID); err != nil {
		return nil, err
	}
	status := models.PaymentPending
	if in.Status != "" {
		status = models.PaymentStatus(in.Status)
		if err := models.PaymentLifecycle.CheckInitial(status, models.PaymentPending, models.PaymentSucceeded); err != nil {
			return nil, err
		}
	}

	now := s.Now().UTC()
	p := &models.Payment{
		ID:        uuid.NewString(),
		PayerID:   in.PayerID,
		BookingID: optional(in.BookingID),
		HireID:    optional(in.HireID),
		Amount:    in.Amount,
		Status:    status,
		CreatedAt: now,
	}
	if status == models.PaymentSucceeded {
		p.PaidAt = &now
	}
	if err := p.Check(); err != nil {
		return nil, err
	}

	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		if _, err := tx.GetRenter(ctx, p.PayerID); err != nil {
			return err
		}
		if err := checkTarget(ctx, tx, p); err != nil {
			return err
		}
		return tx.CreatePayment(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.Log.LogPayment("CREATE", p.ID, fmt.Sprintf("%s by %s (%s)", p.Amount.StringFixed(2), p.PayerID, p.Status))
	v := models.NewPaymentView(p)
	s.publish(ctx, kafka.TopicPaymentCreated, p.ID, v)
	return &v, nil
}

// UpdatePaymentTarget relinks a payment. The linkage guard runs again.
func (s *Service) UpdatePaymentTarget(ctx context.Context, id string, bookingID, hireID *string) (*models.PaymentView, error) {
	if err := models.CheckLinkage(bookingID, hireID); err != nil {
		return nil, err
	}
	var p *models.Payment
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		var err error
		if p, err = tx.GetPayment(ctx, id); err != nil {
			return err
		}
		p.BookingID, p.HireID = optional(bookingID), optional(hireID)
		if err := p.Check(); err != nil {
			return err
		}
		if err := checkTarget(ctx, tx, p); err != nil {
			return err
		}
		return tx.UpdatePayment(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.Log.LogPayment("RELINK", id, "target updated")
	v := models.NewPaymentView(p)
	return &v, nil
}

func (s *Service) ChangePaymentStatus(ctx context.Context, id string, to models.PaymentStatus) (*models.PaymentView, error) {
	var p *models.Payment
	var from models.PaymentStatus
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		var err error
		if p, err = tx.GetPayment(ctx, id); err != nil {
			return err
		}
		from = p.Status
		return s.transition(ctx, tx, p, to)
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, p, from)
	v := models.NewPaymentView(p)
	return &v, nil
}

func (s *Service) transition(ctx context.Context, tx *db.DB, p *models.Payment, to models.PaymentStatus) error {
	if err := models.PaymentLifecycle.Check(p.Status, to); err != nil {
		return err
	}
	p.Status = to
	if to == models.PaymentSucceeded && p.PaidAt == nil {
		now := s.Now().UTC()
		p.PaidAt = &now
	}
	if err := p.Check(); err != nil {
		return err
	}
	return tx.UpdatePayment(ctx, p)
}

func (s *Service) afterTransition(ctx context.Context, p *models.Payment, from models.PaymentStatus) {
	s.Log.LogPayment("STATUS", p.ID, fmt.Sprintf("%s -> %s", from, p.Status))
	s.publish(ctx, kafka.TopicPaymentStatusChanged, p.ID, StatusChange{ID: p.ID, From: from, To: p.Status})
}

func (s *Service) AllowedPaymentStatuses(ctx context.Context, id string) ([]models.PaymentStatus, error) {
	p, err := s.DB.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.PaymentLifecycle.AllowedNext(p.Status), nil
}

type Charge struct {
	Payment models.PaymentView `json:"payment"`
	Intent  *Intent            `json:"intent"`
}

// InitiateCharge opens a provider charge for a pending payment and stores
// its reference. The provider reports the outcome through webhooks.
func (s *Service) InitiateCharge(ctx context.Context, id string) (*Charge, error) {
	if s.Gateway == nil {
		return nil, ErrProviderDisabled
	}
	p, err := s.DB.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := chargeable(p); err != nil {
		return nil, err
	}

	intent, err := s.Gateway.CreateIntent(ctx, IntentRequest{
		PaymentID:   p.ID,
		AmountMinor: p.Amount.Shift(2).IntPart(),
		Currency:    s.Currency,
	})
	if err != nil {
		return nil, err
	}

	err = s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		if p, err = tx.GetPayment(ctx, id); err != nil {
			return err
		}
		if err := chargeable(p); err != nil {
			return err
		}
		p.ProviderRef = intent.ID
		return tx.UpdatePayment(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.Log.LogPayment("CHARGE", id, fmt.Sprintf("intent %s for %s %s", intent.ID, p.Amount.StringFixed(2), s.Currency))
	return &Charge{Payment: models.NewPaymentView(p), Intent: intent}, nil
}

func chargeable(p *models.Payment) error {
	if p.Status != models.PaymentPending {
		return apperr.Validation("status", "only pending payments can be charged, payment is %q", p.Status)
	}
	if p.ProviderRef != "" {
		return apperr.Validation("provider_ref", "payment already has provider charge %s", p.ProviderRef)
	}
	return nil
}

var providerStatus = map[string]models.PaymentStatus{
	EventIntentSucceeded: models.PaymentSucceeded,
	EventIntentFailed:    models.PaymentFailed,
	EventIntentCanceled:  models.PaymentCancelled,
}

// HandleProviderEvent applies a verified provider notification. Unhandled
// event types, repeated deliveries and events arriving after the payment
// moved on are no-ops; the returned view is nil when nothing changed.
func (s *Service) HandleProviderEvent(ctx context.Context, ev ProviderEvent) (*models.PaymentView, error) {
	to, ok := providerStatus[ev.Type]
	if !ok {
		s.Log.Debug("PAYMENT", fmt.Sprintf("Ignoring provider event %s (%s)", ev.ID, ev.Type))
		return nil, nil
	}

	var p *models.Payment
	var from models.PaymentStatus
	changed := false
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		var err error
		p, err = tx.GetPaymentByProviderRef(ctx, ev.IntentID)
		if apperr.IsNotFound(err) && ev.PaymentID != "" {
			p, err = tx.GetPayment(ctx, ev.PaymentID)
		}
		if err != nil {
			return err
		}
		if p.Status == to {
			return nil
		}
		if !models.PaymentLifecycle.CanTransition(p.Status, to) {
			s.Log.Warn("PAYMENT", fmt.Sprintf("Stale provider event %s: payment %s is %s", ev.ID, p.ID, p.Status))
			return nil
		}
		from = p.Status
		if p.ProviderRef == "" {
			p.ProviderRef = ev.IntentID
		}
		if err := s.transition(ctx, tx, p, to); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		s.Log.LogPayment("WEBHOOK", ev.IntentID, fmt.Sprintf("%s not applied: %v", ev.Type, err))
		return nil, err
	}
	if !changed {
		return nil, nil
	}
	s.afterTransition(ctx, p, from)
	v := models.NewPaymentView(p)
	return &v, nil
}

func (s *Service) GetPayment(ctx context.Context, id string) (*PaymentRow, error) {
	p, err := s.DB.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.rows(ctx, []models.Payment{*p})
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

func (s *Service) ListPayments(ctx context.Context, f db.PaymentFilter) ([]PaymentRow, int, error) {
	if f.Status != "" && !models.PaymentLifecycle.Known(models.PaymentStatus(f.Status)) {
		return nil, 0, apperr.Validation("status", "unknown payment status %q", f.Status)
	}
	items, total, err := s.DB.ListPayments(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.rows(ctx, items)
	return rows, total, err
}
