package models

import (
	"strings"
	"time"

	"ms-venues/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
)

var PaymentLifecycle = newLifecycle("payment",
	state[PaymentStatus]{PaymentPending, "ожидает оплаты", []PaymentStatus{PaymentSucceeded, PaymentFailed, PaymentCancelled}},
	state[PaymentStatus]{PaymentSucceeded, "оплачено", []PaymentStatus{PaymentRefunded}},
	state[PaymentStatus]{PaymentFailed, "не удалось", nil},
	state[PaymentStatus]{PaymentCancelled, "отменён", nil},
	state[PaymentStatus]{PaymentRefunded, "возвращён", nil},
)

func (s PaymentStatus) Label() string { return PaymentLifecycle.Label(s) }

type TargetKind string

const (
	TargetBooking TargetKind = "booking"
	TargetHire    TargetKind = "hire"
)

func (k TargetKind) Label() string {
	switch k {
	case TargetBooking:
		return "Бронирование"
	case TargetHire:
		return "Найм"
	default:
		return "—"
	}
}

// Target identifies the single reservation a payment settles.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

// Payment references exactly one of a booking or a hire.
type Payment struct {
	bun.BaseModel `bun:"table:payments"`

	ID          string          `bun:"id,pk" json:"id"`
	BookingID   *string         `bun:"booking_id" json:"booking_id"`
	HireID      *string         `bun:"hire_id" json:"hire_id"`
	PayerID     string          `bun:"payer_id,notnull" json:"payer_id" validate:"required"`
	Amount      decimal.Decimal `bun:"amount,type:decimal(10,2),notnull" json:"amount"`
	Status      PaymentStatus   `bun:"status,notnull" json:"status" validate:"required,oneof=pending succeeded failed cancelled refunded"`
	ProviderRef string          `bun:"provider_ref,nullzero" json:"provider_ref,omitempty"`
	CreatedAt   time.Time       `bun:"created_at,notnull" json:"created_at"`
	PaidAt      *time.Time      `bun:"paid_at" json:"paid_at"`
}

func present(s *string) bool { return s != nil && *s != "" }

// CheckLinkage enforces that exactly one target is set.
func CheckLinkage(bookingID, hireID *string) error {
	hasBooking, hasHire := present(bookingID), present(hireID)
	switch {
	case hasBooking && hasHire:
		return apperr.Validation("hire", "a payment cannot reference both a booking and a hire")
	case !hasBooking && !hasHire:
		return apperr.Validation("booking", "a payment must reference a booking or a hire")
	}
	return nil
}

// Check runs the field rules and the linkage guard. Every write path calls it.
func (p *Payment) Check() error {
	if err := Validate(p); err != nil {
		return err
	}
	if err := CheckLinkage(p.BookingID, p.HireID); err != nil {
		return err
	}
	if !p.Amount.IsPositive() {
		return apperr.Validation("amount", "must be greater than zero")
	}
	return checkAmount("amount", p.Amount, 10)
}

// Target reports which reservation the payment settles. ok is false for a
// row whose linkage was never validated.
func (p *Payment) Target() (Target, bool) {
	switch {
	case present(p.BookingID) && !present(p.HireID):
		return Target{Kind: TargetBooking, ID: *p.BookingID}, true
	case present(p.HireID) && !present(p.BookingID):
		return Target{Kind: TargetHire, ID: *p.HireID}, true
	}
	return Target{}, false
}

func (p *Payment) IsPaid() bool { return p.Status == PaymentSucceeded }

// ShortID is the upper-cased first eight characters of an id.
func ShortID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

type PaymentView struct {
	*Payment
	ShortID     string  `json:"short_id"`
	IsPaid      bool    `json:"is_paid"`
	Target      *Target `json:"target"`
	StatusLabel string  `json:"status_label"`
}

func NewPaymentView(p *Payment) PaymentView {
	v := PaymentView{Payment: p, ShortID: ShortID(p.ID), IsPaid: p.IsPaid(), StatusLabel: p.Status.Label()}
	if t, ok := p.Target(); ok {
		v.Target = &t
	}
	return v
}
