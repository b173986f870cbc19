package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// ReservationStatus is shared by bookings and hires.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
)

var (
	BookingLifecycle = newLifecycle("booking",
		state[ReservationStatus]{ReservationPending, "ожидает подтверждения", []ReservationStatus{ReservationConfirmed, ReservationCancelled}},
		state[ReservationStatus]{ReservationConfirmed, "подтверждено", []ReservationStatus{ReservationCompleted, ReservationCancelled}},
		state[ReservationStatus]{ReservationCancelled, "отменено", nil},
		state[ReservationStatus]{ReservationCompleted, "завершено", nil},
	)
	HireLifecycle = newLifecycle("hire",
		state[ReservationStatus]{ReservationPending, "ожидает подтверждения", []ReservationStatus{ReservationConfirmed, ReservationCancelled}},
		state[ReservationStatus]{ReservationConfirmed, "подтверждено", []ReservationStatus{ReservationCompleted, ReservationCancelled}},
		state[ReservationStatus]{ReservationCancelled, "отменено", nil},
		state[ReservationStatus]{ReservationCompleted, "выполнено", nil},
	)
)

// BlocksSchedule reports whether a reservation in this status occupies its
// resource. Only cancelled reservations free the slot.
func (s ReservationStatus) BlocksSchedule() bool {
	return s != ReservationCancelled
}

// Overlaps reports whether half-open intervals [s1,e1) and [s2,e2) intersect.
// Touching endpoints do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// ReservationHours is the billed length: whole hours rounded up, at least 1.
// ok is false when either endpoint is missing.
func ReservationHours(start, end time.Time) (hours int, ok bool) {
	if start.IsZero() || end.IsZero() {
		return 0, false
	}
	h := int(math.Ceil(end.Sub(start).Hours()))
	if h < 1 {
		h = 1
	}
	return h, true
}

func durationPtr(start, end time.Time) *int {
	h, ok := ReservationHours(start, end)
	if !ok {
		return nil
	}
	return &h
}

// Booking reserves a venue for an event.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID            string              `bun:"id,pk" json:"id"`
	EventID       string              `bun:"event_id,notnull" json:"event_id" validate:"required"`
	VenueID       string              `bun:"venue_id,notnull" json:"venue_id" validate:"required"`
	RenterID      string              `bun:"renter_id,notnull" json:"renter_id" validate:"required"`
	StartDatetime time.Time           `bun:"start_datetime,notnull" json:"start_datetime" validate:"required"`
	EndDatetime   time.Time           `bun:"end_datetime,notnull" json:"end_datetime" validate:"required,gtfield=StartDatetime"`
	TotalPrice    decimal.NullDecimal `bun:"total_price,type:decimal(10,2)" json:"total_price"`
	Status        ReservationStatus   `bun:"status,notnull" json:"status" validate:"required,oneof=pending confirmed cancelled completed"`
	CreatedAt     time.Time           `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time           `bun:"updated_at,notnull" json:"updated_at"`
}

func (b *Booking) Check() error {
	if err := Validate(b); err != nil {
		return err
	}
	return checkMoney("total_price", b.TotalPrice, 10)
}

func (b *Booking) DurationHours() *int { return durationPtr(b.StartDatetime, b.EndDatetime) }

// Hire reserves a specialist for an event.
type Hire struct {
	bun.BaseModel `bun:"table:hires"`

	ID            string              `bun:"id,pk" json:"id"`
	EventID       string              `bun:"event_id,notnull" json:"event_id" validate:"required"`
	SpecialistID  string              `bun:"specialist_id,notnull" json:"specialist_id" validate:"required"`
	RenterID      string              `bun:"renter_id,notnull" json:"renter_id" validate:"required"`
	StartDatetime time.Time           `bun:"start_datetime,notnull" json:"start_datetime" validate:"required"`
	EndDatetime   time.Time           `bun:"end_datetime,notnull" json:"end_datetime" validate:"required,gtfield=StartDatetime"`
	TotalPrice    decimal.NullDecimal `bun:"total_price,type:decimal(10,2)" json:"total_price"`
	Status        ReservationStatus   `bun:"status,notnull" json:"status" validate:"required,oneof=pending confirmed cancelled completed"`
	CreatedAt     time.Time           `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time           `bun:"updated_at,notnull" json:"updated_at"`
}

func (h *Hire) Check() error {
	if err := Validate(h); err != nil {
		return err
	}
	return checkMoney("total_price", h.TotalPrice, 10)
}

func (h *Hire) DurationHours() *int { return durationPtr(h.StartDatetime, h.EndDatetime) }

type BookingView struct {
	*Booking
	DurationHours *int   `json:"duration_hours"`
	StatusLabel   string `json:"status_label"`
}

func NewBookingView(b *Booking) BookingView {
	return BookingView{Booking: b, DurationHours: b.DurationHours(), StatusLabel: BookingLifecycle.Label(b.Status)}
}

type HireView struct {
	*Hire
	DurationHours *int   `json:"duration_hours"`
	StatusLabel   string `json:"status_label"`
}

func NewHireView(h *Hire) HireView {
	return HireView{Hire: h, DurationHours: h.DurationHours(), StatusLabel: HireLifecycle.Label(h.Status)}
}
