package models

import (
	"time"

	"ms-venues/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type VenueStatus string

const (
	VenueDraft      VenueStatus = "draft"
	VenueModeration VenueStatus = "moderation"
	VenuePublished  VenueStatus = "published"
	VenueArchived   VenueStatus = "archived"
)

var VenueLifecycle = newLifecycle("venue",
	state[VenueStatus]{VenueDraft, "черновик", []VenueStatus{VenueModeration, VenueArchived}},
	state[VenueStatus]{VenueModeration, "на модерации", []VenueStatus{VenuePublished, VenueDraft}},
	state[VenueStatus]{VenuePublished, "опубликовано", []VenueStatus{VenueArchived, VenueModeration}},
	state[VenueStatus]{VenueArchived, "в архиве", []VenueStatus{VenueDraft}},
)

func (s VenueStatus) Label() string { return VenueLifecycle.Label(s) }

const (
	DefaultCapacityMin     = 10
	DefaultMinBookingHours = 2
)

type Venue struct {
	bun.BaseModel `bun:"table:venues"`

	ID                 string              `bun:"id,pk" json:"id"`
	OwnerID            string              `bun:"owner_id,notnull" json:"owner_id" validate:"required"`
	Name               string              `bun:"name,notnull" json:"name" validate:"required,max=200"`
	Slug               string              `bun:"slug,unique,notnull" json:"slug" validate:"required,max=250"`
	Description        string              `bun:"description,notnull" json:"description"`
	ShortDescription   string              `bun:"short_description,notnull" json:"short_description" validate:"max=300"`
	Address            string              `bun:"address,notnull" json:"address" validate:"required,max=300"`
	City               string              `bun:"city,notnull" json:"city" validate:"required,max=100"`
	PostalCode         string              `bun:"postal_code,notnull" json:"postal_code" validate:"max=20"`
	Latitude           *float64            `bun:"latitude,type:decimal(9,6)" json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude          *float64            `bun:"longitude,type:decimal(9,6)" json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	CapacityMin        int                 `bun:"capacity_min,notnull" json:"capacity_min" validate:"gte=1,ltefield=CapacityMax"`
	CapacityMax        int                 `bun:"capacity_max,notnull" json:"capacity_max" validate:"gte=1"`
	AreaSqM            *int                `bun:"area_sq_m" json:"area_sq_m" validate:"omitempty,gte=0"`
	PricePerHour       decimal.NullDecimal `bun:"price_per_hour,type:decimal(10,2)" json:"price_per_hour"`
	PricePerDay        decimal.NullDecimal `bun:"price_per_day,type:decimal(12,2)" json:"price_per_day"`
	MinBookingHours    int                 `bun:"min_booking_hours,notnull" json:"min_booking_hours" validate:"gte=0,lte=32767"`
	CancellationPolicy string              `bun:"cancellation_policy,notnull" json:"cancellation_policy"`
	Status             VenueStatus         `bun:"status,notnull" json:"status" validate:"required,oneof=draft moderation published archived"`
	IsVerified         bool                `bun:"is_verified,notnull" json:"is_verified"`
	CreatedAt          time.Time           `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt          time.Time           `bun:"updated_at,notnull" json:"updated_at"`
}

// Check validates tags plus the money columns the tags cannot express.
func (v *Venue) Check() error {
	if err := Validate(v); err != nil {
		return err
	}
	if err := checkMoney("price_per_hour", v.PricePerHour, 10); err != nil {
		return err
	}
	return checkMoney("price_per_day", v.PricePerDay, 12)
}

type VenueImage struct {
	bun.BaseModel `bun:"table:venue_images"`

	ID        string    `bun:"id,pk" json:"id"`
	VenueID   string    `bun:"venue_id,notnull" json:"venue_id" validate:"required"`
	Path      string    `bun:"path,notnull" json:"path" validate:"required,max=255"`
	Order     int       `bun:"sort_order,notnull" json:"order" validate:"gte=0,lte=32767"`
	Caption   string    `bun:"caption,notnull" json:"caption" validate:"max=200"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// MainPhoto picks the image with the lowest order, newest first on ties.
func MainPhoto(images []VenueImage) *VenueImage {
	var best *VenueImage
	for i := range images {
		img := &images[i]
		if best == nil || img.Order < best.Order ||
			(img.Order == best.Order && img.CreatedAt.After(best.CreatedAt)) {
			best = img
		}
	}
	return best
}

// checkMoney enforces a non-negative amount fitting decimal(digits,2).
func checkMoney(field string, d decimal.NullDecimal, digits int32) error {
	if !d.Valid {
		return nil
	}
	return checkAmount(field, d.Decimal, digits)
}

func checkAmount(field string, d decimal.Decimal, digits int32) error {
	if d.IsNegative() {
		return apperr.Validation(field, "must not be negative")
	}
	if !d.Equal(d.Round(2)) {
		return apperr.Validation(field, "must have at most 2 decimal places")
	}
	if d.GreaterThanOrEqual(decimal.New(1, digits-2)) {
		return apperr.Validation(field, "is too large")
	}
	return nil
}
