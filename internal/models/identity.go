package models

import (
	"strings"
	"time"

	"ms-venues/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Role string

const (
	RoleRenter     Role = "renter"
	RoleOwner      Role = "owner"
	RoleSpecialist Role = "specialist"
)

// Roles in label precedence order.
var Roles = []Role{RoleRenter, RoleOwner, RoleSpecialist}

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleRenter, RoleOwner, RoleSpecialist:
		return r, nil
	default:
		return "", apperr.Validation("role", "unknown role %q", s)
	}
}

func (r Role) Label() string {
	switch r {
	case RoleRenter:
		return "Арендатор"
	case RoleOwner:
		return "Владелец"
	case RoleSpecialist:
		return "Специалист"
	default:
		return NoRoleLabel
	}
}

const NoRoleLabel = "Без роли"

// Identity is an account keyed by a unique email. Role profiles are loaded
// separately and attached for read views.
type Identity struct {
	bun.BaseModel `bun:"table:users"`

	ID         string    `bun:"id,pk" json:"id"`
	Email      string    `bun:"email,unique,notnull" json:"email" validate:"required,email,max=254"`
	IsActive   bool      `bun:"is_active,notnull" json:"is_active"`
	IsStaff    bool      `bun:"is_staff,notnull" json:"is_staff"`
	DateJoined time.Time `bun:"date_joined,notnull" json:"date_joined"`

	Renter     *Renter     `bun:"-" json:"renter,omitempty"`
	Owner      *Owner      `bun:"-" json:"owner,omitempty"`
	Specialist *Specialist `bun:"-" json:"specialist,omitempty"`
}

func (i *Identity) IsRenter() bool     { return i.Renter != nil }
func (i *Identity) IsOwner() bool      { return i.Owner != nil }
func (i *Identity) IsSpecialist() bool { return i.Specialist != nil }

func (i *Identity) HasRole(r Role) bool {
	switch r {
	case RoleRenter:
		return i.IsRenter()
	case RoleOwner:
		return i.IsOwner()
	case RoleSpecialist:
		return i.IsSpecialist()
	}
	return false
}

// Roles lists the held roles in precedence order.
func (i *Identity) Roles() []Role {
	out := []Role{}
	for _, r := range Roles {
		if i.HasRole(r) {
			out = append(out, r)
		}
	}
	return out
}

// RoleLabel reports the highest-precedence role: renter, then owner, then
// specialist.
func (i *Identity) RoleLabel() string {
	for _, r := range Roles {
		if i.HasRole(r) {
			return r.Label()
		}
	}
	return NoRoleLabel
}

// NormalizeEmail trims the address and lower-cases its domain part.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

type Renter struct {
	bun.BaseModel `bun:"table:renters"`

	UserID string `bun:"user_id,pk" json:"user_id"`
}

type Owner struct {
	bun.BaseModel `bun:"table:owners"`

	UserID   string          `bun:"user_id,pk" json:"user_id"`
	INN      string          `bun:"inn,notnull" json:"inn" validate:"max=20"`
	Verified bool            `bun:"verified,notnull" json:"verified"`
	Rating   decimal.Decimal `bun:"rating,type:decimal(3,2),notnull" json:"rating"`
}

type Specialist struct {
	bun.BaseModel `bun:"table:specialists"`

	UserID        string          `bun:"user_id,pk" json:"user_id"`
	Specialty     string          `bun:"specialty,notnull" json:"specialty" validate:"max=150"`
	LicenseNumber string          `bun:"license_number,notnull" json:"license_number" validate:"max=50"`
	City          string          `bun:"city,notnull" json:"city" validate:"max=100"`
	Rating        decimal.Decimal `bun:"rating,type:decimal(3,2),notnull" json:"rating"`
}

var maxRating = decimal.RequireFromString("9.99")

// ValidateRating checks that a rating fits decimal(3,2) and is not negative.
func ValidateRating(r decimal.Decimal) error {
	if r.IsNegative() || r.GreaterThan(maxRating) {
		return apperr.Validation("rating", "must be between 0 and 9.99")
	}
	if !r.Equal(r.Round(2)) {
		return apperr.Validation("rating", "must have at most 2 decimal places")
	}
	return nil
}
