// Package users keeps identities and their renter, owner and specialist
// profiles. Roles are additive: one identity may hold several.
package users

import (
	"context"
	"fmt"
	"slices"
	"time"

	"ms-venues/internal/apperr"
	"ms-venues/internal/db"
	"ms-venues/internal/logger"
	"ms-venues/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service struct {
	DB  *db.DB
	Log *logger.Logger
	Now func() time.Time
}

func NewService(store *db.DB, log *logger.Logger) *Service {
	return &Service{DB: store, Log: log, Now: time.Now}
}

// ---------------- IDENTITIES ----------------

type CreateIdentityInput struct {
	Email    string `json:"email"`
	IsActive *bool  `json:"is_active"`
	IsStaff  bool   `json:"is_staff"`
}

func (s *Service) CreateIdentity(ctx context.Context, in CreateIdentityInput) (*models.Identity, error) {
	i := &models.Identity{
		ID:         uuid.NewString(),
		Email:      models.NormalizeEmail(in.Email),
		IsActive:   true,
		IsStaff:    in.IsStaff,
		DateJoined: s.Now().UTC(),
	}
	if in.IsActive != nil {
		i.IsActive = *in.IsActive
	}
	if err := models.Validate(i); err != nil {
		return nil, err
	}

	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		taken, err := tx.EmailTaken(ctx, i.Email)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Validation("email", "an identity with email %s already exists", i.Email)
		}
		return tx.CreateIdentity(ctx, i)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("USERS", fmt.Sprintf("Created identity %s (%s)", i.ID, i.Email))
	return i, nil
}

func (s *Service) GetIdentity(ctx context.Context, id string) (*models.Identity, error) {
	i, err := s.DB.GetIdentity(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.AttachRoles(ctx, []*models.Identity{i}); err != nil {
		return nil, err
	}
	return i, nil
}

func (s *Service) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	i, err := s.DB.GetIdentityByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if err := s.DB.AttachRoles(ctx, []*models.Identity{i}); err != nil {
		return nil, err
	}
	return i, nil
}

// IdentityView is the admin listing row.
type IdentityView struct {
	*models.Identity
	Roles     []models.Role `json:"roles"`
	RoleLabel string        `json:"role_label"`
}

func NewIdentityView(i *models.Identity) IdentityView {
	return IdentityView{Identity: i, Roles: i.Roles(), RoleLabel: i.RoleLabel()}
}

func (s *Service) ListIdentities(ctx context.Context, f db.IdentityFilter) ([]IdentityView, int, error) {
	if f.Role != "" && f.Role != "none" {
		if _, err := models.ParseRole(f.Role); err != nil {
			return nil, 0, err
		}
	}
	items, total, err := s.DB.ListIdentities(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	ptrs := make([]*models.Identity, len(items))
	for k := range items {
		ptrs[k] = &items[k]
	}
	if err := s.DB.AttachRoles(ctx, ptrs); err != nil {
		return nil, 0, err
	}
	views := make([]IdentityView, len(ptrs))
	for k, i := range ptrs {
		views[k] = NewIdentityView(i)
	}
	return views, total, nil
}

func (s *Service) SetActive(ctx context.Context, id string, active bool) (*models.Identity, error) {
	return s.updateFlags(ctx, id, func(i *models.Identity) { i.IsActive = active })
}

func (s *Service) SetStaff(ctx context.Context, id string, staff bool) (*models.Identity, error) {
	return s.updateFlags(ctx, id, func(i *models.Identity) { i.IsStaff = staff })
}

func (s *Service) updateFlags(ctx context.Context, id string, apply func(*models.Identity)) (*models.Identity, error) {
	var out *models.Identity
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		i, err := tx.GetIdentity(ctx, id)
		if err != nil {
			return err
		}
		apply(i)
		out = i
		return tx.UpdateIdentityFlags(ctx, i)
	})
	return out, err
}

// DeleteIdentity removes the identity, its profiles and everything they own.
// Hires and payments referencing the identity block the delete.
func (s *Service) DeleteIdentity(ctx context.Context, id string) error {
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		return tx.DeleteIdentity(ctx, id)
	})
	if err != nil {
		return err
	}
	s.Log.Info("USERS", fmt.Sprintf("Deleted identity %s", id))
	return nil
}

// IsStaffEmail reports whether email belongs to an active staff identity.
func (s *Service) IsStaffEmail(ctx context.Context, email string) (bool, error) {
	i, err := s.DB.GetIdentityByEmail(ctx, models.NormalizeEmail(email))
	if apperr.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return i.IsActive && i.IsStaff, nil
}

// ---------------- ROLES ----------------

// AssignRole creates the role profile for each identity that lacks it and
// returns how many were created. Identities that already hold the role are
// skipped. An unknown id fails the whole call before anything is written.
func (s *Service) AssignRole(ctx context.Context, role models.Role, ids []string) (int, error) {
	if _, err := models.ParseRole(string(role)); err != nil {
		return 0, err
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	created := 0
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		found, err := tx.IdentitiesByID(ctx, ids)
		if err != nil {
			return err
		}
		if len(found) != len(ids) {
			known := make(map[string]bool, len(found))
			for _, i := range found {
				known[i.ID] = true
			}
			for _, id := range ids {
				if !known[id] {
					return apperr.NotFound("identity", id)
				}
			}
		}

		for _, id := range ids {
			has, err := tx.HasRole(ctx, role, id)
			if err != nil {
				return err
			}
			if has {
				continue
			}
			if err := tx.CreateProfile(ctx, role, id); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.Log.Info("USERS", fmt.Sprintf("Assigned role %s to %d of %d identities", role, created, len(ids)))
	return created, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func (s *Service) HasRole(ctx context.Context, role models.Role, id string) (bool, error) {
	return s.DB.HasRole(ctx, role, id)
}

func (s *Service) IsRenter(ctx context.Context, id string) (bool, error) {
	return s.HasRole(ctx, models.RoleRenter, id)
}

func (s *Service) IsOwner(ctx context.Context, id string) (bool, error) {
	return s.HasRole(ctx, models.RoleOwner, id)
}

func (s *Service) IsSpecialist(ctx context.Context, id string) (bool, error) {
	return s.HasRole(ctx, models.RoleSpecialist, id)
}

// RoleOf returns the display label of the identity's highest-precedence role.
func (s *Service) RoleOf(ctx context.Context, id string) (string, error) {
	i, err := s.GetIdentity(ctx, id)
	if err != nil {
		return "", err
	}
	return i.RoleLabel(), nil
}

// ---------------- PROFILES ----------------

func (s *Service) GetRenter(ctx context.Context, id string) (*models.Renter, error) {
	return s.DB.GetRenter(ctx, id)
}

func (s *Service) GetOwner(ctx context.Context, id string) (*models.Owner, error) {
	return s.DB.GetOwner(ctx, id)
}

func (s *Service) GetSpecialist(ctx context.Context, id string) (*models.Specialist, error) {
	return s.DB.GetSpecialist(ctx, id)
}

type OwnerUpdate struct {
	INN      *string          `json:"inn"`
	Verified *bool            `json:"verified"`
	Rating   *decimal.Decimal `json:"rating"`
}

func (s *Service) UpdateOwner(ctx context.Context, id string, in OwnerUpdate) (*models.Owner, error) {
	var out *models.Owner
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		o, err := tx.GetOwner(ctx, id)
		if err != nil {
			return err
		}
		if in.INN != nil {
			o.INN = *in.INN
		}
		if in.Verified != nil {
			o.Verified = *in.Verified
		}
		if in.Rating != nil {
			if err := models.ValidateRating(*in.Rating); err != nil {
				return err
			}
			o.Rating = *in.Rating
		}
		if err := models.Validate(o); err != nil {
			return err
		}
		out = o
		return tx.UpdateOwner(ctx, o)
	})
	return out, err
}

type SpecialistUpdate struct {
	Specialty     *string          `json:"specialty"`
	LicenseNumber *string          `json:"license_number"`
	City          *string          `json:"city"`
	Rating        *decimal.Decimal `json:"rating"`
}

func (s *Service) UpdateSpecialist(ctx context.Context, id string, in SpecialistUpdate) (*models.Specialist, error) {
	var out *models.Specialist
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		sp, err := tx.GetSpecialist(ctx, id)
		if err != nil {
			return err
		}
		if in.Specialty != nil {
			sp.Specialty = *in.Specialty
		}
		if in.LicenseNumber != nil {
			sp.LicenseNumber = *in.LicenseNumber
		}
		if in.City != nil {
			sp.City = *in.City
		}
		if in.Rating != nil {
			if err := models.ValidateRating(*in.Rating); err != nil {
				return err
			}
			sp.Rating = *in.Rating
		}
		if err := models.Validate(sp); err != nil {
			return err
		}
		out = sp
		return tx.UpdateSpecialist(ctx, sp)
	})
	return out, err
}

// ProfileView pairs a role profile with the owning identity's email.
type ProfileView[T any] struct {
	Profile T      `json:"profile"`
	Email   string `json:"email"`
}

func withEmails[T any](ctx context.Context, store *db.DB, items []T, userID func(*T) string) ([]ProfileView[T], error) {
	ids := make([]string, len(items))
	for k := range items {
		ids[k] = userID(&items[k])
	}
	emails, err := store.EmailsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]ProfileView[T], len(items))
	for k := range items {
		out[k] = ProfileView[T]{Profile: items[k], Email: emails[ids[k]]}
	}
	return out, nil
}

func (s *Service) ListRenters(ctx context.Context, f db.ProfileFilter) ([]ProfileView[models.Renter], int, error) {
	items, total, err := s.DB.ListRenters(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	views, err := withEmails(ctx, s.DB, items, func(r *models.Renter) string { return r.UserID })
	return views, total, err
}

func (s *Service) ListOwners(ctx context.Context, f db.ProfileFilter) ([]ProfileView[models.Owner], int, error) {
	items, total, err := s.DB.ListOwners(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	views, err := withEmails(ctx, s.DB, items, func(o *models.Owner) string { return o.UserID })
	return views, total, err
}

func (s *Service) ListSpecialists(ctx context.Context, f db.ProfileFilter) ([]ProfileView[models.Specialist], int, error) {
	items, total, err := s.DB.ListSpecialists(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	views, err := withEmails(ctx, s.DB, items, func(sp *models.Specialist) string { return sp.UserID })
	return views, total, err
}
