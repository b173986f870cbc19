package db

import (
	"context"
	"fmt"

	"ms-venues/internal/apperr"
	"ms-venues/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// ---------------- IDENTITIES ----------------

func (d *DB) CreateIdentity(ctx context.Context, i *models.Identity) error {
	_, err := d.Bun.NewInsert().Model(i).Exec(ctx)
	if isUniqueViolation(err) {
		return apperr.Validation("email", "an identity with email %s already exists", i.Email)
	}
	return err
}

func (d *DB) GetIdentity(ctx context.Context, id string) (*models.Identity, error) {
	var i models.Identity
	err := d.Bun.NewSelect().Model(&i).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, notFound(err, "identity", id)
	}
	return &i, nil
}

func (d *DB) GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var i models.Identity
	err := d.Bun.NewSelect().Model(&i).Where("email = ?", email).Limit(1).Scan(ctx)
	if err != nil {
		return nil, notFound(err, "identity", email)
	}
	return &i, nil
}

func (d *DB) EmailTaken(ctx context.Context, email string) (bool, error) {
	return d.exists(ctx, (*models.Identity)(nil), "email = ?", email)
}

func (d *DB) IdentitiesByID(ctx context.Context, ids []string) ([]models.Identity, error) {
	var out []models.Identity
	if len(ids) == 0 {
		return out, nil
	}
	err := d.Bun.NewSelect().Model(&out).Where("id IN (?)", bun.In(ids)).Scan(ctx)
	return out, err
}

// EmailsByID maps identity ids to their email addresses.
func (d *DB) EmailsByID(ctx context.Context, ids []string) (map[string]string, error) {
	identities, err := d.IdentitiesByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(identities))
	for _, i := range identities {
		out[i.ID] = i.Email
	}
	return out, nil
}

func (d *DB) UpdateIdentityFlags(ctx context.Context, i *models.Identity) error {
	_, err := d.Bun.NewUpdate().
		Model(i).
		Column("is_active", "is_staff").
		WherePK().
		Exec(ctx)
	return err
}

type IdentityFilter struct {
	Query    string
	IsActive *bool
	IsStaff  *bool
	// Role is a role name or "none" for identities without a profile.
	Role string
	Page
}

func (d *DB) ListIdentities(ctx context.Context, f IdentityFilter) ([]models.Identity, int, error) {
	var out []models.Identity
	build := func() *bun.SelectQuery {
		q := d.Bun.NewSelect().Model(&out)
		q = search(q, f.Query, "LOWER(email) LIKE ?")
		if f.IsActive != nil {
			q = q.Where("is_active = ?", *f.IsActive)
		}
		if f.IsStaff != nil {
			q = q.Where("is_staff = ?", *f.IsStaff)
		}
		switch f.Role {
		case "":
		case "none":
			q = q.Where("id NOT IN (SELECT user_id FROM renters)").
				Where("id NOT IN (SELECT user_id FROM owners)").
				Where("id NOT IN (SELECT user_id FROM specialists)")
		default:
			q = q.Where(fmt.Sprintf("id IN (SELECT user_id FROM %s)", profileTable(models.Role(f.Role))))
		}
		return q
	}
	total, err := list(ctx, build, f.Page, "date_joined DESC", "id ASC")
	return out, total, err
}

func (d *DB) DeleteIdentityRow(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().Model((*models.Identity)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

// ---------------- ROLE PROFILES ----------------

func profileTable(role models.Role) string {
	switch role {
	case models.RoleOwner:
		return "owners"
	case models.RoleSpecialist:
		return "specialists"
	default:
		return "renters"
	}
}

func (d *DB) HasRole(ctx context.Context, role models.Role, userID string) (bool, error) {
	return d.Bun.NewSelect().
		TableExpr(profileTable(role)).
		Where("user_id = ?", userID).
		Exists(ctx)
}

// CreateProfile inserts an empty profile of the given role.
func (d *DB) CreateProfile(ctx context.Context, role models.Role, userID string) error {
	var model any
	switch role {
	case models.RoleRenter:
		model = &models.Renter{UserID: userID}
	case models.RoleOwner:
		model = &models.Owner{UserID: userID, Rating: decimal.Zero}
	case models.RoleSpecialist:
		model = &models.Specialist{UserID: userID, Rating: decimal.Zero}
	default:
		return apperr.Validation("role", "unknown role %q", role)
	}
	_, err := d.Bun.NewInsert().Model(model).Exec(ctx)
	return err
}

// AttachRoles loads the role profiles of the given identities in three queries.
func (d *DB) AttachRoles(ctx context.Context, identities []*models.Identity) error {
	if len(identities) == 0 {
		return nil
	}
	byID := make(map[string]*models.Identity, len(identities))
	ids := make([]string, 0, len(identities))
	for _, i := range identities {
		byID[i.ID] = i
		ids = append(ids, i.ID)
	}

	var renters []models.Renter
	if err := d.Bun.NewSelect().Model(&renters).Where("user_id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return err
	}
	for k := range renters {
		byID[renters[k].UserID].Renter = &renters[k]
	}

	var owners []models.Owner
	if err := d.Bun.NewSelect().Model(&owners).Where("user_id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return err
	}
	for k := range owners {
		byID[owners[k].UserID].Owner = &owners[k]
	}

	var specialists []models.Specialist
	if err := d.Bun.NewSelect().Model(&specialists).Where("user_id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return err
	}
	for k := range specialists {
		byID[specialists[k].UserID].Specialist = &specialists[k]
	}
	return nil
}

func (d *DB) GetRenter(ctx context.Context, userID string) (*models.Renter, error) {
	var r models.Renter
	if err := d.Bun.NewSelect().Model(&r).Where("user_id = ?", userID).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, "renter", userID)
	}
	return &r, nil
}

func (d *DB) GetOwner(ctx context.Context, userID string) (*models.Owner, error) {
	var o models.Owner
	if err := d.Bun.NewSelect().Model(&o).Where("user_id = ?", userID).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, "owner", userID)
	}
	return &o, nil
}

func (d *DB) GetSpecialist(ctx context.Context, userID string) (*models.Specialist, error) {
	var s models.Specialist
	if err := d.Bun.NewSelect().Model(&s).Where("user_id = ?", userID).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, "specialist", userID)
	}
	return &s, nil
}

func (d *DB) UpdateOwner(ctx context.Context, o *models.Owner) error {
	_, err := d.Bun.NewUpdate().Model(o).Column("inn", "verified", "rating").WherePK().Exec(ctx)
	return err
}

func (d *DB) UpdateSpecialist(ctx context.Context, s *models.Specialist) error {
	_, err := d.Bun.NewUpdate().Model(s).Column("specialty", "license_number", "city", "rating").WherePK().Exec(ctx)
	return err
}

type ProfileFilter struct {
	Query     string
	Verified  *bool
	City      string
	Specialty string
	Page
}

const emailMatch = "user_id IN (SELECT id FROM users WHERE LOWER(email) LIKE ?)"

func (d *DB) ListRenters(ctx context.Context, f ProfileFilter) ([]models.Renter, int, error) {
	var out []models.Renter
	build := func() *bun.SelectQuery {
		return search(d.Bun.NewSelect().Model(&out), f.Query, emailMatch)
	}
	total, err := list(ctx, build, f.Page, "user_id ASC")
	return out, total, err
}

func (d *DB) ListOwners(ctx context.Context, f ProfileFilter) ([]models.Owner, int, error) {
	var out []models.Owner
	build := func() *bun.SelectQuery {
		q := search(d.Bun.NewSelect().Model(&out), f.Query, emailMatch, "LOWER(inn) LIKE ?")
		if f.Verified != nil {
			q = q.Where("verified = ?", *f.Verified)
		}
		return q
	}
	total, err := list(ctx, build, f.Page, "rating DESC", "user_id ASC")
	return out, total, err
}

func (d *DB) ListSpecialists(ctx context.Context, f ProfileFilter) ([]models.Specialist, int, error) {
	var out []models.Specialist
	build := func() *bun.SelectQuery {
		q := search(d.Bun.NewSelect().Model(&out), f.Query,
			emailMatch, "LOWER(specialty) LIKE ?", "LOWER(city) LIKE ?")
		if f.City != "" {
			q = q.Where("city = ?", f.City)
		}
		if f.Specialty != "" {
			q = q.Where("specialty = ?", f.Specialty)
		}
		return q
	}
	total, err := list(ctx, build, f.Page, "rating DESC", "user_id ASC")
	return out, total, err
}

func (d *DB) deleteProfiles(ctx context.Context, userID string) error {
	for _, model := range []any{(*models.Renter)(nil), (*models.Owner)(nil), (*models.Specialist)(nil)} {
		if _, err := d.Bun.NewDelete().Model(model).Where("user_id = ?", userID).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
