package db

import (
	"context"

	"ms-venues/internal/apperr"
	"ms-venues/internal/models"

	"github.com/uptrace/bun"
)

// ---------------- VENUES ----------------

func (d *DB) CreateVenue(ctx context.Context, v *models.Venue) error {
	_, err := d.Bun.NewInsert().Model(v).Exec(ctx)
	if isUniqueViolation(err) {
		return apperr.Validation("slug", "slug %q is already taken", v.Slug)
	}
	return err
}

func (d *DB) GetVenue(ctx context.Context, id string) (*models.Venue, error) {
	var v models.Venue
	if err := d.Bun.NewSelect().Model(&v).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, "venue", id)
	}
	return &v, nil
}

func (d *DB) GetVenueBySlug(ctx context.Context, slug string) (*models.Venue, error) {
	var v models.Venue
	if err := d.Bun.NewSelect().Model(&v).Where("slug = ?", slug).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, "venue", slug)
	}
	return &v, nil
}

// SlugTaken reports whether another venue already uses slug.
func (d *DB) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	q := d.Bun.NewSelect().Model((*models.Venue)(nil)).Where("slug = ?", slug)
	if exceptID != "" {
		q = q.Where("id != ?", exceptID)
	}
	return q.Exists(ctx)
}

func (d *DB) UpdateVenue(ctx context.Context, v *models.Venue) error {
	_, err := d.Bun.NewUpdate().Model(v).ExcludeColumn("id", "created_at").WherePK().Exec(ctx)
	if isUniqueViolation(err) {
		return apperr.Validation("slug", "slug %q is already taken", v.Slug)
	}
	return err
}

type VenueFilter struct {
	Query      string
	Status     string
	City       string
	OwnerID    string
	IsVerified *bool
	Page
}

func (d *DB) ListVenues(ctx context.Context, f VenueFilter) ([]models.Venue, int, error) {
	var out []models.Venue
	build := func() *bun.SelectQuery {
		q := search(d.Bun.NewSelect().Model(&out), f.Query,
			"LOWER(name) LIKE ?", "LOWER(slug) LIKE ?", "LOWER(address) LIKE ?",
			"LOWER(city) LIKE ?", "LOWER(description) LIKE ?")
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.City != "" {
			q = q.Where("city = ?", f.City)
		}
		if f.OwnerID != "" {
			q = q.Where("owner_id = ?", f.OwnerID)
		}
		if f.IsVerified != nil {
			q = q.Where("is_verified = ?", *f.IsVerified)
		}
		return q
	}
	total, err := list(ctx, build, f.Page, "created_at DESC", "id ASC")
	return out, total, err
}

func (d *DB) VenueIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	var ids []string
	err := d.Bun.NewSelect().Model((*models.Venue)(nil)).Column("id").Where("owner_id = ?", ownerID).Scan(ctx, &ids)
	return ids, err
}

func (d *DB) VenuesByID(ctx context.Context, ids []string) ([]models.Venue, error) {
	var out []models.Venue
	if len(ids) == 0 {
		return out, nil
	}
	err := d.Bun.NewSelect().Model(&out).Where("id IN (?)", bun.In(ids)).Scan(ctx)
	return out, err
}

// ---------------- VENUE IMAGES ----------------

func (d *DB) CreateVenueImage(ctx context.Context, img *models.VenueImage) error {
	_, err := d.Bun.NewInsert().Model(img).Exec(ctx)
	return err
}

func (d *DB) ListVenueImages(ctx context.Context, venueID string) ([]models.VenueImage, error) {
	var out []models.VenueImage
	err := d.Bun.NewSelect().
		Model(&out).
		Where("venue_id = ?", venueID).
		Order("sort_order ASC", "created_at ASC").
		Scan(ctx)
	return out, err
}
