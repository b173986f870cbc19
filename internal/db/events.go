package db

import (
	"context"
	"time"

	"ms-venues/internal/models"

	"github.com/uptrace/bun"
)

// ---------------- EVENTS ----------------

func (d *DB) CreateEvent(ctx context.Context, e *models.Event) error {
	_, err := d.Bun.NewInsert().Model(e).Exec(ctx)
	return err
}

func (d *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var e models.Event
	if err := d.Bun.NewSelect().Model(&e).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, "event", id)
	}
	return &e, nil
}

func (d *DB) EventsByID(ctx context.Context, ids []string) ([]models.Event, error) {
	var out []models.Event
	if len(ids) == 0 {
		return out, nil
	}
	err := d.Bun.NewSelect().Model(&out).Where("id IN (?)", bun.In(ids)).Scan(ctx)
	return out, err
}

func (d *DB) UpdateEvent(ctx context.Context, e *models.Event) error {
	_, err := d.Bun.NewUpdate().Model(e).ExcludeColumn("id", "created_at").WherePK().Exec(ctx)
	return err
}

type EventFilter struct {
	Query    string
	Status   string
	Theme    string
	RenterID string
	DateFrom *time.Time
	DateTo   *time.Time
	Page
}

func (d *DB) ListEvents(ctx context.Context, f EventFilter) ([]models.Event, int, error) {
	var out []models.Event
	build := func() *bun.SelectQuery {
		q := search(d.Bun.NewSelect().Model(&out), f.Query,
			"LOWER(title) LIKE ?", "LOWER(short_description) LIKE ?", "LOWER(description) LIKE ?")
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.Theme != "" {
			q = q.Where("theme = ?", f.Theme)
		}
		if f.RenterID != "" {
			q = q.Where("renter_id = ?", f.RenterID)
		}
		if f.DateFrom != nil {
			q = q.Where("date >= ?", models.DateOnly(*f.DateFrom))
		}
		if f.DateTo != nil {
			q = q.Where("date <= ?", models.DateOnly(*f.DateTo))
		}
		return q
	}
	total, err := list(ctx, build, f.Page, "date DESC", "created_at DESC", "id ASC")
	return out, total, err
}

func (d *DB) EventIDsByRenter(ctx context.Context, renterID string) ([]string, error) {
	var ids []string
	err := d.Bun.NewSelect().Model((*models.Event)(nil)).Column("id").Where("renter_id = ?", renterID).Scan(ctx, &ids)
	return ids, err
}
