package db

import (
	"context"
	"time"

	"ms-venues/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// ---------------- BOOKINGS ----------------

func (d *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	_, err := d.Bun.NewInsert().Model(b).Exec(ctx)
	return err
}

func (d *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := d.Bun.NewSelect().Model(&b).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, "booking", id)
	}
	return &b, nil
}

func (d *DB) BookingsByID(ctx context.Context, ids []string) ([]models.Booking, error) {
	var out []models.Booking
	if len(ids) == 0 {
		return out, nil
	}
	err := d.Bun.NewSelect().Model(&out).Where("id IN (?)", bun.In(ids)).Scan(ctx)
	return out, err
}

func (d *DB) UpdateBooking(ctx context.Context, b *models.Booking) error {
	_, err := d.Bun.NewUpdate().
		Model(b).
		Column("start_datetime", "end_datetime", "total_price", "status", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

// FindBookingOverlap returns a schedule-blocking booking on the venue whose
// interval intersects [start,end), or nil.
func (d *DB) FindBookingOverlap(ctx context.Context, venueID string, start, end time.Time, exceptID string) (*models.Booking, error) {
	var candidates []models.Booking
	q := d.Bun.NewSelect().
		Model(&candidates).
		Where("venue_id = ?", venueID).
		Where("status != ?", models.ReservationCancelled).
		Where("start_datetime < ?", end).
		Where("end_datetime > ?", start)
	if exceptID != "" {
		q = q.Where("id != ?", exceptID)
	}
	if d.Dialect() == dialect.PG {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	for i := range candidates {
		c := &candidates[i]
		if c.Status.BlocksSchedule() && models.Overlaps(start, end, c.StartDatetime, c.EndDatetime) {
			return c, nil
		}
	}
	return nil, nil
}

type ReservationFilter struct {
	Query        string
	Status       string
	EventID      string
	RenterID     string
	VenueID      string
	SpecialistID string
	StartFrom    *time.Time
	StartTo      *time.Time
	Page
}

func applyReservationFilter(q *bun.SelectQuery, f ReservationFilter) *bun.SelectQuery {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.EventID != "" {
		q = q.Where("event_id = ?", f.EventID)
	}
	if f.RenterID != "" {
		q = q.Where("renter_id = ?", f.RenterID)
	}
	if f.StartFrom != nil {
		q = q.Where("start_datetime >= ?", f.StartFrom.UTC())
	}
	if f.StartTo != nil {
		q = q.Where("start_datetime <= ?", f.StartTo.UTC())
	}
	return q
}

const (
	eventTitleMatch  = "event_id IN (SELECT id FROM events WHERE LOWER(title) LIKE ?)"
	renterEmailMatch = "renter_id IN (SELECT id FROM users WHERE LOWER(email) LIKE ?)"
)

func (d *DB) ListBookings(ctx context.Context, f ReservationFilter) ([]models.Booking, int, error) {
	var out []models.Booking
	build := func() *bun.SelectQuery {
		q := search(d.Bun.NewSelect().Model(&out), f.Query,
			eventTitleMatch,
			"venue_id IN (SELECT id FROM venues WHERE LOWER(name) LIKE ?)",
			renterEmailMatch)
		if f.VenueID != "" {
			q = q.Where("venue_id = ?", f.VenueID)
		}
		return applyReservationFilter(q, f)
	}
	total, err := list(ctx, build, f.Page, "start_datetime DESC", "id ASC")
	return out, total, err
}

func (d *DB) bookingIDs(ctx context.Context, column string, values []string) ([]string, error) {
	var ids []string
	if len(values) == 0 {
		return ids, nil
	}
	err := d.Bun.NewSelect().
		Model((*models.Booking)(nil)).
		Column("id").
		Where("? IN (?)", bun.Ident(column), bun.In(values)).
		Scan(ctx, &ids)
	return ids, err
}

// ---------------- HIRES ----------------

func (d *DB) CreateHire(ctx context.Context, h *models.Hire) error {
	_, err := d.Bun.NewInsert().Model(h).Exec(ctx)
	return err
}

func (d *DB) GetHire(ctx context.Context, id string) (*models.Hire, error) {
	var h models.Hire
	if err := d.Bun.NewSelect().Model(&h).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, "hire", id)
	}
	return &h, nil
}

func (d *DB) HiresByID(ctx context.Context, ids []string) ([]models.Hire, error) {
	var out []models.Hire
	if len(ids) == 0 {
		return out, nil
	}
	err := d.Bun.NewSelect().Model(&out).Where("id IN (?)", bun.In(ids)).Scan(ctx)
	return out, err
}

func (d *DB) UpdateHire(ctx context.Context, h *models.Hire) error {
	_, err := d.Bun.NewUpdate().
		Model(h).
		Column("start_datetime", "end_datetime", "total_price", "status", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

// FindHireOverlap is FindBookingOverlap for a specialist's schedule.
func (d *DB) FindHireOverlap(ctx context.Context, specialistID string, start, end time.Time, exceptID string) (*models.Hire, error) {
	var candidates []models.Hire
	q := d.Bun.NewSelect().
		Model(&candidates).
		Where("specialist_id = ?", specialistID).
		Where("status != ?", models.ReservationCancelled).
		Where("start_datetime < ?", end).
		Where("end_datetime > ?", start)
	if exceptID != "" {
		q = q.Where("id != ?", exceptID)
	}
	if d.Dialect() == dialect.PG {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	for i := range candidates {
		c := &candidates[i]
		if c.Status.BlocksSchedule() && models.Overlaps(start, end, c.StartDatetime, c.EndDatetime) {
			return c, nil
		}
	}
	return nil, nil
}

func (d *DB) ListHires(ctx context.Context, f ReservationFilter) ([]models.Hire, int, error) {
	var out []models.Hire
	build := func() *bun.SelectQuery {
		q := search(d.Bun.NewSelect().Model(&out), f.Query,
			eventTitleMatch,
			"specialist_id IN (SELECT id FROM users WHERE LOWER(email) LIKE ?)",
			renterEmailMatch)
		if f.SpecialistID != "" {
			q = q.Where("specialist_id = ?", f.SpecialistID)
		}
		return applyReservationFilter(q, f)
	}
	total, err := list(ctx, build, f.Page, "start_datetime DESC", "id ASC")
	return out, total, err
}

func (d *DB) hireIDs(ctx context.Context, column string, values []string) ([]string, error) {
	var ids []string
	if len(values) == 0 {
		return ids, nil
	}
	err := d.Bun.NewSelect().
		Model((*models.Hire)(nil)).
		Column("id").
		Where("? IN (?)", bun.Ident(column), bun.In(values)).
		Scan(ctx, &ids)
	return ids, err
}
