package db

import (
	"context"
	"time"

	"ms-venues/internal/models"

	"github.com/uptrace/bun"
)

// ---------------- PAYMENTS ----------------

func (d *DB) CreatePayment(ctx context.Context, p *models.Payment) error {
	_, err := d.Bun.NewInsert().Model(p).Exec(ctx)
	return err
}

func (d *DB) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	var p models.Payment
	if err := d.Bun.NewSelect().Model(&p).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, "payment", id)
	}
	return &p, nil
}

func (d *DB) GetPaymentByProviderRef(ctx context.Context, ref string) (*models.Payment, error) {
	var p models.Payment
	if err := d.Bun.NewSelect().Model(&p).Where("provider_ref = ?", ref).Limit(1).Scan(ctx); err != nil {
		return nil, notFound(err, "payment", ref)
	}
	return &p, nil
}

func (d *DB) UpdatePayment(ctx context.Context, p *models.Payment) error {
	_, err := d.Bun.NewUpdate().
		Model(p).
		Column("booking_id", "hire_id", "amount", "status", "provider_ref", "paid_at").
		WherePK().
		Exec(ctx)
	return err
}

type PaymentFilter struct {
	Query       string
	Status      string
	PayerID     string
	BookingID   string
	HireID      string
	IDs         []string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	PaidFrom    *time.Time
	PaidTo      *time.Time
	Page
}

func (d *DB) ListPayments(ctx context.Context, f PaymentFilter) ([]models.Payment, int, error) {
	var out []models.Payment
	build := func() *bun.SelectQuery {
		q := search(d.Bun.NewSelect().Model(&out), f.Query,
			"payer_id IN (SELECT id FROM users WHERE LOWER(email) LIKE ?)",
			"booking_id IN (SELECT b.id FROM bookings AS b JOIN events AS e ON e.id = b.event_id WHERE LOWER(e.title) LIKE ?)",
			"hire_id IN (SELECT h.id FROM hires AS h JOIN events AS e ON e.id = h.event_id WHERE LOWER(e.title) LIKE ?)")
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if f.PayerID != "" {
			q = q.Where("payer_id = ?", f.PayerID)
		}
		if f.BookingID != "" {
			q = q.Where("booking_id = ?", f.BookingID)
		}
		if f.HireID != "" {
			q = q.Where("hire_id = ?", f.HireID)
		}
		if len(f.IDs) > 0 {
			q = q.Where("id IN (?)", bun.In(f.IDs))
		}
		if f.CreatedFrom != nil {
			q = q.Where("created_at >= ?", f.CreatedFrom.UTC())
		}
		if f.CreatedTo != nil {
			q = q.Where("created_at <= ?", f.CreatedTo.UTC())
		}
		if f.PaidFrom != nil {
			q = q.Where("paid_at >= ?", f.PaidFrom.UTC())
		}
		if f.PaidTo != nil {
			q = q.Where("paid_at <= ?", f.PaidTo.UTC())
		}
		return q
	}
	total, err := list(ctx, build, f.Page, "created_at DESC", "id ASC")
	return out, total, err
}

// paymentsReference reports whether any payment points at one of ids through
// column (booking_id, hire_id or payer_id).
func (d *DB) paymentsReference(ctx context.Context, column string, ids []string) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	return d.Bun.NewSelect().
		Model((*models.Payment)(nil)).
		Where("? IN (?)", bun.Ident(column), bun.In(ids)).
		Exists(ctx)
}
