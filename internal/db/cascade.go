package db

import (
	"context"

	"ms-venues/internal/apperr"
	"ms-venues/internal/models"

	"github.com/uptrace/bun"
)

// Deletes follow the ownership graph: identity -> profiles, renter -> events
// and bookings, owner -> venues, event and venue -> bookings/hires, venue ->
// images. Payments, hired specialists and hiring renters are protected.
// Callers run these inside RunInTx.

func (d *DB) deleteWhereIn(ctx context.Context, model any, column string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := d.Bun.NewDelete().
		Model(model).
		Where("? IN (?)", bun.Ident(column), bun.In(ids)).
		Exec(ctx)
	return err
}

func (d *DB) DeleteBookings(ctx context.Context, ids ...string) error {
	blocked, err := d.paymentsReference(ctx, "booking_id", ids)
	if err != nil {
		return err
	}
	if blocked {
		return apperr.Constraint("booking has payments and cannot be deleted")
	}
	return d.deleteWhereIn(ctx, (*models.Booking)(nil), "id", ids)
}

func (d *DB) DeleteHires(ctx context.Context, ids ...string) error {
	blocked, err := d.paymentsReference(ctx, "hire_id", ids)
	if err != nil {
		return err
	}
	if blocked {
		return apperr.Constraint("hire has payments and cannot be deleted")
	}
	return d.deleteWhereIn(ctx, (*models.Hire)(nil), "id", ids)
}

func (d *DB) DeleteEvents(ctx context.Context, ids ...string) error {
	bookingIDs, err := d.bookingIDs(ctx, "event_id", ids)
	if err != nil {
		return err
	}
	if err := d.DeleteBookings(ctx, bookingIDs...); err != nil {
		return err
	}
	hireIDs, err := d.hireIDs(ctx, "event_id", ids)
	if err != nil {
		return err
	}
	if err := d.DeleteHires(ctx, hireIDs...); err != nil {
		return err
	}
	return d.deleteWhereIn(ctx, (*models.Event)(nil), "id", ids)
}

func (d *DB) DeleteVenues(ctx context.Context, ids ...string) error {
	bookingIDs, err := d.bookingIDs(ctx, "venue_id", ids)
	if err != nil {
		return err
	}
	if err := d.DeleteBookings(ctx, bookingIDs...); err != nil {
		return err
	}
	if err := d.deleteWhereIn(ctx, (*models.VenueImage)(nil), "venue_id", ids); err != nil {
		return err
	}
	return d.deleteWhereIn(ctx, (*models.Venue)(nil), "id", ids)
}

// DeleteIdentity removes an identity with everything it owns.
func (d *DB) DeleteIdentity(ctx context.Context, id string) error {
	if _, err := d.GetIdentity(ctx, id); err != nil {
		return err
	}

	paid, err := d.paymentsReference(ctx, "payer_id", []string{id})
	if err != nil {
		return err
	}
	if paid {
		return apperr.Constraint("identity %s is the payer of existing payments", id)
	}
	hired, err := d.Bun.NewSelect().
		Model((*models.Hire)(nil)).
		Where("specialist_id = ? OR renter_id = ?", id, id).
		Exists(ctx)
	if err != nil {
		return err
	}
	if hired {
		return apperr.Constraint("identity %s is referenced by hires", id)
	}

	eventIDs, err := d.EventIDsByRenter(ctx, id)
	if err != nil {
		return err
	}
	if err := d.DeleteEvents(ctx, eventIDs...); err != nil {
		return err
	}
	bookingIDs, err := d.bookingIDs(ctx, "renter_id", []string{id})
	if err != nil {
		return err
	}
	if err := d.DeleteBookings(ctx, bookingIDs...); err != nil {
		return err
	}
	venueIDs, err := d.VenueIDsByOwner(ctx, id)
	if err != nil {
		return err
	}
	if err := d.DeleteVenues(ctx, venueIDs...); err != nil {
		return err
	}

	if err := d.deleteProfiles(ctx, id); err != nil {
		return err
	}
	return d.DeleteIdentityRow(ctx, id)
}
