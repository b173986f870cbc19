package db

import (
	"context"
	"fmt"

	"ms-venues/internal/models"

	"github.com/uptrace/bun"
)

// Models lists every table in dependency order.
var Models = []any{
	(*models.Identity)(nil),
	(*models.Renter)(nil),
	(*models.Owner)(nil),
	(*models.Specialist)(nil),
	(*models.Venue)(nil),
	(*models.VenueImage)(nil),
	(*models.Event)(nil),
	(*models.Booking)(nil),
	(*models.Hire)(nil),
	(*models.Payment)(nil),
}

type index struct {
	model   any
	name    string
	columns []string
}

var indexes = []index{
	{(*models.Venue)(nil), "venues_city_status_idx", []string{"city", "status"}},
	{(*models.Venue)(nil), "venues_owner_idx", []string{"owner_id"}},
	{(*models.Event)(nil), "events_date_status_idx", []string{"date", "status"}},
	{(*models.Event)(nil), "events_renter_idx", []string{"renter_id"}},
	{(*models.Booking)(nil), "bookings_venue_window_idx", []string{"venue_id", "start_datetime", "end_datetime"}},
	{(*models.Hire)(nil), "hires_specialist_window_idx", []string{"specialist_id", "start_datetime", "end_datetime"}},
	{(*models.Payment)(nil), "payments_booking_idx", []string{"booking_id"}},
	{(*models.Payment)(nil), "payments_hire_idx", []string{"hire_id"}},
	{(*models.Payment)(nil), "payments_provider_ref_idx", []string{"provider_ref"}},
}

// CreateSchema creates tables straight from the models. It backs the SQLite
// mode and tests; PostgreSQL deployments use the SQL migrations instead.
func CreateSchema(ctx context.Context, bunDB *bun.DB) error {
	for _, m := range Models {
		if _, err := bunDB.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	for _, idx := range indexes {
		if _, err := bunDB.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}
