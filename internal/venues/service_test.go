package venues

import (
	"context"
	"strings"
	"testing"
	"time"

	"ms-venues/internal/apperr"
	"ms-venues/internal/db"
	"ms-venues/internal/db/dbtest"
	"ms-venues/internal/logger"
	"ms-venues/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     *Service
	store   *db.DB
	ownerID string
	clock   time.Time
}

func setup(t *testing.T) *fixture {
	store := dbtest.New(t)
	ctx := context.Background()
	f := &fixture{store: store, clock: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)}
	f.svc = NewService(store, logger.Discard())
	f.svc.Now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}

	f.ownerID = uuid.NewString()
	require.NoError(t, store.CreateIdentity(ctx, &models.Identity{
		ID: f.ownerID, Email: "owner@example.com", IsActive: true, DateJoined: f.clock,
	}))
	require.NoError(t, store.CreateProfile(ctx, models.RoleOwner, f.ownerID))
	return f
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) input(name string) VenueInput {
	return VenueInput{
		OwnerID:     ptr(f.ownerID),
		Name:        ptr(name),
		Address:     ptr("ул. Ленина, 1"),
		City:        ptr("Москва"),
		CapacityMax: ptr(100),
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "loft-na-arbate", Slugify("Лофт на Арбате"))
	assert.Equal(t, "zal-moskva-22", Slugify("  Зал -- Москва 22!"))
	assert.Equal(t, "banquet-hall", Slugify("Banquet Hall"))
	assert.Equal(t, "", Slugify("!!!"))

	long := Slugify(strings.Repeat("Зал ", 100))
	assert.LessOrEqual(t, len(long), maxSlugLen)
	assert.False(t, strings.HasSuffix(long, "-"))
}

func TestCreateVenueDefaults(t *testing.T) {
	f := setup(t)
	v, err := f.svc.CreateVenue(context.Background(), f.input("Лофт на Арбате"))
	require.NoError(t, err)

	assert.Equal(t, "loft-na-arbate", v.Slug)
	assert.Equal(t, models.DefaultCapacityMin, v.CapacityMin)
	assert.Equal(t, models.DefaultMinBookingHours, v.MinBookingHours)
	assert.Equal(t, models.VenueDraft, v.Status)

	got, err := f.svc.GetVenueBySlug(context.Background(), "loft-na-arbate")
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
}

func TestCreateVenueUniqueSlug(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, err := f.svc.CreateVenue(ctx, f.input("Лофт"))
	require.NoError(t, err)
	b, err := f.svc.CreateVenue(ctx, f.input("Лофт"))
	require.NoError(t, err)

	assert.Equal(t, "loft", a.Slug)
	assert.NotEqual(t, a.Slug, b.Slug)
	assert.Contains(t, b.Slug, "loft-")

	in := f.input("Другой")
	in.Slug = ptr("loft")
	_, err = f.svc.CreateVenue(ctx, in)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "slug", apperr.FieldOf(err))
}

func TestCreateVenueValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	in := f.input("Зал")
	in.CapacityMin = ptr(200)
	_, err := f.svc.CreateVenue(ctx, in)
	assert.Equal(t, "capacity_min", apperr.FieldOf(err))

	in = f.input("Зал")
	in.PricePerHour = &decimal.NullDecimal{Decimal: decimal.NewFromInt(-1), Valid: true}
	_, err = f.svc.CreateVenue(ctx, in)
	assert.Equal(t, "price_per_hour", apperr.FieldOf(err))

	in = f.input("Зал")
	in.OwnerID = ptr("missing")
	_, err = f.svc.CreateVenue(ctx, in)
	assert.True(t, apperr.IsNotFound(err))
}

func TestVenueStatusLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v, err := f.svc.CreateVenue(ctx, f.input("Зал"))
	require.NoError(t, err)

	_, err = f.svc.ChangeVenueStatus(ctx, v.ID, models.VenuePublished)
	assert.True(t, apperr.IsValidation(err))

	next, err := f.svc.AllowedVenueStatuses(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.VenueStatus{models.VenueModeration, models.VenueArchived}, next)

	_, err = f.svc.ChangeVenueStatus(ctx, v.ID, models.VenueModeration)
	require.NoError(t, err)
	v, err = f.svc.ChangeVenueStatus(ctx, v.ID, models.VenuePublished)
	require.NoError(t, err)
	assert.Equal(t, models.VenuePublished, v.Status)

	list, total, err := f.svc.ListVenues(ctx, db.VenueFilter{Status: "published"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, v.ID, list[0].ID)
}

func TestListVenuesSearchFoldsCyrillic(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v, err := f.svc.CreateVenue(ctx, f.input("Лофт на Тверской"))
	require.NoError(t, err)
	_, err = f.svc.CreateVenue(ctx, f.input("Banquet Hall"))
	require.NoError(t, err)

	for _, q := range []string{"Лофт", "лофт", "ТВЕРСКОЙ", "loft-na"} {
		list, total, err := f.svc.ListVenues(ctx, db.VenueFilter{Query: q})
		require.NoError(t, err)
		require.Equal(t, 1, total, q)
		assert.Equal(t, v.ID, list[0].ID, q)
	}

	_, total, err := f.svc.ListVenues(ctx, db.VenueFilter{Query: "ЛЕНИНА"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestUpdateVenueKeepsUnsetFields(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v, err := f.svc.CreateVenue(ctx, f.input("Зал"))
	require.NoError(t, err)

	updated, err := f.svc.UpdateVenue(ctx, v.ID, VenueInput{City: ptr("Казань")})
	require.NoError(t, err)
	assert.Equal(t, "Казань", updated.City)
	assert.Equal(t, "Зал", updated.Name)
	assert.Equal(t, v.Slug, updated.Slug)
	assert.True(t, updated.UpdatedAt.After(v.UpdatedAt))
}

func TestVenueImagesAndMainPhoto(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v, err := f.svc.CreateVenue(ctx, f.input("Зал"))
	require.NoError(t, err)

	_, err = f.svc.AddImage(ctx, v.ID, ImageInput{Path: "a.jpg", Order: 2})
	require.NoError(t, err)
	older, err := f.svc.AddImage(ctx, v.ID, ImageInput{Path: "b.jpg", Order: 1})
	require.NoError(t, err)
	newer, err := f.svc.AddImage(ctx, v.ID, ImageInput{Path: "c.jpg", Order: 1})
	require.NoError(t, err)

	main, err := f.svc.MainPhoto(ctx, v.ID)
	require.NoError(t, err)
	require.NotNil(t, main)
	assert.Equal(t, newer.ID, main.ID)
	assert.NotEqual(t, older.ID, main.ID)

	detail, err := f.svc.GetVenueDetail(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Images, 3)
	assert.Equal(t, "черновик", detail.StatusLabel)

	_, err = f.svc.AddImage(ctx, "missing", ImageInput{Path: "x.jpg"})
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteVenueRemovesImages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v, err := f.svc.CreateVenue(ctx, f.input("Зал"))
	require.NoError(t, err)
	_, err = f.svc.AddImage(ctx, v.ID, ImageInput{Path: "a.jpg"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteVenue(ctx, v.ID))

	_, err = f.svc.GetVenue(ctx, v.ID)
	assert.True(t, apperr.IsNotFound(err))
	images, err := f.store.ListVenueImages(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestDeleteVenueCascadesToBookings(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	v, err := f.svc.CreateVenue(ctx, f.input("Зал"))
	require.NoError(t, err)

	renterID, eventID := uuid.NewString(), uuid.NewString()
	require.NoError(t, f.store.CreateIdentity(ctx, &models.Identity{ID: renterID, Email: "renter@example.com", IsActive: true, DateJoined: f.clock}))
	require.NoError(t, f.store.CreateProfile(ctx, models.RoleRenter, renterID))
	require.NoError(t, f.store.CreateEvent(ctx, &models.Event{
		ID: eventID, RenterID: renterID, Title: "Юбилей", Date: f.clock,
		Theme: models.ThemeParty, Status: models.EventPlanned, CreatedAt: f.clock, UpdatedAt: f.clock,
	}))
	booking := func() *models.Booking {
		return &models.Booking{
			ID: uuid.NewString(), EventID: eventID, VenueID: v.ID, RenterID: renterID,
			StartDatetime: f.clock.Add(time.Hour), EndDatetime: f.clock.Add(3 * time.Hour),
			Status: models.ReservationPending, CreatedAt: f.clock, UpdatedAt: f.clock,
		}
	}
	paid := booking()
	require.NoError(t, f.store.CreateBooking(ctx, paid))
	require.NoError(t, f.store.CreatePayment(ctx, &models.Payment{
		ID: uuid.NewString(), PayerID: renterID, BookingID: &paid.ID,
		Amount: decimal.RequireFromString("1000"), Status: models.PaymentPending, CreatedAt: f.clock,
	}))

	assert.True(t, apperr.IsConstraint(f.svc.DeleteVenue(ctx, v.ID)))
	_, err = f.svc.GetVenue(ctx, v.ID)
	require.NoError(t, err)

	other, err := f.svc.CreateVenue(ctx, f.input("Другой зал"))
	require.NoError(t, err)
	free := booking()
	free.VenueID = other.ID
	require.NoError(t, f.store.CreateBooking(ctx, free))

	require.NoError(t, f.svc.DeleteVenue(ctx, other.ID))
	_, err = f.store.GetBooking(ctx, free.ID)
	assert.True(t, apperr.IsNotFound(err))
	_, err = f.store.GetEvent(ctx, eventID)
	assert.NoError(t, err, "the event outlives its venue")
}
