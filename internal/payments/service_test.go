package payments

import (
	"bytes"
	"context"
	"errors"
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
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	args := m.Called(ctx, req)
	if intent, ok := args.Get(0).(*Intent); ok {
		return intent, args.Error(1)
	}
	return nil, args.Error(1)
}

type fixture struct {
	svc     *Service
	store   *db.DB
	gateway *mockGateway

	renterID, ownerID, bookingID, hireID string
}

var clock = time.Date(2025, 8, 15, 9, 30, 0, 0, time.UTC)

func setup(t *testing.T) *fixture {
	store := dbtest.New(t)
	ctx := context.Background()
	f := &fixture{store: store, gateway: &mockGateway{}}
	f.svc = NewService(store, f.gateway, nil, logger.Discard(), "rub", time.UTC)
	f.svc.Now = func() time.Time { return clock }

	newIdentity := func(email string, role models.Role) string {
		id := uuid.NewString()
		require.NoError(t, store.CreateIdentity(ctx, &models.Identity{ID: id, Email: email, IsActive: true, DateJoined: clock}))
		require.NoError(t, store.CreateProfile(ctx, role, id))
		return id
	}
	f.renterID = newIdentity("renter@example.com", models.RoleRenter)
	f.ownerID = newIdentity("owner@example.com", models.RoleOwner)
	specialistID := newIdentity("dj@example.com", models.RoleSpecialist)

	eventID := uuid.NewString()
	require.NoError(t, store.CreateEvent(ctx, &models.Event{
		ID: eventID, RenterID: f.renterID, Title: "Корпоратив отдела продаж в честь окончания квартала",
		Date: clock, Theme: models.ThemeCorporate, Status: models.EventPlanned, CreatedAt: clock, UpdatedAt: clock,
	}))
	venueID := uuid.NewString()
	require.NoError(t, store.CreateVenue(ctx, &models.Venue{
		ID: venueID, OwnerID: f.ownerID, Name: "Лофт", Slug: "loft", Address: "ул. 1", City: "Москва",
		CapacityMin: 10, CapacityMax: 50, Status: models.VenuePublished, CreatedAt: clock, UpdatedAt: clock,
	}))
	f.bookingID = uuid.NewString()
	require.NoError(t, store.CreateBooking(ctx, &models.Booking{
		ID: f.bookingID, EventID: eventID, VenueID: venueID, RenterID: f.renterID,
		StartDatetime: clock, EndDatetime: clock.Add(3 * time.Hour), Status: models.ReservationConfirmed,
		CreatedAt: clock, UpdatedAt: clock,
	}))
	f.hireID = uuid.NewString()
	require.NoError(t, store.CreateHire(ctx, &models.Hire{
		ID: f.hireID, EventID: eventID, SpecialistID: specialistID, RenterID: f.renterID,
		StartDatetime: clock, EndDatetime: clock.Add(3 * time.Hour), Status: models.ReservationConfirmed,
		CreatedAt: clock, UpdatedAt: clock,
	}))
	return f
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) bookingPayment(t *testing.T, value string) *models.PaymentView {
	v, err := f.svc.CreatePayment(context.Background(), PaymentInput{
		PayerID: f.renterID, BookingID: &f.bookingID, Amount: amount(value),
	})
	require.NoError(t, err)
	return v
}

func TestCreatePaymentLinkage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreatePayment(ctx, PaymentInput{PayerID: f.renterID, BookingID: &f.bookingID, HireID: &f.hireID, Amount: amount("10")})
	assert.Equal(t, "hire", apperr.FieldOf(err))

	_, err = f.svc.CreatePayment(ctx, PaymentInput{PayerID: f.renterID, Amount: amount("10")})
	assert.Equal(t, "booking", apperr.FieldOf(err))

	empty := ""
	_, err = f.svc.CreatePayment(ctx, PaymentInput{PayerID: f.renterID, BookingID: &empty, Amount: amount("10")})
	assert.Equal(t, "booking", apperr.FieldOf(err), "empty id counts as unset")

	v, err := f.svc.CreatePayment(ctx, PaymentInput{PayerID: f.renterID, HireID: &f.hireID, Amount: amount("10")})
	require.NoError(t, err)
	require.NotNil(t, v.Target)
	assert.Equal(t, models.TargetHire, v.Target.Kind)
	assert.Nil(t, v.BookingID)
}

func TestCreatePaymentRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreatePayment(ctx, PaymentInput{PayerID: f.renterID, BookingID: &f.bookingID, Amount: amount("0")})
	assert.Equal(t, "amount", apperr.FieldOf(err))

	_, err = f.svc.CreatePayment(ctx, PaymentInput{PayerID: f.ownerID, BookingID: &f.bookingID, Amount: amount("10")})
	assert.True(t, apperr.IsNotFound(err), "payer must be a renter")

	missing := "missing"
	_, err = f.svc.CreatePayment(ctx, PaymentInput{PayerID: f.renterID, BookingID: &missing, Amount: amount("10")})
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.svc.CreatePayment(ctx, PaymentInput{PayerID: f.renterID, BookingID: &f.bookingID, Amount: amount("10"), Status: "refunded"})
	assert.Equal(t, "status", apperr.FieldOf(err))

	v, err := f.svc.CreatePayment(ctx, PaymentInput{PayerID: f.renterID, BookingID: &f.bookingID, Amount: amount("10"), Status: "succeeded"})
	require.NoError(t, err)
	assert.True(t, v.IsPaid)
	require.NotNil(t, v.PaidAt)
	assert.True(t, clock.Equal(*v.PaidAt))
}

func TestUpdatePaymentTargetRunsGuard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.bookingPayment(t, "100")

	_, err := f.svc.UpdatePaymentTarget(ctx, p.ID, &f.bookingID, &f.hireID)
	assert.Equal(t, "hire", apperr.FieldOf(err))
	_, err = f.svc.UpdatePaymentTarget(ctx, p.ID, nil, nil)
	assert.Equal(t, "booking", apperr.FieldOf(err))

	v, err := f.svc.UpdatePaymentTarget(ctx, p.ID, nil, &f.hireID)
	require.NoError(t, err)
	assert.Equal(t, models.TargetHire, v.Target.Kind)

	got, err := f.store.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BookingID)
	assert.Equal(t, f.hireID, *got.HireID)
}

func TestChangePaymentStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.bookingPayment(t, "100")

	next, err := f.svc.AllowedPaymentStatuses(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.PaymentStatus{models.PaymentSucceeded, models.PaymentFailed, models.PaymentCancelled}, next)

	_, err = f.svc.ChangePaymentStatus(ctx, p.ID, models.PaymentRefunded)
	assert.Equal(t, "status", apperr.FieldOf(err))

	v, err := f.svc.ChangePaymentStatus(ctx, p.ID, models.PaymentSucceeded)
	require.NoError(t, err)
	require.NotNil(t, v.PaidAt)

	v, err = f.svc.ChangePaymentStatus(ctx, p.ID, models.PaymentRefunded)
	require.NoError(t, err)
	assert.Equal(t, "возвращён", v.StatusLabel)
	assert.NotNil(t, v.PaidAt, "refund keeps the payment date")
}

func TestInitiateCharge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.bookingPayment(t, "15000.50")

	f.gateway.On("CreateIntent", mock.Anything, IntentRequest{PaymentID: p.ID, AmountMinor: 1500050, Currency: "rub"}).
		Return(&Intent{ID: "pi_123", ClientSecret: "secret", Status: "requires_payment_method"}, nil).Once()

	charge, err := f.svc.InitiateCharge(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", charge.Intent.ID)
	assert.Equal(t, "pi_123", charge.Payment.ProviderRef)

	_, err = f.svc.InitiateCharge(ctx, p.ID)
	assert.Equal(t, "provider_ref", apperr.FieldOf(err))
	f.gateway.AssertExpectations(t)
}

func TestInitiateChargeErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.bookingPayment(t, "100")

	f.gateway.On("CreateIntent", mock.Anything, mock.Anything).Return(nil, errors.New("card_declined")).Once()
	_, err := f.svc.InitiateCharge(ctx, p.ID)
	require.Error(t, err)
	got, err := f.store.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ProviderRef)

	_, err = f.svc.ChangePaymentStatus(ctx, p.ID, models.PaymentCancelled)
	require.NoError(t, err)
	_, err = f.svc.InitiateCharge(ctx, p.ID)
	assert.Equal(t, "status", apperr.FieldOf(err))

	f.svc.Gateway = nil
	_, err = f.svc.InitiateCharge(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProviderDisabled)
}

func TestHandleProviderEvent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.bookingPayment(t, "100")
	f.gateway.On("CreateIntent", mock.Anything, mock.Anything).Return(&Intent{ID: "pi_1"}, nil)
	_, err := f.svc.InitiateCharge(ctx, p.ID)
	require.NoError(t, err)

	v, err := f.svc.HandleProviderEvent(ctx, ProviderEvent{ID: "evt_1", Type: EventIntentSucceeded, IntentID: "pi_1"})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, models.PaymentSucceeded, v.Status)
	assert.NotNil(t, v.PaidAt)

	v, err = f.svc.HandleProviderEvent(ctx, ProviderEvent{ID: "evt_1", Type: EventIntentSucceeded, IntentID: "pi_1"})
	require.NoError(t, err)
	assert.Nil(t, v, "redelivery is a no-op")

	v, err = f.svc.HandleProviderEvent(ctx, ProviderEvent{ID: "evt_2", Type: EventIntentFailed, IntentID: "pi_1"})
	require.NoError(t, err)
	assert.Nil(t, v, "stale failure does not undo a success")

	v, err = f.svc.HandleProviderEvent(ctx, ProviderEvent{ID: "evt_3", Type: "charge.refunded", IntentID: "pi_1"})
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = f.svc.HandleProviderEvent(ctx, ProviderEvent{ID: "evt_4", Type: EventIntentSucceeded, IntentID: "pi_unknown"})
	assert.True(t, apperr.IsNotFound(err))
}

func TestHandleProviderEventFallsBackToMetadata(t *testing.T) {
	f := setup(t)
	p := f.bookingPayment(t, "100")

	v, err := f.svc.HandleProviderEvent(context.Background(), ProviderEvent{
		ID: "evt_1", Type: EventIntentCanceled, IntentID: "pi_9", PaymentID: p.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCancelled, v.Status)
	assert.Equal(t, "pi_9", v.ProviderRef)
}

func TestListPaymentsSearch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.bookingPayment(t, "100")
	_, err := f.svc.CreatePayment(ctx, PaymentInput{PayerID: f.renterID, HireID: &f.hireID, Amount: amount("50")})
	require.NoError(t, err)

	rows, total, err := f.svc.ListPayments(ctx, db.PaymentFilter{Query: "корпоратив"})
	require.NoError(t, err)
	require.Equal(t, 2, total, "both reservations belong to the event")
	assert.Equal(t, "renter@example.com", rows[0].PayerEmail)

	_, total, err = f.svc.ListPayments(ctx, db.PaymentFilter{Status: "succeeded"})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, _, err = f.svc.ListPayments(ctx, db.PaymentFilter{Status: "paid"})
	assert.True(t, apperr.IsValidation(err))
}

func TestPagesAreStableWhenTimestampsTie(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	want := map[string]bool{}
	for i := 0; i < 7; i++ {
		want[f.bookingPayment(t, "100").ID] = true
	}

	seen := map[string]bool{}
	for offset := 0; offset < 7; offset += 2 {
		rows, total, err := f.svc.ListPayments(ctx, db.PaymentFilter{Page: db.Page{Limit: 2, Offset: offset}})
		require.NoError(t, err)
		require.Equal(t, 7, total)
		for _, r := range rows {
			assert.False(t, seen[r.ID], "payment %s listed twice", r.ID)
			seen[r.ID] = true
		}
	}
	assert.Equal(t, want, seen)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportCSV(ctx, &buf, db.PaymentFilter{}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 8, "header plus every payment once")
}

func TestExportCSV(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.bookingPayment(t, "15000")
	_, err := f.svc.ChangePaymentStatus(ctx, p.ID, models.PaymentSucceeded)
	require.NoError(t, err)
	h, err := f.svc.CreatePayment(ctx, PaymentInput{PayerID: f.renterID, HireID: &f.hireID, Amount: amount("1234567.5")})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportCSV(ctx, &buf, db.PaymentFilter{IDs: []string{p.ID, h.ID}}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID;Плательщик (email);Тип;Связанный объект;Сумма (₽);Статус;Создан;Оплачен", lines[0])
	assert.Contains(t, buf.String(),
		models.ShortID(p.ID)+";renter@example.com;Бронирование;Корпоратив отдела продаж в честь окончан...;15 000.00;оплачено;2025-08-15 09:30;2025-08-15 09:30")
	assert.Contains(t, buf.String(),
		models.ShortID(h.ID)+";renter@example.com;Найм;"+f.hireID+";1 234 567.50;ожидает оплаты;2025-08-15 09:30;—")
}
