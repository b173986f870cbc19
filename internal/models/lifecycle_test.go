package models

import (
	"testing"

	"ms-venues/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationTransitions(t *testing.T) {
	assert.ElementsMatch(t,
		[]ReservationStatus{ReservationConfirmed, ReservationCancelled},
		BookingLifecycle.AllowedNext(ReservationPending))
	assert.ElementsMatch(t,
		[]ReservationStatus{ReservationCompleted, ReservationCancelled},
		BookingLifecycle.AllowedNext(ReservationConfirmed))
	assert.Empty(t, BookingLifecycle.AllowedNext(ReservationCompleted))
	assert.Empty(t, BookingLifecycle.AllowedNext(ReservationCancelled))

	assert.True(t, BookingLifecycle.IsTerminal(ReservationCancelled))
	assert.False(t, BookingLifecycle.IsTerminal(ReservationPending))
}

func TestEveryStatusChangeMatchesTable(t *testing.T) {
	for _, from := range PaymentLifecycle.Statuses() {
		for _, to := range PaymentLifecycle.Statuses() {
			err := PaymentLifecycle.Check(from, to)
			if PaymentLifecycle.CanTransition(from, to) {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				require.Error(t, err, "%s -> %s", from, to)
				assert.True(t, apperr.IsValidation(err))
				assert.Equal(t, "status", apperr.FieldOf(err))
			}
		}
	}
}

func TestPaymentTransitions(t *testing.T) {
	assert.True(t, PaymentLifecycle.CanTransition(PaymentSucceeded, PaymentRefunded))
	assert.False(t, PaymentLifecycle.CanTransition(PaymentPending, PaymentRefunded))
	assert.False(t, PaymentLifecycle.CanTransition(PaymentFailed, PaymentSucceeded))
	assert.False(t, PaymentLifecycle.CanTransition(PaymentPending, PaymentPending))
}

func TestUnknownStatusRejected(t *testing.T) {
	err := EventLifecycle.Check(EventDraft, "published")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event status")
}

func TestCheckInitial(t *testing.T) {
	assert.NoError(t, PaymentLifecycle.CheckInitial(PaymentPending, PaymentPending, PaymentSucceeded))
	assert.Error(t, PaymentLifecycle.CheckInitial(PaymentRefunded, PaymentPending, PaymentSucceeded))
	assert.Error(t, PaymentLifecycle.CheckInitial("bogus", PaymentPending))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "оплачено", PaymentSucceeded.Label())
	assert.Equal(t, "возвращён", PaymentRefunded.Label())
	assert.Equal(t, "завершено", BookingLifecycle.Label(ReservationCompleted))
	assert.Equal(t, "выполнено", HireLifecycle.Label(ReservationCompleted))
	assert.Equal(t, "на модерации", VenueModeration.Label())
	assert.Equal(t, "проходит сейчас", EventOngoing.Label())
	assert.Equal(t, "mystery", PaymentStatus("mystery").Label())
}

func TestVenueLifecycle(t *testing.T) {
	assert.True(t, VenueLifecycle.CanTransition(VenueDraft, VenueModeration))
	assert.True(t, VenueLifecycle.CanTransition(VenueModeration, VenuePublished))
	assert.False(t, VenueLifecycle.CanTransition(VenueDraft, VenuePublished))
	assert.True(t, VenueLifecycle.CanTransition(VenueArchived, VenueDraft))
}
