package models

import (
	"math/rand"
	"testing"
	"time"

	"ms-venues/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func TestReservationHours(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"exact hours", at(10, 0), at(15, 0), 5},
		{"partial hour rounds up", at(10, 0), at(11, 30), 2},
		{"twenty minutes over still bills the hour", at(10, 0), at(12, 20), 3},
		{"short slot is one hour", at(10, 0), at(10, 10), 1},
		{"one minute over", at(10, 0), at(12, 1), 3},
		{"spans midnight", at(22, 0), at(26, 0), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ReservationHours(tt.start, tt.end)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := ReservationHours(time.Time{}, at(10, 0))
	assert.False(t, ok)
	_, ok = ReservationHours(at(10, 0), time.Time{})
	assert.False(t, ok)
}

func TestReservationHoursIsWholeAndAtLeastOne(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		start := base.Add(time.Duration(r.Int63n(int64(30 * 24 * time.Hour))))
		end := start.Add(time.Duration(r.Int63n(int64(72*time.Hour))) + time.Second)

		h, ok := ReservationHours(start, end)
		require.True(t, ok)
		assert.GreaterOrEqual(t, h, 1)
		assert.GreaterOrEqual(t, time.Duration(h)*time.Hour, end.Sub(start))
		assert.Less(t, time.Duration(h-1)*time.Hour, end.Sub(start))
	}
}

func TestBookingDurationNilWithoutEndpoints(t *testing.T) {
	b := &Booking{StartDatetime: at(10, 0)}
	assert.Nil(t, b.DurationHours())

	b.EndDatetime = at(15, 0)
	require.NotNil(t, b.DurationHours())
	assert.Equal(t, 5, *b.DurationHours())

	h := &Hire{StartDatetime: at(9, 0), EndDatetime: at(9, 45)}
	assert.Equal(t, 1, *h.DurationHours())
}

func TestOverlapsHalfOpen(t *testing.T) {
	assert.True(t, Overlaps(at(10, 0), at(15, 0), at(14, 0), at(18, 0)))
	assert.True(t, Overlaps(at(10, 0), at(15, 0), at(11, 0), at(12, 0)))
	assert.False(t, Overlaps(at(10, 0), at(15, 0), at(15, 0), at(18, 0)), "touching endpoints")
	assert.False(t, Overlaps(at(15, 0), at(18, 0), at(10, 0), at(15, 0)), "touching endpoints reversed")
	assert.False(t, Overlaps(at(10, 0), at(11, 0), at(12, 0), at(13, 0)))
}

func TestOverlapsMatchesMinuteGrid(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		s1 := r.Intn(600)
		e1 := s1 + 1 + r.Intn(180)
		s2 := r.Intn(600)
		e2 := s2 + 1 + r.Intn(180)

		shared := false
		for m := s1; m < e1; m++ {
			if m >= s2 && m < e2 {
				shared = true
				break
			}
		}

		got := Overlaps(at(0, s1), at(0, e1), at(0, s2), at(0, e2))
		assert.Equal(t, shared, got, "[%d,%d) vs [%d,%d)", s1, e1, s2, e2)
		assert.Equal(t, got, Overlaps(at(0, s2), at(0, e2), at(0, s1), at(0, e1)), "symmetry")
	}
}

func TestBookingCheck(t *testing.T) {
	b := &Booking{
		EventID:       "e",
		VenueID:       "v",
		RenterID:      "r",
		StartDatetime: at(15, 0),
		EndDatetime:   at(15, 0),
		Status:        ReservationPending,
	}
	err := b.Check()
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "end_datetime", apperr.FieldOf(err))

	b.EndDatetime = at(16, 0)
	assert.NoError(t, b.Check())

	b.Status = "archived"
	assert.Equal(t, "status", apperr.FieldOf(b.Check()))
}

func TestBlocksSchedule(t *testing.T) {
	assert.True(t, ReservationPending.BlocksSchedule())
	assert.True(t, ReservationConfirmed.BlocksSchedule())
	assert.True(t, ReservationCompleted.BlocksSchedule())
	assert.False(t, ReservationCancelled.BlocksSchedule())
}
