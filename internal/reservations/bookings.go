package reservations

import (
	"context"
	"time"

	"ms-venues/internal/db"
	"ms-venues/internal/kafka"
	"ms-venues/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingInput struct {
	EventID       string              `json:"event_id"`
	VenueID       string              `json:"venue_id"`
	RenterID      string              `json:"renter_id"`
	StartDatetime time.Time           `json:"start_datetime"`
	EndDatetime   time.Time           `json:"end_datetime"`
	TotalPrice    decimal.NullDecimal `json:"total_price"`
	Status        string              `json:"status"`
}

// CreateBooking reserves the venue for [start,end). Any non-cancelled
// booking on the same venue intersecting that interval rejects the request.
func (s *Service) CreateBooking(ctx context.Context, in BookingInput) (*models.BookingView, error) {
	status, err := initialStatus(in.Status)
	if err != nil {
		return nil, err
	}
	now := s.Now().UTC()
	b := &models.Booking{
		ID:            uuid.NewString(),
		EventID:       in.EventID,
		VenueID:       in.VenueID,
		RenterID:      in.RenterID,
		StartDatetime: normalize(in.StartDatetime),
		EndDatetime:   normalize(in.EndDatetime),
		TotalPrice:    in.TotalPrice,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := b.Check(); err != nil {
		return nil, err
	}

	err = s.withLock(ctx, resourceVenue, b.VenueID, func() error {
		return s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
			if _, err := tx.GetEvent(ctx, b.EventID); err != nil {
				return err
			}
			if _, err := tx.GetVenue(ctx, b.VenueID); err != nil {
				return err
			}
			if _, err := tx.GetRenter(ctx, b.RenterID); err != nil {
				return err
			}
			clash, err := tx.FindBookingOverlap(ctx, b.VenueID, b.StartDatetime, b.EndDatetime, "")
			if err != nil {
				return err
			}
			if clash != nil {
				return overlapError("venue", clash.StartDatetime, clash.EndDatetime)
			}
			return tx.CreateBooking(ctx, b)
		})
	})
	if err != nil {
		return nil, err
	}

	s.Log.LogReservation("BOOKING", b.ID, "venue "+b.VenueID+" reserved from "+b.StartDatetime.Format(time.RFC3339))
	v := models.NewBookingView(b)
	s.publish(ctx, kafka.TopicBookingCreated, b.ID, v)
	return &v, nil
}

func (s *Service) ChangeBookingStatus(ctx context.Context, id string, to models.ReservationStatus) (*models.BookingView, error) {
	var b *models.Booking
	var from models.ReservationStatus
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		var err error
		if b, err = tx.GetBooking(ctx, id); err != nil {
			return err
		}
		from = b.Status
		if err := models.BookingLifecycle.Check(from, to); err != nil {
			return err
		}
		b.Status = to
		b.UpdatedAt = s.Now().UTC()
		return tx.UpdateBooking(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.Log.LogReservation("BOOKING", id, string(from)+" -> "+string(to))
	s.publish(ctx, kafka.TopicBookingStatusChanged, id, StatusChange{ID: id, From: from, To: to})
	v := models.NewBookingView(b)
	return &v, nil
}

func (s *Service) AllowedBookingStatuses(ctx context.Context, id string) ([]models.ReservationStatus, error) {
	b, err := s.DB.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.BookingLifecycle.AllowedNext(b.Status), nil
}

// RescheduleBooking moves a live booking to a new interval on the same venue.
func (s *Service) RescheduleBooking(ctx context.Context, id string, start, end time.Time) (*models.BookingView, error) {
	current, err := s.DB.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	var b *models.Booking
	err = s.withLock(ctx, resourceVenue, current.VenueID, func() error {
		return s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
			var err error
			if b, err = tx.GetBooking(ctx, id); err != nil {
				return err
			}
			if err := rejectTerminal(models.BookingLifecycle, b.Status); err != nil {
				return err
			}
			b.StartDatetime, b.EndDatetime = normalize(start), normalize(end)
			if err := b.Check(); err != nil {
				return err
			}
			clash, err := tx.FindBookingOverlap(ctx, b.VenueID, b.StartDatetime, b.EndDatetime, b.ID)
			if err != nil {
				return err
			}
			if clash != nil {
				return overlapError("venue", clash.StartDatetime, clash.EndDatetime)
			}
			b.UpdatedAt = s.Now().UTC()
			return tx.UpdateBooking(ctx, b)
		})
	})
	if err != nil {
		return nil, err
	}

	s.Log.LogReservation("RESCHEDULE", id, "booking moved to "+b.StartDatetime.Format(time.RFC3339))
	v := models.NewBookingView(b)
	return &v, nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (*models.BookingView, error) {
	b, err := s.DB.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	v := models.NewBookingView(b)
	return &v, nil
}

func (s *Service) ListBookings(ctx context.Context, f db.ReservationFilter) ([]models.BookingView, int, error) {
	if err := checkStatusFilter(models.BookingLifecycle, f.Status); err != nil {
		return nil, 0, err
	}
	items, total, err := s.DB.ListBookings(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	views := make([]models.BookingView, len(items))
	for k := range items {
		views[k] = models.NewBookingView(&items[k])
	}
	return views, total, nil
}

// DeleteBooking fails with a ConstraintError while payments reference it.
func (s *Service) DeleteBooking(ctx context.Context, id string) error {
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		if _, err := tx.GetBooking(ctx, id); err != nil {
			return err
		}
		return tx.DeleteBookings(ctx, id)
	})
	if err != nil {
		return err
	}
	s.Log.LogReservation("DELETE", id, "booking removed")
	return nil
}
