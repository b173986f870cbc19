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

type HireInput struct {
	EventID       string              `json:"event_id"`
	SpecialistID  string              `json:"specialist_id"`
	RenterID      string              `json:"renter_id"`
	StartDatetime time.Time           `json:"start_datetime"`
	EndDatetime   time.Time           `json:"end_datetime"`
	TotalPrice    decimal.NullDecimal `json:"total_price"`
	Status        string              `json:"status"`
}

// CreateHire reserves the specialist for [start,end), guarded the same way
// as venue bookings.
func (s *Service) CreateHire(ctx context.Context, in HireInput) (*models.HireView, error) {
	status, err := initialStatus(in.Status)
	if err != nil {
		return nil, err
	}
	now := s.Now().UTC()
	h := &models.Hire{
		ID:            uuid.NewString(),
		EventID:       in.EventID,
		SpecialistID:  in.SpecialistID,
		RenterID:      in.RenterID,
		StartDatetime: normalize(in.StartDatetime),
		EndDatetime:   normalize(in.EndDatetime),
		TotalPrice:    in.TotalPrice,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.Check(); err != nil {
		return nil, err
	}

	err = s.withLock(ctx, resourceSpecialist, h.SpecialistID, func() error {
		return s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
			if _, err := tx.GetEvent(ctx, h.EventID); err != nil {
				return err
			}
			if _, err := tx.GetSpecialist(ctx, h.SpecialistID); err != nil {
				return err
			}
			if _, err := tx.GetRenter(ctx, h.RenterID); err != nil {
				return err
			}
			clash, err := tx.FindHireOverlap(ctx, h.SpecialistID, h.StartDatetime, h.EndDatetime, "")
			if err != nil {
				return err
			}
			if clash != nil {
				return overlapError("specialist", clash.StartDatetime, clash.EndDatetime)
			}
			return tx.CreateHire(ctx, h)
		})
	})
	if err != nil {
		return nil, err
	}

	s.Log.LogReservation("HIRE", h.ID, "specialist "+h.SpecialistID+" reserved from "+h.StartDatetime.Format(time.RFC3339))
	v := models.NewHireView(h)
	s.publish(ctx, kafka.TopicHireCreated, h.ID, v)
	return &v, nil
}

func (s *Service) ChangeHireStatus(ctx context.Context, id string, to models.ReservationStatus) (*models.HireView, error) {
	var h *models.Hire
	var from models.ReservationStatus
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		var err error
		if h, err = tx.GetHire(ctx, id); err != nil {
			return err
		}
		from = h.Status
		if err := models.HireLifecycle.Check(from, to); err != nil {
			return err
		}
		h.Status = to
		h.UpdatedAt = s.Now().UTC()
		return tx.UpdateHire(ctx, h)
	})
	if err != nil {
		return nil, err
	}

	s.Log.LogReservation("HIRE", id, string(from)+" -> "+string(to))
	s.publish(ctx, kafka.TopicHireStatusChanged, id, StatusChange{ID: id, From: from, To: to})
	v := models.NewHireView(h)
	return &v, nil
}

func (s *Service) AllowedHireStatuses(ctx context.Context, id string) ([]models.ReservationStatus, error) {
	h, err := s.DB.GetHire(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.HireLifecycle.AllowedNext(h.Status), nil
}

func (s *Service) RescheduleHire(ctx context.Context, id string, start, end time.Time) (*models.HireView, error) {
	current, err := s.DB.GetHire(ctx, id)
	if err != nil {
		return nil, err
	}

	var h *models.Hire
	err = s.withLock(ctx, resourceSpecialist, current.SpecialistID, func() error {
		return s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
			var err error
			if h, err = tx.GetHire(ctx, id); err != nil {
				return err
			}
			if err := rejectTerminal(models.HireLifecycle, h.Status); err != nil {
				return err
			}
			h.StartDatetime, h.EndDatetime = normalize(start), normalize(end)
			if err := h.Check(); err != nil {
				return err
			}
			clash, err := tx.FindHireOverlap(ctx, h.SpecialistID, h.StartDatetime, h.EndDatetime, h.ID)
			if err != nil {
				return err
			}
			if clash != nil {
				return overlapError("specialist", clash.StartDatetime, clash.EndDatetime)
			}
			h.UpdatedAt = s.Now().UTC()
			return tx.UpdateHire(ctx, h)
		})
	})
	if err != nil {
		return nil, err
	}

	s.Log.LogReservation("RESCHEDULE", id, "hire moved to "+h.StartDatetime.Format(time.RFC3339))
	v := models.NewHireView(h)
	return &v, nil
}

func (s *Service) GetHire(ctx context.Context, id string) (*models.HireView, error) {
	h, err := s.DB.GetHire(ctx, id)
	if err != nil {
		return nil, err
	}
	v := models.NewHireView(h)
	return &v, nil
}

func (s *Service) ListHires(ctx context.Context, f db.ReservationFilter) ([]models.HireView, int, error) {
	if err := checkStatusFilter(models.HireLifecycle, f.Status); err != nil {
		return nil, 0, err
	}
	items, total, err := s.DB.ListHires(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	views := make([]models.HireView, len(items))
	for k := range items {
		views[k] = models.NewHireView(&items[k])
	}
	return views, total, nil
}

// DeleteHire fails with a ConstraintError while payments reference it.
func (s *Service) DeleteHire(ctx context.Context, id string) error {
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		if _, err := tx.GetHire(ctx, id); err != nil {
			return err
		}
		return tx.DeleteHires(ctx, id)
	})
	if err != nil {
		return err
	}
	s.Log.LogReservation("DELETE", id, "hire removed")
	return nil
}
