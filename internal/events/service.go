// Package events plans renters' events and derives their clock-dependent
// read fields.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-venues/internal/apperr"
	"ms-venues/internal/db"
	"ms-venues/internal/logger"
	"ms-venues/internal/models"

	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

type Service struct {
	DB  *db.DB
	Log *logger.Logger
	Now func() time.Time
	// Loc is the calendar used for is_today and is_upcoming.
	Loc *time.Location
}

func NewService(store *db.DB, log *logger.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{DB: store, Log: log, Now: time.Now, Loc: loc}
}

func (s *Service) now() time.Time { return s.Now().In(s.Loc) }

// OptionalTime is a patchable time of day. An absent field leaves Set false;
// an explicit null sets it with a nil Value, which clears the stored time.
type OptionalTime struct {
	Set   bool
	Value *models.TimeOfDay
}

func SetTime(t models.TimeOfDay) OptionalTime { return OptionalTime{Set: true, Value: &t} }

func ClearTime() OptionalTime { return OptionalTime{Set: true} }

func (o *OptionalTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var t models.TimeOfDay
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	o.Value = &t
	return nil
}

// EventInput carries writable event fields. Nil pointers take defaults on
// create and keep the stored value on update.
type EventInput struct {
	RenterID         *string      `json:"renter_id"`
	Title            *string      `json:"title"`
	Date             *string      `json:"date"`
	StartTime        OptionalTime `json:"start_time"`
	EndTime          OptionalTime `json:"end_time"`
	Theme            *string      `json:"theme"`
	ShortDescription *string      `json:"short_description"`
	Description      *string      `json:"description"`
	ExpectedGuests   *int         `json:"expected_guests"`
}

func (in EventInput) apply(e *models.Event) error {
	if in.RenterID != nil {
		e.RenterID = *in.RenterID
	}
	if in.Title != nil {
		e.Title = *in.Title
	}
	if in.Date != nil {
		d, err := time.Parse(DateLayout, *in.Date)
		if err != nil {
			return apperr.Validation("date", "must be a date in YYYY-MM-DD format")
		}
		e.Date = d
	}
	if in.StartTime.Set {
		e.StartTime = in.StartTime.Value
	}
	if in.EndTime.Set {
		e.EndTime = in.EndTime.Value
	}
	if in.Theme != nil {
		e.Theme = models.EventTheme(*in.Theme)
	}
	if in.ShortDescription != nil {
		e.ShortDescription = *in.ShortDescription
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.ExpectedGuests != nil {
		e.ExpectedGuests = *in.ExpectedGuests
	}
	return nil
}

func (s *Service) CreateEvent(ctx context.Context, in EventInput) (*models.EventView, error) {
	now := s.Now().UTC()
	e := &models.Event{
		ID:             uuid.NewString(),
		Theme:          models.ThemeOther,
		ExpectedGuests: models.DefaultExpectedGuests,
		Status:         models.EventDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := in.apply(e); err != nil {
		return nil, err
	}
	if err := e.Check(); err != nil {
		return nil, err
	}

	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		if _, err := tx.GetRenter(ctx, e.RenterID); err != nil {
			return err
		}
		return tx.CreateEvent(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.Log.Info("EVENTS", fmt.Sprintf("Created event %s for renter %s on %s", e.ID, e.RenterID, e.Date.Format(DateLayout)))
	v := models.NewEventView(e, s.now())
	return &v, nil
}

// UpdateEvent patches an event. Status moves only through ChangeEventStatus.
func (s *Service) UpdateEvent(ctx context.Context, id string, in EventInput) (*models.EventView, error) {
	var out *models.Event
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		e, err := tx.GetEvent(ctx, id)
		if err != nil {
			return err
		}
		prevRenter := e.RenterID
		if err := in.apply(e); err != nil {
			return err
		}
		if err := e.Check(); err != nil {
			return err
		}
		if e.RenterID != prevRenter {
			if _, err := tx.GetRenter(ctx, e.RenterID); err != nil {
				return err
			}
		}
		e.UpdatedAt = s.Now().UTC()
		out = e
		return tx.UpdateEvent(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	v := models.NewEventView(out, s.now())
	return &v, nil
}

func (s *Service) ChangeEventStatus(ctx context.Context, id string, to models.EventStatus) (*models.EventView, error) {
	var out *models.Event
	var from models.EventStatus
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		e, err := tx.GetEvent(ctx, id)
		if err != nil {
			return err
		}
		from = e.Status
		if err := models.EventLifecycle.Check(from, to); err != nil {
			return err
		}
		e.Status = to
		e.UpdatedAt = s.Now().UTC()
		out = e
		return tx.UpdateEvent(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("EVENTS", fmt.Sprintf("Event %s moved %s -> %s", id, from, to))
	v := models.NewEventView(out, s.now())
	return &v, nil
}

func (s *Service) AllowedEventStatuses(ctx context.Context, id string) ([]models.EventStatus, error) {
	e, err := s.DB.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.EventLifecycle.AllowedNext(e.Status), nil
}

func (s *Service) GetEvent(ctx context.Context, id string) (*models.EventView, error) {
	e, err := s.DB.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	v := models.NewEventView(e, s.now())
	return &v, nil
}

func (s *Service) ListEvents(ctx context.Context, f db.EventFilter) ([]models.EventView, int, error) {
	if f.Status != "" && !models.EventLifecycle.Known(models.EventStatus(f.Status)) {
		return nil, 0, apperr.Validation("status", "unknown event status %q", f.Status)
	}
	items, total, err := s.DB.ListEvents(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	views := make([]models.EventView, len(items))
	for k := range items {
		views[k] = models.NewEventView(&items[k], now)
	}
	return views, total, nil
}

// DeleteEvent removes the event with its bookings and hires. Reservations
// that carry payments block the delete.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *db.DB) error {
		if _, err := tx.GetEvent(ctx, id); err != nil {
			return err
		}
		return tx.DeleteEvents(ctx, id)
	})
	if err != nil {
		return err
	}
	s.Log.Info("EVENTS", fmt.Sprintf("Deleted event %s", id))
	return nil
}
