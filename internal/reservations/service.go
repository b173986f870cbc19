// Package reservations books venues and hires specialists for events.
//
// Every write that can change who occupies a resource runs under a
// per-resource Redis lock around one database transaction, so the overlap
// check and the insert or reschedule are atomic for that resource.
package reservations

import (
	"context"
	"fmt"
	"time"

	"ms-venues/internal/apperr"
	"ms-venues/internal/db"
	"ms-venues/internal/lock"
	"ms-venues/internal/logger"
	"ms-venues/internal/models"
)

const (
	resourceVenue      = "venue"
	resourceSpecialist = "specialist"
)

// ResourceLocker is satisfied by *lock.Redis.
type ResourceLocker interface {
	Acquire(ctx context.Context, key string) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// Publisher is satisfied by *kafka.Producer and kafka.Disabled.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, data any) error
}

type Service struct {
	DB     *db.DB
	Locker ResourceLocker
	Events Publisher
	Log    *logger.Logger
	Now    func() time.Time
}

func NewService(store *db.DB, locker ResourceLocker, events Publisher, log *logger.Logger) *Service {
	return &Service{DB: store, Locker: locker, Events: events, Log: log, Now: time.Now}
}

// withLock runs fn while holding the resource lock. A lock held by someone
// else is a ConcurrencyConflict; the caller may retry.
func (s *Service) withLock(ctx context.Context, kind, id string, fn func() error) error {
	if s.Locker == nil {
		return fn()
	}
	key := lock.Key(kind, id)
	token, ok, err := s.Locker.Acquire(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		s.Log.LogReservation("LOCK", id, fmt.Sprintf("%s is being reserved concurrently", kind))
		return apperr.Conflict("%s %s is being reserved by another request, retry", kind, id)
	}
	defer func() {
		if err := s.Locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.Log.Warn("RESERVE", fmt.Sprintf("Failed to release %s: %v", key, err))
		}
	}()
	return fn()
}

func (s *Service) publish(ctx context.Context, topic, key string, data any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, topic, key, data); err != nil {
		s.Log.Error("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", topic, key, err))
	}
}

// StatusChange is the payload of *.status_changed events.
type StatusChange struct {
	ID   string                   `json:"id"`
	From models.ReservationStatus `json:"from"`
	To   models.ReservationStatus `json:"to"`
}

// normalize stores instants in UTC at second precision.
func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func initialStatus(raw string) (models.ReservationStatus, error) {
	if raw == "" {
		return models.ReservationPending, nil
	}
	s := models.ReservationStatus(raw)
	if err := models.BookingLifecycle.CheckInitial(s, models.ReservationPending, models.ReservationConfirmed); err != nil {
		return "", err
	}
	return s, nil
}

func overlapError(kind string, start, end time.Time) error {
	return apperr.Validation("start_datetime", "%s is already reserved from %s to %s",
		kind, start.Format(time.RFC3339), end.Format(time.RFC3339))
}

func rejectTerminal(l models.Lifecycle[models.ReservationStatus], status models.ReservationStatus) error {
	if l.IsTerminal(status) {
		return apperr.Validation("status", "cannot reschedule a reservation in status %q", status)
	}
	return nil
}

func checkStatusFilter(l models.Lifecycle[models.ReservationStatus], status string) error {
	if status != "" && !l.Known(models.ReservationStatus(status)) {
		return apperr.Validation("status", "unknown reservation status %q", status)
	}
	return nil
}
