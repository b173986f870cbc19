package models

import (
	"math"
	"time"

	"ms-venues/internal/apperr"

	"github.com/uptrace/bun"
)

type EventTheme string

const (
	ThemeParty        EventTheme = "party"
	ThemeWedding      EventTheme = "wedding"
	ThemeCorporate    EventTheme = "corporate"
	ThemeConference   EventTheme = "conference"
	ThemeWorkshop     EventTheme = "workshop"
	ThemePhotoSession EventTheme = "photo_session"
	ThemeConcert      EventTheme = "concert"
	ThemePrivate      EventTheme = "private"
	ThemeOther        EventTheme = "other"
)

var themeLabels = map[EventTheme]string{
	ThemeParty:        "вечеринка / день рождения",
	ThemeWedding:      "свадьба",
	ThemeCorporate:    "корпоратив / тимбилдинг",
	ThemeConference:   "конференция / семинар",
	ThemeWorkshop:     "мастер-класс / тренинг",
	ThemePhotoSession: "фотосессия / съёмка",
	ThemeConcert:      "концерт / выступление",
	ThemePrivate:      "закрытое мероприятие",
	ThemeOther:        "другое",
}

func (t EventTheme) Label() string {
	if l, ok := themeLabels[t]; ok {
		return l
	}
	return string(t)
}

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPlanned   EventStatus = "planned"
	EventActive    EventStatus = "active"
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

var EventLifecycle = newLifecycle("event",
	state[EventStatus]{EventDraft, "черновик", []EventStatus{EventPlanned, EventCancelled}},
	state[EventStatus]{EventPlanned, "запланировано", []EventStatus{EventActive, EventCancelled}},
	state[EventStatus]{EventActive, "идёт подготовка", []EventStatus{EventOngoing, EventCancelled}},
	state[EventStatus]{EventOngoing, "проходит сейчас", []EventStatus{EventCompleted, EventCancelled}},
	state[EventStatus]{EventCompleted, "завершено", nil},
	state[EventStatus]{EventCancelled, "отменено", nil},
)

func (s EventStatus) Label() string { return EventLifecycle.Label(s) }

const DefaultExpectedGuests = 20

// Event is organised by a renter on a single day.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID               string      `bun:"id,pk" json:"id"`
	RenterID         string      `bun:"renter_id,notnull" json:"renter_id" validate:"required"`
	Title            string      `bun:"title,notnull" json:"title" validate:"required,max=200"`
	Date             time.Time   `bun:"date,type:date,notnull" json:"date" validate:"required"`
	StartTime        *TimeOfDay  `bun:"start_time,type:time" json:"start_time"`
	EndTime          *TimeOfDay  `bun:"end_time,type:time" json:"end_time"`
	Theme            EventTheme  `bun:"theme,notnull" json:"theme" validate:"required,oneof=party wedding corporate conference workshop photo_session concert private other"`
	ShortDescription string      `bun:"short_description,notnull" json:"short_description" validate:"max=300"`
	Description      string      `bun:"description,notnull" json:"description"`
	ExpectedGuests   int         `bun:"expected_guests,notnull" json:"expected_guests" validate:"gte=0,lte=32767"`
	Status           EventStatus `bun:"status,notnull" json:"status" validate:"required,oneof=draft planned active ongoing completed cancelled"`
	CreatedAt        time.Time   `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt        time.Time   `bun:"updated_at,notnull" json:"updated_at"`
}

func (e *Event) Check() error {
	if err := Validate(e); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return apperr.Validation("date", "is required")
	}
	if e.StartTime != nil && e.EndTime != nil && !e.StartTime.Before(*e.EndTime) {
		return apperr.Validation("end_time", "must be after start_time")
	}
	return nil
}

// Duration is the planned length in hours rounded to one decimal, or nil
// when either time is missing.
func (e *Event) Duration() *float64 {
	if e.StartTime == nil || e.EndTime == nil {
		return nil
	}
	hours := float64(e.EndTime.Seconds()-e.StartTime.Seconds()) / 3600
	d := math.Round(hours*10) / 10
	return &d
}

// IsUpcoming reports whether the event start (midnight when no start time)
// is strictly after now. The day is read in now's location.
func (e *Event) IsUpcoming(now time.Time) bool {
	if e.Date.IsZero() {
		return false
	}
	start := TimeOfDay{}
	if e.StartTime != nil {
		start = *e.StartTime
	}
	return start.On(e.Date, now.Location()).After(now)
}

// IsToday reports whether the event falls on now's calendar day.
func (e *Event) IsToday(now time.Time) bool {
	if e.Date.IsZero() {
		return false
	}
	y1, m1, d1 := e.Date.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// DateOnly truncates t to a UTC calendar day as stored in the date column.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EventView adds the clock-dependent fields for read responses.
type EventView struct {
	*Event
	DurationHours *float64 `json:"duration"`
	IsUpcoming    bool     `json:"is_upcoming"`
	IsToday       bool     `json:"is_today"`
	ThemeLabel    string   `json:"theme_label"`
	StatusLabel   string   `json:"status_label"`
}

func NewEventView(e *Event, now time.Time) EventView {
	return EventView{
		Event:         e,
		DurationHours: e.Duration(),
		IsUpcoming:    e.IsUpcoming(now),
		IsToday:       e.IsToday(now),
		ThemeLabel:    e.Theme.Label(),
		StatusLabel:   e.Status.Label(),
	}
}
