package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time without a date, stored as SQL TIME.
type TimeOfDay struct {
	sec int
}

func NewTimeOfDay(hour, minute, second int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %02d:%02d:%02d", hour, minute, second)
	}
	return TimeOfDay{sec: hour*3600 + minute*60 + second}, nil
}

// MustTimeOfDay panics on invalid input. Intended for literals.
func MustTimeOfDay(hour, minute int) TimeOfDay {
	t, err := NewTimeOfDay(hour, minute, 0)
	if err != nil {
		panic(err)
	}
	return t
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimeOfDay(t.Hour(), t.Minute(), t.Second())
		}
	}
	return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
}

func (t TimeOfDay) Hour() int               { return t.sec / 3600 }
func (t TimeOfDay) Minute() int             { return t.sec % 3600 / 60 }
func (t TimeOfDay) Second() int             { return t.sec % 60 }
func (t TimeOfDay) Seconds() int            { return t.sec }
func (t TimeOfDay) Before(o TimeOfDay) bool { return t.sec < o.sec }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// On places the time on the given day in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, loc)
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

func (t *TimeOfDay) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t = TimeOfDay{sec: v.Hour()*3600 + v.Minute()*60 + v.Second()}
		return nil
	case string:
		return t.parseInto(v)
	case []byte:
		return t.parseInto(string(v))
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

func (t *TimeOfDay) parseInto(s string) error {
	// PostgreSQL may append fractional seconds.
	if len(s) > 8 {
		s = s[:8]
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON writes HH:MM:SS so stored seconds survive a round trip.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
