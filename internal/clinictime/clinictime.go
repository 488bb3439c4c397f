// Package clinictime converts between the clinic's local civil time and the
// UTC instants everything is stored and compared in. All business-hour,
// weekday and daily-bucket reasoning happens on the local projection.
package clinictime

import (
	"fmt"
	"time"
)

// DefaultZone is the clinic's home timezone.
const DefaultZone = "Asia/Kolkata"

const dateLayout = "2006-01-02"
const clockLayout = "15:04"

// Clinic holds the clinic's fixed timezone. It is not adjustable per request.
type Clinic struct {
	loc *time.Location
}

func New(zone string) (*Clinic, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load clinic timezone %q: %w", zone, err)
	}
	return &Clinic{loc: loc}, nil
}

// MustNew is for tests and package defaults where the zone name is a constant.
func MustNew(zone string) *Clinic {
	c, err := New(zone)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Clinic) Location() *time.Location {
	return c.loc
}

// ToLocal projects a UTC instant into clinic time.
func (c *Clinic) ToLocal(t time.Time) time.Time {
	return t.In(c.loc)
}

// ParseDate parses YYYY-MM-DD into local midnight of that calendar day.
func (c *Clinic) ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// ParseClock parses HH:MM into an hour and minute of day.
func (c *Clinic) ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// At returns the UTC instant of hour:minute on the given local day.
// day may be any instant; its local calendar date is used.
func (c *Clinic) At(day time.Time, hour, minute int) time.Time {
	local := day.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, c.loc).UTC()
}

// DayWindow returns the half-open UTC window [start, end) covering the local
// calendar day that contains t.
func (c *Clinic) DayWindow(t time.Time) (start, end time.Time) {
	local := t.In(c.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	return midnight.UTC(), midnight.AddDate(0, 0, 1).UTC()
}

// IsWeekend reports whether the local projection of t falls on Saturday or
// Sunday.
func (c *Clinic) IsWeekend(t time.Time) bool {
	wd := t.In(c.loc).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// SameLocalDay reports whether two instants fall on the same local calendar
// day.
func (c *Clinic) SameLocalDay(a, b time.Time) bool {
	al, bl := a.In(c.loc), b.In(c.loc)
	return al.Year() == bl.Year() && al.YearDay() == bl.YearDay()
}

// FormatDate renders the local calendar date of t as YYYY-MM-DD.
func (c *Clinic) FormatDate(t time.Time) string {
	return t.In(c.loc).Format(dateLayout)
}

// SlotLabel renders the local clock time of t the way booking forms show it,
// e.g. "09:00 AM".
func (c *Clinic) SlotLabel(t time.Time) string {
	return t.In(c.loc).Format("03:04 PM")
}
