package service

import (
	"time"

	"github.com/shelfmark/library-api/internal/core/domain"
)

// Calendar turns instants into library days. Every due date, overdue check
// and fine uses the same conversion: the instant's calendar day in Location.
type Calendar struct {
	Now      func() time.Time
	Location *time.Location
}

// NewCalendar returns a wall-clock calendar for loc (UTC when nil).
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{Now: time.Now, Location: loc}
}

// FixedCalendar always reports day; used by tests and tooling.
func FixedCalendar(day domain.Date) Calendar {
	t := day.Time().Add(12 * time.Hour)
	return Calendar{Now: func() time.Time { return t }, Location: time.UTC}
}

// Instant returns the current time, falling back to the wall clock.
func (c Calendar) Instant() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c Calendar) Today() domain.Date {
	return domain.DateOf(c.Instant(), c.Location)
}
