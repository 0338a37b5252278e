// Package calendar derives every date-based rule from wall-clock time: the
// crush submission/viewing window, the month key of a crush slot, the letter
// visibility cutoff and the UTC day used for the letter quota.
//
// Nothing here is stored; each operation re-derives its window from "now".
package calendar

import (
	"fmt"
	"time"
)

// DefaultSubmissionLastDay is the last day of the month on which crush slots
// may be written.
const DefaultSubmissionLastDay = 14

// Window is the crush phase of a calendar day.
type Window int

const (
	Submission Window = iota + 1
	Viewing
)

func (w Window) String() string {
	switch w {
	case Submission:
		return "submission"
	case Viewing:
		return "viewing"
	}
	return fmt.Sprintf("Window(%d)", int(w))
}

// Calendar evaluates windows in a fixed time zone.
type Calendar struct {
	loc     *time.Location
	lastDay int
}

// New returns a Calendar for loc. A nil loc means UTC and a non-positive
// lastDay means DefaultSubmissionLastDay.
func New(loc *time.Location, submissionLastDay int) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if submissionLastDay <= 0 {
		submissionLastDay = DefaultSubmissionLastDay
	}
	return Calendar{loc: loc, lastDay: submissionLastDay}
}

// Location is the zone windows and month keys are computed in.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// SubmissionLastDay is the last day of the month crush slots may change.
func (c Calendar) SubmissionLastDay() int {
	if c.lastDay <= 0 {
		return DefaultSubmissionLastDay
	}
	return c.lastDay
}

// WindowFor is the single definition of the crush window boundary.
// Days 1 through the last submission day are Submission; the rest of the
// month is Viewing.
func (c Calendar) WindowFor(t time.Time) Window {
	if t.In(c.Location()).Day() <= c.SubmissionLastDay() {
		return Submission
	}
	return Viewing
}

// MonthKey formats the month containing t as YYYY-MM.
func (c Calendar) MonthKey(t time.Time) string {
	return t.In(c.Location()).Format("2006-01")
}

// VisibilityCutoff returns the delivery boundary for received letters.
// At or after local midday the cutoff is today's midday; before it, the
// cutoff is today's midnight. A letter is visible to its recipient only when
// its timestamp is strictly before the cutoff.
func (c Calendar) VisibilityCutoff(now time.Time) time.Time {
	local := now.In(c.Location())
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, c.Location())
	midday := time.Date(y, m, d, 12, 0, 0, 0, c.Location())
	if !local.Before(midday) {
		return midday
	}
	return midnight
}

// DayKey formats the UTC calendar day containing t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// NextUTCMidnight returns the start of the UTC day after t.
func NextUTCMidnight(t time.Time) time.Time {
	u := t.UTC()
	y, m, d := u.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}
