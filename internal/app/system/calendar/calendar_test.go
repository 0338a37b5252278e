package calendar

import (
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 9, 30, 0, 0, time.UTC)
}

func TestWindowFor_Boundary(t *testing.T) {
	c := New(nil, 0)
	tests := []struct {
		day  int
		want Window
	}{
		{1, Submission},
		{10, Submission},
		{14, Submission},
		{15, Viewing},
		{20, Viewing},
		{31, Viewing},
	}
	for _, tt := range tests {
		if got := c.WindowFor(day(tt.day)); got != tt.want {
			t.Errorf("WindowFor(day %d): got %v, want %v", tt.day, got, tt.want)
		}
	}
}

func TestWindowFor_LastInstantOfDay14(t *testing.T) {
	c := New(time.UTC, 14)
	last := time.Date(2026, time.March, 14, 23, 59, 59, 999999999, time.UTC)
	if got := c.WindowFor(last); got != Submission {
		t.Errorf("got %v, want submission", got)
	}
	if got := c.WindowFor(last.Add(time.Nanosecond)); got != Viewing {
		t.Errorf("got %v, want viewing", got)
	}
}

func TestWindowFor_UsesConfiguredZone(t *testing.T) {
	taipei := time.FixedZone("UTC+8", 8*60*60)
	c := New(taipei, 14)

	// 20:00 UTC on the 14th is already the 15th in UTC+8.
	ts := time.Date(2026, time.March, 14, 20, 0, 0, 0, time.UTC)
	if got := c.WindowFor(ts); got != Viewing {
		t.Errorf("got %v, want viewing", got)
	}
	if got := New(nil, 14).WindowFor(ts); got != Submission {
		t.Errorf("UTC calendar: got %v, want submission", got)
	}
}

func TestMonthKey(t *testing.T) {
	c := New(nil, 0)
	if got := c.MonthKey(day(3)); got != "2026-03" {
		t.Errorf("MonthKey: got %q", got)
	}

	taipei := New(time.FixedZone("UTC+8", 8*60*60), 0)
	ts := time.Date(2026, time.December, 31, 17, 0, 0, 0, time.UTC)
	if got := taipei.MonthKey(ts); got != "2027-01" {
		t.Errorf("MonthKey in UTC+8: got %q, want 2027-01", got)
	}
}

func TestVisibilityCutoff(t *testing.T) {
	c := New(nil, 0)
	midnight := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	midday := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"just after midnight", midnight.Add(time.Second), midnight},
		{"exactly midnight", midnight, midnight},
		{"one nanosecond before midday", midday.Add(-time.Nanosecond), midnight},
		{"exactly midday", midday, midday},
		{"evening", midday.Add(9 * time.Hour), midday},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.VisibilityCutoff(tt.now); !got.Equal(tt.want) {
				t.Errorf("VisibilityCutoff(%v): got %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestDayKeyAndNextMidnight(t *testing.T) {
	ts := time.Date(2026, time.March, 31, 23, 59, 0, 0, time.UTC)
	if got := DayKey(ts); got != "2026-03-31" {
		t.Errorf("DayKey: got %q", got)
	}
	want := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	if got := NextUTCMidnight(ts); !got.Equal(want) {
		t.Errorf("NextUTCMidnight: got %v, want %v", got, want)
	}

	// DayKey is always UTC regardless of the input zone.
	local := time.Date(2026, time.April, 1, 1, 0, 0, 0, time.FixedZone("UTC+8", 8*60*60))
	if got := DayKey(local); got != "2026-03-31" {
		t.Errorf("DayKey(UTC+8): got %q, want 2026-03-31", got)
	}
}
