// Package window computes the time ranges reports are built over.
//
// A Window is half-open: Start is included, End is not. The zero Window
// covers all time.
package window

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the layout accepted for explicit window bounds.
const DateLayout = "2006-01-02"

// ErrInvalidWindow is returned for malformed or inverted bounds.
var ErrInvalidWindow = errors.New("invalid window")

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// All returns the window that matches every timestamp.
func All() Window { return Window{} }

// IsAll reports whether the window is unbounded.
func (w Window) IsAll() bool { return w.Start.IsZero() && w.End.IsZero() }

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if w.IsAll() {
		return true
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// Duration is End - Start, or zero for an unbounded window.
func (w Window) Duration() time.Duration {
	if w.IsAll() {
		return 0
	}
	return w.End.Sub(w.Start)
}

// Days is the number of calendar days covered.
func (w Window) Days() int {
	if w.IsAll() {
		return 0
	}
	return int(w.Duration().Round(time.Hour).Hours() / 24)
}

// Prior returns the window of equal length that ends where w starts. An
// unbounded window has no prior and returns itself.
func (w Window) Prior() Window {
	if w.IsAll() {
		return w
	}
	return Window{Start: w.Start.Add(-w.Duration()), End: w.Start}
}

// IsWeek reports whether w opens at midnight on weekStart in loc and spans
// at most seven days, as the windows from Week do.
func (w Window) IsWeek(weekStart time.Weekday, loc *time.Location) bool {
	if w.IsAll() {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	start := w.Start.In(loc)
	return start.Weekday() == weekStart && start.Equal(midnight(start, loc)) && w.Days() <= 7
}

// PriorWeek is the window a report over w is compared with. A week, even
// one still in progress, compares with the whole week before it. Any other
// window compares with Prior.
func (w Window) PriorWeek(weekStart time.Weekday, loc *time.Location) Window {
	if !w.IsWeek(weekStart, loc) {
		return w.Prior()
	}
	return Window{Start: w.Start.AddDate(0, 0, -7), End: w.Start}
}

// String renders the window as inclusive dates.
func (w Window) String() string {
	if w.IsAll() {
		return "all time"
	}
	return fmt.Sprintf("%s to %s", w.Start.Format(DateLayout), w.End.AddDate(0, 0, -1).Format(DateLayout))
}

// midnight truncates t to the start of its day in loc.
func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// LastDays covers today and the days-1 calendar days before it.
func LastDays(now time.Time, days int, loc *time.Location) Window {
	if days < 1 {
		days = 1
	}
	end := midnight(now, loc).AddDate(0, 0, 1)
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// Week returns the week starting on the most recent start weekday up to and
// including today. When today is the start weekday the window reaches back to
// the previous one. weeksBack > 0 selects a full seven day week that many
// weeks before the current one.
func Week(now time.Time, start time.Weekday, weeksBack int, loc *time.Location) Window {
	today := midnight(now, loc)
	since := (int(today.Weekday()) - int(start) + 7) % 7
	if since == 0 {
		since = 7
	}
	begin := today.AddDate(0, 0, -since)
	if weeksBack > 0 {
		begin = begin.AddDate(0, 0, -7*weeksBack)
		return Window{Start: begin, End: begin.AddDate(0, 0, 7)}
	}
	return Window{Start: begin, End: today.AddDate(0, 0, 1)}
}

// Range parses inclusive YYYY-MM-DD bounds. An empty bound defaults to the
// other side of today.
func Range(startDate, endDate string, now time.Time, loc *time.Location) (Window, error) {
	today := midnight(now, loc)
	start, end := today, today
	var err error
	if startDate != "" {
		if start, err = time.ParseInLocation(DateLayout, startDate, loc); err != nil {
			return Window{}, fmt.Errorf("%w: start %q: %w", ErrInvalidWindow, startDate, err)
		}
	}
	if endDate != "" {
		if end, err = time.ParseInLocation(DateLayout, endDate, loc); err != nil {
			return Window{}, fmt.Errorf("%w: end %q: %w", ErrInvalidWindow, endDate, err)
		}
	}
	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidWindow, endDate, startDate)
	}
	return Window{Start: start, End: end.AddDate(0, 0, 1)}, nil
}

// Query is a window as callers ask for one. Precedence: All, then explicit
// dates, then Days, then the week selected by WeeksBack.
type Query struct {
	Start     string `json:"start,omitempty"` // YYYY-MM-DD, inclusive
	End       string `json:"end,omitempty"`   // YYYY-MM-DD, inclusive
	Days      int    `json:"days,omitempty"`
	WeeksBack int    `json:"weeks_back,omitempty"`
	All       bool   `json:"all,omitempty"`
}

// IsZero reports whether no bound was asked for.
func (q Query) IsZero() bool { return q == Query{} }

// Resolve turns q into a Window relative to now. Weeks start on weekStart.
func (q Query) Resolve(now time.Time, weekStart time.Weekday, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch {
	case q.All:
		return All(), nil
	case q.Start != "" || q.End != "":
		return Range(q.Start, q.End, now, loc)
	case q.Days < 0 || q.WeeksBack < 0:
		return Window{}, fmt.Errorf("%w: negative offset", ErrInvalidWindow)
	case q.Days > 0:
		return LastDays(now, q.Days, loc), nil
	default:
		return Week(now, weekStart, q.WeeksBack, loc), nil
	}
}
