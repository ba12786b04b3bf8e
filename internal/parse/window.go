package parse

import (
	"time"

	"signage-backend/internal/model"
)

// Window is a parsed recurring daily window.
type Window struct {
	Start int // seconds since local midnight
	End   int
	Days  DaySet
}

// ParseWindow reads the time and weekday fields of a schedule entry.
func ParseWindow(e *model.ScheduleEntry) (Window, error) {
	start, err := TimeOfDay(e.StartTime)
	if err != nil {
		return Window{}, err
	}
	end, err := TimeOfDay(e.EndTime)
	if err != nil {
		return Window{}, err
	}
	days, err := DaysOfWeek(e.DaysOfWeek)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: end, Days: days}, nil
}

// Contains reports whether local falls in [Start, End) on one of the days.
// A window with End <= Start runs overnight: its tail belongs to the day it
// started on. Start == End covers the whole day.
func (w Window) Contains(local time.Time) bool {
	t := SecondsIntoDay(local)
	wd := local.Weekday()
	switch {
	case w.Start < w.End:
		return w.Days.Has(wd) && t >= w.Start && t < w.End
	case w.Start == w.End:
		return w.Days.Has(wd)
	default:
		prev := (wd + 6) % 7
		return (w.Days.Has(wd) && t >= w.Start) || (w.Days.Has(prev) && t < w.End)
	}
}

// segments splits a window into same-day spans, as (day set, start, end)
// triples, so overnight windows can be compared without wraparound.
func (w Window) segments() []segment {
	switch {
	case w.Start < w.End:
		return []segment{{w.Days, w.Start, w.End}}
	case w.Start == w.End:
		return []segment{{w.Days, 0, SecondsPerDay}}
	default:
		segs := []segment{{w.Days, w.Start, SecondsPerDay}}
		if w.End > 0 {
			segs = append(segs, segment{w.Days.Shift(), 0, w.End})
		}
		return segs
	}
}

type segment struct {
	days       DaySet
	start, end int
}

// Overlaps reports whether two windows share any weekday moment.
func (w Window) Overlaps(o Window) bool {
	for _, a := range w.segments() {
		for _, b := range o.segments() {
			if a.days.Overlaps(b.days) && a.start < b.end && b.start < a.end {
				return true
			}
		}
	}
	return false
}

// dateOnly keeps the calendar date of t in its own location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// InDateRange reports whether the local calendar date lies within the
// entry's optional [StartDate, EndDate] bounds, both inclusive.
func InDateRange(start, end *time.Time, local time.Time) bool {
	day := dateOnly(local)
	if start != nil && day.Before(dateOnly(start.UTC())) {
		return false
	}
	if end != nil && day.After(dateOnly(end.UTC())) {
		return false
	}
	return true
}

// DateRangesOverlap reports whether two optional inclusive date ranges intersect.
func DateRangesOverlap(aStart, aEnd, bStart, bEnd *time.Time) bool {
	if aStart != nil && bEnd != nil && dateOnly(bEnd.UTC()).Before(dateOnly(aStart.UTC())) {
		return false
	}
	if bStart != nil && aEnd != nil && dateOnly(aEnd.UTC()).Before(dateOnly(bStart.UTC())) {
		return false
	}
	return true
}

// EntriesConflict reports whether two entries overlap in
// time-window x days-of-week x date-range.
func EntriesConflict(a, b *model.ScheduleEntry) (bool, error) {
	wa, err := ParseWindow(a)
	if err != nil {
		return false, err
	}
	wb, err := ParseWindow(b)
	if err != nil {
		return false, err
	}
	if !DateRangesOverlap(a.StartDate, a.EndDate, b.StartDate, b.EndDate) {
		return false, nil
	}
	return wa.Overlaps(wb), nil
}
