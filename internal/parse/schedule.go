package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	timeOfDayRe = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})(?::(\d{2}))?\s*$`)
	dayListRe   = regexp.MustCompile(`[,\s]+`)
)

// SecondsPerDay is the length of a schedule day.
const SecondsPerDay = 24 * 60 * 60

// TimeOfDay parses "HH:MM" or "HH:MM:SS" into seconds since local midnight.
// "24:00" is accepted as end-of-day.
func TimeOfDay(raw string) (int, error) {
	m := timeOfDayRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, fmt.Errorf("invalid time of day: %q", raw)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec := 0
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}
	if min > 59 || sec > 59 {
		return 0, fmt.Errorf("invalid time of day: %q", raw)
	}
	total := h*3600 + min*60 + sec
	if total > SecondsPerDay {
		return 0, fmt.Errorf("invalid time of day: %q", raw)
	}
	return total, nil
}

// SecondsIntoDay returns how far t is past its own midnight.
func SecondsIntoDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// DaySet is a set of weekdays.
type DaySet uint8

// Has reports whether d is in the set.
func (s DaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// Overlaps reports whether the two sets share a weekday.
func (s DaySet) Overlaps(o DaySet) bool {
	return s&o != 0
}

// Shift returns the set moved one day forward (Saturday wraps to Sunday).
func (s DaySet) Shift() DaySet {
	return ((s << 1) | (s >> 6)) & 0x7f
}

// Days returns the members in weekday order.
func (s DaySet) Days() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// String renders the set in the stored "0,1,2" form.
func (s DaySet) String() string {
	parts := make([]string, 0, 7)
	for _, d := range s.Days() {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}

var dayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// DaysOfWeek parses a weekday list. Members are numbers 0-6 (Sunday = 0) or
// three-letter English names, separated by commas or spaces. 7 is read as Sunday.
func DaysOfWeek(raw string) (DaySet, error) {
	var set DaySet
	for _, tok := range dayListRe.Split(strings.TrimSpace(raw), -1) {
		if tok == "" {
			continue
		}
		var day time.Weekday
		if n, err := strconv.Atoi(tok); err == nil {
			if n < 0 || n > 7 {
				return 0, fmt.Errorf("invalid day of week %q in %q", tok, raw)
			}
			day = time.Weekday(n % 7)
		} else {
			d, ok := dayNames[strings.ToLower(tok)]
			if !ok {
				return 0, fmt.Errorf("invalid day of week %q in %q", tok, raw)
			}
			day = d
		}
		set |= 1 << uint(day)
	}
	if set == 0 {
		return 0, fmt.Errorf("empty day-of-week set: %q", raw)
	}
	return set, nil
}

// NormalizeDays re-renders a weekday list in canonical sorted numeric form.
func NormalizeDays(raw string) (string, error) {
	set, err := DaysOfWeek(raw)
	if err != nil {
		return "", err
	}
	return set.String(), nil
}
