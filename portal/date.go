package portal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar day as the date picker sees it. Unlike time.Time it
// can hold days that do not exist, so they can be rejected explicitly.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"02 Jan 2006",
	"Jan 2 2006",
	"January 2, 2006",
	time.RFC3339,
}

// ParseDate reads a date. The ISO form "YYYY-MM-DD" is parsed field by
// field so "2020-02-30" yields ErrInvalidDay rather than a layout error.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if parts := strings.Split(s, "-"); len(parts) == 3 && len(parts[0]) == 4 {
		y, errY := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		d, errD := strconv.Atoi(parts[2])
		if errY == nil && errM == nil && errD == nil {
			date := Date{Year: y, Month: time.Month(m), Day: d}
			return date, date.Validate()
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("unrecognised date %q", s)
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Validate rejects months outside 1..12 and days the month does not have.
func (d Date) Validate() error {
	if d.Month < time.January || d.Month > time.December {
		return fmt.Errorf("invalid month %d in %s", int(d.Month), d)
	}
	if d.Day < 1 || d.Day > daysIn(d.Year, d.Month) {
		return fmt.Errorf("%w: %s", ErrInvalidDay, d)
	}
	return nil
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	return d.Time().Before(o.Time())
}

// MonthValue is the option value the picker uses for the month.
func (d Date) MonthValue() string {
	return d.Month.String()[:3]
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
