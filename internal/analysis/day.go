package analysis

import (
	"fmt"
	"time"

	"github.com/jengzang/records-timeline/internal/models"
)

// DateLayout is the wire and storage form of a local day
const DateLayout = "2006-01-02"

// Day is one local calendar day [Start, End)
type Day struct {
	Date  string
	Start time.Time
	End   time.Time
}

// ParseDay parses a YYYY-MM-DD date in loc
func ParseDay(date string, loc *time.Location) (Day, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", models.ErrInvalidDate, date)
	}
	return DayOf(t), nil
}

// DayOf returns the local day containing t, in t's location
func DayOf(t time.Time) Day {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Day{
		Date:  start.Format(DateLayout),
		Start: start,
		End:   start.AddDate(0, 0, 1),
	}
}

// Next returns the following day
func (d Day) Next() Day {
	return DayOf(d.End)
}

// Weekday of the day, 0=Sunday
func (d Day) Weekday() time.Weekday {
	return d.Start.Weekday()
}

// Contains reports whether t falls inside the day
func (d Day) Contains(t time.Time) bool {
	return !t.Before(d.Start) && t.Before(d.End)
}

// Overlap returns the overlapping duration of [aStart,aEnd) and [bStart,bEnd)
func Overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	s := aStart
	if bStart.After(s) {
		s = bStart
	}
	e := aEnd
	if bEnd.Before(e) {
		e = bEnd
	}
	if !e.After(s) {
		return 0
	}
	return e.Sub(s)
}

// RestOverlap returns how much of [start,end) falls inside the configured
// rest window. The window may wrap past midnight.
func (t Thresholds) RestOverlap(start, end time.Time) time.Duration {
	if !end.After(start) {
		return 0
	}

	var total time.Duration
	// walk every local midnight that could anchor a rest window touching the range
	for d := DayOf(start).Start.AddDate(0, 0, -1); d.Before(end); d = d.AddDate(0, 0, 1) {
		rs := d.Add(time.Duration(t.RestStartMinute) * time.Minute)
		re := d.Add(time.Duration(t.RestEndMinute) * time.Minute)
		if t.RestEndMinute <= t.RestStartMinute {
			re = re.AddDate(0, 0, 1)
		}
		total += Overlap(start, end, rs, re)
	}
	return total
}
