package interval

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/wms-imagery/pkg/errors"
)

// DateLayout is the textual form of a calendar date (YYYYMMDD).
const DateLayout = "20060102"

// ParseDate parses a YYYYMMDD string into midnight of that day in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	raw = strings.TrimSpace(raw)
	if len(raw) != len(DateLayout) {
		return time.Time{}, appErrors.Clone(appErrors.ErrInvalidDate, fmt.Sprintf("invalid date %q: expected YYYYMMDD", raw))
	}
	t, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidDate.Code, appErrors.ErrInvalidDate.Status, fmt.Sprintf("invalid date %q: expected YYYYMMDD", raw))
	}
	return t, nil
}

// FormatDate renders t as YYYYMMDD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Day is one calendar date of a DateRange.
type Day struct {
	Date  time.Time
	Final bool
}

// NewDateRange truncates both bounds to midnight and rejects end < start.
func NewDateRange(start, end time.Time) (DateRange, error) {
	start = midnight(start)
	end = midnight(end)
	if end.Before(start) {
		return DateRange{}, appErrors.Clone(appErrors.ErrInvalidRange, "end date cannot be earlier than the start date")
	}
	return DateRange{Start: start, End: end}, nil
}

// ParseDateRange parses two YYYYMMDD strings into a validated range.
func ParseDateRange(start, end string, loc *time.Location) (DateRange, error) {
	s, err := ParseDate(start, loc)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end, loc)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e)
}

// Days lists every date of the range in ascending order; only the last is Final.
func (r DateRange) Days() []Day {
	if r.End.Before(r.Start) {
		return nil
	}
	days := make([]Day, 0, r.Len())
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, Day{Date: d, Final: sameDate(d, r.End)})
	}
	return days
}

// Len is the number of days covered by the range.
func (r DateRange) Len() int {
	n := 0
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
