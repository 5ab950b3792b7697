// Package event resolves calendar dates against user-declared events.
//
// Raw event dates use a small grammar (dot separated day/month/year, "-" for
// ranges, "x" for any year, and the recurrence markers "_", ">" and "<").
// Each raw string is parsed once into an Event with a fixed Kind and year
// Bounds; the resulting Table is immutable and can be queried from any
// number of goroutines.
package event

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	componentDivider = "."
	rangeDivider     = "-"
	spanMarker       = "_"
	afterMarker      = '>'
	beforeMarker     = '<'
	anyYear          = "x"
)

var (
	// ErrEmpty is returned by Parse for blank input. Callers drop such
	// entries without reporting them.
	ErrEmpty = errors.New("empty date")
	// ErrInvalidRange marks a range whose start lies after its end.
	ErrInvalidRange = errors.New("range start is after range end")
)

// PartialDate is a calendar day with an optional year. Year 0 means the
// date applies to any year.
type PartialDate struct {
	Day   int
	Month int
	Year  int
}

// HasYear reports whether the date is pinned to a year.
func (d PartialDate) HasYear() bool { return d.Year != 0 }

// sameDay reports whether d and o share day and month.
func (d PartialDate) sameDay(o PartialDate) bool {
	return d.Day == o.Day && d.Month == o.Month
}

// dayBefore compares day and month only.
func (d PartialDate) dayBefore(o PartialDate) bool {
	return d.Month < o.Month || (d.Month == o.Month && d.Day < o.Day)
}

func (d PartialDate) String() string {
	if !d.HasYear() {
		return fmt.Sprintf("%02d.%02d.%s", d.Day, d.Month, anyYear)
	}
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, d.Month, d.Year)
}

// Spec is the raw shape of a parsed date string before classification.
type Spec struct {
	Start PartialDate
	End   PartialDate
	// Marked is set when the string used one of the recurrence markers.
	Marked bool
}

// Parse reads a single raw date string such as "12.08.2019",
// "24.12.x-26.12.x" or "15.03.>2015".
func Parse(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Spec{}, ErrEmpty
	}

	switch {
	case strings.Contains(s, spanMarker):
		left, right, _ := strings.Cut(s, spanMarker)
		start, mark, err := parseSide(left)
		if err != nil {
			return Spec{}, err
		}
		if mark != 0 || !start.HasYear() {
			return Spec{}, fmt.Errorf("%q: year span needs a plain start year", s)
		}
		upper, err := parseYear(right)
		if err != nil {
			return Spec{}, err
		}
		end := PartialDate{Day: start.Day, Month: start.Month, Year: upper}
		if upper < start.Year {
			return Spec{}, ErrInvalidRange
		}
		return Spec{Start: start, End: end, Marked: true}, nil

	case strings.Contains(s, rangeDivider):
		left, right, _ := strings.Cut(s, rangeDivider)
		start, smark, err := parseSide(left)
		if err != nil {
			return Spec{}, err
		}
		end, emark, err := parseSide(right)
		if err != nil {
			return Spec{}, err
		}
		if smark == beforeMarker || emark == afterMarker {
			return Spec{}, fmt.Errorf("%q: year marker points the wrong way", s)
		}
		spec := Spec{Start: start, End: end, Marked: smark != 0 || emark != 0}
		if start.HasYear() && end.HasYear() {
			// Marked years are bounds, so only their order matters.
			if (spec.Marked && end.Year < start.Year) || (!spec.Marked && dateBefore(end, start)) {
				return Spec{}, ErrInvalidRange
			}
		}
		return spec, nil

	default:
		d, mark, err := parseSide(s)
		if err != nil {
			return Spec{}, err
		}
		switch mark {
		case afterMarker:
			return Spec{Start: d, End: PartialDate{Day: d.Day, Month: d.Month}, Marked: true}, nil
		case beforeMarker:
			return Spec{Start: PartialDate{Day: d.Day, Month: d.Month}, End: d, Marked: true}, nil
		}
		return Spec{Start: d, End: d}, nil
	}
}

// dateBefore orders two dated values by (year, month, day).
func dateBefore(a, b PartialDate) bool {
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	return a.dayBefore(b)
}

// parseSide reads "DD.MM[.YYYY|.x|.>YYYY|.<YYYY]" and returns the marker
// byte if one was present.
func parseSide(s string) (PartialDate, byte, error) {
	parts := strings.Split(strings.TrimSpace(s), componentDivider)
	if len(parts) < 2 || len(parts) > 3 {
		return PartialDate{}, 0, fmt.Errorf("%q: expected DD.MM.YYYY", s)
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return PartialDate{}, 0, fmt.Errorf("%q: bad day: %w", s, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return PartialDate{}, 0, fmt.Errorf("%q: bad month: %w", s, err)
	}
	if month < 1 || month > 12 || day < 1 || day > daysIn(time.Month(month), 2000) {
		return PartialDate{}, 0, fmt.Errorf("%q: no such day", s)
	}
	d := PartialDate{Day: day, Month: month}
	if len(parts) == 2 {
		return d, 0, nil
	}

	tok := parts[2]
	var mark byte
	if tok != "" && (tok[0] == afterMarker || tok[0] == beforeMarker) {
		mark = tok[0]
		y, err := parseYear(tok[1:])
		if err != nil {
			return PartialDate{}, 0, err
		}
		d.Year = y
		return d, mark, nil
	}
	if tok == anyYear {
		return d, 0, nil
	}
	// Anything else that is not a number means "any year".
	if y, err := strconv.Atoi(tok); err == nil && y > 0 {
		d.Year = y
	}
	if d.HasYear() && d.Day > daysIn(time.Month(d.Month), d.Year) {
		return PartialDate{}, 0, fmt.Errorf("%q: no such day in %d", s, d.Year)
	}
	return d, 0, nil
}

func parseYear(s string) (int, error) {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q: bad year: %w", s, err)
	}
	if y <= 0 {
		return 0, fmt.Errorf("%q: bad year", s)
	}
	return y, nil
}

// daysIn returns the length of month m in year y.
func daysIn(m time.Month, y int) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
