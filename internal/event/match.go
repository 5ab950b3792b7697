package event

import "time"

// YearSpan is the pair of years an event instance straddles.
type YearSpan struct {
	Start int
	End   int
}

// Match is the result of a successful lookup.
type Match struct {
	Name      string
	Year      int
	Recurring bool
	// Span is set only when the matching instance covers two years.
	Span  *YearSpan
	Event Event
}

// Match returns the first event, in tier order, whose interval contains
// date. Times of day are ignored: every event covers whole days in the
// location of date.
func (t *Table) Match(date time.Time) (Match, bool) {
	if t == nil {
		return Match{}, false
	}
	for i := range t.events {
		if m, ok := t.events[i].match(date); ok {
			return m, true
		}
	}
	return Match{}, false
}

func (e *Event) match(date time.Time) (Match, bool) {
	loc := date.Location()
	y := date.Year()

	switch e.Kind {
	case KindFixedDay, KindFixedRange:
		from := startOfDay(e.Start.Year, e.Start, loc)
		to := endOfDay(e.End.Year, e.End, loc)
		if !within(date, from, to) {
			return Match{}, false
		}
		m := e.result(e.Start.Year)
		if e.CrossesYear {
			m.Span = &YearSpan{Start: e.Start.Year, End: e.End.Year}
		}
		return m, true

	case KindRecurringDay:
		if int(date.Month()) != e.Start.Month || date.Day() != e.Start.Day {
			return Match{}, false
		}
		if !e.Bounds.Contains(y) {
			return Match{}, false
		}
		return e.result(y), true

	case KindRecurringRange:
		if !e.Bounds.Contains(y) {
			return Match{}, false
		}
		if !e.CrossesYear {
			if within(date, startOfDay(y, e.Start, loc), endOfDay(y, e.End, loc)) {
				return e.result(y), true
			}
			return Match{}, false
		}
		windows := [2]YearSpan{
			{Start: e.Bounds.clampLower(y - 1), End: e.Bounds.clampUpper(y)},
			{Start: e.Bounds.clampLower(y), End: e.Bounds.clampUpper(y + 1)},
		}
		for _, w := range windows {
			if within(date, startOfDay(w.Start, e.Start, loc), endOfDay(w.End, e.End, loc)) {
				m := e.result(w.Start)
				span := w
				m.Span = &span
				return m, true
			}
		}
	}
	return Match{}, false
}

func (e *Event) result(year int) Match {
	return Match{
		Name:      e.Name,
		Year:      year,
		Recurring: e.Recurring,
		Event:     *e,
	}
}

// startOfDay rolls a missing 29.02 forward to 01.03; endOfDay clamps it
// back to 28.02. A range never gains a day it does not name.
func startOfDay(year int, d PartialDate, loc *time.Location) time.Time {
	return time.Date(year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
}

func endOfDay(year int, d PartialDate, loc *time.Location) time.Time {
	m := time.Month(d.Month)
	return time.Date(year, m, clampDay(year, m, d.Day), 23, 59, 59, int(999*time.Millisecond), loc)
}

// clampDay keeps 29.02 inside February in non-leap years.
func clampDay(year int, m time.Month, day int) int {
	if n := daysIn(m, year); day > n {
		return n
	}
	return day
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
