package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"mediasort/internal/event"
	appLog "mediasort/internal/log"
	"mediasort/internal/model"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandConfig controls how the event table is expanded.
type ExpandConfig struct {
	// Location for occurrence boundaries. If nil, time.Local is used.
	Location *time.Location

	// RangeStart / RangeEnd define the window; an occurrence is kept when
	// it overlaps the window.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps yearly expansion. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded occurrences.
type ExpandResult struct {
	Occurrences []model.Occurrence
	// Truncated lists events that hit MaxOccurrencesPerEvent.
	Truncated []string
}

// Expand lists every occurrence of the table's events within the window,
// ordered by start. Recurring events are expanded with a yearly rule and
// filtered by their year bounds.
func Expand(table *event.Table, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	out := make([]model.Occurrence, 0)
	for _, ev := range table.Events() {
		var occ []model.Occurrence
		hitCap := false
		if ev.Recurring {
			occ, hitCap = expandRecurring(ev, cfg)
		} else {
			occ = expandFixed(ev, cfg)
		}
		if hitCap {
			result.Truncated = append(result.Truncated, ev.Name)
			appLog.Error("expand: truncated occurrences due to cap",
				errors.New("max occurrences reached"), "name", ev.Name, "cap", cfg.MaxOccurrencesPerEvent)
		}
		out = append(out, occ...)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	result.Occurrences = out
	return result, nil
}

func expandFixed(ev event.Event, cfg ExpandConfig) []model.Occurrence {
	start := dayStart(ev.Start.Year, ev.Start, cfg.Location)
	end := dayEnd(ev.End.Year, ev.End, cfg.Location)
	if !timeRangesOverlap(start, end, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	m := event.Match{Name: ev.Name, Year: ev.Start.Year}
	if ev.CrossesYear {
		m.Span = &event.YearSpan{Start: ev.Start.Year, End: ev.End.Year}
	}
	return []model.Occurrence{makeOccurrence(ev, m, start, end)}
}

func expandRecurring(ev event.Event, cfg ExpandConfig) ([]model.Occurrence, bool) {
	var out []model.Occurrence

	// Instances starting in the previous year may still reach into the window.
	firstYear := cfg.RangeStart.In(cfg.Location).Year() - 1
	if ev.Bounds.Lower > firstYear {
		firstYear = ev.Bounds.Lower
	}

	// Anchor on January 1st and place each instance by day/month below, so
	// 29.02 follows the same clamping as matching.
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.YEARLY,
		Dtstart: time.Date(firstYear, time.January, 1, 0, 0, 0, 0, cfg.Location),
	})
	if err != nil {
		appLog.Error("expand: failed to build yearly rule", err, "name", ev.Name)
		return nil, false
	}

	anchors := r.Between(
		time.Date(firstYear, time.January, 1, 0, 0, 0, 0, cfg.Location),
		cfg.RangeEnd.In(cfg.Location),
		true,
	)
	hitCap := false
	if len(anchors) > cfg.MaxOccurrencesPerEvent {
		anchors = anchors[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	for _, a := range anchors {
		y := a.Year()
		endYear := y
		if ev.CrossesYear {
			endYear = y + 1
		}
		if !ev.Bounds.Contains(y) || !ev.Bounds.Contains(endYear) {
			continue
		}
		if ev.SingleDay && !dayExists(y, ev.Start) {
			continue
		}
		start := dayStart(y, ev.Start, cfg.Location)
		end := dayEnd(endYear, ev.End, cfg.Location)
		if !timeRangesOverlap(start, end, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		m := event.Match{Name: ev.Name, Year: y, Recurring: true}
		if ev.CrossesYear {
			m.Span = &event.YearSpan{Start: y, End: endYear}
		}
		out = append(out, makeOccurrence(ev, m, start, end))
	}
	return out, hitCap
}

func makeOccurrence(ev event.Event, m event.Match, start, end time.Time) model.Occurrence {
	return model.Occurrence{
		SourceID:    ev.Source,
		Name:        ev.Name,
		Raw:         ev.Raw,
		InstanceKey: ev.Name + "@" + start.Format("2006-01-02"),
		Recurring:   ev.Recurring,
		Start:       start,
		End:         end,
		Folder:      event.FormatPath(m),
	}
}

func dayExists(year int, d event.PartialDate) bool {
	return time.Date(year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC).Day() == d.Day
}

func clampedDay(year int, d event.PartialDate) int {
	last := time.Date(year, time.Month(d.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if d.Day > last {
		return last
	}
	return d.Day
}

// dayStart rolls a missing 29.02 forward to 01.03, as matching does.
func dayStart(year int, d event.PartialDate, loc *time.Location) time.Time {
	return time.Date(year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
}

func dayEnd(year int, d event.PartialDate, loc *time.Location) time.Time {
	return time.Date(year, time.Month(d.Month), clampedDay(year, d), 23, 59, 59, int(999*time.Millisecond), loc)
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
