package ics

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"mediasort/internal/event"
)

// openStartAnchorYear starts recurring events that have no lower bound.
// It is a leap year so 29.02 keeps its day.
const openStartAnchorYear = 1972

// openStartProperty marks an anchored DTSTART as carrying no lower bound.
const openStartProperty = "X-MEDIASORT-OPEN-START"

// WriteCalendar writes the table as an ICS calendar of all-day events.
// Recurring events carry RRULE:FREQ=YEARLY, with UNTIL when they have an
// upper bound; events without a lower bound are anchored at a leap year and
// flagged with X-MEDIASORT-OPEN-START, so ParseICS reads them back
// unchanged.
func WriteCalendar(w io.Writer, table *event.Table, now time.Time) error {
	cal := ical.NewCalendar()
	cal.SetProductId("-//mediasort//events//EN")
	cal.SetMethod(ical.MethodPublish)

	for _, ev := range table.Events() {
		startYear, endYear := ev.Start.Year, ev.End.Year
		openStart := false
		if ev.Recurring {
			startYear = ev.Bounds.Lower
			if startYear == 0 {
				openStart = true
				startYear = anchorYear(ev)
			} else {
				// 29.02 from a non-leap lower bound first occurs in the next leap year.
				for !dayExists(startYear, ev.Start) {
					startYear++
				}
			}
			endYear = startYear
			if ev.CrossesYear {
				endYear++
			}
		}

		first := time.Date(startYear, time.Month(ev.Start.Month), ev.Start.Day, 0, 0, 0, 0, time.UTC)
		last := time.Date(endYear, time.Month(ev.End.Month), clampedDay(endYear, ev.End), 0, 0, 0, 0, time.UTC)

		ve := cal.AddEvent(eventUID(ev))
		ve.SetDtStampTime(now.UTC())
		ve.SetSummary(ev.Name)
		ve.SetDescription(ev.Raw)
		ve.SetAllDayStartAt(first)
		// DTEND is exclusive for all-day events.
		ve.SetAllDayEndAt(last.AddDate(0, 0, 1))
		if openStart {
			ve.SetProperty(ical.ComponentProperty(openStartProperty), "TRUE")
		}

		if ev.Recurring {
			opt := rrule.ROption{Freq: rrule.YEARLY}
			if ev.Bounds.Upper != 0 {
				lastStart := ev.Bounds.Upper
				if ev.CrossesYear {
					lastStart--
				}
				opt.Until = time.Date(lastStart, time.Month(ev.Start.Month), ev.Start.Day, 23, 59, 59, 0, time.UTC)
			}
			ve.AddRrule(opt.RRuleString())
		}
	}

	return cal.SerializeTo(w)
}

// anchorYear picks the DTSTART year of an event without a lower bound: the
// default anchor, or the last leap year whose instance still ends by the
// upper bound.
func anchorYear(ev event.Event) int {
	y := openStartAnchorYear
	if ev.Bounds.Upper != 0 {
		last := ev.Bounds.Upper
		if ev.CrossesYear {
			last--
		}
		if last < y {
			y = last
			for !dayExists(y, event.PartialDate{Day: 29, Month: 2}) {
				y--
			}
		}
	}
	return y
}

// eventUID is stable across exports of the same configuration.
func eventUID(ev event.Event) string {
	sum := sha256.Sum256([]byte(ev.Source + "\x00" + ev.Name + "\x00" + ev.Raw))
	return hex.EncodeToString(sum[:12]) + "@mediasort"
}
