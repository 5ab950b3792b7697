package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"mediasort/internal/event"
	appLog "mediasort/internal/log"
)

// maxEventDays caps imported spans; longer entries are not events a photo
// folder is named after.
const maxEventDays = 366

var errSkip = errors.New("skipped")

// ParseICS converts the VEVENTs of one ICS payload into event definitions
// in the grammar understood by event.Parse:
//
//   - single and multi-day events become fixed dates or ranges
//   - FREQ=YEARLY rules become recurring dates bounded below by the DTSTART
//     year and, when the rule ends, above by the year of its last instance
//   - other frequencies, floating yearly rules (BYDAY, BYWEEKNO, ...) and
//     RECURRENCE-ID overrides are skipped
func ParseICS(src Source, body []byte) ([]event.Definition, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	defs := make([]event.Definition, 0)
	for _, comp := range cal.Events() {
		def, perr := parseVEvent(src, comp)
		if errors.Is(perr, errSkip) {
			appLog.Debug("ics vevent skipped", "id", src.ID, "reason", perr.Error())
			continue
		}
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		defs = append(defs, def)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(defs))
	return defs, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (event.Definition, error) {
	if ve.GetProperty("RECURRENCE-ID") != nil {
		return event.Definition{}, fmt.Errorf("%w: override instance", errSkip)
	}

	summary := ""
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		summary = strings.TrimSpace(p.Value)
	}
	if summary == "" {
		return event.Definition{}, errors.New("missing SUMMARY")
	}

	loc := src.Location
	if loc == nil {
		loc = time.Local
	}
	first, last, err := eventDays(ve, loc)
	if err != nil {
		return event.Definition{}, err
	}
	if last.Sub(first) > maxEventDays*24*time.Hour {
		return event.Definition{}, fmt.Errorf("%w: %q spans more than a year", errSkip, summary)
	}

	name := summary
	if src.Name != "" {
		name = src.Name + "|" + summary
	}
	def := event.Definition{Name: name, Source: src.ID}

	rruleProp := ve.GetProperty(ical.ComponentPropertyRrule)
	if rruleProp == nil {
		def.Dates = []string{fixedRaw(first, last)}
		return def, nil
	}

	openStart := false
	if p := ve.GetProperty(ical.ComponentProperty(openStartProperty)); p != nil {
		openStart = strings.EqualFold(strings.TrimSpace(p.Value), "TRUE")
	}
	raw, err := yearlyRaw(rruleProp.Value, first, last, openStart)
	if err != nil {
		return event.Definition{}, err
	}
	def.Dates = []string{raw}
	return def, nil
}

// eventDays returns the first and last calendar day an event covers.
// DTEND of an all-day event is exclusive. Timed events are placed on the
// days they touch in loc; all-day dates carry no zone.
func eventDays(ve *ical.VEvent, loc *time.Location) (time.Time, time.Time, error) {
	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return time.Time{}, time.Time{}, errors.New("missing DTSTART")
	}
	allDay := !strings.Contains(dtStart.Value, "T")
	if vs, ok := dtStart.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		allDay = true
	}

	var start, end time.Time
	var err error
	if allDay {
		start, err = parseICSTime(dtStart.Value)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = start
		if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
			if e, err := parseICSTime(p.Value); err == nil && e.After(start) {
				end = e.AddDate(0, 0, -1)
			}
		}
	} else {
		start, err = ve.GetStartAt()
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = start.In(loc)
		end = start
		if e, err := ve.GetEndAt(); err == nil && e.After(start) {
			e = e.In(loc)
			// An event ending exactly at midnight does not touch that day.
			end = e.Add(-time.Nanosecond)
		}
	}
	return dayOf(start), dayOf(end), nil
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func fixedRaw(first, last time.Time) string {
	if first.Equal(last) {
		return first.Format("02.01.2006")
	}
	return first.Format("02.01.2006") + "-" + last.Format("02.01.2006")
}

// yearlyRaw renders a YEARLY rule anchored at first..last. With openStart
// the DTSTART year is only an anchor and no lower bound is emitted.
func yearlyRaw(rawRule string, first, last time.Time, openStart bool) (string, error) {
	opt, err := rrule.StrToROption(rawRule)
	if err != nil {
		return "", fmt.Errorf("parse RRULE %q: %w", rawRule, err)
	}
	if opt.Freq != rrule.YEARLY {
		return "", fmt.Errorf("%w: RRULE %q is not yearly", errSkip, rawRule)
	}
	if opt.Interval > 1 {
		return "", fmt.Errorf("%w: RRULE %q skips years", errSkip, rawRule)
	}
	if len(opt.Byweekday)+len(opt.Byweekno)+len(opt.Byyearday)+len(opt.Bysetpos)+len(opt.Byeaster) > 0 ||
		len(opt.Bymonth) > 1 || len(opt.Bymonthday) > 1 {
		return "", fmt.Errorf("%w: RRULE %q moves between years", errSkip, rawRule)
	}

	crosses := last.Year() > first.Year()
	lower := first.Year()
	upper := 0
	if !opt.Until.IsZero() || opt.Count > 0 {
		opt.Dtstart = first
		r, err := rrule.NewRRule(*opt)
		if err != nil {
			return "", fmt.Errorf("build RRULE %q: %w", rawRule, err)
		}
		all := r.All()
		if len(all) == 0 {
			return "", fmt.Errorf("%w: RRULE %q has no instances", errSkip, rawRule)
		}
		upper = all[len(all)-1].Year()
		if crosses {
			upper++
		}
	}

	startDM, endDM := first.Format("02.01."), last.Format("02.01.")
	lowerTok := fmt.Sprintf(">%d", lower)
	if openStart {
		lowerTok = "x"
	}
	upperTok := "x"
	if upper != 0 {
		upperTok = fmt.Sprintf("<%d", upper)
	}
	if startDM == endDM {
		switch {
		case openStart && upper != 0:
			return startDM + upperTok, nil
		case upper != 0:
			return fmt.Sprintf("%s%d_%d", startDM, lower, upper), nil
		default:
			return startDM + lowerTok, nil
		}
	}
	return startDM + lowerTok + "-" + endDM + upperTok, nil
}

// parseICSTime parses a basic ICS date/date-time string into time.Time.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}

	// Date-only (all-day), e.g., 20250101
	return time.ParseInLocation("20060102", v, time.Local)
}
