package event

import (
	"errors"
	"fmt"
	"sort"

	appLog "mediasort/internal/log"
)

// SourceConfig is the Source of events declared in the configuration file.
const SourceConfig = "config"

// Definition is one named entry of the event configuration. A name may
// carry several raw date strings; each becomes its own Event.
type Definition struct {
	Name   string
	Dates  []string
	Source string
}

// ParseError describes a raw date string that could not be used.
type ParseError struct {
	Name string
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("event %q: date %q: %v", e.Name, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Table is the ordered, read-only list of events. Build it once with
// BuildTable and share it freely.
type Table struct {
	events   []Event
	rejected []error
}

// BuildTable parses every definition and orders the events by tier.
// Entries that fail to parse are left out and reported by Rejected.
// Blank date strings are skipped without a report.
func BuildTable(defs []Definition) *Table {
	t := &Table{}
	for _, def := range defs {
		source := def.Source
		if source == "" {
			source = SourceConfig
		}
		for _, raw := range def.Dates {
			spec, err := Parse(raw)
			if errors.Is(err, ErrEmpty) {
				continue
			}
			if err != nil {
				perr := &ParseError{Name: def.Name, Raw: raw, Err: err}
				t.rejected = append(t.rejected, perr)
				appLog.Debug("event dropped", "name", def.Name, "raw", raw, "reason", err.Error())
				continue
			}
			ev := newEvent(def.Name, raw, source, spec)
			if ev.Tier == TierUnknown {
				appLog.Error("event fits no priority tier", errors.New("unclassified event"),
					"name", ev.Name, "raw", raw, "kind", ev.Kind.String())
			}
			t.events = append(t.events, ev)
		}
	}

	sort.SliceStable(t.events, func(i, j int) bool {
		return t.events[i].Tier < t.events[j].Tier
	})
	return t
}

// Len returns the number of usable events.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.events)
}

// Events returns a copy of the events in match order.
func (t *Table) Events() []Event {
	if t == nil {
		return nil
	}
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Rejected returns the *ParseError values collected while building.
func (t *Table) Rejected() []error {
	if t == nil {
		return nil
	}
	out := make([]error, len(t.rejected))
	copy(out, t.rejected)
	return out
}
