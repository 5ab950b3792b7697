package event

import "fmt"

// Kind is the shape of an event, fixed at parse time.
type Kind int

const (
	KindUnknown Kind = iota
	// KindFixedDay is a single day in a single year.
	KindFixedDay
	// KindFixedRange is a span between two fully dated days.
	KindFixedRange
	// KindRecurringDay repeats on the same day every year within Bounds.
	KindRecurringDay
	// KindRecurringRange repeats a day span every year within Bounds.
	KindRecurringRange
)

func (k Kind) String() string {
	switch k {
	case KindFixedDay:
		return "fixed-day"
	case KindFixedRange:
		return "fixed-range"
	case KindRecurringDay:
		return "recurring-day"
	case KindRecurringRange:
		return "recurring-range"
	default:
		return "unknown"
	}
}

// Bounds limits the years a recurring event applies to. Zero means open.
type Bounds struct {
	Lower int
	Upper int
}

// Contains reports whether year y is inside the bounds.
func (b Bounds) Contains(y int) bool {
	return (b.Lower == 0 || y >= b.Lower) && (b.Upper == 0 || y <= b.Upper)
}

// clampLower moves y up to the lower bound.
func (b Bounds) clampLower(y int) int {
	if b.Lower != 0 && b.Lower > y {
		return b.Lower
	}
	return y
}

// clampUpper moves y down to the upper bound.
func (b Bounds) clampUpper(y int) int {
	if b.Upper != 0 && b.Upper < y {
		return b.Upper
	}
	return y
}

// Tier orders events from most to least specific. Lower tiers are tried
// first when matching.
type Tier int

const (
	TierFixedDay Tier = iota + 1
	TierFixedRange
	TierDayBounded
	TierDayUpperBound
	TierDayLowerBound
	TierRangeBounded
	TierRangeUpperBound
	TierRangeLowerBound
	TierDayUnbounded
	TierRangeUnbounded
	// TierUnknown holds events that fit no other tier. It sorts last.
	TierUnknown
)

// Event is one user-declared event, built once and never modified.
type Event struct {
	Name  string
	Raw   string
	Start PartialDate
	End   PartialDate

	Kind   Kind
	Bounds Bounds
	Tier   Tier

	FixedRange  bool
	SingleDay   bool
	Recurring   bool
	CrossesYear bool

	// Source names where the event came from ("config" or an ICS source id).
	Source string
}

func (e Event) String() string {
	return fmt.Sprintf("%s [%s %s]", e.Name, e.Kind, e.Raw)
}

// newEvent classifies a parsed spec.
func newEvent(name, raw, source string, spec Spec) Event {
	s, t := spec.Start, spec.End
	ev := Event{
		Name:   name,
		Raw:    raw,
		Start:  s,
		End:    t,
		Source: source,
	}

	ev.Recurring = spec.Marked || !s.HasYear() || !t.HasYear()
	ev.SingleDay = s.sameDay(t) && (s.Year == t.Year || s.HasYear() != t.HasYear() || spec.Marked)
	ev.FixedRange = !ev.Recurring
	ev.CrossesYear = !ev.SingleDay &&
		((ev.FixedRange && s.Year < t.Year) || t.dayBefore(s))

	switch {
	case ev.FixedRange && ev.SingleDay:
		ev.Kind = KindFixedDay
	case ev.FixedRange:
		ev.Kind = KindFixedRange
	case ev.SingleDay:
		ev.Kind = KindRecurringDay
	default:
		ev.Kind = KindRecurringRange
	}
	if ev.Recurring {
		ev.Bounds = Bounds{Lower: s.Year, Upper: t.Year}
	}
	ev.Tier = tierOf(ev.Kind, ev.Bounds)
	return ev
}

func tierOf(k Kind, b Bounds) Tier {
	lower, upper := b.Lower != 0, b.Upper != 0
	switch k {
	case KindFixedDay:
		return TierFixedDay
	case KindFixedRange:
		return TierFixedRange
	case KindRecurringDay:
		switch {
		case lower && upper:
			return TierDayBounded
		case upper:
			return TierDayUpperBound
		case lower:
			return TierDayLowerBound
		default:
			return TierDayUnbounded
		}
	case KindRecurringRange:
		switch {
		case lower && upper:
			return TierRangeBounded
		case upper:
			return TierRangeUpperBound
		case lower:
			return TierRangeLowerBound
		default:
			return TierRangeUnbounded
		}
	}
	return TierUnknown
}
