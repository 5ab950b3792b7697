package sorter

import (
	"time"

	"mediasort/internal/event"
	"mediasort/internal/filename"
	"mediasort/internal/season"
)

// Bucket tells which rule placed a file.
type Bucket int

const (
	BucketUnknown Bucket = iota
	BucketEvent
	BucketSeason
)

func (b Bucket) String() string {
	switch b {
	case BucketEvent:
		return "event"
	case BucketSeason:
		return "season"
	default:
		return "unknown"
	}
}

// Decision is where a single file belongs, relative to the output root.
type Decision struct {
	Bucket   Bucket
	Date     time.Time
	Match    *event.Match
	Segments []string
}

// Resolver turns file names into folder decisions. It only reads the event
// table, so one Resolver can serve every run.
type Resolver struct {
	table      *event.Table
	dates      *filename.Parser
	seasons    season.Names
	unknownDir string
}

// NewResolver wires the event table, the filename date parser and the
// season fallback together.
func NewResolver(table *event.Table, dates *filename.Parser, seasons season.Names, unknownDir string) *Resolver {
	if unknownDir == "" {
		unknownDir = "Unknown"
	}
	return &Resolver{table: table, dates: dates, seasons: seasons, unknownDir: unknownDir}
}

// Table returns the event table in use.
func (r *Resolver) Table() *event.Table { return r.table }

// Resolve decides the folder for a file from the date in its name.
func (r *Resolver) Resolve(name string) Decision {
	date, ok := r.dates.Date(name)
	if !ok {
		return Decision{Bucket: BucketUnknown, Segments: []string{r.unknownDir}}
	}
	return r.ResolveDate(date)
}

// Fallback drops the event decision: the season folder for a dated file,
// otherwise the unknown bucket.
func (r *Resolver) Fallback(d Decision) Decision {
	if d.Date.IsZero() {
		return Decision{Bucket: BucketUnknown, Segments: []string{r.unknownDir}}
	}
	return Decision{Bucket: BucketSeason, Date: d.Date, Segments: r.seasons.Path(d.Date)}
}

// ResolveDate decides the folder for a known date: the first matching event,
// otherwise the year/season fallback.
func (r *Resolver) ResolveDate(date time.Time) Decision {
	if m, ok := r.table.Match(date); ok {
		if segs := event.FormatPath(m); len(segs) > 0 {
			return Decision{Bucket: BucketEvent, Date: date, Match: &m, Segments: segs}
		}
	}
	return Decision{Bucket: BucketSeason, Date: date, Segments: r.seasons.Path(date)}
}
