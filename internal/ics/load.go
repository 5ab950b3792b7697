package ics

import (
	"context"
	"fmt"

	"mediasort/internal/event"
)

// LoadDefinitions fetches and parses every source. A failing source is
// reported and skipped; the others still contribute their events.
func LoadDefinitions(ctx context.Context, f *Fetcher, sources []Source) ([]event.Definition, []error) {
	if len(sources) == 0 {
		return nil, nil
	}

	results, errs := f.FetchAll(ctx, sources)
	var defs []event.Definition
	for _, res := range results {
		parsed, err := ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("ics %s: %w", res.Source.ID, err))
			continue
		}
		defs = append(defs, parsed...)
	}
	return defs, errs
}
