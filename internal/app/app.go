// Package app assembles the event table, resolver and sorter from a loaded
// configuration. Everything built here is created once and then only read.
package app

import (
	"context"
	"time"

	"github.com/spf13/afero"

	"mediasort/internal/config"
	"mediasort/internal/event"
	"mediasort/internal/filename"
	"mediasort/internal/ics"
	appLog "mediasort/internal/log"
	"mediasort/internal/season"
	"mediasort/internal/sorter"
)

// App holds the wired components for one configuration.
type App struct {
	Config   *config.Config
	Location *time.Location
	Table    *event.Table
	Resolver *sorter.Resolver
	Sorter   *sorter.Sorter
}

// New builds the event table from the configured events plus any ICS
// subscriptions, then wires the resolver and sorter on fs. ICS failures are
// logged; the run continues with the events that could be loaded.
func New(ctx context.Context, cfg *config.Config, fs afero.Fs) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
	}

	dates, err := filename.NewParser(cfg.FilenamePatterns, loc)
	if err != nil {
		return nil, err
	}

	defs := cfg.Definitions()
	if len(cfg.ICS) > 0 {
		sources := make([]ics.Source, 0, len(cfg.ICS))
		for _, c := range cfg.ICS {
			if c.URL == "" {
				continue
			}
			sources = append(sources, ics.Source{ID: c.ID, URL: c.URL, Name: c.Name, Location: loc})
		}
		imported, errs := ics.LoadDefinitions(ctx, ics.NewFetcherFs(fs, cfg.CacheDir), sources)
		if len(errs) > 0 {
			appLog.Warn("some calendars could not be loaded", "error_count", len(errs))
		}
		defs = append(defs, imported...)
	}

	table := event.BuildTable(defs)
	appLog.Info("event table built", "events", table.Len(), "ignored", len(table.Rejected()))

	resolver := sorter.NewResolver(table, dates, seasonNames(cfg.Seasons), cfg.UnknownDir)
	s := sorter.New(fs, sorter.Options{
		InputDir:      cfg.InputDir,
		Root:          cfg.Root(),
		Extensions:    cfg.Extensions,
		DryRun:        cfg.DryRun,
		KeepEmptyDirs: cfg.KeepEmptyDirs,
	}, resolver)

	return &App{
		Config:   cfg,
		Location: loc,
		Table:    table,
		Resolver: resolver,
		Sorter:   s,
	}, nil
}

func seasonNames(s config.SeasonNames) season.Names {
	return season.Names{Winter: s.Winter, Spring: s.Spring, Summer: s.Summer, Autumn: s.Autumn}
}
