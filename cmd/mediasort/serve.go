package main

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mediasort/internal/app"
	appLog "mediasort/internal/log"
	"mediasort/internal/watch"
	"mediasort/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with scheduled and watch-triggered sort runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		return serve(ctx, a)
	},
}

func init() {
	f := serveCmd.Flags()
	f.String("listen", "", "HTTP listen address (overrides listen)")
	f.String("refresh", "", `cron schedule for sort runs, e.g. "*/30 * * * *" (overrides refresh)`)
	f.Bool("watch", false, "sort when files appear in the input directory")
	for _, name := range []string{"listen", "refresh", "watch"} {
		_ = viper.BindPFlag(name, f.Lookup(name))
	}
}

func serve(ctx context.Context, a *app.App) error {
	cfg := a.Config
	appLog.Info("mediasort starting",
		"version", version,
		"listen", cfg.Listen,
		"refresh", cfg.RefreshCron,
		"watch", cfg.Watch,
		"events", a.Table.Len(),
	)

	runSort := func(trigger string) {
		stats, err := a.Sorter.Run(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				appLog.Error("sort run failed", err, "trigger", trigger)
			}
			return
		}
		appLog.Info("sort run finished", "trigger", trigger,
			"total", stats.Total, "moved", stats.Moved, "failed", stats.Failed)
	}

	if cfg.RefreshCron != "" {
		c := cron.New(cron.WithLocation(a.Location))
		if _, err := c.AddFunc(cfg.RefreshCron, func() { runSort("cron") }); err != nil {
			return err
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		appLog.Info("scheduled sort runs", "refresh", cfg.RefreshCron)
	}

	if cfg.Watch {
		w, err := watch.New(cfg.InputDir, watch.DefaultDelay, func() { runSort("watch") })
		if err != nil {
			return err
		}
		defer w.Close()
		appLog.Info("watching input directory", "path", cfg.InputDir, "dirs", w.Dirs())
	}

	srv := web.NewServer(cfg, a.Location, a.Resolver, a.Sorter)
	err := srv.Serve(ctx)
	appLog.Info("mediasort exiting")
	return err
}
