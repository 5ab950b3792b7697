package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appLog "mediasort/internal/log"
)

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Sort the input directory once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}

		stats, err := a.Sorter.Run(cmd.Context())
		if err != nil {
			return err
		}

		appLog.Info("sort finished",
			"total", stats.Total,
			"moved", stats.Moved,
			"events", stats.Events,
			"seasons", stats.Seasons,
			"unknown", stats.Unknown,
			"skipped", stats.Skipped,
			"failed", stats.Failed,
			"dry_run", a.Config.DryRun,
		)
		if stats.Failed > 0 {
			return fmt.Errorf("%d of %d files could not be moved", stats.Failed, stats.Total)
		}
		return nil
	},
}

func init() {
	sortCmd.Flags().Bool("dry-run", false, "log planned moves without touching any file")
	_ = viper.BindPFlag("dry-run", sortCmd.Flags().Lookup("dry-run"))
}
