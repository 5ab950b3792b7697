package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"mediasort/internal/ics"
	appLog "mediasort/internal/log"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.ics>",
	Short: "Write the event table as an iCalendar file (- for stdout)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}

		if args[0] == "-" {
			return ics.WriteCalendar(cmd.OutOrStdout(), a.Table, time.Now())
		}

		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		if err := ics.WriteCalendar(f, a.Table, time.Now()); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		appLog.Info("calendar exported", "path", args[0], "events", a.Table.Len())
		return nil
	},
}
