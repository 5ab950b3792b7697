package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mediasort/internal/ics"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List configured events in match order, or their occurrences in a year",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		year, _ := cmd.Flags().GetInt("year")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if year == 0 {
			for _, ev := range a.Table.Events() {
				fmt.Fprintf(out, "%2d  %-16s %-26s %s\n", ev.Tier, ev.Kind, ev.Raw, ev.Name)
			}
			for _, err := range a.Table.Rejected() {
				fmt.Fprintf(out, "ignored: %v\n", err)
			}
			return nil
		}

		res, err := ics.Expand(a.Table, ics.ExpandConfig{
			Location:   a.Location,
			RangeStart: time.Date(year, time.January, 1, 0, 0, 0, 0, a.Location),
			RangeEnd:   time.Date(year+1, time.January, 1, 0, 0, 0, 0, a.Location).Add(-time.Millisecond),
		})
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Occurrences)
		}
		for _, occ := range res.Occurrences {
			fmt.Fprintf(out, "%s  %s  %s\n",
				occ.Start.Format("2006-01-02"), occ.End.Format("2006-01-02"), strings.Join(occ.Folder, "/"))
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().Int("year", 0, "list occurrences in this year instead of the event table")
	eventsCmd.Flags().Bool("json", false, "print occurrences as JSON")
}
