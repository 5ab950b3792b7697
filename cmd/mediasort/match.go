package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mediasort/internal/sorter"
)

var matchCmd = &cobra.Command{
	Use:   "match <date|file>...",
	Short: "Show where files from a date (YYYY-MM-DD or DD.MM.YYYY) or with a given name would go",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, arg := range args {
			var d sorter.Decision
			if date, ok := parseDateArg(arg, a.Location); ok {
				d = a.Resolver.ResolveDate(date)
			} else {
				d = a.Resolver.Resolve(arg)
			}

			line := fmt.Sprintf("%s\t%s\t%s", arg, d.Bucket, filepath.Join(d.Segments...))
			if d.Match != nil {
				line += "\t" + d.Match.Name
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

var dateArgLayouts = []string{"2006-01-02", "02.01.2006"}

func parseDateArg(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateArgLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
