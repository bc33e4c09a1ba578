package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/mocktest/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent attempt events recorded on this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		testID, _ := cmd.Flags().GetString("test")

		return withEnv(nil, true, func(e *env) error {
			events, err := e.store.EventRepo().QueryAttemptEvents(cmd.Context(), store.QueryOpts{
				Limit:  limit,
				TestID: testID,
			})
			if err != nil {
				return fmt.Errorf("query events: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No attempt events found.")
				return nil
			}

			fmt.Fprintf(out, "%-5s  %-19s  %-16s  %-14s  %-9s  %-8s  %s\n",
				"ID", "Timestamp", "Test", "Action", "Remaining", "Answered", "Detail")
			fmt.Fprintln(out, strings.Repeat("─", 100))

			for _, ev := range events {
				test := ev.TestID
				if len(test) > 16 {
					test = test[:16]
				}
				fmt.Fprintf(out, "%-5d  %-19s  %-16s  %-14s  %-9d  %-8d  %s\n",
					ev.ID,
					ev.Timestamp.Local().Format("2006-01-02 15:04:05"),
					test,
					ev.Action,
					ev.RemainingSecs,
					ev.Answered,
					ev.Detail,
				)
			}
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of events to show")
	historyCmd.Flags().String("test", "", "Only show events for this test ID")
}
