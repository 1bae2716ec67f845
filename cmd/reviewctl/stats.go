package main

import (
	"fmt"
	"strconv"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/storage"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show review and failure statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()

			var reviews storage.ReviewStats
			if err := client.getJSON("/reviews/stats", &reviews); err != nil {
				return err
			}
			var failures storage.FailureStats
			if err := client.getJSON("/failures/stats", &failures); err != nil {
				return err
			}

			fmt.Printf("Reviews: %d total, %d emails sent, +%d -%d lines reviewed\n",
				reviews.Total, reviews.EmailsSent, reviews.TotalAdded, reviews.TotalRemoved)
			if len(reviews.ByType) > 0 {
				table := newTable([]string{"TYPE", "COUNT"})
				for typ, n := range reviews.ByType {
					table.Append([]string{typ, strconv.Itoa(n)})
				}
				if err := table.Render(); err != nil {
					return err
				}
			}
			if len(reviews.ByTrigger) > 0 {
				table := newTable([]string{"TRIGGER", "COUNT"})
				for trigger, n := range reviews.ByTrigger {
					table.Append([]string{trigger, strconv.Itoa(n)})
				}
				if err := table.Render(); err != nil {
					return err
				}
			}
			if len(reviews.ByProvider) > 0 {
				table := newTable([]string{"PROVIDER", "COUNT"})
				for provider, n := range reviews.ByProvider {
					table.Append([]string{provider, strconv.Itoa(n)})
				}
				if err := table.Render(); err != nil {
					return err
				}
			}

			fmt.Printf("\nFailures: %d total, %d unresolved\n", failures.Total, failures.Unresolved)
			if len(failures.ByStage) > 0 {
				table := newTable([]string{"STAGE", "COUNT"})
				for stage, n := range failures.ByStage {
					table.Append([]string{stage, strconv.Itoa(n)})
				}
				if err := table.Render(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
