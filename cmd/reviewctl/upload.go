package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func uploadCmd() *cobra.Command {
	var (
		authorName  string
		authorEmail string
		description string
	)

	cmd := &cobra.Command{
		Use:   "upload <file.diff>",
		Short: "Upload a diff or patch file for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Status         string `json:"status"`
				ReviewMarkdown string `json:"review_markdown"`
				Metadata       struct {
					RecordID     *int64 `json:"record_id"`
					LLMProvider  string `json:"llm_provider"`
					LLMModel     string `json:"llm_model"`
					TotalLines   int    `json:"total_lines"`
					LinesAdded   int    `json:"lines_added"`
					LinesRemoved int    `json:"lines_removed"`
				} `json:"metadata"`
			}
			extra := map[string]string{
				"author_name":  authorName,
				"author_email": authorEmail,
				"description":  description,
			}
			if err := newClient().postFile("/review-diff", "file", args[0], extra, &resp); err != nil {
				return err
			}

			if resp.Metadata.RecordID != nil {
				color.Green("Review #%d complete (%s/%s, +%d -%d)",
					*resp.Metadata.RecordID, resp.Metadata.LLMProvider, resp.Metadata.LLMModel,
					resp.Metadata.LinesAdded, resp.Metadata.LinesRemoved)
			} else {
				color.Yellow("Review complete but not persisted (+%d -%d)",
					resp.Metadata.LinesAdded, resp.Metadata.LinesRemoved)
			}
			fmt.Println()
			fmt.Println(resp.ReviewMarkdown)
			return nil
		},
	}

	cmd.Flags().StringVar(&authorName, "author-name", "", "author name for the record")
	cmd.Flags().StringVar(&authorEmail, "author-email", "", "author email for the record")
	cmd.Flags().StringVar(&description, "description", "", "description of the change")

	return cmd
}
