package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func triggerCmd() *cobra.Command {
	var (
		projectKey string
		repoSlug   string
		prID       int64
		commitID   string
	)

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Trigger a review of a pull request or commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]interface{}{
				"project_key": projectKey,
				"repo_slug":   repoSlug,
			}
			if prID != 0 {
				req["pr_id"] = prID
			}
			if commitID != "" {
				req["commit_id"] = commitID
			}

			var resp struct {
				Status   string `json:"status"`
				Message  string `json:"message"`
				Review   string `json:"review"`
				RecordID int64  `json:"record_id"`
			}
			if err := newClient().postJSON("/manual-review", req, &resp); err != nil {
				return err
			}

			switch resp.Status {
			case "success":
				color.Green("Review #%d complete", resp.RecordID)
				fmt.Println()
				fmt.Println(resp.Review)
			case "no_issues":
				color.Green("No issues found")
			case "no_diff":
				color.Yellow("No diff found, nothing to review")
			default:
				fmt.Printf("%s: %s\n", resp.Status, resp.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectKey, "project", "", "Bitbucket project key")
	cmd.Flags().StringVar(&repoSlug, "repo", "", "repository slug")
	cmd.Flags().Int64Var(&prID, "pr", 0, "pull request ID")
	cmd.Flags().StringVar(&commitID, "commit", "", "commit SHA")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("repo")

	return cmd
}
