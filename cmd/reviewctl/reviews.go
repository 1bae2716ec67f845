package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/storage"
	"github.com/spf13/cobra"
)

func reviewsCmd() *cobra.Command {
	var (
		projectKey string
		repoSlug   string
		commitID   string
		prID       int64
		limit      int
		offset     int
	)

	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "List stored reviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			if offset > 0 {
				q.Set("offset", strconv.Itoa(offset))
			}
			if projectKey != "" {
				q.Set("project_key", projectKey)
			}
			if repoSlug != "" {
				q.Set("repo_slug", repoSlug)
			}
			if commitID != "" {
				q.Set("commit_id", commitID)
			}
			if prID != 0 {
				q.Set("pr_id", strconv.FormatInt(prID, 10))
			}

			var resp struct {
				Reviews []storage.ReviewRecord `json:"reviews"`
			}
			if err := newClient().getJSON("/reviews?"+q.Encode(), &resp); err != nil {
				return err
			}
			if len(resp.Reviews) == 0 {
				fmt.Println("No reviews found")
				return nil
			}

			table := newTable([]string{"ID", "REPO", "TARGET", "TYPE", "TRIGGER", "EMAIL", "CREATED"})
			for _, rec := range resp.Reviews {
				table.Append([]string{
					strconv.FormatInt(rec.ID, 10),
					rec.ProjectKey + "/" + rec.RepoSlug,
					reviewTarget(rec),
					string(rec.ReviewType),
					string(rec.TriggerType),
					yesNo(rec.EmailSent),
					rec.CreatedAt.Format("2006-01-02 15:04"),
				})
			}
			return table.Render()
		},
	}

	cmd.Flags().StringVar(&projectKey, "project", "", "filter by project key")
	cmd.Flags().StringVar(&repoSlug, "repo", "", "filter by repository slug")
	cmd.Flags().StringVar(&commitID, "commit", "", "filter by commit SHA")
	cmd.Flags().Int64Var(&prID, "pr", 0, "filter by pull request ID")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of reviews")
	cmd.Flags().IntVar(&offset, "offset", 0, "pagination offset")

	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <review-id>",
		Short: "Show a stored review in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid review id %q", args[0])
			}

			var rec storage.ReviewRecord
			if err := newClient().getJSON(fmt.Sprintf("/review?id=%d", id), &rec); err != nil {
				return err
			}

			fmt.Printf("Review #%d  %s/%s %s\n", rec.ID, rec.ProjectKey, rec.RepoSlug, reviewTarget(rec))
			if rec.AuthorName != "" || rec.AuthorEmail != "" {
				fmt.Printf("Author: %s <%s>\n", rec.AuthorName, rec.AuthorEmail)
			}
			fmt.Printf("Type: %s  Trigger: %s  Provider: %s (%s)\n",
				rec.ReviewType, rec.TriggerType, rec.LLMProvider, rec.LLMModel)
			fmt.Printf("Diff: %d bytes, +%d -%d  Email sent: %s\n",
				rec.DiffSize, rec.AddedLines, rec.RemovedLines, yesNo(rec.EmailSent))
			fmt.Printf("Created: %s\n\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Println(rec.ReviewFeedback)
			return nil
		},
	}
}

func reviewTarget(rec storage.ReviewRecord) string {
	if rec.PRID != nil {
		return fmt.Sprintf("PR #%d", *rec.PRID)
	}
	if rec.CommitID != nil {
		sha := *rec.CommitID
		if len(sha) > 8 {
			sha = sha[:8]
		}
		return sha
	}
	return "-"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
