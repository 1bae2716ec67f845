package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/fatih/color"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/storage"
	"github.com/spf13/cobra"
)

func failuresCmd() *cobra.Command {
	var (
		unresolved bool
		limit      int
		offset     int
	)

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "List recorded pipeline failures",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/failures"
			if unresolved {
				path = "/failures/unresolved"
			}
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			if offset > 0 {
				q.Set("offset", strconv.Itoa(offset))
			}

			var resp struct {
				Failures []storage.FailureRecord `json:"failures"`
			}
			if err := newClient().getJSON(path+"?"+q.Encode(), &resp); err != nil {
				return err
			}
			if len(resp.Failures) == 0 {
				fmt.Println("No failures found")
				return nil
			}

			table := newTable([]string{"ID", "STAGE", "REPO", "ERROR", "RESOLVED", "CREATED"})
			for _, f := range resp.Failures {
				repo := "-"
				if f.ProjectKey != "" {
					repo = f.ProjectKey + "/" + f.RepoSlug
				}
				msg := f.ErrorMessage
				if len(msg) > 60 {
					msg = msg[:57] + "..."
				}
				table.Append([]string{
					strconv.FormatInt(f.ID, 10),
					f.Stage,
					repo,
					msg,
					yesNo(f.Resolved),
					f.CreatedAt.Format("2006-01-02 15:04"),
				})
			}
			return table.Render()
		},
	}

	cmd.Flags().BoolVar(&unresolved, "unresolved", false, "only show unresolved failures")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of failures")
	cmd.Flags().IntVar(&offset, "offset", 0, "pagination offset")

	return cmd
}

func resolveCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "resolve <failure-id>",
		Short: "Mark a recorded failure as resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid failure id %q", args[0])
			}

			req := map[string]interface{}{"failure_id": id}
			if notes != "" {
				req["notes"] = notes
			}
			if err := newClient().postJSON("/failures/resolve", req, nil); err != nil {
				return err
			}
			color.Green("Failure #%d resolved", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "resolution notes")

	return cmd
}
