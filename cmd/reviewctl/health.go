package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon and dependency health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Healthy    bool   `json:"healthy"`
				Uptime     string `json:"uptime"`
				Version    string `json:"version"`
				Components []struct {
					Name    string `json:"name"`
					Healthy bool   `json:"healthy"`
					Message string `json:"message"`
				} `json:"components"`
			}
			// A degraded daemon answers 503 with the same body, so read
			// it directly instead of treating the status as an error.
			client := newClient()
			httpResp, err := client.http.Get(client.baseURL + "/health")
			if err != nil {
				return fmt.Errorf("is reviewd running at %s? %w", client.baseURL, err)
			}
			defer httpResp.Body.Close()
			body, err := io.ReadAll(httpResp.Body)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("unexpected response (%d): %s", httpResp.StatusCode, body)
			}

			if resp.Healthy {
				color.Green("reviewd %s healthy (up %s)", resp.Version, resp.Uptime)
			} else {
				color.Red("reviewd %s degraded (up %s)", resp.Version, resp.Uptime)
			}
			for _, c := range resp.Components {
				mark := color.GreenString("ok")
				if !c.Healthy {
					mark = color.RedString("fail")
				}
				fmt.Printf("  %-10s %s", c.Name, mark)
				if c.Message != "" {
					fmt.Printf("  %s", c.Message)
				}
				fmt.Println()
			}
			return nil
		},
	}
}
