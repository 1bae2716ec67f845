package main

import (
	"fmt"
	"os"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/version"
	"github.com/spf13/cobra"
)

var serverAddr string

func main() {
	rootCmd := &cobra.Command{
		Use:   "reviewctl",
		Short: "Control the AI code review daemon",
		Long:  "reviewctl talks to a running reviewd instance: trigger reviews, upload diffs, and inspect stored reviews and failures",
	}

	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "http://127.0.0.1:8373", "reviewd server address")

	rootCmd.AddCommand(triggerCmd())
	rootCmd.AddCommand(uploadCmd())
	rootCmd.AddCommand(reviewsCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(failuresCmd())
	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the reviewctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("reviewctl %s\n", version.Version)
		},
	}
}
