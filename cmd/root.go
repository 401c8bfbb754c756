// Package cmd implements the command-line interface for jobradar.
// It provides the root command and subcommands for scraping, liveness
// sweeps, and ranking.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jobradar/jobradar/cmd/common"
	"github.com/jobradar/jobradar/cmd/rank"
	"github.com/jobradar/jobradar/cmd/scrape"
	"github.com/jobradar/jobradar/cmd/sweep"
)

var (
	opts = &common.Options{}

	rootCmd = &cobra.Command{
		Use:   "jobradar",
		Short: "Job posting discovery, verification, and ranking",
		Long: `jobradar discovers job postings from company career pages and ATS
job boards, deduplicates and persists them, verifies they are still open,
scores ghost-job likelihood, and ranks them per candidate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment overrides are visible to config
	// loading in every subcommand.
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "",
		"config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jobradar version %s\n", common.Version)
		},
	})

	rootCmd.AddCommand(scrape.Command(opts))
	rootCmd.AddCommand(sweep.Command(opts))
	rootCmd.AddCommand(rank.Command(opts))
}
