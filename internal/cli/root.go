// Package cli wires the fidget-scraper commands.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fidget-scraper",
		Short: "Scrape vendor fidget pages into the shared catalog",
		Long: `fidget-scraper loads vendor product pages in a headless browser, asks a
language model to turn each page into a product with variants, normalizes the
measurements and appends one entry per variant to the group in data.json.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newGroupsCmd())

	return cmd
}
