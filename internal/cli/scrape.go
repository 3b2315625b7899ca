package cli

import (
	"errors"
	"fmt"

	"github.com/maltedev/fidget-scraper/internal/pipeline"
	"github.com/spf13/cobra"
)

func newScrapeCmd() *cobra.Command {
	var (
		file  string
		group string
		urls  []string
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape product pages into catalog groups",
		Long: `Fetches every URL, extracts its variants and appends them to the group.

Tasks come from a YAML batch file (a list of {maker, urls}), from --group with
one or more --url flags, or both. Failures are logged and counted; they never
stop the rest of the batch.`,
		Example: `  # Scrape a batch file
  fidget-scraper scrape --file batch.yaml

  # Scrape two pages into one group
  fidget-scraper scrape --group "Acme Spinners" --url https://acme.test/orbit --url https://acme.test/nova`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := collectTasks(file, group, urls)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			p, err := a.scrapePipeline(ctx)
			if err != nil {
				return err
			}

			summary := p.Run(ctx, tasks)
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully processed %d out of %d URLs\n", summary.Succeeded, summary.Total)
			for _, res := range summary.Results {
				if !res.Success {
					fmt.Fprintf(cmd.OutOrStdout(), "  failed: %s (%s): %s\n", res.URL, res.Group, res.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML batch file of {maker, urls}")
	cmd.Flags().StringVarP(&group, "group", "g", "", "Catalog group for --url pages")
	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "Product page URL (repeatable)")

	return cmd
}

func collectTasks(file, group string, urls []string) ([]pipeline.Task, error) {
	var tasks []pipeline.Task
	if file != "" {
		batch, err := loadBatch(file)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, batch...)
	}

	if len(urls) > 0 {
		if group == "" {
			return nil, errors.New("--group is required with --url")
		}
		for _, u := range urls {
			tasks = append(tasks, pipeline.Task{URL: u, Group: group})
		}
	}

	if len(tasks) == 0 {
		return nil, errors.New("nothing to scrape: pass --file or --group with --url")
	}
	return tasks, nil
}
