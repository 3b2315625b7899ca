package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/maltedev/fidget-scraper/internal/normalize"
	"github.com/spf13/cobra"
)

func newGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Inspect and create catalog groups",
	}

	cmd.AddCommand(newGroupsListCmd())
	cmd.AddCommand(newGroupsCreateCmd())

	return cmd
}

func newGroupsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List groups with their image folder and entry count",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.store.Load()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tFOLDER\tFIDGETS")
			for _, g := range c.Groups {
				folder, ok := g.ImageFolder()
				if !ok {
					folder = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\n", g.Name, folder, len(g.Fidgets))
			}
			return w.Flush()
		},
	}
}

func newGroupsCreateCmd() *cobra.Command {
	var slug, link string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Add an empty group to the catalog",
		Long: `Creates the catalog file if it does not exist yet, then appends an empty
group whose images live under images/<slug>/.`,
		Example: `  fidget-scraper groups create "Acme Spinners" --link https://acme.test`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.store.Init(); err != nil {
				return err
			}

			name := args[0]
			if slug == "" {
				slug = normalize.Slug(name)
			}

			g, err := a.store.CreateGroup(name, slug, link)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created group %q with image %s\n", g.Name, g.Image)
			return nil
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "Image folder name (default: slugified name)")
	cmd.Flags().StringVar(&link, "link", "", "Maker website")

	return cmd
}
