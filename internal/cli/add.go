package cli

import (
	"encoding/json"
	"fmt"

	"github.com/maltedev/fidget-scraper/internal/pipeline"
	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	var (
		group string
		entry pipeline.ManualEntry
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a hand-entered fidget to a group",
		Long: `Normalizes the given fields the same way scraped variants are, downloads
--image-url into the group's image folder when given, and appends one entry.`,
		Example: `  fidget-scraper add --group "Acme Spinners" --name "Orbit" \
    --dimensions 30x20x10 --weight 25 --material Ti --material "Zr+Cu"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.manualPipeline(cmd.Context())
			if err != nil {
				return err
			}

			added, err := p.AddManual(cmd.Context(), group, entry)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(added, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&group, "group", "g", "", "Catalog group (exact name)")
	cmd.Flags().StringVarP(&entry.Name, "name", "n", "", "Fidget name")
	cmd.Flags().StringVar(&entry.Dimensions, "dimensions", "", "Dimensions, e.g. 30x20x10")
	cmd.Flags().StringVar(&entry.Weight, "weight", "", "Weight, e.g. 25 or 25g")
	cmd.Flags().StringArrayVarP(&entry.Material, "material", "m", nil, "Material (repeatable)")
	cmd.Flags().StringVar(&entry.ButtonSize, "button-size", "", "Button size, e.g. 12")
	cmd.Flags().StringVar(&entry.ImageURL, "image-url", "", "Image to download into the group folder")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
