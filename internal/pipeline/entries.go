package pipeline

import (
	"context"
	"path"

	"github.com/maltedev/fidget-scraper/internal/catalog"
	"github.com/maltedev/fidget-scraper/internal/extractor"
	"github.com/maltedev/fidget-scraper/internal/fetcher"
	"github.com/maltedev/fidget-scraper/internal/normalize"
)

// BuildEntries turns an extracted product into one catalog entry per
// variant. Each variant's image is downloaded into the group folder; when
// that fails the entry keeps the remote URL.
func (p *Pipeline) BuildEntries(ctx context.Context, group string, raw *fetcher.RawProduct, product *extractor.Product) []catalog.Entry {
	name := product.Name.String()
	if name == "" && raw != nil {
		name = raw.Title
	}

	imageURL := product.Image.String()
	if imageURL == "" && raw != nil {
		imageURL = raw.ImageURL
	}

	dimensions := normalize.OrDefault(normalize.Dimensions(product.Dimensions.String()))
	buttonSize := normalize.OrDefault(normalize.ButtonSize(product.ButtonSize.String()))

	var entries []catalog.Entry
	for _, v := range product.Variants {
		if v.Material == "" || v.Weight == "" {
			continue
		}
		material := normalize.Material(v.Material.String())

		entries = append(entries, catalog.Entry{
			Name:       normalize.Name(name),
			Image:      p.variantImage(ctx, group, imageURL, name+"_"+material),
			Dimensions: dimensions,
			Weight:     normalize.OrDefault(normalize.Weight(v.Weight.String())),
			Material:   []string{material},
			ButtonSize: buttonSize,
		})
	}
	return entries
}

func (p *Pipeline) variantImage(ctx context.Context, group, url, name string) string {
	if url == "" || p.deps.Images == nil {
		return url
	}
	rel, err := p.deps.Images.Download(ctx, url, group, name)
	if err != nil {
		p.logger.Warn("Keeping remote image URL", "url", url, "group", group, "error", err)
		return url
	}
	return path.Join(p.opts.ImagePrefix, rel)
}
