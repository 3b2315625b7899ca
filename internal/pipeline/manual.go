package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/maltedev/fidget-scraper/internal/catalog"
	"github.com/maltedev/fidget-scraper/internal/normalize"
)

var ErrInvalidEntry = errors.New("invalid entry")

// ManualEntry is a hand-entered fidget, as typed by an operator.
type ManualEntry struct {
	Name       string   `json:"name"`
	Dimensions string   `json:"dimensions"`
	Weight     string   `json:"weight"`
	Material   []string `json:"material"`
	ButtonSize string   `json:"button_size,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
}

func (m ManualEntry) validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEntry)
	}
	for _, mat := range m.Material {
		if strings.TrimSpace(mat) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: at least one material is required", ErrInvalidEntry)
}

// AddManual normalizes m the same way scraped variants are and appends it to
// group. An http(s) image is downloaded as "<name>_<materials>" and a failed
// download aborts the add; any other image value is kept as a local path.
func (p *Pipeline) AddManual(ctx context.Context, group string, m ManualEntry) (*catalog.Entry, error) {
	if strings.TrimSpace(group) == "" {
		return nil, fmt.Errorf("%w: group is required", ErrInvalidEntry)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}

	var materials []string
	for _, mat := range m.Material {
		if mat = strings.TrimSpace(mat); mat != "" {
			materials = append(materials, normalize.Material(mat))
		}
	}

	image, err := p.manualImage(ctx, group, strings.TrimSpace(m.ImageURL), m.Name+"_"+strings.Join(materials, "_"))
	if err != nil {
		return nil, err
	}

	entry := catalog.Entry{
		Name:       normalize.Name(m.Name),
		Image:      image,
		Dimensions: normalize.OrDefault(normalize.Dimensions(m.Dimensions)),
		Weight:     normalize.OrDefault(normalize.Weight(m.Weight)),
		Material:   materials,
		ButtonSize: normalize.ButtonSize(m.ButtonSize),
	}

	if err := p.deps.Catalog.AppendEntries(ctx, group, []catalog.Entry{entry}); err != nil {
		return nil, err
	}
	p.logger.Info("Added entry", "group", group, "name", entry.Name)
	return &entry, nil
}

func (p *Pipeline) manualImage(ctx context.Context, group, image, name string) (string, error) {
	if !strings.HasPrefix(strings.ToLower(image), "http") || p.deps.Images == nil {
		return image, nil
	}
	rel, err := p.deps.Images.Download(ctx, image, group, name)
	if err != nil {
		return "", fmt.Errorf("download image for %q: %w", name, err)
	}
	return path.Join(p.opts.ImagePrefix, rel), nil
}
