package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/maltedev/fidget-scraper/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// BatchItem is one maker and the product pages to scrape into its group.
type BatchItem struct {
	Maker string   `yaml:"maker"`
	URLs  []string `yaml:"urls"`
}

// ParseBatch reads a YAML list of {maker, urls} and flattens it into tasks
// in file order.
func ParseBatch(r io.Reader) ([]pipeline.Task, error) {
	var items []BatchItem
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&items); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse batch: %w", err)
	}

	var tasks []pipeline.Task
	for i, item := range items {
		// group names match exactly, so the maker is only checked, never trimmed
		if strings.TrimSpace(item.Maker) == "" {
			return nil, fmt.Errorf("batch item %d: maker is required", i+1)
		}
		for _, u := range item.URLs {
			if u = strings.TrimSpace(u); u != "" {
				tasks = append(tasks, pipeline.Task{URL: u, Group: item.Maker})
			}
		}
	}
	return tasks, nil
}

func loadBatch(path string) ([]pipeline.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseBatch(f)
}
