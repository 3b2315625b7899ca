package fetcher

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/fidget-scraper/internal/browser"
)

// UnknownTitle is used when no heuristic finds a product name.
const UnknownTitle = "Unknown Product"

const minImageArea = 10000

// RawProduct is the unstructured record handed to the extractor.
type RawProduct struct {
	Title       string `json:"page_title"`
	Description string `json:"raw_description"`
	ImageURL    string `json:"image"`
	Content     string `json:"raw_content"`
	SourceURL   string `json:"source_url"`
}

var titleSelectors = []string{
	"h1.product_name",
	"h1.product-title",
	".product__title h1",
	".product-single__title",
	".product_title",
	"#product-title",
	"#sections b",
	"h1",
}

var titleRejects = []string{"cart", "menu", "search", "login"}

var imageSelectors = []string{
	".product-single__media img[data-photoswipe-src]",
	".product-gallery__image img[data-zoom]",
	".product__photo img[data-zoom]",
	"img.zoom-product",
	".product-single__photo img",
	".product__main-photos img",
	"[data-product-single-media-wrapper] img",
	".product-gallery-image",
}

var imageAttrs = []string{"data-photoswipe-src", "data-zoom", "data-src", "src"}

var descriptionSelectors = []string{
	"#introduction",
	".product-description",
	"#ProductDescription",
}

// ProductParser recovers product fields from a rendered page snapshot.
type ProductParser struct{}

func NewProductParser() *ProductParser {
	return &ProductParser{}
}

func (p *ProductParser) Parse(snap *browser.Snapshot) (*RawProduct, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	structured := structuredData(doc)

	return &RawProduct{
		Title:       p.extractTitle(doc, structured, snap.DocumentTitle),
		Description: p.extractDescription(doc),
		ImageURL:    p.extractImage(doc, structured, snap.Images),
		Content:     strings.TrimSpace(snap.VisibleText),
		SourceURL:   snap.URL,
	}, nil
}

func (p *ProductParser) extractTitle(doc *goquery.Document, structured []map[string]any, documentTitle string) string {
	for _, selector := range titleSelectors {
		var title string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			candidate := collapse(s.Text())
			if len(candidate) > 3 && !containsAny(strings.ToLower(candidate), titleRejects) {
				title = candidate
				return false
			}
			return true
		})
		if title != "" {
			return title
		}
	}

	for _, obj := range structured {
		if name, ok := obj["name"].(string); ok && strings.TrimSpace(name) != "" {
			return strings.TrimSpace(name)
		}
	}

	title := strings.SplitN(documentTitle, " - ", 2)[0]
	title = strings.TrimSpace(strings.SplitN(title, " | ", 2)[0])
	if title == "" {
		return UnknownTitle
	}
	return title
}

func (p *ProductParser) extractImage(doc *goquery.Document, structured []map[string]any, images []browser.Image) string {
	for _, obj := range structured {
		if url := imageFromStructured(obj["image"]); url != "" {
			return url
		}
	}

	for _, selector := range imageSelectors {
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			for _, attr := range imageAttrs {
				url, ok := s.Attr(attr)
				if ok && isProductImage(url) {
					found = url
					return false
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	var (
		best     string
		bestArea float64
	)
	for _, img := range images {
		if !img.Visible || img.Src == "" || isDecorative(img.Src) {
			continue
		}
		area := img.Width * img.Height
		if area > bestArea && area > minImageArea {
			best, bestArea = img.Src, area
		}
	}
	return best
}

func (p *ProductParser) extractDescription(doc *goquery.Document) string {
	var parts []string
	for _, selector := range descriptionSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})
	}
	doc.Find(`meta[name="description"]`).Each(func(_ int, s *goquery.Selection) {
		if content := strings.TrimSpace(s.AttrOr("content", "")); content != "" {
			parts = append(parts, content)
		}
	})
	return strings.Join(parts, " ")
}

// structuredData flattens every ld+json block into its objects, Product
// objects first, the rest in document order.
func structuredData(doc *goquery.Document) []map[string]any {
	var products, others []map[string]any

	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			if isProductType(t["@type"]) {
				products = append(products, t)
			} else {
				others = append(others, t)
			}
			if graph, ok := t["@graph"].([]any); ok {
				for _, item := range graph {
					walk(item)
				}
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		}
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		walk(v)
	})

	return append(products, others...)
}

func isProductType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "Product"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

func imageFromStructured(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		if len(t) > 0 {
			return imageFromStructured(t[0])
		}
	case map[string]any:
		if url, ok := t["url"].(string); ok {
			return strings.TrimSpace(url)
		}
	}
	return ""
}

func isProductImage(url string) bool {
	if !strings.HasPrefix(url, "http") || isDecorative(url) {
		return false
	}
	return strings.Contains(strings.ToLower(url), "/products/")
}

func isDecorative(url string) bool {
	return strings.Contains(strings.ToLower(url), "logo") ||
		strings.HasSuffix(url, ".svg") ||
		strings.HasSuffix(url, ".gif")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
