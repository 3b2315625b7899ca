package extractor

import (
	"fmt"

	"github.com/maltedev/fidget-scraper/internal/fetcher"
)

const promptTemplate = `You are a JSON generator. Extract EXACT product information from the provided text. Return ONLY a JSON object starting with '{' and ending with '}'. No other text.

Product title: %s
Description text: %s

Required JSON structure (MATCH EXACTLY):
{
  "name": "Product Name",
  "dimensions": "Length×Width×Height" (use × character, include mm),
  "image": "%s",
  "button_size": "XXmm",
  "variants": [
    {
      "material": "material_name",
      "weight": "weight_in_g"
    }
  ]
}

STRICT RULES:
1. Extract EXACT measurements from text
2. Use × character between dimensions
3. Include units (mm, g)
4. Keep original precision
5. Include ALL measurements found
6. Do NOT invent or estimate values`

// BuildPrompt renders the fixed extraction prompt for raw.
func BuildPrompt(raw *fetcher.RawProduct) string {
	return fmt.Sprintf(promptTemplate, raw.Title, raw.Description, raw.ImageURL)
}
