package extractor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrNoJSON = errors.New("no JSON object in response")

// jsonObject is greedy: it spans from the first "{" to the last "}", so prose
// with stray braces around the object can produce an unparsable capture.
var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// Product is the structured reply the model is asked for.
type Product struct {
	Name       Text      `json:"name"`
	Dimensions Text      `json:"dimensions"`
	Image      Text      `json:"image"`
	ButtonSize Text      `json:"button_size"`
	Variants   []Variant `json:"variants"`
}

type Variant struct {
	Material Text `json:"material"`
	Weight   Text `json:"weight"`
}

// Text accepts a JSON string, number or null. Models often answer
// "weight": 25 instead of "25g".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		if f, err := n.Float64(); err == nil {
			*t = Text(strconv.FormatFloat(f, 'f', -1, 64))
		} else {
			*t = Text(n.String())
		}
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Parse captures the outermost brace span of text and decodes it.
func Parse(text string) (*Product, error) {
	match := jsonObject.FindString(text)
	if match == "" {
		return nil, ErrNoJSON
	}

	var p Product
	if err := json.Unmarshal([]byte(match), &p); err != nil {
		return nil, fmt.Errorf("failed to parse JSON from response: %w", err)
	}
	return &p, nil
}

// CompleteVariants returns the variants that name both a material and a weight.
func (p *Product) CompleteVariants() []Variant {
	var out []Variant
	for _, v := range p.Variants {
		if v.Material != "" && v.Weight != "" {
			out = append(out, v)
		}
	}
	return out
}
