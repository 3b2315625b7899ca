package normalize

import (
	"regexp"
	"strings"
)

var abbreviations = map[string]string{
	"ss":   "Stainless Steel",
	"ti":   "Titanium",
	"zr":   "Zirconium",
	"zirc": "Zirconium",
	"w":    "Tungsten",
	"cu":   "Copper",
	"sc":   "Superconductor",
	"cf":   "Carbon Fiber",
	"al":   "Aluminum",
}

// Longer abbreviations first.
var abbreviationOrder = []string{"zirc", "ss", "ti", "zr", "cu", "sc", "cf", "al", "w"}

var leadingAbbreviation = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(abbreviations))
	for abbr := range abbreviations {
		m[abbr] = regexp.MustCompile(`(?i)^` + abbr + `(?:\s|$)`)
	}
	return m
}()

// Material expands vendor shorthand: "Ti" becomes "Titanium", "Zr+W" becomes
// "Zirconium + Tungsten" and "ss polished" becomes "Stainless Steel polished".
func Material(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	if strings.ContainsAny(s, "+&") {
		sep := "&"
		if strings.Contains(s, "+") {
			sep = "+"
		}
		parts := strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == '&' })
		for i, p := range parts {
			p = strings.TrimSpace(p)
			if full, ok := abbreviations[strings.ToLower(p)]; ok {
				p = full
			}
			parts[i] = p
		}
		return strings.Join(parts, " "+sep+" ")
	}

	if full, ok := abbreviations[strings.ToLower(s)]; ok {
		return full
	}

	for _, abbr := range abbreviationOrder {
		re := leadingAbbreviation[abbr]
		if re.MatchString(s) {
			return strings.TrimSpace(re.ReplaceAllString(s, abbreviations[abbr]+" "))
		}
	}
	return s
}
