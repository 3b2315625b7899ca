// Package normalize turns loosely formatted vendor measurements and names
// into the catalog's display conventions.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const multiplication = "×"

// Dimensions appends "mm" when no unit is present and swaps an "x" separator
// for "×". Lengths in the value are not otherwise parsed.
func Dimensions(s string) string {
	s = strings.TrimSpace(s)
	if isUnset(s) {
		return s
	}

	lower := strings.ToLower(s)
	if !containsAny(lower, "mm", "cm", "in") {
		s += "mm"
	}
	if !strings.Contains(s, multiplication) && strings.Contains(s, "x") {
		s = strings.ReplaceAll(s, "x", multiplication)
	}
	return s
}

// ButtonSize appends "mm" when the value carries no length unit.
func ButtonSize(s string) string {
	s = strings.TrimSpace(s)
	if isUnset(s) {
		return s
	}
	if !containsAny(strings.ToLower(s), "mm", "cm", "in") {
		s += "mm"
	}
	return s
}

// Weight appends "g" unless "g", "oz" or "kg" already appears.
func Weight(s string) string {
	s = strings.TrimSpace(s)
	if isUnset(s) {
		return s
	}
	if !containsAny(strings.ToLower(s), "g", "oz", "kg") {
		s += "g"
	}
	return s
}

// OrDefault substitutes "Not specified" for an empty value.
func OrDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

const notSpecified = "Not specified"

// Name joins " - " separated parts with a space and title-cases every word.
func Name(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, " - ", " "))
	if s == "" {
		return s
	}
	return cases.Title(language.Und).String(s)
}

// Slug lowercases s and replaces anything outside [a-z0-9_-] with "_".
func Slug(s string) string {
	return slugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
}

var slugPattern = regexp.MustCompile(`[^a-z0-9_-]`)

func isUnset(s string) bool {
	return s == "" || strings.EqualFold(s, notSpecified)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
