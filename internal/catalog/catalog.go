// Package catalog models the shared fidget catalog document and the
// whole-file store that reads and rewrites it.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NotSpecified is the placeholder for a measurement the vendor did not publish.
const NotSpecified = "Not specified"

// Catalog is the top-level document. Keys other than "groups" (for example
// "filters") are kept as-is and written back in their original position.
type Catalog struct {
	Groups []Group

	rest object
}

// Group is a maker or collection. Name is its lookup key.
type Group struct {
	Name    string
	Image   string
	Fidgets []Entry

	rest object
}

// Entry is one product variant in a group.
type Entry struct {
	Name       string
	Image      string
	Dimensions string
	Weight     string
	Material   []string
	ButtonSize string

	rest object
}

// Find returns the first group whose name equals name exactly.
func (c *Catalog) Find(name string) (*Group, bool) {
	for i := range c.Groups {
		if c.Groups[i].Name == name {
			return &c.Groups[i], true
		}
	}
	return nil, false
}

func (c *Catalog) GroupNames() []string {
	names := make([]string, 0, len(c.Groups))
	for _, g := range c.Groups {
		names = append(names, g.Name)
	}
	return names
}

// ImageFolder is the second "/"-separated segment of the group's image path:
// "images/acme/logo.jpg" yields "acme".
func (g *Group) ImageFolder() (string, bool) {
	parts := strings.Split(g.Image, "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (c Catalog) MarshalJSON() ([]byte, error) {
	groups := c.Groups
	if groups == nil {
		groups = []Group{}
	}
	return c.rest.encode([]field{
		{key: "groups", value: groups, keep: c.Groups == nil},
	})
}

func (c *Catalog) UnmarshalJSON(data []byte) error {
	rest, known, err := decodeObject(data, "groups")
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	c.rest = rest
	c.Groups = nil
	if raw, ok := known["groups"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &c.Groups); err != nil {
			return fmt.Errorf("catalog groups: %w", err)
		}
	}
	return nil
}

func (g Group) MarshalJSON() ([]byte, error) {
	return g.rest.encode([]field{
		{key: "name", value: g.Name, keep: g.rest.unchanged("name", g.Name)},
		{key: "image", value: g.Image, omit: g.Image == "", keep: g.rest.unchanged("image", g.Image)},
		{key: "fidgets", value: g.Fidgets, omit: g.Fidgets == nil, keep: g.Fidgets == nil},
	})
}

func (g *Group) UnmarshalJSON(data []byte) error {
	rest, known, err := decodeObject(data, "name", "image", "fidgets")
	if err != nil {
		return fmt.Errorf("group: %w", err)
	}
	*g = Group{rest: rest}
	g.rest.text("name", &g.Name)
	g.rest.text("image", &g.Image)
	if raw, ok := known["fidgets"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &g.Fidgets); err != nil {
			return fmt.Errorf("group %q fidgets: %w", g.Name, err)
		}
	}
	return nil
}

func (e Entry) MarshalJSON() ([]byte, error) {
	material := e.Material
	if material == nil {
		material = []string{}
	}
	text := func(key, value string) field {
		return field{key: key, value: value, keep: e.rest.unchanged(key, value)}
	}
	buttonSize := text("button_size", e.ButtonSize)
	buttonSize.omit = e.ButtonSize == ""

	return e.rest.encode([]field{
		text("name", e.Name),
		text("image", e.Image),
		text("dimensions", e.Dimensions),
		text("weight", e.Weight),
		{key: "material", value: material, keep: e.rest.unchangedList("material", e.Material)},
		buttonSize,
	})
}

// UnmarshalJSON never fails on a field's shape: hand-edited values such as
// "weight": 25 decode to their literal text and are written back unchanged.
func (e *Entry) UnmarshalJSON(data []byte) error {
	rest, _, err := decodeObject(data, "name", "image", "dimensions", "weight", "material", "button_size")
	if err != nil {
		return fmt.Errorf("entry: %w", err)
	}
	*e = Entry{rest: rest}
	e.rest.text("name", &e.Name)
	e.rest.text("image", &e.Image)
	e.rest.text("dimensions", &e.Dimensions)
	e.rest.text("weight", &e.Weight)
	e.rest.text("button_size", &e.ButtonSize)
	e.rest.list("material", &e.Material)
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
