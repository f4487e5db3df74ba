// Package catalog holds the objection taxonomy shared by the regex and
// semantic detectors: objection type → category → ordered patterns, plus an
// intensity weight per category.
//
// A [Catalog] is built once, validated, and never mutated afterwards. Both
// detectors receive the same value at construction time, so any pattern added
// to the catalog participates in both detection strategies.
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// DefaultIntensity is returned by [Catalog.Intensity] for unmapped categories.
const DefaultIntensity = 1

// ErrEmptyCatalog is returned by [New] when no pattern is defined.
var ErrEmptyCatalog = errors.New("catalog: no patterns defined")

// Type is one objection type with its categories in match order.
type Type struct {
	Name       string     `yaml:"name"`
	Categories []Category `yaml:"categories"`
}

// Category groups the patterns of one severity class within a type.
type Category struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
}

// Pattern is a compiled catalog pattern.
type Pattern struct {
	Source string
	Regexp *regexp.Regexp
}

// Group is one (type, category) cell of the catalog with its compiled
// patterns in catalog order.
type Group struct {
	Type      string
	Category  string
	Intensity int
	Patterns  []Pattern
}

// Catalog is an immutable, validated objection taxonomy.
type Catalog struct {
	types     []Type
	intensity map[string]int
	groups    []Group
	entries   []Entry
}

// New validates types and intensity, compiles every pattern and derives the
// phrase entries. Type names must be unique, category names must be unique
// within a type, and intensities must lie in [1,3].
func New(types []Type, intensity map[string]int) (*Catalog, error) {
	c := &Catalog{
		types:     cloneTypes(types),
		intensity: make(map[string]int, len(intensity)),
	}

	var errs []error
	for cat, v := range intensity {
		if v < 1 || v > 3 {
			errs = append(errs, fmt.Errorf("catalog: intensity of %q must be in [1,3], got %d", cat, v))
		}
		c.intensity[cat] = v
	}

	seenTypes := make(map[string]bool, len(types))
	total := 0
	for _, t := range c.types {
		if t.Name == "" {
			errs = append(errs, errors.New("catalog: type name must not be empty"))
			continue
		}
		if seenTypes[t.Name] {
			errs = append(errs, fmt.Errorf("catalog: duplicate type %q", t.Name))
			continue
		}
		seenTypes[t.Name] = true

		seenCats := make(map[string]bool, len(t.Categories))
		for _, cat := range t.Categories {
			if cat.Name == "" {
				errs = append(errs, fmt.Errorf("catalog: type %q: category name must not be empty", t.Name))
				continue
			}
			if seenCats[cat.Name] {
				errs = append(errs, fmt.Errorf("catalog: type %q: duplicate category %q", t.Name, cat.Name))
				continue
			}
			seenCats[cat.Name] = true

			g := Group{Type: t.Name, Category: cat.Name, Intensity: c.Intensity(cat.Name)}
			for _, src := range cat.Patterns {
				re, err := regexp.Compile(src)
				if err != nil {
					errs = append(errs, fmt.Errorf("catalog: %s/%s: pattern %q: %w", t.Name, cat.Name, src, err))
					continue
				}
				g.Patterns = append(g.Patterns, Pattern{Source: src, Regexp: re})
			}
			total += len(g.Patterns)
			c.groups = append(c.groups, g)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, ErrEmptyCatalog
	}

	c.entries = deriveEntries(c.groups)
	return c, nil
}

// Intensity returns the weight of category, or DefaultIntensity when the
// category has none.
func (c *Catalog) Intensity(category string) int {
	if v, ok := c.intensity[category]; ok {
		return v
	}
	return DefaultIntensity
}

// Groups returns the (type, category) cells in catalog order. The returned
// slice is a copy; the compiled regexps are safe for concurrent use.
func (c *Catalog) Groups() []Group {
	out := make([]Group, len(c.groups))
	for i, g := range c.groups {
		g.Patterns = slices.Clone(g.Patterns)
		out[i] = g
	}
	return out
}

// Types returns a deep copy of the raw taxonomy.
func (c *Catalog) Types() []Type {
	return cloneTypes(c.types)
}

// Entries returns a copy of the derived phrase entries in catalog order.
func (c *Catalog) Entries() []Entry {
	return slices.Clone(c.entries)
}

// PatternCount returns the number of compiled patterns.
func (c *Catalog) PatternCount() int {
	n := 0
	for _, g := range c.groups {
		n += len(g.Patterns)
	}
	return n
}

func cloneTypes(types []Type) []Type {
	out := make([]Type, len(types))
	for i, t := range types {
		cats := make([]Category, len(t.Categories))
		for j, cat := range t.Categories {
			cats[j] = Category{Name: cat.Name, Patterns: slices.Clone(cat.Patterns)}
		}
		out[i] = Type{Name: t.Name, Categories: cats}
	}
	return out
}
