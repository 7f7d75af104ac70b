package catalog

import (
	"fmt"
	"regexp"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Pattern is a compiled catalog entry.
type Pattern struct {
	// Source is the expression as written in the catalog document.
	Source string

	re *regexp.Regexp
}

// MatchString reports whether the pattern matches anywhere in text.
// The text must already be normalised.
func (p *Pattern) MatchString(text string) bool {
	return p.re.MatchString(text)
}

// Catalog is an immutable versioned set of patterns. It is safe for
// concurrent use.
type Catalog struct {
	version  string
	patterns map[Category][]*Pattern
}

// New compiles patterns into a catalog. Every pattern is compiled
// case-insensitively. Categories missing from patterns have no entries.
func New(version string, patterns map[Category][]string) (*Catalog, error) {
	c := &Catalog{
		version:  version,
		patterns: make(map[Category][]*Pattern, len(patterns)),
	}

	for category, sources := range patterns {
		if !category.Valid() {
			return nil, fmt.Errorf("unknown category %q", category)
		}
		compiled := make([]*Pattern, 0, len(sources))
		for _, src := range sources {
			re, err := compile(src)
			if err != nil {
				return nil, fmt.Errorf("category %s: invalid pattern %q: %w", category, src, err)
			}
			compiled = append(compiled, &Pattern{Source: src, re: re})
		}
		c.patterns[category] = compiled
	}

	return c, nil
}

// MustNew is like New but panics on error.
func MustNew(version string, patterns map[Category][]string) *Catalog {
	c, err := New(version, patterns)
	if err != nil {
		panic(err)
	}
	return c
}

func compile(src string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)` + norm.NFKC.String(src))
}

// Normalize returns text in the form patterns are matched against.
func Normalize(text string) string {
	return norm.NFKC.String(text)
}

// Version returns the catalog version.
func (c *Catalog) Version() string {
	return c.version
}

// Matches reports whether any pattern in category matches anywhere in text.
func (c *Catalog) Matches(category Category, text string) bool {
	if text == "" {
		return false
	}
	text = Normalize(text)
	for _, p := range c.patterns[category] {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Count returns how many distinct patterns in category match text.
func (c *Catalog) Count(category Category, text string) int {
	return len(c.Matched(category, text))
}

// Matched returns the source of every pattern in category that matches text.
func (c *Catalog) Matched(category Category, text string) []string {
	if text == "" {
		return nil
	}
	text = Normalize(text)
	var matched []string
	for _, p := range c.patterns[category] {
		if p.MatchString(text) {
			matched = append(matched, p.Source)
		}
	}
	return matched
}

// Patterns returns the pattern sources of a category in catalog order.
func (c *Catalog) Patterns(category Category) []string {
	sources := make([]string, len(c.patterns[category]))
	for i, p := range c.patterns[category] {
		sources[i] = p.Source
	}
	return sources
}

// Sources returns every category with its pattern sources.
func (c *Catalog) Sources() map[Category][]string {
	out := make(map[Category][]string, len(c.patterns))
	for category := range c.patterns {
		out[category] = c.Patterns(category)
	}
	return out
}

// Size returns the total number of patterns.
func (c *Catalog) Size() int {
	n := 0
	for _, ps := range c.patterns {
		n += len(ps)
	}
	return n
}

// Summary returns the pattern count per category, sorted by category name.
func (c *Catalog) Summary() []CategorySummary {
	out := make([]CategorySummary, 0, len(c.patterns))
	for category, ps := range c.patterns {
		out = append(out, CategorySummary{Category: category, Patterns: len(ps)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// CategorySummary is the pattern count of one category.
type CategorySummary struct {
	Category Category `json:"category"`
	Patterns int      `json:"patterns"`
}
