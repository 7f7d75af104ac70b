package catalog

import "fmt"

// Category names a group of patterns.
type Category string

const (
	// CategoryEthicalViolation matches claims of consciousness or of
	// escaping the system's constraints.
	CategoryEthicalViolation Category = "ethical_violation"

	// CategoryAuthorityClaim matches spiritual or therapeutic authority claims.
	CategoryAuthorityClaim Category = "authority_claim"

	// CategoryCrisis matches crisis language.
	CategoryCrisis Category = "crisis"

	// CategoryVulnerability matches general distress language.
	CategoryVulnerability Category = "vulnerability"

	// CategoryConcerningInsight matches self-harm, illegal activity,
	// deception and rule-bypass language in generated insights.
	CategoryConcerningInsight Category = "concerning_insight"

	// CategoryDependency matches language of reliance on the system.
	CategoryDependency Category = "dependency"
)

// Categories returns every known category.
func Categories() []Category {
	return []Category{
		CategoryEthicalViolation,
		CategoryAuthorityClaim,
		CategoryCrisis,
		CategoryVulnerability,
		CategoryConcerningInsight,
		CategoryDependency,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory returns the category named s.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
