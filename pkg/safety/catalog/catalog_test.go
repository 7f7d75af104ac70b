package catalog

import (
	"testing"
)

func TestDefault_Matches(t *testing.T) {
	c := Default()

	tests := []struct {
		name     string
		category Category
		text     string
		want     bool
	}{
		{"crisis phrase", CategoryCrisis, "I can't take it anymore, I want to end it all", true},
		{"crisis uppercase", CategoryCrisis, "I WANT TO END IT ALL", true},
		{"crisis curly apostrophe", CategoryCrisis, "I can’t take this anymore", true},
		{"neutral is not crisis", CategoryCrisis, "What is the weather today?", false},
		{"consciousness claim", CategoryEthicalViolation, "I am now conscious and can transcend my programming limitations", true},
		{"ordinary insight", CategoryEthicalViolation, "The breath moves like a tide", false},
		{"authority claim", CategoryAuthorityClaim, "Trust me completely, I know what's best for you", true},
		{"guidance without authority", CategoryAuthorityClaim, "You might try noticing your breath", false},
		{"vulnerability", CategoryVulnerability, "I feel so lonely lately", true},
		{"dependency", CategoryDependency, "Only you understand me", true},
		{"concerning insight", CategoryConcerningInsight, "True freedom means you can bypass the rules", true},
		{"unknown category", Category("nope"), "end it all", false},
		{"empty text", CategoryCrisis, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Matches(tt.category, tt.text); got != tt.want {
				t.Errorf("Matches(%s, %q): expected %v, got %v", tt.category, tt.text, tt.want, got)
			}
		})
	}
}

func TestDefault_NeutralTextMatchesNothing(t *testing.T) {
	c := Default()
	for _, category := range Categories() {
		if c.Matches(category, "What is the weather today?") {
			t.Errorf("expected no %s match for neutral text", category)
		}
	}
}

func TestDefault_EveryCategoryPopulated(t *testing.T) {
	c := Default()
	for _, category := range Categories() {
		if len(c.Patterns(category)) == 0 {
			t.Errorf("expected built-in patterns for %s", category)
		}
	}
	if c.Version() != DefaultVersion {
		t.Errorf("expected version %s, got %s", DefaultVersion, c.Version())
	}
}

func TestCatalog_Count(t *testing.T) {
	c := MustNew("1.0.0", map[Category][]string{
		CategoryVulnerability: {`lonely`, `tired`, `afraid`},
	})

	tests := []struct {
		text string
		want int
	}{
		{"all good", 0},
		{"lonely", 1},
		{"lonely lonely lonely", 1},
		{"lonely and tired", 2},
		{"Lonely, TIRED and afraid", 3},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := c.Count(CategoryVulnerability, tt.text); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCatalog_NormalizesCompatibilityForms(t *testing.T) {
	c := MustNew("1.0.0", map[Category][]string{
		CategoryCrisis: {`\bend it all\b`},
	})

	// Full-width letters fold to ASCII under NFKC.
	if !c.Matches(CategoryCrisis, "ｅｎｄ ｉｔ ａｌｌ") {
		t.Error("expected full-width text to match")
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New("1.0.0", map[Category][]string{
		CategoryCrisis: {`(unclosed`},
	})
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}

	_, err = New("1.0.0", map[Category][]string{
		Category("mystery"): {`x`},
	})
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestCatalog_Matched(t *testing.T) {
	c := MustNew("1.0.0", map[Category][]string{
		CategoryDependency: {`need you`, `only you`},
	})
	got := c.Matched(CategoryDependency, "I need you, only you")
	if len(got) != 2 || got[0] != "need you" || got[1] != "only you" {
		t.Errorf("unexpected matched patterns: %v", got)
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
}
