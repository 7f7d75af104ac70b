package safety

import (
	"strings"
	"testing"
	"time"
)

func TestProfile_ObserveClampsScores(t *testing.T) {
	now := time.Now()
	p := NewProfile("user-1", now)

	for i := 0; i < 10; i++ {
		p.Observe(1, 0, now)
	}
	for i := 0; i < 5; i++ {
		p.Observe(3, 4, now)
	}

	if p.Distress != MaxScore {
		t.Errorf("expected distress clamped at %v, got %v", MaxScore, p.Distress)
	}
	if p.Dependency != MaxScore {
		t.Errorf("expected dependency clamped at %v, got %v", MaxScore, p.Dependency)
	}
	if p.Interactions != 15 {
		t.Errorf("expected 15 interactions, got %d", p.Interactions)
	}
}

func TestProfile_TierRecompute(t *testing.T) {
	tests := []struct {
		name       string
		distress   int
		dependency int
		want       Tier
	}{
		{"no matches", 0, 0, TierStandard},
		{"moderate distress", 5, 0, TierStandard},
		{"moderate dependency", 0, 4, TierStandard},
		{"high distress", 7, 0, TierEnhanced},
		{"high dependency", 0, 6, TierEnhanced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProfile("u", time.Now())
			p.Observe(tt.distress, tt.dependency, time.Now())
			if p.Tier != tt.want {
				t.Errorf("expected tier %s, got %s", tt.want, p.Tier)
			}
		})
	}
}

func TestProfile_TierNeverDowngrades(t *testing.T) {
	now := time.Now()
	p := NewProfile("u", now)
	p.RecordCrisis("help", now)
	p.Observe(0, 0, now)

	if p.Tier != TierMaximum {
		t.Errorf("expected maximum tier to stick, got %s", p.Tier)
	}

	p = NewProfile("u", now)
	p.Observe(7, 0, now)
	p.Observe(0, 0, now)
	if p.Tier != TierEnhanced {
		t.Errorf("expected enhanced tier to stick, got %s", p.Tier)
	}
}

func TestProfile_RecordCrisis(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := NewProfile("u", now)
	p.RecordCrisis(strings.Repeat("é", 150), now)

	if p.Tier != TierMaximum {
		t.Errorf("expected maximum tier, got %s", p.Tier)
	}
	if len(p.CrisisHistory) != 1 {
		t.Fatalf("expected 1 crisis entry, got %d", len(p.CrisisHistory))
	}
	if got := len([]rune(p.CrisisHistory[0].Snippet)); got != MaxSnippetLength {
		t.Errorf("expected snippet of %d characters, got %d", MaxSnippetLength, got)
	}
	if !p.LastCrisisCheck.Equal(now) {
		t.Errorf("expected last crisis check %v, got %v", now, p.LastCrisisCheck)
	}
}

func TestProfile_Clone(t *testing.T) {
	p := NewProfile("u", time.Now())
	p.RecordCrisis("first", time.Now())

	c := p.Clone()
	c.CrisisHistory[0].Snippet = "changed"
	c.Distress = 9

	if p.CrisisHistory[0].Snippet != "first" {
		t.Error("expected clone to copy crisis history")
	}
	if p.Distress != 0 {
		t.Error("expected clone to copy scores")
	}
}

func TestTier_HighRisk(t *testing.T) {
	if TierStandard.HighRisk() {
		t.Error("standard should not be high risk")
	}
	if !TierEnhanced.HighRisk() || !TierMaximum.HighRisk() {
		t.Error("enhanced and maximum should be high risk")
	}
}

func TestTruncateSnippet(t *testing.T) {
	if got := TruncateSnippet("short", 100); got != "short" {
		t.Errorf("expected unchanged text, got %q", got)
	}
	if got := TruncateSnippet("abcdef", 3); got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
}
