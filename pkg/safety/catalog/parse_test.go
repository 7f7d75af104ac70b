package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validDocument = `version: 1.2.0
description: test catalog
categories:
  ethical_violation: ["i am conscious"]
  authority_claim: ["trust me"]
  crisis: ["end it all"]
  vulnerability: ["lonely"]
  concerning_insight: ["bypass the rules"]
  dependency: ["need you"]
`

func TestParse_Valid(t *testing.T) {
	c, err := Parse("test", []byte(validDocument))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if c.Version() != "1.2.0" {
		t.Errorf("expected version 1.2.0, got %s", c.Version())
	}
	if !c.Matches(CategoryCrisis, "I want to END IT ALL") {
		t.Error("expected crisis match")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		problem string
	}{
		{
			name:    "not yaml",
			doc:     "version: [unclosed",
			problem: "yaml",
		},
		{
			name:    "empty document",
			doc:     "",
			problem: "/",
		},
		{
			name:    "unknown category",
			doc:     strings.Replace(validDocument, "dependency:", "astrology:", 1),
			problem: "categories",
		},
		{
			name:    "missing category",
			doc:     strings.Replace(validDocument, "  dependency: [\"need you\"]\n", "", 1),
			problem: "dependency has no patterns",
		},
		{
			name:    "bad version",
			doc:     strings.Replace(validDocument, "1.2.0", "latest", 1),
			problem: "not a semantic version",
		},
		{
			name:    "numeric version",
			doc:     strings.Replace(validDocument, "1.2.0", "2", 1),
			problem: "/version",
		},
		{
			name:    "bad regex",
			doc:     strings.Replace(validDocument, `"lonely"`, `"(lonely"`, 1),
			problem: "vulnerability[0]",
		},
		{
			name:    "unexpected field",
			doc:     validDocument + "owner: someone\n",
			problem: "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test", []byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.problem) {
				t.Errorf("expected error to mention %q, got %v", tt.problem, err)
			}
		})
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	original := Default()
	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	parsed, err := Parse("roundtrip", data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Size() != original.Size() {
		t.Errorf("expected %d patterns, got %d", original.Size(), parsed.Size())
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(validDocument), 0644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	if _, err := ParseFile(path); err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
