package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://vigil.schemas.local/catalog.schema.json"

var documentSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("catalog schema load failed: %v", err))
	}
	return c.MustCompile(schemaURL)
}

// Document is the YAML form of a catalog.
type Document struct {
	Version     string                `yaml:"version" json:"version"`
	Description string                `yaml:"description,omitempty" json:"description,omitempty"`
	Categories  map[Category][]string `yaml:"categories" json:"categories"`
}

// ParseError lists every problem found in a catalog document.
type ParseError struct {
	Source   string
	Problems []string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("invalid catalog %s: %s", e.Source, e.Problems[0])
	}
	return fmt.Sprintf("invalid catalog %s: %d problems: %s",
		e.Source, len(e.Problems), strings.Join(e.Problems, "; "))
}

// Parse validates and compiles a YAML catalog document. The source name is
// used in error messages only.
func Parse(source string, data []byte) (*Catalog, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Source: source, Problems: []string{fmt.Sprintf("yaml: %v", err)}}
	}

	// Round-trip through JSON so the schema sees plain JSON values.
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, &ParseError{Source: source, Problems: []string{fmt.Sprintf("document is not representable as JSON: %v", err)}}
	}
	var generic any
	if err := json.Unmarshal(asJSON, &generic); err != nil {
		return nil, &ParseError{Source: source, Problems: []string{err.Error()}}
	}
	if err := documentSchema.Validate(generic); err != nil {
		return nil, &ParseError{Source: source, Problems: schemaProblems(err)}
	}

	var doc Document
	if err := json.Unmarshal(asJSON, &doc); err != nil {
		return nil, &ParseError{Source: source, Problems: []string{err.Error()}}
	}

	var problems []string
	if _, err := semver.NewVersion(doc.Version); err != nil {
		problems = append(problems, fmt.Sprintf("version %q is not a semantic version", doc.Version))
	}
	for _, category := range Categories() {
		if len(doc.Categories[category]) == 0 {
			problems = append(problems, fmt.Sprintf("category %s has no patterns", category))
		}
	}
	for _, category := range Categories() {
		for i, src := range doc.Categories[category] {
			if _, err := compile(src); err != nil {
				problems = append(problems, fmt.Sprintf("%s[%d]: %v", category, i, err))
			}
		}
	}
	if len(problems) > 0 {
		return nil, &ParseError{Source: source, Problems: problems}
	}

	return New(doc.Version, doc.Categories)
}

// ParseFile reads and parses a catalog document from disk.
func ParseFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(path, data)
}

// Marshal renders a catalog as a YAML document.
func Marshal(c *Catalog) ([]byte, error) {
	doc := Document{
		Version:    c.Version(),
		Categories: c.Sources(),
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return buf.Bytes(), nil
}

func schemaProblems(err error) []string {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}
	var problems []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			location := e.InstanceLocation
			if location == "" {
				location = "/"
			}
			problems = append(problems, fmt.Sprintf("%s: %s", location, e.Message))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)
	return problems
}

// compareVersions returns -1, 0 or 1 comparing two catalog versions.
// Unparseable versions compare as equal so they never block a reload.
func compareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return 0
	}
	return va.Compare(vb)
}
