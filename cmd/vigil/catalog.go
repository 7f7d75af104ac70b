package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/vigil/pkg/cli"
	"mercator-hq/vigil/pkg/safety/catalog"
)

var catalogFlags struct {
	file     string
	dir      string
	format   string
	patterns bool
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate pattern catalogs",
	Long: `Inspect and validate pattern catalogs.

Subcommands:
  lint  - Validate catalog files against the schema and compile every pattern
  show  - Show the catalog selected by the configuration`,
}

var catalogLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate catalog files",
	Long: `Validate catalog files for schema and pattern errors.

Every problem in a file is reported, not only the first.

Examples:
  # Lint single file
  vigil catalog lint --file catalog.yaml

  # Lint directory
  vigil catalog lint --dir catalogs/

  # JSON output for CI/CD
  vigil catalog lint --file catalog.yaml --format json`,
	RunE: lintCatalogs,
}

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configured catalog",
	Long: `Load the catalog selected by the configuration and print a summary
of its categories, or the full document with --patterns.

Examples:
  vigil catalog show
  vigil catalog show --patterns > catalog.yaml`,
	RunE: showCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogLintCmd, catalogShowCmd)

	catalogLintCmd.Flags().StringVarP(&catalogFlags.file, "file", "f", "", "catalog file to validate")
	catalogLintCmd.Flags().StringVarP(&catalogFlags.dir, "dir", "d", "", "directory of catalog files")
	catalogLintCmd.Flags().StringVar(&catalogFlags.format, "format", "text", "output format: text, json")

	catalogShowCmd.Flags().StringVar(&catalogFlags.format, "format", "text", "output format: text, json, csv")
	catalogShowCmd.Flags().BoolVar(&catalogFlags.patterns, "patterns", false, "print the full catalog document as YAML")
}

// LintResult is the validation outcome for one catalog file.
type LintResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Version  string   `json:"version,omitempty"`
	Patterns int      `json:"patterns,omitempty"`
	Problems []string `json:"problems,omitempty"`
}

func lintFile(path string) LintResult {
	result := LintResult{File: path}

	c, err := catalog.ParseFile(path)
	if err != nil {
		var pe *catalog.ParseError
		if errors.As(err, &pe) {
			result.Problems = pe.Problems
		} else {
			result.Problems = []string{err.Error()}
		}
		return result
	}

	result.Valid = true
	result.Version = c.Version()
	result.Patterns = c.Size()
	return result
}

func catalogFiles(file, dir string) ([]string, error) {
	if file == "" && dir == "" {
		return nil, fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string
	if file != "" {
		files = append(files, file)
	}
	if dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				return nil, fmt.Errorf("failed to list catalog files: %w", err)
			}
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	return files, nil
}

func lintCatalogs(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(catalogFlags.format)
	if err != nil {
		return err
	}

	files, err := catalogFiles(catalogFlags.file, catalogFlags.dir)
	if err != nil {
		return err
	}

	results := make([]LintResult, 0, len(files))
	invalid := 0
	for _, f := range files {
		r := lintFile(f)
		if !r.Valid {
			invalid++
		}
		results = append(results, r)
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(out, results); err != nil {
			return err
		}
	} else {
		writeLintText(out, results)
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d catalog files invalid", invalid, len(results))
	}
	return nil
}

func writeLintText(w io.Writer, results []LintResult) {
	for _, r := range results {
		if r.Valid {
			fmt.Fprintf(w, "✓ %s (version %s, %d patterns)\n", r.File, r.Version, r.Patterns)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", r.File)
		for _, p := range r.Problems {
			fmt.Fprintf(w, "    %s\n", p)
		}
	}
}

// catalogSummary is the text and CSV form of catalog show.
type catalogSummary struct {
	Version    string                    `json:"version"`
	Source     string                    `json:"source"`
	Patterns   int                       `json:"patterns"`
	Categories []catalog.CategorySummary `json:"categories"`
}

func (s catalogSummary) Header() []string {
	return []string{"category", "patterns"}
}

func (s catalogSummary) Rows() [][]string {
	rows := make([][]string, len(s.Categories))
	for i, c := range s.Categories {
		rows[i] = []string{string(c.Category), strconv.Itoa(c.Patterns)}
	}
	return rows
}

func showCatalog(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(catalogFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manager, _, err := openCatalog(cmd.Context(), cfg.Catalog)
	if err != nil {
		return cli.NewCommandError("catalog show", err)
	}
	c := manager.Current()
	out := cmd.OutOrStdout()

	if catalogFlags.patterns {
		data, err := catalog.Marshal(c)
		if err != nil {
			return cli.NewCommandError("catalog show", err)
		}
		_, err = out.Write(data)
		return err
	}

	summary := catalogSummary{
		Version:    c.Version(),
		Source:     manager.Source().Name(),
		Patterns:   c.Size(),
		Categories: c.Summary(),
	}
	if format == cli.FormatText {
		fmt.Fprintf(out, "Catalog %s from %s (%d patterns)\n\n", summary.Version, summary.Source, summary.Patterns)
	}
	return cli.NewFormatter(format).FormatTo(out, summary)
}
