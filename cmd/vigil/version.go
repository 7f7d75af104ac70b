package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"mercator-hq/vigil/pkg/cli"
	"mercator-hq/vigil/pkg/safety/catalog"
	"mercator-hq/vigil/pkg/telemetry/health"
)

// Build metadata, set with -ldflags "-X main.Version=...".
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// buildInfo is what `vigil version` reports.
type buildInfo struct {
	health.VersionInfo
	Platform       string `json:"platform"`
	CatalogVersion string `json:"builtin_catalog_version"`
}

func currentBuild() buildInfo {
	return buildInfo{
		VersionInfo:    health.NewVersionInfo(Version, GitCommit, BuildDate),
		Platform:       runtime.GOOS + "/" + runtime.GOARCH,
		CatalogVersion: catalog.DefaultVersion,
	}
}

func (b buildInfo) String() string {
	return fmt.Sprintf("Vigil %s\nGit Commit: %s\nBuild Date: %s\nGo Version: %s\nOS/Arch: %s\nBuilt-in catalog: %s",
		b.Version, b.Commit, b.BuildTime, b.GoVersion, b.Platform, b.CatalogVersion)
}

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the build version, Git commit and build date, plus the version of
the pattern catalog compiled into the binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(versionFormat)
		if err != nil {
			return err
		}
		if format == cli.FormatCSV {
			return fmt.Errorf("version does not support csv output")
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), currentBuild())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().StringVar(&versionFormat, "format", "text", "output format: text, json")
}
