package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/vigil/pkg/cli"
	"mercator-hq/vigil/pkg/safety/events"
)

var eventsFlags struct {
	format string
	output string
	pretty bool
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with the safety event log",
	Long: `Work with the safety event log.

Subcommands:
  export  - Export every recorded event`,
}

var eventsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export safety events",
	Long: `Export every event in the configured event log, oldest first.

Examples:
  # JSON array to stdout
  vigil events export

  # JSON Lines to a file
  vigil events export --format jsonl --output events.jsonl`,
	RunE: exportEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsExportCmd)

	eventsExportCmd.Flags().StringVar(&eventsFlags.format, "format", events.FormatJSON, "export format: json, jsonl")
	eventsExportCmd.Flags().StringVarP(&eventsFlags.output, "output", "o", "", "output file (default: stdout)")
	eventsExportCmd.Flags().BoolVar(&eventsFlags.pretty, "pretty", false, "indent JSON array output")
}

func exportEvents(cmd *cobra.Command, args []string) error {
	exporter, err := events.NewJSONExporter(eventsFlags.format, eventsFlags.pretty)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	log, err := openEventLog(ctx, cfg.Events)
	if err != nil {
		return cli.NewCommandError("events export", err)
	}
	defer log.Close()

	out, err := openOutput(eventsFlags.output)
	if err != nil {
		return err
	}
	defer out.Close()

	n, err := events.ExportAll(ctx, log, exporter, out)
	if err != nil {
		return cli.NewCommandError("events export", err)
	}
	if eventsFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %d events to %s\n", n, eventsFlags.output)
	}
	return nil
}
