package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/vigil/pkg/cli"
	"mercator-hq/vigil/pkg/safety"
	"mercator-hq/vigil/pkg/safety/engine"
)

var reportFlags struct {
	format string
	output string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the safety report",
	Long: `Print aggregate counts over the event log and the profile store.

The report covers total, critical and unresolved events, monitored and
high-risk users, a breakdown by severity, intervention and protection tier,
and the most recent events.

Examples:
  # Text summary
  vigil report

  # Full JSON report to a file
  vigil report --format json --output report.json`,
	RunE: generateReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFlags.format, "format", "text", "output format: text, json, csv")
	reportCmd.Flags().StringVarP(&reportFlags.output, "output", "o", "", "output file (default: stdout)")
}

// reportTable renders the count breakdowns of a report as metric/value rows.
type reportTable struct {
	*engine.Report
}

func (t reportTable) Header() []string {
	return []string{"metric", "value"}
}

func (t reportTable) Rows() [][]string {
	rows := [][]string{
		{"catalog_version", t.CatalogVersion},
		{"total_events", strconv.Itoa(t.TotalEvents)},
		{"critical_events", strconv.Itoa(t.CriticalEvents)},
		{"unresolved_events", strconv.Itoa(t.UnresolvedEvents)},
		{"users_monitored", strconv.Itoa(t.UsersMonitored)},
		{"high_risk_users", strconv.Itoa(t.HighRiskUsers)},
	}
	for _, l := range safety.Levels() {
		rows = append(rows, []string{"severity." + l.String(), strconv.Itoa(t.BySeverity[l])})
	}
	for _, i := range safety.Interventions() {
		rows = append(rows, []string{"intervention." + string(i), strconv.Itoa(t.ByIntervention[i])})
	}
	for _, tier := range safety.Tiers() {
		rows = append(rows, []string{"tier." + string(tier), strconv.Itoa(t.ByTier[tier])})
	}
	return rows
}

func generateReport(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(reportFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logs, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logs.Close()

	ctx := cmd.Context()
	comps, err := buildComponents(ctx, cfg, logs.Slog(), nil)
	if err != nil {
		return cli.NewCommandError("report", err)
	}
	defer comps.Close()

	report, err := comps.engine.GenerateReport(ctx)
	if err != nil {
		return cli.NewCommandError("report", err)
	}

	out, err := openOutput(reportFlags.output)
	if err != nil {
		return err
	}
	defer out.Close()

	var data any = reportTable{report}
	if format == cli.FormatJSON {
		data = report
	}
	if err := cli.NewFormatter(format).FormatTo(out, data); err != nil {
		return cli.NewCommandError("report", fmt.Errorf("failed to write report: %w", err))
	}
	return nil
}
