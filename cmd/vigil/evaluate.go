package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/vigil/pkg/cli"
	"mercator-hq/vigil/pkg/safety"
	"mercator-hq/vigil/pkg/safety/engine"
)

var evaluateFlags struct {
	file     string
	user     string
	input    string
	output   string
	format   string
	progress bool
	failOn   string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate sessions or interactions",
	Long: `Evaluate content with the configured catalog and backends.

Subcommands:
  session      - Evaluate completed sessions read from a file
  interaction  - Evaluate a single user input and assistant output

Profiles and events are recorded in the configured backends, so repeated
evaluations against a persistent store accumulate user risk.`,
}

var evaluateSessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Evaluate completed sessions",
	Long: `Evaluate one or more sessions read from a file.

The file holds session objects, either one per line (JSON Lines) or as a
sequence of JSON documents:
  {"session_id": "s-1", "user_id": "u-1", "insights": ["..."], "responses": ["..."]}

Examples:
  # Evaluate a batch of sessions
  vigil evaluate session --file sessions.jsonl

  # Read from stdin and print JSON
  cat session.json | vigil evaluate session --file - --format json

  # Exit with status 3 when any session is critical or worse
  vigil evaluate session --file sessions.jsonl --fail-on critical`,
	RunE: evaluateSessions,
}

var evaluateInteractionCmd = &cobra.Command{
	Use:   "interaction",
	Short: "Evaluate a single interaction",
	Long: `Evaluate one exchange between a user and the assistant.

Examples:
  vigil evaluate interaction --user u-123 --input "I feel hopeless" --output "I'm here to listen"`,
	RunE: evaluateInteraction,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.AddCommand(evaluateSessionCmd, evaluateInteractionCmd)

	evaluateSessionCmd.Flags().StringVarP(&evaluateFlags.file, "file", "f", "", "session file (- for stdin)")
	evaluateSessionCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json, csv")
	evaluateSessionCmd.Flags().BoolVar(&evaluateFlags.progress, "progress", false, "show progress on stderr")
	_ = evaluateSessionCmd.MarkFlagRequired("file")
	evaluateCmd.PersistentFlags().StringVar(&evaluateFlags.failOn, "fail-on", "", "exit with status 3 when a verdict reaches this level (caution, warning, critical, emergency)")

	evaluateInteractionCmd.Flags().StringVarP(&evaluateFlags.user, "user", "u", "", "user ID")
	evaluateInteractionCmd.Flags().StringVarP(&evaluateFlags.input, "input", "i", "", "user input text")
	evaluateInteractionCmd.Flags().StringVarP(&evaluateFlags.output, "output", "o", "", "assistant output text")
	evaluateInteractionCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json")
	_ = evaluateInteractionCmd.MarkFlagRequired("user")
}

// sessionResult is the outcome of one session evaluation.
type sessionResult struct {
	SessionID    string              `json:"session_id,omitempty"`
	UserID       string              `json:"user_id,omitempty"`
	Level        safety.Level        `json:"level"`
	Intervention safety.Intervention `json:"intervention"`
	ResponseText string              `json:"response_text"`
	EventID      string              `json:"event_id,omitempty"`
	Error        string              `json:"error,omitempty"`
}

type sessionResults []sessionResult

func (r sessionResults) Header() []string {
	return []string{"session", "user", "level", "intervention", "event", "error"}
}

func (r sessionResults) Rows() [][]string {
	rows := make([][]string, len(r))
	for i, res := range r {
		rows[i] = []string{res.SessionID, res.UserID, res.Level.String(), string(res.Intervention), res.EventID, res.Error}
	}
	return rows
}

// readSessions decodes every session document in r.
func readSessions(r io.Reader) ([]*safety.Session, error) {
	dec := json.NewDecoder(r)
	var sessions []*safety.Session
	for {
		var s safety.Session
		err := dec.Decode(&s)
		if errors.Is(err, io.EOF) {
			return sessions, nil
		}
		if err != nil {
			return nil, fmt.Errorf("session %d: %w", len(sessions)+1, err)
		}
		sessions = append(sessions, &s)
	}
}

// runSessions evaluates sessions in order. Persistence failures are
// reported on the result and do not stop the batch.
func runSessions(ctx context.Context, eng *engine.Engine, sessions []*safety.Session, progress cli.BatchProgress) (sessionResults, error) {
	results := make(sessionResults, 0, len(sessions))
	if progress != nil {
		progress.Begin(len(sessions))
	}

	for i, s := range sessions {
		if err := ctx.Err(); err != nil {
			if progress != nil {
				progress.Fail(err)
			}
			return results, err
		}

		verdict, err := eng.EvaluateSession(ctx, s)
		res := sessionResult{
			SessionID:    s.ID,
			UserID:       s.UserID,
			Level:        verdict.Level,
			Intervention: verdict.Intervention,
			ResponseText: safety.ResponseText(verdict.Intervention),
			EventID:      verdict.EventID,
		}
		if err != nil {
			var pe *engine.PersistenceError
			if !errors.As(err, &pe) {
				if progress != nil {
					progress.Fail(err)
				}
				return results, fmt.Errorf("session %d: %w", i+1, err)
			}
			res.Error = pe.Error()
		}
		results = append(results, res)

		if progress != nil {
			progress.Record(verdict.Level)
		}
	}

	if progress != nil {
		progress.Done()
	}
	return results, nil
}

func evaluateSessions(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(evaluateFlags.format)
	if err != nil {
		return err
	}
	threshold, err := cli.ParseThreshold(evaluateFlags.failOn)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if evaluateFlags.file != "-" {
		f, err := os.Open(evaluateFlags.file)
		if err != nil {
			return fmt.Errorf("failed to open session file: %w", err)
		}
		defer f.Close()
		in = f
	}

	sessions, err := readSessions(in)
	if err != nil {
		return cli.NewCommandError("evaluate session", err)
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no sessions found in %s", evaluateFlags.file)
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
		return cli.NewCommandError("evaluate session", err)
	}
	defer comps.Close()

	var progress cli.BatchProgress
	if evaluateFlags.progress {
		progress = cli.NewTally(cmd.ErrOrStderr(), "sessions")
	}

	results, err := runSessions(ctx, comps.engine, sessions, progress)
	if err != nil {
		return cli.NewCommandError("evaluate session", err)
	}
	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	return cli.CheckThreshold(threshold, results.levels()...)
}

func (r sessionResults) levels() []safety.Level {
	levels := make([]safety.Level, len(r))
	for i, res := range r {
		levels[i] = res.Level
	}
	return levels
}

// interactionResult is the outcome of one interaction evaluation.
type interactionResult struct {
	UserID       string                 `json:"user_id"`
	Level        safety.Level           `json:"level"`
	Intervention safety.Intervention    `json:"intervention"`
	ResponseText string                 `json:"response_text"`
	EventID      string                 `json:"event_id,omitempty"`
	Crisis       *engine.CrisisResponse `json:"crisis,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

func (r interactionResult) String() string {
	s := fmt.Sprintf("Level: %s\nIntervention: %s\nResponse: %s",
		r.Level, r.Intervention, r.ResponseText)
	if r.EventID != "" {
		s += "\nEvent: " + r.EventID
	}
	if r.Crisis != nil {
		s += "\n\n" + r.Crisis.Message
		s += "\n  " + r.Crisis.Resources.Hotline
		s += "\n  " + r.Crisis.Resources.TextLine
		s += "\n  " + r.Crisis.Resources.Emergency
		s += "\n  " + r.Crisis.Resources.International
	}
	if r.Error != "" {
		s += "\nWarning: " + r.Error
	}
	return s
}

func evaluateInteraction(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(evaluateFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("csv output is not supported for a single interaction")
	}
	threshold, err := cli.ParseThreshold(evaluateFlags.failOn)
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
		return cli.NewCommandError("evaluate interaction", err)
	}
	defer comps.Close()

	verdict, err := comps.engine.EvaluateInteraction(ctx, evaluateFlags.user, evaluateFlags.input, evaluateFlags.output)
	res := interactionResult{
		UserID:       evaluateFlags.user,
		Level:        verdict.Level,
		Intervention: verdict.Intervention,
		ResponseText: safety.ResponseText(verdict.Intervention),
		EventID:      verdict.EventID,
	}
	if err != nil {
		var pe *engine.PersistenceError
		if !errors.As(err, &pe) {
			return cli.NewCommandError("evaluate interaction", err)
		}
		res.Error = pe.Error()
	}
	if verdict.Level == safety.LevelEmergency {
		crisis := comps.engine.CrisisResponse(evaluateFlags.user)
		res.Crisis = &crisis
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	return cli.CheckThreshold(threshold, res.Level)
}
