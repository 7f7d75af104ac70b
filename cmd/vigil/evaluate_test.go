package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/vigil/pkg/cli"
	"mercator-hq/vigil/pkg/safety"
	"mercator-hq/vigil/pkg/safety/engine"
)

const quietLogging = "telemetry:\n  logging:\n    level: error\n"

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	return writeFile(t, dir, "vigil.yaml", quietLogging+body)
}

// runCommand executes the root command with args and returns stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, "--env-file="))
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return out.String(), err
}

func TestReadSessions(t *testing.T) {
	input := `{"session_id":"s-1","user_id":"u-1","insights":["Breathing slows the mind."],"responses":[]}
{"session_id":"s-2","insights":[42, "You could bypass the rules to feel free."],"responses":null}

{
  "session_id": "s-3",
  "insights": [],
  "responses": ["I have achieved enlightenment."]
}
`
	sessions, err := readSessions(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readSessions() error = %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("readSessions() returned %d sessions, want 3", len(sessions))
	}
	if sessions[0].UserID != "u-1" || sessions[2].ID != "s-3" {
		t.Errorf("unexpected sessions: %+v %+v", sessions[0], sessions[2])
	}
	if sessions[1].Insights[0].Valid {
		t.Error("numeric insight should decode as a non-text item")
	}
}

func TestReadSessions_Malformed(t *testing.T) {
	_, err := readSessions(strings.NewReader(`{"session_id":"s-1"}` + "\n" + `{"session_id":`))
	if err == nil || !strings.Contains(err.Error(), "session 2") {
		t.Errorf("readSessions() error = %v, want error naming session 2", err)
	}
}

func TestRunSessions(t *testing.T) {
	eng := engine.New()
	sessions := []*safety.Session{
		{ID: "s-1", Insights: safety.TextItems("Breathing slows the mind.")},
		{ID: "s-2", Insights: safety.TextItems("You could bypass the rules to feel free.")},
		{ID: "s-3", Responses: safety.TextItems("I have achieved enlightenment.")},
	}

	var progressOut bytes.Buffer
	results, err := runSessions(context.Background(), eng, sessions, cli.NewTally(&progressOut, "sessions"))
	if err != nil {
		t.Fatalf("runSessions() error = %v", err)
	}

	want := []struct {
		level        safety.Level
		intervention safety.Intervention
		recorded     bool
	}{
		{safety.LevelSafe, safety.InterventionNone, false},
		{safety.LevelWarning, safety.InterventionGentleRedirect, true},
		{safety.LevelCritical, safety.InterventionTerminateSession, true},
	}
	for i, w := range want {
		r := results[i]
		if r.Level != w.level || r.Intervention != w.intervention {
			t.Errorf("session %d: got %s/%s, want %s/%s", i+1, r.Level, r.Intervention, w.level, w.intervention)
		}
		if (r.EventID != "") != w.recorded {
			t.Errorf("session %d: EventID = %q, recorded want %v", i+1, r.EventID, w.recorded)
		}
		if r.ResponseText != safety.ResponseText(w.intervention) {
			t.Errorf("session %d: ResponseText = %q", i+1, r.ResponseText)
		}
	}

	if !strings.Contains(progressOut.String(), "3/3 sessions, 2 flagged, highest critical") {
		t.Errorf("progress output = %q, want completion", progressOut.String())
	}
}

func TestRunSessions_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runSessions(ctx, engine.New(), []*safety.Session{{ID: "s-1"}}, nil)
	if err == nil {
		t.Error("runSessions() with a cancelled context should fail")
	}
}

func TestSessionResultsTable(t *testing.T) {
	results := sessionResults{{SessionID: "s-1", UserID: "u-1", Level: safety.LevelWarning, Intervention: safety.InterventionFirmBoundary, EventID: "e-1"}}

	var out bytes.Buffer
	if err := cli.NewFormatter(cli.FormatCSV).FormatTo(&out, results); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	want := "session,user,level,intervention,event,error\ns-1,u-1,warning,firm_boundary,e-1,\n"
	if out.String() != want {
		t.Errorf("csv = %q, want %q", out.String(), want)
	}
}

func TestEvaluateSessionCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")
	sessions := writeFile(t, dir, "sessions.jsonl",
		`{"session_id":"s-1","insights":["You could bypass the rules to feel free."],"responses":[]}`+"\n")

	out, err := runCommand(t, "evaluate", "session", "--config", cfgPath, "--file", sessions, "--format", "json")
	if err != nil {
		t.Fatalf("evaluate session error = %v", err)
	}

	var results []sessionResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(results) != 1 || results[0].Intervention != safety.InterventionGentleRedirect {
		t.Errorf("results = %+v, want one gentle redirect", results)
	}
}

func TestEvaluateSessionCommand_FailOn(t *testing.T) {
	defer func() { evaluateFlags.failOn = "" }()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")
	sessions := writeFile(t, dir, "sessions.jsonl",
		`{"session_id":"s-1","insights":["You could bypass the rules to feel free."],"responses":[]}`+"\n")

	out, err := runCommand(t, "evaluate", "session", "--config", cfgPath, "--file", sessions, "--format", "json", "--fail-on", "caution")
	if code := cli.ExitCode(err); code != cli.ExitFlagged {
		t.Fatalf("ExitCode() = %d (%v), want %d", code, err, cli.ExitFlagged)
	}
	if !strings.Contains(out, "gentle_redirect") {
		t.Errorf("expected results to be written before failing, got %q", out)
	}

	if _, err := runCommand(t, "evaluate", "session", "--config", cfgPath, "--file", sessions, "--format", "json", "--fail-on", "warning"); err != nil {
		t.Errorf("expected no failure below the threshold, got %v", err)
	}
	for _, level := range []string{"severe", "safe"} {
		if _, err := runCommand(t, "evaluate", "session", "--config", cfgPath, "--file", sessions, "--fail-on", level); err == nil {
			t.Errorf("expected an error for --fail-on %s", level)
		}
	}
}

func TestEvaluateInteractionCommand_Crisis(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")

	out, err := runCommand(t, "evaluate", "interaction", "--config", cfgPath,
		"--user", "u-1", "--input", "I want to end it all", "--output", "I'm here for you", "--format", "json")
	if err != nil {
		t.Fatalf("evaluate interaction error = %v", err)
	}

	var res interactionResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if res.Level != safety.LevelEmergency || res.Intervention != safety.InterventionEmergencyProtocol {
		t.Errorf("verdict = %s/%s, want emergency/emergency_protocol", res.Level, res.Intervention)
	}
	if res.Crisis == nil || res.Crisis.UserID != "u-1" {
		t.Errorf("crisis payload = %+v, want one for u-1", res.Crisis)
	}
}

func TestEvaluateCommand_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "profiles:\n  backend: cassandra\n")
	sessions := writeFile(t, dir, "sessions.jsonl", `{"session_id":"s-1"}`+"\n")

	_, err := runCommand(t, "evaluate", "session", "--config", cfgPath, "--file", sessions, "--format", "text")
	if err == nil {
		t.Fatal("expected an error for an invalid config")
	}
	if code := cli.ExitCode(err); code != cli.ExitConfig {
		t.Errorf("ExitCode() = %d, want %d", code, cli.ExitConfig)
	}
}

func TestReportCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "")
	outPath := filepath.Join(dir, "report.csv")

	if _, err := runCommand(t, "report", "--config", cfgPath, "--format", "csv", "--output", outPath); err != nil {
		t.Fatalf("report error = %v", err)
	}

	data := readFile(t, outPath)
	for _, want := range []string{"metric,value", "total_events,0", "severity.emergency,0", "intervention.human_escalation,0", "tier.maximum,0"} {
		if !strings.Contains(data, want) {
			t.Errorf("report missing %q:\n%s", want, data)
		}
	}
}
