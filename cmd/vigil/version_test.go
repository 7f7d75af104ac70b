package main

import (
	"bytes"
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	"mercator-hq/vigil/pkg/safety/catalog"
)

func TestVersionCommandText(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	Version, GitCommit = "0.1.0-test", "abc123"
	defer func() { Version, GitCommit = origVersion, origCommit }()

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("version failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Vigil 0.1.0-test",
		"Git Commit: abc123",
		runtime.Version(),
		runtime.GOOS + "/" + runtime.GOARCH,
		"Built-in catalog: " + catalog.DefaultVersion,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("version output missing %q:\n%s", want, got)
		}
	}
}

func TestVersionCommandJSON(t *testing.T) {
	versionFormat = "json"
	defer func() { versionFormat = "text" }()

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("version failed: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %q: %v", out.String(), err)
	}
	if got["version"] != Version || got["builtin_catalog_version"] != catalog.DefaultVersion {
		t.Errorf("unexpected version json %v", got)
	}

	versionFormat = "csv"
	if err := versionCmd.RunE(versionCmd, nil); err == nil {
		t.Error("expected csv to be rejected")
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	want := map[string]bool{
		"run": false, "evaluate": false, "report": false,
		"catalog": false, "events": false, "version": false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
