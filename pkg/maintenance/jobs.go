package maintenance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/vigil/pkg/safety/events"
	"mercator-hq/vigil/pkg/safety/profile"
)

// ProfileEvictor removes idle profiles.
type ProfileEvictor struct {
	profiles *profile.Updater
	maxIdle  time.Duration
	now      func() time.Time
}

// NewProfileEvictor creates an evictor over profiles. Profiles not updated
// within maxIdle are removed on each run.
func NewProfileEvictor(profiles *profile.Updater, maxIdle time.Duration) *ProfileEvictor {
	return &ProfileEvictor{profiles: profiles, maxIdle: maxIdle, now: time.Now}
}

// Run removes idle profiles and returns how many were removed.
func (e *ProfileEvictor) Run(ctx context.Context) (int, error) {
	if e.maxIdle <= 0 {
		return 0, fmt.Errorf("max idle must be positive, got %s", e.maxIdle)
	}
	cutoff := e.now().Add(-e.maxIdle)
	removed, err := e.profiles.Evict(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("evict profiles older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return removed, nil
}

// EventArchiver writes the event log to files in a directory.
type EventArchiver struct {
	log      events.Log
	dir      string
	format   string
	exporter *events.JSONExporter
	now      func() time.Time
}

// NewEventArchiver creates an archiver writing format ("json" or "jsonl")
// files into dir.
func NewEventArchiver(log events.Log, dir, format string) (*EventArchiver, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory cannot be empty")
	}
	x, err := events.NewJSONExporter(format, false)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = events.FormatJSON
	}
	return &EventArchiver{log: log, dir: dir, format: format, exporter: x, now: time.Now}, nil
}

// Run writes one archive file and returns its path and the event count.
// A partially written file is removed on failure.
func (a *EventArchiver) Run(ctx context.Context) (string, int, error) {
	if err := os.MkdirAll(a.dir, 0o750); err != nil {
		return "", 0, fmt.Errorf("create archive directory: %w", err)
	}

	name := fmt.Sprintf("events-%s.%s", a.now().UTC().Format("20060102T150405Z"), a.format)
	path := filepath.Join(a.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", 0, fmt.Errorf("create archive file: %w", err)
	}

	n, err := events.ExportAll(ctx, a.log, a.exporter, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("archive events: %w", err)
	}
	return path, n, nil
}
