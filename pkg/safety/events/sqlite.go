package events

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS safety_event_schema (
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS safety_events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    recorded_at INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    severity TEXT NOT NULL,
    severity_rank INTEGER NOT NULL,
    description TEXT NOT NULL,
    user_id TEXT NOT NULL DEFAULT '',
    session_id TEXT NOT NULL DEFAULT '',
    context TEXT,
    intervention TEXT NOT NULL,
    resolved BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_safety_events_recorded_at ON safety_events(recorded_at);
CREATE INDEX IF NOT EXISTS idx_safety_events_user_id ON safety_events(user_id);
CREATE INDEX IF NOT EXISTS idx_safety_events_severity_rank ON safety_events(severity_rank);
`

// SQLiteConfig configures a SQLiteLog.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        "data/events.db",
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteLog stores events in SQLite.
type SQLiteLog struct {
	sqlLog
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewSQLiteLog opens or creates the event database.
func NewSQLiteLog(cfg *SQLiteConfig) (*SQLiteLog, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}
	if cfg.Path == "" {
		return nil, NewStorageError("sqlite", "open", fmt.Errorf("db path cannot be empty"))
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "safety.events.sqlite")

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}
	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)

	if cfg.WALMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, NewStorageError("sqlite", "enable_wal", err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, NewStorageError("sqlite", "set_busy_timeout", err)
	}

	l := &SQLiteLog{
		sqlLog: sqlLog{
			db: db,
			dialect: dialect{
				name:        "sqlite",
				schema:      sqliteSchema,
				placeholder: func(int) string { return "?" },
			},
		},
		logger: logger,
	}

	if err := l.initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite event log initialized",
		"path", cfg.Path,
		"wal_mode", cfg.WALMode)

	return l, nil
}

// Close closes the database. It is safe to call more than once.
func (l *SQLiteLog) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.db.Close()
	})
	return err
}
