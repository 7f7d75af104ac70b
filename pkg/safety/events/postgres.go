package events

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS safety_event_schema (
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS safety_events (
    seq BIGSERIAL PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    recorded_at BIGINT NOT NULL,
    event_type TEXT NOT NULL,
    severity TEXT NOT NULL,
    severity_rank INTEGER NOT NULL,
    description TEXT NOT NULL,
    user_id TEXT NOT NULL DEFAULT '',
    session_id TEXT NOT NULL DEFAULT '',
    context JSONB,
    intervention TEXT NOT NULL,
    resolved BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_safety_events_recorded_at ON safety_events(recorded_at);
CREATE INDEX IF NOT EXISTS idx_safety_events_user_id ON safety_events(user_id);
CREATE INDEX IF NOT EXISTS idx_safety_events_severity_rank ON safety_events(severity_rank);
`

// PostgresConfig configures a PostgresLog.
type PostgresConfig struct {
	// DSN is a lib/pq connection string.
	DSN string

	// MaxOpenConns caps the connection pool.
	// Default: 10
	MaxOpenConns int

	// ConnMaxLifetime recycles connections.
	// Default: 30 minutes
	ConnMaxLifetime time.Duration
}

// PostgresLog stores events in PostgreSQL.
type PostgresLog struct {
	sqlLog
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewPostgresLog connects and creates the schema.
func NewPostgresLog(ctx context.Context, cfg PostgresConfig) (*PostgresLog, error) {
	if cfg.DSN == "" {
		return nil, NewStorageError("postgres", "open", fmt.Errorf("dsn cannot be empty"))
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, NewStorageError("postgres", "open", err)
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	l, err := NewPostgresLogWithDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// NewPostgresLogWithDB wraps an open database handle and creates the schema.
func NewPostgresLogWithDB(ctx context.Context, db *sql.DB) (*PostgresLog, error) {
	l := &PostgresLog{
		sqlLog: sqlLog{
			db: db,
			dialect: dialect{
				name:        "postgres",
				schema:      postgresSchema,
				placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
			},
		},
		logger: slog.Default().With("component", "safety.events.postgres"),
	}

	if err := l.initialize(ctx); err != nil {
		return nil, err
	}

	l.logger.Info("PostgreSQL event log initialized")
	return l, nil
}

// Close closes the database. It is safe to call more than once.
func (l *PostgresLog) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.db.Close()
	})
	return err
}
