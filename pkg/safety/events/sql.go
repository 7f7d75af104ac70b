package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mercator-hq/vigil/pkg/safety"
)

// SchemaVersion is the current event table schema version.
const SchemaVersion = 1

const eventColumns = "id, recorded_at, event_type, severity, severity_rank, description, " +
	"user_id, session_id, context, intervention, resolved"

// dialect captures the differences between the SQL backends.
type dialect struct {
	name   string
	schema string

	// placeholder returns the n-th (1-based) bind parameter.
	placeholder func(n int) string
}

// sqlLog implements Log over database/sql.
type sqlLog struct {
	db      *sql.DB
	dialect dialect
}

func (l *sqlLog) initialize(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, l.dialect.schema); err != nil {
		return NewStorageError(l.dialect.name, "create_schema", err)
	}

	var version int
	err := l.db.QueryRowContext(ctx, "SELECT version FROM safety_event_schema LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		_, err = l.db.ExecContext(ctx,
			"INSERT INTO safety_event_schema (version) VALUES ("+l.dialect.placeholder(1)+")", SchemaVersion)
		if err != nil {
			return NewStorageError(l.dialect.name, "insert_schema_version", err)
		}
		return nil
	}
	if err != nil {
		return NewStorageError(l.dialect.name, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError(l.dialect.name, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

func (l *sqlLog) placeholders(from, count int) string {
	ps := make([]string, count)
	for i := range ps {
		ps[i] = l.dialect.placeholder(from + i)
	}
	return strings.Join(ps, ", ")
}

// Append inserts an event.
func (l *sqlLog) Append(ctx context.Context, e *safety.Event) error {
	if e == nil || e.ID == "" {
		return NewStorageError(l.dialect.name, "append", fmt.Errorf("event must have an id"))
	}

	contextJSON, err := json.Marshal(e.Context)
	if err != nil {
		return NewStorageError(l.dialect.name, "append", fmt.Errorf("failed to marshal context: %w", err))
	}

	query := "INSERT INTO safety_events (" + eventColumns + ") VALUES (" + l.placeholders(1, 11) + ")"
	_, err = l.db.ExecContext(ctx, query,
		e.ID,
		e.Timestamp.UnixNano(),
		e.Type,
		e.Level.String(),
		e.Level.Rank(),
		e.Description,
		e.UserID,
		e.SessionID,
		string(contextJSON),
		string(e.Intervention),
		e.Resolved,
	)
	if err != nil {
		return NewStorageError(l.dialect.name, "append", err)
	}
	return nil
}

// Get loads one event.
func (l *sqlLog) Get(ctx context.Context, id string) (*safety.Event, error) {
	query := "SELECT " + eventColumns + " FROM safety_events WHERE id = " + l.dialect.placeholder(1)
	e, err := scanEvent(l.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewStorageError(l.dialect.name, "get", err)
	}
	return e, nil
}

// Recent returns up to n events, newest first.
func (l *sqlLog) Recent(ctx context.Context, n int) ([]*safety.Event, error) {
	return l.Query(ctx, &Query{Limit: n})
}

// Query returns matching events, newest first.
func (l *sqlLog) Query(ctx context.Context, q *Query) ([]*safety.Event, error) {
	if q == nil {
		q = &Query{}
	}

	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, l.dialect.placeholder(len(args))))
	}

	if q.UserID != "" {
		add("user_id = %s", q.UserID)
	}
	if q.SessionID != "" {
		add("session_id = %s", q.SessionID)
	}
	if q.Type != "" {
		add("event_type = %s", q.Type)
	}
	if q.MinLevel.Rank() > 0 {
		add("severity_rank >= %s", q.MinLevel.Rank())
	}
	if !q.Since.IsZero() {
		add("recorded_at >= %s", q.Since.UnixNano())
	}
	if !q.Until.IsZero() {
		add("recorded_at < %s", q.Until.UnixNano())
	}
	if q.Resolved != nil {
		add("resolved = %s", *q.Resolved)
	}

	query := "SELECT " + eventColumns + " FROM safety_events"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY recorded_at DESC, seq DESC"
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError(l.dialect.name, "query", err)
	}
	defer rows.Close()

	var out []*safety.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, NewStorageError(l.dialect.name, "scan", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(l.dialect.name, "query", err)
	}
	return out, nil
}

// Summary aggregates counts in the database.
func (l *sqlLog) Summary(ctx context.Context) (*Summary, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT severity, intervention, resolved, COUNT(*) FROM safety_events GROUP BY severity, intervention, resolved")
	if err != nil {
		return nil, NewStorageError(l.dialect.name, "summary", err)
	}
	defer rows.Close()

	s := NewSummary()
	for rows.Next() {
		var (
			severity     string
			intervention string
			resolved     bool
			count        int
		)
		if err := rows.Scan(&severity, &intervention, &resolved, &count); err != nil {
			return nil, NewStorageError(l.dialect.name, "summary", err)
		}
		level, err := safety.ParseLevel(severity)
		if err != nil {
			return nil, NewStorageError(l.dialect.name, "summary", err)
		}
		s.Total += count
		if !resolved {
			s.Unresolved += count
		}
		s.ByLevel[level] += count
		s.ByIntervention[safety.Intervention(intervention)] += count
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(l.dialect.name, "summary", err)
	}
	return s, nil
}

// Resolve sets the resolved flag.
func (l *sqlLog) Resolve(ctx context.Context, id string) error {
	query := "UPDATE safety_events SET resolved = " + l.dialect.placeholder(1) +
		" WHERE id = " + l.dialect.placeholder(2)
	result, err := l.db.ExecContext(ctx, query, true, id)
	if err != nil {
		return NewStorageError(l.dialect.name, "resolve", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return NewStorageError(l.dialect.name, "resolve", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the database connection.
func (l *sqlLog) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*safety.Event, error) {
	var (
		e            safety.Event
		recordedAt   int64
		severity     string
		rank         int
		contextJSON  sql.NullString
		intervention string
	)

	err := row.Scan(
		&e.ID,
		&recordedAt,
		&e.Type,
		&severity,
		&rank,
		&e.Description,
		&e.UserID,
		&e.SessionID,
		&contextJSON,
		&intervention,
		&e.Resolved,
	)
	if err != nil {
		return nil, err
	}

	level, err := safety.ParseLevel(severity)
	if err != nil {
		return nil, err
	}
	e.Level = level
	e.Timestamp = time.Unix(0, recordedAt).UTC()
	e.Intervention = safety.Intervention(intervention)

	if contextJSON.Valid && contextJSON.String != "" && contextJSON.String != "null" {
		if err := json.Unmarshal([]byte(contextJSON.String), &e.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal context: %w", err)
		}
	}
	return &e, nil
}
