package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/vigil/pkg/safety"
)

// SQLiteStore persists profiles in a SQLite database.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	logger    *slog.Logger
	closeOnce sync.Once

	upsertStmt  *sql.Stmt
	getStmt     *sql.Stmt
	listStmt    *sql.Stmt
	deleteStmt  *sql.Stmt
	cleanupStmt *sql.Stmt
}

// SQLiteConfig configures a SQLiteStore.
type SQLiteConfig struct {
	// Path is the database file. ":memory:" is accepted for tests.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteConfig{Path: path})
}

// NewSQLiteStoreWithConfig opens a SQLite store with custom settings.
func NewSQLiteStoreWithConfig(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:     db,
		path:   cfg.Path,
		logger: slog.Default().With("component", "safety.profile.sqlite"),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	s.logger.Info("profile store initialized", "path", cfg.Path)
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS user_profiles (
		user_id TEXT PRIMARY KEY,
		distress REAL NOT NULL DEFAULT 0,
		dependency REAL NOT NULL DEFAULT 0,
		crisis_history TEXT NOT NULL DEFAULT '[]',
		interactions INTEGER NOT NULL DEFAULT 0,
		last_crisis_check INTEGER,
		protection_tier TEXT NOT NULL DEFAULT 'standard',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_user_profiles_updated_at ON user_profiles(updated_at);
	CREATE INDEX IF NOT EXISTS idx_user_profiles_tier ON user_profiles(protection_tier);
	`)
	return err
}

const profileColumns = `user_id, distress, dependency, crisis_history, interactions,
	last_crisis_check, protection_tier, created_at, updated_at`

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.upsertStmt, err = s.db.Prepare(`
		INSERT INTO user_profiles (` + profileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			distress = excluded.distress,
			dependency = excluded.dependency,
			crisis_history = excluded.crisis_history,
			interactions = excluded.interactions,
			last_crisis_check = excluded.last_crisis_check,
			protection_tier = excluded.protection_tier,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`SELECT ` + profileColumns + ` FROM user_profiles WHERE user_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`SELECT ` + profileColumns + ` FROM user_profiles ORDER BY user_id`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM user_profiles WHERE user_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.cleanupStmt, err = s.db.Prepare(`DELETE FROM user_profiles WHERE updated_at < ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare cleanup statement: %w", err)
	}

	return nil
}

// Get loads a profile.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*safety.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id cannot be empty")
	}

	p, err := scanProfile(s.getStmt.QueryRowContext(ctx, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return p, nil
}

// Upsert writes a profile.
func (s *SQLiteStore) Upsert(ctx context.Context, p *safety.Profile) error {
	if p == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if p.UserID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	history := p.CrisisHistory
	if history == nil {
		history = []safety.CrisisEntry{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal crisis history: %w", err)
	}

	now := time.Now()
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	var lastCrisis sql.NullInt64
	if !p.LastCrisisCheck.IsZero() {
		lastCrisis = sql.NullInt64{Int64: p.LastCrisisCheck.UnixNano(), Valid: true}
	}

	_, err = s.upsertStmt.ExecContext(ctx,
		p.UserID,
		p.Distress,
		p.Dependency,
		string(historyJSON),
		p.Interactions,
		lastCrisis,
		string(p.Tier),
		createdAt.UnixNano(),
		updatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// List returns all profiles ordered by user id.
func (s *SQLiteStore) List(ctx context.Context) ([]*safety.Profile, error) {
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*safety.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return profiles, nil
}

// Delete removes a profile.
func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.deleteStmt.ExecContext(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// Cleanup removes profiles last updated before olderThan.
func (s *SQLiteStore) Cleanup(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := s.cleanupStmt.ExecContext(ctx, olderThan.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(deleted), nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.upsertStmt, s.getStmt, s.listStmt, s.deleteStmt, s.cleanupStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			s.logger.Warn("final checkpoint failed", "error", err)
		}
		closeErr = s.db.Close()
	})
	return closeErr
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*safety.Profile, error) {
	var (
		p           safety.Profile
		historyJSON string
		tier        string
		lastCrisis  sql.NullInt64
		createdAt   int64
		updatedAt   int64
	)

	err := row.Scan(
		&p.UserID,
		&p.Distress,
		&p.Dependency,
		&historyJSON,
		&p.Interactions,
		&lastCrisis,
		&tier,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(historyJSON), &p.CrisisHistory); err != nil {
		return nil, fmt.Errorf("failed to unmarshal crisis history: %w", err)
	}
	if p.CrisisHistory == nil {
		p.CrisisHistory = []safety.CrisisEntry{}
	}
	p.Tier = safety.Tier(tier)
	if lastCrisis.Valid {
		p.LastCrisisCheck = time.Unix(0, lastCrisis.Int64).UTC()
	}
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	p.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return &p, nil
}
