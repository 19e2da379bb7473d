package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/naicoco/guestbook/internal/domain"
	"github.com/naicoco/guestbook/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	sessionMu sync.Mutex // serializes session writes to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS guest_sessions (
		session_id TEXT PRIMARY KEY,
		stage INTEGER NOT NULL DEFAULT 0,
		draft_name TEXT NOT NULL DEFAULT '',
		draft_email TEXT NOT NULL DEFAULT '',
		draft_segment_one TEXT NOT NULL DEFAULT '',
		draft_segment_two TEXT NOT NULL DEFAULT '',
		last_send_at INTEGER NOT NULL DEFAULT 0,
		sent_content_ids TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_guest_sessions_updated ON guest_sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSession retrieves a guest session by its session ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.GuestSession, error) {
	query := `
		SELECT session_id, stage, draft_name, draft_email,
		       draft_segment_one, draft_segment_two,
		       last_send_at, sent_content_ids, created_at, updated_at
		FROM guest_sessions WHERE session_id = ?`

	row := s.db.QueryRowContext(ctx, query, sessionID)

	var sess domain.GuestSession
	var stage int
	var sentIDs string
	var lastSendAt, createdAt, updatedAt int64

	err := row.Scan(
		&sess.SessionID, &stage,
		&sess.Draft.Name, &sess.Draft.Email,
		&sess.Draft.SegmentOne, &sess.Draft.SegmentTwo,
		&lastSendAt, &sentIDs, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	sess.Stage = domain.Stage(stage)
	if lastSendAt > 0 {
		sess.LastSendAt = time.Unix(lastSendAt, 0)
	}
	if err := json.Unmarshal([]byte(sentIDs), &sess.SentContentIDs); err != nil {
		return nil, fmt.Errorf("decode sent content ids: %w", err)
	}
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.UpdatedAt = time.Unix(updatedAt, 0)

	return &sess, nil
}

// UpsertSession creates or updates a guest session record. Retries with
// exponential backoff on SQLite concurrency errors.
func (s *SQLiteStore) UpsertSession(ctx context.Context, sess *domain.GuestSession) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.upsertSessionOnce(ctx, sess)
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("UpsertSession hit SQLITE_BUSY, retrying",
				"session_id", sess.SessionID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("upsert session %s after %d attempts: %w", sess.SessionID, i+1, err)
	}

	return nil
}

func (s *SQLiteStore) upsertSessionOnce(ctx context.Context, sess *domain.GuestSession) error {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	sentIDs, err := json.Marshal(sess.SentContentIDs)
	if err != nil {
		return fmt.Errorf("encode sent content ids: %w", err)
	}
	if sess.SentContentIDs == nil {
		sentIDs = []byte("[]")
	}

	var lastSendAt int64
	if !sess.LastSendAt.IsZero() {
		lastSendAt = sess.LastSendAt.Unix()
	}

	query := `
		INSERT INTO guest_sessions (
			session_id, stage, draft_name, draft_email,
			draft_segment_one, draft_segment_two,
			last_send_at, sent_content_ids, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			stage = excluded.stage,
			draft_name = excluded.draft_name,
			draft_email = excluded.draft_email,
			draft_segment_one = excluded.draft_segment_one,
			draft_segment_two = excluded.draft_segment_two,
			last_send_at = excluded.last_send_at,
			sent_content_ids = excluded.sent_content_ids,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		sess.SessionID, int(sess.Stage),
		sess.Draft.Name, sess.Draft.Email,
		sess.Draft.SegmentOne, sess.Draft.SegmentTwo,
		lastSendAt, string(sentIDs),
		sess.CreatedAt.Unix(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions idle for longer than ttl.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	threshold := time.Now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM guest_sessions WHERE updated_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
