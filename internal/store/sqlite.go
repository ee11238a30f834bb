package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	appErrors "resumind/internal/errors"
	"resumind/internal/interview"
	"resumind/internal/types"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db      *sql.DB
	logger  *appErrors.Logger
	writeMu sync.Mutex // serializes write transactions to avoid SQLITE_BUSY
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens (or creates) the database at dbPath and prepares the
// schema. The special path ":memory:" yields an ephemeral store for tests.
func NewSQLite(dbPath string, logger *appErrors.Logger) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
					"Failed to create database directory", err)
			}
		}
		// WAL mode for concurrent readers during writes.
		dsn = dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to open database", err)
	}

	if dbPath == ":memory:" {
		// A second connection would see a different empty database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to ping database", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	PRAGMA foreign_keys = ON;
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'in_progress',
		progress_json TEXT NOT NULL DEFAULT '{}',
		resume_markdown TEXT,
		message_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		completed_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status, updated_at);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata_json TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to initialize schema", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sessionColumns = `id, status, progress_json, resume_markdown, message_count, created_at, updated_at, completed_at`

// CreateSession creates a fresh in-progress session with zero progress.
func (s *SQLiteStore) CreateSession(ctx context.Context) (*types.Session, error) {
	now := time.Now()
	session := &types.Session{
		ID:            uuid.NewString(),
		Status:        types.StatusInProgress,
		ProgressState: types.ProgressState{"percentage": 0},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	progressJSON, err := json.Marshal(session.ProgressState)
	if err != nil {
		return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to encode progress state", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, status, progress_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		session.ID, string(session.Status), string(progressJSON), now.Unix(), now.Unix())
	if err != nil {
		return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to create session", err)
	}
	return session, nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID)
	return s.scanSession(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanSession(row rowScanner) (*types.Session, error) {
	var session types.Session
	var status, progressJSON string
	var resume sql.NullString
	var createdAt, updatedAt int64
	var completedAt sql.NullInt64

	err := row.Scan(&session.ID, &status, &progressJSON, &resume,
		&session.MessageCount, &createdAt, &updatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, appErrors.NewStorageError(appErrors.ErrCodeSessionNotFound,
			"Session not found", nil)
	}
	if err != nil {
		return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to scan session row", err)
	}

	parsed, known := types.ParseSessionStatus(status)
	if !known {
		s.logger.Warn("Session row has unknown status, treating as in_progress",
			"session_id", session.ID, "status", status)
	}
	session.Status = parsed

	session.ProgressState = types.ProgressState{}
	if err := json.Unmarshal([]byte(progressJSON), &session.ProgressState); err != nil {
		s.logger.Warn("Session row has unreadable progress state, resetting",
			"session_id", session.ID, "error", err.Error())
		session.ProgressState = types.ProgressState{"percentage": 0}
	}

	session.ResumeMarkdown = resume.String
	session.CreatedAt = time.Unix(createdAt, 0)
	session.UpdatedAt = time.Unix(updatedAt, 0)
	if completedAt.Valid {
		ts := time.Unix(completedAt.Int64, 0)
		session.CompletedAt = &ts
	}
	return &session, nil
}

// ListSessions returns sessions matching the filter, newest first, plus the
// total match count before paging.
func (s *SQLiteStore) ListSessions(ctx context.Context, filter ListFilter) ([]*types.Session, int, error) {
	where := ""
	args := []any{}
	if filter.Status != nil {
		where = ` WHERE status = ?`
		args = append(args, string(*filter.Status))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`+where, args...).Scan(&total); err != nil {
		return nil, 0, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to count sessions", err)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions` + where + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to query sessions", err)
	}
	defer rows.Close()

	var sessions []*types.Session
	for rows.Next() {
		session, err := s.scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to iterate sessions", err)
	}
	return sessions, total, nil
}

// DeleteSession removes a session and its messages.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
			return appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
				"Failed to delete session messages", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
		if err != nil {
			return appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
				"Failed to delete session", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return appErrors.NewStorageError(appErrors.ErrCodeSessionNotFound,
				"Session not found", nil)
		}
		return nil
	})
}

// AppendMessage appends a message to a session's transcript and bumps the
// session's message count, atomically.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID string, role types.MessageRole, content string, metadata map[string]any) (*types.Message, error) {
	msg := &types.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}

	var metadataJSON any
	if metadata != nil {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
				"Failed to encode message metadata", err)
		}
		metadataJSON = string(encoded)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE sessions SET message_count = message_count + 1, updated_at = ? WHERE id = ?`,
			msg.CreatedAt.Unix(), sessionID)
		if err != nil {
			return appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
				"Failed to update session message count", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return appErrors.NewStorageError(appErrors.ErrCodeSessionNotFound,
				"Session not found", nil)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (id, session_id, role, content, metadata_json, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			msg.ID, sessionID, string(role), content, metadataJSON, msg.CreatedAt.Unix())
		if err != nil {
			return appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
				"Failed to insert message", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Messages returns a session's transcript in insertion order.
func (s *SQLiteStore) Messages(ctx context.Context, sessionID string) ([]types.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, metadata_json, created_at FROM messages WHERE session_id = ? ORDER BY rowid`,
		sessionID)
	if err != nil {
		return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to query messages", err)
	}
	defer rows.Close()

	var messages []types.Message
	for rows.Next() {
		var msg types.Message
		var role string
		var metadataJSON sql.NullString
		var createdAt int64

		if err := rows.Scan(&msg.ID, &role, &msg.Content, &metadataJSON, &createdAt); err != nil {
			return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
				"Failed to scan message row", err)
		}
		msg.SessionID = sessionID
		msg.Role = types.ParseRole(role)
		msg.CreatedAt = time.Unix(createdAt, 0)
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &msg.Metadata); err != nil {
				s.logger.Warn("Message row has unreadable metadata, dropping",
					"message_id", msg.ID, "error", err.Error())
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to iterate messages", err)
	}
	return messages, nil
}

// UpdateMessageMetadata replaces the metadata of a stored message.
func (s *SQLiteStore) UpdateMessageMetadata(ctx context.Context, messageID string, metadata map[string]any) error {
	var metadataJSON any
	if metadata != nil {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
				"Failed to encode message metadata", err)
		}
		metadataJSON = string(encoded)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET metadata_json = ? WHERE id = ?`, metadataJSON, messageID)
	if err != nil {
		return appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to update message metadata", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return appErrors.NewStorageError(appErrors.ErrCodeMessageNotFound,
			"Message not found", nil)
	}
	return nil
}

// UpdateProgress stores a new progress state for an in-progress session.
// The embedded percentage never regresses.
func (s *SQLiteStore) UpdateProgress(ctx context.Context, sessionID string, progress types.ProgressState) (*types.Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var updated *types.Session
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		session, err := s.getSessionTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if session.Status.IsTerminal() {
			return appErrors.NewStorageError(appErrors.ErrCodeSessionFinished,
				"Session is no longer in progress", nil)
		}

		next := progress.Clone()
		pct, _ := next.Percentage()
		if persisted := session.Percentage(); pct < persisted {
			pct = persisted
		}
		next.SetPercentage(pct)

		if err := s.writeProgressTx(ctx, tx, sessionID, next); err != nil {
			return err
		}
		session.ProgressState = next
		session.UpdatedAt = time.Now()
		updated = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AdvanceProgress recomputes the session's percentage from its message count
// and stores the result. forceComplete jumps straight to 100; the status
// transition stays with CompleteSession.
func (s *SQLiteStore) AdvanceProgress(ctx context.Context, sessionID string, forceComplete bool) (*types.Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var updated *types.Session
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		session, err := s.getSessionTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if session.Status.IsTerminal() {
			return appErrors.NewStorageError(appErrors.ErrCodeSessionFinished,
				"Session is no longer in progress", nil)
		}

		pct := interview.AdvanceProgress(sessionID, session.MessageCount, session.Percentage(), forceComplete)
		next := session.ProgressState.Clone()
		next.SetPercentage(pct)

		if err := s.writeProgressTx(ctx, tx, sessionID, next); err != nil {
			return err
		}
		session.ProgressState = next
		session.UpdatedAt = time.Now()
		updated = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CompleteSession transitions an in-progress session to completed, attaching
// the final resume and pinning progress at 100.
func (s *SQLiteStore) CompleteSession(ctx context.Context, sessionID string, resumeMarkdown string, progress types.ProgressState) (*types.Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var updated *types.Session
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		session, err := s.getSessionTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !session.Status.CanTransition(types.StatusCompleted) {
			return appErrors.NewStorageError(appErrors.ErrCodeSessionFinished,
				"Session is no longer in progress", nil)
		}

		next := progress.Clone()
		next.SetPercentage(100)
		progressJSON, err := json.Marshal(next)
		if err != nil {
			return appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
				"Failed to encode progress state", err)
		}

		now := time.Now()
		_, err = tx.ExecContext(ctx,
			`UPDATE sessions SET status = ?, progress_json = ?, resume_markdown = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
			string(types.StatusCompleted), string(progressJSON), resumeMarkdown, now.Unix(), now.Unix(), sessionID)
		if err != nil {
			return appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
				"Failed to complete session", err)
		}

		session.Status = types.StatusCompleted
		session.ProgressState = next
		session.ResumeMarkdown = resumeMarkdown
		session.UpdatedAt = now
		session.CompletedAt = &now
		updated = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AbandonSession transitions an in-progress session to abandoned.
func (s *SQLiteStore) AbandonSession(ctx context.Context, sessionID string) (*types.Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var updated *types.Session
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		session, err := s.getSessionTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !session.Status.CanTransition(types.StatusAbandoned) {
			return appErrors.NewStorageError(appErrors.ErrCodeSessionFinished,
				"Session is no longer in progress", nil)
		}

		now := time.Now()
		_, err = tx.ExecContext(ctx,
			`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
			string(types.StatusAbandoned), now.Unix(), sessionID)
		if err != nil {
			return appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
				"Failed to abandon session", err)
		}

		session.Status = types.StatusAbandoned
		session.UpdatedAt = now
		updated = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetStats returns aggregate counts.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to query session stats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
				"Failed to scan stats row", err)
		}
		stats.Sessions += count
		switch parsed, _ := types.ParseSessionStatus(status); parsed {
		case types.StatusCompleted:
			stats.Completed += count
		case types.StatusAbandoned:
			stats.Abandoned += count
		default:
			stats.InProgress += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to iterate stats rows", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&stats.Messages); err != nil {
		return nil, appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to count messages", err)
	}
	return stats, nil
}

func (s *SQLiteStore) getSessionTx(ctx context.Context, tx *sql.Tx, sessionID string) (*types.Session, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID)
	return s.scanSession(row)
}

func (s *SQLiteStore) writeProgressTx(ctx context.Context, tx *sql.Tx, sessionID string, progress types.ProgressState) error {
	progressJSON, err := json.Marshal(progress)
	if err != nil {
		return appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to encode progress state", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET progress_json = ?, updated_at = ? WHERE id = ?`,
		string(progressJSON), time.Now().Unix(), sessionID)
	if err != nil {
		return appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to update session progress", err)
	}
	return nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("Transaction rollback failed", "error", rbErr.Error())
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return appErrors.NewStorageError(appErrors.ErrCodeStorageFailed,
			"Failed to commit transaction", err)
	}
	return nil
}
