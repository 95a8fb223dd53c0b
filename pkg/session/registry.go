// Package session provides SQLite-backed storage for conversation sessions.
//
// A session is one user-scoped conversation thread: an opaque id, an
// interactive stage tag, and an append-only ordered history of turns.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver

	"synergy/pkg/logx"
)

// ErrSessionNotFound is returned when a requested session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// Turn roles.
const (
	RoleUser       = "user"
	RoleAgent      = "agent"
	RoleSystem     = "system"
	RoleEvaluation = "evaluation"
)

// Stage values for interactive sessions. One-shot workflow sessions keep the
// zero value StageNone.
type Stage string

const (
	StageNone         Stage = ""
	StageReady        Stage = "ready"
	StageInterviewing Stage = "interviewing"
	StageEvaluating   Stage = "evaluating"
	StageFinished     Stage = "finished"
)

// Session identifies one conversation thread.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Stage     Stage     `json:"stage,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn is one entry in a session's ordered history.
type Turn struct {
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	stage TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS turns (
	session_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	role TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (session_id, seq),
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);
`

// Registry maps (user, session) to conversation state.
//
// Mutations on the same session are serialized through a per-session mutex so
// two racing continue calls cannot interleave their history appends.
type Registry struct {
	db     *sql.DB
	logger *logx.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open opens (or creates) the registry database at dbPath. Use ":memory:" for
// an ephemeral registry in tests.
func Open(dbPath string) (*Registry, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		// WAL mode and busy timeout; sqlite supports a single writer.
		dsn = fmt.Sprintf("file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000", dbPath)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping session database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize session schema: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Registry{
		db:     db,
		logger: logx.NewLogger("session"),
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close session database: %w", err)
	}
	return nil
}

// sessionLock returns the mutex serializing mutations for one session id.
func (r *Registry) sessionLock(sessionID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[sessionID] = lock
	}
	return lock
}

// NewSessionID generates a fresh id of the form {prefix}_{random8hex}.
func NewSessionID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s_%s", prefix, hex[:8])
}

// Ensure creates a session record if absent. Calling it twice with the same
// id is equivalent to calling it once: an existing session is success, not an
// error. A failure while creating a genuinely new session propagates.
func (r *Registry) Ensure(ctx context.Context, userID, sessionID string) error {
	lock := r.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id)
		VALUES (?, ?)
		ON CONFLICT(session_id) DO NOTHING
	`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", sessionID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		r.logger.Debug("created session %s for user %s", sessionID, userID)
	}
	return nil
}

// Get returns a session by id.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, stage, created_at
		FROM sessions
		WHERE session_id = ?
	`, sessionID)

	var s Session
	var stage string
	err := row.Scan(&s.SessionID, &s.UserID, &stage, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	s.Stage = Stage(stage)
	return &s, nil
}

// AppendTurn appends one turn to the session history.
func (r *Registry) AppendTurn(ctx context.Context, sessionID, role, text string) error {
	lock := r.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO turns (session_id, seq, role, text)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?
		FROM turns WHERE session_id = ?
	`, sessionID, role, text, sessionID)
	if err != nil {
		return fmt.Errorf("failed to append turn to %s: %w", sessionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to append turn to %s", sessionID)
	}
	return nil
}

// History returns the session's turns in append order.
func (r *Registry) History(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, seq, role, text, created_at
		FROM turns
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.SessionID, &t.Seq, &t.Role, &t.Text, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}
	return turns, nil
}

// GetStage returns the interactive stage of a session.
func (r *Registry) GetStage(ctx context.Context, sessionID string) (Stage, error) {
	s, err := r.Get(ctx, sessionID)
	if err != nil {
		return StageNone, err
	}
	return s.Stage, nil
}

// SetStage updates the interactive stage of a session.
func (r *Registry) SetStage(ctx context.Context, sessionID string, stage Stage) error {
	lock := r.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET stage = ? WHERE session_id = ?
	`, string(stage), sessionID)
	if err != nil {
		return fmt.Errorf("failed to set stage for %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
