package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS session_checkpoints (
	checkpoint_id TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	parent_id     TEXT,
	context_json  TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES session_checkpoints(checkpoint_id)
);

CREATE TABLE IF NOT EXISTS active_sessions (
	session_id    TEXT PRIMARY KEY,
	checkpoint_id TEXT NOT NULL,
	FOREIGN KEY (checkpoint_id) REFERENCES session_checkpoints(checkpoint_id)
);

CREATE TABLE IF NOT EXISTS transition_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	checkpoint_id TEXT,
	trigger_type  TEXT NOT NULL,
	from_phase    TEXT NOT NULL,
	to_phase      TEXT NOT NULL,
	topic_index   INTEGER NOT NULL,
	detail_json   TEXT,
	reason        TEXT,
	created_at    TEXT NOT NULL
);
`
// #endregion schema

// #region checkpoint-record
// Checkpoint is one persisted context version.
type Checkpoint struct {
	CheckpointID string
	SessionID    string
	ParentID     string
	Context      Context
	CreatedAt    time.Time
}
// #endregion checkpoint-record

// #region store-struct
// Store persists session checkpoints in SQLite. Checkpoints are
// versioned with a parent pointer; active_sessions tracks the latest
// checkpoint per session.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region save-checkpoint
// SaveCheckpoint inserts a new checkpoint and updates the active pointer
// atomically. Returns the stored checkpoint with its generated ID.
func (s *Store) SaveCheckpoint(sctx Context) (Checkpoint, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	ctxJSON, err := json.Marshal(sctx)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("marshal context: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Checkpoint{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentPtr interface{}
	var parentID string
	err = tx.QueryRow(
		`SELECT checkpoint_id FROM active_sessions WHERE session_id = ?`, sctx.SessionID,
	).Scan(&parentID)
	switch {
	case err == sql.ErrNoRows:
		// first checkpoint for this session
	case err != nil:
		return Checkpoint{}, fmt.Errorf("get active: %w", err)
	default:
		parentPtr = parentID
	}

	_, err = tx.Exec(
		`INSERT INTO session_checkpoints (checkpoint_id, session_id, parent_id, context_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, sctx.SessionID, parentPtr, string(ctxJSON), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("insert checkpoint: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_sessions (session_id, checkpoint_id) VALUES (?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET checkpoint_id = excluded.checkpoint_id`,
		sctx.SessionID, id,
	)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Checkpoint{}, fmt.Errorf("commit: %w", err)
	}

	return Checkpoint{
		CheckpointID: id,
		SessionID:    sctx.SessionID,
		ParentID:     parentID,
		Context:      sctx,
		CreatedAt:    now,
	}, nil
}
// #endregion save-checkpoint

// #region load-context
// LoadContext restores the latest checkpointed context for a session.
// This is the resume entry point after a full disconnect: it carries
// state-machine position only, never a mid-block clock offset.
func (s *Store) LoadContext(sessionID string) (Context, error) {
	var checkpointID string
	err := s.db.QueryRow(
		`SELECT checkpoint_id FROM active_sessions WHERE session_id = ?`, sessionID,
	).Scan(&checkpointID)
	if err != nil {
		return Context{}, fmt.Errorf("get active for %s: %w", sessionID, err)
	}
	cp, err := s.GetCheckpoint(checkpointID)
	if err != nil {
		return Context{}, err
	}
	return cp.Context, nil
}
// #endregion load-context

// #region get-checkpoint
// GetCheckpoint retrieves a specific checkpoint by ID.
func (s *Store) GetCheckpoint(id string) (Checkpoint, error) {
	var cp Checkpoint
	var parentID sql.NullString
	var ctxJSON string
	var createdStr string

	err := s.db.QueryRow(
		`SELECT checkpoint_id, session_id, parent_id, context_json, created_at
		 FROM session_checkpoints WHERE checkpoint_id = ?`, id,
	).Scan(&cp.CheckpointID, &cp.SessionID, &parentID, &ctxJSON, &createdStr)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("get checkpoint %s: %w", id, err)
	}

	if parentID.Valid {
		cp.ParentID = parentID.String
	}
	if err := json.Unmarshal([]byte(ctxJSON), &cp.Context); err != nil {
		return Checkpoint{}, fmt.Errorf("unmarshal context: %w", err)
	}
	if cp.Context.CompletedTopics == nil {
		cp.Context.CompletedTopics = map[string]bool{}
	}
	cp.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)

	return cp, nil
}
// #endregion get-checkpoint

// #region list-checkpoints
// ListCheckpoints returns the most recent checkpoints for a session.
func (s *Store) ListCheckpoints(sessionID string, limit int) ([]Checkpoint, error) {
	rows, err := s.db.Query(
		`SELECT checkpoint_id, session_id, parent_id, context_json, created_at
		 FROM session_checkpoints WHERE session_id = ?
		 ORDER BY created_at DESC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []Checkpoint
	for rows.Next() {
		var cp Checkpoint
		var parentID sql.NullString
		var ctxJSON string
		var createdStr string

		if err := rows.Scan(&cp.CheckpointID, &cp.SessionID, &parentID, &ctxJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if parentID.Valid {
			cp.ParentID = parentID.String
		}
		if err := json.Unmarshal([]byte(ctxJSON), &cp.Context); err != nil {
			return nil, fmt.Errorf("unmarshal context: %w", err)
		}
		cp.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, cp)
	}
	return out, rows.Err()
}
// #endregion list-checkpoints
