package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// Session is one engine run recorded in the journal.
type Session struct {
	ID         string     `json:"id"`
	EnginePath string     `json:"enginePath"`
	ConfigHash string     `json:"configHash,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	EndedAt    *time.Time `json:"endedAt,omitempty"`
	Dropped    uint64     `json:"dropped"`
	Messages   int        `json:"messages"`
}

// MessageRecord is one line exchanged with the engine.
type MessageRecord struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"sessionId"`
	Direction  string    `json:"direction"`
	Kind       string    `json:"kind"`
	Line       string    `json:"line"`
	RecordedAt time.Time `json:"recordedAt"`
}

// JournalStore reads and writes the sessions and messages tables.
type JournalStore struct {
	db *sql.DB
}

// NewJournalStore wraps an open database bootstrapped by OpenSQLite.
func NewJournalStore(db *sql.DB) *JournalStore {
	return &JournalStore{db: db}
}

// CreateSession inserts a new open session.
func (s *JournalStore) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions(id, engine_path, config_hash, started_at)
VALUES(?, ?, ?, ?);
`, sess.ID, sess.EnginePath, nullableString(sess.ConfigHash), sess.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// EndSession stamps the session as finished and records how many lines were dropped.
func (s *JournalStore) EndSession(ctx context.Context, id string, endedAt time.Time, dropped uint64) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE sessions SET ended_at = ?, dropped = ? WHERE id = ?;
`, endedAt.UTC().Format(time.RFC3339Nano), int64(dropped), id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("end session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}

// AppendMessages inserts a batch of messages in one transaction.
func (s *JournalStore) AppendMessages(ctx context.Context, msgs []MessageRecord) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO messages(session_id, direction, kind, line, recorded_at)
VALUES(?, ?, ?, ?, ?);
`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		if _, err := stmt.ExecContext(ctx, m.SessionID, m.Direction, m.Kind, m.Line, m.RecordedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListSessions returns the most recent sessions first.
func (s *JournalStore) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT s.id, s.engine_path, s.config_hash, s.started_at, s.ended_at, s.dropped,
       (SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id)
FROM sessions s
ORDER BY s.started_at DESC, s.rowid DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess      Session
			hash      sql.NullString
			startedAt string
			endedAt   sql.NullString
			dropped   int64
		)
		if err := rows.Scan(&sess.ID, &sess.EnginePath, &hash, &startedAt, &endedAt, &dropped, &sess.Messages); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.ConfigHash = hash.String
		sess.Dropped = uint64(dropped)
		if sess.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if endedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, endedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse ended_at: %w", err)
			}
			sess.EndedAt = &t
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// LatestSessionID returns the id of the most recently started session.
func (s *JournalStore) LatestSessionID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT 1;`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query latest session: %w", err)
	}
	return id, nil
}

// TailMessages returns the last limit messages of a session in recorded order.
func (s *JournalStore) TailMessages(ctx context.Context, sessionID string, limit int) ([]MessageRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, direction, kind, line, recorded_at FROM (
  SELECT id, session_id, direction, kind, line, recorded_at
  FROM messages
  WHERE session_id = ?
  ORDER BY id DESC
  LIMIT ?
) ORDER BY id ASC;
`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var (
			m          MessageRecord
			recordedAt string
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Direction, &m.Kind, &m.Line, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if m.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
