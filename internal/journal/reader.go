package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/mattjoyce/lvsctl/internal/storage"
)

// Reader inspects a journal database without starting a session.
type Reader struct {
	db    *sql.DB
	store *storage.JournalStore
}

// OpenReader opens an existing journal database.
func OpenReader(ctx context.Context, path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("journal %s: %w", path, err)
	}
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Reader{db: db, store: storage.NewJournalStore(db)}, nil
}

// Sessions lists the most recent sessions first.
func (r *Reader) Sessions(ctx context.Context, limit int) ([]storage.Session, error) {
	return r.store.ListSessions(ctx, limit)
}

// Tail returns the last limit messages of session. An empty session means the latest one.
func (r *Reader) Tail(ctx context.Context, session string, limit int) ([]storage.MessageRecord, error) {
	if session == "" {
		id, err := r.store.LatestSessionID(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrSessionNotFound) {
				return nil, fmt.Errorf("journal is empty: %w", err)
			}
			return nil, err
		}
		session = id
	}
	return r.store.TailMessages(ctx, session, limit)
}

// Close closes the database.
func (r *Reader) Close() error {
	return r.db.Close()
}
