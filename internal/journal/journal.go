// Package journal records every line exchanged with the engine into SQLite.
//
// Record never blocks: entries are queued on a buffered channel and written
// in batches by one goroutine. When the queue is full the entry is dropped
// and counted, so a slow disk can never stall the listener.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/lvsctl/internal/log"
	"github.com/mattjoyce/lvsctl/internal/protocol"
	"github.com/mattjoyce/lvsctl/internal/storage"
)

const (
	// DefaultBuffer is the queue depth when Options.Buffer is unset.
	DefaultBuffer = 1024

	maxBatch      = 128
	flushInterval = 200 * time.Millisecond
	writeTimeout  = 5 * time.Second
)

// Options configures Open.
type Options struct {
	Path       string
	EnginePath string
	ConfigHash string
	Buffer     int
}

// Journal is a session-scoped traffic recorder. It satisfies client.Recorder.
type Journal struct {
	store     *storage.JournalStore
	db        *sql.DB
	sessionID string
	logger    *slog.Logger

	queue   chan storage.MessageRecord
	dropped atomic.Uint64
	written atomic.Uint64

	mu     sync.RWMutex
	closed bool

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Open opens the database, starts a new session and the writer goroutine.
func Open(ctx context.Context, opts Options) (*Journal, error) {
	db, err := storage.OpenSQLite(ctx, opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	j, err := start(ctx, db, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func start(ctx context.Context, db *sql.DB, opts Options) (*Journal, error) {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}

	id := uuid.NewString()
	store := storage.NewJournalStore(db)
	if err := store.CreateSession(ctx, storage.Session{
		ID:         id,
		EnginePath: opts.EnginePath,
		ConfigHash: opts.ConfigHash,
		StartedAt:  time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	j := &Journal{
		store:     store,
		db:        db,
		sessionID: id,
		logger:    log.WithSession(id).With("component", "journal"),
		queue:     make(chan storage.MessageRecord, opts.Buffer),
		done:      make(chan struct{}),
	}
	go j.run()

	j.logger.Info("journal session started", "path", opts.Path)
	return j, nil
}

// SessionID returns the id of the session this journal writes to.
func (j *Journal) SessionID() string {
	return j.sessionID
}

// Record queues one line. msg is nil for lines that failed to decode.
func (j *Journal) Record(dir protocol.Direction, msg protocol.Message, line []byte) {
	kind := "UNDECODABLE"
	if msg != nil {
		kind = msg.Kind().String()
	}
	rec := storage.MessageRecord{
		SessionID:  j.sessionID,
		Direction:  string(dir),
		Kind:       kind,
		Line:       string(line),
		RecordedAt: time.Now(),
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		j.dropped.Add(1)
		return
	}

	select {
	case j.queue <- rec:
	default:
		if n := j.dropped.Add(1); n == 1 || n%100 == 0 {
			j.logger.Warn("journal queue full, dropping records", "dropped", n)
		}
	}
}

// Sessions lists the most recent sessions first.
func (j *Journal) Sessions(ctx context.Context, limit int) ([]storage.Session, error) {
	return j.store.ListSessions(ctx, limit)
}

// Tail returns the last limit messages of session, or of the current session when empty.
// Records still queued are not included.
func (j *Journal) Tail(ctx context.Context, session string, limit int) ([]storage.MessageRecord, error) {
	if session == "" {
		session = j.sessionID
	}
	return j.store.TailMessages(ctx, session, limit)
}

// Dropped returns how many records were discarded because the queue was full.
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

// Written returns how many records reached the database.
func (j *Journal) Written() uint64 {
	return j.written.Load()
}

func (j *Journal) run() {
	defer close(j.done)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]storage.MessageRecord, 0, maxBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := j.store.AppendMessages(ctx, batch); err != nil {
			j.dropped.Add(uint64(len(batch)))
			j.logger.Error("journal write failed", "error", err, "records", len(batch))
		} else {
			j.written.Add(uint64(len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec, ok := <-j.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, rec)
			if len(batch) >= maxBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Close drains the queue, ends the session and closes the database.
// It is idempotent.
func (j *Journal) Close() error {
	j.closeOnce.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.queue)
		j.mu.Unlock()

		<-j.done

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()

		var errs []error
		if err := j.store.EndSession(ctx, j.sessionID, time.Now(), j.dropped.Load()); err != nil {
			errs = append(errs, err)
		}
		if err := j.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal db: %w", err))
		}
		j.closeErr = errors.Join(errs...)

		j.logger.Info("journal session ended", "written", j.written.Load(), "dropped", j.dropped.Load())
	})
	return j.closeErr
}
