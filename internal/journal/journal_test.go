package journal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/lvsctl/internal/log"
	"github.com/mattjoyce/lvsctl/internal/protocol"
	"github.com/mattjoyce/lvsctl/internal/storage"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR", "json")
	os.Exit(m.Run())
}

func openJournal(t *testing.T, buffer int) (*Journal, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(context.Background(), Options{
		Path:       path,
		EnginePath: "/opt/lvs/engine",
		ConfigHash: "deadbeef",
		Buffer:     buffer,
	})
	require.NoError(t, err)
	return j, path
}

func TestRecordAndTail(t *testing.T) {
	j, path := openJournal(t, 16)

	j.Record(protocol.Outbound, protocol.LoadPreset{PresetName: "a.milk", StartTimestampMs: 1}, []byte(`{"type":1,"data":{"presetName":"a.milk","startTimestampMs":1}}`))
	j.Record(protocol.Inbound, protocol.PresetLoaded{PresetName: "a.milk", StartTimestampMs: 1}, []byte(`{"type":5,"data":{"presetName":"a.milk","startTimestampMs":1}}`))
	j.Record(protocol.Inbound, nil, []byte(`garbage`))

	sessionID := j.SessionID()
	require.NoError(t, j.Close())
	require.NoError(t, j.Close(), "Close is idempotent")
	assert.Equal(t, uint64(3), j.Written())
	assert.Equal(t, uint64(0), j.Dropped())

	r, err := OpenReader(context.Background(), path)
	require.NoError(t, err)
	defer r.Close()

	msgs, err := r.Tail(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, sessionID, msgs[0].SessionID)
	assert.Equal(t, "out", msgs[0].Direction)
	assert.Equal(t, "LOAD_PRESET", msgs[0].Kind)
	assert.Equal(t, "in", msgs[1].Direction)
	assert.Equal(t, "PRESET_LOADED", msgs[1].Kind)
	assert.Equal(t, "UNDECODABLE", msgs[2].Kind)
	assert.Equal(t, "garbage", msgs[2].Line)

	sessions, err := r.Sessions(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, sessionID, sessions[0].ID)
	assert.Equal(t, "deadbeef", sessions[0].ConfigHash)
	assert.Equal(t, 3, sessions[0].Messages)
	assert.NotNil(t, sessions[0].EndedAt)
}

func TestTailCurrentSessionWhileOpen(t *testing.T) {
	j, _ := openJournal(t, 16)
	defer j.Close()

	j.Record(protocol.Outbound, protocol.StopPreview{}, []byte(`{"type":4,"data":{}}`))

	require.Eventually(t, func() bool {
		msgs, err := j.Tail(context.Background(), "", 10)
		return err == nil && len(msgs) == 1
	}, 2*time.Second, 20*time.Millisecond)

	sessions, err := j.Sessions(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Nil(t, sessions[0].EndedAt)
}

func TestRecordDropsWhenQueueFull(t *testing.T) {
	j, _ := openJournal(t, 1)

	// Hold the writer's queue full by recording much faster than it drains.
	for range 5000 {
		j.Record(protocol.Outbound, protocol.SetTimestamp{TimestampMs: 1}, []byte(`{"type":0,"data":{"timestampMs":1}}`))
	}
	require.NoError(t, j.Close())

	assert.Equal(t, uint64(5000), j.Written()+j.Dropped())
	assert.Positive(t, j.Dropped())
}

func TestRecordAfterCloseIsDropped(t *testing.T) {
	j, _ := openJournal(t, 4)
	require.NoError(t, j.Close())

	j.Record(protocol.Outbound, protocol.StopPreview{}, []byte(`{"type":4,"data":{}}`))
	assert.Equal(t, uint64(1), j.Dropped())
}

func TestSessionsAreSeparate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	var ids []string
	for range 2 {
		j, err := Open(context.Background(), Options{Path: path, EnginePath: "/x"})
		require.NoError(t, err)
		j.Record(protocol.Outbound, protocol.StopPreview{}, []byte(`{"type":4,"data":{}}`))
		ids = append(ids, j.SessionID())
		require.NoError(t, j.Close())
	}
	require.NotEqual(t, ids[0], ids[1])

	r, err := OpenReader(context.Background(), path)
	require.NoError(t, err)
	defer r.Close()

	first, err := r.Tail(context.Background(), ids[0], 10)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, ids[0], first[0].SessionID)

	sessions, err := r.Sessions(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestOpenReaderMissingFile(t *testing.T) {
	_, err := OpenReader(context.Background(), filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
}

func TestReaderTailEmptyJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := storage.OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	r, err := OpenReader(context.Background(), path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Tail(context.Background(), "", 10)
	require.ErrorIs(t, err, storage.ErrSessionNotFound)
	assert.True(t, strings.Contains(err.Error(), "empty"))
}
