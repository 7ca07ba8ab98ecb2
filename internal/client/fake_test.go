package client

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/mattjoyce/lvsctl/internal/protocol"
	"github.com/mattjoyce/lvsctl/internal/transport"
)

// fakeTransport is an in-memory engine. Tests push engine output with emit
// and inspect what the client wrote with written.
type fakeTransport struct {
	mu       sync.Mutex
	writes   [][]byte
	onWrite  func(line []byte)
	writeErr error

	lines      chan []byte
	eof        chan struct{}
	eofOnce    sync.Once
	done       chan struct{}
	doneOnce   sync.Once
	closed     bool
	terminated int
	grace      time.Duration

	// ignoreCancel makes ReadLine block through context cancellation.
	ignoreCancel bool

	// timeouts is how many ReadLine calls report transport.ErrTimeout
	// before output is read again.
	timeouts     int
	timeoutsSeen int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		lines: make(chan []byte),
		eof:   make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (f *fakeTransport) WriteLine(line []byte) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return transport.ErrClosed
	}
	if f.writeErr != nil {
		err := f.writeErr
		f.mu.Unlock()
		return err
	}
	f.writes = append(f.writes, append([]byte(nil), line...))
	hook := f.onWrite
	f.mu.Unlock()

	if hook != nil {
		hook(line)
	}
	return nil
}

func (f *fakeTransport) ReadLine(ctx context.Context) ([]byte, error) {
	if f.ignoreCancel {
		<-f.eof
		return nil, io.EOF
	}
	if f.takeTimeout() {
		return nil, transport.ErrTimeout
	}
	select {
	case line := <-f.lines:
		return line, nil
	case <-f.eof:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTransport) takeTimeout() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timeoutsSeen >= f.timeouts {
		return false
	}
	f.timeoutsSeen++
	return true
}

func (f *fakeTransport) timeoutsReported() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timeoutsSeen
}

func (f *fakeTransport) IsAlive() bool {
	select {
	case <-f.done:
		return false
	default:
		return true
	}
}

func (f *fakeTransport) Done() <-chan struct{} { return f.done }

func (f *fakeTransport) CloseStreams() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Terminate(grace time.Duration) error {
	f.mu.Lock()
	f.terminated++
	f.grace = grace
	f.mu.Unlock()
	f.exit()
	return nil
}

// emit delivers one line of engine output and returns once the listener took it.
// Because the listener handles lines one at a time, a following emit("")
// returns only after the previous line was fully dispatched.
func (f *fakeTransport) emit(line string) {
	f.lines <- []byte(line)
}

// closeOutput simulates the engine closing stdout.
func (f *fakeTransport) closeOutput() {
	f.eofOnce.Do(func() { close(f.eof) })
}

// exit simulates the engine process exiting.
func (f *fakeTransport) exit() {
	f.doneOnce.Do(func() { close(f.done) })
	f.closeOutput()
}

func (f *fakeTransport) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.writes))
	for i, w := range f.writes {
		out[i] = string(w)
	}
	return out
}

func (f *fakeTransport) terminateCalls() (int, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terminated, f.grace
}

type recorded struct {
	dir  protocol.Direction
	msg  protocol.Message
	line string
}

type memRecorder struct {
	mu      sync.Mutex
	entries []recorded
}

func (r *memRecorder) Record(dir protocol.Direction, msg protocol.Message, line []byte) {
	r.mu.Lock()
	r.entries = append(r.entries, recorded{dir: dir, msg: msg, line: string(line)})
	r.mu.Unlock()
}

func (r *memRecorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.entries...)
}

func fakeSpawn(ft *fakeTransport) func(transport.Options) (Transport, error) {
	return func(transport.Options) (Transport, error) { return ft, nil }
}
