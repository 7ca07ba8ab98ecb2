package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mattjoyce/lvsctl/internal/log"
)

const (
	// DefaultReadTimeout bounds a single ReadLine call.
	DefaultReadTimeout = 5 * time.Second

	// maxKillReserve caps the share of the grace period Terminate keeps for SIGKILL.
	maxKillReserve = 500 * time.Millisecond

	// waitDelay bounds how long Wait keeps copying stderr after the engine exits.
	waitDelay = time.Second

	readBufferSize = 64 * 1024
)

var (
	// ErrClosed means the write side is gone: streams closed or the engine exited.
	ErrClosed = errors.New("transport closed")
	// ErrWriteFailed means a write to a live pipe failed for another reason.
	ErrWriteFailed = errors.New("write failed")
	// ErrTimeout means no line arrived within the read timeout. It is not fatal.
	ErrTimeout = errors.New("read timeout")
	// ErrInvalidLine means the caller tried to write a line containing a newline.
	ErrInvalidLine = errors.New("line contains newline")
)

// Options describes how to spawn the engine.
type Options struct {
	Path        string
	Args        []string
	Dir         string
	Env         []string // appended to the controller's environment
	ReadTimeout time.Duration
	Logger      *slog.Logger
}

// Process owns a spawned engine and both ends of its stdio pipes.
type Process struct {
	cmd         *exec.Cmd
	stdin       *os.File
	stdout      *os.File
	readTimeout time.Duration
	logger      *slog.Logger

	lines chan []byte
	quit  chan struct{}

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once

	done    chan struct{}
	waitErr error
}

// Spawn starts the engine with stdin/stdout bound to private pipes.
// Stderr lines are forwarded to the logger.
func Spawn(opts Options) (*Process, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("engine path is empty")
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.WithComponent("transport")
	}

	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		_ = inR.Close()
		_ = inW.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	// Don't use CommandContext - termination is managed by Terminate.
	cmd := exec.Command(opts.Path, opts.Args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cmd.Stdin = inR
	cmd.Stdout = outW
	cmd.Stderr = &stderrLogger{logger: opts.Logger.With("stream", "stderr")}
	cmd.WaitDelay = waitDelay
	setProcAttr(cmd)

	opts.Logger.Debug("spawning engine", "path", opts.Path, "args", opts.Args)

	if err := cmd.Start(); err != nil {
		_ = inR.Close()
		_ = inW.Close()
		_ = outR.Close()
		_ = outW.Close()
		return nil, fmt.Errorf("start engine %q: %w", opts.Path, err)
	}

	// The child holds its own copies of these ends.
	_ = inR.Close()
	_ = outW.Close()

	p := &Process{
		cmd:         cmd,
		stdin:       inW,
		stdout:      outR,
		readTimeout: opts.ReadTimeout,
		logger:      opts.Logger.With("pid", cmd.Process.Pid),
		lines:       make(chan []byte),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}

	go p.wait()
	go p.pump()

	p.logger.Info("engine started", "path", opts.Path)
	return p, nil
}

func (p *Process) wait() {
	p.waitErr = p.cmd.Wait()
	close(p.done)

	if p.waitErr != nil {
		p.logger.Info("engine exited", "error", p.waitErr)
	} else {
		p.logger.Info("engine exited")
	}
}

// pump is the only reader of stdout. It hands complete lines to ReadLine.
func (p *Process) pump() {
	defer close(p.lines)

	reader := bufio.NewReaderSize(p.stdout, readBufferSize)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			line = bytes.TrimRight(line, "\r\n")
			select {
			case p.lines <- line:
			case <-p.quit:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !p.closed.Load() {
				p.logger.Warn("engine stdout read failed", "error", err)
			}
			return
		}
	}
}

// WriteLine writes line plus a newline as one write. Concurrent calls never interleave.
func (p *Process) WriteLine(line []byte) error {
	if bytes.IndexByte(line, '\n') >= 0 {
		return fmt.Errorf("write line: %w", ErrInvalidLine)
	}

	buf := make([]byte, len(line)+1)
	copy(buf, line)
	buf[len(line)] = '\n'

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if p.closed.Load() {
		return fmt.Errorf("write line: %w", ErrClosed)
	}
	select {
	case <-p.done:
		return fmt.Errorf("write line: %w: engine exited", ErrClosed)
	default:
	}

	if _, err := p.stdin.Write(buf); err != nil {
		if isClosedErr(err) {
			return fmt.Errorf("write line: %w: %w", ErrClosed, err)
		}
		return fmt.Errorf("write line: %w: %w", ErrWriteFailed, err)
	}
	return nil
}

// ReadLine returns the next line from the engine without its terminator.
// It returns io.EOF once the engine closed stdout, ErrTimeout when nothing
// arrived within the read timeout, or ctx.Err() when ctx is done.
func (p *Process) ReadLine(ctx context.Context) ([]byte, error) {
	timer := time.NewTimer(p.readTimeout)
	defer timer.Stop()

	select {
	case line, ok := <-p.lines:
		if !ok {
			return nil, io.EOF
		}
		return line, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsAlive reports whether the engine has not yet been reaped.
func (p *Process) IsAlive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Done is closed once the engine has exited and been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitErr returns the result of waiting on the engine. Only meaningful after Done.
func (p *Process) ExitErr() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

// Pid returns the engine's process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// CloseStreams closes the controller's ends of both pipes. Safe to call repeatedly.
func (p *Process) CloseStreams() error {
	var errs []error
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.quit)
		if err := p.stdin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stdin: %w", err))
		}
		if err := p.stdout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stdout: %w", err))
		}
	})
	return errors.Join(errs...)
}

// Terminate asks the engine to exit and kills it if it is still running
// near the end of grace. The whole call, reaping included, takes at most grace.
func (p *Process) Terminate(grace time.Duration) error {
	if !p.IsAlive() {
		return nil
	}

	deadline := time.NewTimer(grace)
	defer deadline.Stop()

	p.logger.Info("terminating engine", "grace", grace)
	if err := signalTerm(p.cmd); err != nil {
		p.logger.Warn("failed to send SIGTERM", "error", err)
	}

	termWindow := time.NewTimer(grace - killReserve(grace))
	defer termWindow.Stop()

	select {
	case <-p.done:
		p.logger.Info("engine exited after SIGTERM")
		return nil
	case <-termWindow.C:
	}

	p.logger.Warn("engine did not exit after SIGTERM, sending SIGKILL")
	if err := forceKill(p.cmd); err != nil {
		p.logger.Error("failed to send SIGKILL", "error", err)
	}

	select {
	case <-p.done:
		return nil
	case <-deadline.C:
		return fmt.Errorf("engine pid %d not reaped within %v", p.Pid(), grace)
	}
}

// killReserve is the tail of grace left for SIGKILL and reaping.
func killReserve(grace time.Duration) time.Duration {
	return min(grace/2, maxKillReserve)
}

func isClosedErr(err error) bool {
	return errors.Is(err, os.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.EPIPE)
}

// stderrLogger turns the engine's stderr into log lines.
type stderrLogger struct {
	logger *slog.Logger
	buf    []byte
}

func (s *stderrLogger) Write(b []byte) (int, error) {
	s.buf = append(s.buf, b...)
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			break
		}
		if line := bytes.TrimRight(s.buf[:i], "\r"); len(line) > 0 {
			s.logger.Debug("engine output", "line", string(line))
		}
		s.buf = s.buf[i+1:]
	}
	if len(s.buf) > readBufferSize {
		s.logger.Debug("engine output", "line", string(s.buf))
		s.buf = s.buf[:0]
	}
	return len(b), nil
}
