// Package lock keeps a single controller per config directory: two
// controllers would spawn two engines and interleave one journal.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrHeld is returned when another live process owns the lock.
var ErrHeld = errors.New("lock held by another process")

// InstanceLock is a PID file guarded by flock(2) where available.
// The lock lives as long as the file descriptor stays open.
type InstanceLock struct {
	path string
	f    *os.File
}

// Acquire takes the lock at path without blocking and records our PID in it.
func Acquire(path string) (*InstanceLock, error) {
	if path == "" {
		return nil, errors.New("lock path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := tryLock(f); err != nil {
		_ = f.Close()
		if pid, ok := HolderPID(path); ok {
			return nil, fmt.Errorf("%w (pid %d, %s)", ErrHeld, pid, path)
		}
		return nil, fmt.Errorf("%w (%s): %v", ErrHeld, path, err)
	}

	if err := writePID(f); err != nil {
		unlock(f)
		_ = f.Close()
		return nil, err
	}
	return &InstanceLock{path: path, f: f}, nil
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		return fmt.Errorf("write pid: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync lock file: %w", err)
	}
	return nil
}

// HolderPID reads the PID recorded in the lock file at path.
func HolderPID(path string) (int, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func (l *InstanceLock) Path() string { return l.path }

// Release drops the lock. The file stays so a waiting process never locks
// an unlinked inode. It is safe to call twice.
func (l *InstanceLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = l.f.Truncate(0)
	unlock(l.f)
	err := l.f.Close()
	l.f = nil
	return err
}
