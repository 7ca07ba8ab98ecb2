package lock

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

func TestAcquireWritesPID(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lvsctl.lock")
	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = l.Release() })

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := strings.TrimSpace(string(b)); got != strconv.Itoa(os.Getpid()) {
		t.Fatalf("lock file = %q, want our pid", got)
	}
	if pid, ok := HolderPID(path); !ok || pid != os.Getpid() {
		t.Fatalf("HolderPID = %d, %v", pid, ok)
	}
}

func TestAcquireTwiceFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("flock not available")
	}
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "lvsctl.lock")
	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	t.Cleanup(func() { _ = first.Release() })

	_, err = Acquire(path)
	if !errors.Is(err, ErrHeld) {
		t.Fatalf("second Acquire err = %v, want ErrHeld", err)
	}
	if !strings.Contains(err.Error(), strconv.Itoa(os.Getpid())) {
		t.Fatalf("error %q should name the holder pid", err)
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lvsctl.lock")
	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	if _, ok := HolderPID(path); ok {
		t.Fatal("released lock should not report a holder")
	}

	again, err := Acquire(path)
	if err != nil {
		t.Fatalf("re-Acquire: %v", err)
	}
	_ = again.Release()
}

func TestAcquireEmptyPath(t *testing.T) {
	if _, err := Acquire(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestHolderPIDGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lvsctl.lock")
	if err := os.WriteFile(path, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := HolderPID(path); ok {
		t.Fatal("garbage should not parse as a pid")
	}
	if _, ok := HolderPID(filepath.Join(t.TempDir(), "missing")); ok {
		t.Fatal("missing file should not report a holder")
	}
}
