package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func fixedDetector(fsType string, seen *string) fsDetector {
	return func(path string) (string, error) {
		if seen != nil {
			*seen = path
		}
		return fsType, nil
	}
}

func TestCheckJournalMountLocal(t *testing.T) {
	t.Parallel()

	for _, fsType := range []string{"", "ext4", "apfs", "tmpfs"} {
		if err := checkJournalMount(filepath.Join(t.TempDir(), "journal.db"), fixedDetector(fsType, nil)); err != nil {
			t.Errorf("fs %q: unexpected error %v", fsType, err)
		}
	}
}

func TestCheckJournalMountRemote(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "lvs", "journal.db")
	err := checkJournalMount(path, fixedDetector("NFS4", nil))
	if !errors.Is(err, ErrNetworkFilesystem) {
		t.Fatalf("expected ErrNetworkFilesystem, got %v", err)
	}

	var me *MountError
	if !errors.As(err, &me) {
		t.Fatalf("expected *MountError, got %T", err)
	}
	if me.Path != path || me.Inspected != dir || me.FSType != "NFS4" {
		t.Fatalf("unexpected MountError %+v", me)
	}
}

func TestCheckJournalMountInspectsNearestAncestor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var seen string
	if err := checkJournalMount(filepath.Join(root, "a", "b", "journal.db"), fixedDetector("ext4", &seen)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if seen != root {
		t.Fatalf("inspected %q, want %q", seen, root)
	}
}

func TestCheckJournalMountDetectorFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("statfs: permission denied")
	err := checkJournalMount(filepath.Join(t.TempDir(), "journal.db"), func(string) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected detector error to be wrapped, got %v", err)
	}
	if errors.Is(err, ErrNetworkFilesystem) {
		t.Fatal("detector failure must not read as a network filesystem")
	}
}

func TestIsRemoteFilesystem(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"nfs":        true,
		" SMBFS ":    true,
		"fuse.sshfs": true,
		"9p":         true,
		"ext4":       false,
		"":           false,
	}
	for fsType, want := range cases {
		if got := isRemoteFilesystem(fsType); got != want {
			t.Errorf("isRemoteFilesystem(%q) = %v, want %v", fsType, got, want)
		}
	}
}

func TestDetectFilesystemOnTempDir(t *testing.T) {
	t.Parallel()

	if _, err := detectFilesystem(t.TempDir()); err != nil {
		t.Fatalf("detectFilesystem: %v", err)
	}
}
