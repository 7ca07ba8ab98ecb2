package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNetworkFilesystem is matched by errors from OpenSQLite when the journal
// would live on a remote mount.
var ErrNetworkFilesystem = errors.New("journal on network filesystem")

// fsDetector names the filesystem holding an existing path. An empty name means
// the platform cannot tell.
type fsDetector func(path string) (string, error)

// remoteFilesystems cannot hold the WAL shared-memory index the journal uses.
var remoteFilesystems = map[string]bool{
	"9p":         true,
	"afpfs":      true,
	"ceph":       true,
	"cifs":       true,
	"fuse.sshfs": true,
	"nfs":        true,
	"nfs4":       true,
	"smb2":       true,
	"smb3":       true,
	"smbfs":      true,
	"webdav":     true,
}

// MountError reports a journal path that resolves onto a remote mount.
type MountError struct {
	Path      string // requested journal path
	Inspected string // nearest existing ancestor
	FSType    string
}

func (e *MountError) Error() string {
	return fmt.Sprintf("journal path %q is on %s (checked %s); WAL mode needs local disk, set journal.path elsewhere or disable the journal",
		e.Path, e.FSType, e.Inspected)
}

func (e *MountError) Unwrap() error { return ErrNetworkFilesystem }

func checkJournalMount(path string, detect fsDetector) error {
	if path == "" {
		return errors.New("sqlite path is empty")
	}
	inspected, err := existingAncestor(path)
	if err != nil {
		return fmt.Errorf("resolve journal path %q: %w", path, err)
	}
	fsType, err := detect(inspected)
	if err != nil {
		return fmt.Errorf("inspect filesystem of %q: %w", inspected, err)
	}
	if isRemoteFilesystem(fsType) {
		return &MountError{Path: path, Inspected: inspected, FSType: fsType}
	}
	return nil
}

// existingAncestor walks up from path to the first component that exists,
// since the journal file and its directory may not have been created yet.
func existingAncestor(path string) (string, error) {
	p, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", fmt.Errorf("no existing ancestor of %q", path)
		}
		p = parent
	}
}

func isRemoteFilesystem(fsType string) bool {
	return remoteFilesystems[strings.ToLower(strings.TrimSpace(fsType))]
}
