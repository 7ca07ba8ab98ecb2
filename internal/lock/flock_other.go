//go:build !unix

package lock

import "os"

// Without flock the PID file is advisory only.
func tryLock(*os.File) error { return nil }

func unlock(*os.File) {}
