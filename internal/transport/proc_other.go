//go:build !unix

package transport

import "os/exec"

func setProcAttr(cmd *exec.Cmd) {}

// Windows has no SIGTERM; the engine is killed outright.
func signalTerm(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func forceKill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
