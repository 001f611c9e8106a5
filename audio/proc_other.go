//go:build !unix

package audio

import "os/exec"

func setProcessGroup(*exec.Cmd) {}

// No SIGTERM here; the recorder is killed outright.
func terminate(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func kill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
