//go:build windows

package supervise

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {}

func signalGroupTerm(cmd *exec.Cmd) {
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

func signalGroupKill(cmd *exec.Cmd) {
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
