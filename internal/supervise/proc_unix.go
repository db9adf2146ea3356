//go:build !windows

package supervise

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalGroupTerm(cmd *exec.Cmd) {
	signalGroup(cmd, unix.SIGTERM)
}

func signalGroupKill(cmd *exec.Cmd) {
	signalGroup(cmd, unix.SIGKILL)
}

func signalGroup(cmd *exec.Cmd, sig unix.Signal) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if pid <= 0 {
		return
	}
	if pgid, err := unix.Getpgid(pid); err == nil && pgid > 0 {
		// Negative PGID signals the whole group, including any children
		// the transcoder spawned.
		_ = unix.Kill(-pgid, sig)
		return
	}
	_ = unix.Kill(pid, sig)
}
