//go:build !windows

package source

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// setupProcessGroup makes the shell the leader of a new process group, so its
// pid doubles as the group id for every command in the pipeline.
func setupProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// killProcessGroup sends SIGKILL to the group led by the shell. A group that
// has already exited reports os.ErrProcessDone, which exec.Cmd ignores.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, syscall.ESRCH):
		return os.ErrProcessDone
	default:
		return fmt.Errorf("kill process group %d: %w", cmd.Process.Pid, err)
	}
}
