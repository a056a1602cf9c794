//go:build windows

package source

import (
	"fmt"
	"os/exec"
	"strconv"
)

// setupProcessGroup does nothing on Windows; taskkill /T walks the tree instead.
func setupProcessGroup(*exec.Cmd) {}

// killProcessGroup terminates the shell and its children with taskkill.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	pid := strconv.Itoa(cmd.Process.Pid)
	if out, err := exec.Command("taskkill", "/T", "/F", "/PID", pid).CombinedOutput(); err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("taskkill %s: %w: %s", pid, err, out)
	}
	return nil
}
