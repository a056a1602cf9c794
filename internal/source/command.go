package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"statusrelay/internal/config"
)

// Command runs a shell command line and returns its standard output.
type Command struct {
	Shell   string
	Line    string
	Timeout time.Duration // 0 = no timeout
	Env     map[string]string
}

// NewCommand builds a command source run through shell -c.
func NewCommand(shell, line string, timeout time.Duration) *Command {
	if strings.TrimSpace(shell) == "" {
		shell = config.DefaultShell
	}
	return &Command{Shell: shell, Line: line, Timeout: timeout}
}

// Query runs the command and returns stdout untouched. A non-zero exit is an
// error carrying the command's stderr.
func (c *Command) Query(ctx context.Context) (string, error) {
	if strings.TrimSpace(c.Line) == "" {
		return "", fmt.Errorf("command not configured")
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Shell, "-c", c.Line)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = os.Environ()
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	// Kill the whole tree, not just the shell, when the context ends
	setupProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = config.ProcessKillWaitDelay

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("command %q: %w", c.Line, ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("command %q: %w: %s", c.Line, err, msg)
		}
		return "", fmt.Errorf("command %q: %w", c.Line, err)
	}

	return stdout.String(), nil
}

// String describes the source for logs.
func (c *Command) String() string {
	return fmt.Sprintf("%s -c %q", c.Shell, c.Line)
}

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
