//go:build !windows

package main

import (
	"bufio"
	"io"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statusrelay/internal/relay"
)

func TestRun_SIGTERMExitsZero(t *testing.T) {
	codes := stubExit(t)
	path := writeConfig(t, "network:\n  command: printf 'n'\n")

	configPath, logLevel, logFile, hostnameFlag = "", "", "", ""
	t.Cleanup(func() {
		configPath, logLevel, logFile, hostnameFlag = "", "", "", ""
		logger, cfg, cfgLoader = nil, nil, nil
	})

	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	rootCmd.SetIn(stdinR)
	rootCmd.SetOut(stdoutW)
	rootCmd.SetArgs([]string{"run", "--config", path})

	done := make(chan error, 1)
	go func() {
		err := rootCmd.Execute()
		_ = stdoutW.Close()
		done <- err
	}()

	// Once the preamble comes back the signal handler is installed
	out := bufio.NewReader(stdoutR)
	_, err := io.WriteString(stdinW, "{\"version\":1}\n[\n")
	require.NoError(t, err)
	for _, want := range []string{"{\"version\":1}\n", "[\n"} {
		got, err := out.ReadString('\n')
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case code := <-codes:
		assert.Equal(t, ExitInterrupted, code)
	case <-time.After(5 * time.Second):
		t.Fatal("no exit after SIGTERM")
	}

	_ = stdinW.Close()
	_, _ = io.Copy(io.Discard, out)
	assert.ErrorIs(t, <-done, relay.ErrEndOfStream)
}
