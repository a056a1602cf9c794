// Package config provides configuration types and utilities for statusrelay.
package config

import "time"

// Segment defaults
const (
	// DefaultMusicIndex puts the mpd segment in front of everything i3status sends
	DefaultMusicIndex = 0

	// DefaultNetworkIndex is the third position of the array
	DefaultNetworkIndex = 2

	// DefaultGovernorIndex is where the governor segment lands when enabled
	DefaultGovernorIndex = 4

	// DefaultMusicCommand queries mpd; --host is appended when music.host is set
	DefaultMusicCommand = "mpc"

	// DefaultGovernorPath exposes the cpu0 scaling governor; all CPUs are assumed to match
	DefaultGovernorPath = "/sys/devices/system/cpu/cpu0/cpufreq/scaling_governor"

	// DefaultProcPath is the procfs mount read by the built-in network meter
	DefaultProcPath = "/proc"

	// DefaultShell runs command sources with -c
	DefaultShell = "/bin/sh"
)

// Log levels
const (
	LogLevelTrace = "trace"
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Process timeouts
const (
	// ProcessKillWaitDelay bounds how long a killed command may hold its output pipes open
	ProcessKillWaitDelay = 2 * time.Second

	// ConfigReloadDebounce coalesces the burst of write events editors produce on save
	ConfigReloadDebounce = 200 * time.Millisecond

	// ShutdownHandlerTimeout bounds a single cleanup step on exit
	ShutdownHandlerTimeout = time.Second

	// ShutdownTimeout bounds the whole cleanup sequence on exit
	ShutdownTimeout = 3 * time.Second
)

// EnvPrefix prefixes environment overrides, e.g. STATUSRELAY_MUSIC_ENABLED
const EnvPrefix = "STATUSRELAY"
