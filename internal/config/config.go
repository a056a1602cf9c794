package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the main configuration structure
type Config struct {
	Music    *MusicConfig    `mapstructure:"music" yaml:"music"`
	Network  *NetworkConfig  `mapstructure:"network" yaml:"network"`
	Governor *GovernorConfig `mapstructure:"governor" yaml:"governor"`

	// Shell used to run every command source with -c
	Shell string `mapstructure:"shell" yaml:"shell"`

	// Optional max runtime for a command source (0 = no timeout)
	CommandTimeout time.Duration `mapstructure:"command-timeout" yaml:"command-timeout"`

	// Logging configuration
	Logging *LogConfig `mapstructure:"logging" yaml:"logging"`
}

// MusicConfig configures the mpd segment
type MusicConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// OnlyOnHost restricts the segment to the machine with this hostname (empty = any host)
	OnlyOnHost string `mapstructure:"only-on-host" yaml:"only-on-host,omitempty"`
	// Host is the mpd host passed to mpc --host
	Host    string `mapstructure:"host" yaml:"host,omitempty"`
	Command string `mapstructure:"command" yaml:"command"`
	Index   int    `mapstructure:"index" yaml:"index"`
}

// NetworkConfig configures the networkspeed segment
type NetworkConfig struct {
	// Command prints the segment text; when empty the built-in /proc/net/dev meter is used
	Command string `mapstructure:"command" yaml:"command,omitempty"`
	// Interface limits the built-in meter to one interface (empty = all but loopback)
	Interface string `mapstructure:"interface" yaml:"interface,omitempty"`
	ProcPath  string `mapstructure:"proc-path" yaml:"proc-path"`
	Index     int    `mapstructure:"index" yaml:"index"`
}

// GovernorConfig configures the cpu frequency governor segment
type GovernorConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
	Index   int    `mapstructure:"index" yaml:"index"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level         string          `mapstructure:"level" yaml:"level"`
	EnableFile    bool            `mapstructure:"enable-file" yaml:"enable-file"`
	EnableConsole bool            `mapstructure:"enable-console" yaml:"enable-console"`
	Filename      string          `mapstructure:"filename" yaml:"filename"`
	LogDir        string          `mapstructure:"log-dir" yaml:"log-dir,omitempty"` // Custom log directory
	MaxSize       int             `mapstructure:"max-size" yaml:"max-size"`         // MB
	MaxBackups    int             `mapstructure:"max-backups" yaml:"max-backups"`   // number of backup files
	MaxAge        int             `mapstructure:"max-age" yaml:"max-age"`           // days
	Compress      bool            `mapstructure:"compress" yaml:"compress"`
	JSONFormat    bool            `mapstructure:"json-format" yaml:"json-format"`
	Trace         *TraceLogConfig `mapstructure:"trace" yaml:"trace,omitempty"`
}

// TraceLogConfig controls logging of every protocol line read and written
type TraceLogConfig struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	Filename       string `mapstructure:"filename" yaml:"filename"`
	LogInput       bool   `mapstructure:"log-input" yaml:"log-input"`
	LogOutput      bool   `mapstructure:"log-output" yaml:"log-output"`
	MaxPayloadSize int    `mapstructure:"max-payload-size" yaml:"max-payload-size"` // bytes, 0 = unlimited
}

// RelayOptions is the resolved view of Config the relay runs with.
// Hostname gating has already been applied.
type RelayOptions struct {
	EnableMusicStatus   bool
	MusicHost           string
	MusicIndex          int
	NetworkSpeedCommand string
	NetworkIndex        int
	EnableGovernor      bool
	GovernorFilePath    string
	GovernorIndex       int
}

// DefaultLogConfig returns logging defaults: warnings to stderr, no file.
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level:         LogLevelWarn,
		EnableFile:    false,
		EnableConsole: true,
		Filename:      "statusrelay.log",
		MaxSize:       10,
		MaxBackups:    3,
		MaxAge:        14,
		Compress:      true,
		JSONFormat:    false,
		Trace:         DefaultTraceLogConfig(),
	}
}

// DefaultTraceLogConfig returns default trace logging configuration
func DefaultTraceLogConfig() *TraceLogConfig {
	return &TraceLogConfig{
		Enabled:        false,
		Filename:       "statusrelay-trace.log",
		LogInput:       true,
		LogOutput:      true,
		MaxPayloadSize: 4096,
	}
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Music: &MusicConfig{
			Enabled: false,
			Command: DefaultMusicCommand,
			Index:   DefaultMusicIndex,
		},
		Network: &NetworkConfig{
			ProcPath: DefaultProcPath,
			Index:    DefaultNetworkIndex,
		},
		Governor: &GovernorConfig{
			Enabled: false,
			Path:    DefaultGovernorPath,
			Index:   DefaultGovernorIndex,
		},
		Shell:          DefaultShell,
		CommandTimeout: 0,
		Logging:        DefaultLogConfig(),
	}
}

// Validate validates the configuration and fills in missing sections
func (c *Config) Validate() error {
	defaults := DefaultConfig()
	if c.Music == nil {
		c.Music = defaults.Music
	}
	if c.Network == nil {
		c.Network = defaults.Network
	}
	if c.Governor == nil {
		c.Governor = defaults.Governor
	}
	if c.Logging == nil {
		c.Logging = defaults.Logging
	}
	if c.Logging.Trace == nil {
		c.Logging.Trace = defaults.Logging.Trace
	}
	if strings.TrimSpace(c.Shell) == "" {
		c.Shell = DefaultShell
	}
	if strings.TrimSpace(c.Music.Command) == "" {
		c.Music.Command = DefaultMusicCommand
	}
	if c.Network.ProcPath == "" {
		c.Network.ProcPath = DefaultProcPath
	}

	var errs []error
	if c.Music.Index < 0 {
		errs = append(errs, fmt.Errorf("music.index must not be negative, got %d", c.Music.Index))
	}
	if c.Network.Index < 0 {
		errs = append(errs, fmt.Errorf("network.index must not be negative, got %d", c.Network.Index))
	}
	if c.Governor.Index < 0 {
		errs = append(errs, fmt.Errorf("governor.index must not be negative, got %d", c.Governor.Index))
	}
	if c.Governor.Enabled && strings.TrimSpace(c.Governor.Path) == "" {
		errs = append(errs, errors.New("governor.path is required when the governor segment is enabled"))
	}
	if c.CommandTimeout < 0 {
		errs = append(errs, fmt.Errorf("command-timeout must not be negative, got %s", c.CommandTimeout))
	}
	if !isValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Resolve applies the hostname gate and returns the options the relay runs with.
// hostname is read once at startup.
func (c *Config) Resolve(hostname string) RelayOptions {
	music := c.Music.Enabled
	if music && c.Music.OnlyOnHost != "" && c.Music.OnlyOnHost != hostname {
		music = false
	}

	return RelayOptions{
		EnableMusicStatus:   music,
		MusicHost:           c.Music.Host,
		MusicIndex:          c.Music.Index,
		NetworkSpeedCommand: c.Network.Command,
		NetworkIndex:        c.Network.Index,
		EnableGovernor:      c.Governor.Enabled,
		GovernorFilePath:    c.Governor.Path,
		GovernorIndex:       c.Governor.Index,
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/statusrelay/config.yaml, falling back to ~/.config.
func DefaultConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "statusrelay", "config.yaml")
}

func isValidLevel(level string) bool {
	switch level {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}
