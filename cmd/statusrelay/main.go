package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"statusrelay/internal/config"
	"statusrelay/internal/logs"
	"statusrelay/internal/relay"
)

// Exit codes
const (
	ExitInterrupted = 0
	ExitFailure     = 1
	ExitEndOfStream = 3
)

var version = "dev"

var (
	// Global flags
	configPath   string
	logLevel     string
	logFile      string
	hostnameFlag string

	logger    *zap.Logger
	cfg       *config.Config
	cfgLoader *config.Loader
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "statusrelay",
	Short: "Add music, network and CPU governor segments to i3status output",
	Long: `statusrelay sits between i3status and i3bar:

  status_command i3status | statusrelay

It forwards the protocol header and opening bracket untouched, then inserts
extra segments into every status line: the mpd track (when enabled for this
host), the network speed, and the CPU frequency governor (when enabled).

Run without arguments to start relaying stdin to stdout.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runRelay,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Relay i3status output from stdin to stdout",
	Args:  cobra.NoArgs,
	RunE:  runRelay,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $XDG_CONFIG_HOME/statusrelay/config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also log to this file, rotated")
	rootCmd.PersistentFlags().StringVar(&hostnameFlag, "hostname", "", "Hostname used for the music host gate (default: os.Hostname)")

	rootCmd.AddCommand(runCmd, probeCmd, configCmd, versionCmd)
}

// setup loads configuration and builds the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		if def := config.DefaultConfigPath(); def != "" {
			if _, err := os.Stat(def); err == nil {
				path = def
			}
		}
	}

	loader, err := config.NewLoader(path, zap.NewNop())
	if err != nil {
		return err
	}
	loaded, err := loader.Load()
	if err != nil {
		return err
	}
	if err := applyLogFlags(loaded); err != nil {
		return err
	}

	logger, err = logs.SetupLogger(loaded.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	loader.SetLogger(logger)

	cfg = loaded
	cfgLoader = loader

	logger.Debug("Configuration loaded",
		zap.String("path", loader.ConfigPath()),
		zap.Bool("music", cfg.Music.Enabled),
		zap.Bool("governor", cfg.Governor.Enabled))
	return nil
}

// applyLogFlags lets --log-level and --log-file override the loaded config.
func applyLogFlags(c *config.Config) error {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile != "" {
		c.Logging.EnableFile = true
		c.Logging.LogDir = filepath.Dir(logFile)
		c.Logging.Filename = filepath.Base(logFile)
	}
	return c.Validate()
}

// resolveHostname returns --hostname, else the system hostname. A lookup
// failure leaves the music gate closed for host-restricted configs.
func resolveHostname() string {
	if hostnameFlag != "" {
		return hostnameFlag
	}
	name, err := os.Hostname()
	if err != nil {
		logger.Warn("Failed to read hostname", zap.Error(err))
		return ""
	}
	return name
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, relay.ErrEndOfStream):
		return ExitEndOfStream
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitFailure
	}
}

func main() {
	err := rootCmd.Execute()
	code := exitCode(err)
	if code == ExitFailure {
		if logger != nil {
			logger.Error("statusrelay failed", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "statusrelay: %v\n", err)
		}
	}
	if logger != nil {
		_ = logger.Sync()
	}
	exit(code)
}
