package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"statusrelay/internal/config"
	"statusrelay/internal/logs"
	"statusrelay/internal/relay"
	"statusrelay/internal/shutdown"
	"statusrelay/internal/source"
)

// runRelay relays stdin to stdout until the producer stops or a signal arrives.
func runRelay(cmd *cobra.Command, args []string) error {
	hostname := resolveHostname()
	opts := cfg.Resolve(hostname)

	sources, err := source.NewSet(cfg, opts)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		logger.Warn("stdin is a terminal; pipe i3status into statusrelay")
	}

	trace, err := logs.NewTraceLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	coordinator := shutdown.NewCoordinator(logger)
	coordinator.RegisterFunc("source-commands", shutdown.PhaseSources, func(context.Context) error {
		cancel()
		return nil
	})
	coordinator.RegisterFunc("config-watcher", shutdown.PhaseWatchers, func(context.Context) error {
		return cfgLoader.Stop()
	})
	coordinator.RegisterFunc("trace-log", shutdown.PhaseLogs, func(context.Context) error {
		return trace.Close()
	})
	defer func() { _ = coordinator.Shutdown(context.Background()) }()

	r := relay.New(in, cmd.OutOrStdout(), opts, sources, logger)
	r.SetTraceLogger(trace)

	if err := cfgLoader.StartWatching(func(next *config.Config) error {
		nextOpts := next.Resolve(hostname)
		nextSources, err := source.NewSet(next, nextOpts)
		if err != nil {
			return err
		}
		r.Reconfigure(nextOpts, nextSources)
		return nil
	}); err != nil {
		logger.Warn("Config hot reload disabled", zap.Error(err))
	}

	// The relay blocks on stdin, so a signal exits the process directly.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go exitOnSignal(ctx, sigCh, coordinator)

	logger.Info("Relay started",
		zap.String("hostname", hostname),
		zap.Bool("music", opts.EnableMusicStatus),
		zap.Int("music_index", opts.MusicIndex),
		zap.Int("network_index", opts.NetworkIndex),
		zap.Bool("governor", opts.EnableGovernor),
		zap.Int("governor_index", opts.GovernorIndex))

	err = r.Run(ctx)
	logger.Info("Relay stopped", zap.Error(err), zap.String("state", string(r.State())))
	return err
}

// exit is replaced in tests.
var exit = os.Exit

// exitOnSignal runs the exit cleanup and exits with ExitInterrupted when a
// signal arrives. It returns without exiting once ctx is done.
func exitOnSignal(ctx context.Context, sigCh <-chan os.Signal, coordinator *shutdown.Coordinator) {
	select {
	case sig := <-sigCh:
		logger.Info("Received signal, exiting", zap.String("signal", sig.String()))
		_ = coordinator.Shutdown(context.Background())
		_ = logger.Sync()
		exit(ExitInterrupted)
	case <-ctx.Done():
	}
}
