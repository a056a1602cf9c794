package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"statusrelay/internal/logs"
	"statusrelay/internal/protocol"
	"statusrelay/internal/relay"
	"statusrelay/internal/source"
)

var probeInterval time.Duration

// probeCmd queries one source and prints the segment it would insert
var probeCmd = &cobra.Command{
	Use:   "probe <music|network|governor>",
	Short: "Print the segment one source would insert",
	Long: `Queries a single source once and prints its segment as i3bar JSON.

The music probe ignores the enabled flag and host gate. The built-in network
meter reports a rate, so its probe samples twice, --interval apart.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"music", "network", "governor"},
	RunE:      runProbe,
}

// configCmd prints the effective configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  showConfig,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "statusrelay %s\n", version)
	},
}

func init() {
	probeCmd.Flags().DurationVar(&probeInterval, "interval", time.Second, "Sampling interval for the built-in network meter")
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	opts := cfg.Resolve(resolveHostname())

	var block protocol.Block
	switch args[0] {
	case "music":
		m := source.NewMusic(source.MusicCommand(cfg.Shell, cfg.Music.Command, cfg.Music.Host, cfg.CommandTimeout))
		var err error
		block, err = m.Segment(ctx)
		if err != nil {
			logger.Warn("Music status degraded", logs.FailureFields(source.MusicSegmentName, err)...)
		}

	case "network":
		src, err := source.NewNetworkSource(cfg, opts)
		if err != nil {
			return err
		}
		if _, ok := src.(*source.NetDev); ok {
			if _, err := src.Query(ctx); err != nil {
				return fmt.Errorf("network speed: %w", err)
			}
			time.Sleep(probeInterval)
		}
		text, err := src.Query(ctx)
		if err != nil {
			return fmt.Errorf("network speed: %w", err)
		}
		block = protocol.Block{FullText: text, Name: relay.NetworkSegmentName}

	case "governor":
		text, err := source.NewFile(cfg.Governor.Path).Query(ctx)
		if err != nil {
			return fmt.Errorf("cpu governor: %w", err)
		}
		block = protocol.Block{FullText: text, Name: relay.GovernorSegmentName}

	default:
		return fmt.Errorf("unknown source %q (want music, network or governor)", args[0])
	}

	encoded, err := block.Encode()
	if err != nil {
		return err
	}
	logger.Debug("Probed source", zap.String("source", args[0]), zap.String("segment", encoded))
	fmt.Fprintln(cmd.OutOrStdout(), encoded)
	return nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if path := cfgLoader.ConfigPath(); path != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", path)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "# built-in defaults")
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
