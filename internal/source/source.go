// Package source implements the data sources whose output becomes status
// segments: shell commands, single-line files, the mpd client and a built-in
// network meter.
package source

import (
	"context"
	"fmt"

	"statusrelay/internal/config"
)

// Source produces the text of one status segment.
type Source interface {
	Query(ctx context.Context) (string, error)
}

// Static returns canned text or a canned error.
type Static struct {
	Text string
	Err  error
}

// Query implements Source.
func (s Static) Query(context.Context) (string, error) {
	return s.Text, s.Err
}

// Func adapts a plain function to Source.
type Func func(ctx context.Context) (string, error)

// Query implements Source.
func (f Func) Query(ctx context.Context) (string, error) {
	return f(ctx)
}

// Set holds the sources the relay queries. Music and Governor are nil when
// their segment is disabled.
type Set struct {
	Music    *Music
	Network  Source
	Governor Source
}

// NewSet builds production sources for the resolved options.
func NewSet(cfg *config.Config, opts config.RelayOptions) (*Set, error) {
	set := &Set{}

	if opts.EnableMusicStatus {
		set.Music = NewMusic(MusicCommand(cfg.Shell, cfg.Music.Command, opts.MusicHost, cfg.CommandTimeout))
	}

	network, err := NewNetworkSource(cfg, opts)
	if err != nil {
		return nil, err
	}
	set.Network = network

	if opts.EnableGovernor {
		set.Governor = NewFile(opts.GovernorFilePath)
	}

	return set, nil
}

// NewNetworkSource returns the configured network command, or the built-in
// /proc/net/dev meter when no command is set.
func NewNetworkSource(cfg *config.Config, opts config.RelayOptions) (Source, error) {
	if opts.NetworkSpeedCommand != "" {
		return NewCommand(cfg.Shell, opts.NetworkSpeedCommand, cfg.CommandTimeout), nil
	}

	meter, err := NewNetDev(cfg.Network.ProcPath, cfg.Network.Interface)
	if err != nil {
		return nil, fmt.Errorf("network meter: %w", err)
	}
	return meter, nil
}
