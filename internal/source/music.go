package source

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"statusrelay/internal/protocol"
)

// Music segment colors and glyphs
const (
	MusicColor        = "#36a8d5"
	MusicErrorColor   = "#ee0000"
	MusicStoppedColor = "#FF0000"

	MusicErrorText   = "ERROR"
	MusicStoppedText = "►✖"
	MusicPausedText  = "▐ ▌"

	MusicSegmentName = "mpd"
)

// ErrPlayerStopped explains the stopped segment: mpc printed fewer than three lines.
var ErrPlayerStopped = errors.New("player stopped")

var (
	positionPattern = regexp.MustCompile(`\s(\d+:\d\d/\d+:\d\d)`)
	volumePattern   = regexp.MustCompile(`volume:\s*(\d+%)`)
)

// Music turns mpc status output into a segment. Every problem becomes a
// degraded segment; the accompanying error only explains it.
type Music struct {
	Source Source
}

// NewMusic wraps a source that prints mpc status output.
func NewMusic(src Source) *Music {
	return &Music{Source: src}
}

// MusicCommand returns the mpc invocation for host; empty host uses mpc's default.
func MusicCommand(shell, command, host string, timeout time.Duration) *Command {
	line := command
	if host != "" {
		line = fmt.Sprintf("%s --host %s", command, shellQuote(host))
	}
	return NewCommand(shell, line, timeout)
}

// Segment queries the source and builds the segment. The block is always
// usable; a non-nil error explains why it is degraded.
func (m *Music) Segment(ctx context.Context) (protocol.Block, error) {
	out, err := m.Source.Query(ctx)
	return MusicSegment(out, err)
}

// MusicSegment builds the segment for one mpc run. The returned error explains
// a degraded segment and is nil on success.
//
// mpc prints three lines while a track is loaded:
//
//	Artist - Title
//	[playing] #3/10   1:23/4:56 (28%)
//	volume: 80%   repeat: off   random: off   single: off   consume: off
//
// and only the volume line when stopped.
func MusicSegment(out string, queryErr error) (protocol.Block, error) {
	block := protocol.Block{Name: MusicSegmentName, Color: MusicColor}

	if queryErr != nil {
		block.FullText = MusicErrorText
		block.Color = MusicErrorColor
		return block, queryErr
	}

	lines := strings.Split(out, "\n")
	if len(lines) < 3 {
		block.FullText = MusicStoppedText
		block.Color = MusicStoppedColor
		return block, ErrPlayerStopped
	}

	track := lines[0]
	paused := !strings.Contains(lines[1], "playing")

	position := positionPattern.FindStringSubmatch(lines[1])
	if position == nil {
		block.FullText = MusicErrorText
		block.Color = MusicErrorColor
		return block, fmt.Errorf("unexpected output: no match for position in %q", lines[1])
	}
	volume := volumePattern.FindStringSubmatch(lines[2])
	if volume == nil {
		block.FullText = MusicErrorText
		block.Color = MusicErrorColor
		return block, fmt.Errorf("unexpected output: no match for volume in %q", lines[2])
	}

	if paused {
		block.FullText = MusicPausedText
	} else {
		block.FullText = fmt.Sprintf("► %s (%s) (v: %s)", track, position[1], volume[1])
	}
	return block, nil
}
