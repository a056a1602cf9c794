// Package relay implements the i3bar line filter: it forwards the two preamble
// lines verbatim, then rewrites every array line with extra status segments.
package relay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"statusrelay/internal/config"
	"statusrelay/internal/logs"
	"statusrelay/internal/protocol"
	"statusrelay/internal/source"
)

// ErrEndOfStream is returned when the producer sends EOF or an empty line.
var ErrEndOfStream = errors.New("end of stream")

// Segment names
const (
	NetworkSegmentName  = "networkspeed"
	GovernorSegmentName = "gov"
)

// preambleLines is the version header plus the opening bracket of the infinite array.
const preambleLines = 2

// State is the position of the relay in the protocol.
type State string

const (
	StatePreamble  State = "preamble"
	StateStreaming State = "streaming"
)

// Relay copies i3bar protocol lines from in to out, inserting segments.
type Relay struct {
	in     *bufio.Reader
	out    *bufio.Writer
	logger *zap.Logger
	trace  *logs.TraceLogger

	mu      sync.Mutex
	opts    config.RelayOptions
	sources *source.Set

	state State
	seq   uint64
}

// New creates a relay. sources.Network must be set; Music and Governor are only
// consulted when opts enables them.
func New(in io.Reader, out io.Writer, opts config.RelayOptions, sources *source.Set, logger *zap.Logger) *Relay {
	return &Relay{
		in:      bufio.NewReader(in),
		out:     bufio.NewWriter(out),
		logger:  logger,
		trace:   &logs.TraceLogger{},
		opts:    opts,
		sources: sources,
		state:   StatePreamble,
	}
}

// SetTraceLogger records every line read and written to tl.
func (r *Relay) SetTraceLogger(tl *logs.TraceLogger) {
	if tl != nil {
		r.trace = tl
	}
}

// Reconfigure swaps options and sources. It takes effect on the next line.
func (r *Relay) Reconfigure(opts config.RelayOptions, sources *source.Set) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts = opts
	r.sources = sources
	r.logger.Info("Relay reconfigured",
		zap.Bool("music", opts.EnableMusicStatus),
		zap.Bool("governor", opts.EnableGovernor),
		zap.Bool("network_command", opts.NetworkSpeedCommand != ""))
}

// State returns where the relay is in the protocol.
func (r *Relay) State() State {
	return r.state
}

// Run forwards the preamble and then relays array lines until the stream ends
// (ErrEndOfStream), ctx is cancelled, or a line cannot be processed.
func (r *Relay) Run(ctx context.Context) error {
	for i := 0; i < preambleLines; i++ {
		line, err := r.readLine()
		if err != nil {
			return err
		}
		if err := r.writeLine(line, 0); err != nil {
			return err
		}
	}

	r.state = StateStreaming
	r.logger.Debug("Preamble forwarded, streaming")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Step(ctx); err != nil {
			return err
		}
	}
}

// Step relays a single array line.
func (r *Relay) Step(ctx context.Context) error {
	raw, err := r.readLine()
	if err != nil {
		return err
	}
	start := time.Now()

	line, err := protocol.ParseLine(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", r.seq, err)
	}

	r.mu.Lock()
	opts, sources := r.opts, r.sources
	r.mu.Unlock()

	if opts.EnableMusicStatus && sources.Music != nil {
		block, err := sources.Music.Segment(ctx)
		r.logMusicFailure(err)
		if err := r.insert(line, opts.MusicIndex, block); err != nil {
			return err
		}
	}

	text, err := sources.Network.Query(ctx)
	if err != nil {
		r.logger.Error("Network speed source failed", logs.FailureFields(NetworkSegmentName, err)...)
		return fmt.Errorf("network speed: %w", err)
	}
	if err := r.insert(line, opts.NetworkIndex, protocol.Block{FullText: text, Name: NetworkSegmentName}); err != nil {
		return err
	}

	if opts.EnableGovernor && sources.Governor != nil {
		gov, err := sources.Governor.Query(ctx)
		if err != nil {
			r.logger.Error("Governor source failed", logs.FailureFields(GovernorSegmentName, err)...)
			return fmt.Errorf("cpu governor: %w", err)
		}
		if err := r.insert(line, opts.GovernorIndex, protocol.Block{FullText: gov, Name: GovernorSegmentName}); err != nil {
			return err
		}
	}

	out, err := line.String()
	if err != nil {
		return fmt.Errorf("line %d: %w", r.seq, err)
	}
	return r.writeLine(out, time.Since(start))
}

func (r *Relay) insert(line *protocol.Line, index int, block protocol.Block) error {
	clamped, err := line.Insert(index, block)
	if err != nil {
		return fmt.Errorf("insert %s segment: %w", block.Name, err)
	}
	if clamped {
		r.logger.Debug("Segment index past end of array, appended",
			zap.String("segment", block.Name),
			zap.Int("index", index),
			zap.Int("length", line.Len()))
	}
	return nil
}

func (r *Relay) logMusicFailure(err error) {
	switch {
	case err == nil:
	case errors.Is(err, source.ErrPlayerStopped):
		r.logger.Debug("Music player stopped")
	default:
		r.logger.Warn("Music status degraded", logs.FailureFields(source.MusicSegmentName, err)...)
	}
}

// readLine returns the next line without surrounding whitespace. EOF and blank
// lines both end the stream.
func (r *Relay) readLine() (string, error) {
	text, err := r.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEndOfStream
	}

	r.seq++
	r.trace.LogInput(string(r.state), r.seq, text)
	return text, nil
}

// writeLine writes one line and flushes; the bar repaints on every line it sees.
func (r *Relay) writeLine(text string, elapsed time.Duration) error {
	if _, err := r.out.WriteString(text + "\n"); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := r.out.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	r.trace.LogOutput(string(r.state), r.seq, text, elapsed)
	return nil
}
