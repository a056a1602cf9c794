// Package protocol implements the parts of the i3bar JSON protocol statusrelay touches:
// the header object, status blocks and the comma-prefixed array lines of the
// infinite array.
package protocol

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Separator prefixes every array line after the first one.
const Separator = ","

// ErrNegativeIndex is returned by Insert for indices below zero.
var ErrNegativeIndex = errors.New("insert index must not be negative")

// ErrNotObject is returned by ParseLine when an array element is not a JSON object.
var ErrNotObject = errors.New("status block is not an object")

// Header is the first line i3status sends.
type Header struct {
	Version     int  `json:"version"`
	StopSignal  int  `json:"stop_signal,omitempty"`
	ContSignal  int  `json:"cont_signal,omitempty"`
	ClickEvents bool `json:"click_events,omitempty"`
}

// Block is one status segment. Field order matters: it is the key order on the wire.
type Block struct {
	FullText            string `json:"full_text"`
	Name                string `json:"name,omitempty"`
	Color               string `json:"color,omitempty"`
	ShortText           string `json:"short_text,omitempty"`
	Background          string `json:"background,omitempty"`
	Border              string `json:"border,omitempty"`
	MinWidth            int    `json:"min_width,omitempty"`
	Align               string `json:"align,omitempty"`
	Urgent              bool   `json:"urgent,omitempty"`
	Instance            string `json:"instance,omitempty"`
	SeparatorBlockWidth int    `json:"separator_block_width,omitempty"`
	Markup              string `json:"markup,omitempty"`
}

// Line is one decoded element of the infinite array.
// Blocks hold each object compacted but otherwise untouched, so unknown keys
// and key order survive the round trip.
type Line struct {
	Prefix string
	Blocks []jsoniter.RawMessage
}

// ParseLine strips the separator, if any, and decodes the array.
func ParseLine(text string) (*Line, error) {
	line := &Line{}
	if strings.HasPrefix(text, Separator) {
		text = text[len(Separator):]
		line.Prefix = Separator
	}

	if err := json.Unmarshal([]byte(text), &line.Blocks); err != nil {
		return nil, fmt.Errorf("decode status array: %w", err)
	}
	if line.Blocks == nil {
		// "null" decodes without error but is not an array line.
		if strings.TrimSpace(text) == "null" {
			return nil, fmt.Errorf("decode status array: %q is not an array", text)
		}
		line.Blocks = []jsoniter.RawMessage{}
	}

	// Blocks are written back as received, so strip the producer's whitespace here.
	for i, raw := range line.Blocks {
		if len(raw) == 0 {
			return nil, fmt.Errorf("decode status array: block %d: %w", i, ErrNotObject)
		}
		var buf bytes.Buffer
		if err := stdjson.Compact(&buf, raw); err != nil {
			return nil, fmt.Errorf("decode status array: block %d: %w", i, err)
		}
		if buf.Bytes()[0] != '{' {
			return nil, fmt.Errorf("decode status array: block %d: %w", i, ErrNotObject)
		}
		line.Blocks[i] = buf.Bytes()
	}
	return line, nil
}

// Insert places b at index. Indices past the end append; clamped reports that case.
func (l *Line) Insert(index int, b Block) (clamped bool, err error) {
	if index < 0 {
		return false, ErrNegativeIndex
	}

	raw, err := json.Marshal(b)
	if err != nil {
		return false, fmt.Errorf("encode block %q: %w", b.Name, err)
	}

	if index > len(l.Blocks) {
		index = len(l.Blocks)
		clamped = true
	}
	l.Blocks = append(l.Blocks, nil)
	copy(l.Blocks[index+1:], l.Blocks[index:])
	l.Blocks[index] = raw
	return clamped, nil
}

// Len returns the number of blocks on the line.
func (l *Line) Len() int {
	return len(l.Blocks)
}

// String encodes the line compactly with its prefix re-attached.
func (l *Line) String() (string, error) {
	data, err := json.Marshal(l.Blocks)
	if err != nil {
		return "", fmt.Errorf("encode status array: %w", err)
	}
	return l.Prefix + string(data), nil
}

// ParseHeader decodes the i3bar header line.
func ParseHeader(text string) (*Header, error) {
	var h Header
	if err := json.Unmarshal([]byte(text), &h); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	return &h, nil
}

// Encode returns the compact JSON of a single block.
func (b Block) Encode() (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
