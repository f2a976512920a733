// Package config holds the build-time configuration of dense and resize
// pipeline stages. A configuration is validated into a plan once, before any
// stream activity begins; nothing in it changes while data flows.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration errors. All of them are fatal: a pipeline stage is never
// constructed from a configuration that produced one.
var (
	ErrInvalid      = errors.New("invalid configuration")
	ErrReuseFactor  = errors.New("reuse factor does not divide n_out")
	ErrResizeRatio  = errors.New("resize ratio is not an integer")
	ErrUnknownLayer = errors.New("unknown layer")
)

// DefaultChannelDepth is the FIFO depth used when a config leaves it unset.
const DefaultChannelDepth = 1

// Strategy selects how a dense layer maps its multiplies onto lanes.
type Strategy int

const (
	// StrategyLatency unrolls the full n_in × n_out grid.
	StrategyLatency Strategy = iota
	// StrategyResource folds the grid onto block_factor × reuse lanes.
	StrategyResource
)

var strategyNames = map[Strategy]string{
	StrategyLatency:  "latency",
	StrategyResource: "resource",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	name, ok := strategyNames[s]
	if !ok {
		return nil, fmt.Errorf("%w: strategy %d", ErrInvalid, int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	for k, name := range strategyNames {
		if name == v {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("%w: strategy %q", ErrInvalid, v)
}

// Layout selects how image pixels map onto FIFO channels.
type Layout int

const (
	// LayoutAuto picks scalar or array from DataTransferOut.
	LayoutAuto Layout = iota
	// LayoutWide carries all n_chan values of a pixel in one word.
	LayoutWide
	// LayoutScalar carries one (pixel, channel) value per transfer.
	LayoutScalar
	// LayoutArray uses one scalar channel per feature-map channel.
	LayoutArray
)

var layoutNames = map[Layout]string{
	LayoutAuto:   "auto",
	LayoutWide:   "wide",
	LayoutScalar: "scalar",
	LayoutArray:  "array",
}

func (l Layout) String() string {
	if name, ok := layoutNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Layout(%d)", int(l))
}

// MarshalText implements encoding.TextMarshaler.
func (l Layout) MarshalText() ([]byte, error) {
	name, ok := layoutNames[l]
	if !ok {
		return nil, fmt.Errorf("%w: layout %d", ErrInvalid, int(l))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Layout) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	for k, name := range layoutNames {
		if name == v {
			*l = k
			return nil
		}
	}
	return fmt.Errorf("%w: layout %q", ErrInvalid, v)
}

// ParseLayout parses a layout name as used on the command line.
func ParseLayout(s string) (Layout, error) {
	var l Layout
	err := l.UnmarshalText([]byte(s))
	return l, err
}

// DivRoundUp returns ceil(n / d) for positive d.
func DivRoundUp(n, d int) int {
	return (n + d - 1) / d
}

func depthOrDefault(depth int) int {
	if depth <= 0 {
		return DefaultChannelDepth
	}
	return depth
}
