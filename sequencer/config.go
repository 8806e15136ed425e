// Package sequencer is the orchestrator: it generates timeline windows ahead
// of playback and releases their events into an output port when due.
package sequencer

import (
	"fmt"
	"time"
)

// Policy decides what happens to a due event the sink refuses.
type Policy int

const (
	// PolicyDrop counts the event and moves on.
	PolicyDrop Policy = iota
	// PolicyRetry keeps the event and retries on the next release until it
	// is more than MaxLate old, then drops it.
	PolicyRetry
)

func (p Policy) String() string {
	switch p {
	case PolicyDrop:
		return "drop"
	case PolicyRetry:
		return "retry"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses "drop" or "retry". Empty means drop.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "drop":
		return PolicyDrop, nil
	case "retry":
		return PolicyRetry, nil
	}
	return 0, fmt.Errorf("unknown full-transport policy %q", s)
}

// Default timing.
const (
	DefaultWindow       = 5 * time.Second
	DefaultLookAhead    = time.Second
	DefaultFillInterval = 50 * time.Millisecond
	DefaultMaxLate      = 20 * time.Millisecond
)

// Config is the orchestrator timing. Zero fields take the defaults.
type Config struct {
	Window       time.Duration // length of one generated timeline
	LookAhead    time.Duration // how far ahead of now the first window starts
	FillInterval time.Duration // fill loop cadence
	Policy       Policy
	MaxLate      time.Duration
}

func (c Config) withDefaults() Config {
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.LookAhead == 0 {
		c.LookAhead = DefaultLookAhead
	}
	if c.FillInterval == 0 {
		c.FillInterval = DefaultFillInterval
	}
	if c.MaxLate == 0 {
		c.MaxLate = DefaultMaxLate
	}
	return c
}

// Validate rejects negative or zero timings and unknown policies.
func (c Config) Validate() error {
	switch {
	case c.Window <= 0:
		return fmt.Errorf("window %v must be positive", c.Window)
	case c.LookAhead < 0:
		return fmt.Errorf("look-ahead %v must not be negative", c.LookAhead)
	case c.FillInterval <= 0:
		return fmt.Errorf("fill interval %v must be positive", c.FillInterval)
	case c.MaxLate < 0:
		return fmt.Errorf("max late %v must not be negative", c.MaxLate)
	case c.Policy != PolicyDrop && c.Policy != PolicyRetry:
		return fmt.Errorf("unknown policy %v", c.Policy)
	}
	return nil
}
