package timeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pacemaker/midi"
)

// ErrInvalidPatch is returned for malformed channels and windows.
var ErrInvalidPatch = errors.New("invalid patch")

// PatchError describes which channel of a patch is malformed.
type PatchError struct {
	Channel int // index in the patch, -1 for the window itself
	Reason  string
}

func (e *PatchError) Error() string {
	if e.Channel < 0 {
		return fmt.Sprintf("%v: %s", ErrInvalidPatch, e.Reason)
	}
	return fmt.Sprintf("%v: channel %d: %s", ErrInvalidPatch, e.Channel, e.Reason)
}

func (e *PatchError) Is(target error) bool {
	return target == ErrInvalidPatch
}

// Channel is one periodic voice: a message kind and channel number, a period,
// a phase offset and a note list that is cycled.
type Channel struct {
	Kind   uint8 // midi.NoteOn, midi.NoteOff, ...
	Number uint8 // MIDI channel 0-15
	Period time.Duration
	Offset time.Duration // may be negative
	Notes  []uint8
}

// NewChannel builds a validated channel. The note list is copied.
func NewChannel(kind, number uint8, period, offset time.Duration, notes ...uint8) (Channel, error) {
	ch := Channel{
		Kind:   kind,
		Number: number,
		Period: period,
		Offset: offset,
		Notes:  append([]uint8(nil), notes...),
	}
	if reason := ch.check(); reason != "" {
		return Channel{}, &PatchError{Channel: 0, Reason: reason}
	}
	return ch, nil
}

// MustChannel is NewChannel for static patches; it panics on error.
func MustChannel(kind, number uint8, period, offset time.Duration, notes ...uint8) Channel {
	ch, err := NewChannel(kind, number, period, offset, notes...)
	if err != nil {
		panic(err)
	}
	return ch
}

func (c Channel) check() string {
	switch {
	case c.Period <= 0:
		return fmt.Sprintf("period %v must be positive", c.Period)
	case len(c.Notes) == 0:
		return "empty note list"
	case !midi.IsKind(c.Kind):
		return fmt.Sprintf("unsupported message kind %#x", c.Kind)
	case c.Number > 15:
		return fmt.Sprintf("channel number %d out of range", c.Number)
	}
	for _, n := range c.Notes {
		if n > 127 {
			return fmt.Sprintf("note %d out of range", n)
		}
	}
	return ""
}

// Status returns the status byte emitted by this channel.
func (c Channel) Status() uint8 {
	return midi.Status(c.Kind, c.Number)
}

// Index returns the ordinal of the first grid point at or after t.
// Grid point k sits at Offset + k*Period; k may be negative.
func (c Channel) Index(t time.Duration) int64 {
	return ceilDiv(int64(t-c.Offset), int64(c.Period))
}

// At returns the timestamp of grid point k.
func (c Channel) At(k int64) time.Duration {
	return c.Offset + time.Duration(k)*c.Period
}

// Note returns the note played at grid point k.
func (c Channel) Note(k int64) uint8 {
	n := int64(len(c.Notes))
	return c.Notes[((k%n)+n)%n]
}

func (c Channel) String() string {
	return fmt.Sprintf("{status: %#x, period: %v, offset: %v, notes: %v}", c.Status(), c.Period, c.Offset, c.Notes)
}

// Patch is an ordered set of channels played together.
type Patch []Channel

// Validate checks every channel.
func (p Patch) Validate() error {
	for i, ch := range p {
		if reason := ch.check(); reason != "" {
			return &PatchError{Channel: i, Reason: reason}
		}
	}
	return nil
}

func (p Patch) String() string {
	parts := make([]string, len(p))
	for i, ch := range p {
		parts[i] = ch.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Align returns the first multiple of period at or after t.
func Align(t, period time.Duration) time.Duration {
	if period <= 0 {
		return t
	}
	return time.Duration(ceilDiv(int64(t), int64(period))) * period
}

// ceilDiv divides rounding towards positive infinity. b must be positive.
func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b > 0 {
		q++
	}
	return q
}
