package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI message kinds (high nibble of the status byte).
// Only the three-byte channel voice kinds are listed.
const (
	NoteOff       uint8 = 0x80
	NoteOn        uint8 = 0x90
	PolyPressure  uint8 = 0xA0
	ControlChange uint8 = 0xB0
	PitchBend     uint8 = 0xE0
)

// Size is the length of every transported message in bytes.
const Size = 3

// Velocity is the fixed velocity of generated notes.
const Velocity uint8 = 127

// Message is one wire message: [status, data1, data2].
// The high nibble of status is the kind, the low nibble the channel.
type Message [Size]byte

// Status combines a kind and a channel number into a status byte.
func Status(kind, channel uint8) uint8 {
	return kind&0xF0 | channel&0x0F
}

// NewMessage builds a message. Data bytes are masked to 7 bits.
func NewMessage(kind, channel, data1, data2 uint8) Message {
	return Message{Status(kind, channel), data1 & 0x7F, data2 & 0x7F}
}

// Kind returns the message kind (high nibble of the status byte).
func (m Message) Kind() uint8 { return m[0] & 0xF0 }

// Channel returns the channel number (low nibble of the status byte).
func (m Message) Channel() uint8 { return m[0] & 0x0F }

// Data returns the two data bytes.
func (m Message) Data() (uint8, uint8) { return m[1], m[2] }

// Valid reports whether m is a well formed three-byte channel voice message.
func (m Message) Valid() bool {
	if !IsKind(m.Kind()) {
		return false
	}
	return m[1] < 0x80 && m[2] < 0x80
}

// IsKind reports whether kind is one of the three-byte channel voice kinds.
func IsKind(kind uint8) bool {
	switch kind {
	case NoteOff, NoteOn, PolyPressure, ControlChange, PitchBend:
		return true
	}
	return false
}

// Gomidi returns the message as a gomidi message (allocates).
func (m Message) Gomidi() gomidi.Message {
	return gomidi.Message(m[:])
}

func (m Message) String() string {
	if !m.Valid() {
		return fmt.Sprintf("{status: %d, data1: %d, data2: %d}", m[0], m[1], m[2])
	}
	return m.Gomidi().String()
}
