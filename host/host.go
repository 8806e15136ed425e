// Package host describes the audio/MIDI transport that drives the process
// callback, and picks a backend for the current machine.
package host

import (
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	ps "github.com/mitchellh/go-ps"

	"pacemaker/dispatch"
)

// ErrHost wraps startup failures: client open, port registration,
// callback installation, connection and activation.
var ErrHost = errors.New("host protocol error")

// Backend names.
const (
	Auto   = "auto"
	Jack   = "jack"
	RtMidi = "rtmidi"
)

// Host is a client instance on a transport that calls a dispatch.Handler
// once per processing cycle.
type Host interface {
	Name() string
	// OpenOutputPort registers an output port. Startup only.
	OpenOutputPort(name string) (Output, error)
	// Destinations lists input ports of other clients matching pattern.
	Destinations(pattern string) ([]string, error)
	// Activate installs h and starts the process callback.
	Activate(h dispatch.Handler) error
	// Now returns the transport time: frames processed so far as a duration.
	Now() time.Duration
	SampleRate() uint32
	BufferSize() uint32
	// Done is closed when the host stops on its own (server shutdown).
	Done() <-chan struct{}
	Close() error
}

// Output is a registered output port.
type Output interface {
	Name() string
	// Connect links the port to a destination port. Startup only, blocking.
	Connect(destination string) error
	// Buffer is the per-cycle buffer the dispatcher drains into.
	Buffer() dispatch.Buffer
}

// FrameClock converts a running frame count to time.
// Advance is called by the process callback; Now from anywhere.
type FrameClock struct {
	frames atomic.Uint64
	rate   atomic.Uint32
}

// SetRate sets the sample rate used by Now.
func (c *FrameClock) SetRate(rate uint32) { c.rate.Store(rate) }

// Advance adds one cycle of frames.
func (c *FrameClock) Advance(frames uint32) { c.frames.Add(uint64(frames)) }

// Frames returns the frames processed so far.
func (c *FrameClock) Frames() uint64 { return c.frames.Load() }

// Now returns Frames as a duration at the current rate.
func (c *FrameClock) Now() time.Duration {
	return FramesToDuration(c.frames.Load(), c.rate.Load())
}

// FramesToDuration converts frames at rate to a duration; 0 if rate is 0.
func FramesToDuration(frames uint64, rate uint32) time.Duration {
	if rate == 0 {
		return 0
	}
	sec := frames / uint64(rate)
	rem := frames % uint64(rate)
	return time.Duration(sec)*time.Second + time.Duration(rem*uint64(time.Second)/uint64(rate))
}

// jack server executables
var jackServers = []string{"jackd", "jackdbus", "jackd.exe"}

// Detect returns Jack when a JACK server process is running, else RtMidi.
func Detect() string {
	return detect(ps.Processes)
}

func detect(list func() ([]ps.Process, error)) string {
	procs, err := list()
	if err != nil {
		return RtMidi
	}
	for _, p := range procs {
		exe := strings.ToLower(filepath.Base(p.Executable()))
		for _, name := range jackServers {
			if exe == name {
				return Jack
			}
		}
	}
	return RtMidi
}

// Resolve maps Auto to a detected backend and checks the name.
func Resolve(name string) (string, error) {
	switch name {
	case "", Auto:
		return Detect(), nil
	case Jack, RtMidi:
		return name, nil
	}
	return "", errors.New("unknown host " + name)
}
