// Package jackhost runs the dispatcher inside a JACK client.
package jackhost

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xthexder/go-jack"

	"pacemaker/debug"
	"pacemaker/dispatch"
	"pacemaker/host"
	"pacemaker/midi"
)

// Host is one JACK client.
type Host struct {
	client *jack.Client
	name   string

	handler dispatch.Handler
	clock   host.FrameClock

	rate atomic.Uint32
	size atomic.Uint32

	done      chan struct{}
	closeOnce sync.Once
}

var _ host.Host = (*Host)(nil)

// Open connects to a running JACK server. It never starts one.
func Open(name string) (*Host, error) {
	client, code := jack.ClientOpen(name, jack.NoStartServer|jack.UseExactName)
	status := host.JackStatus(code)
	if client == nil || status.Fatal() {
		return nil, fmt.Errorf("%w: open client %q: %v", host.ErrHost, name, status)
	}
	if status&host.JackServerStarted != 0 {
		debug.Warn("jack", status.String())
	}

	h := &Host{
		client: client,
		name:   name,
		done:   make(chan struct{}),
	}
	if err := h.install(); err != nil {
		client.Close()
		return nil, err
	}

	h.rate.Store(client.GetSampleRate())
	h.size.Store(client.GetBufferSize())
	h.clock.SetRate(h.rate.Load())
	debug.Info("jack", "client open", "name", name, "rate", h.rate.Load(), "buffer", h.size.Load())
	return h, nil
}

// install registers the instance callbacks.
func (h *Host) install() error {
	if code := h.client.SetProcessCallback(h.process); code != 0 {
		return fmt.Errorf("%w: set process callback: %d", host.ErrHost, code)
	}
	if code := h.client.SetSampleRateCallback(h.sampleRateChanged); code != 0 {
		return fmt.Errorf("%w: set sample rate callback: %d", host.ErrHost, code)
	}
	if code := h.client.SetBufferSizeCallback(h.bufferSizeChanged); code != 0 {
		return fmt.Errorf("%w: set buffer size callback: %d", host.ErrHost, code)
	}
	if code := h.client.SetXRunCallback(h.xrun); code != 0 {
		return fmt.Errorf("%w: set xrun callback: %d", host.ErrHost, code)
	}
	h.client.OnShutdown(h.shutdown)
	return nil
}

// process runs on the JACK realtime thread.
// It always returns 0: a non-zero return makes JACK drop the client.
func (h *Host) process(nframes uint32) int {
	hd := h.handler
	if hd == nil {
		return 0
	}
	hd.OnCycle(nframes)
	h.clock.Advance(nframes)
	return 0
}

func (h *Host) sampleRateChanged(rate uint32) int {
	h.rate.Store(rate)
	h.clock.SetRate(rate)
	if hd := h.handler; hd != nil {
		hd.OnSampleRateChange(rate)
	}
	debug.Warn("jack", "sample rate changed", "rate", rate)
	return 0
}

func (h *Host) bufferSizeChanged(frames uint32) int {
	h.size.Store(frames)
	if hd := h.handler; hd != nil {
		hd.OnBufferSizeChange(frames)
	}
	debug.Warn("jack", "buffer size changed", "frames", frames)
	return 0
}

// xrun runs on the JACK notification thread, not the process thread.
func (h *Host) xrun() int {
	if hd := h.handler; hd != nil {
		hd.OnXrun()
	}
	debug.LogEvery(10, "jack", "xrun")
	return 0
}

func (h *Host) shutdown() {
	debug.Error("jack", "server shut down")
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Host) Name() string { return h.name }

func (h *Host) OpenOutputPort(name string) (host.Output, error) {
	port := h.client.PortRegister(name, jack.DEFAULT_MIDI_TYPE, jack.PortIsOutput, 0)
	if port == nil {
		return nil, fmt.Errorf("%w: register port %q", host.ErrHost, name)
	}
	return &output{client: h.client, port: port}, nil
}

func (h *Host) Destinations(pattern string) ([]string, error) {
	var out []string
	for _, name := range h.client.GetPorts("", jack.DEFAULT_MIDI_TYPE, jack.PortIsInput) {
		if midi.Match(name, pattern) {
			out = append(out, name)
		}
	}
	return out, nil
}

// Activate installs hd and starts processing. The handler is set before
// the client is activated, so the process callback sees it without locking.
func (h *Host) Activate(hd dispatch.Handler) error {
	h.handler = hd
	hd.OnSampleRateChange(h.rate.Load())
	hd.OnBufferSizeChange(h.size.Load())
	if code := h.client.Activate(); code != 0 {
		return fmt.Errorf("%w: activate: %d", host.ErrHost, code)
	}
	return nil
}

func (h *Host) Now() time.Duration { return h.clock.Now() }

func (h *Host) SampleRate() uint32 { return h.rate.Load() }

func (h *Host) BufferSize() uint32 { return h.size.Load() }

func (h *Host) Done() <-chan struct{} { return h.done }

func (h *Host) Close() error {
	h.client.Deactivate()
	code := h.client.Close()
	h.closeOnce.Do(func() { close(h.done) })
	if code != 0 {
		return fmt.Errorf("%w: close: %d", host.ErrHost, code)
	}
	return nil
}

// output writes each message straight into the port's JACK MIDI buffer
// as an event at frame 0.
type output struct {
	client *jack.Client
	port   *jack.Port

	buf   jack.MidiBuffer
	event jack.MidiData
}

func (o *output) Name() string { return o.port.GetName() }

func (o *output) Connect(destination string) error {
	if code := o.client.Connect(o.port.GetName(), destination); code != 0 {
		return fmt.Errorf("%w: connect %s -> %s: %d", host.ErrHost, o.port.GetName(), destination, code)
	}
	return nil
}

func (o *output) Buffer() dispatch.Buffer { return o }

func (o *output) Begin(frames uint32) {
	o.buf = o.port.MidiClearBuffer(frames)
}

// Space is unbounded: JACK does not report the free size of a MIDI
// buffer, so a refused Write marks it full.
func (o *output) Space() int { return math.MaxInt }

func (o *output) Write(msg []byte) bool {
	o.event.Time = 0
	o.event.Buffer = msg
	return o.port.MidiEventWrite(&o.event, o.buf) == 0
}

func (o *output) End() {}
