// Package softhost drives the dispatcher from a software cycle clock and
// sends the drained bytes to gomidi output ports.
//
// Each cycle covers BufferSize frames at SampleRate. The process callback
// runs first; the staged bytes of every output are then sent to its
// connected gomidi port on the same goroutine.
package softhost

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/gomidi/midi/v2/drivers"

	"pacemaker/debug"
	"pacemaker/dispatch"
	"pacemaker/host"
	"pacemaker/midi"
)

// StageSize is the per-cycle staging capacity of each output port in bytes.
const StageSize = 3 * 1024

// Config describes the software transport.
type Config struct {
	Name       string
	SampleRate uint32
	BufferSize uint32

	// Lookup opens the gomidi port matching a destination pattern.
	// Defaults to midi.FindOut.
	Lookup func(pattern string) (drivers.Out, error)
	// Ports lists destination port names. Defaults to the gomidi output ports.
	Ports func() ([]string, error)
}

// Host is a software transport.
type Host struct {
	cfg Config

	outputs []*output
	handler dispatch.Handler
	clock   host.FrameClock

	running   atomic.Bool
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ host.Host = (*Host)(nil)

// New returns a host that is not yet running.
func New(cfg Config) *Host {
	if cfg.Name == "" {
		cfg.Name = "pacemaker"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 48000
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 256
	}
	if cfg.Lookup == nil {
		cfg.Lookup = func(pattern string) (drivers.Out, error) {
			return midi.FindOut(pattern, midi.ScanTimeout)
		}
	}
	if cfg.Ports == nil {
		cfg.Ports = func() ([]string, error) {
			outs, err := midi.OutPorts(midi.ScanTimeout)
			if err != nil {
				return nil, err
			}
			names := make([]string, len(outs))
			for i, o := range outs {
				names[i] = o.String()
			}
			return names, nil
		}
	}
	h := &Host{
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	h.clock.SetRate(cfg.SampleRate)
	return h
}

func (h *Host) Name() string { return h.cfg.Name }

func (h *Host) OpenOutputPort(name string) (host.Output, error) {
	if h.running.Load() {
		return nil, fmt.Errorf("%w: register port %q after activation", host.ErrHost, name)
	}
	o := &output{
		SliceBuffer: dispatch.NewSliceBuffer(StageSize),
		name:        h.cfg.Name + ":" + name,
		host:        h,
	}
	h.outputs = append(h.outputs, o)
	return o, nil
}

func (h *Host) Destinations(pattern string) ([]string, error) {
	names, err := h.cfg.Ports()
	if err != nil {
		return nil, fmt.Errorf("%w: list ports: %w", host.ErrHost, err)
	}
	var out []string
	for _, name := range names {
		if midi.Match(name, pattern) {
			out = append(out, name)
		}
	}
	return out, nil
}

// Activate reports the cycle parameters to hd and starts the cycle loop.
func (h *Host) Activate(hd dispatch.Handler) error {
	if h.running.Swap(true) {
		return fmt.Errorf("%w: already active", host.ErrHost)
	}
	h.handler = hd
	hd.OnSampleRateChange(h.cfg.SampleRate)
	hd.OnBufferSizeChange(h.cfg.BufferSize)

	h.wg.Add(1)
	go h.loop()
	debug.Info("soft", "active", "rate", h.cfg.SampleRate, "buffer", h.cfg.BufferSize, "cycle", h.Period())
	return nil
}

// Period returns the wall-clock length of one cycle.
func (h *Host) Period() time.Duration {
	return host.FramesToDuration(uint64(h.cfg.BufferSize), h.cfg.SampleRate)
}

// loop runs one cycle per period on a locked OS thread. A cycle that
// starts more than a full period late counts as an xrun and the schedule
// restarts from now.
func (h *Host) loop() {
	defer h.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	period := h.Period()
	timer := time.NewTimer(period)
	defer timer.Stop()
	next := time.Now().Add(period)

	for {
		select {
		case <-h.stop:
			return
		case <-timer.C:
		}

		if late := time.Since(next); late > period {
			h.handler.OnXrun()
			next = time.Now()
		}
		h.Step()

		next = next.Add(period)
		timer.Reset(time.Until(next))
	}
}

// Step runs one cycle synchronously: the process callback, the clock
// advance, then the sends.
func (h *Host) Step() {
	frames := h.cfg.BufferSize
	if h.handler != nil {
		h.handler.OnCycle(frames)
	}
	h.clock.Advance(frames)
	for _, o := range h.outputs {
		o.flush()
	}
}

// SetHandler installs hd without starting the cycle loop. Used with Step.
func (h *Host) SetHandler(hd dispatch.Handler) {
	h.handler = hd
	hd.OnSampleRateChange(h.cfg.SampleRate)
	hd.OnBufferSizeChange(h.cfg.BufferSize)
}

func (h *Host) Now() time.Duration { return h.clock.Now() }

func (h *Host) SampleRate() uint32 { return h.cfg.SampleRate }

func (h *Host) BufferSize() uint32 { return h.cfg.BufferSize }

func (h *Host) Done() <-chan struct{} { return h.done }

// Close stops the cycle loop and closes every opened gomidi port.
func (h *Host) Close() error {
	h.stopOnce.Do(func() { close(h.stop) })
	h.wg.Wait()

	var first error
	for _, o := range h.outputs {
		if err := o.close(); err != nil && first == nil {
			first = err
		}
	}
	h.closeOnce.Do(func() { close(h.done) })
	return first
}

// output stages one cycle of bytes for a gomidi port.
type output struct {
	*dispatch.SliceBuffer
	name string
	host *Host

	mu   sync.Mutex
	out  drivers.Out
	sent atomic.Uint64
	errs atomic.Uint64
}

func (o *output) Name() string { return o.name }

// Connect opens the gomidi port matching destination.
func (o *output) Connect(destination string) error {
	out, err := o.host.cfg.Lookup(destination)
	if err != nil {
		return fmt.Errorf("%w: connect %s -> %s: %w", host.ErrHost, o.name, destination, err)
	}
	if !out.IsOpen() {
		if err := out.Open(); err != nil {
			return fmt.Errorf("%w: open %s: %w", host.ErrHost, out.String(), err)
		}
	}
	o.mu.Lock()
	o.out = out
	o.mu.Unlock()
	debug.Info("soft", "connected", "port", o.name, "destination", out.String())
	return nil
}

func (o *output) Buffer() dispatch.Buffer { return o }

// flush sends the bytes staged by the last cycle, one message at a time.
func (o *output) flush() {
	staged := o.Bytes()
	if len(staged) == 0 {
		return
	}
	o.mu.Lock()
	out := o.out
	o.mu.Unlock()
	if out == nil {
		return
	}
	for i := 0; i+midi.Size <= len(staged); i += midi.Size {
		if err := out.Send(staged[i : i+midi.Size]); err != nil {
			o.errs.Add(1)
			debug.LogEvery(100, "soft", "send failed", "port", out.String(), "err", err)
			continue
		}
		o.sent.Add(1)
	}
}

func (o *output) close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.out == nil {
		return nil
	}
	err := o.out.Close()
	o.out = nil
	return err
}

// Sent returns the messages sent and the send failures per output port.
func (h *Host) Sent() (sent, failed map[string]uint64) {
	sent = make(map[string]uint64, len(h.outputs))
	failed = make(map[string]uint64, len(h.outputs))
	for _, o := range h.outputs {
		sent[o.name] = o.sent.Load()
		failed[o.name] = o.errs.Load()
	}
	return sent, failed
}
