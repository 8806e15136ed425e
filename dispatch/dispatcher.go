// Package dispatch moves serialized MIDI events from a producer goroutine to
// the host's process callback.
//
// Each output Port owns one ring. The producer writes whole 3-byte messages
// with Port.Write, Port.Enqueue or Port.GenerateAndEnqueue; the host calls
// Dispatcher.OnCycle once per processing cycle, which drains every port into
// its destination Buffer without blocking, locking or allocating.
package dispatch

import (
	"sync/atomic"
	"time"
)

// Cycle status returned by OnCycle.
const (
	StatusOK              = 0
	StatusDestinationFull = 1
)

// Handler is the set of host callbacks a client instance registers.
// OnCycle runs on the host's realtime thread; the others may not.
type Handler interface {
	OnCycle(frames uint32) int
	OnSampleRateChange(rate uint32)
	OnBufferSizeChange(frames uint32)
	OnXrun()
}

// Dispatcher drains every registered port once per cycle.
type Dispatcher struct {
	ports []*Port

	cycles atomic.Uint64
	xruns  atomic.Uint64
	full   atomic.Uint64

	sampleRate atomic.Uint32
	bufferSize atomic.Uint32
}

var _ Handler = (*Dispatcher)(nil)

// New returns a dispatcher with no ports.
func New() *Dispatcher {
	return &Dispatcher{}
}

// AddPort registers a port with a ring of capacity bytes draining into dst.
// Ports must be added before the host starts calling OnCycle.
func (d *Dispatcher) AddPort(name string, capacity int, dst Buffer) *Port {
	p := newPort(name, capacity, dst)
	d.ports = append(d.ports, p)
	return p
}

// Port returns the port with the given name, or nil.
func (d *Dispatcher) Port(name string) *Port {
	for _, p := range d.ports {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Ports returns the registered ports in registration order.
func (d *Dispatcher) Ports() []*Port {
	return d.ports
}

// OnCycle drains every port. It returns StatusDestinationFull if any
// destination buffer could not take its pending messages this cycle.
func (d *Dispatcher) OnCycle(frames uint32) int {
	d.cycles.Add(1)
	status := StatusOK
	for _, p := range d.ports {
		if !p.drain(frames) {
			status = StatusDestinationFull
		}
	}
	if status != StatusOK {
		d.full.Add(1)
	}
	return status
}

func (d *Dispatcher) OnSampleRateChange(rate uint32) { d.sampleRate.Store(rate) }

func (d *Dispatcher) OnBufferSizeChange(frames uint32) { d.bufferSize.Store(frames) }

func (d *Dispatcher) OnXrun() { d.xruns.Add(1) }

// SampleRate returns the last rate reported by the host.
func (d *Dispatcher) SampleRate() uint32 { return d.sampleRate.Load() }

// BufferSize returns the last cycle length in frames reported by the host.
func (d *Dispatcher) BufferSize() uint32 { return d.bufferSize.Load() }

// CycleDuration returns the length of one processing cycle, or 0 if the
// host has not reported its parameters yet.
func (d *Dispatcher) CycleDuration() time.Duration {
	rate := d.sampleRate.Load()
	if rate == 0 {
		return 0
	}
	return time.Duration(uint64(d.bufferSize.Load()) * uint64(time.Second) / uint64(rate))
}

// Stats is a snapshot of the dispatcher counters.
type Stats struct {
	Cycles          uint64
	Xruns           uint64
	DestinationFull uint64 // cycles with at least one full destination
	SampleRate      uint32
	BufferSize      uint32
	Ports           []PortStats
}

// Stats returns a snapshot. Safe to call from any goroutine.
func (d *Dispatcher) Stats() Stats {
	s := Stats{
		Cycles:          d.cycles.Load(),
		Xruns:           d.xruns.Load(),
		DestinationFull: d.full.Load(),
		SampleRate:      d.sampleRate.Load(),
		BufferSize:      d.bufferSize.Load(),
		Ports:           make([]PortStats, len(d.ports)),
	}
	for i, p := range d.ports {
		s.Ports[i] = p.Stats()
	}
	return s
}
