package dispatch

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"pacemaker/midi"
	"pacemaker/ring"
	"pacemaker/timeline"
)

// ErrTransportFull is returned when a message does not fit in a port's ring.
var ErrTransportFull = errors.New("transport full")

// Serialize returns the wire bytes of an event.
// The payload already is the wire format, so this is the identity.
func Serialize(ev timeline.Event) midi.Message {
	return ev.Message
}

// Port is one output port: a ring fed by the producer and drained into a
// destination buffer by the process callback.
type Port struct {
	name string
	ring *ring.Ring
	dst  Buffer

	// producer side
	written atomic.Uint64
	failed  atomic.Uint64

	// process side
	drained atomic.Uint64
	full    atomic.Uint64
	msg     [midi.Size]byte
}

func newPort(name string, capacity int, dst Buffer) *Port {
	return &Port{
		name: name,
		ring: ring.New(capacity),
		dst:  dst,
	}
}

// Name returns the port name.
func (p *Port) Name() string { return p.name }

// Write enqueues one message. It fails with ErrTransportFull and writes
// nothing if the ring has no room for the whole message.
func (p *Port) Write(m midi.Message) error {
	if !p.ring.Write(m[:]) {
		p.failed.Add(1)
		return ErrTransportFull
	}
	p.written.Add(1)
	return nil
}

// Send serializes and enqueues one event.
func (p *Port) Send(ev timeline.Event) error {
	return p.Write(Serialize(ev))
}

// Report summarizes one batch enqueue.
type Report struct {
	Events  int
	Written int
	Failed  int
}

// Err returns ErrTransportFull if any event of the batch was not written.
func (r Report) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d events: %w", r.Failed, r.Events, ErrTransportFull)
}

// Enqueue writes every event of tl in order. A failed write is counted and
// the remaining events are still attempted.
func (p *Port) Enqueue(tl timeline.Timeline) Report {
	r := Report{Events: len(tl)}
	for _, ev := range tl {
		if err := p.Send(ev); err != nil {
			r.Failed++
			continue
		}
		r.Written++
	}
	return r
}

// GenerateAndEnqueue generates [begin, end) for patch and enqueues it.
func (p *Port) GenerateAndEnqueue(begin, end time.Duration, patch timeline.Patch) (Report, error) {
	tl, err := timeline.Generate(begin, end, patch)
	if err != nil {
		return Report{}, err
	}
	return p.Enqueue(tl), nil
}

// drain moves whole messages from the ring into the destination buffer.
// It reports false when the destination could not take pending messages.
// A message leaves the ring only once the destination has accepted it.
func (p *Port) drain(frames uint32) bool {
	p.dst.Begin(frames)
	defer p.dst.End()

	avail := p.ring.ReadAvailable()
	if avail < midi.Size {
		return true
	}
	n := min(avail, p.dst.Space()) / midi.Size
	if n == 0 {
		p.full.Add(1)
		return false
	}
	for ; n > 0; n-- {
		p.ring.Peek(p.msg[:])
		if !p.dst.Write(p.msg[:]) {
			p.full.Add(1)
			return false
		}
		p.ring.Discard(midi.Size)
		p.drained.Add(1)
	}
	return true
}

// PortStats is a snapshot of a port's counters.
type PortStats struct {
	Name            string
	Written         uint64 // messages accepted by the ring
	Failed          uint64 // messages rejected with ErrTransportFull
	Drained         uint64 // messages copied to the destination
	DestinationFull uint64 // cycles the destination had no room
	Buffered        int    // bytes waiting in the ring
	Capacity        int    // usable ring bytes
}

// Stats returns a snapshot of the port's counters.
func (p *Port) Stats() PortStats {
	return PortStats{
		Name:            p.name,
		Written:         p.written.Load(),
		Failed:          p.failed.Load(),
		Drained:         p.drained.Load(),
		DestinationFull: p.full.Load(),
		Buffered:        p.ring.ReadAvailable(),
		Capacity:        p.ring.Size() - 1,
	}
}
