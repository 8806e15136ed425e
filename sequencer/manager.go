package sequencer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"pacemaker/debug"
	"pacemaker/timeline"
)

// Clock is the transport time base.
type Clock interface {
	Now() time.Duration
}

// Sink receives events that are due. dispatch.Port implements it.
type Sink interface {
	Send(ev timeline.Event) error
}

// Manager keeps a sink fed ahead of playback.
//
// Two timelines are held: the one being released and the next window,
// generated ahead by the fill loop. The release loop hands each event to
// the sink when the clock reaches its timestamp.
type Manager struct {
	cfg   Config
	clock Clock
	sink  Sink
	patch timeline.Patch

	mu      sync.Mutex
	started bool
	cursor  time.Duration // begin of the next window to generate

	playing timeline.Timeline
	pos     int // next event of playing to release
	ready   timeline.Timeline
	hasNext bool

	stats Stats

	interruptChan chan struct{} // wake the release loop (new window)
}

// Stats counts what the manager did.
type Stats struct {
	Windows   uint64 // windows generated
	Generated uint64 // events generated
	Written   uint64 // events accepted by the sink
	Dropped   uint64 // events given up on
	Retries   uint64 // releases stopped by a full sink under PolicyRetry
	Late      uint64 // events written more than MaxLate after their timestamp
	Cursor    time.Duration
	Pending   int // events generated but not yet released
}

// New returns a manager for patch. The patch is copied and validated.
func New(clock Clock, sink Sink, patch timeline.Patch, cfg Config) (*Manager, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		cfg:           cfg,
		clock:         clock,
		sink:          sink,
		patch:         append(timeline.Patch(nil), patch...),
		interruptChan: make(chan struct{}, 1),
	}, nil
}

// Config returns the effective configuration.
func (m *Manager) Config() Config { return m.cfg }

// Fill generates windows while a slot is free and the next window begins
// within LookAhead+Window of now. The first window starts at the first
// multiple of Window after now+LookAhead.
func (m *Manager) Fill(now time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		m.cursor = timeline.Align(now+m.cfg.LookAhead, m.cfg.Window)
		m.started = true
	}

	filled := false
	for !m.hasNext && m.cursor < now+m.cfg.LookAhead+m.cfg.Window {
		begin, end := m.cursor, m.cursor+m.cfg.Window
		tl, err := timeline.Generate(begin, end, m.patch)
		if err != nil {
			return fmt.Errorf("generate %v-%v: %w", begin, end, err)
		}
		m.ready = tl
		m.hasNext = true
		m.cursor = end
		m.stats.Windows++
		m.stats.Generated += uint64(len(tl))
		m.promote()
		filled = true
		debug.Log("seq", "window", "begin", begin, "end", end, "events", len(tl))
	}

	if filled {
		m.interrupt()
	}
	return nil
}

// promote makes the ready window the playing one once the playing one is done.
func (m *Manager) promote() {
	if m.pos < len(m.playing) || !m.hasNext {
		return
	}
	m.playing, m.pos = m.ready, 0
	m.ready, m.hasNext = nil, false
}

// Release sends every pending event with timestamp <= now. It returns the
// number written and whether a full sink left a due event pending.
func (m *Manager) Release(now time.Duration) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for {
		m.promote()
		if m.pos >= len(m.playing) {
			return n, false
		}
		ev := m.playing[m.pos]
		if ev.Timestamp > now {
			return n, false
		}

		late := now - ev.Timestamp
		if err := m.sink.Send(ev); err != nil {
			if m.cfg.Policy == PolicyRetry && late <= m.cfg.MaxLate {
				m.stats.Retries++
				return n, true
			}
			m.stats.Dropped++
			m.pos++
			debug.LogEvery(100, "seq", "event dropped", "at", ev.Timestamp, "late", late, "err", err)
			continue
		}

		m.stats.Written++
		if late > m.cfg.MaxLate {
			m.stats.Late++
		}
		m.pos++
		n++
	}
}

// NextDue returns the timestamp of the next event to release.
func (m *Manager) NextDue() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.promote()
	if m.pos >= len(m.playing) {
		return 0, false
	}
	return m.playing[m.pos].Timestamp, true
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Cursor = m.cursor
	s.Pending = len(m.playing) - m.pos
	if m.hasNext {
		s.Pending += len(m.ready)
	}
	return s
}

// interrupt wakes the release loop without blocking.
func (m *Manager) interrupt() {
	select {
	case m.interruptChan <- struct{}{}:
	default:
	}
}

// Run fills and releases until ctx ends.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Fill(m.clock.Now()); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var fillErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		fillErr = m.fillLoop(ctx)
		cancel()
	}()
	go func() {
		defer wg.Done()
		m.releaseLoop(ctx)
	}()
	wg.Wait()

	if fillErr != nil && !errors.Is(fillErr, context.Canceled) {
		return fillErr
	}
	return nil
}

// fillLoop generates windows ahead of playback.
func (m *Manager) fillLoop(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.FillInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.Fill(m.clock.Now()); err != nil {
				debug.Error("seq", "fill failed", "err", err)
				return err
			}
		}
	}
}

// retryDelay paces releases while a full sink holds back a due event.
const retryDelay = time.Millisecond

// releaseLoop sleeps until the next event is due and releases it.
func (m *Manager) releaseLoop(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		wait := m.cfg.FillInterval
		if due, ok := m.NextDue(); ok {
			wait = due - m.clock.Now()
		}

		if wait > 0 {
			resetTimer(timer, wait)
			select {
			case <-ctx.Done():
				return
			case <-m.interruptChan:
				continue // window changed, recalculate
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		if _, blocked := m.Release(m.clock.Now()); blocked {
			resetTimer(timer, retryDelay)
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
