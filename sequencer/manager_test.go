package sequencer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pacemaker/dispatch"
	"pacemaker/midi"
	"pacemaker/timeline"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(d time.Duration) {
	c.mu.Lock()
	c.now = d
	c.mu.Unlock()
}

var errFull = errors.New("full")

// fakeSink accepts events until full is set.
type fakeSink struct {
	mu   sync.Mutex
	got  timeline.Timeline
	full bool
}

func (s *fakeSink) Send(ev timeline.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return errFull
	}
	s.got = append(s.got, ev)
	return nil
}

func (s *fakeSink) setFull(full bool) {
	s.mu.Lock()
	s.full = full
	s.mu.Unlock()
}

func (s *fakeSink) events() timeline.Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(timeline.Timeline(nil), s.got...)
}

func pulse(period time.Duration) timeline.Patch {
	return timeline.Patch{timeline.MustChannel(midi.NoteOn, 0, period, 0, 60)}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(&fakeClock{}, &fakeSink{}, timeline.Patch{{Kind: midi.NoteOn, Period: time.Second}}, Config{}); !errors.Is(err, timeline.ErrInvalidPatch) {
		t.Fatalf("empty notes: %v", err)
	}
	if _, err := New(&fakeClock{}, &fakeSink{}, pulse(time.Second), Config{Window: -time.Second}); err == nil {
		t.Fatal("negative window accepted")
	}
	m, err := New(&fakeClock{}, &fakeSink{}, pulse(time.Second), Config{})
	if err != nil {
		t.Fatal(err)
	}
	if c := m.Config(); c.Window != DefaultWindow || c.LookAhead != DefaultLookAhead || c.FillInterval != DefaultFillInterval || c.MaxLate != DefaultMaxLate {
		t.Fatalf("defaults not applied: %+v", c)
	}
}

func TestFillAlignsFirstWindow(t *testing.T) {
	clock := &fakeClock{now: 300 * time.Millisecond}
	m, _ := New(clock, &fakeSink{}, pulse(100*time.Millisecond), Config{Window: time.Second, LookAhead: 500 * time.Millisecond})

	if err := m.Fill(clock.Now()); err != nil {
		t.Fatal(err)
	}
	due, ok := m.NextDue()
	if !ok || due != time.Second {
		t.Fatalf("first event at %v (%v), want 1s", due, ok)
	}
	s := m.Stats()
	if s.Windows != 1 || s.Generated != 10 || s.Cursor != 2*time.Second || s.Pending != 10 {
		t.Fatalf("stats %+v", s)
	}

	// nothing new until the next window is within look-ahead+window
	m.Fill(400 * time.Millisecond)
	if m.Stats().Windows != 1 {
		t.Fatal("generated too early")
	}
	m.Fill(600 * time.Millisecond)
	if s := m.Stats(); s.Windows != 2 || s.Pending != 20 || s.Cursor != 3*time.Second {
		t.Fatalf("second window: %+v", s)
	}

	// both slots are full: no third window
	m.Fill(2 * time.Second)
	if m.Stats().Windows != 2 {
		t.Fatal("generated with both slots full")
	}
}

func TestReleaseInOrderAcrossWindows(t *testing.T) {
	clock := &fakeClock{}
	sink := &fakeSink{}
	m, _ := New(clock, sink, pulse(100*time.Millisecond), Config{Window: 300 * time.Millisecond, LookAhead: 1})

	var now time.Duration
	for now = 0; now < 2*time.Second; now += 10 * time.Millisecond {
		if err := m.Fill(now); err != nil {
			t.Fatal(err)
		}
		m.Release(now)
	}

	got := sink.events()
	if len(got) < 15 {
		t.Fatalf("released %d events", len(got))
	}
	for i, ev := range got {
		want := 300*time.Millisecond + time.Duration(i)*100*time.Millisecond
		if ev.Timestamp != want {
			t.Fatalf("event %d at %v, want %v", i, ev.Timestamp, want)
		}
		if ev.Timestamp > now {
			t.Fatalf("event %d released before it was due", i)
		}
	}
}

// base is where the first window starts for Fill(0) with a 1ns look-ahead
// and a 1s window.
const base = time.Second

func TestReleaseWaitsUntilDue(t *testing.T) {
	sink := &fakeSink{}
	m, _ := New(&fakeClock{}, sink, pulse(100*time.Millisecond), Config{Window: time.Second, LookAhead: 1})
	m.Fill(0)

	if n, _ := m.Release(base - time.Millisecond); n != 0 {
		t.Fatalf("released %d early events", n)
	}
	if n, _ := m.Release(base); n != 1 {
		t.Fatalf("released %d, want 1", n)
	}
	if n, _ := m.Release(base + 250*time.Millisecond); n != 2 {
		t.Fatalf("released %d, want 2", n)
	}
}

func TestPolicyDrop(t *testing.T) {
	sink := &fakeSink{full: true}
	m, _ := New(&fakeClock{}, sink, pulse(100*time.Millisecond), Config{Window: time.Second, LookAhead: 1})
	m.Fill(0)

	n, blocked := m.Release(base + 200*time.Millisecond)
	if n != 0 || blocked {
		t.Fatalf("Release = %d, %v", n, blocked)
	}
	if s := m.Stats(); s.Dropped != 3 || s.Written != 0 {
		t.Fatalf("stats %+v", s)
	}

	sink.setFull(false)
	if n, _ := m.Release(base + 300*time.Millisecond); n != 1 {
		t.Fatalf("released %d after drop, want 1", n)
	}
}

func TestPolicyRetry(t *testing.T) {
	sink := &fakeSink{full: true}
	m, _ := New(&fakeClock{}, sink, pulse(100*time.Millisecond), Config{
		Window:    time.Second,
		LookAhead: 1,
		Policy:    PolicyRetry,
		MaxLate:   20 * time.Millisecond,
	})
	m.Fill(0)

	n, blocked := m.Release(base + 5*time.Millisecond)
	if n != 0 || !blocked {
		t.Fatalf("Release = %d, %v, want blocked", n, blocked)
	}
	sink.setFull(false)
	if n, _ := m.Release(base + 10*time.Millisecond); n != 1 {
		t.Fatalf("retry released %d, want 1", n)
	}

	// too late to retry: dropped
	sink.setFull(true)
	n, blocked = m.Release(base + 150*time.Millisecond)
	if n != 0 || blocked {
		t.Fatalf("late Release = %d, %v", n, blocked)
	}
	s := m.Stats()
	if s.Retries != 1 || s.Dropped != 1 || s.Written != 1 {
		t.Fatalf("stats %+v", s)
	}
}

func TestLateCounted(t *testing.T) {
	m, _ := New(&fakeClock{}, &fakeSink{}, pulse(100*time.Millisecond), Config{Window: time.Second, LookAhead: 1, MaxLate: 10 * time.Millisecond})
	m.Fill(0)
	m.Release(base + 5*time.Millisecond)
	m.Release(base + 150*time.Millisecond)
	if s := m.Stats(); s.Written != 2 || s.Late != 1 {
		t.Fatalf("stats %+v", s)
	}
}

func TestReleaseIntoPort(t *testing.T) {
	d := dispatch.New()
	dst := dispatch.NewSliceBuffer(64)
	port := d.AddPort("out", 8, dst) // room for two messages
	m, _ := New(&fakeClock{}, port, pulse(100*time.Millisecond), Config{Window: time.Second, LookAhead: 1})
	m.Fill(0)

	m.Release(base + 300*time.Millisecond)
	if s := m.Stats(); s.Written != 2 || s.Dropped != 2 {
		t.Fatalf("stats %+v", s)
	}
	d.OnCycle(256)
	if len(dst.Bytes()) != 2*midi.Size {
		t.Fatalf("drained % x", dst.Bytes())
	}
}

func TestRun(t *testing.T) {
	clock := &fakeClock{}
	sink := &fakeSink{}
	m, _ := New(clock, sink, pulse(10*time.Millisecond), Config{
		Window:       50 * time.Millisecond,
		LookAhead:    1,
		FillInterval: time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	start := time.Now()
	deadline := start.Add(2 * time.Second)
	for len(sink.events()) < 10 {
		if time.Now().After(deadline) {
			t.Fatalf("released %d events", len(sink.events()))
		}
		clock.Set(time.Since(start))
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := sink.events()
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp <= got[i-1].Timestamp {
			t.Fatalf("out of order at %d: %v then %v", i, got[i-1].Timestamp, got[i].Timestamp)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
		ok   bool
	}{
		{"", PolicyDrop, true},
		{"drop", PolicyDrop, true},
		{"retry", PolicyRetry, true},
		{"block", 0, false},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err == nil) != tt.ok || (tt.ok && got != tt.want) {
			t.Errorf("ParsePolicy(%q) = %v, %v", tt.in, got, err)
		}
	}
	if PolicyRetry.String() != "retry" || Policy(7).String() != "Policy(7)" {
		t.Errorf("String: %v %v", PolicyRetry, Policy(7))
	}
}
