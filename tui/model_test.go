package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"pacemaker/dispatch"
	"pacemaker/midi"
	"pacemaker/sequencer"
)

type fixedDispatch dispatch.Stats

func (f fixedDispatch) Stats() dispatch.Stats { return dispatch.Stats(f) }

type fixedSequencer sequencer.Stats

func (f fixedSequencer) Stats() sequencer.Stats { return sequencer.Stats(f) }

type fixedClock time.Duration

func (c fixedClock) Now() time.Duration { return time.Duration(c) }

func newTestModel() Model {
	d := fixedDispatch{
		Cycles:     1234,
		SampleRate: 48000,
		BufferSize: 256,
		Ports: []dispatch.PortStats{
			{Name: "out", Buffered: 300, Capacity: 16383, Drained: 77},
		},
	}
	seq := fixedSequencer{Windows: 3, Generated: 42, Written: 40}
	m := NewModel(d, seq, fixedClock(1500*time.Millisecond), nil)
	m.HostName = "rtmidi"
	m.Destination = "Synth"
	return m
}

func TestTickRefreshes(t *testing.T) {
	m := newTestModel()
	next, cmd := m.Update(TickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick not rescheduled")
	}

	view := next.View()
	for _, want := range []string{"rtmidi", "48000Hz/256", "1234", "out", "300/16383", "42", "1.5s", "Synth"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestPortEvents(t *testing.T) {
	events := make(chan midi.PortEvent, 1)
	m := newTestModel()
	m.Ports = events

	next, cmd := m.Update(PortEventMsg{Type: midi.PortDisconnected, Name: "Synth"})
	if cmd == nil {
		t.Fatal("not listening for the next port event")
	}
	if view := next.View(); !strings.Contains(view, "missing") {
		t.Fatalf("disconnect not shown:\n%s", view)
	}

	next, _ = next.Update(PortEventMsg{Type: midi.PortConnected, Name: "Synth 2"})
	if view := next.View(); strings.Contains(view, "missing") || !strings.Contains(view, "Synth 2") {
		t.Fatalf("reconnect not shown:\n%s", view)
	}

	close(events)
	msg := ListenForPorts(events)()
	if _, ok := msg.(portsClosedMsg); !ok {
		t.Fatalf("closed channel gave %T", msg)
	}
	if ListenForPorts(nil) != nil {
		t.Fatal("nil channel should not be listened to")
	}
}

func TestQuit(t *testing.T) {
	quit := false
	m := newTestModel()
	m.OnQuit = func() { quit = true }

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if !quit {
		t.Fatal("OnQuit not called")
	}
	if cmd == nil {
		t.Fatal("no quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("command is not tea.Quit")
	}
	if next.View() != "" {
		t.Fatal("view not cleared after quit")
	}
}
