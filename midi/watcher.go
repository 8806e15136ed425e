package midi

import (
	"context"
	"time"

	"gitlab.com/gomidi/midi/v2/drivers"
)

// PortEvent is emitted when a destination port appears or disappears
type PortEvent struct {
	Type PortEventType
	Name string
}

type PortEventType int

const (
	PortConnected PortEventType = iota
	PortDisconnected
)

func (t PortEventType) String() string {
	if t == PortConnected {
		return "connected"
	}
	return "disconnected"
}

// Watcher polls the output ports for a destination pattern (hot-plug detection)
type Watcher struct {
	pattern  string
	pollRate time.Duration
	list     func() ([]string, error)

	seen   map[string]bool
	events chan PortEvent
}

// NewWatcher creates a watcher for ports matching pattern
func NewWatcher(pattern string) *Watcher {
	return &Watcher{
		pattern:  pattern,
		pollRate: time.Second,
		list:     listOutNames,
		seen:     make(map[string]bool),
		events:   make(chan PortEvent, 16),
	}
}

// NewWatcherFunc creates a watcher that lists port names with list
// (for example the destinations of a JACK client)
func NewWatcherFunc(pattern string, list func() ([]string, error)) *Watcher {
	w := NewWatcher(pattern)
	w.list = list
	return w
}

// Events returns a channel of connect/disconnect events
func (w *Watcher) Events() <-chan PortEvent {
	return w.events
}

// Run starts the polling loop (blocking - run in goroutine)
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollRate)
	defer ticker.Stop()
	defer close(w.events)

	w.scan()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

func (w *Watcher) scan() {
	names, err := w.list()
	if err != nil {
		// driver hung - skip this scan
		return
	}

	now := make(map[string]bool)
	for _, name := range names {
		if !Match(name, w.pattern) {
			continue
		}
		now[name] = true
		if !w.seen[name] {
			w.emit(PortEvent{Type: PortConnected, Name: name})
		}
	}
	for name := range w.seen {
		if !now[name] {
			w.emit(PortEvent{Type: PortDisconnected, Name: name})
		}
	}
	w.seen = now
}

func (w *Watcher) emit(ev PortEvent) {
	select {
	case w.events <- ev:
	default:
		// nobody listening, drop
	}
}

func listOutNames() ([]string, error) {
	outs, err := OutPorts(ScanTimeout)
	if err != nil {
		return nil, err
	}
	return portNames(outs), nil
}

func portNames(outs []drivers.Out) []string {
	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	return names
}
