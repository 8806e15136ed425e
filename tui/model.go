package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pacemaker/dispatch"
	"pacemaker/midi"
	"pacemaker/sequencer"
	"pacemaker/theme"
	"pacemaker/widgets"
)

// RefreshRate is how often the monitor re-reads the counters.
const RefreshRate = 100 * time.Millisecond

const meterWidth = 24

// Sources the monitor reads. Satisfied by *dispatch.Dispatcher,
// *sequencer.Manager and host.Host.
type (
	DispatchStats  interface{ Stats() dispatch.Stats }
	SequencerStats interface{ Stats() sequencer.Stats }
	Clock          interface{ Now() time.Duration }
)

type Model struct {
	Dispatcher DispatchStats
	Sequencer  SequencerStats
	Clock      Clock
	Ports      <-chan midi.PortEvent // destination watcher events, may be nil
	Theme      *theme.Theme

	HostName    string
	Destination string
	OnQuit      func()

	connected bool
	now       time.Duration
	stats     dispatch.Stats
	seq       sequencer.Stats
	quitting  bool
}

type TickMsg time.Time

type PortEventMsg midi.PortEvent

// portsClosedMsg is sent once the watcher channel is closed.
type portsClosedMsg struct{}

func NewModel(d DispatchStats, seq SequencerStats, clock Clock, th *theme.Theme) Model {
	if th == nil {
		th = theme.New(nil)
	}
	return Model{
		Dispatcher: d,
		Sequencer:  seq,
		Clock:      clock,
		Theme:      th,
		connected:  true,
	}
}

func tick() tea.Cmd {
	return tea.Tick(RefreshRate, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func ListenForPorts(events <-chan midi.PortEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return portsClosedMsg{}
		}
		return PortEventMsg(event)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), ListenForPorts(m.Ports))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if m.OnQuit != nil {
				m.OnQuit()
			}
			return m, tea.Quit
		}

	case TickMsg:
		m.refresh()
		return m, tick()

	case PortEventMsg:
		event := midi.PortEvent(msg)
		switch {
		case event.Type == midi.PortConnected && !m.connected:
			m.connected = true
			m.Destination = event.Name
		case event.Type == midi.PortDisconnected && event.Name == m.Destination:
			m.connected = false
		}
		return m, ListenForPorts(m.Ports)

	case portsClosedMsg:
		m.Ports = nil
	}

	return m, nil
}

// refresh takes a snapshot of every source.
func (m *Model) refresh() {
	if m.Dispatcher != nil {
		m.stats = m.Dispatcher.Stats()
	}
	if m.Sequencer != nil {
		m.seq = m.Sequencer.Stats()
	}
	if m.Clock != nil {
		m.now = m.Clock.Now()
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	state := m.Theme.Symbols.Disconnected
	if m.connected {
		state = m.Theme.Symbols.Connected
	}
	header := headerStyle.Render(fmt.Sprintf("pacemaker  %s  %dHz/%d  t=%s",
		m.HostName, m.stats.SampleRate, m.stats.BufferSize, m.now.Truncate(time.Millisecond)))
	dest := fmt.Sprintf("%c %s", state, m.Destination)
	if !m.connected {
		dest = warnStyle.Render(dest + " (missing)")
	}

	transport := widgets.RenderStats([]widgets.Stat{
		{Label: "cycles", Value: fmt.Sprint(m.stats.Cycles)},
		{Label: "xruns", Value: m.count(m.stats.Xruns, warnStyle)},
		{Label: "dest full", Value: m.count(m.stats.DestinationFull, warnStyle)},
	})

	var ports []string
	for _, p := range m.stats.Ports {
		fill := 0.0
		if p.Capacity > 0 {
			fill = float64(p.Buffered) / float64(p.Capacity)
		}
		meter := widgets.RenderMeter(fill, meterWidth, m.Theme.Symbols.MeterFull, m.Theme.Symbols.MeterEmpty, m.Theme.Color)
		ports = append(ports, fmt.Sprintf("  %-10s %s %5d/%d B  sent %d  full %s",
			p.Name, meter, p.Buffered, p.Capacity, p.Drained, m.count(p.Failed, warnStyle)))
	}

	seq := widgets.RenderStats([]widgets.Stat{
		{Label: "windows", Value: fmt.Sprint(m.seq.Windows)},
		{Label: "generated", Value: fmt.Sprint(m.seq.Generated)},
		{Label: "written", Value: fmt.Sprint(m.seq.Written)},
		{Label: "dropped", Value: m.count(m.seq.Dropped, warnStyle)},
		{Label: "retries", Value: fmt.Sprint(m.seq.Retries)},
		{Label: "late", Value: m.count(m.seq.Late, warnStyle)},
		{Label: "pending", Value: fmt.Sprint(m.seq.Pending)},
		{Label: "next window", Value: m.seq.Cursor.String()},
	})

	help := dimStyle.Render(widgets.RenderKeyHelp([]widgets.KeyBinding{{Key: "q", Desc: "quit"}}))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(dest)
	out.WriteString("\n\n")
	out.WriteString(transport)
	out.WriteString("\n\n")
	out.WriteString(strings.Join(ports, "\n"))
	out.WriteString("\n\n")
	out.WriteString(seq)
	out.WriteString("\n\n")
	out.WriteString(help)
	return out.String()
}

// count renders a counter, highlighted when non-zero.
func (m Model) count(n uint64, style lipgloss.Style) string {
	if n == 0 {
		return "0"
	}
	return style.Render(fmt.Sprint(n))
}
