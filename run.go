package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"pacemaker/config"
	"pacemaker/debug"
	"pacemaker/dispatch"
	"pacemaker/host"
	"pacemaker/host/jackhost"
	"pacemaker/host/softhost"
	"pacemaker/midi"
	"pacemaker/sequencer"
	"pacemaker/theme"
	"pacemaker/tui"
)

// runFlags are the command line overrides of the config file.
type runFlags struct {
	config  string
	monitor bool
	preset  string
	dest    string
	host    string
	onFull  string
	palette string
}

func (f *runFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "config file (default ~/.config/pacemaker/config.yaml)")
	fs.BoolVar(&f.monitor, "monitor", false, "show the live transport monitor")
	fs.StringVar(&f.preset, "preset", "", "built-in patch")
	fs.StringVar(&f.dest, "dest", "", "destination port (substring match)")
	fs.StringVar(&f.host, "host", "", "host backend: auto, jack or rtmidi")
	fs.StringVar(&f.onFull, "onfull", "", "full transport policy: drop or retry")
	fs.StringVar(&f.palette, "palette", "", "GIMP palette (.gpl) for the monitor")
}

// apply overlays the flags that were set onto cfg.
func (f *runFlags) apply(cfg *config.Config) error {
	if f.preset != "" {
		cfg.Preset = f.preset
	}
	if f.dest != "" {
		cfg.Destination = f.dest
	}
	if f.host != "" {
		cfg.Host = f.host
	}
	if f.onFull != "" {
		cfg.OnFull = f.onFull
	}
	return cfg.Validate()
}

// sequencerConfig maps the file settings to the orchestrator timing.
func sequencerConfig(cfg *config.Config) (sequencer.Config, error) {
	policy, err := sequencer.ParsePolicy(cfg.OnFull)
	if err != nil {
		return sequencer.Config{}, err
	}
	return sequencer.Config{
		Window:       cfg.Window,
		LookAhead:    cfg.LookAhead,
		FillInterval: cfg.FillInterval,
		Policy:       policy,
		MaxLate:      cfg.MaxLate,
	}, nil
}

func openHost(cfg *config.Config) (host.Host, error) {
	kind, err := host.Resolve(cfg.Host)
	if err != nil {
		return nil, err
	}
	debug.Log("main", "host", "backend", kind)

	if kind == host.Jack {
		h, err := jackhost.Open(cfg.Client)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	return softhost.New(softhost.Config{
		Name:       cfg.Client,
		SampleRate: cfg.SampleRate,
		BufferSize: cfg.BufferSize,
	}), nil
}

// setupLogging keeps stderr free for the monitor by logging to a file.
func setupLogging(cfg *config.Config, monitor bool) error {
	if monitor || cfg.LogFile != "" {
		if err := debug.Enable(cfg.LogFile); err != nil {
			return err
		}
	}
	return debug.SetLevel(cfg.LogLevel)
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var f runFlags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(f.config)
	if err != nil {
		return err
	}
	if err := f.apply(cfg); err != nil {
		return err
	}
	if err := setupLogging(cfg, f.monitor); err != nil {
		return err
	}
	defer debug.Disable()

	patch, err := preset(cfg.Preset)
	if err != nil {
		return err
	}
	seqCfg, err := sequencerConfig(cfg)
	if err != nil {
		return err
	}

	// Startup: client, port, connection, activation
	h, err := openHost(cfg)
	if err != nil {
		return err
	}
	defer h.Close()

	out, err := h.OpenOutputPort(cfg.Port)
	if err != nil {
		return err
	}
	dsts, err := h.Destinations(cfg.Destination)
	if err != nil {
		return err
	}
	if len(dsts) == 0 {
		return fmt.Errorf("%w: no destination port matching %q", host.ErrHost, cfg.Destination)
	}
	destination := dsts[0]
	if err := out.Connect(destination); err != nil {
		return err
	}

	d := dispatch.New()
	port := d.AddPort(cfg.Port, cfg.RingSize, out.Buffer())
	if err := h.Activate(d); err != nil {
		return err
	}

	seq, err := sequencer.New(h, port, patch, seqCfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go func() {
		select {
		case <-h.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	watchConfig(ctx, f.config)

	ports := midi.NewWatcherFunc(cfg.Destination, func() ([]string, error) {
		return h.Destinations(cfg.Destination)
	})
	go ports.Run(ctx)

	debug.Info("run", "playing",
		"host", h.Name(), "preset", cfg.Preset, "destination", destination,
		"rate", h.SampleRate(), "buffer", h.BufferSize(), "window", seqCfg.Window)

	errc := make(chan error, 1)
	go func() { errc <- seq.Run(ctx) }()

	if f.monitor {
		err = monitor(ctx, cancel, f.palette, d, seq, h, destination, ports.Events())
	} else {
		logPortEvents(ctx, ports.Events())
	}
	cancel()

	if runErr := <-errc; runErr != nil && err == nil {
		err = runErr
	}

	s := seq.Stats()
	ds := d.Stats()
	debug.Info("run", "stopped",
		"windows", s.Windows, "written", s.Written, "dropped", s.Dropped, "late", s.Late,
		"cycles", ds.Cycles, "xruns", ds.Xruns, "destinationFull", ds.DestinationFull)
	if soft, ok := h.(*softhost.Host); ok {
		sent, failed := soft.Sent()
		for name, n := range sent {
			debug.Info("run", "port sent", "port", name, "sent", n, "failed", failed[name])
		}
	}
	return err
}

// watchConfig applies the log level from config file edits while running.
func watchConfig(ctx context.Context, path string) {
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		return
	}

	go func() {
		err := config.Watch(ctx, path, func(c *config.Config, err error) {
			if err != nil {
				debug.Warn("config", "reload failed", "err", err)
				return
			}
			if err := debug.SetLevel(c.LogLevel); err != nil {
				debug.Warn("config", "bad log level", "level", c.LogLevel)
				return
			}
			debug.Info("config", "reloaded", "logLevel", c.LogLevel)
		})
		if err != nil {
			debug.Warn("config", "watch failed", "path", path, "err", err)
		}
	}()
}

// logPortEvents logs destination hot-plug events until ctx ends.
func logPortEvents(ctx context.Context, events <-chan midi.PortEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				<-ctx.Done()
				return
			}
			if ev.Type == midi.PortConnected {
				debug.Info("ports", "destination connected", "port", ev.Name)
			} else {
				debug.Warn("ports", "destination disconnected", "port", ev.Name)
			}
		}
	}
}

func monitor(ctx context.Context, cancel context.CancelFunc, palette string,
	d *dispatch.Dispatcher, seq *sequencer.Manager, h host.Host, destination string, events <-chan midi.PortEvent) error {
	var pal *theme.Palette
	if palette != "" {
		p, err := theme.LoadGPL(palette)
		if err != nil {
			return err
		}
		pal = p
	}

	m := tui.NewModel(d, seq, h, theme.New(pal))
	m.HostName = h.Name()
	m.Destination = destination
	m.Ports = events
	m.OnQuit = cancel

	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}
