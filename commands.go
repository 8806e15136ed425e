package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"pacemaker/config"
	"pacemaker/timeline"
)

// window parses -from/-to/-preset and generates the timeline.
type window struct {
	from, to time.Duration
	preset   string
}

func (w *window) register(fs *flag.FlagSet, to time.Duration) {
	fs.DurationVar(&w.from, "from", 0, "window begin")
	fs.DurationVar(&w.to, "to", to, "window end")
	fs.StringVar(&w.preset, "preset", timeline.DefaultPreset, "built-in patch")
}

func (w *window) generate() (timeline.Timeline, error) {
	patch, err := preset(w.preset)
	if err != nil {
		return nil, err
	}
	return timeline.Generate(w.from, w.to, patch)
}

func printCmd(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("print", flag.ContinueOnError)
	var w window
	w.register(fs, 2*time.Second)
	if err := fs.Parse(args); err != nil {
		return err
	}

	tl, err := w.generate()
	if err != nil {
		return err
	}
	for _, ev := range tl {
		fmt.Fprintln(stdout, ev)
	}
	fmt.Fprintf(stdout, "%d events in [%v, %v)\n", len(tl), w.from, w.to)
	return nil
}

func exportCmd(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var w window
	w.register(fs, 10*time.Second)
	out := fs.String("o", "pacemaker.mid", "output file")
	ppq := fs.Uint("ppq", 960, "ticks per quarter note")
	bpm := fs.Float64("bpm", 120, "tempo written to the file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ppq == 0 || *ppq > 0x7FFF {
		return fmt.Errorf("ppq %d out of range", *ppq)
	}

	tl, err := w.generate()
	if err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := tl.WriteSMF(f, w.from, uint16(*ppq), *bpm); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d events to %s\n", len(tl), *out)
	return nil
}

func listCmd(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file (default ~/.config/pacemaker/config.yaml)")
	hostName := fs.String("host", "", "host backend: auto, jack or rtmidi")
	pattern := fs.String("dest", "", "only ports whose name contains this")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *hostName != "" {
		cfg.Host = *hostName
	}

	h, err := openHost(cfg)
	if err != nil {
		return err
	}
	defer h.Close()

	names, err := h.Destinations(*pattern)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "=== %s destinations ===\n", h.Name())
	for i, name := range names {
		fmt.Fprintf(stdout, "  %d: %s\n", i, name)
	}
	if len(names) == 0 {
		fmt.Fprintln(stdout, "  (none)")
	}
	return nil
}
