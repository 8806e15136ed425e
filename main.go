package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"pacemaker/debug"
	"pacemaker/timeline"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "run":
		err = runCmd(args)
	case "list":
		err = listCmd(args, os.Stdout)
	case "print":
		err = printCmd(args, os.Stdout)
	case "export":
		err = exportCmd(args, os.Stdout)
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		debug.Error("main", err.Error())
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "pacemaker - periodic MIDI generator")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run     - Play a preset into a destination port")
	fmt.Fprintln(w, "  list    - List destination ports")
	fmt.Fprintln(w, "  print   - Print the events of a preset for a time window")
	fmt.Fprintln(w, "  export  - Write a time window of a preset as a Standard MIDI File")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Presets: %s\n", strings.Join(timeline.PresetNames(), ", "))
	fmt.Fprintln(w, "Run 'pacemaker <command> -h' for the flags of a command.")
}

// preset resolves a preset name, listing the valid ones on error.
func preset(name string) (timeline.Patch, error) {
	if name == "" {
		name = timeline.DefaultPreset
	}
	patch, ok := timeline.Preset(name)
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (have %s)", name, strings.Join(timeline.PresetNames(), ", "))
	}
	return patch, nil
}
