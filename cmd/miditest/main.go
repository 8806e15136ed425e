package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"pacemaker/midi"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	pattern := ""
	if len(os.Args) > 2 {
		pattern = os.Args[2]
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "note":
		err = testNote(pattern)
	case "poll":
		err = pollPorts(pattern)
	default:
		usage()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("MIDI destination checks")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list            - List all MIDI output ports")
	fmt.Println("  note [pattern]  - Play a C major arpeggio directly on a port")
	fmt.Println("  poll [pattern]  - Report ports as they appear and disappear")
}

func listPorts() error {
	fmt.Println("=== MIDI Output Ports ===")
	fmt.Printf("(waiting up to %v...)\n", midi.ScanTimeout)

	outs, err := midi.OutPorts(midi.ScanTimeout)
	if errors.Is(err, midi.ErrScanTimeout) {
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return err
	}
	if err != nil {
		return err
	}
	for i, p := range outs {
		marker := " "
		if midi.Match(p.String(), "") {
			marker = "*"
		}
		fmt.Printf(" %s%d: %s\n", marker, i, p.String())
	}
	fmt.Println("\n* = picked by an empty destination pattern")
	return nil
}

// testNote bypasses the transport so a silent run can be narrowed down
// to the destination itself.
func testNote(pattern string) error {
	out, err := midi.FindOut(pattern, midi.ScanTimeout)
	if err != nil {
		return err
	}
	fmt.Printf("Using output: %s\n", out.String())

	send, err := gomidi.SendTo(out)
	if err != nil {
		return err
	}
	defer out.Close()

	for _, key := range []uint8{60, 64, 67, 72} {
		on := midi.NewMessage(midi.NoteOn, 0, key, midi.Velocity)
		fmt.Printf("  %v\n", on)
		if err := send(on.Gomidi()); err != nil {
			return err
		}
		time.Sleep(200 * time.Millisecond)
		if err := send(midi.NewMessage(midi.NoteOff, 0, key, midi.Velocity).Gomidi()); err != nil {
			return err
		}
	}

	fmt.Println("Done!")
	return nil
}

func pollPorts(pattern string) error {
	fmt.Printf("Watching output ports matching %q. Ctrl+C to exit.\n", pattern)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	w := midi.NewWatcher(pattern)
	go w.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			fmt.Printf("[%s] %s %s\n", time.Now().Format("15:04:05"), ev.Type, ev.Name)
		}
	}
}
