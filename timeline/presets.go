package timeline

import (
	"sort"
	"time"

	"pacemaker/midi"
)

// presets are the built-in patches selectable by name.
var presets = map[string]Patch{
	// a note that is held for one second every two seconds
	"pulse": {
		MustChannel(midi.NoteOn, 0, 2*time.Second, 0, 64),
		MustChannel(midi.NoteOff, 0, 2*time.Second, time.Second, 64),
	},
	// three voices with coprime-ish periods drifting against each other
	"poly": {
		MustChannel(midi.NoteOn, 0, 100*time.Millisecond, 0, 60),
		MustChannel(midi.NoteOn, 1, 175*time.Millisecond, 0, 64, 67),
		MustChannel(midi.NoteOn, 2, 200*time.Millisecond, 0, 48, 55, 52),
	},
	// a four note arpeggio with matching note-offs half a step later
	"arp": {
		MustChannel(midi.NoteOn, 0, 250*time.Millisecond, 0, 60, 64, 67, 72),
		MustChannel(midi.NoteOff, 0, 250*time.Millisecond, 125*time.Millisecond, 60, 64, 67, 72),
	},
}

// DefaultPreset is used when no preset is named.
const DefaultPreset = "pulse"

// Preset returns a copy of a built-in patch.
func Preset(name string) (Patch, bool) {
	p, ok := presets[name]
	if !ok {
		return nil, false
	}
	return append(Patch(nil), p...), true
}

// PresetNames lists the built-in patches in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
