package timeline

import (
	"fmt"
	"io"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
)

// WriteSMF writes the timeline as a single-track Standard MIDI File.
// Timestamps are measured from origin; earlier events are placed at tick 0.
func (tl Timeline) WriteSMF(w io.Writer, origin time.Duration, ppq uint16, bpm float64) error {
	if ppq == 0 || bpm <= 0 {
		return fmt.Errorf("smf: invalid resolution ppq=%d bpm=%v", ppq, bpm)
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ppq)

	var track smf.Track
	track.Add(0, smf.MetaTempo(bpm))

	var last uint32
	for _, ev := range tl {
		at := ticks(ev.Timestamp-origin, ppq, bpm)
		if at < last {
			at = last
		}
		track.Add(at-last, ev.Message.Gomidi())
		last = at
	}
	track.Close(0)

	if err := s.Add(track); err != nil {
		return fmt.Errorf("smf: add track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("smf: write: %w", err)
	}
	return nil
}

// ticks converts a duration to MIDI ticks at a fixed tempo.
func ticks(d time.Duration, ppq uint16, bpm float64) uint32 {
	if d <= 0 {
		return 0
	}
	beats := d.Seconds() * bpm / 60
	return uint32(beats*float64(ppq) + 0.5)
}
