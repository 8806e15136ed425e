// Package timeline turns a patch of periodic channels into time ordered MIDI events.
//
// Generation is a pure function of the window and the patch. Channel grid
// points sit at Offset + k*Period, and the note for grid point k is
// Notes[k mod len(Notes)], so adjacent windows generated one after another
// produce exactly the events a single larger window would.
package timeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"pacemaker/midi"
)

// Event is one timestamped message on the host's monotonic time base.
type Event struct {
	Timestamp time.Duration
	Message   midi.Message
}

func (e Event) String() string {
	return fmt.Sprintf("{timestamp: %v, data: %v}", e.Timestamp, e.Message)
}

// Timeline is a time sorted batch of events for one window.
type Timeline []Event

func (tl Timeline) String() string {
	if len(tl) == 0 {
		return "[]"
	}
	var b strings.Builder
	for i, ev := range tl {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(ev.String())
	}
	return b.String()
}

// Generate returns every event of patch inside [begin, end), sorted by
// timestamp. Equal timestamps keep the channel order of the patch.
func Generate(begin, end time.Duration, patch Patch) (Timeline, error) {
	if end < begin {
		return nil, &PatchError{Channel: -1, Reason: fmt.Sprintf("window end %v before begin %v", end, begin)}
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	n := 0
	for _, ch := range patch {
		n += int(ch.Index(end) - ch.Index(begin))
	}
	tl := make(Timeline, 0, n)
	for _, ch := range patch {
		tl = appendChannel(tl, begin, end, ch)
	}

	sort.SliceStable(tl, func(i, j int) bool {
		return tl[i].Timestamp < tl[j].Timestamp
	})
	return tl, nil
}

// appendChannel appends the grid points of one channel inside [begin, end).
func appendChannel(tl Timeline, begin, end time.Duration, ch Channel) Timeline {
	first := ch.Index(begin) // ordinal of the first point >= begin
	last := ch.Index(end)    // ordinal of the first point >= end
	status := ch.Status()

	for k := first; k < last; k++ {
		tl = append(tl, Event{
			Timestamp: ch.At(k),
			Message:   midi.Message{status, ch.Note(k), midi.Velocity},
		})
	}
	return tl
}
