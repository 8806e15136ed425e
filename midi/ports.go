package midi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ScanTimeout bounds a port scan. Some MIDI backends (CoreMIDI) can hang.
const ScanTimeout = 3 * time.Second

var (
	ErrScanTimeout = errors.New("midi: port scan timed out")
	ErrNoPort      = errors.New("midi: no matching port")
)

// excluded names are never picked by a pattern match (virtual/system ports).
var excluded = []string{"midi through", "through port"}

// OutPorts lists output ports, giving up after timeout.
func OutPorts(timeout time.Duration) ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(timeout):
		return nil, ErrScanTimeout
	}
}

// FindOut returns the first output port whose name matches pattern.
func FindOut(pattern string, timeout time.Duration) (drivers.Out, error) {
	outs, err := OutPorts(timeout)
	if err != nil {
		return nil, err
	}
	i := Pick(portNames(outs), pattern)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoPort, pattern)
	}
	return outs[i], nil
}

// Match reports whether a port name matches a pattern (case-insensitive substring).
// An empty pattern matches any port that is not a through/virtual port.
func Match(name, pattern string) bool {
	lower := strings.ToLower(name)
	if pattern == "" {
		for _, ex := range excluded {
			if strings.Contains(lower, ex) {
				return false
			}
		}
		return true
	}
	return strings.Contains(lower, strings.ToLower(pattern))
}

// Pick returns the index of the best match for pattern in names, or -1.
// An exact name wins over a substring match.
func Pick(names []string, pattern string) int {
	best := -1
	for i, name := range names {
		if pattern != "" && name == pattern {
			return i
		}
		if best < 0 && Match(name, pattern) {
			best = i
		}
	}
	return best
}
