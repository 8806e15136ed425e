package host

import (
	"fmt"
	"strings"
)

// JackStatus is the status bit set returned by jack_client_open.
type JackStatus uint32

const (
	JackFailure       JackStatus = 0x01
	JackInvalidOption JackStatus = 0x02
	JackNameNotUnique JackStatus = 0x04
	JackServerStarted JackStatus = 0x08
	JackServerFailed  JackStatus = 0x10
	JackServerError   JackStatus = 0x20
	JackNoSuchClient  JackStatus = 0x40
	JackLoadFailure   JackStatus = 0x80
	JackInitFailure   JackStatus = 0x100
	JackShmFailure    JackStatus = 0x200
	JackVersionError  JackStatus = 0x400
	JackBackendError  JackStatus = 0x800
	JackClientZombie  JackStatus = 0x1000
)

var jackStatusText = []struct {
	bit  JackStatus
	text string
}{
	{JackFailure, "general error"},
	{JackInvalidOption, "invalid or unsupported option"},
	{JackNameNotUnique, "client name is not unique"},
	{JackServerStarted, "JACK server was started"},
	{JackServerFailed, "cannot connect to the JACK server"},
	{JackServerError, "communication error with JACK server"},
	{JackNoSuchClient, "requested client does not exist"},
	{JackLoadFailure, "could not load internal client"},
	{JackInitFailure, "initialisation failed"},
	{JackShmFailure, "cannot access shared memory"},
	{JackVersionError, "protocol version mismatch"},
	{JackBackendError, "backend error"},
	{JackClientZombie, "zombie client"},
}

// Fatal reports whether any bit other than JackServerStarted is set.
func (s JackStatus) Fatal() bool {
	return s&^JackServerStarted != 0
}

func (s JackStatus) String() string {
	if s == 0 {
		return "ok"
	}
	var parts []string
	rest := s
	for _, st := range jackStatusText {
		if s&st.bit != 0 {
			parts = append(parts, st.text)
			rest &^= st.bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("unknown status %#x", uint32(rest)))
	}
	return strings.Join(parts, ", ")
}
