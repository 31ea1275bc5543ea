// Package rawir is the raw infrared event sink of the receiver.
// It collects pulse/space events into framed packets for protocol decoders.
package rawir

import (
	"fmt"
	"strings"
	"time"
)

// Event is one pulse (carrier on) or space (carrier off) interval.
type Event struct {
	// Pulse is true for a mark and false for a space.
	Pulse bool `json:"pulse"`
	// Duration is the length of the interval in nanoseconds.
	Duration uint32 `json:"duration"`
}

// String returns the event in mode2 notation, e.g. "pulse 562".
func (e Event) String() string {
	if e.Pulse {
		return fmt.Sprintf("pulse %d", e.Duration/1000)
	}
	return fmt.Sprintf("space %d", e.Duration/1000)
}

// Packet is a sequence of events between two idle periods.
type Packet struct {
	Time   time.Time `json:"time"`
	Events []Event   `json:"events"`
}

// String returns the packet in mode2 notation, one event per line.
func (p Packet) String() string {
	var sb strings.Builder
	for _, e := range p.Events {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ProtocolMask is a bit set of remote control protocols.
type ProtocolMask uint64

const (
	ProtoUnknown ProtocolMask = 1 << iota
	ProtoOther
	ProtoLIRC
	ProtoRC5
	ProtoRC5X
	ProtoRC6
	ProtoNEC
	ProtoJVC
	ProtoSony
	ProtoSanyo
	ProtoMCEKbd
	ProtoRCMM

	// ProtoAll allows every known protocol.
	ProtoAll = ProtoUnknown | ProtoOther | ProtoLIRC | ProtoRC5 | ProtoRC5X | ProtoRC6 |
		ProtoNEC | ProtoJVC | ProtoSony | ProtoSanyo | ProtoMCEKbd | ProtoRCMM
)

var protocolNames = []struct {
	mask ProtocolMask
	name string
}{
	{ProtoUnknown, "unknown"},
	{ProtoOther, "other"},
	{ProtoLIRC, "lirc"},
	{ProtoRC5, "rc5"},
	{ProtoRC5X, "rc5x"},
	{ProtoRC6, "rc6"},
	{ProtoNEC, "nec"},
	{ProtoJVC, "jvc"},
	{ProtoSony, "sony"},
	{ProtoSanyo, "sanyo"},
	{ProtoMCEKbd, "mce_kbd"},
	{ProtoRCMM, "rc-mm"},
}

// ParseProtocols converts protocol names into a mask.
// "all" selects every protocol.
func ParseProtocols(names []string) (ProtocolMask, error) {
	var m ProtocolMask

	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "all" {
			m |= ProtoAll
			continue
		}

		found := false
		for _, p := range protocolNames {
			if p.name == n {
				m |= p.mask
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: %q", ErrUnknownProtocol, n)
		}
	}

	return m, nil
}

// Names returns the protocol names of the mask.
func (m ProtocolMask) Names() []string {
	names := []string{}
	for _, p := range protocolNames {
		if m&p.mask != 0 {
			names = append(names, p.name)
		}
	}
	return names
}
