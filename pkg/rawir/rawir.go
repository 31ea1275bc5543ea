package rawir

import (
	"errors"
	"math"
	"sync"
	"time"
)

var (
	ErrUnknownProtocol   = errors.New("unknown protocol")
	ErrNotAllowed        = errors.New("protocol not allowed by receiver")
	ErrNotRegistered     = errors.New("no receiver registered")
	ErrAlreadyRegistered = errors.New("receiver already registered")
	ErrClosed            = errors.New("handler closed")
)

const (
	// maxPacketEvents bounds a single packet. A longer sequence is noise and is discarded.
	maxPacketEvents = 512
	// packetQueue is the capacity of channel C.
	packetQueue = 16
)

// ProtocolChanger is implemented by receivers that want to know when the
// protocol selection changes, e.g. to retune their filter thresholds.
type ProtocolChanger interface {
	ChangeProtocol(ProtocolMask) error
}

// Capabilities describes the receiver registered with the handler.
type Capabilities struct {
	// DriverName identifies the receiver driver.
	DriverName string
	// AllowedProtocols is the set of protocols the receiver can serve.
	AllowedProtocols ProtocolMask
	// Resolution is the sample period of the receiver in nanoseconds.
	Resolution uint32
	// Timeout is the space duration after which a packet is considered complete.
	// Zero disables the timeout, packets then end on NotifyIdle only.
	Timeout time.Duration
	// Changer is notified on protocol changes. It may be nil.
	Changer ProtocolChanger
}

// Stats holds the counters of the handler.
type Stats struct {
	Events    uint64 `json:"events"`
	Packets   uint64 `json:"packets"`
	Resets    uint64 `json:"resets"`
	Timeouts  uint64 `json:"timeouts"`
	Dropped   uint64 `json:"dropped"`
	Truncated uint64 `json:"truncated"`
}

// Handler collects raw events of one receiver into packets.
// All event methods are short and never block, they are called from the
// interrupt path of the receiver.
type Handler struct {
	// C receives every completed packet.
	// If the reader is too slow, packets are dropped and counted.
	C chan Packet

	// l protects all fields below.
	l sync.Mutex
	// caps is the registered receiver.
	caps       Capabilities
	registered bool
	closed     bool
	// enabled is the current protocol selection.
	enabled ProtocolMask
	// idle is true between packets. Spaces received while idle are ignored.
	idle bool
	// packet is the packet under construction.
	packet []Event
	// space is the accumulated trailing space of packet in nanoseconds.
	space uint64
	stats Stats
	last  Packet
	now   func() time.Time
}

// New initials a new raw event handler.
func New() *Handler {
	return &Handler{
		C:      make(chan Packet, packetQueue),
		idle:   true,
		packet: make([]Event, 0, 64),
		now:    time.Now,
	}
}

// Register binds a receiver to the handler. All protocols allowed by the
// receiver are enabled.
func (h *Handler) Register(c Capabilities) error {
	h.l.Lock()
	defer h.l.Unlock()

	if h.closed {
		return ErrClosed
	}
	if h.registered {
		return ErrAlreadyRegistered
	}

	h.caps = c
	h.enabled = c.AllowedProtocols
	h.registered = true
	h.discard()
	return nil
}

// Unregister unbinds the receiver. Events received afterwards are ignored.
func (h *Handler) Unregister() {
	h.l.Lock()
	defer h.l.Unlock()

	h.registered = false
	h.caps = Capabilities{}
	h.enabled = 0
	h.discard()
}

// Capabilities returns the registered receiver.
func (h *Handler) Capabilities() (Capabilities, bool) {
	h.l.Lock()
	defer h.l.Unlock()
	return h.caps, h.registered
}

// AcceptEvent stores one event. Consecutive events of the same polarity are merged,
// spaces received while idle are dropped.
func (h *Handler) AcceptEvent(e Event) {
	h.l.Lock()
	defer h.l.Unlock()

	if !h.registered || h.closed {
		return
	}

	h.stats.Events++
	if e.Duration == 0 {
		return
	}

	if h.idle {
		if !e.Pulse {
			return
		}
		h.idle = false
	}

	if n := len(h.packet); n > 0 && h.packet[n-1].Pulse == e.Pulse {
		h.packet[n-1].Duration = addSaturated(h.packet[n-1].Duration, e.Duration)
	} else {
		if n == maxPacketEvents {
			// packets start with a pulse and alternate, so e is a pulse and starts the next packet
			h.stats.Truncated++
			h.discard()
			h.idle = false
		}
		h.packet = append(h.packet, e)
	}

	if e.Pulse {
		h.space = 0
		return
	}

	h.space += uint64(e.Duration)
	if h.caps.Timeout > 0 && time.Duration(h.space) >= h.caps.Timeout {
		h.stats.Timeouts++
		h.finish()
	}
}

// NotifyIdle marks the end of a packet. The packet is delivered on C.
func (h *Handler) NotifyIdle() {
	h.l.Lock()
	defer h.l.Unlock()

	if !h.registered || h.closed {
		return
	}
	h.finish()
}

// ResetPacket discards the packet under construction.
func (h *Handler) ResetPacket() {
	h.l.Lock()
	defer h.l.Unlock()

	if !h.registered || h.closed {
		return
	}

	h.stats.Resets++
	h.discard()
}

// SetProtocols changes the protocol selection. The receiver is notified if it
// registered a ProtocolChanger.
func (h *Handler) SetProtocols(m ProtocolMask) error {
	h.l.Lock()
	if !h.registered {
		h.l.Unlock()
		return ErrNotRegistered
	}
	if m&^h.caps.AllowedProtocols != 0 {
		h.l.Unlock()
		return ErrNotAllowed
	}
	changer := h.caps.Changer
	h.l.Unlock()

	// the changer may take the receiver lock, which is held while the receiver calls into h
	if changer != nil {
		if err := changer.ChangeProtocol(m); err != nil {
			return err
		}
	}

	h.l.Lock()
	h.enabled = m
	h.l.Unlock()
	return nil
}

// Protocols returns the enabled and the allowed protocols.
func (h *Handler) Protocols() (enabled, allowed ProtocolMask) {
	h.l.Lock()
	defer h.l.Unlock()
	return h.enabled, h.caps.AllowedProtocols
}

// Stats returns a copy of the counters.
func (h *Handler) Stats() Stats {
	h.l.Lock()
	defer h.l.Unlock()
	return h.stats
}

// LastPacket returns the most recently completed packet.
func (h *Handler) LastPacket() Packet {
	h.l.Lock()
	defer h.l.Unlock()
	return h.last
}

// Close stops the handler and closes channel C.
func (h *Handler) Close() error {
	h.l.Lock()
	defer h.l.Unlock()

	if h.closed {
		return nil
	}

	h.closed = true
	h.registered = false
	h.discard()
	close(h.C)
	return nil
}

// finish completes the packet under construction and hands it to C.
// The trailing space is the inter-packet gap and is not part of the packet.
func (h *Handler) finish() {
	n := len(h.packet)
	if n > 0 && !h.packet[n-1].Pulse {
		n--
	}

	if n > 0 {
		p := Packet{Time: h.now(), Events: make([]Event, n)}
		copy(p.Events, h.packet[:n])
		h.last = p
		h.stats.Packets++

		select {
		case h.C <- p:
		default:
			h.stats.Dropped++
		}
	}

	h.discard()
}

// discard drops the packet under construction and waits for the next pulse.
func (h *Handler) discard() {
	h.packet = h.packet[:0]
	h.space = 0
	h.idle = true
}

func addSaturated(a, b uint32) uint32 {
	if a > math.MaxUint32-b {
		return math.MaxUint32
	}
	return a + b
}
