// Package softcir is a CIR receiver built from a GPIO input line.
//
// Bank implements the register interface of the hardware receiver. It samples
// the edges of a demodulating IR receiver, measures every pulse and space in
// sample periods and queues them in a FIFO with the layout of the hardware
// receiver, so the unchanged cir driver runs on any board with a free GPIO.
package softcir

import (
	"errors"
	"sync"
	"time"

	"sunxicir/pkg/cir"
	"sunxicir/pkg/port"
)

var ErrClosed = errors.New("interrupt line closed")

type stopper interface {
	Stop() bool
}

// Bank is the register bank of the software receiver.
type Bank struct {
	l sync.Mutex

	// registers
	ctrl      uint32
	rxCfg     uint32
	intEn     uint32
	status    uint32
	sampleCfg uint32

	fifo [cir.FIFOSize]uint8
	head int
	n    int

	// clocks
	clockHz uint32
	busOn   bool
	modOn   bool

	// line state
	synced bool
	level  bool
	last   time.Duration
	// idle is set once a packet end was signalled, until the next run is queued.
	idle bool
	// gen counts edges, a pending idle timer only fires for the edge it was armed for.
	gen       uint64
	idleTimer stopper
	afterFunc func(time.Duration, func()) stopper

	irq chan struct{}
}

// NewBank returns a bank in reset state.
func NewBank() *Bank {
	return &Bank{
		idle: true,
		irq:  make(chan struct{}, 1),
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}

// Read32 reads a register. Reading the data register pops the oldest FIFO entry.
func (b *Bank) Read32(off uint32) uint32 {
	b.l.Lock()
	defer b.l.Unlock()

	switch off {
	case cir.RegCtrl:
		return b.ctrl
	case cir.RegRxCfg:
		return b.rxCfg
	case cir.RegRxData:
		return uint32(b.pop())
	case cir.RegRxIntEn:
		return b.intEn
	case cir.RegRxIntStat:
		return b.pending() | uint32(b.n)<<cir.IntCountShift
	case cir.RegSampleCfg:
		return b.sampleCfg
	}
	return 0
}

// Write32 writes a register. Latched status bits are cleared by writing 1.
func (b *Bank) Write32(off uint32, v uint32) {
	b.l.Lock()
	defer b.l.Unlock()

	switch off {
	case cir.RegCtrl:
		b.ctrl = v
		if !b.receiving() {
			b.flush()
		}
	case cir.RegRxCfg:
		b.rxCfg = v
	case cir.RegRxIntEn:
		b.intEn = v
	case cir.RegRxIntStat:
		b.status &^= v & (cir.IntOverflow | cir.IntPacketEnd)
	case cir.RegSampleCfg:
		b.sampleCfg = v
	default:
		return
	}

	b.raise()
}

// Unmap is a no-op, the bank lives as long as the platform.
func (b *Bank) Unmap() error {
	return nil
}

// SetLevel sets the line level without generating samples.
// Timing starts with the next edge.
func (b *Bank) SetLevel(level bool) {
	b.l.Lock()
	defer b.l.Unlock()

	b.level = level
	b.synced = false
}

// Edge feeds one edge of the input line.
// The run that ends with the edge is queued as samples of the previous level.
func (b *Bank) Edge(e port.Event) {
	b.l.Lock()
	defer b.l.Unlock()

	level := e.Level()
	if !b.receiving() || !b.synced {
		b.level = level
		b.last = e.Timestamp
		b.synced = true
		return
	}

	if level == b.level {
		// a missed edge, the run continues
		return
	}

	b.gen++
	if b.idleTimer != nil {
		b.idleTimer.Stop()
		b.idleTimer = nil
	}

	period := b.period()
	pulse := b.pulse(b.level)
	count := uint64(e.Timestamp-b.last) / uint64(period)

	switch {
	case !pulse && count >= b.idleSamples():
		// silence longer than the idle threshold separates packets
		if !b.idle {
			b.packetEnd()
		}
	case count < uint64(b.filter()):
		// shorter than the filter threshold
	default:
		b.queueRun(pulse, count)
	}

	b.level = level
	b.last = e.Timestamp

	if !b.pulse(level) && !b.idle {
		gen := b.gen
		b.idleTimer = b.afterFunc(b.idleDuration(), func() { b.expireIdle(gen) })
	}

	b.raise()
}

// expireIdle signals the packet end once the line stayed idle since edge gen.
func (b *Bank) expireIdle(gen uint64) {
	b.l.Lock()
	defer b.l.Unlock()

	if gen != b.gen || b.idle || !b.receiving() {
		return
	}

	b.idleTimer = nil
	b.packetEnd()
	b.raise()
}

// queueRun splits a run into FIFO entries of at most 127 sample periods.
func (b *Bank) queueRun(pulse bool, count uint64) {
	for count > 0 {
		c := count
		if c > cir.SampleCountMask {
			c = cir.SampleCountMask
		}
		count -= c

		v := uint8(c)
		if pulse {
			v |= cir.SamplePulse
		}
		b.push(v)
	}
	b.idle = false
}

func (b *Bank) push(v uint8) {
	if b.n == cir.FIFOSize {
		b.status |= cir.IntOverflow
		return
	}

	b.fifo[(b.head+b.n)%cir.FIFOSize] = v
	b.n++
}

func (b *Bank) pop() uint8 {
	if b.n == 0 {
		return 0
	}

	v := b.fifo[b.head]
	b.head = (b.head + 1) % cir.FIFOSize
	b.n--
	return v
}

func (b *Bank) flush() {
	b.head, b.n = 0, 0
	b.synced = false
	b.idle = true
	b.gen++
	if b.idleTimer != nil {
		b.idleTimer.Stop()
		b.idleTimer = nil
	}
}

func (b *Bank) packetEnd() {
	b.status |= cir.IntPacketEnd
	b.idle = true
}

// pending returns the condition bits of the status register.
// Overflow and packet end are latched, data available follows the FIFO level.
func (b *Bank) pending() uint32 {
	v := b.status & (cir.IntOverflow | cir.IntPacketEnd)
	level := int((b.intEn>>cir.IntLevelShift)&cir.IntLevelMask) + 1
	if b.n > 0 && b.n >= level {
		v |= cir.IntDataAvail
	}
	return v
}

// raise signals the interrupt line if an enabled condition is pending.
func (b *Bank) raise() {
	if b.pending()&b.intEn == 0 {
		return
	}

	select {
	case b.irq <- struct{}{}:
	default:
	}
}

func (b *Bank) receiving() bool {
	const enabled = cir.CtrlGlobalEnable | cir.CtrlRxEnable
	return b.ctrl&enabled == enabled &&
		b.ctrl&cir.CtrlModeMask == cir.CtrlModeCIR &&
		b.busOn && b.modOn &&
		b.period() > 0
}

// pulse reports whether the line level is a mark.
// Demodulating receivers pull the line low while a carrier is present.
func (b *Bank) pulse(level bool) bool {
	return level != (b.rxCfg&cir.RxCfgInvert != 0)
}

func (b *Bank) period() uint32 {
	return cir.NewTiming(b.clockHz, b.sampleCfg&cir.SampleDivMask).Period
}

func (b *Bank) filter() uint32 {
	return (b.sampleCfg >> cir.SampleFilterShift) & cir.SampleFilterMask
}

func (b *Bank) idleSamples() uint64 {
	return uint64((b.sampleCfg>>cir.SampleIdleShift)&cir.SampleIdleMask+1) * 128
}

func (b *Bank) idleDuration() time.Duration {
	return time.Duration(b.idleSamples() * uint64(b.period()))
}

func (b *Bank) setClock(hz uint32) {
	b.l.Lock()
	defer b.l.Unlock()
	b.clockHz = hz
}

func (b *Bank) clock() uint32 {
	b.l.Lock()
	defer b.l.Unlock()
	return b.clockHz
}

func (b *Bank) gate(bus bool, on bool) {
	b.l.Lock()
	defer b.l.Unlock()

	if bus {
		b.busOn = on
	} else {
		b.modOn = on
	}
	if !b.receiving() {
		b.flush()
	}
}

// line is the interrupt line of the bank.
type line struct {
	b      *Bank
	closed chan struct{}
	once   sync.Once
}

// Line returns a new interrupt line of the bank.
func (b *Bank) Line() cir.InterruptLine {
	return &line{b: b, closed: make(chan struct{})}
}

func (l *line) Wait() error {
	select {
	case <-l.b.irq:
		return nil
	case <-l.closed:
		return ErrClosed
	}
}

// Ack re-signals conditions that are still pending, the line is level triggered.
func (l *line) Ack() error {
	l.b.l.Lock()
	defer l.b.l.Unlock()
	l.b.raise()
	return nil
}

func (l *line) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}
