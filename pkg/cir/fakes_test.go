package cir

import (
	"errors"
	"fmt"
	"sync"

	"sunxicir/pkg/rawir"
)

var errFake = errors.New("fake failure")

// regOp is one register access.
type regOp struct {
	Write bool
	Off   uint32
	Val   uint32
}

// fakeRegs is a register window with a scripted status and FIFO.
type fakeRegs struct {
	vals     map[uint32]uint32
	status   uint32
	fifo     []uint8
	ops      []regOp
	unmapped bool
}

func newFakeRegs() *fakeRegs {
	return &fakeRegs{vals: map[uint32]uint32{}}
}

func (r *fakeRegs) Read32(off uint32) uint32 {
	var v uint32
	switch off {
	case RegRxData:
		if len(r.fifo) > 0 {
			v = uint32(r.fifo[0])
			r.fifo = r.fifo[1:]
		}
	case RegRxIntStat:
		v = r.status
	default:
		v = r.vals[off]
	}
	r.ops = append(r.ops, regOp{Off: off, Val: v})
	return v
}

func (r *fakeRegs) Write32(off uint32, v uint32) {
	r.ops = append(r.ops, regOp{Write: true, Off: off, Val: v})
	if off == RegRxIntStat {
		r.status &^= v & IntStatusMask
		return
	}
	r.vals[off] = v
}

func (r *fakeRegs) Unmap() error {
	r.unmapped = true
	return nil
}

func (r *fakeRegs) writes() []regOp {
	var w []regOp
	for _, op := range r.ops {
		if op.Write {
			w = append(w, op)
		}
	}
	return w
}

// fakePlatform records every resource operation in log.
type fakePlatform struct {
	log  []string
	regs *fakeRegs
	line *fakeLine

	failPins      bool
	failClock     string
	failRate      bool
	failEnable    string
	failMap       bool
	failInterrupt bool
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{regs: newFakeRegs(), line: newFakeLine()}
}

func (p *fakePlatform) AcquirePinGroup(name string) (PinGroup, error) {
	if p.failPins {
		return nil, errFake
	}
	p.log = append(p.log, "pins "+name)
	return &fakePins{p: p, name: name}, nil
}

func (p *fakePlatform) AcquireClock(name string) (Clock, error) {
	if p.failClock == name {
		return nil, errFake
	}
	p.log = append(p.log, "clock "+name)
	return &fakeClock{p: p, name: name}, nil
}

func (p *fakePlatform) MapRegisters() (RegisterSpace, error) {
	if p.failMap {
		return nil, errFake
	}
	p.log = append(p.log, "map")
	return p.regs, nil
}

func (p *fakePlatform) RequestInterrupt() (InterruptLine, error) {
	if p.failInterrupt {
		return nil, errFake
	}
	p.log = append(p.log, "irq")
	return p.line, nil
}

type fakePins struct {
	p    *fakePlatform
	name string
}

func (f *fakePins) Release() error {
	f.p.log = append(f.p.log, "release pins "+f.name)
	return nil
}

type fakeClock struct {
	p    *fakePlatform
	name string
	rate uint32
}

func (c *fakeClock) SetRate(hz uint32) error {
	if c.p.failRate {
		return errFake
	}
	c.rate = hz
	c.p.log = append(c.p.log, fmt.Sprintf("rate %s %d", c.name, hz))
	return nil
}

func (c *fakeClock) Rate() uint32 { return c.rate }

func (c *fakeClock) Enable() error {
	if c.p.failEnable == c.name {
		return errFake
	}
	c.p.log = append(c.p.log, "enable "+c.name)
	return nil
}

func (c *fakeClock) Disable() error {
	c.p.log = append(c.p.log, "disable "+c.name)
	return nil
}

func (c *fakeClock) Release() error {
	c.p.log = append(c.p.log, "release "+c.name)
	return nil
}

// fakeLine delivers an interrupt for every value sent on fire and reports
// every handled interrupt on acked.
type fakeLine struct {
	fire   chan struct{}
	acked  chan struct{}
	closed chan struct{}
	once   sync.Once
}

func newFakeLine() *fakeLine {
	return &fakeLine{
		fire:   make(chan struct{}),
		acked:  make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (l *fakeLine) Wait() error {
	select {
	case <-l.fire:
		return nil
	case <-l.closed:
		return errors.New("closed")
	}
}

func (l *fakeLine) Ack() error {
	select {
	case l.acked <- struct{}{}:
	case <-l.closed:
	}
	return nil
}

func (l *fakeLine) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

// sinkCall is one call of the device into the sink.
type sinkCall struct {
	Kind  string
	Event rawir.Event
}

type fakeSink struct {
	l            sync.Mutex
	caps         rawir.Capabilities
	registered   bool
	calls        []sinkCall
	failRegister bool
}

func (s *fakeSink) Register(c rawir.Capabilities) error {
	s.l.Lock()
	defer s.l.Unlock()
	if s.failRegister {
		return errFake
	}
	s.caps = c
	s.registered = true
	return nil
}

func (s *fakeSink) Unregister() {
	s.l.Lock()
	defer s.l.Unlock()
	s.registered = false
}

func (s *fakeSink) AcceptEvent(e rawir.Event) {
	s.l.Lock()
	defer s.l.Unlock()
	s.calls = append(s.calls, sinkCall{Kind: "event", Event: e})
}

func (s *fakeSink) NotifyIdle() {
	s.l.Lock()
	defer s.l.Unlock()
	s.calls = append(s.calls, sinkCall{Kind: "idle"})
}

func (s *fakeSink) ResetPacket() {
	s.l.Lock()
	defer s.l.Unlock()
	s.calls = append(s.calls, sinkCall{Kind: "reset"})
}

func (s *fakeSink) recorded() []sinkCall {
	s.l.Lock()
	defer s.l.Unlock()
	return append([]sinkCall(nil), s.calls...)
}

func event(pulse bool, ns uint32) sinkCall {
	return sinkCall{Kind: "event", Event: rawir.Event{Pulse: pulse, Duration: ns}}
}

var (
	idleCall  = sinkCall{Kind: "idle"}
	resetCall = sinkCall{Kind: "reset"}
)
