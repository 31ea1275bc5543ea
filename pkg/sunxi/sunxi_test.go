package sunxi

import (
	"errors"
	"io"
	"net"
	"testing"

	"sunxicir/pkg/cir"
	"sunxicir/pkg/mmio"
	"sunxicir/pkg/rawir"

	qt "github.com/frankban/quicktest"
)

// simulated holds the memory behind the mapped peripherals.
type simulated struct {
	ccu, pio, ir []uint32
	line         *fakeLine
}

func (s *simulated) mapper(base int64, size int) (*mmio.Region, error) {
	switch base {
	case CCUBase:
		return mmio.FromWords(s.ccu), nil
	case PIOBase:
		return mmio.FromWords(s.pio), nil
	case IR0Base, IR1Base:
		return mmio.FromWords(s.ir), nil
	}
	return nil, errors.New("no such peripheral")
}

func (s *simulated) openIRQ(string) (cir.InterruptLine, error) {
	return s.line, nil
}

type fakeLine struct{ closed chan struct{} }

func (l *fakeLine) Wait() error  { <-l.closed; return io.EOF }
func (l *fakeLine) Ack() error   { return nil }
func (l *fakeLine) Close() error { close(l.closed); return nil }

func newSimulated(c *qt.C, cfg Config) (*Platform, *simulated) {
	s := &simulated{
		ccu:  make([]uint32, ccuSize/4),
		pio:  make([]uint32, pioSize/4),
		ir:   make([]uint32, cir.RegisterSpaceSize/4),
		line: &fakeLine{closed: make(chan struct{})},
	}
	// reset value of the port B config registers: every pin disabled
	for i := 0; i < 4; i++ {
		s.pio[(pioPortSize+i*4)/4] = 0x77777777
	}

	p, err := open(cfg, s.mapper, s.openIRQ)
	c.Assert(err, qt.IsNil)
	return p, s
}

func TestOpenInvalidReceiver(t *testing.T) {
	c := qt.New(t)
	s := &simulated{}
	_, err := open(Config{Receiver: 2}, s.mapper, s.openIRQ)
	c.Assert(err, qt.ErrorIs, ErrInvalidReceiver)
}

func TestModuleClock(t *testing.T) {
	c := qt.New(t)
	p, s := newSimulated(c, Config{})

	clk, err := p.AcquireClock("ir0")
	c.Assert(err, qt.IsNil)

	_, err = p.AcquireClock("ir0")
	c.Assert(err, qt.ErrorIs, ErrBusy)

	c.Assert(clk.SetRate(8_000_000), qt.IsNil)
	c.Assert(s.ccu[ccuIR0Clock/4], qt.Equals, uint32(2)) // N=1, M=3
	c.Assert(clk.Rate(), qt.Equals, uint32(8_000_000))

	c.Assert(clk.SetRate(3_000_000), qt.IsNil)
	c.Assert(clk.Rate(), qt.Equals, uint32(3_000_000))

	c.Assert(clk.SetRate(7_000_000), qt.ErrorIs, ErrUnsupportedRate)
	c.Assert(clk.Rate(), qt.Equals, uint32(3_000_000))

	c.Assert(clk.Enable(), qt.IsNil)
	c.Assert(s.ccu[ccuIR0Clock/4]&modGate, qt.Not(qt.Equals), uint32(0))
	c.Assert(clk.Disable(), qt.IsNil)
	c.Assert(s.ccu[ccuIR0Clock/4]&modGate, qt.Equals, uint32(0))

	c.Assert(clk.Release(), qt.IsNil)
	_, err = p.AcquireClock("ir0")
	c.Assert(err, qt.IsNil)

	_, err = p.AcquireClock("pll6")
	c.Assert(err, qt.ErrorIs, ErrUnknownResource)
}

func TestBusClock(t *testing.T) {
	c := qt.New(t)
	p, s := newSimulated(c, Config{})
	s.ccu[ccuAPB0Gating/4] = 0x1

	clk, err := p.AcquireClock("apb_ir1")
	c.Assert(err, qt.IsNil)
	c.Assert(clk.SetRate(8_000_000), qt.ErrorIs, ErrFixedRate)

	c.Assert(clk.Enable(), qt.IsNil)
	c.Assert(s.ccu[ccuAPB0Gating/4], qt.Equals, uint32(0x81))
	c.Assert(clk.Disable(), qt.IsNil)
	c.Assert(s.ccu[ccuAPB0Gating/4], qt.Equals, uint32(0x1))
}

func TestPinGroup(t *testing.T) {
	c := qt.New(t)
	p, s := newSimulated(c, Config{})

	g, err := p.AcquirePinGroup("ir0_rx")
	c.Assert(err, qt.IsNil)
	// PB4 is field 4 of the first port B config register
	c.Assert(s.pio[pioPortSize/4], qt.Equals, uint32(0x77727777))

	_, err = p.AcquirePinGroup("ir0_rx")
	c.Assert(err, qt.ErrorIs, ErrBusy)

	g1, err := p.AcquirePinGroup("ir1_rx")
	c.Assert(err, qt.IsNil)
	// PB23 is field 7 of the third port B config register
	c.Assert(s.pio[(pioPortSize+8)/4], qt.Equals, uint32(0x27777777))

	c.Assert(g.Release(), qt.IsNil)
	c.Assert(g1.Release(), qt.IsNil)
	c.Assert(s.pio[pioPortSize/4], qt.Equals, uint32(0x77777777))
	c.Assert(s.pio[(pioPortSize+8)/4], qt.Equals, uint32(0x77777777))

	_, err = p.AcquirePinGroup("spi0")
	c.Assert(err, qt.ErrorIs, ErrUnknownResource)
}

func TestRequestInterruptWithoutUIO(t *testing.T) {
	c := qt.New(t)
	p, _ := newSimulated(c, Config{})

	_, err := p.RequestInterrupt()
	c.Assert(err, qt.ErrorIs, ErrUnknownResource)
}

func TestDeviceOnSimulatedBoard(t *testing.T) {
	c := qt.New(t)
	p, s := newSimulated(c, Config{Receiver: 0, UIO: "/dev/uio0"})
	defer p.Close()

	h := rawir.New()
	d := cir.New(cir.DefaultConfig(), p, h)
	c.Assert(d.Attach(), qt.IsNil)

	c.Assert(s.ccu[ccuAPB0Gating/4], qt.Equals, uint32(apb0GateIR0))
	c.Assert(s.ccu[ccuIR0Clock/4], qt.Equals, uint32(modGate|2))
	c.Assert(s.pio[pioPortSize/4], qt.Equals, uint32(0x77727777))
	c.Assert(s.ir[cir.RegCtrl/4], qt.Equals, uint32(0x33))
	c.Assert(s.ir[cir.RegSampleCfg/4], qt.Equals, uint32(0x1d04))
	c.Assert(s.ir[cir.RegRxIntEn/4], qt.Equals, uint32(0x713))

	c.Assert(d.Detach(), qt.IsNil)
	c.Assert(s.ccu[ccuAPB0Gating/4], qt.Equals, uint32(0))
	c.Assert(s.ccu[ccuIR0Clock/4]&modGate, qt.Equals, uint32(0))
	c.Assert(s.pio[pioPortSize/4], qt.Equals, uint32(0x77777777))
	c.Assert(s.ir[cir.RegCtrl/4], qt.Equals, uint32(0))
}

func TestUIOLine(t *testing.T) {
	c := qt.New(t)
	kernel, user := net.Pipe()
	l := newUIOLine(user)

	go func() {
		// interrupt count 1
		_, _ = kernel.Write([]byte{1, 0, 0, 0})
	}()
	c.Assert(l.Wait(), qt.IsNil)

	acked := make(chan []byte)
	go func() {
		b := make([]byte, 4)
		_, _ = io.ReadFull(kernel, b)
		acked <- b
	}()
	c.Assert(l.Ack(), qt.IsNil)
	c.Assert(<-acked, qt.DeepEquals, []byte{1, 0, 0, 0})

	done := make(chan error)
	go func() { done <- l.Wait() }()
	c.Assert(l.Close(), qt.IsNil)
	c.Assert(<-done, qt.Not(qt.IsNil))
}
