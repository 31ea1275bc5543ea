package sunxi

import (
	"fmt"

	"sunxicir/pkg/cir"
	"sunxicir/pkg/mmio"
)

// CCU registers.
const (
	ccuAPB0Gating = 0x68
	ccuIR0Clock   = 0xb0
	ccuIR1Clock   = 0xb4

	apb0GateIR0 = 1 << 6
	apb0GateIR1 = 1 << 7

	// bits of the IR module clock registers
	modGate       = 1 << 31
	modSrcShift   = 24
	modSrcMask    = 0x3 << modSrcShift
	modSrcOSC24M  = 0
	modDivNShift  = 16
	modDivNMask   = 0x3 << modDivNShift
	modDivMMask   = 0xf
	modConfigMask = modSrcMask | modDivNMask | modDivMMask
)

type clockDef struct {
	// reg is the register offset in the CCU.
	reg uint32
	// gate is the gate bit of a bus clock, zero for a module clock.
	gate uint32
}

var clocks = map[string]clockDef{
	"apb_ir0": {reg: ccuAPB0Gating, gate: apb0GateIR0},
	"apb_ir1": {reg: ccuAPB0Gating, gate: apb0GateIR1},
	"ir0":     {reg: ccuIR0Clock},
	"ir1":     {reg: ccuIR1Clock},
}

// clock is an acquired bus gate or IR module clock.
type clock struct {
	p    *Platform
	name string
	def  clockDef
	ccu  *mmio.Region
}

// AcquireClock gets the named clock. A clock can be acquired once.
func (p *Platform) AcquireClock(name string) (cir.Clock, error) {
	def, ok := clocks[name]
	if !ok {
		return nil, fmt.Errorf("%w: clock %s", ErrUnknownResource, name)
	}

	if err := p.claim("clock " + name); err != nil {
		return nil, err
	}

	return &clock{p: p, name: name, def: def, ccu: p.ccu}, nil
}

// SetRate programs the module clock divider. The IR clocks run from OSC24M
// divided by N (1, 2, 4, 8) and M (1..16); only exact rates are accepted.
func (c *clock) SetRate(hz uint32) error {
	if c.def.gate != 0 {
		return fmt.Errorf("%w: %s", ErrFixedRate, c.name)
	}

	n, m, ok := divisors(hz)
	if !ok {
		return fmt.Errorf("%w: %s %d Hz", ErrUnsupportedRate, c.name, hz)
	}

	v := uint32(modSrcOSC24M)<<modSrcShift | n<<modDivNShift | m
	c.ccu.Modify32(c.def.reg, modConfigMask, v)
	return nil
}

// Rate returns the current clock rate, zero for bus gates and non OSC24M sources.
func (c *clock) Rate() uint32 {
	if c.def.gate != 0 {
		return 0
	}

	v := c.ccu.Read32(c.def.reg)
	if (v&modSrcMask)>>modSrcShift != modSrcOSC24M {
		return 0
	}

	n := (v & modDivNMask) >> modDivNShift
	m := v & modDivMMask
	return OSC24M / (1 << n) / (m + 1)
}

func (c *clock) Enable() error {
	c.ccu.Modify32(c.def.reg, c.gateBit(), c.gateBit())
	return nil
}

func (c *clock) Disable() error {
	c.ccu.Modify32(c.def.reg, c.gateBit(), 0)
	return nil
}

func (c *clock) Release() error {
	c.p.unclaim("clock " + c.name)
	return nil
}

func (c *clock) gateBit() uint32 {
	if c.def.gate != 0 {
		return c.def.gate
	}
	return modGate
}

// divisors finds the N and M register values for an exact rate.
func divisors(hz uint32) (n, m uint32, ok bool) {
	if hz == 0 {
		return 0, 0, false
	}

	for n = 0; n < 4; n++ {
		for m = 0; m < 16; m++ {
			div := uint32(1<<n) * (m + 1)
			if OSC24M%div == 0 && OSC24M/div == hz {
				return n, m, true
			}
		}
	}
	return 0, 0, false
}
