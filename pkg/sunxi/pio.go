package sunxi

import (
	"fmt"

	"sunxicir/pkg/cir"

	"github.com/womat/debug"
)

const (
	// pioPortSize is the register stride of one port.
	pioPortSize = 0x24
	// pioFuncMask is the width of a pin function field.
	pioFuncMask = 0x7
	// pioFuncDisabled is the reset function of a pin.
	pioFuncDisabled = 0x7

	portB = 1
)

type pinDef struct {
	port     uint32
	pin      uint32
	function uint32
}

var pinGroups = map[string][]pinDef{
	"ir0_rx": {{port: portB, pin: 4, function: 2}},
	"ir1_rx": {{port: portB, pin: 23, function: 2}},
}

// pinGroup is an acquired pin group, it remembers the previous pin functions.
type pinGroup struct {
	p    *Platform
	name string
	pins []pinDef
	prev []uint32
}

// AcquirePinGroup routes the pins of the group to the receiver.
func (p *Platform) AcquirePinGroup(name string) (cir.PinGroup, error) {
	pins, ok := pinGroups[name]
	if !ok {
		return nil, fmt.Errorf("%w: pin group %s", ErrUnknownResource, name)
	}

	if err := p.claim("pins " + name); err != nil {
		return nil, err
	}

	g := &pinGroup{p: p, name: name, pins: pins}
	for _, d := range pins {
		g.prev = append(g.prev, p.pinFunction(d))
		p.setPinFunction(d, d.function)
	}

	debug.DebugLog.Printf("pin group %s acquired", name)
	return g, nil
}

// Release restores the previous pin functions.
func (g *pinGroup) Release() error {
	for i, d := range g.pins {
		g.p.setPinFunction(d, g.prev[i])
	}
	g.p.unclaim("pins " + g.name)
	return nil
}

// cfgReg returns the config register offset and the field shift of a pin.
func cfgReg(d pinDef) (off, shift uint32) {
	return d.port*pioPortSize + (d.pin/8)*4, (d.pin % 8) * 4
}

func (p *Platform) pinFunction(d pinDef) uint32 {
	off, shift := cfgReg(d)
	return (p.pio.Read32(off) >> shift) & pioFuncMask
}

func (p *Platform) setPinFunction(d pinDef, f uint32) {
	off, shift := cfgReg(d)
	p.pio.Modify32(off, pioFuncMask<<shift, f<<shift)
}
