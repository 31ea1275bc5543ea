// Package sunxi provides the resources of the CIR receivers on Allwinner A10/A20 boards.
//
// Clock gates and dividers live in the clock control unit (CCU), the pin
// function select in the port controller (PIO). Both are accessed through
// /dev/mem. The receiver interrupt is delivered through a UIO device bound to
// the receiver by the device tree (generic-uio).
package sunxi

import (
	"errors"
	"fmt"
	"sync"

	"sunxicir/pkg/cir"
	"sunxicir/pkg/mmio"

	"github.com/womat/debug"
)

// Physical addresses of the A10 peripherals.
const (
	CCUBase = 0x01c20000
	PIOBase = 0x01c20800
	IR0Base = 0x01c21800
	IR1Base = 0x01c21c00

	ccuSize = 0x400
	pioSize = 0x400

	// OSC24M is the rate of the main oscillator, the source of the IR module clocks.
	OSC24M = 24_000_000
)

var (
	ErrInvalidReceiver = errors.New("invalid receiver")
	ErrUnknownResource = errors.New("unknown resource")
	ErrBusy            = errors.New("resource busy")
	ErrUnsupportedRate = errors.New("unsupported clock rate")
	ErrFixedRate       = errors.New("clock rate is fixed")
)

// Config selects the receiver and its interrupt device.
type Config struct {
	// Receiver is the index of the CIR receiver (0 or 1).
	Receiver int
	// UIO is the UIO device of the receiver interrupt, e.g. /dev/uio0.
	UIO string
}

type mapFunc func(base int64, size int) (*mmio.Region, error)

// Platform is the cir.Platform of an A10/A20 board.
type Platform struct {
	cfg     Config
	mapper  mapFunc
	openIRQ func(path string) (cir.InterruptLine, error)

	l       sync.Mutex
	ccu     *mmio.Region
	pio     *mmio.Region
	claimed map[string]bool
}

// Open maps the clock control unit and the port controller.
func Open(cfg Config) (*Platform, error) {
	return open(cfg, mmio.Map, openUIO)
}

func open(cfg Config, m mapFunc, openIRQ func(string) (cir.InterruptLine, error)) (*Platform, error) {
	if cfg.Receiver != 0 && cfg.Receiver != 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidReceiver, cfg.Receiver)
	}

	p := &Platform{
		cfg:     cfg,
		mapper:  m,
		openIRQ: openIRQ,
		claimed: map[string]bool{},
	}

	var err error
	if p.ccu, err = m(CCUBase, ccuSize); err != nil {
		return nil, fmt.Errorf("map ccu: %w", err)
	}

	if p.pio, err = m(PIOBase, pioSize); err != nil {
		_ = p.ccu.Unmap()
		return nil, fmt.Errorf("map pio: %w", err)
	}

	return p, nil
}

// Close unmaps the clock control unit and the port controller.
func (p *Platform) Close() error {
	p.l.Lock()
	defer p.l.Unlock()

	err1 := p.ccu.Unmap()
	err2 := p.pio.Unmap()
	return errors.Join(err1, err2)
}

// MapRegisters maps the register window of the selected receiver.
func (p *Platform) MapRegisters() (cir.RegisterSpace, error) {
	base := int64(IR0Base)
	if p.cfg.Receiver == 1 {
		base = IR1Base
	}

	r, err := p.mapper(base, cir.RegisterSpaceSize)
	if err != nil {
		return nil, err
	}

	debug.DebugLog.Printf("mapped receiver %d registers at 0x%08x", p.cfg.Receiver, base)
	return r, nil
}

// RequestInterrupt opens the UIO device of the receiver.
func (p *Platform) RequestInterrupt() (cir.InterruptLine, error) {
	if p.cfg.UIO == "" {
		return nil, fmt.Errorf("%w: no uio device configured", ErrUnknownResource)
	}
	return p.openIRQ(p.cfg.UIO)
}

// claim marks a resource as used.
func (p *Platform) claim(name string) error {
	p.l.Lock()
	defer p.l.Unlock()

	if p.claimed[name] {
		return fmt.Errorf("%w: %s", ErrBusy, name)
	}
	p.claimed[name] = true
	return nil
}

func (p *Platform) unclaim(name string) {
	p.l.Lock()
	defer p.l.Unlock()
	delete(p.claimed, name)
}
