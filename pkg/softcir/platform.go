package softcir

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"sunxicir/pkg/cir"
	"sunxicir/pkg/port"
	"sunxicir/pkg/raspberry"

	"github.com/womat/debug"
)

var (
	ErrBusy     = errors.New("resource busy")
	ErrZeroRate = errors.New("clock rate must be greater than zero")
)

// Config describes the GPIO input line of the receiver.
type Config struct {
	// Chip is the GPIO character device, e.g. gpiochip0.
	Chip string
	// Line is the offset of the line on the chip.
	Line int
	// Bias is the pull resistor of the line (none, pullup or pulldown).
	Bias string
	// GPIOMem sets the bias through /dev/gpiomem.
	GPIOMem bool
}

// inputLine is a requested GPIO input line.
type inputLine interface {
	Value() (bool, error)
	Close() error
}

type openFunc func(cfg Config, handler port.Handler) (inputLine, error)

// Platform is a cir.Platform that receives through a GPIO line.
// Any pin group name routes the configured line to the receiver.
type Platform struct {
	cfg  Config
	bank *Bank
	open openFunc

	l       sync.Mutex
	claimed map[string]bool
}

// New returns the platform of the GPIO line described by cfg.
func New(cfg Config) *Platform {
	return &Platform{
		cfg:     cfg,
		bank:    NewBank(),
		open:    openGPIO,
		claimed: map[string]bool{},
	}
}

// Bank returns the register bank of the receiver.
func (p *Platform) Bank() *Bank {
	return p.bank
}

func openGPIO(cfg Config, handler port.Handler) (inputLine, error) {
	c, err := raspberry.Open(cfg.Chip)
	if err != nil {
		return nil, err
	}

	l, err := c.NewLine(raspberry.LineConfig{
		Offset:   cfg.Line,
		Bias:     cfg.Bias,
		GPIOMem:  cfg.GPIOMem,
		Consumer: cir.DriverName,
	}, handler)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return &gpioLine{Line: l, chip: c}, nil
}

// gpioLine keeps the chip open as long as the line is requested.
type gpioLine struct {
	*raspberry.Line
	chip *raspberry.Chip
}

func (l *gpioLine) Close() error {
	return errors.Join(l.Line.Close(), l.chip.Close())
}

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

// AcquirePinGroup requests the GPIO line and starts feeding its edges to the bank.
func (p *Platform) AcquirePinGroup(name string) (cir.PinGroup, error) {
	if err := p.claim("pins"); err != nil {
		return nil, err
	}

	in, err := p.open(p.cfg, p.bank.Edge)
	if err != nil {
		p.unclaim("pins")
		return nil, fmt.Errorf("request %s line %d: %w", p.cfg.Chip, p.cfg.Line, err)
	}

	if v, err := in.Value(); err == nil {
		p.bank.SetLevel(v)
	} else {
		debug.ErrorLog.Printf("read level of %s line %d: %v", p.cfg.Chip, p.cfg.Line, err)
	}

	debug.DebugLog.Printf("pin group %s on %s line %d", name, p.cfg.Chip, p.cfg.Line)
	return &pinGroup{p: p, in: in}, nil
}

type pinGroup struct {
	p    *Platform
	in   inputLine
	once sync.Once
}

func (g *pinGroup) Release() (err error) {
	g.once.Do(func() {
		err = g.in.Close()
		g.p.unclaim("pins")
	})
	return err
}

// AcquireClock returns a clock of the bank. Names starting with apb_ are bus
// gates, all other names are the sample clock.
func (p *Platform) AcquireClock(name string) (cir.Clock, error) {
	if err := p.claim("clk:" + name); err != nil {
		return nil, err
	}
	return &clock{p: p, name: name, bus: strings.HasPrefix(name, "apb_")}, nil
}

type clock struct {
	p    *Platform
	name string
	bus  bool
}

func (c *clock) SetRate(hz uint32) error {
	if c.bus {
		return nil
	}
	if hz == 0 {
		return ErrZeroRate
	}
	c.p.bank.setClock(hz)
	return nil
}

func (c *clock) Rate() uint32 {
	return c.p.bank.clock()
}

func (c *clock) Enable() error {
	c.p.bank.gate(c.bus, true)
	return nil
}

func (c *clock) Disable() error {
	c.p.bank.gate(c.bus, false)
	return nil
}

func (c *clock) Release() error {
	c.p.unclaim("clk:" + c.name)
	return nil
}

// MapRegisters returns the register bank.
func (p *Platform) MapRegisters() (cir.RegisterSpace, error) {
	return p.bank, nil
}

// RequestInterrupt returns a new interrupt line of the bank.
func (p *Platform) RequestInterrupt() (cir.InterruptLine, error) {
	return p.bank.Line(), nil
}
