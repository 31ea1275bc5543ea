//go:build linux

package raspberry

import (
	"fmt"

	"sunxicir/pkg/port"

	"github.com/warthog618/gpio"
	"github.com/warthog618/gpiod"
	"github.com/womat/debug"
)

// Chip represents a single GPIO chip that controls a set of lines.
type Chip struct {
	gpiodChip *gpiod.Chip
}

// Line represents a single requested line.
type Line struct {
	gpiodLine *gpiod.Line
}

// Open opens a GPIO character device, e.g. gpiochip0.
func Open(name string) (*Chip, error) {
	c, err := gpiod.NewChip(name)
	if err != nil {
		return nil, err
	}
	return &Chip{gpiodChip: c}, nil
}

// NewLine requests control of a single input line.
//
//	If granted, control is maintained until the Line is closed.
//	Every edge of the line is passed to handler, in order, without debouncing.
//	There can only be one watcher on the line at a time.
func (c *Chip) NewLine(cfg LineConfig, handler port.Handler) (*Line, error) {
	if !validBias(cfg.Bias) {
		return nil, fmt.Errorf("%w: bias %q", ErrInvalidParam, cfg.Bias)
	}

	eh := func(evt gpiod.LineEvent) {
		switch evt.Type {
		case gpiod.LineEventRisingEdge:
			handler(port.Event{Type: port.RisingEdge, Timestamp: evt.Timestamp})
		case gpiod.LineEventFallingEdge:
			handler(port.Event{Type: port.FallingEdge, Timestamp: evt.Timestamp})
		default:
			debug.ErrorLog.Printf("invalid line event: %v", evt.Type)
		}
	}

	opts := []gpiod.LineReqOption{
		gpiod.WithConsumer(cfg.Consumer),
		gpiod.WithEventHandler(eh),
		gpiod.WithBothEdges,
		gpiod.AsInput,
	}

	if cfg.GPIOMem {
		if err := setPull(cfg.Offset, cfg.Bias); err != nil {
			return nil, fmt.Errorf("set bias of gpio %d: %w", cfg.Offset, err)
		}
	} else {
		switch cfg.Bias {
		case BiasPullUp:
			opts = append(opts, gpiod.WithPullUp)
		case BiasPullDown:
			opts = append(opts, gpiod.WithPullDown)
		}
	}

	l, err := c.gpiodChip.RequestLine(cfg.Offset, opts...)
	if err != nil {
		return nil, err
	}
	return &Line{gpiodLine: l}, nil
}

// setPull sets the pull resistor through the gpio memory of a Raspberry Pi.
func setPull(offset int, bias string) error {
	if err := gpio.Open(); err != nil {
		return err
	}
	defer func() { _ = gpio.Close() }()

	pin := gpio.NewPin(offset)
	pin.Input()

	switch bias {
	case BiasPullUp:
		pin.PullUp()
	case BiasPullDown:
		pin.PullDown()
	default:
		pin.PullNone()
	}
	return nil
}

// Close releases the Chip.
//
// It does not release any lines which may be requested - they must be closed
// independently.
func (c *Chip) Close() error {
	return c.gpiodChip.Close()
}

// Value returns the current level of the line.
func (l *Line) Value() (bool, error) {
	v, err := l.gpiodLine.Value()
	return v == 1, err
}

// Close releases all resources held by the requested line.
//
// Note that this includes waiting for any running event handler to return.
// As a consequence the Close must not be called from the context of the event
// handler - the Close should be called from a different goroutine.
func (l *Line) Close() error {
	return l.gpiodLine.Close()
}
