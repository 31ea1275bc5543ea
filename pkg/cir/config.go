package cir

import (
	"fmt"
	"math"
	"time"
)

// RC5 has a minimum pulse width of ~889us, a sample period of 8us resolves it.
// JVC has a minimum packet period of ~30ms, so the receiver signals idle after 30ms.
const (
	DefaultClockRate = 8_000_000             // module clock (Hz)
	DefaultDivider   = 0                     // sample clock = clock / (64 << 0)
	DefaultFilter    = 1                     // pulse threshold = 8us
	DefaultIdle      = 29                    // idle threshold = (29+1)*128*8us ~ 30ms
	DefaultWatermark = FIFOSize / 2          // interrupt once half the FIFO is filled
	DefaultTimeout   = 30 * time.Millisecond // same as idle threshold
)

// MaxPeriod is the longest sample period whose FIFO entries still fit a
// uint32 duration in nanoseconds.
const MaxPeriod = math.MaxUint32 / SampleCountMask

// Config is the receiver configuration applied by Setup.
type Config struct {
	// ClockRate is the module clock frequency in Hz.
	ClockRate uint32
	// Divider selects the sample clock divider 64 << Divider (0..3).
	Divider uint32
	// Filter is the minimum pulse width in sample periods (0..63).
	Filter uint32
	// Idle is the idle threshold, the receiver signals a packet end after (Idle+1)*128 sample periods of silence.
	Idle uint32
	// Invert inverts the input signal (active low receivers).
	Invert bool
	// Watermark is the number of queued samples that raises the data available interrupt (1..16).
	Watermark uint32
	// Timeout is the space duration the raw event sink uses to complete a packet.
	Timeout time.Duration
	// PinGroup is the name of the receive pin group.
	PinGroup string
	// BusClock and ModuleClock are the names of the gate and the sample clock.
	BusClock    string
	ModuleClock string
}

// DefaultConfig returns the configuration for receiver ir0.
func DefaultConfig() Config {
	return Config{
		ClockRate:   DefaultClockRate,
		Divider:     DefaultDivider,
		Filter:      DefaultFilter,
		Idle:        DefaultIdle,
		Invert:      true,
		Watermark:   DefaultWatermark,
		Timeout:     DefaultTimeout,
		PinGroup:    "ir0_rx",
		BusClock:    "apb_ir0",
		ModuleClock: "ir0",
	}
}

// Timing returns the sample timing of the configuration.
func (c Config) Timing() Timing {
	return NewTiming(c.ClockRate, c.Divider)
}

// IdleDuration returns the silence after which the receiver signals a packet end.
func (c Config) IdleDuration() time.Duration {
	return time.Duration(uint64(c.Idle+1) * 128 * uint64(c.Timing().Period))
}

// Validate checks the field ranges and the resulting sample period.
func (c Config) Validate() error {
	switch {
	case c.Divider > SampleDivMask:
		return fmt.Errorf("%w: divider selector %d out of range 0..3", ErrInvalidConfig, c.Divider)
	case c.Filter > SampleFilterMask:
		return fmt.Errorf("%w: filter threshold %d out of range 0..63", ErrInvalidConfig, c.Filter)
	case c.Idle > SampleIdleMask:
		return fmt.Errorf("%w: idle threshold %d out of range 0..255", ErrInvalidConfig, c.Idle)
	case c.Watermark < 1 || c.Watermark > FIFOSize:
		return fmt.Errorf("%w: watermark %d out of range 1..%d", ErrInvalidConfig, c.Watermark, FIFOSize)
	case c.PinGroup == "" || c.BusClock == "" || c.ModuleClock == "":
		return fmt.Errorf("%w: pin group and clock names are required", ErrInvalidConfig)
	}

	t := c.Timing()
	if t.Period == 0 {
		return fmt.Errorf("%w: clock rate %d Hz gives no usable sample period", ErrInvalidConfig, c.ClockRate)
	}
	if t.Period > MaxPeriod {
		return fmt.Errorf("%w: sample period %d ns of clock rate %d Hz exceeds %d ns", ErrInvalidConfig, t.Period, c.ClockRate, MaxPeriod)
	}

	return nil
}
