package cir

import (
	"fmt"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestSamplePeriod(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		clock  uint32
		divSel uint32
		rate   uint32
		period uint32
	}{
		{clock: 8_000_000, divSel: 0, rate: 125_000, period: 8000},
		{clock: 8_000_000, divSel: 1, rate: 62_500, period: 16000},
		{clock: 8_000_000, divSel: 3, rate: 15_625, period: 64000},
		{clock: 24_000_000, divSel: 0, rate: 375_000, period: 2666},
		{clock: 12_000_000, divSel: 2, rate: 46_875, period: 21333},
		{clock: 63, divSel: 0, rate: 0, period: 0},
	}

	for _, test := range tests {
		name := fmt.Sprintf("clock:%d sel:%d", test.clock, test.divSel)
		c.Run(name, func(c *qt.C) {
			tm := NewTiming(test.clock, test.divSel)
			c.Assert(tm.SampleRate, qt.Equals, test.rate)
			c.Assert(tm.Period, qt.Equals, test.period)
			if test.rate > 0 {
				c.Assert(tm.Period, qt.Equals, uint32(1_000_000_000/test.rate))
			}
			// the calibration is a pure function of the configuration
			c.Assert(NewTiming(test.clock, test.divSel), qt.Equals, tm)
		})
	}
}

func TestDuration(t *testing.T) {
	c := qt.New(t)
	tm := NewTiming(8_000_000, 0)

	prev := uint32(0)
	for count := 0; count <= SampleCountMask; count++ {
		d := tm.Duration(uint8(count))
		c.Assert(d, qt.Equals, uint32(count)*8000)
		c.Assert(d >= prev, qt.IsTrue)
		prev = d
	}

	// the polarity bit is not part of the count
	c.Assert(tm.Duration(0x85), qt.Equals, uint32(40000))
	c.Assert(tm.Duration(0xff), qt.Equals, uint32(127*8000))
}

func TestConfigValidate(t *testing.T) {
	c := qt.New(t)

	c.Assert(DefaultConfig().Validate(), qt.IsNil)

	tests := map[string]func(*Config){
		"divider":   func(cfg *Config) { cfg.Divider = 4 },
		"filter":    func(cfg *Config) { cfg.Filter = 64 },
		"idle":      func(cfg *Config) { cfg.Idle = 256 },
		"watermark": func(cfg *Config) { cfg.Watermark = 0 },
		"fifo":      func(cfg *Config) { cfg.Watermark = FIFOSize + 1 },
		"clock":     func(cfg *Config) { cfg.ClockRate = 1000 },
		"names":     func(cfg *Config) { cfg.ModuleClock = "" },
	}

	for name, modify := range tests {
		c.Run(name, func(c *qt.C) {
			cfg := DefaultConfig()
			modify(&cfg)
			c.Assert(cfg.Validate(), qt.ErrorIs, ErrInvalidConfig)
		})
	}
}

func TestConfigValidatePeriodLimit(t *testing.T) {
	c := qt.New(t)

	// the longest usable period: 127 samples take at most MaxUint32 ns
	cfg := DefaultConfig()
	cfg.ClockRate = 64 * 1_000_000_000 / MaxPeriod
	for cfg.Timing().Period > MaxPeriod {
		cfg.ClockRate++
	}
	c.Assert(cfg.Validate(), qt.IsNil)
	c.Assert(uint64(cfg.Timing().Duration(0x7f)), qt.Equals, uint64(SampleCountMask)*uint64(cfg.Timing().Period))

	cfg.ClockRate = 1000
	c.Assert(cfg.Validate(), qt.ErrorIs, ErrInvalidConfig)
}

func TestIdleDuration(t *testing.T) {
	c := qt.New(t)

	c.Assert(DefaultConfig().IdleDuration(), qt.Equals, 30*128*8000*time.Nanosecond)
}
