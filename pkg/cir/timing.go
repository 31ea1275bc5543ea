package cir

// Timing converts raw sample counts into nanoseconds.
type Timing struct {
	// SampleRate is the sample frequency in Hz.
	SampleRate uint32
	// Period is the sample period in nanoseconds.
	Period uint32
}

// Divider returns the clock divider of the divider selector (64 << sel).
func Divider(divSel uint32) uint32 {
	return 64 << (divSel & SampleDivMask)
}

// NewTiming calculates the sample rate and period for the clock rate and divider selector.
// Integer division truncates, a clock slower than the divider yields a zero period.
func NewTiming(clockHz, divSel uint32) Timing {
	t := Timing{SampleRate: clockHz / Divider(divSel)}
	if t.SampleRate > 0 {
		t.Period = uint32(1_000_000_000 / uint64(t.SampleRate))
	}
	return t
}

// Duration returns the length of count sample periods in nanoseconds.
func (t Timing) Duration(count uint8) uint32 {
	return uint32(count&SampleCountMask) * t.Period
}
