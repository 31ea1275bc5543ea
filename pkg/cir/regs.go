package cir

// Register offsets of the CIR receiver.
const (
	RegCtrl      = 0x00 // IR control
	RegRxCfg     = 0x10 // Rx config
	RegRxData    = 0x20 // Rx FIFO data
	RegRxIntEn   = 0x2c // Rx interrupt enable
	RegRxIntStat = 0x30 // Rx interrupt status
	RegSampleCfg = 0x34 // sample config

	// RegisterSpaceSize is the size of the register window.
	RegisterSpaceSize = 200
)

// Bits of RegCtrl.
const (
	CtrlGlobalEnable = 1 << 0
	CtrlRxEnable     = 1 << 1
	CtrlModeCIR      = 0x3 << 4
	CtrlModeMask     = 0x3 << 4
)

// Bits of RegRxCfg.
const (
	RxCfgInvert = 1 << 2
)

// Bits of RegRxIntStat. RegRxIntEn uses the same positions for the enables.
const (
	IntOverflow  = 1 << 0 // Rx FIFO overflow
	IntPacketEnd = 1 << 1 // Rx packet end
	IntDataAvail = 1 << 4 // Rx FIFO data available

	// IntStatusMask covers the write-1-to-clear condition bits.
	IntStatusMask = 0xff
	// IntCountShift locates the number of available FIFO samples.
	IntCountShift = 8
	IntCountMask  = 0xff

	// IntLevelShift locates the FIFO watermark (RAL) in RegRxIntEn.
	IntLevelShift = 8
	IntLevelMask  = 0x3f
)

// Fields of RegSampleCfg.
const (
	SampleDivMask     = 0x3
	SampleFilterShift = 2
	SampleFilterMask  = 0x3f
	SampleIdleShift   = 8
	SampleIdleMask    = 0xff
)

// Fields of a FIFO entry.
const (
	SamplePulse     = 0x80
	SampleCountMask = 0x7f
)

// FIFOSize is the number of entries the receive FIFO holds.
const FIFOSize = 16

// Registers gives word access to the register window.
type Registers interface {
	Read32(off uint32) uint32
	Write32(off uint32, v uint32)
}

// SampleConfig returns the RegSampleCfg value for the divider, filter and idle fields.
func SampleConfig(divSel, filter, idle uint32) uint32 {
	v := divSel & SampleDivMask
	v |= (filter & SampleFilterMask) << SampleFilterShift
	v |= (idle & SampleIdleMask) << SampleIdleShift
	return v
}

// IntEnable returns the RegRxIntEn value enabling overflow, packet end and
// data available interrupts with the FIFO watermark of n samples.
func IntEnable(watermark uint32) uint32 {
	return IntOverflow | IntPacketEnd | IntDataAvail | ((watermark-1)&IntLevelMask)<<IntLevelShift
}

// SampleCount returns the number of available samples of a status snapshot.
func SampleCount(status uint32) int {
	return int((status >> IntCountShift) & IntCountMask)
}
