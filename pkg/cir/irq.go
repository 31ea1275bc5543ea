package cir

import (
	"sunxicir/pkg/rawir"

	"github.com/womat/debug"
)

// HandleInterrupt is the interrupt handler of the receiver.
//
// It reads and clears the interrupt status, drains every sample the status
// reports and forwards them in FIFO order to the sink. A packet end marks the
// sink idle, an overflow resets the packet in the sink after the drained
// samples have been forwarded. The handler never blocks.
func (d *Device) HandleInterrupt() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.regs == nil {
		return
	}

	// the sample count is part of the snapshot, it is taken before the condition bits are cleared
	status := d.regs.Read32(RegRxIntStat)
	d.regs.Write32(RegRxIntStat, status&IntStatusMask)
	n := SampleCount(status)

	d.stats.Interrupts++
	d.stats.Samples += uint64(n)

	for i := 0; i < n; i++ {
		v := uint8(d.regs.Read32(RegRxData))
		d.sink.AcceptEvent(rawir.Event{
			Pulse:    v&SamplePulse != 0,
			Duration: d.timing.Duration(v),
		})
	}

	if status&IntPacketEnd != 0 {
		d.stats.PacketEnds++
		d.sink.NotifyIdle()
	}

	if status&IntOverflow != 0 {
		d.stats.Overflows++
		d.sink.ResetPacket()
	}
}

// serve waits for interrupts and runs the handler until the line is closed.
func (d *Device) serve(line InterruptLine, done chan<- struct{}) {
	defer close(done)

	for {
		if err := line.Wait(); err != nil {
			debug.DebugLog.Printf("interrupt line closed: %v", err)
			return
		}

		d.HandleInterrupt()

		if err := line.Ack(); err != nil {
			debug.ErrorLog.Printf("rearm interrupt: %v", err)
			return
		}
	}
}
