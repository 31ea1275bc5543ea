// Package cir is the driver of the consumer infrared receiver of Allwinner A1x SoCs.
//
// The receiver samples the demodulated IR signal, measures the length of every
// pulse and space in sample periods and queues them in a 16 entry FIFO. Device
// programs the receiver, drains the FIFO on interrupt and hands the calibrated
// pulse/space events to a raw event Sink.
package cir

import (
	"fmt"
	"sync"

	"sunxicir/pkg/rawir"

	"github.com/womat/debug"
)

const (
	DriverName    = "sunxi-cir"
	DriverVersion = "1.1"
)

// Sink consumes the raw events of the receiver.
// The event methods are called with the device lock held and must not block.
type Sink interface {
	Register(rawir.Capabilities) error
	Unregister()
	AcceptEvent(rawir.Event)
	NotifyIdle()
	ResetPacket()
}

// Stats holds the interrupt counters of the device.
type Stats struct {
	Interrupts uint64 `json:"interrupts"`
	Samples    uint64 `json:"samples"`
	PacketEnds uint64 `json:"packetEnds"`
	Overflows  uint64 `json:"overflows"`
}

// Device is the handle of one receiver.
//
// Setup, Stop, Attach and Detach must not be called concurrently with each other.
// They are serialized against the interrupt handler by the device lock.
type Device struct {
	cfg      Config
	timing   Timing
	platform Platform
	sink     Sink

	// mu guards the register window and everything the interrupt handler touches.
	mu      sync.Mutex
	regs    RegisterSpace
	running bool
	stats   Stats

	irq  InterruptLine
	done chan struct{}

	pins     PinGroup
	busClk   Clock
	modClk   Clock
	busOn    bool
	modOn    bool
	attached bool
}

// New creates the device handle. Nothing is acquired before Attach.
func New(cfg Config, p Platform, s Sink) *Device {
	return &Device{
		cfg:      cfg,
		timing:   cfg.Timing(),
		platform: p,
		sink:     s,
	}
}

// Config returns the receiver configuration.
func (d *Device) Config() Config {
	return d.cfg
}

// Timing returns the sample timing.
func (d *Device) Timing() Timing {
	return d.timing
}

// Running reports whether the receiver is capturing.
func (d *Device) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Stats returns a copy of the interrupt counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Capabilities returns the description registered with the sink.
func (d *Device) Capabilities() rawir.Capabilities {
	return rawir.Capabilities{
		DriverName:       DriverName,
		AllowedProtocols: rawir.ProtoAll,
		Resolution:       d.timing.Period,
		Timeout:          d.cfg.Timeout,
		Changer:          d,
	}
}

// ChangeProtocol is called by the sink when the protocol selection changes.
// The receiver settings serve all protocols, so nothing is retuned.
func (d *Device) ChangeProtocol(m rawir.ProtocolMask) error {
	debug.DebugLog.Printf("protocol change to %v", m.Names())
	return nil
}

// Attach registers the receiver with the sink, maps the registers, requests the
// interrupt line and starts capturing. On failure everything acquired so far is
// released in reverse order.
func (d *Device) Attach() error {
	if d.attached {
		return ErrAttached
	}

	if err := d.cfg.Validate(); err != nil {
		return err
	}

	if err := d.sink.Register(d.Capabilities()); err != nil {
		return fmt.Errorf("register raw event sink: %w", err)
	}

	regs, err := d.platform.MapRegisters()
	if err != nil {
		d.sink.Unregister()
		return fmt.Errorf("%w: %w", ErrRegisterMap, err)
	}
	d.mu.Lock()
	d.regs = regs
	d.mu.Unlock()

	irq, err := d.platform.RequestInterrupt()
	if err != nil {
		d.unmap()
		d.sink.Unregister()
		return fmt.Errorf("%w: %w", ErrInterruptRegistration, err)
	}
	d.irq = irq
	d.done = make(chan struct{})
	go d.serve(irq, d.done)

	d.sink.ResetPacket()

	if err = d.Setup(); err != nil {
		d.Stop()
		d.freeInterrupt()
		d.unmap()
		d.sink.Unregister()
		return err
	}

	d.attached = true
	debug.InfoLog.Printf("%s %s attached", DriverName, DriverVersion)
	return nil
}

// Detach stops the receiver, waits for a running interrupt handler to finish and
// releases the registers and the sink.
func (d *Device) Detach() error {
	if !d.attached {
		return nil
	}

	d.Stop()
	d.freeInterrupt()
	err := d.unmap()
	d.sink.Unregister()
	d.attached = false

	debug.InfoLog.Printf("%s detached", DriverName)
	return err
}

// Setup acquires pins and clocks, programs the receiver and enables it.
// Interrupts are enabled and pending status is cleared before the receiver is
// switched on. On failure the acquired resources are released and no register is written.
func (d *Device) Setup() (err error) {
	if err = d.cfg.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	mapped := d.regs != nil
	d.mu.Unlock()
	if !mapped {
		return fmt.Errorf("%w: registers not mapped", ErrRegisterMap)
	}

	defer func() {
		if err != nil {
			debug.ErrorLog.Printf("setup %s: %v", DriverName, err)
			d.release()
		}
	}()

	if d.pins, err = d.platform.AcquirePinGroup(d.cfg.PinGroup); err != nil {
		return fmt.Errorf("%w: pin group %q: %w", ErrResourceUnavailable, d.cfg.PinGroup, err)
	}

	if d.busClk, err = d.platform.AcquireClock(d.cfg.BusClock); err != nil {
		return fmt.Errorf("%w: clock %q: %w", ErrResourceUnavailable, d.cfg.BusClock, err)
	}

	if d.modClk, err = d.platform.AcquireClock(d.cfg.ModuleClock); err != nil {
		return fmt.Errorf("%w: clock %q: %w", ErrResourceUnavailable, d.cfg.ModuleClock, err)
	}

	if err = d.modClk.SetRate(d.cfg.ClockRate); err != nil {
		return fmt.Errorf("%w: set %q rate %d Hz: %w", ErrClockConfig, d.cfg.ModuleClock, d.cfg.ClockRate, err)
	}

	debug.InfoLog.Printf("IR clock rate: %d Hz", d.modClk.Rate())
	debug.InfoLog.Printf("IR sample period: %d ns", d.timing.Period)

	if err = d.busClk.Enable(); err != nil {
		return fmt.Errorf("%w: enable %q: %w", ErrClockConfig, d.cfg.BusClock, err)
	}
	d.busOn = true

	if err = d.modClk.Enable(); err != nil {
		return fmt.Errorf("%w: enable %q: %w", ErrClockConfig, d.cfg.ModuleClock, err)
	}
	d.modOn = true

	d.mu.Lock()
	defer d.mu.Unlock()

	r := d.regs
	r.Write32(RegCtrl, CtrlModeCIR)
	r.Write32(RegSampleCfg, SampleConfig(d.cfg.Divider, d.cfg.Filter, d.cfg.Idle))

	var rxCfg uint32
	if d.cfg.Invert {
		rxCfg = RxCfgInvert
	}
	r.Write32(RegRxCfg, rxCfg)

	r.Write32(RegRxIntStat, IntStatusMask)
	r.Write32(RegRxIntEn, IntEnable(d.cfg.Watermark))

	ctrl := r.Read32(RegCtrl)
	r.Write32(RegCtrl, ctrl|CtrlGlobalEnable|CtrlRxEnable)

	d.running = true
	return nil
}

// Stop disables the receiver interrupts and the receiver, then releases clocks and pins.
// It is safe to call Stop repeatedly and after a failed Setup.
func (d *Device) Stop() {
	d.mu.Lock()
	if d.regs != nil {
		d.regs.Write32(RegRxIntEn, 0)
		d.regs.Write32(RegRxIntStat, IntStatusMask)
		d.regs.Write32(RegCtrl, 0)
	}
	d.running = false
	d.mu.Unlock()

	d.release()
}

// release disables and releases the clocks and the pins in reverse acquisition order.
func (d *Device) release() {
	if d.modOn {
		if err := d.modClk.Disable(); err != nil {
			debug.ErrorLog.Printf("disable clock %q: %v", d.cfg.ModuleClock, err)
		}
		d.modOn = false
	}

	if d.busOn {
		if err := d.busClk.Disable(); err != nil {
			debug.ErrorLog.Printf("disable clock %q: %v", d.cfg.BusClock, err)
		}
		d.busOn = false
	}

	if d.modClk != nil {
		if err := d.modClk.Release(); err != nil {
			debug.ErrorLog.Printf("release clock %q: %v", d.cfg.ModuleClock, err)
		}
		d.modClk = nil
	}

	if d.busClk != nil {
		if err := d.busClk.Release(); err != nil {
			debug.ErrorLog.Printf("release clock %q: %v", d.cfg.BusClock, err)
		}
		d.busClk = nil
	}

	if d.pins != nil {
		if err := d.pins.Release(); err != nil {
			debug.ErrorLog.Printf("release pin group %q: %v", d.cfg.PinGroup, err)
		}
		d.pins = nil
	}
}

// freeInterrupt closes the interrupt line and waits until the serve goroutine has returned.
func (d *Device) freeInterrupt() {
	if d.irq == nil {
		return
	}

	if err := d.irq.Close(); err != nil {
		debug.ErrorLog.Printf("free interrupt: %v", err)
	}
	<-d.done

	d.irq = nil
	d.done = nil
}

func (d *Device) unmap() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.regs == nil {
		return nil
	}

	err := d.regs.Unmap()
	d.regs = nil
	return err
}
