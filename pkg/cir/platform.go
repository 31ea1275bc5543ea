package cir

import "errors"

var (
	ErrResourceUnavailable   = errors.New("resource unavailable")
	ErrClockConfig           = errors.New("clock configuration failed")
	ErrRegisterMap           = errors.New("register map failed")
	ErrInterruptRegistration = errors.New("interrupt registration failed")
	ErrInvalidConfig         = errors.New("invalid receiver configuration")
	ErrAttached              = errors.New("device already attached")
)

// Platform gives the receiver access to the resources of the host board.
type Platform interface {
	// AcquirePinGroup routes the named pin group to the receiver.
	AcquirePinGroup(name string) (PinGroup, error)
	// AcquireClock gets the named clock.
	AcquireClock(name string) (Clock, error)
	// MapRegisters maps the register window of the receiver.
	MapRegisters() (RegisterSpace, error)
	// RequestInterrupt requests the interrupt line of the receiver.
	RequestInterrupt() (InterruptLine, error)
}

// PinGroup is an acquired pin group.
type PinGroup interface {
	Release() error
}

// Clock is an acquired clock.
type Clock interface {
	SetRate(hz uint32) error
	Rate() uint32
	Enable() error
	Disable() error
	Release() error
}

// RegisterSpace is a mapped register window.
type RegisterSpace interface {
	Registers
	Unmap() error
}

// InterruptLine delivers the interrupts of the receiver.
type InterruptLine interface {
	// Wait blocks until the next interrupt. It returns an error once the line is closed.
	Wait() error
	// Ack rearms the line after the interrupt has been handled.
	Ack() error
	// Close frees the line and unblocks Wait.
	Close() error
}
