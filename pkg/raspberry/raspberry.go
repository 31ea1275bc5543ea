// Package raspberry is the watcher for gpio lines of single board computers.
package raspberry

import "errors"

// Bias values of an input line.
const (
	BiasNone     = "none"
	BiasPullUp   = "pullup"
	BiasPullDown = "pulldown"
)

var (
	ErrInvalidParam = errors.New("invalid parameters")
	ErrNotSupported = errors.New("gpio not supported on this platform")
)

// LineConfig describes an input line.
type LineConfig struct {
	// Offset is the line number on the chip (BCM number on a Raspberry Pi).
	Offset int
	// Bias is one of BiasNone, BiasPullUp or BiasPullDown.
	Bias string
	// GPIOMem sets the bias through /dev/gpiomem instead of the line request,
	// for kernels older than 5.5 which do not support bias flags.
	GPIOMem bool
	// Consumer is the label of the line request.
	Consumer string
}

func validBias(b string) bool {
	switch b {
	case BiasNone, BiasPullUp, BiasPullDown:
		return true
	}
	return false
}
