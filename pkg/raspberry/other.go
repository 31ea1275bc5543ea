//go:build !linux

package raspberry

import "sunxicir/pkg/port"

// Chip is not available outside linux.
type Chip struct{}

// Line is not available outside linux.
type Line struct{}

// Open always fails outside linux.
func Open(name string) (*Chip, error) {
	return nil, ErrNotSupported
}

func (c *Chip) NewLine(cfg LineConfig, handler port.Handler) (*Line, error) {
	return nil, ErrNotSupported
}

func (c *Chip) Close() error {
	return nil
}

func (l *Line) Value() (bool, error) {
	return false, ErrNotSupported
}

func (l *Line) Close() error {
	return nil
}
