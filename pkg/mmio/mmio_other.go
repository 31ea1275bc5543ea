//go:build !linux

package mmio

import "errors"

// Map is only supported on linux.
func Map(base int64, size int) (*Region, error) {
	return nil, errors.New("mmio: physical memory mapping not supported on this platform")
}

// Unmap invalidates the region.
func (r *Region) Unmap() error {
	r.mem, r.data = nil, nil
	return nil
}
