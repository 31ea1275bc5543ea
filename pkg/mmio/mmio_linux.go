//go:build linux

package mmio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DevMem is the physical memory device.
const DevMem = "/dev/mem"

// Map maps size bytes of physical memory at base.
// The base must be 4 byte aligned, it does not need to be page aligned.
func Map(base int64, size int) (*Region, error) {
	if base%4 != 0 || size <= 0 || size%4 != 0 {
		return nil, fmt.Errorf("%w: base 0x%x size %d", ErrUnaligned, base, size)
	}

	f, err := os.OpenFile(DevMem, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	// the mapping stays valid after the file is closed
	defer func() { _ = f.Close() }()

	page := int64(unix.Getpagesize())
	start := base &^ (page - 1)
	offset := int(base - start)

	mem, err := unix.Mmap(int(f.Fd()), start, offset+size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap 0x%x: %w", base, err)
	}

	return &Region{mem: mem, data: mem[offset : offset+size], base: base}, nil
}

// Unmap releases the mapping. Regions backed by memory are only invalidated.
func (r *Region) Unmap() error {
	mem := r.mem
	r.mem, r.data = nil, nil
	if mem == nil {
		return nil
	}
	return unix.Munmap(mem)
}
