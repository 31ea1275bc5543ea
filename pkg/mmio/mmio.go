// Package mmio gives word access to memory mapped peripheral registers.
package mmio

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

var (
	ErrUnaligned  = errors.New("unaligned register window")
	ErrOutOfRange = errors.New("register offset out of range")
	ErrUnmapped   = errors.New("register window unmapped")
)

// Region is a window of 32-bit registers.
// Every access is a single 32-bit load or store.
type Region struct {
	// mem is the mapping returned by the kernel, nil for regions backed by memory.
	mem []byte
	// data is the register window inside mem.
	data []byte
	base int64
}

// FromWords returns a region backed by memory, used to simulate a peripheral.
func FromWords(words []uint32) *Region {
	if len(words) == 0 {
		return &Region{}
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*4)
	return &Region{data: b}
}

// Base returns the physical address of the window.
func (r *Region) Base() int64 {
	return r.base
}

// Size returns the size of the window in bytes.
func (r *Region) Size() int {
	return len(r.data)
}

// Read32 reads the register at byte offset off.
func (r *Region) Read32(off uint32) uint32 {
	return atomic.LoadUint32(r.word(off))
}

// Write32 writes the register at byte offset off.
func (r *Region) Write32(off uint32, v uint32) {
	atomic.StoreUint32(r.word(off), v)
}

// Modify32 clears the bits of mask and sets the bits of v at byte offset off.
func (r *Region) Modify32(off uint32, mask, v uint32) {
	p := r.word(off)
	atomic.StoreUint32(p, atomic.LoadUint32(p)&^mask|v&mask)
}

func (r *Region) word(off uint32) *uint32 {
	if r.data == nil {
		panic(ErrUnmapped)
	}
	if off%4 != 0 || int(off)+4 > len(r.data) {
		panic(fmt.Errorf("%w: 0x%x", ErrOutOfRange, off))
	}
	return (*uint32)(unsafe.Pointer(&r.data[off]))
}
