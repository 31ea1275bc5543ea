package mmio

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestRegionAccess(t *testing.T) {
	c := qt.New(t)
	words := make([]uint32, 4)
	r := FromWords(words)

	c.Assert(r.Size(), qt.Equals, 16)

	r.Write32(0x4, 0xdeadbeef)
	c.Assert(words[1], qt.Equals, uint32(0xdeadbeef))
	c.Assert(r.Read32(0x4), qt.Equals, uint32(0xdeadbeef))

	words[3] = 0x00ff00ff
	r.Modify32(0xc, 0x0000ffff, 0x1234)
	c.Assert(r.Read32(0xc), qt.Equals, uint32(0x00ff1234))
}

func TestRegionBounds(t *testing.T) {
	c := qt.New(t)
	r := FromWords(make([]uint32, 2))

	c.Assert(func() { r.Read32(8) }, qt.PanicMatches, `register offset out of range: 0x8`)
	c.Assert(func() { r.Write32(2, 0) }, qt.PanicMatches, `register offset out of range: 0x2`)

	c.Assert(r.Unmap(), qt.IsNil)
	c.Assert(func() { r.Read32(0) }, qt.PanicMatches, `register window unmapped`)
}
