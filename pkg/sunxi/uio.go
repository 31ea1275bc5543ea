package sunxi

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"sunxicir/pkg/cir"
)

// uioLine is an interrupt line of a UIO device.
// A read returns the interrupt count once an interrupt occurred, writing 1
// reenables the interrupt which the kernel masks on delivery.
type uioLine struct {
	f   io.ReadWriteCloser
	buf [4]byte
}

func openUIO(path string) (cir.InterruptLine, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	l := newUIOLine(f)
	if err = l.Ack(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("enable interrupt %s: %w", path, err)
	}
	return l, nil
}

func newUIOLine(f io.ReadWriteCloser) *uioLine {
	return &uioLine{f: f}
}

// Wait blocks until the next interrupt.
func (l *uioLine) Wait() error {
	_, err := io.ReadFull(l.f, l.buf[:])
	return err
}

// Ack reenables the interrupt.
func (l *uioLine) Ack() error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], 1)
	_, err := l.f.Write(b[:])
	return err
}

// Close releases the device, a blocked Wait returns.
func (l *uioLine) Close() error {
	return l.f.Close()
}
