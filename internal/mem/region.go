package mem

import (
	"encoding/binary"
	"fmt"
)

// CellSize is the width, in bytes, of one memory cell.
const CellSize = 4

// Region implements bounds checked access to a host supplied byte slice.
// Offsets are always region relative; no access ever reaches outside of the
// wrapped slice, and cell access must be cell aligned.
type Region struct {
	buf []byte
}

// AddrError indicates that a memory operation, like load or store, tried to
// use an out of range or misaligned address.
type AddrError struct {
	Addr   uint32
	Op     string
	Reason string
}

func (ae AddrError) Error() string {
	return fmt.Sprintf("%v %v @%v", ae.Reason, ae.Op, ae.Addr)
}

// NewRegion wraps buf, truncating its length down to a whole number of cells.
func NewRegion(buf []byte) Region {
	n := len(buf) / CellSize * CellSize
	return Region{buf: buf[:n:n]}
}

// Len returns the usable size of the region in bytes.
func (r Region) Len() uint32 { return uint32(len(r.buf)) }

func (r Region) check(addr, width uint32, op string) error {
	if end := uint64(addr) + uint64(width); end > uint64(len(r.buf)) {
		return AddrError{addr, op, "out of range"}
	}
	return nil
}

// checkCell is check plus the alignment rule that only cell access carries.
func (r Region) checkCell(addr uint32, op string) error {
	if addr%CellSize != 0 {
		return AddrError{addr, op, "misaligned"}
	}
	return r.check(addr, CellSize, op)
}

// LoadCell reads a little-endian cell from addr.
func (r Region) LoadCell(addr uint32) (uint32, error) {
	if err := r.checkCell(addr, "load"); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.buf[addr:]), nil
}

// StorCell writes a little-endian cell at addr.
func (r Region) StorCell(addr, val uint32) error {
	if err := r.checkCell(addr, "stor"); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(r.buf[addr:], val)
	return nil
}

// LoadByte reads a single byte from addr.
func (r Region) LoadByte(addr uint32) (byte, error) {
	if err := r.check(addr, 1, "load"); err != nil {
		return 0, err
	}
	return r.buf[addr], nil
}

// StorByte writes a single byte at addr.
func (r Region) StorByte(addr uint32, b byte) error {
	if err := r.check(addr, 1, "stor"); err != nil {
		return err
	}
	r.buf[addr] = b
	return nil
}

// Slice returns the n bytes starting at addr, sharing storage with the
// region; the returned slice is capacity limited so that appends never spill
// into neighbouring memory.
func (r Region) Slice(addr, n uint32) ([]byte, error) {
	if err := r.check(addr, n, "slice"); err != nil {
		return nil, err
	}
	end := addr + n
	return r.buf[addr:end:end], nil
}

// Fill sets n bytes starting at addr to b.
func (r Region) Fill(addr, n uint32, b byte) error {
	p, err := r.Slice(addr, n)
	if err != nil {
		return err
	}
	for i := range p {
		p[i] = b
	}
	return nil
}

// AlignUp rounds n up to the next multiple of CellSize.
func AlignUp(n uint32) uint32 {
	return (n + CellSize - 1) / CellSize * CellSize
}
