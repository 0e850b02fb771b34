// Package blocks implements a two slot block buffer cache in front of a block
// storage device. The buffers themselves are provided by the caller, so that
// they can live inside the VM's memory region and be addressed by programs.
package blocks

import (
	"errors"
	"fmt"
)

// Device reads and writes whole blocks; len(p) is always the block size.
type Device interface {
	ReadBlock(idx uint16, p []byte) error
	WriteBlock(idx uint16, p []byte) error
}

// State tracks what a cache slot holds.
type State uint8

const (
	// Empty slots hold nothing.
	Empty State = iota
	// Buffer slots were assigned without reading the device.
	Buffer
	// Clean slots match the device contents.
	Clean
	// Dirty slots have been marked updated, and will be written back.
	Dirty
)

var stateNames = [...]string{"empty", "buffer", "clean", "dirty"}

func (st State) String() string {
	if int(st) < len(stateNames) {
		return stateNames[st]
	}
	return fmt.Sprintf("State(%d)", uint8(st))
}

// Slot is one cache buffer: the region address of its storage, the storage
// itself, and the block it currently holds.
type Slot struct {
	Addr  uint32
	Buf   []byte
	Idx   uint16
	State State
}

func (sl Slot) holds(idx uint16) bool { return sl.State != Empty && sl.Idx == idx }

// IOError wraps a device failure with the block and operation involved.
type IOError struct {
	Op  string
	Idx uint16
	Err error
}

func (ioe IOError) Error() string { return fmt.Sprintf("block %v %v: %v", ioe.Op, ioe.Idx, ioe.Err) }
func (ioe IOError) Unwrap() error { return ioe.Err }

// ErrNoDevice is returned when a cache has no backing device.
var ErrNoDevice = errors.New("no block device")

// Cache keeps up to two blocks resident; slot 0 is the active (most
// recently used) one, slot 1 the oldest, which gets evicted next.
type Cache struct {
	dev   Device
	slots [2]Slot
}

// New creates a cache over two equally sized buffers, filling them with
// spaces.
func New(dev Device, a, b Slot) *Cache {
	c := &Cache{dev: dev, slots: [2]Slot{a, b}}
	for i := range c.slots {
		c.slots[i].State = Empty
		fill(c.slots[i].Buf, ' ')
	}
	return c
}

// Slots returns a copy of the cache slots, active first.
func (c *Cache) Slots() [2]Slot { return c.slots }

// Block makes block idx resident, reading it from the device if needed, and
// returns the address of its buffer.
func (c *Cache) Block(idx uint16) (uint32, error) {
	need, err := c.makeSpaceFor(idx)
	if err != nil {
		return 0, err
	}
	if need {
		if err := c.dev.ReadBlock(idx, c.slots[0].Buf); err != nil {
			c.slots[0].State = Empty
			return 0, IOError{"read", idx, err}
		}
		c.slots[0].Idx, c.slots[0].State = idx, Clean
	}
	return c.slots[0].Addr, nil
}

// Buffer assigns block idx to a buffer without reading it from the device,
// returning the buffer address; a resident block keeps its contents.
func (c *Cache) Buffer(idx uint16) (uint32, error) {
	need, err := c.makeSpaceFor(idx)
	if err != nil {
		return 0, err
	}
	if need {
		c.slots[0].Idx, c.slots[0].State = idx, Buffer
	}
	return c.slots[0].Addr, nil
}

// Update marks the active block as modified.
func (c *Cache) Update() {
	switch c.slots[0].State {
	case Buffer, Clean:
		c.slots[0].State = Dirty
	}
}

// Flush writes back every dirty block, and then empties all slots.
func (c *Cache) Flush() error {
	for i := range c.slots {
		if err := c.writeBack(&c.slots[i]); err != nil {
			return err
		}
		c.slots[i].State = Empty
	}
	return nil
}

// EmptyBuffers forgets all resident blocks, discarding any modifications.
func (c *Cache) EmptyBuffers() {
	for i := range c.slots {
		c.slots[i].State = Empty
	}
}

// makeSpaceFor makes slot 0 the home for idx, returning true if its content
// still needs to be established.
func (c *Cache) makeSpaceFor(idx uint16) (bool, error) {
	if c.dev == nil {
		return false, ErrNoDevice
	}
	if c.slots[0].holds(idx) {
		return false, nil
	}
	c.slots[0], c.slots[1] = c.slots[1], c.slots[0]
	if c.slots[0].holds(idx) {
		return false, nil
	}
	if err := c.writeBack(&c.slots[0]); err != nil {
		return false, err
	}
	c.slots[0].State = Empty
	return true, nil
}

func (c *Cache) writeBack(sl *Slot) error {
	if sl.State != Dirty {
		return nil
	}
	if err := c.dev.WriteBlock(sl.Idx, sl.Buf); err != nil {
		return IOError{"write", sl.Idx, err}
	}
	sl.State = Clean
	return nil
}

func fill(p []byte, b byte) {
	for i := range p {
		p[i] = b
	}
}
