package forthvm

import (
	"fmt"

	"github.com/jcorbin/forthvm/internal/blocks"
)

// BlockSize is the size of one storage block, and of each block buffer.
const BlockSize = 1024

// BlockDevice provides block storage; len(p) is always BlockSize.
type BlockDevice interface {
	ReadBlock(idx uint16, p []byte) error
	WriteBlock(idx uint16, p []byte) error
}

// DirBlocks returns a BlockDevice that keeps each block as a file under dir,
// named like "00042.bin"; blocks that were never written read as spaces.
func DirBlocks(dir string) BlockDevice { return blocks.Dir(dir) }

func (vm *VM) blockWords() []Primitive {
	if vm.blockDev == nil {
		return nil
	}
	return []Primitive{
		{"block", 0, (*VM).block},
		{"buffer", 0, (*VM).buffer},
		{"empty-buffers", 0, (*VM).emptyBuffers},
		{"update", 0, (*VM).update},
		{"flush", 0, (*VM).flushBlocks},
	}
}

func (vm *VM) popBlockIndex() (uint16, error) {
	n, err := vm.Pop()
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 0xffff {
		return 0, fmt.Errorf("%w: %v", ErrBlockOutOfRange, n)
	}
	return uint16(n), nil
}

func (vm *VM) blockAddr(get func(uint16) (uint32, error)) error {
	if vm.blocks == nil {
		return blockError{blocks.ErrNoDevice}
	}
	idx, err := vm.popBlockIndex()
	if err != nil {
		return err
	}
	addr, err := get(idx)
	if err != nil {
		return memError(err)
	}
	vm.logf("#", "block %v @%v", idx, addr)
	return vm.ds.push(addr)
}

// block ( n -- addr ) makes block n resident, reading it if needed.
func (vm *VM) block() error {
	return vm.blockAddr(func(idx uint16) (uint32, error) { return vm.blocks.Block(idx) })
}

// buffer ( n -- addr ) assigns a buffer to block n without reading it.
func (vm *VM) buffer() error {
	return vm.blockAddr(func(idx uint16) (uint32, error) { return vm.blocks.Buffer(idx) })
}

func (vm *VM) emptyBuffers() error {
	if vm.blocks != nil {
		vm.blocks.EmptyBuffers()
	}
	return nil
}

func (vm *VM) update() error {
	if vm.blocks != nil {
		vm.blocks.Update()
	}
	return nil
}

func (vm *VM) flushBlocks() error {
	if vm.blocks == nil {
		return nil
	}
	return memError(vm.blocks.Flush())
}
