package forthvm

import (
	"io"

	"github.com/jcorbin/forthvm/internal/flushio"
	"github.com/jcorbin/forthvm/internal/mem"
)

// New creates a VM over the given memory region, which the VM owns from then
// on: it is cleared, and all dictionary, buffer, and stack storage is carved
// out of it. The region length is rounded down to a whole number of cells,
// and any bytes past 16MiB go unused.
func New(region []byte, opts ...Option) (*VM, error) {
	if len(region) > maxRegion {
		region = region[:maxRegion]
	}
	vm := &VM{
		config: defaultConfig,
		mem:    mem.NewRegion(region),
		out:    flushio.Discard,
	}
	vm.library = builtinLibrary
	Options(opts...).apply(vm)
	if err := vm.init(); err != nil {
		return nil, err
	}
	return vm, nil
}

// Reset restores the VM to its initial state, as returned by New: the
// region is cleared and all builtin words are reinstalled. Modified blocks
// are written back first.
func (vm *VM) Reset() error {
	if vm.blocks != nil {
		if err := vm.blocks.Flush(); err != nil {
			return blockError{err}
		}
	}
	return vm.init()
}

// Stack returns a copy of the data stack, bottom first.
func (vm *VM) Stack() []Cell { return vm.ds.cells() }

// Compiling returns true while a colon definition is open.
func (vm *VM) Compiling() bool { return vm.compiling }

// Words returns the names of all visible words, newest first.
func (vm *VM) Words() []string {
	var names []string
	vm.walk(func(h uint32) bool {
		if flags, _, err := vm.wordInfo(h); err == nil && flags&Hidden == 0 {
			names = append(names, vm.wordName(h))
		}
		return true
	})
	return names
}

// Flush flushes any buffered output.
func (vm *VM) Flush() error { return vm.out.Flush() }

//// Primitive API

// PrimitiveFunc implements a primitive word, operating on the VM through its
// exported methods; any returned error faults the line being processed.
type PrimitiveFunc func(vm *VM) error

// Primitive describes a builtin word.
type Primitive struct {
	Name  string
	Flags Flags
	Func  PrimitiveFunc
}

// Push pushes a value onto the data stack.
func (vm *VM) Push(val Cell) error { return vm.ds.push(uint32(val)) }

// Pop pops a value from the data stack.
func (vm *VM) Pop() (Cell, error) {
	val, err := vm.ds.pop()
	return Cell(val), err
}

// Peek returns the n-th value down from the top of the data stack; 0 is the
// top.
func (vm *VM) Peek(n int) (Cell, error) {
	if n < 0 {
		return 0, stackError{vm.ds.name, ErrStackUnderflow}
	}
	val, err := vm.ds.peek(uint32(n))
	return Cell(val), err
}

// Load reads the cell at a program data address.
func (vm *VM) Load(addr Cell) (Cell, error) {
	val, err := vm.loadData(uint32(addr))
	return Cell(val), err
}

// Store writes the cell at a program data address.
func (vm *VM) Store(addr, val Cell) error { return vm.storData(uint32(addr), uint32(val)) }

// Output returns the VM's output stream; it is flushed at the end of every
// processed line.
func (vm *VM) Output() io.Writer { return vm.out }
