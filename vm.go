package forthvm

import (
	"fmt"
	"strings"

	"github.com/jcorbin/forthvm/internal/blocks"
	"github.com/jcorbin/forthvm/internal/flushio"
	"github.com/jcorbin/forthvm/internal/mem"
)

// Cell is the VM's machine word: a 32-bit two's complement integer, stored
// little-endian in the memory region.
type Cell int32

// VM is a Forth-family virtual machine running over a caller supplied byte
// region. All of its state that programs can observe lives inside that
// region; the struct only holds cursors into it, plus host side
// configuration.
type VM struct {
	logging
	config

	mem mem.Region
	out flushio.WriteFlusher

	// The dictionary grows upward from dictBase; here is the next free byte
	// and latest the newest word header. Programs may address memory below
	// dataLimit, which is dictLimit plus any block buffers.
	here      uint32
	latest    uint32
	dictLimit uint32
	dataLimit uint32

	// Interpreter mode, and the definition being compiled: abandoning it
	// reverts here and latest to their values from before its ":".
	compiling  bool
	open       uint32
	openHere   uint32
	openLatest uint32

	ds stack // data stack: operands
	rs stack // return stack: call and loop frames
	cs stack // control stack: compile time fixups

	// Inner interpreter registers: the instruction cursor and the header of
	// the word whose body it is in.
	ip    uint32
	cur   uint32
	steps int

	// Outer interpreter cursor over the line being processed.
	line  string
	pos   int
	token string

	prims  []Primitive
	blocks *blocks.Cache
}

// Region layout; everything from dictBase up to dictLimit belongs to the
// dictionary, the stacks are fixed partitions at the top of the region.
const (
	nullAddr   = 0
	baseAddr   = 4
	dictBase   = 8
	headerSize = 2 * mem.CellSize
	maxNameLen = 31

	// Body offsets need to fit in a token argument.
	maxRegion = 1 << 24
)

type config struct {
	dataCap       int
	returnCap     int
	controlCap    int
	initRadix     int
	caseSensitive bool
	stepBudget    int
	library       []Primitive
	extra         []Primitive
	blockDev      BlockDevice
}

var defaultConfig = config{
	dataCap:    64,
	returnCap:  64,
	controlCap: 16,
	initRadix:  10,
}

// init carves the region into dictionary, buffers, and stacks, then
// installs all primitive words.
func (vm *VM) init() error {
	size := vm.mem.Len()
	if err := vm.mem.Fill(0, size, 0); err != nil {
		return err
	}

	for _, c := range []struct {
		name string
		n    int
	}{
		{"data stack", vm.dataCap},
		{"return stack", vm.returnCap},
		{"control stack", vm.controlCap},
	} {
		if c.n <= 0 {
			return fmt.Errorf("invalid %v capacity %v", c.name, c.n)
		}
	}
	if vm.initRadix < 2 || vm.initRadix > 36 {
		return fmt.Errorf("%w %v", ErrInvalidRadix, vm.initRadix)
	}

	var (
		dsSize = uint64(vm.dataCap) * mem.CellSize
		csSize = uint64(vm.controlCap) * 2 * mem.CellSize
		rsSize = uint64(vm.returnCap) * mem.CellSize
		bkSize uint64
	)
	if vm.blockDev != nil {
		bkSize = 2 * BlockSize
	}
	if need := dictBase + bkSize + rsSize + csSize + dsSize; need > uint64(size) {
		return fmt.Errorf("%w: %v byte region cannot hold %v bytes of stacks and buffers",
			ErrOutOfMemory, size, need-dictBase)
	}

	dsBase := size - uint32(dsSize)
	csBase := dsBase - uint32(csSize)
	rsBase := csBase - uint32(rsSize)
	vm.ds = stack{name: "data", mem: vm.mem, base: dsBase, cap: uint32(vm.dataCap)}
	vm.cs = stack{name: "control", mem: vm.mem, base: csBase, cap: uint32(vm.controlCap) * 2}
	vm.rs = stack{name: "return", mem: vm.mem, base: rsBase, cap: uint32(vm.returnCap)}
	vm.dataLimit = rsBase
	vm.dictLimit = rsBase - uint32(bkSize)

	vm.blocks = nil
	if vm.blockDev != nil {
		a, _ := vm.mem.Slice(vm.dictLimit, BlockSize)
		b, _ := vm.mem.Slice(vm.dictLimit+BlockSize, BlockSize)
		vm.blocks = blocks.New(vm.blockDev,
			blocks.Slot{Addr: vm.dictLimit, Buf: a},
			blocks.Slot{Addr: vm.dictLimit + BlockSize, Buf: b})
	}

	vm.here, vm.latest = dictBase, nullAddr
	vm.compiling, vm.open = false, 0
	vm.ip, vm.cur, vm.steps = 0, 0, 0
	if err := vm.mem.StorCell(baseAddr, uint32(vm.initRadix)); err != nil {
		return err
	}

	vm.logf("#", "layout dict:%v-%v data:%v rs:%v cs:%v ds:%v end:%v",
		dictBase, vm.dictLimit, vm.dataLimit, rsBase, csBase, dsBase, size)

	vm.prims = append(vm.prims[:0], runtimePrimitives...)
	for _, prims := range [][]Primitive{
		compilerWords,
		vm.library,
		vm.blockWords(),
		vm.extra,
	} {
		if err := vm.install(prims); err != nil {
			return err
		}
	}
	return nil
}

// install defines a builtin word for each primitive, whose body is just its
// primitive token followed by exit.
func (vm *VM) install(prims []Primitive) error {
	for _, p := range prims {
		if p.Name == "" {
			return fmt.Errorf("%w for primitive #%v", ErrMissingName, len(vm.prims))
		}
		if p.Func == nil {
			return fmt.Errorf("primitive %q has no function", p.Name)
		}
		idx := uint32(len(vm.prims))
		if idx > maxTokenArg {
			return fmt.Errorf("too many primitives, cannot install %q", p.Name)
		}
		name := vm.foldName(p.Name)
		if need := mem.AlignUp(uint32(len(name))) + headerSize + 2*mem.CellSize; uint64(vm.here)+uint64(need) > uint64(vm.dictLimit) {
			return fmt.Errorf("%w: no room for builtin %q", ErrDictionaryFull, name)
		}
		vm.prims = append(vm.prims, p)
		if _, err := vm.define(name, p.Flags|Builtin); err != nil {
			return err
		}
		if _, err := vm.compileToken(tokPrim, idx); err != nil {
			return err
		}
		if _, err := vm.compileToken(tokExit, 0); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) radix() (int, error) {
	base, err := vm.mem.LoadCell(baseAddr)
	if err != nil {
		return 0, err
	}
	if b := int32(base); b < 2 || b > 36 {
		return 0, fmt.Errorf("%w %v", ErrInvalidRadix, b)
	}
	return int(base), nil
}

// checkData validates program access to n bytes at addr: everything between
// the null cell and the return stack is program memory.
func (vm *VM) checkData(addr, n uint32, op string) error {
	if end := uint64(addr) + uint64(n); addr < baseAddr || end > uint64(vm.dataLimit) {
		return addrError{mem.AddrError{Addr: addr, Op: op, Reason: "outside data space"}}
	}
	return nil
}

func (vm *VM) loadData(addr uint32) (uint32, error) {
	if err := vm.checkData(addr, mem.CellSize, "load"); err != nil {
		return 0, err
	}
	val, err := vm.mem.LoadCell(addr)
	return val, memError(err)
}

func (vm *VM) storData(addr, val uint32) error {
	if err := vm.checkData(addr, mem.CellSize, "stor"); err != nil {
		return err
	}
	return memError(vm.mem.StorCell(addr, val))
}

func (vm *VM) dataBytes(addr, n uint32) ([]byte, error) {
	if err := vm.checkData(addr, n, "slice"); err != nil {
		return nil, err
	}
	p, err := vm.mem.Slice(addr, n)
	return p, memError(err)
}

type logging struct {
	logfn func(mess string, args ...interface{})

	markWidth int
}

func (log *logging) logf(mark, mess string, args ...interface{}) {
	if log.logfn == nil {
		return
	}
	if n := log.markWidth - len(mark); n > 0 {
		mark = strings.Repeat(mark[:1], n) + mark
	} else if n < 0 {
		log.markWidth = len(mark)
	}
	if len(args) > 0 {
		mess = fmt.Sprintf(mess, args...)
	}
	log.logfn("%v %v", mark, mess)
}
