package forthvm

import (
	"fmt"
	"strings"

	"github.com/jcorbin/forthvm/internal/mem"
)

// Flags qualify dictionary words.
type Flags uint8

const (
	// Immediate words run even while compiling.
	Immediate Flags = 1 << iota
	// Hidden words are skipped by lookup; a definition stays hidden until
	// its closing ";".
	Hidden
	// Builtin words are primitives; compiling one inlines its token.
	Builtin
	// CompileOnly words fault when used while interpreting.
	CompileOnly
)

// loopOnly words may only be compiled within a do loop.
const loopOnly = CompileOnly << 1

func (flags Flags) String() string {
	var parts []string
	for _, f := range []struct {
		Flags
		name string
	}{
		{Immediate, "immediate"},
		{Hidden, "hidden"},
		{Builtin, "builtin"},
		{CompileOnly, "compile-only"},
	} {
		if flags&f.Flags != 0 {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// Each word header is preceded by its name bytes, padded to a cell:
//
//	h - pad(len)  name bytes
//	h             link to the previous header, or 0
//	h + 4         flags | name length << 8
//	h + 8         body
//
// Headers link newest first from vm.latest; links always point to lower
// addresses.

func (vm *VM) foldName(name string) string {
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	if !vm.caseSensitive {
		name = strings.Map(foldASCII, name)
	}
	return name
}

func foldASCII(r rune) rune {
	if 'A' <= r && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// allocate reserves n bytes, rounded up to whole cells, at here; the space
// is zeroed.
func (vm *VM) allocate(n uint32) (uint32, error) {
	n = mem.AlignUp(n)
	at := vm.here
	if uint64(at)+uint64(n) > uint64(vm.dictLimit) {
		return 0, fmt.Errorf("%w: need %v bytes, %v free", ErrOutOfMemory, n, vm.dictLimit-at)
	}
	if err := vm.mem.Fill(at, n, 0); err != nil {
		return 0, memError(err)
	}
	vm.here = at + n
	return at, nil
}

func (vm *VM) define(name string, flags Flags) (uint32, error) {
	name = vm.foldName(name)
	n := uint32(len(name))
	at, err := vm.allocate(mem.AlignUp(n) + headerSize)
	if err != nil {
		return 0, fmt.Errorf("%w: no room for %q", ErrDictionaryFull, name)
	}
	p, err := vm.mem.Slice(at, n)
	if err != nil {
		return 0, memError(err)
	}
	copy(p, name)

	h := at + mem.AlignUp(n)
	if err := vm.mem.StorCell(h, vm.latest); err != nil {
		return 0, memError(err)
	}
	if err := vm.mem.StorCell(h+mem.CellSize, uint32(flags)|n<<8); err != nil {
		return 0, memError(err)
	}
	vm.latest = h
	vm.logf(":", "%v @%v %v", name, h, flags)
	return h, nil
}

func (vm *VM) wordInfo(h uint32) (Flags, uint32, error) {
	info, err := vm.mem.LoadCell(h + mem.CellSize)
	if err != nil {
		return 0, 0, memError(err)
	}
	return Flags(info), (info >> 8) & 0xff, nil
}

func (vm *VM) wordName(h uint32) string {
	_, n, err := vm.wordInfo(h)
	if err != nil || n > maxNameLen || h < n {
		return ""
	}
	p, err := vm.mem.Slice(h-mem.AlignUp(n), n)
	if err != nil {
		return ""
	}
	return string(p)
}

func (vm *VM) setFlags(h uint32, set, clear Flags) error {
	info, err := vm.mem.LoadCell(h + mem.CellSize)
	if err != nil {
		return memError(err)
	}
	info = info&^uint32(clear) | uint32(set)
	return memError(vm.mem.StorCell(h+mem.CellSize, info))
}

// walk calls f with each header, newest first, until f returns false.
func (vm *VM) walk(f func(h uint32) bool) {
	for h := vm.latest; h != nullAddr; {
		if !f(h) {
			return
		}
		link, err := vm.mem.LoadCell(h)
		if err != nil || link >= h {
			return
		}
		h = link
	}
}

func (vm *VM) lookup(name string) (found uint32, ok bool) {
	name = vm.foldName(name)
	vm.walk(func(h uint32) bool {
		flags, n, err := vm.wordInfo(h)
		if err != nil || flags&Hidden != 0 || int(n) != len(name) {
			return true
		}
		if vm.wordName(h) == name {
			found, ok = h, true
			return false
		}
		return true
	})
	return found, ok
}

func (vm *VM) isHeader(addr uint32) (is bool) {
	vm.walk(func(h uint32) bool {
		is = h == addr
		return !is && h > addr
	})
	return is
}

// abandon discards the definition being compiled.
func (vm *VM) abandon() {
	if vm.open != 0 {
		vm.logf("!", "abandon %q", vm.wordName(vm.open))
		vm.here, vm.latest = vm.openHere, vm.openLatest
		vm.open = 0
	}
}

func (vm *VM) compileCell(val uint32) (uint32, error) {
	at, err := vm.allocate(mem.CellSize)
	if err != nil {
		return 0, err
	}
	return at, memError(vm.mem.StorCell(at, val))
}

func (vm *VM) compileToken(kind tokenKind, arg uint32) (uint32, error) {
	at, err := vm.compileCell(uint32(makeToken(kind, arg)))
	if err == nil {
		vm.logf("+", "@%v %v", at, vm.tokenString(at))
	}
	return at, err
}

// compileOperand compiles a token followed by its operand, returning the
// operand address so that it may be patched later.
func (vm *VM) compileOperand(kind tokenKind, val uint32) (uint32, error) {
	if _, err := vm.compileCell(uint32(makeToken(kind, 0))); err != nil {
		return 0, err
	}
	at, err := vm.compileCell(val)
	if err == nil {
		vm.logf("+", "@%v %v", at-mem.CellSize, vm.tokenString(at-mem.CellSize))
	}
	return at, err
}

// compileWord compiles a reference to the word at h: builtins get their
// primitive token inlined, while other words are called.
func (vm *VM) compileWord(h uint32) error {
	flags, _, err := vm.wordInfo(h)
	if err != nil {
		return err
	}
	if flags&loopOnly != 0 && !vm.inLoop() {
		return fixupError{[]fixupKind{fixupDo}, vm.topFixup()}
	}
	if flags&Builtin != 0 {
		tok, err := vm.mem.LoadCell(h + headerSize)
		if err != nil {
			return memError(err)
		}
		_, err = vm.compileCell(tok)
		if err == nil {
			vm.logf("+", "@%v %v", vm.here-mem.CellSize, vm.tokenString(vm.here-mem.CellSize))
		}
		return err
	}
	_, err = vm.compileToken(tokCall, h+headerSize)
	return err
}
