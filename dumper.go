package forthvm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jcorbin/forthvm/internal/mem"
)

type fmtBuf interface {
	Len() int
	Write(p []byte) (n int, err error)
	WriteByte(c byte) error
	WriteRune(r rune) (n int, err error)
	WriteString(s string) (n int, err error)
}

type vmDumper struct {
	vm  *VM
	out io.Writer

	addrWidth int
}

func (dump vmDumper) dump() {
	vm := dump.vm
	fmt.Fprintf(dump.out, "# VM Dump\n")
	fmt.Fprintf(dump.out, "  here: %v latest: %v limit: %v size: %v\n",
		vm.here, vm.latest, vm.dictLimit, vm.mem.Len())
	if vm.compiling {
		fmt.Fprintf(dump.out, "  compiling: %q\n", vm.wordName(vm.open))
	}
	if base, err := vm.mem.LoadCell(baseAddr); err == nil && base != 10 {
		fmt.Fprintf(dump.out, "  base: %v\n", int32(base))
	}
	fmt.Fprintf(dump.out, "  stack: %v\n", vm.ds.cells())
	fmt.Fprintf(dump.out, "  rstack: %v\n", vm.rs.cells())
	if vm.cs.depth > 0 {
		fmt.Fprintf(dump.out, "  cstack: %v\n", vm.cs.cells())
	}
	dump.dumpWords()
}

// dumpWords lists every non-builtin word, oldest first.
func (dump vmDumper) dumpWords() {
	vm := dump.vm
	if dump.addrWidth == 0 {
		dump.addrWidth = len(strconv.Itoa(int(vm.here)))
	}

	var words []uint32
	builtins := 0
	vm.walk(func(h uint32) bool {
		if flags, _, err := vm.wordInfo(h); err == nil && flags&Builtin != 0 {
			builtins++
		} else {
			words = append(words, h)
		}
		return true
	})

	fmt.Fprintf(dump.out, "# Dictionary (%v builtins)\n", builtins)
	var buf strings.Builder
	for i := len(words) - 1; i >= 0; i-- {
		h := words[i]
		fmt.Fprintf(&buf, "  @%*v ", dump.addrWidth, h)
		dump.formatWord(&buf, h)
		buf.WriteByte('\n')
		io.WriteString(dump.out, buf.String())
		buf.Reset()
	}
}

// see writes a decompiled listing of the word at h.
func (dump vmDumper) see(h uint32) error {
	var buf strings.Builder
	dump.formatWord(&buf, h)
	buf.WriteByte('\n')
	_, err := io.WriteString(dump.out, buf.String())
	return err
}

func (dump vmDumper) formatWord(buf fmtBuf, h uint32) {
	vm := dump.vm
	flags, _, _ := vm.wordInfo(h)
	if flags&Builtin != 0 {
		buf.WriteString("builtin ")
		dump.formatName(buf, h)
	} else {
		buf.WriteString(": ")
		dump.formatName(buf, h)
		dump.formatBody(buf, h+headerSize)
		buf.WriteString(" ;")
	}
	if flags&Immediate != 0 {
		buf.WriteString(" immediate")
	}
	if flags&Hidden != 0 {
		buf.WriteString(" hidden")
	}
}

func (dump vmDumper) formatName(buf fmtBuf, h uint32) {
	if name := dump.vm.wordName(h); name != "" {
		buf.WriteString(name)
	} else {
		fmt.Fprintf(buf, "UNNAMED_%v", h)
	}
}

// formatBody decompiles threaded code from at up to the exit that ends it:
// the first one that no forward branch jumps past.
func (dump vmDumper) formatBody(buf fmtBuf, at uint32) {
	vm := dump.vm
	var reach uint32
	for at < vm.here {
		code, err := vm.mem.LoadCell(at)
		if err != nil {
			return
		}
		tok := token(code)
		if tok.kind() == tokExit && at >= reach {
			return
		}
		buf.WriteByte(' ')
		if next, ok := dump.formatString(buf, at); ok {
			at = next
			continue
		}
		switch tok.kind() {
		case tokBranch, tokBranch0, tokDo:
			if target, err := vm.mem.LoadCell(at + mem.CellSize); err == nil && target > reach {
				reach = target
			}
		}
		at = dump.formatToken(buf, at)
	}
}

// formatString recognizes the code compiled for string literals: a branch
// over the string bytes, followed by their address and length, and then
// (type) if the string was to be printed.
func (dump vmDumper) formatString(buf fmtBuf, at uint32) (uint32, bool) {
	vm := dump.vm
	load := func(addr uint32) uint32 {
		val, _ := vm.mem.LoadCell(addr)
		return val
	}
	if token(load(at)).kind() != tokBranch {
		return 0, false
	}
	data, end := at+2*mem.CellSize, load(at+mem.CellSize)
	if end < data || end+4*mem.CellSize > vm.here ||
		load(end) != uint32(makeToken(tokLit, 0)) || load(end+mem.CellSize) != data ||
		load(end+2*mem.CellSize) != uint32(makeToken(tokLit, 0)) {
		return 0, false
	}
	n := load(end + 3*mem.CellSize)
	if n > end-data {
		return 0, false
	}
	text, err := vm.mem.Slice(data, n)
	if err != nil {
		return 0, false
	}
	next := end + 4*mem.CellSize
	if next < vm.here && load(next) == uint32(makeToken(tokPrim, primType)) {
		fmt.Fprintf(buf, ".\" %s\"", text)
		return next + mem.CellSize, true
	}
	fmt.Fprintf(buf, "s\" %s\"", text)
	return next, true
}

// formatToken writes the token at the given address, and any operand,
// returning the address after them.
func (dump vmDumper) formatToken(buf fmtBuf, at uint32) uint32 {
	vm := dump.vm
	code, err := vm.mem.LoadCell(at)
	if err != nil {
		fmt.Fprintf(buf, "?@%v", at)
		return at + mem.CellSize
	}
	at += mem.CellSize

	tok := token(code)
	var operand uint32
	if kind := tok.kind(); kind.hasOperand() {
		operand, _ = vm.mem.LoadCell(at)
		at += mem.CellSize
	}

	switch kind := tok.kind(); kind {
	case tokExit:
		buf.WriteString("exit")
	case tokPrim:
		if idx := tok.arg(); idx < uint32(len(vm.prims)) {
			buf.WriteString(vm.prims[idx].Name)
		} else {
			fmt.Fprintf(buf, "prim#%v", idx)
		}
	case tokCall:
		if h := tok.arg() - headerSize; vm.isHeader(h) {
			dump.formatName(buf, h)
		} else {
			fmt.Fprintf(buf, "call@%v", tok.arg())
		}
	case tokLit:
		buf.WriteString(strconv.Itoa(int(int32(operand))))
	case tokBranch, tokBranch0, tokDo, tokLoop, tokPlusLoop:
		fmt.Fprintf(buf, "%v@%v", kind, operand)
	default:
		fmt.Fprintf(buf, "?%#x", code)
	}
	return at
}

func (vm *VM) tokenString(at uint32) string {
	var buf strings.Builder
	vmDumper{vm: vm}.formatToken(&buf, at)
	return buf.String()
}
