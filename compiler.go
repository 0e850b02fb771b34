package forthvm

import (
	"fmt"
	"unicode/utf8"

	"github.com/jcorbin/forthvm/internal/mem"
)

// Control structures compile forward branches with a placeholder target,
// pushing a fixup entry {kind, site} onto the control stack; the word that
// closes the structure pops the entry and patches the site.
type fixupKind uint32

const (
	fixupNone fixupKind = iota
	fixupIf
	fixupElse
	fixupBegin
	fixupWhile
	fixupDo
)

var fixupNames = [...]string{"none", "if", "else", "begin", "while", "do"}

func (kind fixupKind) String() string {
	if int(kind) < len(fixupNames) {
		return fixupNames[kind]
	}
	return fmt.Sprintf("fixup(%d)", uint32(kind))
}

func (vm *VM) pushFixup(kind fixupKind, site uint32) error {
	if err := vm.cs.push(uint32(kind)); err != nil {
		return err
	}
	return vm.cs.push(site)
}

func (vm *VM) topFixup() fixupKind {
	kind, err := vm.cs.peek(1)
	if err != nil {
		return fixupNone
	}
	return fixupKind(kind)
}

func (vm *VM) popFixup(want ...fixupKind) (uint32, error) {
	got := vm.topFixup()
	for _, kind := range want {
		if got == kind {
			site, err := vm.cs.pop()
			if err == nil {
				err = vm.cs.drop(1)
			}
			return site, err
		}
	}
	return 0, fixupError{want, got}
}

// inLoop returns true if any open control structure is a do loop.
func (vm *VM) inLoop() bool {
	for n := uint32(1); n < vm.cs.depth; n += 2 {
		if kind, err := vm.cs.peek(n); err == nil && fixupKind(kind) == fixupDo {
			return true
		}
	}
	return false
}

func (vm *VM) patch(site, target uint32) error {
	return memError(vm.mem.StorCell(site, target))
}

// primType is the runtime of compiled string output; it has no header.
const primType = 0

var runtimePrimitives = []Primitive{
	{"(type)", 0, (*VM).typeOut},
}

var compilerWords = []Primitive{
	{":", Immediate, (*VM).colon},
	{";", Immediate | CompileOnly, (*VM).semicolon},
	{"immediate", 0, (*VM).immediate},
	{"recurse", Immediate | CompileOnly, (*VM).recurse},
	{"literal", Immediate | CompileOnly, (*VM).literal},
	{"exit", Immediate | CompileOnly, (*VM).exit},

	{"if", Immediate | CompileOnly, (*VM).ifWord},
	{"else", Immediate | CompileOnly, (*VM).elseWord},
	{"then", Immediate | CompileOnly, (*VM).thenWord},
	{"begin", Immediate | CompileOnly, (*VM).begin},
	{"until", Immediate | CompileOnly, (*VM).until},
	{"again", Immediate | CompileOnly, (*VM).again},
	{"while", Immediate | CompileOnly, (*VM).while},
	{"repeat", Immediate | CompileOnly, (*VM).repeat},
	{"do", Immediate | CompileOnly, (*VM).do},
	{"loop", Immediate | CompileOnly, (*VM).loop},
	{"+loop", Immediate | CompileOnly, (*VM).plusLoop},
	{"i", CompileOnly | loopOnly, (*VM).loopIndex},
	{"j", CompileOnly | loopOnly, (*VM).outerIndex},
	{"leave", CompileOnly | loopOnly, (*VM).leave},
	{"unloop", CompileOnly | loopOnly, (*VM).unloop},

	{"(", Immediate, (*VM).comment},
	{"\\", Immediate, (*VM).lineComment},
	{".\"", Immediate, (*VM).dotQuote},
	{"s\"", Immediate, (*VM).sQuote},
	{"char", 0, (*VM).char},
	{"[char]", Immediate | CompileOnly, (*VM).bracketChar},

	{"constant", 0, (*VM).constant},
	{"variable", 0, (*VM).variable},
	{"create", 0, (*VM).create},
	{"allot", 0, (*VM).allot},
	{",", 0, (*VM).comma},
	{"c,", 0, (*VM).cComma},
	{"here", 0, (*VM).hereWord},
}

//// Definitions

func (vm *VM) colon() error {
	if vm.compiling {
		return ErrNestedDefinition
	}
	name, err := vm.parseName()
	if err != nil {
		return err
	}
	here, latest := vm.here, vm.latest
	h, err := vm.define(name, Hidden)
	if err != nil {
		return err
	}
	vm.open, vm.openHere, vm.openLatest = h, here, latest
	vm.compiling = true
	return nil
}

func (vm *VM) semicolon() error {
	if !vm.compiling {
		return ErrCompileOnly
	}
	if vm.cs.depth > 0 {
		return fixupError{got: vm.topFixup()}
	}
	if _, err := vm.compileToken(tokExit, 0); err != nil {
		return err
	}
	if err := vm.setFlags(vm.open, 0, Hidden); err != nil {
		return err
	}
	vm.logf(";", "%v", vm.wordName(vm.open))
	vm.open = 0
	vm.compiling = false
	return nil
}

func (vm *VM) immediate() error { return vm.setFlags(vm.latest, Immediate, 0) }

func (vm *VM) recurse() error {
	if vm.open == 0 {
		return ErrCompileOnly
	}
	_, err := vm.compileToken(tokCall, vm.open+headerSize)
	return err
}

func (vm *VM) literal() error {
	val, err := vm.ds.pop()
	if err == nil {
		_, err = vm.compileOperand(tokLit, val)
	}
	return err
}

func (vm *VM) exit() error {
	_, err := vm.compileToken(tokExit, 0)
	return err
}

//// Conditionals

func (vm *VM) ifWord() error {
	site, err := vm.compileOperand(tokBranch0, 0)
	if err != nil {
		return err
	}
	return vm.pushFixup(fixupIf, site)
}

func (vm *VM) elseWord() error {
	site, err := vm.popFixup(fixupIf)
	if err != nil {
		return err
	}
	elseSite, err := vm.compileOperand(tokBranch, 0)
	if err != nil {
		return err
	}
	if err := vm.patch(site, vm.here); err != nil {
		return err
	}
	return vm.pushFixup(fixupElse, elseSite)
}

func (vm *VM) thenWord() error {
	site, err := vm.popFixup(fixupIf, fixupElse)
	if err != nil {
		return err
	}
	return vm.patch(site, vm.here)
}

//// Indefinite loops

func (vm *VM) begin() error { return vm.pushFixup(fixupBegin, vm.here) }

func (vm *VM) until() error {
	site, err := vm.popFixup(fixupBegin)
	if err == nil {
		_, err = vm.compileOperand(tokBranch0, site)
	}
	return err
}

func (vm *VM) again() error {
	site, err := vm.popFixup(fixupBegin)
	if err == nil {
		_, err = vm.compileOperand(tokBranch, site)
	}
	return err
}

func (vm *VM) while() error {
	if got := vm.topFixup(); got != fixupBegin {
		return fixupError{[]fixupKind{fixupBegin}, got}
	}
	site, err := vm.compileOperand(tokBranch0, 0)
	if err != nil {
		return err
	}
	return vm.pushFixup(fixupWhile, site)
}

func (vm *VM) repeat() error {
	whileSite, err := vm.popFixup(fixupWhile)
	if err != nil {
		return err
	}
	beginSite, err := vm.popFixup(fixupBegin)
	if err != nil {
		return err
	}
	if _, err := vm.compileOperand(tokBranch, beginSite); err != nil {
		return err
	}
	return vm.patch(whileSite, vm.here)
}

//// Counted loops

func (vm *VM) do() error {
	site, err := vm.compileOperand(tokDo, 0)
	if err != nil {
		return err
	}
	return vm.pushFixup(fixupDo, site)
}

func (vm *VM) loop() error     { return vm.closeLoop(tokLoop) }
func (vm *VM) plusLoop() error { return vm.closeLoop(tokPlusLoop) }

// closeLoop compiles the loop step back to the first token after the do,
// and patches the do's leave address to point past it.
func (vm *VM) closeLoop(kind tokenKind) error {
	site, err := vm.popFixup(fixupDo)
	if err != nil {
		return err
	}
	if _, err := vm.compileOperand(kind, site+mem.CellSize); err != nil {
		return err
	}
	return vm.patch(site, vm.here)
}

func (vm *VM) loopIndex() error  { return vm.pushRStack(0) }
func (vm *VM) outerIndex() error { return vm.pushRStack(3) }

func (vm *VM) pushRStack(n uint32) error {
	val, err := vm.rs.peek(n)
	if err == nil {
		err = vm.ds.push(val)
	}
	return err
}

func (vm *VM) leave() error {
	leave, err := vm.rs.peek(2)
	if err != nil {
		return err
	}
	vm.ip = leave
	return vm.rs.drop(3)
}

func (vm *VM) unloop() error { return vm.rs.drop(3) }

//// Parsing words

func (vm *VM) comment() error {
	vm.parseUntil(')')
	return nil
}

func (vm *VM) lineComment() error {
	vm.pos = len(vm.line)
	return nil
}

func (vm *VM) dotQuote() error {
	text := vm.parseUntil('"')
	if !vm.compiling {
		_, err := vm.out.Write([]byte(text))
		return err
	}
	if err := vm.compileString(text); err != nil {
		return err
	}
	_, err := vm.compileToken(tokPrim, primType)
	return err
}

// sQuote leaves the address and length of a string. While interpreting the
// string is only stored transiently at here, and gets overwritten by the next
// dictionary allocation.
func (vm *VM) sQuote() error {
	text := vm.parseUntil('"')
	if vm.compiling {
		return vm.compileString(text)
	}
	n := uint32(len(text))
	if uint64(vm.here)+uint64(n) > uint64(vm.dictLimit) {
		return fmt.Errorf("%w: no room for a %v byte string", ErrOutOfMemory, n)
	}
	p, err := vm.mem.Slice(vm.here, n)
	if err != nil {
		return memError(err)
	}
	copy(p, text)
	if err := vm.ds.push(vm.here); err != nil {
		return err
	}
	return vm.ds.push(n)
}

// compileString compiles a branch over the string bytes, followed by
// literals of their address and length.
func (vm *VM) compileString(text string) error {
	site, err := vm.compileOperand(tokBranch, 0)
	if err != nil {
		return err
	}
	n := uint32(len(text))
	addr, err := vm.allocate(n)
	if err != nil {
		return err
	}
	p, err := vm.mem.Slice(addr, n)
	if err != nil {
		return memError(err)
	}
	copy(p, text)
	if err := vm.patch(site, vm.here); err != nil {
		return err
	}
	if _, err := vm.compileOperand(tokLit, addr); err != nil {
		return err
	}
	_, err = vm.compileOperand(tokLit, n)
	return err
}

func (vm *VM) parseChar() (rune, error) {
	name, err := vm.parseName()
	if err != nil {
		return 0, err
	}
	r, _ := utf8.DecodeRuneInString(name)
	return r, nil
}

func (vm *VM) char() error {
	r, err := vm.parseChar()
	if err == nil {
		err = vm.ds.push(uint32(r))
	}
	return err
}

func (vm *VM) bracketChar() error {
	r, err := vm.parseChar()
	if err == nil {
		_, err = vm.compileOperand(tokLit, uint32(r))
	}
	return err
}

//// Defining words

func (vm *VM) constant() error {
	val, err := vm.ds.pop()
	if err != nil {
		return err
	}
	return vm.defineData(true, val, 0)
}

func (vm *VM) variable() error { return vm.defineData(false, 0, mem.CellSize) }
func (vm *VM) create() error   { return vm.defineData(false, 0, 0) }

// defineData defines a word that pushes a constant value, or else the
// address of its data field: the dictionary space following its body, of
// which size bytes get allocated.
func (vm *VM) defineData(constant bool, val, size uint32) error {
	name, err := vm.parseName()
	if err != nil {
		return err
	}
	h, err := vm.define(name, 0)
	if err != nil {
		return err
	}
	if !constant {
		val = h + headerSize + 3*mem.CellSize
	}
	if _, err := vm.compileOperand(tokLit, val); err != nil {
		return err
	}
	if _, err := vm.compileToken(tokExit, 0); err != nil {
		return err
	}
	if size > 0 {
		_, err = vm.allocate(size)
	}
	return err
}

func (vm *VM) allot() error {
	val, err := vm.ds.pop()
	if err != nil {
		return err
	}
	if n := int32(val); n < 0 {
		dec := mem.AlignUp(uint32(-int64(n)))
		if floor := vm.latest + headerSize; vm.here < dec || vm.here-dec < floor {
			return addrError{mem.AddrError{Addr: vm.here - dec, Op: "allot", Reason: "below latest header"}}
		}
		vm.here -= dec
		return nil
	}
	_, err = vm.allocate(val)
	return err
}

func (vm *VM) comma() error {
	val, err := vm.ds.pop()
	if err == nil {
		_, err = vm.compileCell(val)
	}
	return err
}

func (vm *VM) cComma() error {
	val, err := vm.ds.pop()
	if err != nil {
		return err
	}
	at, err := vm.allocate(1)
	if err != nil {
		return err
	}
	return memError(vm.mem.StorByte(at, byte(val)))
}

func (vm *VM) hereWord() error { return vm.ds.push(vm.here) }
