package forthvm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jcorbin/forthvm/internal/runeio"
)

// builtinLibrary is the default primitive library, installed after the
// compiler words.
var builtinLibrary = []Primitive{
	// stack manipulation
	{"dup", 0, (*VM).dup},
	{"drop", 0, (*VM).drop},
	{"swap", 0, (*VM).swap},
	{"over", 0, (*VM).over},
	{"rot", 0, (*VM).rot},
	{"-rot", 0, (*VM).minusRot},
	{"nip", 0, (*VM).nip},
	{"tuck", 0, (*VM).tuck},
	{"?dup", 0, (*VM).qdup},
	{"pick", 0, (*VM).pick},
	{"depth", 0, (*VM).depth},
	{"2dup", 0, (*VM).twoDup},
	{"2drop", 0, (*VM).twoDrop},
	{"2swap", 0, (*VM).twoSwap},
	{"2over", 0, (*VM).twoOver},

	// return stack
	{">r", CompileOnly, (*VM).toR},
	{"r>", CompileOnly, (*VM).fromR},
	{"r@", CompileOnly, (*VM).fetchR},

	// arithmetic
	{"+", 0, binop(func(a, b Cell) Cell { return a + b })},
	{"-", 0, binop(func(a, b Cell) Cell { return a - b })},
	{"*", 0, binop(func(a, b Cell) Cell { return a * b })},
	{"/", 0, (*VM).div},
	{"mod", 0, (*VM).mod},
	{"/mod", 0, (*VM).divMod},
	{"negate", 0, unop(func(a Cell) Cell { return -a })},
	{"abs", 0, unop(func(a Cell) Cell {
		if a < 0 {
			return -a
		}
		return a
	})},
	{"min", 0, binop(func(a, b Cell) Cell {
		if b < a {
			return b
		}
		return a
	})},
	{"max", 0, binop(func(a, b Cell) Cell {
		if b > a {
			return b
		}
		return a
	})},
	{"1+", 0, unop(func(a Cell) Cell { return a + 1 })},
	{"1-", 0, unop(func(a Cell) Cell { return a - 1 })},
	{"2*", 0, unop(func(a Cell) Cell { return a << 1 })},
	{"2/", 0, unop(func(a Cell) Cell { return a >> 1 })},

	// comparison
	{"=", 0, cmpop(func(a, b Cell) bool { return a == b })},
	{"<>", 0, cmpop(func(a, b Cell) bool { return a != b })},
	{"<", 0, cmpop(func(a, b Cell) bool { return a < b })},
	{">", 0, cmpop(func(a, b Cell) bool { return a > b })},
	{"u<", 0, cmpop(func(a, b Cell) bool { return uint32(a) < uint32(b) })},
	{"0=", 0, unop(func(a Cell) Cell { return flag(a == 0) })},
	{"0<", 0, unop(func(a Cell) Cell { return flag(a < 0) })},
	{"0>", 0, unop(func(a Cell) Cell { return flag(a > 0) })},
	{"true", 0, constop(-1)},
	{"false", 0, constop(0)},

	// bit operations
	{"and", 0, binop(func(a, b Cell) Cell { return a & b })},
	{"or", 0, binop(func(a, b Cell) Cell { return a | b })},
	{"xor", 0, binop(func(a, b Cell) Cell { return a ^ b })},
	{"invert", 0, unop(func(a Cell) Cell { return ^a })},
	{"lshift", 0, binop(func(a, b Cell) Cell { return Cell(uint32(a) << uint32(b)) })},
	{"rshift", 0, binop(func(a, b Cell) Cell { return Cell(uint32(a) >> uint32(b)) })},

	// memory
	{"@", 0, (*VM).fetchCell},
	{"!", 0, (*VM).store},
	{"c@", 0, (*VM).cFetch},
	{"c!", 0, (*VM).cStore},
	{"+!", 0, (*VM).plusStore},
	{"cells", 0, unop(func(a Cell) Cell { return a * 4 })},
	{"cell+", 0, unop(func(a Cell) Cell { return a + 4 })},
	{"base", 0, constop(baseAddr)},

	// number base
	{"hex", 0, setRadix(16)},
	{"decimal", 0, setRadix(10)},

	// output
	{"emit", 0, (*VM).emit},
	{".", 0, (*VM).dot},
	{"u.", 0, (*VM).uDot},
	{".s", 0, (*VM).dotS},
	{"cr", 0, (*VM).cr},
	{"space", 0, (*VM).space},
	{"spaces", 0, (*VM).spaces},
	{"type", 0, (*VM).typeOut},

	// introspection
	{"words", 0, (*VM).words},
	{"see", 0, (*VM).see},

	// execution
	{"'", 0, (*VM).tick},
	{"execute", 0, (*VM).execute},
}

func flag(b bool) Cell {
	if b {
		return -1
	}
	return 0
}

func binop(op func(a, b Cell) Cell) PrimitiveFunc {
	return func(vm *VM) error {
		b, err := vm.Pop()
		if err != nil {
			return err
		}
		a, err := vm.Pop()
		if err != nil {
			return err
		}
		return vm.Push(op(a, b))
	}
}

func cmpop(op func(a, b Cell) bool) PrimitiveFunc {
	return binop(func(a, b Cell) Cell { return flag(op(a, b)) })
}

func unop(op func(a Cell) Cell) PrimitiveFunc {
	return func(vm *VM) error {
		a, err := vm.Pop()
		if err != nil {
			return err
		}
		return vm.Push(op(a))
	}
}

func constop(val Cell) PrimitiveFunc {
	return func(vm *VM) error { return vm.Push(val) }
}

// popN pops n values, returning them in stack order, top last.
func (vm *VM) popN(n int) ([]Cell, error) {
	if uint32(n) > vm.ds.depth {
		return nil, stackError{vm.ds.name, ErrStackUnderflow}
	}
	vals := make([]Cell, n)
	for i := n - 1; i >= 0; i-- {
		val, err := vm.Pop()
		if err != nil {
			return nil, err
		}
		vals[i] = val
	}
	return vals, nil
}

func (vm *VM) pushN(vals ...Cell) error {
	for _, val := range vals {
		if err := vm.Push(val); err != nil {
			return err
		}
	}
	return nil
}

// shuffle pops n values, and pushes them back in the order given by perm,
// which indexes the popped values bottom first.
func (vm *VM) shuffle(n int, perm ...int) error {
	vals, err := vm.popN(n)
	if err != nil {
		return err
	}
	for _, i := range perm {
		if err := vm.Push(vals[i]); err != nil {
			return err
		}
	}
	return nil
}

//// Stack manipulation

func (vm *VM) dup() error      { return vm.shuffle(1, 0, 0) }
func (vm *VM) drop() error     { return vm.ds.drop(1) }
func (vm *VM) swap() error     { return vm.shuffle(2, 1, 0) }
func (vm *VM) over() error     { return vm.shuffle(2, 0, 1, 0) }
func (vm *VM) rot() error      { return vm.shuffle(3, 1, 2, 0) }
func (vm *VM) minusRot() error { return vm.shuffle(3, 2, 0, 1) }
func (vm *VM) nip() error      { return vm.shuffle(2, 1) }
func (vm *VM) tuck() error     { return vm.shuffle(2, 1, 0, 1) }
func (vm *VM) twoDup() error   { return vm.shuffle(2, 0, 1, 0, 1) }
func (vm *VM) twoDrop() error  { return vm.ds.drop(2) }
func (vm *VM) twoSwap() error  { return vm.shuffle(4, 2, 3, 0, 1) }
func (vm *VM) twoOver() error  { return vm.shuffle(4, 0, 1, 2, 3, 0, 1) }

func (vm *VM) qdup() error {
	top, err := vm.Peek(0)
	if err == nil && top != 0 {
		err = vm.Push(top)
	}
	return err
}

func (vm *VM) pick() error {
	n, err := vm.Pop()
	if err != nil {
		return err
	}
	val, err := vm.Peek(int(n))
	if err != nil {
		return err
	}
	return vm.Push(val)
}

func (vm *VM) depth() error { return vm.Push(Cell(vm.ds.depth)) }

//// Return stack

func (vm *VM) toR() error {
	val, err := vm.ds.pop()
	if err == nil {
		err = vm.rs.push(val)
	}
	return err
}

func (vm *VM) fromR() error {
	val, err := vm.rs.pop()
	if err == nil {
		err = vm.ds.push(val)
	}
	return err
}

func (vm *VM) fetchR() error { return vm.pushRStack(0) }

//// Division

func (vm *VM) divide() (q, r Cell, err error) {
	vals, err := vm.popN(2)
	if err != nil {
		return 0, 0, err
	}
	a, b := vals[0], vals[1]
	if b == 0 {
		return 0, 0, ErrDivisionByZero
	}
	return a / b, a % b, nil
}

func (vm *VM) div() error {
	q, _, err := vm.divide()
	if err == nil {
		err = vm.Push(q)
	}
	return err
}

func (vm *VM) mod() error {
	_, r, err := vm.divide()
	if err == nil {
		err = vm.Push(r)
	}
	return err
}

func (vm *VM) divMod() error {
	q, r, err := vm.divide()
	if err == nil {
		err = vm.pushN(r, q)
	}
	return err
}

//// Memory

func (vm *VM) fetchCell() error {
	addr, err := vm.Pop()
	if err != nil {
		return err
	}
	val, err := vm.Load(addr)
	if err != nil {
		return err
	}
	return vm.Push(val)
}

func (vm *VM) store() error {
	vals, err := vm.popN(2)
	if err != nil {
		return err
	}
	return vm.Store(vals[1], vals[0])
}

func (vm *VM) plusStore() error {
	vals, err := vm.popN(2)
	if err != nil {
		return err
	}
	val, err := vm.Load(vals[1])
	if err != nil {
		return err
	}
	return vm.Store(vals[1], val+vals[0])
}

func (vm *VM) cFetch() error {
	addr, err := vm.Pop()
	if err != nil {
		return err
	}
	p, err := vm.dataBytes(uint32(addr), 1)
	if err != nil {
		return err
	}
	return vm.Push(Cell(p[0]))
}

func (vm *VM) cStore() error {
	vals, err := vm.popN(2)
	if err != nil {
		return err
	}
	p, err := vm.dataBytes(uint32(vals[1]), 1)
	if err != nil {
		return err
	}
	p[0] = byte(vals[0])
	return nil
}

func setRadix(radix Cell) PrimitiveFunc {
	return func(vm *VM) error { return vm.Store(baseAddr, radix) }
}

//// Output

func (vm *VM) emit() error {
	r, err := vm.Pop()
	if err == nil {
		_, err = runeio.WriteANSIRune(vm.out, rune(r))
	}
	return err
}

func (vm *VM) formatCell(val Cell, unsigned bool) (string, error) {
	base, err := vm.radix()
	if err != nil {
		return "", err
	}
	var s string
	if unsigned {
		s = strconv.FormatUint(uint64(uint32(val)), base)
	} else {
		s = strconv.FormatInt(int64(val), base)
	}
	return strings.ToUpper(s), nil
}

func (vm *VM) printCell(unsigned bool) error {
	val, err := vm.Pop()
	if err != nil {
		return err
	}
	s, err := vm.formatCell(val, unsigned)
	if err == nil {
		_, err = io.WriteString(vm.out, s+" ")
	}
	return err
}

func (vm *VM) dot() error  { return vm.printCell(false) }
func (vm *VM) uDot() error { return vm.printCell(true) }

func (vm *VM) dotS() error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<%v> ", vm.ds.depth)
	for _, val := range vm.ds.cells() {
		s, err := vm.formatCell(val, false)
		if err != nil {
			return err
		}
		sb.WriteString(s)
		sb.WriteByte(' ')
	}
	_, err := io.WriteString(vm.out, sb.String())
	return err
}

func (vm *VM) cr() error {
	_, err := io.WriteString(vm.out, "\n")
	return err
}

func (vm *VM) space() error {
	_, err := io.WriteString(vm.out, " ")
	return err
}

const blanks = "                                                                "

func (vm *VM) spaces() error {
	n, err := vm.Pop()
	for ; err == nil && n > 0; n -= Cell(len(blanks)) {
		chunk := blanks
		if n < Cell(len(chunk)) {
			chunk = chunk[:n]
		}
		_, err = io.WriteString(vm.out, chunk)
	}
	return err
}

func (vm *VM) typeOut() error {
	vals, err := vm.popN(2)
	if err != nil {
		return err
	}
	addr, n := vals[0], vals[1]
	if n <= 0 {
		return nil
	}
	p, err := vm.dataBytes(uint32(addr), uint32(n))
	if err == nil {
		_, err = vm.out.Write(p)
	}
	return err
}

//// Introspection

func (vm *VM) words() error {
	_, err := io.WriteString(vm.out, strings.Join(vm.Words(), " ")+"\n")
	return err
}

func (vm *VM) see() error {
	name, err := vm.parseName()
	if err != nil {
		return err
	}
	h, found := vm.lookup(name)
	if !found {
		return fmt.Errorf("%w %q", ErrUnknownWord, name)
	}
	return vmDumper{vm: vm, out: vm.out}.see(h)
}

//// Execution

// tick pushes the execution token of the next word, which is its header
// address.
func (vm *VM) tick() error {
	name, err := vm.parseName()
	if err != nil {
		return err
	}
	h, found := vm.lookup(name)
	if !found {
		return fmt.Errorf("%w %q", ErrUnknownWord, name)
	}
	return vm.ds.push(h)
}

// execute calls the word whose execution token is on top of the stack.
func (vm *VM) execute() error {
	xt, err := vm.ds.pop()
	if err != nil {
		return err
	}
	if !vm.isHeader(xt) {
		return fmt.Errorf("%w: no word @%v", ErrInvalidAddress, xt)
	}
	flags, _, err := vm.wordInfo(xt)
	if err != nil {
		return err
	}
	if !vm.compiling && flags&CompileOnly != 0 {
		return ErrCompileOnly
	}
	return vm.call(xt)
}
