package forthvm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jcorbin/forthvm/internal/panicerr"
	"github.com/jcorbin/forthvm/internal/runeio"
)

// ProcessLine interprets one line of input text. Interpreter mode, the
// dictionary, and any open definition carry over between lines.
//
// Any failure stops processing the rest of the line and is returned as a
// *Fault. The VM then discards any open definition, clears its return and
// control stacks, and goes back to interpreting; faults raised by executing
// code also clear the data stack, while faults raised while reading or
// compiling input leave it as it was.
func (vm *VM) ProcessLine(line string) error {
	vm.line, vm.pos, vm.token = line, 0, ""
	vm.steps = 0
	vm.logf("<", "%q", line)

	err := panicerr.Recover("ProcessLine", vm.interpret)
	if err != nil {
		if panicerr.IsPanic(err) || panicerr.IsExit(err) {
			vm.logf("!", "%+v", err)
			err = panicFault(err)
		}
		fault := vm.fault(err)
		if ferr := vm.out.Flush(); ferr != nil {
			vm.logf("!", "flush failed: %v", ferr)
		}
		return fault
	}
	return vm.Flush()
}

func (vm *VM) interpret() error {
	for {
		tok := vm.nextToken()
		if tok == "" {
			return nil
		}
		vm.token, vm.cur = tok, 0
		if err := vm.interpretToken(tok); err != nil {
			return err
		}
	}
}

func (vm *VM) interpretToken(tok string) error {
	if h, found := vm.lookup(tok); found {
		flags, _, err := vm.wordInfo(h)
		if err != nil {
			return err
		}
		if vm.compiling && flags&Immediate == 0 {
			return vm.compileWord(h)
		}
		if !vm.compiling && flags&CompileOnly != 0 {
			return ErrCompileOnly
		}
		if err := vm.run(h); err != nil {
			return err
		}
		vm.cur = 0
		return nil
	}

	val, err := vm.parseLiteral(tok)
	if err != nil {
		return err
	}
	if vm.compiling {
		_, err := vm.compileOperand(tokLit, uint32(val))
		return err
	}
	return vm.ds.push(uint32(val))
}

// parseLiteral parses a number in the current radix, allowing a leading
// minus sign and wrapping unsigned values that only fit 32 bits, or else a
// character literal like 'A' <ESC> or ^[.
func (vm *VM) parseLiteral(tok string) (Cell, error) {
	base, err := vm.radix()
	if err != nil {
		return 0, err
	}
	digits, neg := tok, false
	if len(digits) > 1 && digits[0] == '-' {
		digits, neg = digits[1:], true
	}
	if u, err := strconv.ParseUint(digits, base, 32); err == nil {
		val := Cell(uint32(u))
		if neg {
			val = -val
		}
		return val, nil
	}
	if r, err := runeio.UnquoteRune(tok); err == nil {
		return Cell(r), nil
	}
	return 0, ErrUnknownWord
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// nextToken returns the next run of non-whitespace from the current line,
// or "" at end of line.
func (vm *VM) nextToken() string {
	for vm.pos < len(vm.line) && isSpace(vm.line[vm.pos]) {
		vm.pos++
	}
	start := vm.pos
	for vm.pos < len(vm.line) && !isSpace(vm.line[vm.pos]) {
		vm.pos++
	}
	return vm.line[start:vm.pos]
}

// parseUntil returns the text up to the next delim, skipping the single
// space that separates it from the word that parses it; text runs to the end
// of the line when there is no delim.
func (vm *VM) parseUntil(delim byte) string {
	if vm.pos < len(vm.line) && isSpace(vm.line[vm.pos]) {
		vm.pos++
	}
	rest := vm.line[vm.pos:]
	if i := strings.IndexByte(rest, delim); i >= 0 {
		vm.pos += i + 1
		return rest[:i]
	}
	vm.pos = len(vm.line)
	return rest
}

// parseName reads the next token as the name operand of a parsing word.
func (vm *VM) parseName() (string, error) {
	name := vm.nextToken()
	if name == "" {
		return "", fmt.Errorf("%w after %q", ErrMissingName, vm.token)
	}
	return name, nil
}

func (vm *VM) fault(err error) *Fault {
	f := &Fault{Err: err, Token: vm.token, Line: vm.line}
	if vm.cur != 0 {
		f.Word = vm.wordName(vm.cur)
	}
	vm.logf("!", "%v", f)
	keepStack := compileFault(err, vm.compiling)

	vm.abandon()
	vm.compiling = false
	vm.rs.reset()
	vm.cs.reset()
	if !keepStack {
		vm.ds.reset()
	}
	vm.ip, vm.cur = 0, 0
	return f
}

// IsFault returns the *Fault within err, if any.
func IsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
