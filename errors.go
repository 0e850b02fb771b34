package forthvm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jcorbin/forthvm/internal/blocks"
	"github.com/jcorbin/forthvm/internal/mem"
	"github.com/jcorbin/forthvm/internal/panicerr"
)

// Faults reported by ProcessLine; test for them with errors.Is.
var (
	ErrStackUnderflow        = errors.New("stack underflow")
	ErrStackOverflow         = errors.New("stack overflow")
	ErrOutOfMemory           = errors.New("out of memory")
	ErrDictionaryFull        = errors.New("dictionary full")
	ErrUnknownWord           = errors.New("unknown word")
	ErrUnbalancedControlFlow = errors.New("unbalanced control flow")
	ErrNestedDefinition      = errors.New("nested definition")
	ErrStepBudgetExceeded    = errors.New("step budget exceeded")
	ErrInvalidAddress        = errors.New("invalid address")

	ErrCompileOnly     = errors.New("compile only word")
	ErrMissingName     = errors.New("missing name")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidRadix    = errors.New("invalid radix")
	ErrBlockOutOfRange = errors.New("block out of range")
	ErrBlockIO         = errors.New("block i/o error")
	ErrPrimitivePanic  = errors.New("primitive panic")
)

// Fault describes why processing a line stopped.
type Fault struct {
	Err   error  // one of the Err* sentinels, possibly wrapped
	Token string // input token being processed, if any
	Word  string // name of the word executing when the fault hit, if any
	Line  string // the input line
}

func (f *Fault) Error() string {
	var sb strings.Builder
	sb.WriteString(f.Err.Error())
	if f.Token != "" {
		fmt.Fprintf(&sb, " processing %q", f.Token)
	}
	if f.Word != "" && !strings.EqualFold(f.Word, f.Token) {
		fmt.Fprintf(&sb, " in %v", f.Word)
	}
	return sb.String()
}

func (f *Fault) Unwrap() error { return f.Err }

type stackError struct {
	stack string
	err   error
}

func (se stackError) Error() string { return fmt.Sprintf("%v %v", se.stack, se.err) }
func (se stackError) Unwrap() error { return se.err }

type addrError struct {
	mem.AddrError
}

func (ae addrError) Unwrap() error { return ErrInvalidAddress }

type tokenError struct {
	at   uint32
	cell uint32
}

func (te tokenError) Error() string {
	return fmt.Sprintf("invalid token %#x @%v", te.cell, te.at)
}
func (te tokenError) Unwrap() error { return ErrInvalidToken }

type fixupError struct {
	want []fixupKind
	got  fixupKind
}

func (fe fixupError) Error() string {
	switch {
	case len(fe.want) == 0:
		return fmt.Sprintf("%v: unclosed %v", ErrUnbalancedControlFlow, fe.got)
	case fe.got == fixupNone:
		return fmt.Sprintf("%v: missing %v", ErrUnbalancedControlFlow, fe.want[0])
	default:
		return fmt.Sprintf("%v: %v where %v expected", ErrUnbalancedControlFlow, fe.got, fe.want[0])
	}
}
func (fe fixupError) Unwrap() error { return ErrUnbalancedControlFlow }

type blockError struct{ err error }

func (be blockError) Error() string { return be.err.Error() }
func (be blockError) Unwrap() []error {
	return []error{ErrBlockIO, be.err}
}

// memError maps region access errors into the VM's fault taxonomy.
func memError(err error) error {
	var ae mem.AddrError
	if errors.As(err, &ae) {
		return addrError{ae}
	}
	var ioe blocks.IOError
	if errors.As(err, &ioe) {
		return blockError{err}
	}
	return err
}

func panicFault(err error) error {
	if panicerr.IsExit(err) {
		return fmt.Errorf("%w: %v", ErrPrimitivePanic, err)
	}
	return fmt.Errorf("%w: %v", ErrPrimitivePanic, panicerr.PanicValue(err))
}

// compileFault returns true for faults raised while reading or compiling
// input, before anything got executed; those leave the data stack intact.
// Running out of memory only counts while a definition is being compiled.
func compileFault(err error, compiling bool) bool {
	if compiling && errors.Is(err, ErrOutOfMemory) {
		return true
	}
	for _, cerr := range []error{
		ErrUnknownWord,
		ErrNestedDefinition,
		ErrUnbalancedControlFlow,
		ErrCompileOnly,
		ErrMissingName,
		ErrInvalidRadix,
		ErrDictionaryFull,
	} {
		if errors.Is(err, cerr) {
			return true
		}
	}
	return false
}
